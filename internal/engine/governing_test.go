package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weldvault/qualify-cli/internal/model"
)

// seed builds a result with per-code fields already recorded, in the
// given code order.
func seed(codes map[string]map[string]model.DerivedField, order []string) *model.DerivationResult {
	res := model.NewDerivationResult(model.FormWPQ)
	for _, code := range order {
		for field, f := range codes[code] {
			res.Record(code, field, f)
		}
	}
	return res
}

func TestGoverningRangeIntersection(t *testing.T) {
	res := seed(map[string]map[string]model.DerivedField{
		"first":  {model.FieldThickness: model.RangeField(model.Limited(0.0625), model.Limited(0.6), "T-1")},
		"second": {model.FieldThickness: model.RangeField(model.Limited(0.125), model.Limited(0.75), "T-2")},
	}, []string{"first", "second"})

	computeGoverning(res, []string{"first", "second"})

	g := res.Governing[model.FieldThickness]
	assert.Equal(t, model.Limited(0.125), g.Min)
	assert.Equal(t, model.Limited(0.6), g.Max)
	assert.Equal(t, "T-2", g.Reference)
	assert.Equal(t, "second", res.GoverningCode[model.FieldThickness])
	assert.Equal(t, "first", res.GoverningCode[model.FieldThickness+".max"])
}

func TestGoverningRangeUnlimitedFloors(t *testing.T) {
	// Two open-ended intervals: the higher floor governs and is
	// attributed to the code that supplied it.
	res := seed(map[string]map[string]model.DerivedField{
		"first":  {model.FieldDiameter: model.RangeField(model.Limited(1.0), model.NoLimit(), "D-1")},
		"second": {model.FieldDiameter: model.RangeField(model.Limited(2.875), model.NoLimit(), "D-2")},
	}, []string{"first", "second"})

	computeGoverning(res, []string{"first", "second"})

	g := res.Governing[model.FieldDiameter]
	assert.Equal(t, model.Limited(2.875), g.Min)
	assert.Equal(t, model.NoLimit(), g.Max)
	assert.Equal(t, "second", res.GoverningCode[model.FieldDiameter])
	assert.NotContains(t, res.GoverningCode, model.FieldDiameter+".max")
}

func TestGoverningRangeTieFirstWins(t *testing.T) {
	res := seed(map[string]map[string]model.DerivedField{
		"first":  {model.FieldThickness: model.RangeField(model.Limited(0.125), model.Limited(0.75), "T-1")},
		"second": {model.FieldThickness: model.RangeField(model.Limited(0.125), model.Limited(0.75), "T-2")},
	}, []string{"first", "second"})

	computeGoverning(res, []string{"first", "second"})

	assert.Equal(t, "first", res.GoverningCode[model.FieldThickness])
	assert.Equal(t, "T-1", res.Governing[model.FieldThickness].Reference)
}

func TestGoverningScalarMinimum(t *testing.T) {
	res := seed(map[string]map[string]model.DerivedField{
		"first":  {model.FieldDeposit: model.ScalarField(0.5, "S-1")},
		"second": {model.FieldDeposit: model.ScalarField(0.375, "S-2")},
	}, []string{"first", "second"})

	computeGoverning(res, []string{"first", "second"})

	g := res.Governing[model.FieldDeposit]
	assert.InDelta(t, 0.375, g.Scalar, 1e-9)
	assert.Equal(t, "second", res.GoverningCode[model.FieldDeposit])
}

func TestGoverningSet(t *testing.T) {
	tests := []struct {
		name     string
		first    string
		second   string
		expected string
	}{
		{"plain intersection", "1G, 2G, 3G", "1G, 3G, 4G", "1G, 3G"},
		{"all is identity", model.SetAll, "1G, 2G", "1G, 2G"},
		{"both all stays all", model.SetAll, model.SetAll, model.SetAll},
		{"not applicable discarded", model.SetNotApplicable, "1F, 2F", "1F, 2F"},
		{"disjoint renders none", "1G", "2G", "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := seed(map[string]map[string]model.DerivedField{
				"first":  {model.FieldGroove: model.SetField(tt.first, "P-1")},
				"second": {model.FieldGroove: model.SetField(tt.second, "P-2")},
			}, []string{"first", "second"})

			computeGoverning(res, []string{"first", "second"})
			assert.Equal(t, tt.expected, res.Governing[model.FieldGroove].Set)
		})
	}
}

func TestGoverningSetAttributionSkipsIdentity(t *testing.T) {
	// An All contributor constrains nothing, so the constraining code
	// gets the attribution and the reference.
	res := seed(map[string]map[string]model.DerivedField{
		"first":  {model.FieldGroove: model.SetField(model.SetAll, "P-1")},
		"second": {model.FieldGroove: model.SetField("1G, 2G", "P-2")},
	}, []string{"first", "second"})

	computeGoverning(res, []string{"first", "second"})

	g := res.Governing[model.FieldGroove]
	assert.Equal(t, "1G, 2G", g.Set)
	assert.Equal(t, "P-2", g.Reference)
	assert.Equal(t, "second", res.GoverningCode[model.FieldGroove])
}

func TestGoverningSetAllNotApplicable(t *testing.T) {
	// Nobody evaluated the field: N/A carries through unchanged.
	res := seed(map[string]map[string]model.DerivedField{
		"first":  {model.FieldGroove: model.SetField(model.SetNotApplicable, "P-1")},
		"second": {model.FieldGroove: model.SetField(model.SetNotApplicable, "P-2")},
	}, []string{"first", "second"})

	computeGoverning(res, []string{"first", "second"})
	assert.Equal(t, model.SetNotApplicable, res.Governing[model.FieldGroove].Set)
	assert.Equal(t, "first", res.GoverningCode[model.FieldGroove])
}

func TestGoverningTextFirstRegisteredWins(t *testing.T) {
	res := seed(map[string]map[string]model.DerivedField{
		"first":  {model.FieldFiller: model.TextField("E7018", "F-1")},
		"second": {model.FieldFiller: model.TextField("E6010", "F-2")},
	}, []string{"first", "second"})

	computeGoverning(res, []string{"first", "second"})

	assert.Equal(t, "E7018", res.Governing[model.FieldFiller].Text)
	assert.Equal(t, "first", res.GoverningCode[model.FieldFiller])
}

func TestGoverningBackingRestrictiveWins(t *testing.T) {
	// The restrictive label wins even when a later code supplies it.
	res := seed(map[string]map[string]model.DerivedField{
		"first":  {model.FieldBacking: model.TextField(model.BackingWithOrWithout, "B-1")},
		"second": {model.FieldBacking: model.TextField(model.BackingWithOnly, "B-2")},
	}, []string{"first", "second"})

	computeGoverning(res, []string{"first", "second"})

	assert.Equal(t, model.BackingWithOnly, res.Governing[model.FieldBacking].Text)
	assert.Equal(t, "second", res.GoverningCode[model.FieldBacking])
}

func TestGoverningKindMismatchExcluded(t *testing.T) {
	res := seed(map[string]map[string]model.DerivedField{
		"first":  {model.FieldThickness: model.RangeField(model.Limited(0.0625), model.Limited(0.6), "T-1")},
		"second": {model.FieldThickness: model.TextField("0.6 max", "T-2")},
	}, []string{"first", "second"})

	computeGoverning(res, []string{"first", "second"})

	g := res.Governing[model.FieldThickness]
	assert.Equal(t, model.KindRange, g.Kind)
	assert.Equal(t, "first", res.GoverningCode[model.FieldThickness])
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "second")
	assert.Contains(t, res.Warnings[0], "excluded from governing")
}

func TestGoverningSingleContributorPassesThrough(t *testing.T) {
	f := model.RangeField(model.Limited(0.125), model.NoLimit(), "T-1")
	res := seed(map[string]map[string]model.DerivedField{
		"only": {model.FieldThickness: f},
	}, []string{"only"})

	computeGoverning(res, []string{"only"})

	assert.Equal(t, f, res.Governing[model.FieldThickness])
	assert.Equal(t, "only", res.GoverningCode[model.FieldThickness])
}

func TestSplitAndRenderSet(t *testing.T) {
	members := splitSet(" 3G, 1G , 2G ")
	assert.Equal(t, map[string]bool{"1G": true, "2G": true, "3G": true}, members)
	assert.Equal(t, "1G, 2G, 3G", renderSet(members))
	assert.Equal(t, "None", renderSet(nil))
}
