package qualcode

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weldvault/qualify-cli/internal/model"
)

// mapLookup is an in-memory Lookup for tests.
type mapLookup struct {
	values map[string]string // "code/table/key" -> value
	err    error
}

func (m mapLookup) ReferenceValue(_ context.Context, codeID, table, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[codeID+"/"+table+"/"+key]
	return v, ok, nil
}

func TestAWSD11AppliesToWeldingOnly(t *testing.T) {
	code := AWSD11{}
	assert.True(t, code.AppliesTo(model.FormWPQ))
	assert.False(t, code.AppliesTo(model.FormBPQR))
}

func TestAWSD11Thickness(t *testing.T) {
	tests := []struct {
		name      string
		thickness float64
		min, max  model.Bound
	}{
		{"thin coupon qualifies itself only", 0.1, model.Limited(0.1), model.Limited(0.1)},
		{"mid tier doubles", 0.375, model.Limited(0.125), model.Limited(0.75)},
		{"one inch coupon unlimited", 1.0, model.Limited(0.125), model.NoLimit()},
	}

	code := AWSD11{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := code.Thickness(model.Record{model.KeyThickness: tt.thickness}, model.FormWPQ)
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, tt.min, f.Min)
			assert.Equal(t, tt.max, f.Max)
			assert.Equal(t, "Table 6.11", f.Reference)
		})
	}
}

func TestAWSD11DiameterThickTierKeepsFloor(t *testing.T) {
	code := AWSD11{}

	// Unlike ASME IX, a large-pipe test keeps the 1 in floor.
	f, err := code.Diameter(model.Record{model.KeyDiameter: `6" OD`}, model.FormWPQ)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, model.Limited(1.0), f.Min)
	assert.Equal(t, model.NoLimit(), f.Max)
	assert.Equal(t, "Table 10.13", f.Reference)
}

func TestAWSD11Positions(t *testing.T) {
	code := AWSD11{}

	p, err := code.Positions(context.Background(), model.Record{model.KeyPosition: "3G"}, model.FormWPQ, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "1G, 2G, 3G", p.Groove.Set)
	require.NotNil(t, p.Fillet)
	assert.Equal(t, "1F, 2F, 3F", p.Fillet.Set)
	assert.Equal(t, "Table 6.10", p.Groove.Reference)

	p, err = code.Positions(context.Background(), model.Record{model.KeyPosition: "6G"}, model.FormWPQ, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.SetAll, p.Groove.Set)
	assert.Equal(t, model.SetAll, p.Fillet.Set)
}

func TestAWSD11PositionsLookupOverride(t *testing.T) {
	code := AWSD11{}
	lk := mapLookup{values: map[string]string{
		"aws_d1_1/groove_positions/3G": "1G, 3G",
	}}

	p, err := code.Positions(context.Background(), model.Record{model.KeyPosition: "3G"}, model.FormWPQ, lk)
	require.NoError(t, err)
	require.NotNil(t, p)
	// Groove row overridden, fillet row still from the built-in table.
	assert.Equal(t, "1G, 3G", p.Groove.Set)
	assert.Equal(t, "1F, 2F, 3F", p.Fillet.Set)
}

func TestAWSD11PositionsLookupError(t *testing.T) {
	code := AWSD11{}
	lk := mapLookup{err: eris.New("database locked")}

	_, err := code.Positions(context.Background(), model.Record{model.KeyPosition: "3G"}, model.FormWPQ, lk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "groove lookup")
}

func TestAWSD11Backing(t *testing.T) {
	code := AWSD11{}

	f, err := code.Backing(model.Record{model.KeyBacking: "welded without backing"}, model.FormWPQ)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, model.BackingWithOrWithout, f.Text)
	assert.Equal(t, "Clause 6.10.2", f.Reference)
}

func TestAWSD11Supplemental(t *testing.T) {
	code := AWSD11{}

	out, err := code.Supplemental(model.Record{model.KeyFiller: "E71T-1"}, model.FormWPQ)
	require.NoError(t, err)
	assert.Equal(t, "E71T-1", out[model.FieldFiller].Text)
	assert.Equal(t, "Table 6.9", out[model.FieldFiller].Reference)

	out, err = code.Supplemental(model.Record{}, model.FormWPQ)
	require.NoError(t, err)
	assert.Empty(t, out)
}
