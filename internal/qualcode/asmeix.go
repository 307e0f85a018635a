package qualcode

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/weldvault/qualify-cli/internal/model"
	"github.com/weldvault/qualify-cli/internal/parse"
)

// ASMEIXID identifies the ASME Boiler and Pressure Vessel Code,
// Section IX implementation.
const ASMEIXID = "asme_ix"

// ASME IX interval constants, inches. QW governs welding (wpq forms),
// QB governs brazing (bpqr forms); each variant owns its own floor.
const (
	asmeWeldFloor  = 0.0625 // minimum qualified thickness, QW-452.1(b)
	asmeBrazeFloor = 0.125  // minimum qualified thickness, QB-452.1(a)
	asmeThickBreak = 0.5    // coupon at or above this qualifies unlimited

	asmeDiamSmall = 1.0   // below this OD the coupon qualifies itself only
	asmeDiamLarge = 2.875 // at or above this OD the max is unlimited
)

// ASMEIX implements Code for ASME Section IX welder and brazer
// performance qualification.
type ASMEIX struct{}

func (ASMEIX) ID() string { return ASMEIXID }

func (ASMEIX) AppliesTo(ft model.FormType) bool {
	return ft == model.FormWPQ || ft == model.FormBPQR
}

// Thickness applies the three-tier QW-452/QB-452 rule: a thin coupon
// qualifies only itself, a mid-range coupon qualifies floor to twice the
// tested thickness, and a thick coupon removes the upper limit.
func (c ASMEIX) Thickness(rec model.Record, ft model.FormType) (*model.DerivedField, error) {
	t, ok := rec.Float(model.KeyThickness)
	if !ok || t <= 0 {
		return nil, nil
	}

	floor, ref := asmeWeldFloor, "QW-452.1(b)"
	if ft == model.FormBPQR {
		floor, ref = asmeBrazeFloor, "QB-452.1(a)"
	}

	f := threeTierRange(t, floor, asmeThickBreak, ref)
	return &f, nil
}

// Diameter applies the same three-tier shape to pipe OD per QW-452.3.
func (c ASMEIX) Diameter(rec model.Record, ft model.FormType) (*model.DerivedField, error) {
	text, ok := rec.Text(model.KeyDiameter)
	if !ok {
		return nil, nil
	}
	od, ok := parse.Diameter(text)
	if !ok || od <= 0 {
		return nil, nil
	}

	ref := "QW-452.3"
	if ft == model.FormBPQR {
		ref = "QB-452.3"
	}

	// Unlike thickness, the thick tier floors at 2-7/8 itself: a large
	// coupon does not reach back down to small pipe.
	var f model.DerivedField
	switch {
	case od < asmeDiamSmall:
		f = model.RangeField(model.Limited(od), model.Limited(od), ref)
	case od < asmeDiamLarge:
		f = model.RangeField(model.Limited(asmeDiamSmall), model.Limited(2*od), ref)
	default:
		f = model.RangeField(model.Limited(asmeDiamLarge), model.NoLimit(), ref)
	}
	return &f, nil
}

// asmePositionTable is the QW-461.9 cascade: each tested groove position
// qualifies a fixed groove set and a derived fillet set; 6G collapses to
// All, fillet-only tests leave groove not applicable.
var asmePositionTable = map[string]positionRow{
	"1G": {"1G", "1F, 2F"},
	"2G": {"1G, 2G", "1F, 2F"},
	"3G": {"1G, 3G", "1F, 2F, 3F"},
	"4G": {"1G, 4G", "1F, 2F, 4F"},
	"5G": {"1G, 3G, 4G, 5G", model.SetAll},
	"6G": {model.SetAll, model.SetAll},
	"1F": {model.SetNotApplicable, "1F"},
	"2F": {model.SetNotApplicable, "1F, 2F"},
	"3F": {model.SetNotApplicable, "1F, 2F, 3F"},
	"4F": {model.SetNotApplicable, "1F, 2F, 4F"},
	"5F": {model.SetNotApplicable, model.SetAll},
}

// Positions derives the qualified position sets. Brazing uses the
// simpler QB-461 rule: a flat-position test qualifies flat only, any
// other position qualifies all.
func (c ASMEIX) Positions(ctx context.Context, rec model.Record, ft model.FormType, _ Lookup) (*PositionResult, error) {
	text, ok := rec.Text(model.KeyPosition)
	if !ok {
		return nil, nil
	}
	pos, ok := parse.Position(text)
	if !ok {
		return nil, nil
	}

	if ft == model.FormBPQR {
		const ref = "QB-461.1"
		set := model.SetAll
		if pos == "FLAT" || pos == "1G" {
			set = "Flat"
		}
		return &PositionResult{Groove: model.SetField(set, ref)}, nil
	}

	row, ok := asmePositionTable[pos]
	if !ok {
		return nil, nil
	}
	const ref = "QW-461.9"
	fillet := model.SetField(row.fillet, ref)
	return &PositionResult{
		Groove: model.SetField(row.groove, ref),
		Fillet: &fillet,
	}, nil
}

// Backing maps an open-root (no backing) test to the permissive label
// and anything else to the restrictive one. Brazing has no backing
// variable, so bpqr forms derive nothing.
func (c ASMEIX) Backing(rec model.Record, ft model.FormType) (*model.DerivedField, error) {
	if ft == model.FormBPQR {
		return nil, nil
	}
	text, _ := rec.Text(model.KeyBacking)
	label := model.BackingWithOnly
	if !parse.HasBacking(text) {
		label = model.BackingWithOrWithout
	}
	f := model.TextField(label, "QW-402.4")
	return &f, nil
}

// pNumberCeiling is the highest P-number inside the QW-423 group: a test
// on any member at or below it qualifies the whole group.
const pNumberCeiling = 15

// Supplemental derives the ASME-specific extras: the P-number group
// cascade, the F-number descending cascade, the deposited-metal ceiling,
// and the filler/joint passthroughs.
func (c ASMEIX) Supplemental(rec model.Record, ft model.FormType) (map[string]model.DerivedField, error) {
	out := make(map[string]model.DerivedField)

	if ft == model.FormBPQR {
		if joint, ok := rec.Text(model.KeyJoint); ok {
			out[model.FieldJoint] = model.TextField(joint, "QB-402.1")
		}
		if overlap, ok := rec.Float(model.KeyOverlap); ok && overlap > 0 {
			out[model.FieldOverlap] = model.ScalarField(2*overlap, "QB-452.1(d)")
		}
		if filler, ok := rec.Text(model.KeyFiller); ok {
			out[model.FieldFiller] = model.TextField(filler, "QB-402.3")
		}
		return out, nil
	}

	if p, ok := parsePNumber(rec); ok {
		out[model.FieldPNumber] = pNumberCascade(p)
	}
	if fn, ok := parseFNumber(rec); ok {
		out[model.FieldFNumber] = fNumberCascade(fn)
	}
	if dep, ok := rec.Float(model.KeyDeposit); ok && dep > 0 {
		out[model.FieldDeposit] = model.ScalarField(2*dep, "QW-404.30")
	}
	if filler, ok := rec.Text(model.KeyFiller); ok {
		out[model.FieldFiller] = model.TextField(filler, "QW-404.15")
	}

	return out, nil
}

// pNumberCascade: testing on P-1 through P-15F base metal qualifies the
// whole group; anything above qualifies itself only.
func pNumberCascade(p int) model.DerivedField {
	if p <= pNumberCeiling {
		return model.TextField("P1 through P15F", "QW-423.1")
	}
	return model.TextField(fmt.Sprintf("P%d only", p), "QW-423.1")
}

// fNumberCascade: the tested F-number qualifies itself and every F-number
// below it, descending to F1.
func fNumberCascade(f int) model.DerivedField {
	parts := make([]string, 0, f)
	for n := f; n >= 1; n-- {
		parts = append(parts, "F"+strconv.Itoa(n))
	}
	return model.TextField(strings.Join(parts, ", "), "QW-433")
}

var numberRe = regexp.MustCompile(`(\d+)`)

func parsePNumber(rec model.Record) (int, bool) {
	text, ok := rec.Text(model.KeyPNumber)
	if !ok {
		return 0, false
	}
	return firstNumber(text)
}

func parseFNumber(rec model.Record) (int, bool) {
	text, ok := rec.Text(model.KeyFNumber)
	if !ok {
		return 0, false
	}
	return firstNumber(text)
}

func firstNumber(s string) (int, bool) {
	m := numberRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// positionRow is one cascade-table entry.
type positionRow struct {
	groove string
	fillet string
}

// threeTierRange is the interval rule shared by thickness and diameter:
// below the floor the coupon qualifies only itself, between floor and
// breakpoint it qualifies floor to twice the actual, and at or above the
// breakpoint the upper limit disappears.
func threeTierRange(actual, floor, breakpoint float64, ref string) model.DerivedField {
	switch {
	case actual < floor:
		return model.RangeField(model.Limited(actual), model.Limited(actual), ref)
	case actual < breakpoint:
		return model.RangeField(model.Limited(floor), model.Limited(2*actual), ref)
	default:
		return model.RangeField(model.Limited(floor), model.NoLimit(), ref)
	}
}
