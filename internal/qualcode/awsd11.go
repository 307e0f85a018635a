package qualcode

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/weldvault/qualify-cli/internal/model"
	"github.com/weldvault/qualify-cli/internal/parse"
)

// AWSD11ID identifies the AWS D1.1 Structural Welding Code (steel)
// implementation.
const AWSD11ID = "aws_d1_1"

// AWS D1.1 interval constants, inches.
const (
	awsThickFloor = 0.125 // minimum qualified thickness
	awsThickBreak = 1.0   // coupon at or above this qualifies unlimited

	awsDiamSmall = 1.0
	awsDiamLarge = 2.875
)

// Lookup tables a deployment may override row-by-row; see Positions.
const (
	awsGrooveTable = "groove_positions"
	awsFilletTable = "fillet_positions"
)

// AWSD11 implements Code for AWS D1.1 welder performance qualification.
// D1.1 has no brazing variant, so only wpq forms apply.
type AWSD11 struct{}

func (AWSD11) ID() string { return AWSD11ID }

func (AWSD11) AppliesTo(ft model.FormType) bool { return ft == model.FormWPQ }

// Thickness applies the D1.1 three-tier rule: floor 1/8 in, doubling up
// to a 1 in coupon, unlimited at or above it.
func (c AWSD11) Thickness(rec model.Record, ft model.FormType) (*model.DerivedField, error) {
	t, ok := rec.Float(model.KeyThickness)
	if !ok || t <= 0 {
		return nil, nil
	}
	f := threeTierRange(t, awsThickFloor, awsThickBreak, "Table 6.11")
	return &f, nil
}

// Diameter applies the tubular-member rule. The thick tier keeps the
// 1 in floor: a large-pipe test still qualifies down to small pipe
// under D1.1, unlike ASME IX.
func (c AWSD11) Diameter(rec model.Record, ft model.FormType) (*model.DerivedField, error) {
	text, ok := rec.Text(model.KeyDiameter)
	if !ok {
		return nil, nil
	}
	od, ok := parse.Diameter(text)
	if !ok || od <= 0 {
		return nil, nil
	}
	f := threeTierRange(od, awsDiamSmall, awsDiamLarge, "Table 10.13")
	return &f, nil
}

// awsPositionTable is the Table 6.10 cascade. D1.1 is slightly more
// generous than QW-461.9 in the vertical and overhead rows (3G and 4G
// also qualify 2G).
var awsPositionTable = map[string]positionRow{
	"1G": {"1G", "1F, 2F"},
	"2G": {"1G, 2G", "1F, 2F"},
	"3G": {"1G, 2G, 3G", "1F, 2F, 3F"},
	"4G": {"1G, 2G, 4G", "1F, 2F, 4F"},
	"5G": {"1G, 3G, 4G, 5G", model.SetAll},
	"6G": {model.SetAll, model.SetAll},
	"1F": {model.SetNotApplicable, "1F"},
	"2F": {model.SetNotApplicable, "1F, 2F"},
	"3F": {model.SetNotApplicable, "1F, 2F, 3F"},
	"4F": {model.SetNotApplicable, "1F, 2F, 4F"},
	"5F": {model.SetNotApplicable, model.SetAll},
}

// Positions derives the qualified position sets from Table 6.10. When a
// lookup handle is present, a stored reference row overrides the
// built-in cascade row for that position, letting a deployment patch a
// single row without a rebuild. Lookups are read-only.
func (c AWSD11) Positions(ctx context.Context, rec model.Record, ft model.FormType, lk Lookup) (*PositionResult, error) {
	text, ok := rec.Text(model.KeyPosition)
	if !ok {
		return nil, nil
	}
	pos, ok := parse.Position(text)
	if !ok {
		return nil, nil
	}

	row, ok := awsPositionTable[pos]
	if !ok {
		return nil, nil
	}
	groove, fillet := row.groove, row.fillet

	if lk != nil {
		if v, found, err := lk.ReferenceValue(ctx, c.ID(), awsGrooveTable, pos); err != nil {
			return nil, eris.Wrapf(err, "aws_d1_1: groove lookup for %s", pos)
		} else if found {
			groove = v
		}
		if v, found, err := lk.ReferenceValue(ctx, c.ID(), awsFilletTable, pos); err != nil {
			return nil, eris.Wrapf(err, "aws_d1_1: fillet lookup for %s", pos)
		} else if found {
			fillet = v
		}
	}

	const ref = "Table 6.10"
	filletField := model.SetField(fillet, ref)
	return &PositionResult{
		Groove: model.SetField(groove, ref),
		Fillet: &filletField,
	}, nil
}

// Backing uses the same conservative labels as ASME IX: only an
// open-root test earns the permissive label.
func (c AWSD11) Backing(rec model.Record, ft model.FormType) (*model.DerivedField, error) {
	text, _ := rec.Text(model.KeyBacking)
	label := model.BackingWithOnly
	if !parse.HasBacking(text) {
		label = model.BackingWithOrWithout
	}
	f := model.TextField(label, "Clause 6.10.2")
	return &f, nil
}

// Supplemental: D1.1 groups filler by classification rather than
// F-number, so only the filler passthrough applies.
func (c AWSD11) Supplemental(rec model.Record, ft model.FormType) (map[string]model.DerivedField, error) {
	out := make(map[string]model.DerivedField)
	if filler, ok := rec.Text(model.KeyFiller); ok {
		out[model.FieldFiller] = model.TextField(filler, "Table 6.9")
	}
	return out, nil
}
