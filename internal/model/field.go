package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// Derived field names shared by all codes. Codes may emit any subset;
// the governing pass switches on the field's kind, not its name, with
// FieldBacking as the single named special case.
const (
	FieldThickness = "thickness_range"
	FieldDiameter  = "diameter_range"
	FieldGroove    = "groove_positions"
	FieldFillet    = "fillet_positions"
	FieldBacking   = "backing_type"
	FieldPNumber   = "p_number_qualified"
	FieldFNumber   = "f_number_qualified"
	FieldDeposit   = "deposit_thickness_max"
	FieldFiller    = "filler_type_qualified"
	FieldJoint     = "joint_type_qualified"
	FieldOverlap   = "overlap_qualified"
)

// Position-set sentinels. SetAll means every position qualifies.
// SetNotApplicable means the field was not evaluated for this coupon
// (e.g. groove scope on a fillet-only test), not that nothing qualifies.
const (
	SetAll           = "All"
	SetNotApplicable = "N/A"
)

// Backing qualification labels. BackingWithOnly is the more restrictive
// posture and always wins the governing comparison.
const (
	BackingWithOrWithout = "With or Without"
	BackingWithOnly      = "With Only"
)

// Bound is one end of a numeric qualification interval: either a real
// value or the single "unlimited" sentinel, so min/max comparisons stay
// total without magic floats.
type Bound struct {
	Unlimited bool
	Value     float64
}

// Limited returns a bound at the given value.
func Limited(v float64) Bound { return Bound{Value: v} }

// NoLimit returns the unlimited sentinel bound.
func NoLimit() Bound { return Bound{Unlimited: true} }

// Less reports whether b orders strictly before o. Unlimited compares
// greater than every real value and equal to itself.
func (b Bound) Less(o Bound) bool {
	if b.Unlimited {
		return false
	}
	if o.Unlimited {
		return true
	}
	return b.Value < o.Value
}

func (b Bound) String() string {
	if b.Unlimited {
		return "unlimited"
	}
	return strconv.FormatFloat(b.Value, 'g', -1, 64)
}

// MarshalJSON renders a real bound as a JSON number and the unlimited
// sentinel as the string "unlimited".
func (b Bound) MarshalJSON() ([]byte, error) {
	if b.Unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(b.Value)
}

func (b *Bound) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "unlimited" {
			return eris.Errorf("model: invalid bound %q", s)
		}
		*b = Bound{Unlimited: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "model: unmarshal bound")
	}
	*b = Bound{Value: v}
	return nil
}

// FieldKind discriminates the variants of DerivedField.
type FieldKind int

const (
	KindRange  FieldKind = iota // numeric interval [Min, Max]
	KindScalar                  // single numeric ceiling
	KindSet                     // categorical set, comma-joined, or a sentinel
	KindText                    // free text
)

func (k FieldKind) String() string {
	switch k {
	case KindRange:
		return "range"
	case KindScalar:
		return "scalar"
	case KindSet:
		return "set"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// ParseFieldKind converts the JSON kind tag back into a FieldKind.
func ParseFieldKind(s string) (FieldKind, error) {
	switch s {
	case "range":
		return KindRange, nil
	case "scalar":
		return KindScalar, nil
	case "set":
		return KindSet, nil
	case "text":
		return KindText, nil
	default:
		return 0, eris.Errorf("model: unknown field kind %q", s)
	}
}

// DerivedField is one derived qualification value plus the code-book
// citation backing it. Exactly the variant named by Kind is populated.
type DerivedField struct {
	Kind      FieldKind
	Min, Max  Bound   // KindRange
	Scalar    float64 // KindScalar
	Set       string  // KindSet; SetAll / SetNotApplicable or "1G, 2G"
	Text      string  // KindText
	Reference string
}

// RangeField builds a numeric-interval field.
func RangeField(min, max Bound, ref string) DerivedField {
	return DerivedField{Kind: KindRange, Min: min, Max: max, Reference: ref}
}

// ScalarField builds a single-ceiling numeric field.
func ScalarField(v float64, ref string) DerivedField {
	return DerivedField{Kind: KindScalar, Scalar: v, Reference: ref}
}

// SetField builds a categorical-set field.
func SetField(set, ref string) DerivedField {
	return DerivedField{Kind: KindSet, Set: set, Reference: ref}
}

// TextField builds a free-text field.
func TextField(text, ref string) DerivedField {
	return DerivedField{Kind: KindText, Text: text, Reference: ref}
}

// Render returns the human-readable value for audit logs.
func (f DerivedField) Render() string {
	switch f.Kind {
	case KindRange:
		return fmt.Sprintf("%s to %s", f.Min, f.Max)
	case KindScalar:
		return strconv.FormatFloat(f.Scalar, 'g', -1, 64)
	case KindSet:
		return f.Set
	default:
		return f.Text
	}
}

type fieldJSON struct {
	Kind      string   `json:"kind"`
	Min       *Bound   `json:"min,omitempty"`
	Max       *Bound   `json:"max,omitempty"`
	Scalar    *float64 `json:"scalar,omitempty"`
	Set       string   `json:"set,omitempty"`
	Text      string   `json:"text,omitempty"`
	Reference string   `json:"reference,omitempty"`
}

// MarshalJSON emits only the keys belonging to the populated variant.
func (f DerivedField) MarshalJSON() ([]byte, error) {
	out := fieldJSON{Kind: f.Kind.String(), Reference: f.Reference}
	switch f.Kind {
	case KindRange:
		min, max := f.Min, f.Max
		out.Min, out.Max = &min, &max
	case KindScalar:
		v := f.Scalar
		out.Scalar = &v
	case KindSet:
		out.Set = f.Set
	case KindText:
		out.Text = f.Text
	}
	return json.Marshal(out)
}

func (f *DerivedField) UnmarshalJSON(data []byte) error {
	var in fieldJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return eris.Wrap(err, "model: unmarshal derived field")
	}
	kind, err := ParseFieldKind(in.Kind)
	if err != nil {
		return err
	}
	*f = DerivedField{Kind: kind, Set: in.Set, Text: in.Text, Reference: in.Reference}
	if in.Min != nil {
		f.Min = *in.Min
	}
	if in.Max != nil {
		f.Max = *in.Max
	}
	if in.Scalar != nil {
		f.Scalar = *in.Scalar
	}
	return nil
}
