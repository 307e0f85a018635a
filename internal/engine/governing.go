package engine

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/weldvault/qualify-cli/internal/model"
)

// contribution is one code's value for one field, tagged with its source.
type contribution struct {
	code  string
	field model.DerivedField
}

// computeGoverning fills res.Governing and res.GoverningCode from the
// per-code results. codeOrder is registration order, which encodes code
// priority: all first-wins tie-breaks resolve in its favor.
//
// The combination rule is one exhaustive switch over the field kind:
//
//   - ranges intersect (max of mins, min of maxes); because both halves
//     travel together in one field, a pair is only ever emitted by a code
//     that supplied both halves
//   - scalars take the minimum ceiling
//   - sets honor the All/N-A sentinels, then set-intersect
//   - free text takes the first-registered contributor
//
// with backing_type as the single named special case: its restrictive
// label wins regardless of source code.
func computeGoverning(res *model.DerivationResult, codeOrder []string) {
	for _, field := range fieldOrder(res, codeOrder) {
		contribs := collect(res, codeOrder, field)
		if len(contribs) == 0 {
			continue
		}

		if field == model.FieldBacking {
			governBacking(res, field, contribs)
			continue
		}

		// A kind mismatch across codes means a misbehaving plugin; keep
		// the first kind and drop the rest with a warning.
		contribs = sameKind(res, field, contribs)

		switch contribs[0].field.Kind {
		case model.KindRange:
			governRange(res, field, contribs)
		case model.KindScalar:
			governScalar(res, field, contribs)
		case model.KindSet:
			governSet(res, field, contribs)
		case model.KindText:
			governText(res, field, contribs)
		}
	}
}

// governRange intersects the contributed intervals. Each extremum is
// attributed to the code supplying it, first wins on ties; when the two
// extrema come from different codes the max supplier is recorded under
// "<field>.max".
func governRange(res *model.DerivationResult, field string, contribs []contribution) {
	min, minCode := contribs[0].field.Min, contribs[0].code
	max, maxCode := contribs[0].field.Max, contribs[0].code
	ref := contribs[0].field.Reference

	for _, c := range contribs[1:] {
		if min.Less(c.field.Min) {
			min, minCode = c.field.Min, c.code
			ref = c.field.Reference
		}
		if c.field.Max.Less(max) {
			max, maxCode = c.field.Max, c.code
		}
	}

	res.Governing[field] = model.RangeField(min, max, ref)
	res.GoverningCode[field] = minCode
	if maxCode != minCode {
		res.GoverningCode[field+".max"] = maxCode
	}
}

// governScalar takes the smallest ceiling as the most restrictive.
func governScalar(res *model.DerivationResult, field string, contribs []contribution) {
	best := contribs[0]
	for _, c := range contribs[1:] {
		if c.field.Scalar < best.field.Scalar {
			best = c
		}
	}
	res.Governing[field] = best.field
	res.GoverningCode[field] = best.code
}

// governSet combines position sets. N/A means "not evaluated", not
// "qualifies nothing", so it is discarded whenever any code produced a
// real value. All is the identity element of the intersection.
func governSet(res *model.DerivationResult, field string, contribs []contribution) {
	evaluated := contribs[:0:0]
	for _, c := range contribs {
		if c.field.Set != model.SetNotApplicable {
			evaluated = append(evaluated, c)
		}
	}
	if len(evaluated) == 0 {
		res.Governing[field] = contribs[0].field
		res.GoverningCode[field] = contribs[0].code
		return
	}

	allAll := true
	for _, c := range evaluated {
		if c.field.Set != model.SetAll {
			allAll = false
			break
		}
	}
	if allAll {
		res.Governing[field] = evaluated[0].field
		res.GoverningCode[field] = evaluated[0].code
		return
	}

	// Attribution goes to the first contributor that actually
	// constrained the result, never to an All identity.
	var inter map[string]bool
	first := evaluated[0]
	for _, c := range evaluated {
		if c.field.Set == model.SetAll {
			continue
		}
		members := splitSet(c.field.Set)
		if inter == nil {
			inter = members
			first = c
			continue
		}
		for m := range inter {
			if !members[m] {
				delete(inter, m)
			}
		}
	}

	res.Governing[field] = model.SetField(renderSet(inter), first.field.Reference)
	res.GoverningCode[field] = first.code
}

// governText takes the first-registered contributor; later codes remain
// visible under per_code only. Registration order encodes code priority.
func governText(res *model.DerivationResult, field string, contribs []contribution) {
	winner := contribs[0]
	for _, c := range contribs[1:] {
		if c.field.Text != winner.field.Text {
			zap.L().Warn("engine: codes disagree on text field; first registered wins",
				zap.String("field", field),
				zap.String("winner_code", winner.code),
				zap.String("winner", winner.field.Text),
				zap.String("loser_code", c.code),
				zap.String("loser", c.field.Text),
			)
		}
	}
	res.Governing[field] = winner.field
	res.GoverningCode[field] = winner.code
}

// governBacking is an ordered text field: the restrictive "With Only"
// beats "With or Without" no matter which code supplied it.
func governBacking(res *model.DerivationResult, field string, contribs []contribution) {
	winner := contribs[0]
	for _, c := range contribs {
		if c.field.Text == model.BackingWithOnly {
			winner = c
			break
		}
	}
	res.Governing[field] = winner.field
	res.GoverningCode[field] = winner.code
}

// fieldOrder returns every derived field name in first-seen order over
// the codes in registration order, for deterministic processing.
func fieldOrder(res *model.DerivationResult, codeOrder []string) []string {
	var order []string
	seen := make(map[string]bool)
	for _, code := range codeOrder {
		fields := res.PerCode[code]
		for _, f := range orderedKeys(fields) {
			if !seen[f] {
				seen[f] = true
				order = append(order, f)
			}
		}
	}
	return order
}

// collect gathers the contributors for one field in registration order.
func collect(res *model.DerivationResult, codeOrder []string, field string) []contribution {
	var out []contribution
	for _, code := range codeOrder {
		if f, ok := res.PerCode[code][field]; ok {
			out = append(out, contribution{code: code, field: f})
		}
	}
	return out
}

// sameKind drops contributors whose kind disagrees with the first one.
func sameKind(res *model.DerivationResult, field string, contribs []contribution) []contribution {
	kind := contribs[0].field.Kind
	kept := contribs[:0:0]
	for _, c := range contribs {
		if c.field.Kind != kind {
			res.Warn("%s: %s: kind %s conflicts with %s; excluded from governing", c.code, field, c.field.Kind, kind)
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func splitSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out[p] = true
		}
	}
	return out
}

// renderSet re-renders an intersected set sorted and comma-joined. An
// empty intersection renders as "None": no common position qualifies.
func renderSet(members map[string]bool) string {
	if len(members) == 0 {
		return "None"
	}
	out := make([]string, 0, len(members))
	for m := range members {
		out = append(out, m)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func orderedKeys(m map[string]model.DerivedField) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
