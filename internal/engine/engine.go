// Package engine orchestrates qualification derivation: it selects the
// codes applicable to a form type, invokes each code's derivations under
// isolated error handling, and combines the per-code results into the
// governing (most restrictive) values a compliance program must enforce.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/weldvault/qualify-cli/internal/model"
	"github.com/weldvault/qualify-cli/internal/qualcode"
)

// Engine derives qualification ranges from actual test records. It is
// stateless per call: the registry is written once at startup and only
// read here, so one Engine serves concurrent callers.
type Engine struct {
	registry *qualcode.Registry
	lookup   qualcode.Lookup // optional, passed through to Positions
}

// New returns an engine over the given registry. lk may be nil.
func New(reg *qualcode.Registry, lk qualcode.Lookup) *Engine {
	return &Engine{registry: reg, lookup: lk}
}

// Derive computes the per-code and governing qualification ranges for
// one test record.
//
// filter, when non-empty, restricts derivation to the named codes: an
// unknown id is a hard error (a caller or config mistake must not be
// silently ignored), while a known code that does not apply to the form
// type is excluded with a warning. Every other failure mode degrades to
// a partial result whose warnings and skipped_fields explain what is
// missing.
func (e *Engine) Derive(ctx context.Context, rec model.Record, ft model.FormType, filter []string) (*model.DerivationResult, error) {
	res := model.NewDerivationResult(ft)

	if len(rec) == 0 || rec.Empty() {
		res.Warn("empty record: no derivations attempted")
		return res, nil
	}

	candidates, err := e.candidates(ft, filter, res)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		res.Warn("no applicable codes for form type %q", ft)
		return res, nil
	}

	order := make([]string, 0, len(candidates))
	for _, code := range candidates {
		order = append(order, code.ID())
		e.deriveCode(ctx, code, rec, ft, res)
	}

	computeGoverning(res, order)

	zap.L().Debug("engine: derivation complete",
		zap.String("form_type", string(ft)),
		zap.Strings("codes", order),
		zap.Int("rules_fired", len(res.RulesFired)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

// candidates resolves the codes to run, honoring an explicit filter.
// The filter selects codes but never reorders them: candidates always
// run in registration order, which encodes code priority for free-text
// governing and first-wins tie-breaks.
func (e *Engine) candidates(ft model.FormType, filter []string, res *model.DerivationResult) ([]qualcode.Code, error) {
	if len(filter) == 0 {
		return e.registry.ForForm(ft), nil
	}

	want := make(map[string]bool, len(filter))
	for _, id := range filter {
		code, err := e.registry.Get(id)
		if err != nil {
			return nil, err
		}
		if !code.AppliesTo(ft) {
			res.Warn("code %s does not apply to form type %q; excluded", id, ft)
			continue
		}
		want[id] = true
	}

	var out []qualcode.Code
	for _, code := range e.registry.All() {
		if want[code.ID()] {
			out = append(out, code)
		}
	}
	return out, nil
}

// deriveCode runs all five derivations for one code. Each operation is
// independently guarded: an error or panic in one becomes a warning and
// the rest still run.
func (e *Engine) deriveCode(ctx context.Context, code qualcode.Code, rec model.Record, ft model.FormType, res *model.DerivationResult) {
	id := code.ID()

	guard(res, id, model.FieldThickness, func() error {
		f, err := code.Thickness(rec, ft)
		if err != nil {
			return err
		}
		if f == nil {
			res.Skip(id, model.FieldThickness)
			return nil
		}
		res.Record(id, model.FieldThickness, *f)
		return nil
	})

	guard(res, id, model.FieldDiameter, func() error {
		f, err := code.Diameter(rec, ft)
		if err != nil {
			return err
		}
		if f == nil {
			res.Skip(id, model.FieldDiameter)
			return nil
		}
		res.Record(id, model.FieldDiameter, *f)
		return nil
	})

	guard(res, id, model.FieldGroove, func() error {
		p, err := code.Positions(ctx, rec, ft, e.lookup)
		if err != nil {
			return err
		}
		if p == nil {
			res.Skip(id, model.FieldGroove)
			res.Skip(id, model.FieldFillet)
			return nil
		}
		res.Record(id, model.FieldGroove, p.Groove)
		if p.Fillet == nil {
			res.Skip(id, model.FieldFillet)
		} else {
			res.Record(id, model.FieldFillet, *p.Fillet)
		}
		return nil
	})

	guard(res, id, model.FieldBacking, func() error {
		f, err := code.Backing(rec, ft)
		if err != nil {
			return err
		}
		if f == nil {
			res.Skip(id, model.FieldBacking)
			return nil
		}
		res.Record(id, model.FieldBacking, *f)
		return nil
	})

	guard(res, id, "supplemental", func() error {
		fields, err := code.Supplemental(rec, ft)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			res.Skip(id, "supplemental")
			return nil
		}
		for _, field := range orderedKeys(fields) {
			res.Record(id, field, fields[field])
		}
		return nil
	})
}

// guard converts an error or panic from one derivation into a warning
// naming the code and field, so no single failure aborts the call.
func guard(res *model.DerivationResult, codeID, field string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			res.Warn("%s: %s: panic: %v", codeID, field, p)
			zap.L().Warn("engine: derivation panicked",
				zap.String("code", codeID),
				zap.String("field", field),
				zap.Any("panic", p),
			)
		}
	}()
	if err := fn(); err != nil {
		res.Warn("%s: %s: %v", codeID, field, err)
		zap.L().Warn("engine: derivation failed",
			zap.String("code", codeID),
			zap.String("field", field),
			zap.Error(err),
		)
	}
}
