package model

import "fmt"

// RuleFired is one entry in the ordered audit trail: which code derived
// which field, under what citation, to what value.
type RuleFired struct {
	Code      string `json:"code"`
	Field     string `json:"field"`
	Reference string `json:"reference"`
	Value     string `json:"value"`
}

// DerivationResult is the full outcome of one derivation call. It is
// built fresh per call, carries no identity, and serializes to plain
// JSON for persistence or transport by the caller.
//
// Invariants: every Governing entry has a matching PerCode source, and
// GoverningCode[f] names a code that actually produced f.
//
// GoverningCode keys are field names, with one extension: when the two
// extrema of a governing range came from different codes, the minimum
// supplier is recorded under the field name and the maximum supplier
// under "<field>.max".
type DerivationResult struct {
	FormType      FormType                           `json:"form_type"`
	PerCode       map[string]map[string]DerivedField `json:"per_code"`
	Governing     map[string]DerivedField            `json:"governing"`
	GoverningCode map[string]string                  `json:"governing_code"`
	RulesFired    []RuleFired                        `json:"rules_fired"`
	Warnings      []string                           `json:"warnings,omitempty"`
	SkippedFields []string                           `json:"skipped_fields,omitempty"`
}

// NewDerivationResult returns an empty result with all maps allocated.
func NewDerivationResult(ft FormType) *DerivationResult {
	return &DerivationResult{
		FormType:      ft,
		PerCode:       make(map[string]map[string]DerivedField),
		Governing:     make(map[string]DerivedField),
		GoverningCode: make(map[string]string),
	}
}

// Warn appends a formatted warning to the result.
func (r *DerivationResult) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Skip records that a code produced no value for a field.
func (r *DerivationResult) Skip(codeID, field string) {
	r.SkippedFields = append(r.SkippedFields, codeID+":"+field)
}

// Record stores one derived field under its code and appends the audit entry.
func (r *DerivationResult) Record(codeID, field string, f DerivedField) {
	if r.PerCode[codeID] == nil {
		r.PerCode[codeID] = make(map[string]DerivedField)
	}
	r.PerCode[codeID][field] = f
	r.RulesFired = append(r.RulesFired, RuleFired{
		Code:      codeID,
		Field:     field,
		Reference: f.Reference,
		Value:     f.Render(),
	})
}
