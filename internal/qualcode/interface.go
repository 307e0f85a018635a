// Package qualcode defines the strategy interface one welding or brazing
// code implements, the registry that holds the installed codes, and the
// built-in implementations (ASME Section IX, AWS D1.1).
//
// Each code is a stateless plugin: given the actual conditions recorded
// for one test coupon, it derives the range of production conditions the
// welder or brazer is qualified for under that code's own tables. New
// codes attach through the registry without touching existing ones.
package qualcode

import (
	"context"

	"github.com/weldvault/qualify-cli/internal/model"
)

// Lookup is an optional read-only handle to deployment reference data,
// passed through to position derivation. Implementations issue reads
// only; transaction boundaries belong to the caller.
type Lookup interface {
	// ReferenceValue returns the override value stored for
	// (codeID, table, key), or false when none exists.
	ReferenceValue(ctx context.Context, codeID, table, key string) (string, bool, error)
}

// PositionResult is the outcome of position derivation: the qualified
// groove set (possibly the N/A sentinel on a fillet-only test) and the
// qualified fillet set, absent where the code derives none.
type PositionResult struct {
	Groove model.DerivedField
	Fillet *model.DerivedField
}

// Code is the interface each welding/brazing code implements. All five
// derivations are independent: a nil result means "this code derives no
// value for this coupon" and is not an error, while a returned error is
// contained by the orchestrator and never blocks other fields or codes.
type Code interface {
	// ID returns the stable identifier for this code (e.g. "asme_ix").
	ID() string

	// AppliesTo reports whether this code covers the given form type.
	AppliesTo(ft model.FormType) bool

	// Thickness derives the qualified base-metal thickness range from
	// the actual coupon thickness.
	Thickness(rec model.Record, ft model.FormType) (*model.DerivedField, error)

	// Diameter derives the qualified pipe outer-diameter range from the
	// diameter text on the record.
	Diameter(rec model.Record, ft model.FormType) (*model.DerivedField, error)

	// Positions derives the qualified groove and fillet position sets
	// from the tested position. lk may be nil.
	Positions(ctx context.Context, rec model.Record, ft model.FormType, lk Lookup) (*PositionResult, error)

	// Backing derives the backing qualification label from the backing
	// description. Codes that do not regulate backing for the form
	// (e.g. brazing) return nil.
	Backing(rec model.Record, ft model.FormType) (*model.DerivedField, error)

	// Supplemental derives the code-specific extra fields (P/F-number
	// cascades, deposit caps, filler and joint passthroughs). An empty
	// map means nothing applied.
	Supplemental(rec model.Record, ft model.FormType) (map[string]model.DerivedField, error)
}
