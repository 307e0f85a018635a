package store

import (
	"context"
	"time"

	"github.com/weldvault/qualify-cli/internal/model"
)

// Derivation is one persisted derivation run: the input record, the
// full result, and when it was computed. The engine itself never
// persists; callers save results here for the compliance audit trail.
type Derivation struct {
	ID        string                  `json:"id"`
	FormType  model.FormType          `json:"form_type"`
	Record    model.Record            `json:"record"`
	Result    *model.DerivationResult `json:"result"`
	CreatedAt time.Time               `json:"created_at"`
}

// Filter specifies criteria for listing derivations.
type Filter struct {
	FormType model.FormType `json:"form_type,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// Store defines persistence for derivation audit rows and the
// deployment reference values codes may consult during derivation.
// ReferenceValue satisfies qualcode.Lookup.
type Store interface {
	// Derivations
	SaveDerivation(ctx context.Context, rec model.Record, result *model.DerivationResult) (*Derivation, error)
	GetDerivation(ctx context.Context, id string) (*Derivation, error)
	ListDerivations(ctx context.Context, filter Filter) ([]Derivation, error)

	// Reference values (read path is the engine's Lookup handle)
	SetReferenceValue(ctx context.Context, codeID, table, key, value string) error
	ReferenceValue(ctx context.Context, codeID, table, key string) (string, bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
