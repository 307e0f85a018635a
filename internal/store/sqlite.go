package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/weldvault/qualify-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS derivations (
	id         TEXT PRIMARY KEY,
	form_type  TEXT NOT NULL,
	record     TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reference_values (
	code_id TEXT NOT NULL,
	tbl     TEXT NOT NULL,
	key     TEXT NOT NULL,
	value   TEXT NOT NULL,
	PRIMARY KEY (code_id, tbl, key)
);

CREATE INDEX IF NOT EXISTS idx_derivations_form_type ON derivations(form_type);
CREATE INDEX IF NOT EXISTS idx_derivations_created_at ON derivations(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveDerivation(ctx context.Context, rec model.Record, result *model.DerivationResult) (*Derivation, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal record")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO derivations (id, form_type, record, result, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(result.FormType), string(recordJSON), string(resultJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert derivation")
	}

	return &Derivation{
		ID:        id,
		FormType:  result.FormType,
		Record:    rec,
		Result:    result,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetDerivation(ctx context.Context, id string) (*Derivation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, form_type, record, result, created_at FROM derivations WHERE id = ?`,
		id,
	)
	return scanDerivation(row)
}

func (s *SQLiteStore) ListDerivations(ctx context.Context, filter Filter) ([]Derivation, error) {
	query := `SELECT id, form_type, record, result, created_at FROM derivations WHERE 1=1`
	var args []any

	if filter.FormType != "" {
		query += ` AND form_type = ?`
		args = append(args, string(filter.FormType))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list derivations")
	}
	defer rows.Close()

	var out []Derivation
	for rows.Next() {
		d, err := scanDerivation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list derivations iterate")
}

func (s *SQLiteStore) SetReferenceValue(ctx context.Context, codeID, table, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reference_values (code_id, tbl, key, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT (code_id, tbl, key) DO UPDATE SET value = excluded.value`,
		codeID, table, key, value,
	)
	return eris.Wrap(err, "sqlite: set reference value")
}

// ReferenceValue implements qualcode.Lookup: a read-only point lookup
// into the reference_values table. Absence is not an error.
func (s *SQLiteStore) ReferenceValue(ctx context.Context, codeID, table, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM reference_values WHERE code_id = ? AND tbl = ? AND key = ?`,
		codeID, table, key,
	)
	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: reference value")
	}
	return value, true, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanDerivation(row scannable) (*Derivation, error) {
	var d Derivation
	var formType, recordJSON, resultJSON string

	err := row.Scan(&d.ID, &formType, &recordJSON, &resultJSON, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("derivation not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan derivation")
	}

	d.FormType = model.FormType(formType)
	if err := json.Unmarshal([]byte(recordJSON), &d.Record); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal record")
	}
	d.Result = &model.DerivationResult{}
	if err := json.Unmarshal([]byte(resultJSON), d.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &d, nil
}
