package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PlanRecord is one archived compilation result.
type PlanRecord struct {
	// Fingerprint is the plan's content hash (primary key).
	Fingerprint string

	// QueryFingerprint identifies the query document the plan was
	// compiled from.
	QueryFingerprint string

	CompilationID string

	// Seq orders records; callers supply it from their clock.
	Seq int64

	// Plan is the plan's canonical JSON encoding.
	Plan []byte

	Explain         string
	CompilerVersion string
	FormatVersion   string
}

// WritePlan archives rec. Uses ON CONFLICT(fingerprint) DO NOTHING for
// idempotency: it reports false when an identical plan was already
// stored.
func (s *Store) WritePlan(ctx context.Context, rec PlanRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plans
		(fingerprint, query_fingerprint, compilation_id, seq, plan, explain, compiler_version, format_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`,
		rec.Fingerprint,
		rec.QueryFingerprint,
		rec.CompilationID,
		rec.Seq,
		string(rec.Plan),
		rec.Explain,
		rec.CompilerVersion,
		rec.FormatVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write plan: %w", err)
	}
	return n > 0, nil
}

const planColumns = `fingerprint, query_fingerprint, compilation_id, seq, plan, explain, compiler_version, format_version`

// ReadPlan retrieves a single plan by fingerprint.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadPlan(ctx context.Context, fingerprint string) (PlanRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE fingerprint = ?`, fingerprint)
	return scanPlan(row)
}

// ReadPlansForQuery returns every plan compiled from the given query,
// ordered by seq ASC, fingerprint ASC.
func (s *Store) ReadPlansForQuery(ctx context.Context, queryFingerprint string) ([]PlanRecord, error) {
	return s.readPlans(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE query_fingerprint = ?
		ORDER BY seq ASC, fingerprint COLLATE BINARY ASC
	`, queryFingerprint)
}

// ReadAllPlans returns every archived plan with deterministic ordering.
func (s *Store) ReadAllPlans(ctx context.Context) ([]PlanRecord, error) {
	return s.readPlans(ctx, `
		SELECT `+planColumns+`
		FROM plans
		ORDER BY seq ASC, fingerprint COLLATE BINARY ASC
	`)
}

func (s *Store) readPlans(ctx context.Context, query string, args ...any) ([]PlanRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var out []PlanRecord
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	// Return empty slice instead of nil
	if out == nil {
		out = []PlanRecord{}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (PlanRecord, error) {
	var rec PlanRecord
	var planJSON string
	err := row.Scan(
		&rec.Fingerprint,
		&rec.QueryFingerprint,
		&rec.CompilationID,
		&rec.Seq,
		&planJSON,
		&rec.Explain,
		&rec.CompilerVersion,
		&rec.FormatVersion,
	)
	if err == sql.ErrNoRows {
		return PlanRecord{}, err
	}
	if err != nil {
		return PlanRecord{}, fmt.Errorf("scan plan: %w", err)
	}
	rec.Plan = []byte(planJSON)
	return rec, nil
}
