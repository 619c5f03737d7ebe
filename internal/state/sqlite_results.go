package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// SaveFailures stores the failure cases of a run in report order.
func (s *SQLiteStore) SaveFailures(runID string, failures []core.FailureCase) error {
	if s.db == nil {
		return errNotOpened
	}
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO failure_cases (run_id, seq, row_index, column_name, check_description, scope, value) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare failure insert: %w", err)
		}
		defer stmt.Close()

		for i, f := range failures {
			var row sql.NullInt64
			if f.HasRow() {
				row = sql.NullInt64{Int64: int64(f.Row()), Valid: true}
			}
			var value sql.NullString
			if !core.IsNull(f.Value) {
				value = sql.NullString{String: core.Format(f.Value), Valid: true}
			}
			if _, err := stmt.Exec(runID, i, row, f.Column, f.Check, f.Scope.String(), value); err != nil {
				return fmt.Errorf("failed to save failure case: %w", err)
			}
		}
		return nil
	})
}

// GetFailures returns the stored failure cases of a run. Values come back
// as their rendered strings.
func (s *SQLiteStore) GetFailures(runID string) ([]core.FailureCase, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(context.Background(),
		`SELECT row_index, column_name, check_description, scope, value FROM failure_cases WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	defer rows.Close()

	var out []core.FailureCase
	for rows.Next() {
		var (
			row   sql.NullInt64
			f     core.FailureCase
			scope string
			value sql.NullString
		)
		if err := rows.Scan(&row, &f.Column, &f.Check, &scope, &value); err != nil {
			return nil, fmt.Errorf("failed to scan failure case: %w", err)
		}
		if row.Valid {
			r := int(row.Int64)
			f.RowIndex = &r
		}
		f.Scope, _ = core.ParseScope(scope)
		if value.Valid {
			f.Value = value.String
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	return out, nil
}

// SaveScores stores the correlation scores of a run.
func (s *SQLiteStore) SaveScores(runID string, scores []core.StoredScore) error {
	if s.db == nil {
		return errNotOpened
	}
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO correlation_scores (run_id, seq, kind, feature, score, threshold, passed) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare score insert: %w", err)
		}
		defer stmt.Close()

		for i, sc := range scores {
			if _, err := stmt.Exec(runID, i, string(sc.Kind), sc.Feature, sc.Score, sc.Threshold, sc.Passed); err != nil {
				return fmt.Errorf("failed to save score: %w", err)
			}
		}
		return nil
	})
}

// GetScores returns the stored correlation scores of a run.
func (s *SQLiteStore) GetScores(runID string) ([]core.StoredScore, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(context.Background(),
		`SELECT kind, feature, score, threshold, passed FROM correlation_scores WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	defer rows.Close()

	var out []core.StoredScore
	for rows.Next() {
		var (
			sc   core.StoredScore
			kind string
		)
		if err := rows.Scan(&kind, &sc.Feature, &sc.Score, &sc.Threshold, &sc.Passed); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		sc.Kind = core.CorrelationKind(kind)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	return out, nil
}

// inTx runs fn in a transaction and commits unless fn fails.
func (s *SQLiteStore) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
