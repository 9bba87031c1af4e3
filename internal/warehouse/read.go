package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrRunNotFound is returned when a run ID is not in the snapshot.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes one stored run.
type RunInfo struct {
	ID          string
	Seed        string
	WindowStart string
	Days        int
	Recipes     []string
	Digest      string
}

// TableCount is the number of rows a run stored in one table.
type TableCount struct {
	Table string
	Rows  int
}

// Tables lists every per-run table in schema order.
var Tables = []string{
	"stores", "products", "customers", "promotions", "loyalty_rules",
	"sales_headers", "sales_line_items", "inventory_snapshots",
	"quarantine", "loyalty_accruals", "coin_entries", "segments",
	"notifications", "inventory_risk", "activity_events",
}

// Runs returns every stored run ordered by ID.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed, window_start, days, recipes, digest
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run's metadata.
func (s *Store) ReadRun(ctx context.Context, runID string) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seed, window_start, days, recipes, digest
		FROM runs
		WHERE id = ?
	`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("read run %s: %w", runID, ErrRunNotFound)
	}
	return r, err
}

// ReadSummary returns the canonical summary JSON stored for a run.
func (s *Store) ReadSummary(ctx context.Context, runID string) ([]byte, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM runs WHERE id = ?`, runID).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read summary %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	return []byte(summary), nil
}

// Counts returns the number of rows a run stored per table, in Tables
// order.
func (s *Store) Counts(ctx context.Context, runID string) ([]TableCount, error) {
	out := make([]TableCount, 0, len(Tables))
	for _, table := range Tables {
		var n int
		// table comes from the fixed Tables list, never from input
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE run_id = ?", table)
		if err := s.db.QueryRowContext(ctx, query, runID).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out = append(out, TableCount{Table: table, Rows: n})
	}
	return out, nil
}

// QuarantineCount is the number of rows of one table failing one reason.
type QuarantineCount struct {
	Table  string
	Reason string
	Rows   int
}

// QuarantineCounts groups a run's quarantine rows by table and reason.
func (s *Store) QuarantineCounts(ctx context.Context, runID string) ([]QuarantineCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, reason, COUNT(*)
		FROM quarantine
		WHERE run_id = ?
		GROUP BY table_name, reason
		ORDER BY table_name COLLATE BINARY ASC, reason COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query quarantine: %w", err)
	}
	defer rows.Close()

	out := []QuarantineCount{}
	for rows.Next() {
		var q QuarantineCount
		if err := rows.Scan(&q.Table, &q.Reason, &q.Rows); err != nil {
			return nil, fmt.Errorf("scan quarantine: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quarantine: %w", err)
	}
	return out, nil
}

// CustomerBalance reads a customer's balance after the last accrual of a
// run. Accruals are inserted in posting order, so the highest rowid is the
// latest. ok is false when the run posted nothing for the customer.
func (s *Store) CustomerBalance(ctx context.Context, runID, customerID string) (balance int64, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT balance
		FROM loyalty_accruals
		WHERE run_id = ? AND customer_id = ?
		ORDER BY rowid DESC
		LIMIT 1
	`, runID, customerID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read balance: %w", err)
	}
	return balance, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunInfo, error) {
	var (
		r       RunInfo
		recipes string
	)
	if err := row.Scan(&r.ID, &r.Seed, &r.WindowStart, &r.Days, &recipes, &r.Digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunInfo{}, err
		}
		return RunInfo{}, fmt.Errorf("scan run: %w", err)
	}
	if recipes != "" {
		r.Recipes = strings.Split(recipes, ",")
	}
	return r, nil
}
