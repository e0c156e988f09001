// Package sqlite persists rollup runs so serve mode and downstream tools
// can read results back without recomputing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mchastel/referendum-rollup/internal/domain"
	"github.com/mchastel/referendum-rollup/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       INTEGER PRIMARY KEY AUTOINCREMENT,
	scope        TEXT NOT NULL,
	ballot_rows  INTEGER NOT NULL,
	rows_joined  INTEGER NOT NULL,
	orphans      INTEGER NOT NULL,
	malformed    INTEGER NOT NULL,
	out_of_scope INTEGER NOT NULL,
	started_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS region_results (
	run_id      INTEGER NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	code        TEXT NOT NULL,
	name        TEXT NOT NULL,
	registered  INTEGER NOT NULL,
	abstentions INTEGER NOT NULL,
	null_votes  INTEGER NOT NULL,
	choice_a    INTEGER NOT NULL,
	choice_b    INTEGER NOT NULL,
	ratio       REAL,
	computed_at TEXT NOT NULL,
	PRIMARY KEY (run_id, code)
);
`

// ErrNoRuns is returned by LatestResults when the store is empty.
var ErrNoRuns = errors.New("no runs stored")

// Store wraps a SQLite database holding rollup runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a completed run and its per-region results in one
// transaction, returning the run id.
func (s *Store) SaveRun(ctx context.Context, report pipeline.RunReport, results []domain.RegionResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	outOfScope := 0
	for _, n := range report.Stats.OutOfScope {
		outOfScope += n
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (scope, ballot_rows, rows_joined, orphans, malformed, out_of_scope, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(report.Scope), report.BallotRows, report.Stats.Joined,
		report.Stats.Orphans, report.Stats.Malformed, outOfScope,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, r := range results {
		var ratio sql.NullFloat64
		if r.Ratio != nil {
			ratio = sql.NullFloat64{Float64: *r.Ratio, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO region_results (run_id, code, name, registered, abstentions, null_votes, choice_a, choice_b, ratio, computed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, r.Code, r.Name, r.Registered, r.Abstentions, r.NullVotes,
			r.ChoiceA, r.ChoiceB, ratio, r.ComputedAt.UTC().Format(time.RFC3339)); err != nil {
			return 0, fmt.Errorf("insert result for region %s: %w", r.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// LatestResults returns the region results of the most recent run, sorted
// by region code.
func (s *Store) LatestResults(ctx context.Context) ([]domain.RegionResult, error) {
	var runID int64
	err := s.db.QueryRowContext(ctx, "SELECT run_id FROM runs ORDER BY run_id DESC LIMIT 1").Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return s.ResultsForRun(ctx, runID)
}

// ResultsForRun returns the region results stored for one run.
func (s *Store) ResultsForRun(ctx context.Context, runID int64) ([]domain.RegionResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, registered, abstentions, null_votes, choice_a, choice_b, ratio, computed_at
		FROM region_results WHERE run_id = ? ORDER BY code
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []domain.RegionResult
	for rows.Next() {
		var (
			r          domain.RegionResult
			ratio      sql.NullFloat64
			computedAt string
		)
		if err := rows.Scan(&r.Code, &r.Name, &r.Registered, &r.Abstentions,
			&r.NullVotes, &r.ChoiceA, &r.ChoiceB, &ratio, &computedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if ratio.Valid {
			v := ratio.Float64
			r.Ratio = &v
		}
		if t, err := time.Parse(time.RFC3339, computedAt); err == nil {
			r.ComputedAt = t
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
