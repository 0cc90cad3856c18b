// Package results stores run summaries in SQLite.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/sim"
)

// Summary is one stored run.
type Summary struct {
	RunID       string
	Planner     string
	Completed   bool
	Steps       int
	Retries     int
	Deliveries  int
	TotalReward float64
	Aborted     string
	ElapsedMs   float64
	RecordedAt  time.Time
}

// NewSummary summarises metrics under a fresh run id when runID is empty.
func NewSummary(runID string, m *sim.Metrics) Summary {
	if runID == "" {
		runID = uuid.NewString()
	}
	return Summary{
		RunID:       runID,
		Planner:     m.Planner,
		Completed:   m.Completed,
		Steps:       m.Steps,
		Retries:     m.Retries,
		Deliveries:  m.Deliveries,
		TotalReward: m.TotalReward,
		Aborted:     m.Aborted,
		ElapsedMs:   float64(m.Elapsed().Microseconds()) / 1000,
		RecordedAt:  m.EndTime.UTC(),
	}
}

// SQLiteStore is a run results table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			planner TEXT NOT NULL,
			completed INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			retries INTEGER NOT NULL,
			deliveries INTEGER NOT NULL,
			total_reward REAL NOT NULL,
			aborted TEXT NOT NULL,
			elapsed_ms REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS runs_planner ON runs(planner, recorded_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts a summary. Recording the same run id twice replaces it.
func (s *SQLiteStore) Record(ctx context.Context, sum Summary) error {
	if sum.RunID == "" {
		sum.RunID = uuid.NewString()
	}
	if sum.RecordedAt.IsZero() {
		sum.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
			(run_id, planner, completed, steps, retries, deliveries, total_reward, aborted, elapsed_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Planner, boolToInt(sum.Completed), sum.Steps, sum.Retries, sum.Deliveries,
		sum.TotalReward, sum.Aborted, sum.ElapsedMs, sum.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", sum.RunID, err)
	}
	return nil
}

// List returns stored runs, oldest first. An empty planner lists all runs.
func (s *SQLiteStore) List(ctx context.Context, planner string) ([]Summary, error) {
	q := `SELECT run_id, planner, completed, steps, retries, deliveries, total_reward, aborted, elapsed_ms, recorded_at
		FROM runs`
	var args []any
	if planner != "" {
		q += ` WHERE planner = ?`
		args = append(args, planner)
	}
	q += ` ORDER BY recorded_at, run_id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			completed int
			recorded  string
		)
		if err := rows.Scan(&sum.RunID, &sum.Planner, &completed, &sum.Steps, &sum.Retries, &sum.Deliveries,
			&sum.TotalReward, &sum.Aborted, &sum.ElapsedMs, &recorded); err != nil {
			return nil, err
		}
		sum.Completed = completed != 0
		if sum.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("run %s: recorded_at: %w", sum.RunID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
