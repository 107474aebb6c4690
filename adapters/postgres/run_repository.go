// Package postgres persists capacity-test runs and their filter histories.
// Persistence is optional: the engine itself never touches storage.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	domain "github.com/rlpappan/pvcaptest/domain/captest"
	"github.com/rlpappan/pvcaptest/domain/core"
)

// CapacityRun is the stored form of one capacity-test evaluation.
type CapacityRun struct {
	ID            string    `db:"id" json:"id"`
	Nameplate     float64   `db:"nameplate" json:"nameplate"`
	Tolerance     string    `db:"tolerance" json:"tolerance"`
	POA           float64   `db:"poa" json:"poa"`
	TAmb          float64   `db:"t_amb" json:"t_amb"`
	WVel          float64   `db:"w_vel" json:"w_vel"`
	Expected      float64   `db:"expected" json:"expected"`
	Actual        float64   `db:"actual" json:"actual"`
	CapRatio      float64   `db:"cap_ratio" json:"cap_ratio"`
	Capacity      float64   `db:"capacity" json:"capacity"`
	LowerBound    float64   `db:"lower_bound" json:"lower_bound"`
	UpperBound    float64   `db:"upper_bound" json:"upper_bound"`
	Pass          bool      `db:"pass" json:"pass"`
	UnitCorrected bool      `db:"unit_corrected" json:"unit_corrected"`
	Uncertainty   float64   `db:"uncertainty" json:"uncertainty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// FilterStepRow is the stored form of one filter-history record.
type FilterStepRow struct {
	RunID     string    `db:"run_id" json:"run_id"`
	Seq       int       `db:"seq" json:"seq"`
	Tag       string    `db:"tag" json:"tag"`
	Method    string    `db:"method" json:"method"`
	Args      string    `db:"args" json:"args"`
	Remaining int       `db:"remaining" json:"remaining"`
	Removed   int       `db:"removed" json:"removed"`
	At        time.Time `db:"at" json:"at"`
}

// NewCapacityRun maps a result plus its uncertainty onto the storage row.
func NewCapacityRun(id core.RunID, res *domain.CapacityResult, uncertainty float64) *CapacityRun {
	return &CapacityRun{
		ID:            id.String(),
		Nameplate:     res.Nameplate,
		Tolerance:     res.Tolerance.String(),
		POA:           res.Condition.POA,
		TAmb:          res.Condition.TAmb,
		WVel:          res.Condition.WVel,
		Expected:      res.Expected,
		Actual:        res.Actual,
		CapRatio:      res.CapRatio,
		Capacity:      res.Capacity,
		LowerBound:    res.LowerBound,
		UpperBound:    res.UpperBound,
		Pass:          res.Pass,
		UnitCorrected: res.UnitCorrected,
		Uncertainty:   uncertainty,
		CreatedAt:     res.CreatedAt.Time(),
	}
}

// RunRepository stores capacity runs in Postgres.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a repository over an open connection.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Connect opens a Postgres connection and verifies it.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the run tables when they do not exist yet.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS capacity_runs (
			id             UUID PRIMARY KEY,
			nameplate      DOUBLE PRECISION NOT NULL,
			tolerance      TEXT NOT NULL,
			poa            DOUBLE PRECISION NOT NULL,
			t_amb          DOUBLE PRECISION NOT NULL,
			w_vel          DOUBLE PRECISION NOT NULL,
			expected       DOUBLE PRECISION NOT NULL,
			actual         DOUBLE PRECISION NOT NULL,
			cap_ratio      DOUBLE PRECISION NOT NULL,
			capacity       DOUBLE PRECISION NOT NULL,
			lower_bound    DOUBLE PRECISION NOT NULL,
			upper_bound    DOUBLE PRECISION NOT NULL,
			pass           BOOLEAN NOT NULL,
			unit_corrected BOOLEAN NOT NULL,
			uncertainty    DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS filter_steps (
			run_id    UUID NOT NULL REFERENCES capacity_runs(id) ON DELETE CASCADE,
			seq       INT NOT NULL,
			tag       TEXT NOT NULL,
			method    TEXT NOT NULL,
			args      TEXT NOT NULL,
			remaining INT NOT NULL,
			removed   INT NOT NULL,
			at        TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// InsertRun stores a run and its filter history in one transaction. Step
// sequence numbers preserve the merged das-then-sim ordering.
func (r *RunRepository) InsertRun(ctx context.Context, run *CapacityRun, steps []domain.FilterStep) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const insertRun = `
		INSERT INTO capacity_runs (
			id, nameplate, tolerance, poa, t_amb, w_vel,
			expected, actual, cap_ratio, capacity,
			lower_bound, upper_bound, pass, unit_corrected, uncertainty, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	if _, err := tx.ExecContext(ctx, insertRun,
		run.ID, run.Nameplate, run.Tolerance, run.POA, run.TAmb, run.WVel,
		run.Expected, run.Actual, run.CapRatio, run.Capacity,
		run.LowerBound, run.UpperBound, run.Pass, run.UnitCorrected,
		run.Uncertainty, run.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert capacity run: %w", err)
	}

	const insertStep = `
		INSERT INTO filter_steps (run_id, seq, tag, method, args, remaining, removed, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, step := range steps {
		if _, err := tx.ExecContext(ctx, insertStep,
			run.ID, i, string(step.Tag), step.Method, step.Args,
			step.Remaining, step.Removed, step.At.Time(),
		); err != nil {
			return fmt.Errorf("failed to insert filter step %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun fetches one run by id.
func (r *RunRepository) GetRun(ctx context.Context, id core.RunID) (*CapacityRun, error) {
	var run CapacityRun
	err := r.db.GetContext(ctx, &run,
		`SELECT * FROM capacity_runs WHERE id = $1`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get capacity run %s: %w", id, err)
	}
	return &run, nil
}

// GetFilterSteps fetches a run's filter history in recorded order.
func (r *RunRepository) GetFilterSteps(ctx context.Context, id core.RunID) ([]FilterStepRow, error) {
	var rows []FilterStepRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM filter_steps WHERE run_id = $1 ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get filter steps for %s: %w", id, err)
	}
	return rows, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]CapacityRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []CapacityRun
	err := r.db.SelectContext(ctx, &runs,
		`SELECT * FROM capacity_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list capacity runs: %w", err)
	}
	return runs, nil
}
