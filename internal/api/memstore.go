package api

import (
	"context"
	"sort"
	"sync"

	"github.com/rlpappan/pvcaptest/adapters/postgres"
	domain "github.com/rlpappan/pvcaptest/domain/captest"
	"github.com/rlpappan/pvcaptest/domain/core"
	apperrors "github.com/rlpappan/pvcaptest/internal/errors"
)

// MemoryStore keeps runs in memory. Used when no DATABASE_URL is configured
// and as the store stand-in for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]*postgres.CapacityRun
	steps map[string][]postgres.FilterStepRow
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:  make(map[string]*postgres.CapacityRun),
		steps: make(map[string][]postgres.FilterStepRow),
	}
}

// InsertRun stores a run and its filter history.
func (m *MemoryStore) InsertRun(_ context.Context, run *postgres.CapacityRun, steps []domain.FilterStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *run
	m.runs[run.ID] = &stored
	rows := make([]postgres.FilterStepRow, len(steps))
	for i, s := range steps {
		rows[i] = postgres.FilterStepRow{
			RunID:     run.ID,
			Seq:       i,
			Tag:       string(s.Tag),
			Method:    s.Method,
			Args:      s.Args,
			Remaining: s.Remaining,
			Removed:   s.Removed,
			At:        s.At.Time(),
		}
	}
	m.steps[run.ID] = rows
	return nil
}

// GetRun fetches one run by id.
func (m *MemoryStore) GetRun(_ context.Context, id core.RunID) (*postgres.CapacityRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id.String()]
	if !ok {
		return nil, apperrors.NotFound("capacity run")
	}
	out := *run
	return &out, nil
}

// GetFilterSteps fetches a run's filter history in recorded order.
func (m *MemoryStore) GetFilterSteps(_ context.Context, id core.RunID) ([]postgres.FilterStepRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.steps[id.String()]
	if !ok {
		return nil, apperrors.NotFound("capacity run")
	}
	out := make([]postgres.FilterStepRow, len(rows))
	copy(out, rows)
	return out, nil
}

// ListRuns returns the most recent runs, newest first.
func (m *MemoryStore) ListRuns(_ context.Context, limit int) ([]postgres.CapacityRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]postgres.CapacityRun, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, *run)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
