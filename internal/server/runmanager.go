package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/cadence/internal/engine"
	"github.com/meltforce/cadence/internal/models"
)

// RunManager owns the live runners, one per active run. When a run
// finishes (completed or stopped) its summary is persisted and the
// runner is dropped from the active set.
type RunManager struct {
	store     RunStore
	log       *slog.Logger
	countdown int
	announcer func() engine.Announcer
	opts      []engine.RunnerOption

	mu   sync.Mutex
	runs map[uuid.UUID]*engine.Runner
}

// RunStore is the slice of storage the manager needs.
type RunStore interface {
	InsertRunRecord(ctx context.Context, rec models.RunRecord) (bool, error)
}

// NewRunManager builds a manager. announcer is invoked once per run so
// each runner gets its own audio channel; countdownSeconds applies to
// every run started through the manager.
func NewRunManager(store RunStore, log *slog.Logger, countdownSeconds int, announcer func() engine.Announcer, opts ...engine.RunnerOption) *RunManager {
	return &RunManager{
		store:     store,
		log:       log,
		countdown: countdownSeconds,
		announcer: announcer,
		opts:      opts,
		runs:      make(map[uuid.UUID]*engine.Runner),
	}
}

// Start launches a run for plan and returns its runner.
func (m *RunManager) Start(plan *models.WorkoutPlan) *engine.Runner {
	var r *engine.Runner
	opts := append([]engine.RunnerOption{
		engine.WithOnFinished(func(snap models.Snapshot, completed bool) {
			m.finish(r, snap, completed)
		}),
	}, m.opts...)

	r = engine.NewRunner(plan, m.announcer(), m.countdown, m.log, opts...)

	m.mu.Lock()
	m.runs[r.ID] = r
	m.mu.Unlock()

	r.Start()
	m.log.Info("run started", "run_id", r.ID, "plan", plan.Name)
	return r
}

func (m *RunManager) finish(r *engine.Runner, snap models.Snapshot, completed bool) {
	m.mu.Lock()
	delete(m.runs, r.ID)
	m.mu.Unlock()

	rec := models.RunRecord{
		ID:             r.ID,
		PlanID:         r.Plan.ID,
		PlanName:       r.Plan.Name,
		StartedAt:      r.StartedAt(),
		EndedAt:        time.Now(),
		ElapsedSeconds: snap.ElapsedSeconds,
		Completed:      completed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.store.InsertRunRecord(ctx, rec); err != nil {
		m.log.Error("persisting run record", "run_id", r.ID, "error", err)
	}
	m.log.Info("run finished", "run_id", r.ID, "completed", completed, "elapsed_sec", snap.ElapsedSeconds)
}

// Get returns the runner for id, if still active.
func (m *RunManager) Get(id uuid.UUID) (*engine.Runner, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	return r, ok
}

// ActiveRun pairs a run ID with its current snapshot.
type ActiveRun struct {
	ID       uuid.UUID       `json:"id"`
	PlanName string          `json:"plan_name"`
	Snapshot models.Snapshot `json:"snapshot"`
}

// Active lists all live runs.
func (m *RunManager) Active() []ActiveRun {
	m.mu.Lock()
	runners := make([]*engine.Runner, 0, len(m.runs))
	for _, r := range m.runs {
		runners = append(runners, r)
	}
	m.mu.Unlock()

	out := make([]ActiveRun, 0, len(runners))
	for _, r := range runners {
		out = append(out, ActiveRun{ID: r.ID, PlanName: r.Plan.Name, Snapshot: r.Snapshot()})
	}
	return out
}

// StopAll halts every live run; used at server shutdown.
func (m *RunManager) StopAll() {
	m.mu.Lock()
	runners := make([]*engine.Runner, 0, len(m.runs))
	for _, r := range m.runs {
		runners = append(runners, r)
	}
	m.mu.Unlock()

	for _, r := range runners {
		r.Stop()
	}
}
