package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/cadence/internal/models"
)

// tickPeriod is the live tick rate of a run.
const tickPeriod = time.Second

// Runner owns the 1 Hz tick loop for one run and the background
// lifecycle hooks. The machine itself never blocks on audio: ticking
// only begins once the countdown's go-signal has fired, so the spoken
// "Go!" and the first tick cannot drift apart.
type Runner struct {
	ID      uuid.UUID
	Plan    *models.WorkoutPlan
	machine *Machine
	log     *slog.Logger

	clock Clock

	mu           sync.Mutex
	stopTick     chan struct{}
	ticker       Ticker
	tickerLive   bool
	stopped      bool
	startedAt    time.Time
	backgroundAt time.Time
	finished     bool

	// onFinished fires once, when the run reaches completed or is
	// stopped. Used by the run manager to persist a RunRecord.
	onFinished func(snap models.Snapshot, completed bool)
}

// RunnerOption adjusts runner construction.
type RunnerOption func(*Runner)

// WithClock substitutes the time source. Tests use a FakeClock and
// advance it explicitly instead of sleeping wall-clock seconds.
func WithClock(c Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// WithOnFinished registers the completion hook.
func WithOnFinished(f func(snap models.Snapshot, completed bool)) RunnerOption {
	return func(r *Runner) { r.onFinished = f }
}

// NewRunner builds a runner around a fresh machine for plan.
func NewRunner(plan *models.WorkoutPlan, announcer Announcer, countdownSeconds int, log *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		ID:      uuid.New(),
		Plan:    plan.Clone(),
		machine: NewMachine(plan, announcer, countdownSeconds),
		log:     log,
		clock:   NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins the countdown. Ticking starts when the go-signal fires.
// A plan the machine refuses (it degrades straight to completed) never
// produces a go-signal, so the runner finishes immediately instead of
// lingering unfinishable.
func (r *Runner) Start() {
	r.mu.Lock()
	r.startedAt = r.clock.Now()
	r.mu.Unlock()
	r.machine.Start(r.startTicking)

	if !r.ticking() && r.machine.Snapshot().Phase == models.PhaseCompleted {
		r.log.Warn("run rejected at start", "run_id", r.ID, "plan", r.Plan.Name)
		r.finish(false)
	}
}

func (r *Runner) ticking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickerLive
}

func (r *Runner) startTicking() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.tickerLive {
		return
	}
	r.tickerLive = true
	stop := make(chan struct{})
	r.stopTick = stop

	ticker := r.clock.NewTicker(tickPeriod)
	r.ticker = ticker
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				r.machine.Tick()
				if r.machine.Snapshot().Phase == models.PhaseCompleted {
					r.mu.Lock()
					r.tickerLive = false
					r.mu.Unlock()
					r.finish(true)
					return
				}
			}
		}
	}()
}

// stopTicking halts the tick goroutine if one is live. Callers hold no
// locks the tick loop needs, so this never deadlocks with an in-flight
// Tick.
func (r *Runner) stopTicking() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tickerLive {
		close(r.stopTick)
		// Stop the ticker here, not just in the goroutine: a fake
		// clock advanced right after this must not queue stale ticks.
		r.ticker.Stop()
		r.tickerLive = false
	}
}

// finish fires the completion hook exactly once.
func (r *Runner) finish(completed bool) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	hook := r.onFinished
	r.mu.Unlock()

	if hook != nil {
		hook(r.machine.Snapshot(), completed)
	}
}

// Pause suspends ticking; the phase and remaining time are preserved.
func (r *Runner) Pause() { r.machine.Pause() }

// Resume restores the phase saved by Pause.
func (r *Runner) Resume() { r.machine.Resume() }

// Skip force-advances the current phase.
func (r *Runner) Skip() {
	r.machine.Skip()
	if r.machine.Snapshot().Phase == models.PhaseCompleted {
		r.stopTicking()
		r.finish(true)
	}
}

// Stop cancels the ticker, silences the announcer and resets the
// machine. Safe to call more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.stopTicking()
	r.finish(false)
	r.machine.Stop()
}

// EnterBackground records the suspension timestamp and halts live
// ticking; the elapsed interval is applied on EnterForeground.
func (r *Runner) EnterBackground() {
	r.mu.Lock()
	r.backgroundAt = r.clock.Now()
	r.mu.Unlock()
	r.stopTicking()
}

// EnterForeground reconciles the backgrounded interval in one atomic
// step and resumes live ticking if the run is still going. A run that
// was suspended mid-countdown restarts the countdown instead: the
// countdown is voice-driven and cannot be fast-forwarded.
func (r *Runner) EnterForeground() {
	r.mu.Lock()
	at := r.backgroundAt
	r.backgroundAt = time.Time{}
	stopped := r.stopped
	r.mu.Unlock()
	if stopped || at.IsZero() {
		return
	}

	elapsed := int(r.clock.Since(at) / time.Second)
	snap := r.machine.Snapshot()

	if snap.Phase == models.PhaseCountdown {
		r.machine.Start(r.startTicking)
		return
	}

	r.machine.Reconcile(elapsed)
	snap = r.machine.Snapshot()
	switch {
	case snap.Phase == models.PhaseCompleted:
		r.finish(true)
	case snap.Phase.Work() || snap.Paused:
		// A paused run keeps its (no-op) ticker so a later Resume
		// picks up live ticking without extra bookkeeping.
		r.startTicking()
	}
}

// Snapshot exposes the machine state for presentation layers.
func (r *Runner) Snapshot() models.Snapshot { return r.machine.Snapshot() }

// StartedAt reports when Start was called.
func (r *Runner) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

// Finished reports whether the completion hook has fired.
func (r *Runner) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}
