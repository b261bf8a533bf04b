package engine

import (
	"sync"

	"github.com/meltforce/cadence/internal/models"
)

// DefaultCountdownSeconds is the lead-in before the first interval.
const DefaultCountdownSeconds = 3

// upcomingCueAt is the remaining-seconds mark at which the
// "interval about to end" cue fires.
const upcomingCueAt = 3

// Machine is the interval execution state machine. One instance drives
// one run. All mutators are synchronous and mutex-guarded; the 1 Hz
// tick source and user commands (pause/resume/skip/stop) are serialized
// on the same lock, so no two transitions ever interleave.
//
// The same transition function serves live ticking and background
// reconciliation; the silent flag is the only difference between them.
type Machine struct {
	mu        sync.Mutex
	plan      *models.WorkoutPlan
	announcer Announcer
	countdown int

	phase         models.Phase
	exerciseIdx   int
	round         int
	timeRemaining int
	phaseTotal    int
	elapsed       int
	paused        bool
	savedPhase    models.Phase
	cueFired      bool

	// generation invalidates countdown callbacks that outlive a Stop.
	generation uint64
}

// NewMachine builds a machine for one run of plan. The plan is
// deep-copied: edits to the caller's copy never reach an active run.
func NewMachine(plan *models.WorkoutPlan, announcer Announcer, countdownSeconds int) *Machine {
	if announcer == nil {
		announcer = NopAnnouncer{}
	}
	if countdownSeconds <= 0 {
		countdownSeconds = DefaultCountdownSeconds
	}
	return &Machine{
		plan:      plan.Clone(),
		announcer: announcer,
		countdown: countdownSeconds,
		phase:     models.PhaseReady,
		round:     1,
	}
}

// Start resets the machine and begins the countdown. The transition
// into the first working phase happens when the announcer signals that
// the terminal countdown word has started; onRunning (may be nil) is
// invoked right after that transition, outside the machine lock, and is
// the point at which the caller should begin ticking.
//
// An invalid plan degrades to completed instead of erroring: a stuck
// timer is worse than a silently finished one.
func (m *Machine) Start(onRunning func()) {
	m.mu.Lock()
	m.exerciseIdx = 0
	m.round = 1
	m.elapsed = 0
	m.paused = false
	m.cueFired = false
	m.generation++
	gen := m.generation

	if err := m.plan.Validate(); err != nil {
		m.phase = models.PhaseCompleted
		m.timeRemaining = 0
		m.phaseTotal = 0
		m.mu.Unlock()
		return
	}

	m.phase = models.PhaseCountdown
	m.timeRemaining = m.countdown
	m.phaseTotal = m.countdown
	label := m.plan.Exercises[0].Name
	m.mu.Unlock()

	// Announce outside the lock: a disabled announcer fires onGo
	// synchronously, and onGo needs the lock.
	m.announcer.Stop()
	m.announcer.AnnounceCountdown(label, func() {
		if m.beginWork(gen) && onRunning != nil {
			onRunning()
		}
	})
}

// beginWork moves countdown -> warmup or first running phase. Returns
// false if the run was stopped or restarted while audio was in flight.
func (m *Machine) beginWork(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.phase != models.PhaseCountdown {
		return false
	}
	if m.plan.WarmupSeconds > 0 {
		m.enterPhase(models.PhaseWarmup, m.plan.WarmupSeconds)
	} else {
		m.enterPhase(models.PhaseRunning, m.plan.Exercises[0].DurationSeconds)
	}
	return true
}

// Tick advances the clock by one second. No-op while paused or outside
// a ticking phase. At the upcoming-cue mark it fires exactly one
// transition warning for the phase; at zero it advances. A phase shorter
// than the mark cues on its first tick rather than never.
func (m *Machine) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused || !m.phase.Work() {
		return
	}
	if m.timeRemaining > 0 {
		m.timeRemaining--
		m.elapsed++
	}
	if m.timeRemaining > 0 && m.timeRemaining <= upcomingCueAt && !m.cueFired && m.phase != models.PhaseWarmup {
		m.cueFired = true
		if m.phase == models.PhaseRunning {
			m.announcer.AnnounceUpcoming(WorkEnding)
		} else {
			m.announcer.AnnounceUpcoming(RestEnding)
		}
	}
	if m.timeRemaining == 0 {
		m.advance(false)
	}
}

// Pause is legal from the timed phases only; anywhere else it is a
// no-op, because double-taps from a UI are expected, not errors.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused || !m.phase.Work() {
		return
	}
	m.savedPhase = m.phase
	m.phase = models.PhasePaused
	m.paused = true
}

// Resume restores the phase saved by Pause. No-op if not paused.
func (m *Machine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.paused {
		return
	}
	m.phase = m.savedPhase
	m.paused = false
}

// Skip force-advances as if the current phase ran out, cutting off any
// in-flight speech first. The upcoming cue for the phase is suppressed.
func (m *Machine) Skip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused || !m.phase.Work() {
		return
	}
	m.cueFired = true
	m.announcer.Stop()
	m.timeRemaining = 0
	m.advance(false)
}

// Stop resets to the initial state and silences the announcer. Stale
// countdown callbacks are invalidated via the generation counter.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.phase = models.PhaseReady
	m.exerciseIdx = 0
	m.round = 1
	m.timeRemaining = 0
	m.phaseTotal = 0
	m.elapsed = 0
	m.paused = false
	m.cueFired = false
	m.announcer.Stop()
}

// advance applies one row of the phase transition table. When silent,
// no bells or announcements fire; the reconciler uses this to fast-
// forward through backgrounded time with only the final state visible.
//
// A configured rest of zero seconds elides the rest phase entirely
// rather than entering and immediately leaving it, so each transition
// rings exactly one bell.
func (m *Machine) advance(silent bool) {
	switch m.phase {
	case models.PhaseWarmup:
		m.bell(silent)
		m.enterPhase(models.PhaseRunning, m.currentDuration())

	case models.PhaseRunning:
		next, rest, restPhase := m.afterWork()
		switch {
		case next == nil:
			m.complete(silent)
		case rest > 0:
			m.bell(silent)
			m.enterPhase(restPhase, rest)
		default:
			m.bell(silent)
			m.exerciseIdx, m.round = next.idx, next.round
			m.enterPhase(models.PhaseRunning, m.currentDuration())
		}

	case models.PhaseResting, models.PhaseRoundRest:
		m.bell(silent)
		next := m.afterRest()
		m.exerciseIdx, m.round = next.idx, next.round
		m.enterPhase(models.PhaseRunning, m.currentDuration())
	}
}

type position struct {
	idx   int
	round int
}

// afterWork computes what follows the current work interval: the next
// position (nil when the run is over), the applicable rest duration and
// its phase.
func (m *Machine) afterWork() (*position, int, models.Phase) {
	n := len(m.plan.Exercises)
	switch m.plan.Mode {
	case models.ModeRoundRobin:
		if m.exerciseIdx < n-1 {
			return &position{m.exerciseIdx + 1, m.round}, m.plan.RestBetweenExercisesSecs, models.PhaseResting
		}
		if m.round < m.plan.Rounds {
			return &position{0, m.round + 1}, m.plan.RestBetweenRoundsSecs, models.PhaseRoundRest
		}
		return nil, 0, models.PhaseCompleted

	default: // sequential
		if m.round < m.plan.Rounds {
			return &position{m.exerciseIdx, m.round + 1}, m.plan.RestBetweenRoundsSecs, models.PhaseRoundRest
		}
		if m.exerciseIdx < n-1 {
			return &position{m.exerciseIdx + 1, 1}, m.plan.RestBetweenExercisesSecs, models.PhaseResting
		}
		return nil, 0, models.PhaseCompleted
	}
}

// afterRest recomputes the position a rest phase was leading to. The
// rest phase carries no pending state: the destination is derivable
// from the mode and the position the rest was entered from.
func (m *Machine) afterRest() position {
	if m.phase == models.PhaseRoundRest {
		if m.plan.Mode == models.ModeRoundRobin {
			return position{0, m.round + 1}
		}
		return position{m.exerciseIdx, m.round + 1}
	}
	if m.plan.Mode == models.ModeRoundRobin {
		return position{m.exerciseIdx + 1, m.round}
	}
	return position{m.exerciseIdx + 1, 1}
}

func (m *Machine) enterPhase(p models.Phase, seconds int) {
	m.phase = p
	m.timeRemaining = seconds
	m.phaseTotal = seconds
	m.cueFired = false
}

func (m *Machine) complete(silent bool) {
	m.phase = models.PhaseCompleted
	m.timeRemaining = 0
	m.phaseTotal = 0
	if !silent {
		m.announcer.AnnounceComplete()
	}
}

func (m *Machine) bell(silent bool) {
	if !silent {
		m.announcer.PlayBell()
	}
}

func (m *Machine) currentDuration() int {
	return m.plan.Exercises[m.exerciseIdx].DurationSeconds
}

// Snapshot returns a value copy of the observable state.
func (m *Machine) Snapshot() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := models.Snapshot{
		Phase:                m.phase,
		ExerciseIndex:        m.exerciseIdx,
		Round:                m.round,
		TotalRounds:          m.plan.Rounds,
		TimeRemainingSeconds: m.timeRemaining,
		ElapsedSeconds:       m.elapsed,
		Paused:               m.paused,
		WorkoutProgress:      m.workoutProgress(),
		ExerciseProgress:     m.exerciseProgress(),
	}
	if m.exerciseIdx < len(m.plan.Exercises) {
		s.ExerciseName = m.plan.Exercises[m.exerciseIdx].Name
	}
	return s
}

// workoutProgress is completed work units over total work units.
// Exactly 1.0 once the run has completed.
func (m *Machine) workoutProgress() float64 {
	if m.phase == models.PhaseCompleted {
		return 1
	}
	n := len(m.plan.Exercises)
	total := n * m.plan.Rounds
	if total == 0 {
		return 0
	}
	var units int
	if m.plan.Mode == models.ModeRoundRobin {
		units = (m.round-1)*n + m.exerciseIdx
	} else {
		units = m.exerciseIdx*m.plan.Rounds + (m.round - 1)
	}
	return clamp01(float64(units) / float64(total))
}

// exerciseProgress is the remaining fraction of the current phase.
func (m *Machine) exerciseProgress() float64 {
	if m.phaseTotal == 0 {
		return 0
	}
	return clamp01(float64(m.timeRemaining) / float64(m.phaseTotal))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
