package engine

import (
	"sync"
	"testing"

	"github.com/meltforce/cadence/internal/models"
)

// recordingAnnouncer captures every cue for assertions. With manualGo
// set, countdown go-signals are captured instead of fired, so tests can
// model audio that is still in flight.
type recordingAnnouncer struct {
	mu       sync.Mutex
	manualGo bool
	pendGo   []func()
	labels   []string
	upcoming []UpcomingKind
	bells    int
	complete int
	stops    int
}

func (a *recordingAnnouncer) AnnounceCountdown(label string, onGo func()) {
	a.mu.Lock()
	a.labels = append(a.labels, label)
	manual := a.manualGo
	if manual {
		a.pendGo = append(a.pendGo, onGo)
	}
	a.mu.Unlock()
	if !manual && onGo != nil {
		onGo()
	}
}

func (a *recordingAnnouncer) AnnounceUpcoming(kind UpcomingKind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.upcoming = append(a.upcoming, kind)
}

func (a *recordingAnnouncer) PlayBell() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bells++
}

func (a *recordingAnnouncer) AnnounceComplete() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.complete++
}

func (a *recordingAnnouncer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
}

func (a *recordingAnnouncer) fireGo(t *testing.T) {
	t.Helper()
	a.mu.Lock()
	if len(a.pendGo) == 0 {
		a.mu.Unlock()
		t.Fatal("no pending go-signal to fire")
	}
	onGo := a.pendGo[len(a.pendGo)-1]
	a.pendGo = a.pendGo[:len(a.pendGo)-1]
	a.mu.Unlock()
	onGo()
}

func twoExercisePlan() *models.WorkoutPlan {
	return &models.WorkoutPlan{
		Name: "Push Day",
		Exercises: []models.PlannedExercise{
			{Name: "Push-ups", DurationSeconds: 10},
			{Name: "Squats", DurationSeconds: 10},
		},
		Rounds: 1,
		Mode:   models.ModeSequential,
	}
}

func tickN(m *Machine, n int) {
	for i := 0; i < n; i++ {
		m.Tick()
	}
}

// TestStartEntersCountdown verifies the machine waits in countdown
// until the announcer's go-signal fires.
func TestStartEntersCountdown(t *testing.T) {
	rec := &recordingAnnouncer{manualGo: true}
	m := NewMachine(twoExercisePlan(), rec, 3)
	m.Start(nil)

	snap := m.Snapshot()
	if snap.Phase != models.PhaseCountdown {
		t.Fatalf("phase = %s, want countdown", snap.Phase)
	}
	if snap.TimeRemainingSeconds != 3 {
		t.Errorf("time remaining = %d, want 3", snap.TimeRemainingSeconds)
	}
	if len(rec.labels) != 1 || rec.labels[0] != "Push-ups" {
		t.Errorf("countdown labels = %v, want [Push-ups]", rec.labels)
	}

	// The go-signal has not fired: ticking must not move the machine.
	tickN(m, 5)
	if got := m.Snapshot().Phase; got != models.PhaseCountdown {
		t.Fatalf("phase after premature ticks = %s, want countdown", got)
	}

	rec.fireGo(t)
	snap = m.Snapshot()
	if snap.Phase != models.PhaseRunning {
		t.Fatalf("phase after go = %s, want running", snap.Phase)
	}
	if snap.TimeRemainingSeconds != 10 {
		t.Errorf("time remaining = %d, want 10", snap.TimeRemainingSeconds)
	}
}

// TestStartDisabledAnnouncerIsImmediate verifies that with announcements
// disabled the countdown completes synchronously inside Start.
func TestStartDisabledAnnouncerIsImmediate(t *testing.T) {
	m := NewMachine(twoExercisePlan(), NopAnnouncer{}, 3)
	ran := false
	m.Start(func() { ran = true })

	if got := m.Snapshot().Phase; got != models.PhaseRunning {
		t.Fatalf("phase = %s, want running", got)
	}
	if !ran {
		t.Error("onRunning was not invoked")
	}
}

// TestStartEmptyPlanCompletes verifies the degraded-but-safe policy: an
// invalid plan lands in completed instead of erroring or sticking.
func TestStartEmptyPlanCompletes(t *testing.T) {
	m := NewMachine(&models.WorkoutPlan{Name: "empty", Rounds: 1, Mode: models.ModeSequential}, NopAnnouncer{}, 3)
	m.Start(nil)

	snap := m.Snapshot()
	if snap.Phase != models.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", snap.Phase)
	}
	if snap.WorkoutProgress != 1 {
		t.Errorf("workout progress = %v, want 1", snap.WorkoutProgress)
	}
}

// TestWarmupPrecedesFirstInterval verifies the optional warmup phase
// runs between the countdown and the first exercise.
func TestWarmupPrecedesFirstInterval(t *testing.T) {
	plan := twoExercisePlan()
	plan.WarmupSeconds = 5
	rec := &recordingAnnouncer{}
	m := NewMachine(plan, rec, 3)
	m.Start(nil)

	if got := m.Snapshot().Phase; got != models.PhaseWarmup {
		t.Fatalf("phase = %s, want warmup", got)
	}
	tickN(m, 5)
	snap := m.Snapshot()
	if snap.Phase != models.PhaseRunning {
		t.Fatalf("phase after warmup = %s, want running", snap.Phase)
	}
	if snap.ExerciseIndex != 0 {
		t.Errorf("exercise index = %d, want 0", snap.ExerciseIndex)
	}
	if rec.bells != 1 {
		t.Errorf("bells = %d, want 1", rec.bells)
	}
}

// TestUpcomingCueFiresOncePerPhase verifies the 3-seconds-remaining cue
// is idempotent within a phase.
func TestUpcomingCueFiresOncePerPhase(t *testing.T) {
	rec := &recordingAnnouncer{}
	m := NewMachine(twoExercisePlan(), rec, 3)
	m.Start(nil)

	tickN(m, 7) // 10 -> 3
	if len(rec.upcoming) != 1 || rec.upcoming[0] != WorkEnding {
		t.Fatalf("upcoming cues = %v, want [work_ending]", rec.upcoming)
	}
	tickN(m, 2) // 3 -> 1, no second cue
	if len(rec.upcoming) != 1 {
		t.Errorf("upcoming cues = %v, want exactly one", rec.upcoming)
	}
}

// TestUpcomingCueShortPhase verifies a phase no longer than the cue mark
// still gets its warning, once, on the first tick.
func TestUpcomingCueShortPhase(t *testing.T) {
	plan := twoExercisePlan()
	plan.RestBetweenExercisesSecs = 3
	rec := &recordingAnnouncer{}
	m := NewMachine(plan, rec, 3)
	m.Start(nil)

	tickN(m, 10) // exercise A done, now resting with 3 remaining
	if got := m.Snapshot().Phase; got != models.PhaseResting {
		t.Fatalf("phase = %s, want resting", got)
	}

	m.Tick() // 3 -> 2: below the mark from the start, cue fires now
	want := []UpcomingKind{WorkEnding, RestEnding}
	if len(rec.upcoming) != 2 || rec.upcoming[1] != RestEnding {
		t.Fatalf("upcoming cues = %v, want %v", rec.upcoming, want)
	}
	m.Tick() // 2 -> 1, no repeat
	if len(rec.upcoming) != 2 {
		t.Errorf("upcoming cues = %v, want exactly two", rec.upcoming)
	}
}

// TestSequentialTransitions walks a 2-exercise, 2-round sequential plan
// through round rest and exercise rest.
func TestSequentialTransitions(t *testing.T) {
	plan := &models.WorkoutPlan{
		Name: "seq",
		Exercises: []models.PlannedExercise{
			{Name: "A", DurationSeconds: 4},
			{Name: "B", DurationSeconds: 4},
		},
		Rounds:                   2,
		RestBetweenExercisesSecs: 2,
		RestBetweenRoundsSecs:    3,
		Mode:                     models.ModeSequential,
	}
	m := NewMachine(plan, NopAnnouncer{}, 3)
	m.Start(nil)

	// A round 1 -> round rest.
	tickN(m, 4)
	snap := m.Snapshot()
	if snap.Phase != models.PhaseRoundRest || snap.TimeRemainingSeconds != 3 {
		t.Fatalf("after A r1: phase=%s remaining=%d, want round_rest/3", snap.Phase, snap.TimeRemainingSeconds)
	}

	// Round rest -> A round 2.
	tickN(m, 3)
	snap = m.Snapshot()
	if snap.Phase != models.PhaseRunning || snap.Round != 2 || snap.ExerciseIndex != 0 {
		t.Fatalf("after round rest: %+v, want running A round 2", snap)
	}

	// A round 2 -> exercise rest -> B round 1.
	tickN(m, 4)
	if got := m.Snapshot().Phase; got != models.PhaseResting {
		t.Fatalf("after A r2: phase = %s, want resting", got)
	}
	tickN(m, 2)
	snap = m.Snapshot()
	if snap.Phase != models.PhaseRunning || snap.ExerciseIndex != 1 || snap.Round != 1 {
		t.Fatalf("after exercise rest: %+v, want running B round 1", snap)
	}

	// B both rounds -> completed.
	tickN(m, 4+3+4)
	snap = m.Snapshot()
	if snap.Phase != models.PhaseCompleted {
		t.Fatalf("final phase = %s, want completed", snap.Phase)
	}
	if snap.WorkoutProgress != 1 {
		t.Errorf("final workout progress = %v, want 1", snap.WorkoutProgress)
	}
}

// TestRoundRobinTransitions walks a 2-exercise, 2-round round-robin
// plan: all exercises once per round, round rest between rounds.
func TestRoundRobinTransitions(t *testing.T) {
	plan := &models.WorkoutPlan{
		Name: "rr",
		Exercises: []models.PlannedExercise{
			{Name: "A", DurationSeconds: 4},
			{Name: "B", DurationSeconds: 4},
		},
		Rounds:                   2,
		RestBetweenExercisesSecs: 2,
		RestBetweenRoundsSecs:    3,
		Mode:                     models.ModeRoundRobin,
	}
	m := NewMachine(plan, NopAnnouncer{}, 3)
	m.Start(nil)

	// A -> rest -> B within round 1.
	tickN(m, 4)
	if got := m.Snapshot().Phase; got != models.PhaseResting {
		t.Fatalf("after A: phase = %s, want resting", got)
	}
	tickN(m, 2)
	snap := m.Snapshot()
	if snap.ExerciseIndex != 1 || snap.Round != 1 {
		t.Fatalf("after rest: %+v, want B round 1", snap)
	}

	// B -> round rest -> A round 2.
	tickN(m, 4)
	if got := m.Snapshot().Phase; got != models.PhaseRoundRest {
		t.Fatalf("after B: phase = %s, want round_rest", got)
	}
	tickN(m, 3)
	snap = m.Snapshot()
	if snap.ExerciseIndex != 0 || snap.Round != 2 {
		t.Fatalf("after round rest: %+v, want A round 2", snap)
	}

	// Round 2 to the end.
	tickN(m, 4+2+4)
	if got := m.Snapshot().Phase; got != models.PhaseCompleted {
		t.Fatalf("final phase = %s, want completed", got)
	}
}

// TestZeroRestIsElided verifies a zero-length rest phase is never
// entered, so each transition rings exactly one bell.
func TestZeroRestIsElided(t *testing.T) {
	rec := &recordingAnnouncer{}
	m := NewMachine(twoExercisePlan(), rec, 3)
	m.Start(nil)

	tickN(m, 10)
	snap := m.Snapshot()
	if snap.Phase != models.PhaseRunning {
		t.Fatalf("phase = %s, want running (rest elided)", snap.Phase)
	}
	if snap.ExerciseIndex != 1 {
		t.Errorf("exercise index = %d, want 1", snap.ExerciseIndex)
	}
	if rec.bells != 1 {
		t.Errorf("bells = %d, want 1", rec.bells)
	}
}

// TestPauseResumePreservesState verifies pause then resume with no
// elapsed wall time changes nothing observable.
func TestPauseResumePreservesState(t *testing.T) {
	m := NewMachine(twoExercisePlan(), NopAnnouncer{}, 3)
	m.Start(nil)
	tickN(m, 4)

	before := m.Snapshot()
	m.Pause()

	paused := m.Snapshot()
	if paused.Phase != models.PhasePaused || !paused.Paused {
		t.Fatalf("paused snapshot = %+v, want paused phase", paused)
	}

	// Ticks while paused are no-ops.
	tickN(m, 10)
	m.Resume()

	after := m.Snapshot()
	if after.Phase != before.Phase ||
		after.TimeRemainingSeconds != before.TimeRemainingSeconds ||
		after.ExerciseIndex != before.ExerciseIndex ||
		after.Round != before.Round {
		t.Errorf("state changed across pause/resume: before=%+v after=%+v", before, after)
	}
}

// TestPauseIllegalPhasesNoOp verifies pausing during countdown or
// after completion is silently ignored.
func TestPauseIllegalPhasesNoOp(t *testing.T) {
	rec := &recordingAnnouncer{manualGo: true}
	m := NewMachine(twoExercisePlan(), rec, 3)
	m.Start(nil)

	m.Pause()
	if got := m.Snapshot().Phase; got != models.PhaseCountdown {
		t.Fatalf("pause during countdown: phase = %s, want countdown", got)
	}

	rec.fireGo(t)
	tickN(m, 20)
	if got := m.Snapshot().Phase; got != models.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", got)
	}
	m.Pause()
	if got := m.Snapshot().Phase; got != models.PhaseCompleted {
		t.Errorf("pause after completion: phase = %s, want completed", got)
	}

	m.Resume() // not paused: no-op
	if got := m.Snapshot().Phase; got != models.PhaseCompleted {
		t.Errorf("resume when not paused: phase = %s, want completed", got)
	}
}

// TestSkipBypassesRest verifies skipping with zero exercise rest moves
// straight to the next exercise's running phase.
func TestSkipBypassesRest(t *testing.T) {
	rec := &recordingAnnouncer{}
	m := NewMachine(twoExercisePlan(), rec, 3)
	m.Start(nil)
	tickN(m, 2)

	stopsBefore := rec.stops
	m.Skip()

	snap := m.Snapshot()
	if snap.Phase != models.PhaseRunning || snap.ExerciseIndex != 1 {
		t.Fatalf("after skip: %+v, want running exercise 1", snap)
	}
	if snap.TimeRemainingSeconds != 10 {
		t.Errorf("time remaining = %d, want 10", snap.TimeRemainingSeconds)
	}
	if rec.stops != stopsBefore+1 {
		t.Errorf("announcer stops = %d, want %d (skip cuts in-flight audio)", rec.stops, stopsBefore+1)
	}
	if len(rec.upcoming) != 0 {
		t.Errorf("upcoming cues = %v, want none after skip", rec.upcoming)
	}
}

// TestSkipLastIntervalCompletes verifies skip on the final interval
// finishes the run.
func TestSkipLastIntervalCompletes(t *testing.T) {
	rec := &recordingAnnouncer{}
	m := NewMachine(twoExercisePlan(), rec, 3)
	m.Start(nil)
	m.Skip()
	m.Skip()

	if got := m.Snapshot().Phase; got != models.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", got)
	}
	if rec.complete != 1 {
		t.Errorf("complete announcements = %d, want 1", rec.complete)
	}
}

// TestStopResetsAndInvalidatesCountdown verifies stop returns the
// machine to ready and that a stale go-signal cannot revive it.
func TestStopResetsAndInvalidatesCountdown(t *testing.T) {
	rec := &recordingAnnouncer{manualGo: true}
	m := NewMachine(twoExercisePlan(), rec, 3)
	m.Start(nil)
	m.Stop()

	if got := m.Snapshot().Phase; got != models.PhaseReady {
		t.Fatalf("phase after stop = %s, want ready", got)
	}

	// The countdown audio callback fires into a stopped machine.
	rec.fireGo(t)
	if got := m.Snapshot().Phase; got != models.PhaseReady {
		t.Errorf("stale go-signal advanced a stopped machine: phase = %s", got)
	}
}

// TestWorkoutProgressMonotonic verifies progress never decreases and
// ends at exactly 1.0.
func TestWorkoutProgressMonotonic(t *testing.T) {
	plan := &models.WorkoutPlan{
		Name: "mono",
		Exercises: []models.PlannedExercise{
			{Name: "A", DurationSeconds: 5},
			{Name: "B", DurationSeconds: 7},
			{Name: "C", DurationSeconds: 4},
		},
		Rounds:                   3,
		RestBetweenExercisesSecs: 2,
		RestBetweenRoundsSecs:    4,
		Mode:                     models.ModeRoundRobin,
	}
	m := NewMachine(plan, NopAnnouncer{}, 3)
	m.Start(nil)

	last := 0.0
	for i := 0; i < 500; i++ {
		m.Tick()
		snap := m.Snapshot()
		if snap.WorkoutProgress < last {
			t.Fatalf("tick %d: progress decreased %v -> %v", i, last, snap.WorkoutProgress)
		}
		last = snap.WorkoutProgress
		if snap.Phase == models.PhaseCompleted {
			break
		}
	}
	snap := m.Snapshot()
	if snap.Phase != models.PhaseCompleted {
		t.Fatalf("run did not complete within 500 ticks: %+v", snap)
	}
	if snap.WorkoutProgress != 1 {
		t.Errorf("final progress = %v, want exactly 1", snap.WorkoutProgress)
	}
}

// TestScenarioTwoExercisesOneRound walks 2x10s exercises, no rest,
// sequential: exactly 20 ticks from running start to completed.
func TestScenarioTwoExercisesOneRound(t *testing.T) {
	m := NewMachine(twoExercisePlan(), NopAnnouncer{}, 3)
	m.Start(nil)

	tickN(m, 19)
	snap := m.Snapshot()
	if snap.Phase == models.PhaseCompleted {
		t.Fatal("completed one tick early")
	}
	if snap.ExerciseIndex != 1 {
		t.Errorf("exercise index at tick 19 = %d, want 1", snap.ExerciseIndex)
	}

	m.Tick()
	if got := m.Snapshot().Phase; got != models.PhaseCompleted {
		t.Fatalf("phase after 20 ticks = %s, want completed", got)
	}
}

// TestScenarioThreeRoundsWithRest walks 1 exercise of 10s, 3 rounds,
// 5s round rest, round-robin: exactly 3*10 + 2*5 = 40 ticks.
func TestScenarioThreeRoundsWithRest(t *testing.T) {
	plan := &models.WorkoutPlan{
		Name:                  "b",
		Exercises:             []models.PlannedExercise{{Name: "Burpees", DurationSeconds: 10}},
		Rounds:                3,
		RestBetweenRoundsSecs: 5,
		Mode:                  models.ModeRoundRobin,
	}
	m := NewMachine(plan, NopAnnouncer{}, 3)
	m.Start(nil)

	tickN(m, 39)
	if got := m.Snapshot().Phase; got == models.PhaseCompleted {
		t.Fatal("completed one tick early")
	}
	m.Tick()
	snap := m.Snapshot()
	if snap.Phase != models.PhaseCompleted {
		t.Fatalf("phase after 40 ticks = %s, want completed", snap.Phase)
	}
	if snap.ElapsedSeconds != 40 {
		t.Errorf("elapsed = %d, want 40", snap.ElapsedSeconds)
	}
}

// TestExerciseProgressCountsDown verifies the per-phase fraction is the
// remaining share of the phase, clamped to [0,1].
func TestExerciseProgressCountsDown(t *testing.T) {
	m := NewMachine(twoExercisePlan(), NopAnnouncer{}, 3)
	m.Start(nil)

	if got := m.Snapshot().ExerciseProgress; got != 1 {
		t.Fatalf("progress at phase start = %v, want 1", got)
	}
	tickN(m, 5)
	if got := m.Snapshot().ExerciseProgress; got != 0.5 {
		t.Errorf("progress at half = %v, want 0.5", got)
	}
}
