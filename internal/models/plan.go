package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlannedExercise is one named work interval within a plan.
type PlannedExercise struct {
	Name            string `json:"name" yaml:"name"`
	Category        string `json:"category,omitempty" yaml:"category,omitempty"`
	DurationSeconds int    `json:"duration_seconds" yaml:"duration_seconds"`
}

// WorkoutPlan is the immutable input to one run: an ordered exercise
// list plus timing parameters. The engine deep-copies it at start, so
// later edits to a stored plan never affect an active run.
type WorkoutPlan struct {
	ID                       uuid.UUID         `json:"id" yaml:"-"`
	Name                     string            `json:"name" yaml:"name"`
	Exercises                []PlannedExercise `json:"exercises" yaml:"exercises"`
	Rounds                   int               `json:"rounds" yaml:"rounds"`
	RestBetweenExercisesSecs int               `json:"rest_between_exercises_seconds" yaml:"rest_between_exercises_seconds"`
	RestBetweenRoundsSecs    int               `json:"rest_between_rounds_seconds" yaml:"rest_between_rounds_seconds"`
	WarmupSeconds            int               `json:"warmup_seconds,omitempty" yaml:"warmup_seconds,omitempty"`
	Mode                     ExecutionMode     `json:"mode" yaml:"mode"`
	CreatedAt                time.Time         `json:"created_at,omitempty" yaml:"-"`
}

// Validate checks the invariants the engine relies on.
func (p *WorkoutPlan) Validate() error {
	if len(p.Exercises) == 0 {
		return fmt.Errorf("plan %q: exercise list is empty", p.Name)
	}
	if p.Rounds < 1 {
		return fmt.Errorf("plan %q: rounds must be >= 1, got %d", p.Name, p.Rounds)
	}
	if p.RestBetweenExercisesSecs < 0 {
		return fmt.Errorf("plan %q: rest between exercises must be >= 0", p.Name)
	}
	if p.RestBetweenRoundsSecs < 0 {
		return fmt.Errorf("plan %q: rest between rounds must be >= 0", p.Name)
	}
	if p.WarmupSeconds < 0 {
		return fmt.Errorf("plan %q: warmup must be >= 0", p.Name)
	}
	if p.Mode != ModeSequential && p.Mode != ModeRoundRobin {
		return fmt.Errorf("plan %q: unknown execution mode %q", p.Name, p.Mode)
	}
	for i, ex := range p.Exercises {
		if ex.DurationSeconds <= 0 {
			return fmt.Errorf("plan %q: exercise %d (%s) duration must be > 0", p.Name, i, ex.Name)
		}
	}
	return nil
}

// Clone returns a deep copy. The engine snapshots the plan at start so
// a run never observes mid-run mutation.
func (p *WorkoutPlan) Clone() *WorkoutPlan {
	c := *p
	c.Exercises = make([]PlannedExercise, len(p.Exercises))
	copy(c.Exercises, p.Exercises)
	return &c
}

// TotalWorkUnits is the number of work intervals a full run executes.
func (p *WorkoutPlan) TotalWorkUnits() int {
	return len(p.Exercises) * p.Rounds
}

// TotalSeconds is the scheduled duration of a full run, warmup and
// countdown excluded.
func (p *WorkoutPlan) TotalSeconds() int {
	total := 0
	for _, ex := range p.Exercises {
		total += ex.DurationSeconds * p.Rounds
	}
	n := len(p.Exercises)
	switch p.Mode {
	case ModeRoundRobin:
		// Rest after every exercise except the last of each round,
		// round rest between rounds.
		total += (n - 1) * p.Rounds * p.RestBetweenExercisesSecs
		total += (p.Rounds - 1) * p.RestBetweenRoundsSecs
	default:
		// Sequential: round rest between rounds of one exercise,
		// exercise rest between exercises.
		total += (p.Rounds - 1) * n * p.RestBetweenRoundsSecs
		total += (n - 1) * p.RestBetweenExercisesSecs
	}
	return total
}

// TimerConfiguration is the simple interval-timer mode: unnamed work
// cycles instead of an exercise list. It is normalized into a
// WorkoutPlan so a single state machine serves both modes.
type TimerConfiguration struct {
	WorkSeconds           int `json:"work_seconds" yaml:"work_seconds"`
	RestSeconds           int `json:"rest_seconds" yaml:"rest_seconds"`
	CyclesPerRound        int `json:"cycles_per_round" yaml:"cycles_per_round"`
	Rounds                int `json:"rounds" yaml:"rounds"`
	RestBetweenRoundsSecs int `json:"rest_between_rounds_seconds" yaml:"rest_between_rounds_seconds"`
	WarmupSeconds         int `json:"warmup_seconds" yaml:"warmup_seconds"`
}

// Plan expands the configuration into an equivalent round-robin
// WorkoutPlan: each cycle becomes one unnamed work interval.
func (c *TimerConfiguration) Plan() *WorkoutPlan {
	cycles := c.CyclesPerRound
	if cycles < 1 {
		cycles = 1
	}
	exercises := make([]PlannedExercise, cycles)
	for i := range exercises {
		exercises[i] = PlannedExercise{Name: "Work", DurationSeconds: c.WorkSeconds}
	}
	return &WorkoutPlan{
		ID:                       uuid.New(),
		Name:                     "Interval Timer",
		Exercises:                exercises,
		Rounds:                   c.Rounds,
		RestBetweenExercisesSecs: c.RestSeconds,
		RestBetweenRoundsSecs:    c.RestBetweenRoundsSecs,
		WarmupSeconds:            c.WarmupSeconds,
		Mode:                     ModeRoundRobin,
	}
}
