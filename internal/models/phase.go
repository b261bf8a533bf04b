package models

import "fmt"

// Phase is the current stage of an interval run.
type Phase string

const (
	PhaseReady     Phase = "ready"
	PhaseWarmup    Phase = "warmup"
	PhaseCountdown Phase = "countdown"
	PhaseRunning   Phase = "running"
	PhaseResting   Phase = "resting"
	PhaseRoundRest Phase = "round_rest"
	PhasePaused    Phase = "paused"
	PhaseCompleted Phase = "completed"
)

// Work reports whether time spent in the phase counts toward elapsed
// workout time. Ready and countdown do not; the clock only runs once
// the first interval has started.
func (p Phase) Work() bool {
	switch p {
	case PhaseWarmup, PhaseRunning, PhaseResting, PhaseRoundRest:
		return true
	}
	return false
}

// ExecutionMode controls how rounds and exercises interleave.
type ExecutionMode string

const (
	// ModeSequential completes all rounds of one exercise before
	// advancing to the next exercise.
	ModeSequential ExecutionMode = "sequential"
	// ModeRoundRobin cycles through every exercise once per round.
	ModeRoundRobin ExecutionMode = "round_robin"
)

// ParseExecutionMode validates a mode string from config, storage or API input.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch ExecutionMode(s) {
	case ModeSequential, ModeRoundRobin:
		return ExecutionMode(s), nil
	case "":
		return ModeSequential, nil
	}
	return "", fmt.Errorf("unknown execution mode %q", s)
}
