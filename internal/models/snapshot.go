package models

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is the engine state as observed by a presentation layer.
// It is a value copy; readers never share memory with the engine.
type Snapshot struct {
	Phase                Phase   `json:"phase"`
	ExerciseIndex        int     `json:"exercise_index"`
	ExerciseName         string  `json:"exercise_name,omitempty"`
	Round                int     `json:"round"`
	TotalRounds          int     `json:"total_rounds"`
	TimeRemainingSeconds int     `json:"time_remaining_seconds"`
	ElapsedSeconds       int     `json:"elapsed_seconds"`
	Paused               bool    `json:"paused"`
	WorkoutProgress      float64 `json:"workout_progress"`
	ExerciseProgress     float64 `json:"exercise_progress"`
}

// RunRecord is the persisted summary of a finished run.
type RunRecord struct {
	ID             uuid.UUID `json:"id"`
	PlanID         uuid.UUID `json:"plan_id"`
	PlanName       string    `json:"plan_name"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Completed      bool      `json:"completed"`
}
