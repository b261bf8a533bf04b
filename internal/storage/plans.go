package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/cadence/internal/models"
)

// InsertPlan stores a plan and its exercises in one transaction.
// Returns true if inserted, false if a plan with the same ID exists.
func (db *DB) InsertPlan(ctx context.Context, plan *models.WorkoutPlan) (bool, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO plans (id, name, rounds, rest_between_exercises_sec, rest_between_rounds_sec, warmup_sec, mode)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT DO NOTHING`,
		plan.ID, plan.Name, plan.Rounds, plan.RestBetweenExercisesSecs,
		plan.RestBetweenRoundsSecs, plan.WarmupSeconds, string(plan.Mode))
	if err != nil {
		return false, fmt.Errorf("inserting plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	for i, ex := range plan.Exercises {
		_, err := tx.Exec(ctx,
			`INSERT INTO plan_exercises (plan_id, position, name, category, duration_sec)
			 VALUES ($1,$2,$3,$4,$5)`,
			plan.ID, i, ex.Name, ex.Category, ex.DurationSeconds)
		if err != nil {
			return false, fmt.Errorf("inserting exercise %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing plan: %w", err)
	}
	return true, nil
}

// GetPlan loads a plan with its exercises in position order.
func (db *DB) GetPlan(ctx context.Context, id uuid.UUID) (*models.WorkoutPlan, error) {
	plan := &models.WorkoutPlan{ID: id}
	var mode string
	err := db.Pool.QueryRow(ctx,
		`SELECT name, rounds, rest_between_exercises_sec, rest_between_rounds_sec, warmup_sec, mode, created_at
		 FROM plans WHERE id = $1`, id).
		Scan(&plan.Name, &plan.Rounds, &plan.RestBetweenExercisesSecs,
			&plan.RestBetweenRoundsSecs, &plan.WarmupSeconds, &mode, &plan.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	plan.Mode = models.ExecutionMode(mode)

	rows, err := db.Pool.Query(ctx,
		`SELECT name, category, duration_sec FROM plan_exercises
		 WHERE plan_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying plan exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ex models.PlannedExercise
		if err := rows.Scan(&ex.Name, &ex.Category, &ex.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		plan.Exercises = append(plan.Exercises, ex)
	}
	return plan, rows.Err()
}

// ListPlans returns all plans, newest first, exercises included.
func (db *DB) ListPlans(ctx context.Context) ([]*models.WorkoutPlan, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id FROM plans ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning plan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	plans := make([]*models.WorkoutPlan, 0, len(ids))
	for _, id := range ids {
		plan, err := db.GetPlan(ctx, id)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// DeletePlan removes a plan; exercises cascade. Returns true if a row
// was deleted.
func (db *DB) DeletePlan(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting plan: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
