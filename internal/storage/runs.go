package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/meltforce/cadence/internal/models"
)

// InsertRunRecord stores the summary of a finished run. Returns true if
// inserted, false if the run was already recorded.
func (db *DB) InsertRunRecord(ctx context.Context, rec models.RunRecord) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO run_records (id, plan_id, plan_name, started_at, ended_at, elapsed_sec, completed)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT DO NOTHING`,
		rec.ID, rec.PlanID, rec.PlanName, rec.StartedAt, rec.EndedAt,
		rec.ElapsedSeconds, rec.Completed)
	if err != nil {
		return false, fmt.Errorf("inserting run record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// QueryRunRecords returns finished runs in a time range, newest first.
func (db *DB) QueryRunRecords(ctx context.Context, start, end time.Time) ([]models.RunRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, plan_id, plan_name, started_at, ended_at, elapsed_sec, completed
		 FROM run_records
		 WHERE started_at >= $1 AND started_at < $2
		 ORDER BY started_at DESC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying run records: %w", err)
	}
	defer rows.Close()

	var recs []models.RunRecord
	for rows.Next() {
		var rec models.RunRecord
		if err := rows.Scan(&rec.ID, &rec.PlanID, &rec.PlanName, &rec.StartedAt,
			&rec.EndedAt, &rec.ElapsedSeconds, &rec.Completed); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
