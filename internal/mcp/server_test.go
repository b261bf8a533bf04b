package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/cadence/internal/engine"
	"github.com/meltforce/cadence/internal/models"
	srv "github.com/meltforce/cadence/internal/server"
	"github.com/meltforce/cadence/internal/storage"
)

// fakePlanSource is an in-memory PlanSource for tool handler tests.
type fakePlanSource struct {
	plans map[uuid.UUID]*models.WorkoutPlan
	recs  []models.RunRecord
}

func (f *fakePlanSource) GetPlan(ctx context.Context, id uuid.UUID) (*models.WorkoutPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p.Clone(), nil
}

func (f *fakePlanSource) ListPlans(ctx context.Context) ([]*models.WorkoutPlan, error) {
	out := make([]*models.WorkoutPlan, 0, len(f.plans))
	for _, p := range f.plans {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (f *fakePlanSource) QueryRunRecords(ctx context.Context, start, end time.Time) ([]models.RunRecord, error) {
	return f.recs, nil
}

func (f *fakePlanSource) InsertRunRecord(ctx context.Context, rec models.RunRecord) (bool, error) {
	f.recs = append(f.recs, rec)
	return true, nil
}

func newTestHandlers(t *testing.T) (*handlers, *fakePlanSource, uuid.UUID) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	plan := &models.WorkoutPlan{
		ID:   uuid.New(),
		Name: "Test Circuit",
		Exercises: []models.PlannedExercise{
			{Name: "Push-ups", DurationSeconds: 300},
			{Name: "Squats", DurationSeconds: 300},
		},
		Rounds: 2,
		Mode:   models.ModeRoundRobin,
	}

	ds := &fakePlanSource{plans: map[uuid.UUID]*models.WorkoutPlan{plan.ID: plan}}
	runs := srv.NewRunManager(ds, log, 0,
		func() engine.Announcer { return engine.NopAnnouncer{} },
		engine.WithClock(engine.NewFakeClock()))
	t.Cleanup(runs.StopAll)

	return &handlers{ds: ds, runs: runs, log: log}, ds, plan.ID
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultJSON decodes the first text content of a successful result.
func resultJSON(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool returned error: %+v", res.Content)
	}
	text, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("content[0] is %T, want TextContent", res.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), v); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
}

// TestListPlansTool verifies the stored plan shows up in list_plans.
func TestListPlansTool(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	res, err := h.listPlans(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var plans []models.WorkoutPlan
	resultJSON(t, res, &plans)
	if len(plans) != 1 || plans[0].Name != "Test Circuit" {
		t.Errorf("plans = %+v, want one named Test Circuit", plans)
	}
}

// TestGetPlanToolNotFound verifies an unknown plan ID yields a tool
// error rather than a transport error.
func TestGetPlanToolNotFound(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	res, err := h.getPlan(context.Background(), callReq(map[string]any{"plan_id": uuid.NewString()}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result for unknown plan")
	}
}

// TestStartAndControlRun walks a run through start, pause, resume and
// stop via the tool handlers.
func TestStartAndControlRun(t *testing.T) {
	h, ds, planID := newTestHandlers(t)
	ctx := context.Background()

	res, err := h.startRun(ctx, callReq(map[string]any{"plan_id": planID.String()}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var started struct {
		RunID    uuid.UUID       `json:"run_id"`
		Snapshot models.Snapshot `json:"snapshot"`
	}
	resultJSON(t, res, &started)
	if started.RunID == uuid.Nil {
		t.Fatal("start_run returned nil run ID")
	}

	args := map[string]any{"run_id": started.RunID.String()}

	res, err = h.pauseRun(ctx, callReq(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var snap models.Snapshot
	resultJSON(t, res, &snap)
	if !snap.Paused {
		t.Error("snapshot after pause_run not paused")
	}

	res, err = h.resumeRun(ctx, callReq(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resultJSON(t, res, &snap)
	if snap.Paused {
		t.Error("snapshot after resume_run still paused")
	}

	res, err = h.stopRun(ctx, callReq(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resultJSON(t, res, &snap)
	if snap.Phase != models.PhaseReady {
		t.Errorf("phase after stop = %q, want %q", snap.Phase, models.PhaseReady)
	}

	// Stop persists a history record and drops the run.
	if len(ds.recs) != 1 || ds.recs[0].Completed {
		t.Errorf("records = %+v, want one uncompleted record", ds.recs)
	}
	res, err = h.getRun(ctx, callReq(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Error("get_run after stop should report run not found")
	}
}

// TestRunHistoryTool verifies get_run_history surfaces stored records.
func TestRunHistoryTool(t *testing.T) {
	h, ds, _ := newTestHandlers(t)
	ds.recs = []models.RunRecord{{ID: uuid.New(), PlanName: "Old Run", Completed: true}}

	res, err := h.getRunHistory(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var recs []models.RunRecord
	resultJSON(t, res, &recs)
	if len(recs) != 1 || recs[0].PlanName != "Old Run" {
		t.Errorf("records = %+v, want one named Old Run", recs)
	}
}

// TestDefaultTimeRange verifies time range defaults (last 30 days) and
// parsing of both accepted formats.
func TestDefaultTimeRange(t *testing.T) {
	start, end, err := defaultTimeRange("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 719 || diff.Hours() > 721 { // ~720 hours = 30 days
		t.Errorf("default range = %.0f hours, want ~720", diff.Hours())
	}

	start, end, err = defaultTimeRange("2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2026 || start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2026-01-01", start)
	}
	if end.Day() != 31 {
		t.Errorf("end = %v, want day 31", end)
	}

	start, _, err = defaultTimeRange("2026-06-15T10:30:00Z", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	if _, _, err = defaultTimeRange("not-a-date", ""); err == nil {
		t.Error("expected error for invalid date")
	}
}
