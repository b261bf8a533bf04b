package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/cadence/internal/engine"
	"github.com/meltforce/cadence/internal/models"
	"github.com/meltforce/cadence/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolListPlans = mcp.NewTool("list_plans",
	mcp.WithDescription("List all stored workout plans with exercises, rounds, rest durations and execution mode."),
)

var toolGetPlan = mcp.NewTool("get_plan",
	mcp.WithDescription("Get one workout plan by ID, including its ordered exercise list."),
	mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan UUID")),
)

var toolStartRun = mcp.NewTool("start_run",
	mcp.WithDescription("Start a timed run of a stored plan. Returns the run ID and the initial snapshot; the run then ticks server-side."),
	mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan UUID to execute")),
)

var toolGetRun = mcp.NewTool("get_run",
	mcp.WithDescription("Get the live snapshot of an active run: phase, round, exercise, time remaining and progress."),
	mcp.WithString("run_id", mcp.Required(), mcp.Description("Run UUID")),
)

var toolPauseRun = mcp.NewTool("pause_run",
	mcp.WithDescription("Pause an active run. Pausing during countdown or after completion is a no-op."),
	mcp.WithString("run_id", mcp.Required(), mcp.Description("Run UUID")),
)

var toolResumeRun = mcp.NewTool("resume_run",
	mcp.WithDescription("Resume a paused run from the exact phase and time it was paused at."),
	mcp.WithString("run_id", mcp.Required(), mcp.Description("Run UUID")),
)

var toolSkipInterval = mcp.NewTool("skip_interval",
	mcp.WithDescription("Skip the rest of the current interval, advancing exactly as if its time ran out."),
	mcp.WithString("run_id", mcp.Required(), mcp.Description("Run UUID")),
)

var toolStopRun = mcp.NewTool("stop_run",
	mcp.WithDescription("Stop a run early. The partial run is recorded in history as not completed."),
	mcp.WithString("run_id", mcp.Required(), mcp.Description("Run UUID")),
)

var toolGetRunHistory = mcp.NewTool("get_run_history",
	mcp.WithDescription("Query finished runs (completed and stopped) in a time range."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

// --- Tool handlers ---

func (h *handlers) listPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plans, err := h.ds.ListPlans(ctx)
	if err != nil {
		h.log.Error("mcp list_plans", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(plans)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, errResult := h.planFromRequest(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	result, err := mcp.NewToolResultJSON(plan)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) startRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, errResult := h.planFromRequest(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	if err := plan.Validate(); err != nil {
		return mcp.NewToolResultError("plan is not runnable: " + err.Error()), nil
	}

	runner := h.runs.Start(plan)
	result, err := mcp.NewToolResultJSON(map[string]any{
		"run_id":    runner.ID,
		"plan_name": plan.Name,
		"snapshot":  runner.Snapshot(),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.runCommand(req, func(r *engine.Runner) {})
}

func (h *handlers) pauseRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.runCommand(req, (*engine.Runner).Pause)
}

func (h *handlers) resumeRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.runCommand(req, (*engine.Runner).Resume)
}

func (h *handlers) skipInterval(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.runCommand(req, (*engine.Runner).Skip)
}

func (h *handlers) stopRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.runCommand(req, (*engine.Runner).Stop)
}

func (h *handlers) getRunHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	recs, err := h.ds.QueryRunRecords(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_run_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(recs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// planFromRequest resolves the plan_id argument against storage.
func (h *handlers) planFromRequest(ctx context.Context, req mcp.CallToolRequest) (*models.WorkoutPlan, *mcp.CallToolResult) {
	idStr, err := req.RequireString("plan_id")
	if err != nil {
		return nil, mcp.NewToolResultError("plan_id parameter is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, mcp.NewToolResultError("plan_id is not a valid UUID")
	}

	plan, err := h.ds.GetPlan(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, mcp.NewToolResultError("plan not found")
	}
	if err != nil {
		h.log.Error("mcp get plan", "error", err)
		return nil, mcp.NewToolResultError("query failed: " + err.Error())
	}
	return plan, nil
}

// runCommand applies cmd to the named run and returns the resulting
// snapshot. Illegal transitions are no-ops inside the engine.
func (h *handlers) runCommand(req mcp.CallToolRequest, cmd func(*engine.Runner)) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("run_id is not a valid UUID"), nil
	}

	runner, ok := h.runs.Get(id)
	if !ok {
		return mcp.NewToolResultError("run not found (finished runs appear in get_run_history)"), nil
	}

	cmd(runner)
	result, err := mcp.NewToolResultJSON(runner.Snapshot())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
