package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/cadence/internal/engine"
	"github.com/meltforce/cadence/internal/models"
	srv "github.com/meltforce/cadence/internal/server"
)

// PlanSource is the storage surface the MCP tools read.
type PlanSource interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.WorkoutPlan, error)
	ListPlans(ctx context.Context) ([]*models.WorkoutPlan, error)
	QueryRunRecords(ctx context.Context, start, end time.Time) ([]models.RunRecord, error)
}

// RunControl is the live-run surface the MCP tools drive.
// *server.RunManager satisfies it.
type RunControl interface {
	Start(plan *models.WorkoutPlan) *engine.Runner
	Get(id uuid.UUID) (*engine.Runner, bool)
	Active() []srv.ActiveRun
}

// New creates an MCP server with all tools and resources registered.
func New(ds PlanSource, runs RunControl, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Cadence", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Cadence interval-timer server. Browse workout plans, start and control timed runs (pause/resume/skip/stop), and query run history. Run snapshots report the current phase, round, exercise and progress."),
	)

	h := &handlers{ds: ds, runs: runs, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListPlans, Handler: h.listPlans},
		server.ServerTool{Tool: toolGetPlan, Handler: h.getPlan},
		server.ServerTool{Tool: toolStartRun, Handler: h.startRun},
		server.ServerTool{Tool: toolGetRun, Handler: h.getRun},
		server.ServerTool{Tool: toolPauseRun, Handler: h.pauseRun},
		server.ServerTool{Tool: toolResumeRun, Handler: h.resumeRun},
		server.ServerTool{Tool: toolSkipInterval, Handler: h.skipInterval},
		server.ServerTool{Tool: toolStopRun, Handler: h.stopRun},
		server.ServerTool{Tool: toolGetRunHistory, Handler: h.getRunHistory},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resActiveRuns, Handler: h.activeRuns},
		server.ServerResource{Resource: resPlanCatalog, Handler: h.planCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds   PlanSource
	runs RunControl
	log  *slog.Logger
}

// --- Resource definitions ---

var resActiveRuns = mcp.NewResource(
	"cadence://active_runs",
	"Active Runs",
	mcp.WithResourceDescription("All currently executing runs with their live snapshots"),
	mcp.WithMIMEType("application/json"),
)

var resPlanCatalog = mcp.NewResource(
	"cadence://plan_catalog",
	"Plan Catalog",
	mcp.WithResourceDescription("All stored workout plans with exercises and timing parameters"),
	mcp.WithMIMEType("application/json"),
)
