package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/meltforce/cadence/internal/models"
	"gopkg.in/yaml.v3"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	PlansInserted   int
	PlansDuplicated int

	RejectedFiles []string
}

// PlanStore is the slice of storage the importer writes to.
type PlanStore interface {
	InsertPlan(ctx context.Context, plan *models.WorkoutPlan) (bool, error)
}

// Importer reads YAML plan files from a directory and inserts them into
// the plan store.
type Importer struct {
	db     PlanStore
	state  *StateDB
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. state may be nil, in which case every file
// is considered new.
func New(db PlanStore, state *StateDB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, state: state, log: log, dryRun: dryRun}
}

// planFile is the on-disk YAML shape: a WorkoutPlan plus an optional
// explicit ID. Files without an ID get a name-derived one so re-imports
// stay idempotent.
type planFile struct {
	ID                 string `yaml:"id"`
	models.WorkoutPlan `yaml:",inline"`
}

// planIDNamespace salts name-derived plan IDs.
var planIDNamespace = uuid.MustParse("8f2b5c41-9d3a-4e17-b5a6-2c90d1f47e03")

// Import processes all .yaml/.yml files under dir, non-recursively
// sorted by name so insertion order is stable.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		if err := imp.importFile(ctx, dir, name); err != nil {
			return &imp.stats, err
		}
	}

	return &imp.stats, nil
}

// importFile handles one plan file. Parse and validation failures are
// counted and logged, not fatal; storage errors abort the import.
func (imp *Importer) importFile(ctx context.Context, dir, name string) error {
	path := filepath.Join(dir, name)

	var size int64
	var hash string
	if imp.state != nil {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		size = info.Size()
		hash, err = HashFile(path)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", path, err)
		}

		done, err := imp.state.IsImported(name, size, hash)
		if err != nil {
			return fmt.Errorf("checking state for %s: %w", name, err)
		}
		if done {
			imp.stats.FilesSkipped++
			return nil
		}
	}

	plan, err := ParsePlanFile(path)
	if err != nil {
		imp.log.Warn("plan file rejected", "file", name, "error", err)
		imp.stats.FilesErrored++
		imp.stats.RejectedFiles = append(imp.stats.RejectedFiles, name)
		return nil
	}

	imp.stats.FilesProcessed++

	if imp.dryRun {
		imp.log.Info("would import plan", "file", name, "plan", plan.Name,
			"exercises", len(plan.Exercises), "rounds", plan.Rounds)
		return nil
	}

	inserted, err := imp.db.InsertPlan(ctx, plan)
	if err != nil {
		return fmt.Errorf("inserting plan from %s: %w", name, err)
	}
	if inserted {
		imp.stats.PlansInserted++
		imp.log.Info("plan imported", "file", name, "plan", plan.Name, "id", plan.ID)
	} else {
		imp.stats.PlansDuplicated++
		imp.log.Info("plan already present", "file", name, "plan", plan.Name, "id", plan.ID)
	}

	if imp.state != nil {
		if err := imp.state.MarkImported(name, size, hash); err != nil {
			return fmt.Errorf("recording state for %s: %w", name, err)
		}
	}
	return nil
}

// ParsePlanFile reads and validates one YAML plan file.
func ParsePlanFile(path string) (*models.WorkoutPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	plan := pf.WorkoutPlan
	switch {
	case pf.ID != "":
		id, err := uuid.Parse(pf.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid plan id %q: %w", pf.ID, err)
		}
		plan.ID = id
	default:
		plan.ID = uuid.NewSHA1(planIDNamespace, []byte(plan.Name))
	}
	if plan.Mode == "" {
		plan.Mode = models.ModeSequential
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}
