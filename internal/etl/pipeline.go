package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursex/coursex-backend/internal/etl/extract"
	"github.com/coursex/coursex-backend/internal/etl/promote"
	"github.com/coursex/coursex-backend/internal/etl/staging"
	"github.com/coursex/coursex-backend/internal/etl/transform"
	"github.com/coursex/coursex-backend/internal/etl/validation"
	"github.com/coursex/coursex-backend/internal/observability"
	"github.com/coursex/coursex-backend/internal/platform/logger"
	"github.com/coursex/coursex-backend/internal/repos"
	"github.com/coursex/coursex-backend/internal/types"
)

// Options selects what a single pipeline invocation does.
type Options struct {
	SemesterID       int
	Concurrency      int
	UpdateProfessors bool
	DryRun           bool
	Activate         bool
}

// Result summarizes one finished run for the caller.
type Result struct {
	RunID      uuid.UUID
	Status     string
	Counts     map[string]int
	Violations []string
}

// Pipeline runs the full extract-to-promote cycle for one semester.
type Pipeline struct {
	extractor *extract.Extractor
	loader    *staging.Loader
	promoter  *promote.Promoter
	runs      repos.EtlRunRepo
	db        *gorm.DB
	log       *logger.Logger
}

func NewPipeline(db *gorm.DB, extractor *extract.Extractor, baseLog *logger.Logger) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		loader:    staging.NewLoader(db, baseLog),
		promoter:  promote.NewPromoter(db, baseLog),
		runs:      repos.NewEtlRunRepo(db, baseLog),
		db:        db,
		log:       baseLog.With("component", "Pipeline"),
	}
}

// Run executes the stages in order and always finalizes the audit record.
// The returned error is the pipeline's own failure; audit write failures are
// logged, never surfaced over it.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	result := Result{Status: types.EtlRunStatusFailure}
	counts := map[string]int{}

	run, err := p.runs.Start(ctx, opts.SemesterID)
	if err != nil {
		// the run proceeds; it just leaves no audit trail
		p.log.Error("Could not record run start", "error", err)
	} else {
		result.RunID = run.RunID
	}

	runErr := p.execute(ctx, opts, counts, &result)
	if runErr == nil {
		result.Status = types.EtlRunStatusSuccess
	}
	result.Counts = counts

	p.finalize(ctx, result.RunID, result.Status, runErr, counts)

	if runErr != nil {
		return result, runErr
	}
	p.log.Info("Pipeline run complete",
		"semester_id", opts.SemesterID,
		"run_id", result.RunID,
		"dry_run", opts.DryRun)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, opts Options, counts map[string]int, result *Result) error {
	if opts.SemesterID <= 0 {
		return fmt.Errorf("invalid semester id %d", opts.SemesterID)
	}

	// Extract
	sctx, span := observability.StageSpan(ctx, "extract", opts.SemesterID)
	cat, err := p.extractor.FetchCatalog(sctx, opts.SemesterID)
	var ratings []types.Professor
	if err == nil && opts.UpdateProfessors {
		rows, rerr := p.extractor.FetchProfessors(sctx)
		if rerr != nil {
			// ratings refresh is independent of the catalog; degrade, keep metrics stale
			p.log.Warn("Professor refresh failed; keeping existing metrics", "error", rerr)
		} else {
			ratings = transform.RatingsToProfessors(rows)
		}
	}
	span.End()
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	counts["units_failed"] = len(cat.Failures)
	for i, f := range cat.Failures {
		if i >= 20 {
			break
		}
		p.log.Warn("Fetch unit excluded from run", "unit", f.Unit, "error", f.Err)
	}

	// Transform
	_, span = observability.StageSpan(ctx, "transform", opts.SemesterID)
	batch, err := transform.Normalize(opts.SemesterID, cat)
	span.End()
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	batch.Professors = ratings
	for k, v := range batch.Counts() {
		counts[k] = v
	}

	// sharp volume drops against the last good run are alerted, not fatal
	if previous, perr := p.runs.LastSuccessCounts(ctx, opts.SemesterID); perr == nil && previous != nil {
		drift := observability.DetectVolumeDrift(previous, counts, 0.25)
		for _, m := range drift {
			p.log.Warn("Catalog volume drift",
				"entity", m.Name, "previous", m.Previous, "current", m.Current)
		}
		observability.ReportVolumeDrift(ctx, p.log, opts.SemesterID, drift)
	}

	// Stage
	sctx, span = observability.StageSpan(ctx, "stage", opts.SemesterID)
	stagingCounts, err := p.loader.Load(sctx, batch)
	span.End()
	if err != nil {
		return fmt.Errorf("staging load: %w", err)
	}
	for k, v := range stagingCounts {
		counts[k] = v
	}

	// Validate
	sctx, span = observability.StageSpan(ctx, "validate", opts.SemesterID)
	report, err := validation.Validate(sctx, p.db, opts.SemesterID)
	span.End()
	if err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	result.Violations = report.Violations()
	if !report.Passed() {
		return fmt.Errorf("validation failed: %s", strings.Join(result.Violations, "; "))
	}

	if opts.DryRun {
		p.log.Info("Dry run; skipping promotion", "semester_id", opts.SemesterID)
		return nil
	}

	// Promote
	sctx, span = observability.StageSpan(ctx, "promote", opts.SemesterID)
	err = p.promoter.Promote(sctx, promote.Options{
		SemesterID:          opts.SemesterID,
		ProfessorsRefreshed: len(batch.Professors) > 0,
		Activate:            opts.Activate,
	})
	span.End()
	if err != nil {
		return fmt.Errorf("promote: %w", err)
	}

	if err := p.loader.Clear(ctx, opts.SemesterID); err != nil {
		// promotion already committed; stale staging is cosmetic
		p.log.Warn("Staging cleanup failed", "semester_id", opts.SemesterID, "error", err)
	}
	return nil
}

// finalize writes the audit outcome, retrying once. Its own failure is only
// logged so it can never mask the pipeline's error.
func (p *Pipeline) finalize(ctx context.Context, runID uuid.UUID, status string, runErr error, counts map[string]int) {
	if runID == uuid.Nil {
		return
	}
	err := p.runs.Finish(ctx, runID, status, runErr, counts)
	if err != nil {
		time.Sleep(2 * time.Second)
		err = p.runs.Finish(ctx, runID, status, runErr, counts)
	}
	if err != nil {
		p.log.Error("Could not record run outcome", "run_id", runID, "error", err)
	}
}
