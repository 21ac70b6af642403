package extract

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coursex/coursex-backend/internal/clients/classapi"
	"github.com/coursex/coursex-backend/internal/clients/rmp"
	"github.com/coursex/coursex-backend/internal/platform/logger"
)

const (
	DefaultConcurrency = 12
	DefaultUnitTimeout = 90 * time.Second
)

// CatalogClient is the course-catalog source, one call per fetch unit.
type CatalogClient interface {
	SchoolsByTerm(ctx context.Context, termCode string) ([]classapi.School, error)
	ProgramCourses(ctx context.Context, termCode, school, program string) ([]classapi.Course, error)
	GECourses(ctx context.Context, termCode, requirementPrefix, categoryPrefix string) ([]classapi.Course, error)
}

// RatingsClient is the professor-rating source.
type RatingsClient interface {
	AllProfessors(ctx context.Context) ([]rmp.ProfessorRating, error)
}

// UnitFailure records one isolated fetch-unit failure; the unit's data is
// simply absent from the output set.
type UnitFailure struct {
	Unit string `json:"unit"`
	Err  string `json:"error"`
}

// ProgramCourses is one program unit's result.
type ProgramCourses struct {
	SchoolID  string
	ProgramID string
	Courses   []classapi.Course
}

// GEPayload is one GE category unit's result.
type GEPayload struct {
	Letter  string
	Courses []classapi.Course
}

// Catalog is the raw extraction result for one semester.
type Catalog struct {
	Schools  []classapi.School
	Programs []ProgramCourses
	GE       []GEPayload
	Failures []UnitFailure
}

type Extractor struct {
	Catalog     CatalogClient
	Ratings     RatingsClient
	Log         *logger.Logger
	Concurrency int
	UnitTimeout time.Duration
}

func New(catalog CatalogClient, ratings RatingsClient, log *logger.Logger, concurrency int) *Extractor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Extractor{
		Catalog:     catalog,
		Ratings:     ratings,
		Log:         log.With("component", "Extractor"),
		Concurrency: concurrency,
		UnitTimeout: DefaultUnitTimeout,
	}
}

// geSchool is synthesized so the General Education umbrella and its seminar
// program always exist even though the upstream school list omits them.
func geSchool() classapi.School {
	return classapi.School{
		Name:   "General Education",
		Prefix: "GE",
		Programs: []classapi.Program{
			{Name: "GE Seminar", Prefix: "GESM"},
		},
	}
}

// FetchCatalog pulls the full semester snapshot. The school list is the one
// fatal fetch: without it there is no unit partitioning. Every program and
// GE category afterwards is an isolated unit; a failed unit is recorded and
// excluded without cancelling its siblings.
func (e *Extractor) FetchCatalog(ctx context.Context, semesterID int) (*Catalog, error) {
	termCode := strconv.Itoa(semesterID)

	upstream, err := e.Catalog.SchoolsByTerm(ctx, termCode)
	if err != nil {
		return nil, fmt.Errorf("fetch school list: %w", err)
	}
	schools := append([]classapi.School{geSchool()}, upstream...)

	out := &Catalog{Schools: schools}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Concurrency)

	total := 0
	for _, school := range upstream {
		if school.Prefix == "" {
			continue
		}
		for _, program := range school.Programs {
			if program.Prefix == "" {
				continue
			}
			total++
			schoolID, programID := school.Prefix, program.Prefix
			g.Go(func() error {
				unitCtx, cancel := context.WithTimeout(gctx, e.UnitTimeout)
				defer cancel()
				courses, err := e.Catalog.ProgramCourses(unitCtx, termCode, schoolID, programID)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					e.Log.Warn("Program fetch failed; excluding unit", "school", schoolID, "program", programID, "error", err)
					out.Failures = append(out.Failures, UnitFailure{
						Unit: "program:" + schoolID + "/" + programID,
						Err:  err.Error(),
					})
					return nil
				}
				out.Programs = append(out.Programs, ProgramCourses{
					SchoolID:  schoolID,
					ProgramID: programID,
					Courses:   courses,
				})
				return nil
			})
		}
	}

	for _, req := range GERequirements() {
		req := req
		g.Go(func() error {
			unitCtx, cancel := context.WithTimeout(gctx, e.UnitTimeout)
			defer cancel()
			courses, err := e.Catalog.GECourses(unitCtx, termCode, req.Requirement, req.Category)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.Log.Warn("GE fetch failed; excluding unit", "category", req.Letter, "error", err)
				out.Failures = append(out.Failures, UnitFailure{Unit: "ge:" + req.Letter, Err: err.Error()})
				return nil
			}
			out.GE = append(out.GE, GEPayload{Letter: req.Letter, Courses: courses})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// only a cancelled parent context surfaces here
		return nil, err
	}

	// deterministic order regardless of unit completion order
	sort.Slice(out.Programs, func(i, j int) bool {
		if out.Programs[i].SchoolID != out.Programs[j].SchoolID {
			return out.Programs[i].SchoolID < out.Programs[j].SchoolID
		}
		return out.Programs[i].ProgramID < out.Programs[j].ProgramID
	})
	sort.Slice(out.GE, func(i, j int) bool { return out.GE[i].Letter < out.GE[j].Letter })
	sort.Slice(out.Failures, func(i, j int) bool { return out.Failures[i].Unit < out.Failures[j].Unit })

	e.Log.Info("Catalog extraction complete",
		"units_total", total+len(GERequirements()),
		"units_failed", len(out.Failures),
		"programs", len(out.Programs))
	return out, nil
}

// FetchProfessors refreshes the global rating snapshot. Failure is degraded
// by the caller to a warning, matching the independence of the two sources.
func (e *Extractor) FetchProfessors(ctx context.Context) ([]rmp.ProfessorRating, error) {
	rows, err := e.Ratings.AllProfessors(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch professor ratings: %w", err)
	}
	e.Log.Info("Professor ratings fetched", "professors", len(rows))
	return rows, nil
}
