package etl

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/coursex/coursex-backend/internal/clients/classapi"
	"github.com/coursex/coursex-backend/internal/clients/rmp"
	"github.com/coursex/coursex-backend/internal/etl/extract"
	"github.com/coursex/coursex-backend/internal/etl/testutil"
	"github.com/coursex/coursex-backend/internal/types"
)

type fakeCatalog struct {
	schools    []classapi.School
	schoolsErr error
	programErr map[string]error
	courses    map[string][]classapi.Course
}

func (f *fakeCatalog) SchoolsByTerm(ctx context.Context, termCode string) ([]classapi.School, error) {
	if f.schoolsErr != nil {
		return nil, f.schoolsErr
	}
	return f.schools, nil
}

func (f *fakeCatalog) ProgramCourses(ctx context.Context, termCode, school, program string) ([]classapi.Course, error) {
	key := school + "/" + program
	if err := f.programErr[key]; err != nil {
		return nil, err
	}
	return f.courses[key], nil
}

func (f *fakeCatalog) GECourses(ctx context.Context, termCode, requirementPrefix, categoryPrefix string) ([]classapi.Course, error) {
	return nil, nil
}

type fakeRatings struct {
	rows []rmp.ProfessorRating
	err  error
}

func (f *fakeRatings) AllProfessors(ctx context.Context) ([]rmp.ProfessorRating, error) {
	return f.rows, f.err
}

func healthyCatalog() *fakeCatalog {
	section := classapi.Section{
		SisSectionID: "29903",
		RnrMode:      "Lecture",
		Units:        "4",
		TotalSeats:   90,
		Instructors:  []classapi.Instructor{{FirstName: "Andrew", LastName: "Goodney"}},
	}
	return &fakeCatalog{
		schools: []classapi.School{
			{
				Name:   "Viterbi School of Engineering",
				Prefix: "ENGR",
				Programs: []classapi.Program{
					{Name: "Computer Science", Prefix: "CSCI"},
					{Name: "Electrical Engineering", Prefix: "EE"},
				},
			},
		},
		programErr: map[string]error{},
		courses: map[string][]classapi.Course{
			"ENGR/CSCI": {{
				Name:                "Introduction to Programming",
				ScheduledCourseCode: &classapi.CourseCode{Prefix: "CSCI", CourseHyphen: "CSCI-103"},
				Sections:            []classapi.Section{section},
			}},
			"ENGR/EE": {{
				Name:                "Circuits",
				ScheduledCourseCode: &classapi.CourseCode{Prefix: "EE", CourseHyphen: "EE-202"},
				Sections: []classapi.Section{{
					SisSectionID: "30501",
					RnrMode:      "Lecture",
					Units:        "4",
				}},
			}},
		},
	}
}

func newTestPipeline(t *testing.T, db *gorm.DB, catalog *fakeCatalog, ratings *fakeRatings) *Pipeline {
	t.Helper()
	log := testutil.Logger(t)
	extractor := extract.New(catalog, ratings, log, 4)
	return NewPipeline(db, extractor, log)
}

func countRows(t *testing.T, db *gorm.DB, table string, semesterID int) int64 {
	t.Helper()
	var n int64
	if err := db.Table(table).Where("semester_id = ?", semesterID).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestPipelineCleanRun(t *testing.T) {
	db := testutil.DB(t)
	rating := 4.4
	ratings := &fakeRatings{rows: []rmp.ProfessorRating{{Name: "Andrew Goodney", Rating: &rating}}}
	p := newTestPipeline(t, db, healthyCatalog(), ratings)

	result, err := p.Run(context.Background(), Options{SemesterID: 20261, UpdateProfessors: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != types.EtlRunStatusSuccess {
		t.Fatalf("expected success, got %q", result.Status)
	}
	if result.Counts["courses"] != 2 || result.Counts["sections"] != 2 {
		t.Fatalf("unexpected counts %+v", result.Counts)
	}

	if n := countRows(t, db, "courses", 20261); n != 2 {
		t.Fatalf("expected 2 production courses, got %d", n)
	}
	// staging cleared after successful promotion
	if n := countRows(t, db, "staging_courses", 20261); n != 0 {
		t.Fatalf("expected cleared staging, got %d rows", n)
	}

	var prof types.Professor
	if err := db.Where("professor_name = ?", "Andrew Goodney").First(&prof).Error; err != nil {
		t.Fatalf("read professor: %v", err)
	}
	if prof.Rating == nil || *prof.Rating != 4.4 {
		t.Fatalf("expected refreshed rating, got %+v", prof)
	}

	var run types.EtlRun
	if err := db.Where("run_id = ?", result.RunID).First(&run).Error; err != nil {
		t.Fatalf("read run: %v", err)
	}
	if run.Status != types.EtlRunStatusSuccess || run.FinishedAt == nil {
		t.Fatalf("audit row not finalized: %+v", run)
	}
}

func TestPipelineUnitFailureDoesNotFailRun(t *testing.T) {
	db := testutil.DB(t)
	catalog := healthyCatalog()
	catalog.programErr["ENGR/EE"] = errors.New("HTTP 502")
	p := newTestPipeline(t, db, catalog, &fakeRatings{})

	result, err := p.Run(context.Background(), Options{SemesterID: 20261})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != types.EtlRunStatusSuccess {
		t.Fatalf("expected success despite unit failure, got %q", result.Status)
	}
	if result.Counts["units_failed"] != 1 {
		t.Fatalf("expected 1 failed unit recorded, got %d", result.Counts["units_failed"])
	}
	// the failed unit's course is simply absent
	if n := countRows(t, db, "courses", 20261); n != 1 {
		t.Fatalf("expected 1 course from surviving unit, got %d", n)
	}
}

func TestPipelineDryRunLeavesProductionUntouched(t *testing.T) {
	db := testutil.DB(t)
	p := newTestPipeline(t, db, healthyCatalog(), &fakeRatings{})

	result, err := p.Run(context.Background(), Options{SemesterID: 20261, DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != types.EtlRunStatusSuccess {
		t.Fatalf("expected success, got %q", result.Status)
	}

	if n := countRows(t, db, "courses", 20261); n != 0 {
		t.Fatalf("dry run wrote production rows: %d", n)
	}
	// staging retains the run's data for inspection
	if n := countRows(t, db, "staging_courses", 20261); n != 2 {
		t.Fatalf("expected staged rows after dry run, got %d", n)
	}
}

func TestPipelineEmptyExtractionFailsValidation(t *testing.T) {
	db := testutil.DB(t)
	catalog := healthyCatalog()
	catalog.courses = map[string][]classapi.Course{}
	p := newTestPipeline(t, db, catalog, &fakeRatings{})

	result, err := p.Run(context.Background(), Options{SemesterID: 20261})
	if err == nil {
		t.Fatal("expected run failure for empty extraction")
	}
	if !strings.Contains(err.Error(), "non-empty-semester") {
		t.Fatalf("expected non-empty-semester violation, got %v", err)
	}
	if result.Status != types.EtlRunStatusFailure {
		t.Fatalf("expected failure status, got %q", result.Status)
	}
	if n := countRows(t, db, "courses", 20261); n != 0 {
		t.Fatalf("failed run must not touch production, got %d rows", n)
	}

	var run types.EtlRun
	if err := db.Where("run_id = ?", result.RunID).First(&run).Error; err != nil {
		t.Fatalf("read run: %v", err)
	}
	if run.Status != types.EtlRunStatusFailure || run.Error == "" {
		t.Fatalf("audit row missing failure detail: %+v", run)
	}
}

func TestPipelineRatingsFailureDegrades(t *testing.T) {
	db := testutil.DB(t)
	p := newTestPipeline(t, db, healthyCatalog(), &fakeRatings{err: errors.New("graphql down")})

	result, err := p.Run(context.Background(), Options{SemesterID: 20261, UpdateProfessors: true})
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if result.Status != types.EtlRunStatusSuccess {
		t.Fatalf("expected success, got %q", result.Status)
	}

	// the seed row exists so instructor references resolve, but carries no metrics
	var prof types.Professor
	if err := db.Where("professor_name = ?", "Andrew Goodney").First(&prof).Error; err != nil {
		t.Fatalf("read professor: %v", err)
	}
	if prof.Rating != nil {
		t.Fatalf("expected no metrics after degraded refresh, got %+v", prof)
	}
}

func TestPipelineSchoolListFailureIsFatal(t *testing.T) {
	db := testutil.DB(t)
	p := newTestPipeline(t, db, &fakeCatalog{schoolsErr: errors.New("upstream down")}, &fakeRatings{})

	result, err := p.Run(context.Background(), Options{SemesterID: 20261})
	if err == nil {
		t.Fatal("expected fatal error")
	}
	if !strings.Contains(err.Error(), "extract") {
		t.Fatalf("expected extract stage error, got %v", err)
	}
	if result.Status != types.EtlRunStatusFailure {
		t.Fatalf("expected failure status, got %q", result.Status)
	}
}

func TestPipelineRejectsInvalidSemester(t *testing.T) {
	db := testutil.DB(t)
	p := newTestPipeline(t, db, healthyCatalog(), &fakeRatings{})

	if _, err := p.Run(context.Background(), Options{SemesterID: 0}); err == nil {
		t.Fatal("expected error for missing semester id")
	}
}
