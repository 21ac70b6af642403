package staging

import (
	"context"
	"testing"

	"github.com/coursex/coursex-backend/internal/etl/testutil"
	"github.com/coursex/coursex-backend/internal/etl/transform"
	"github.com/coursex/coursex-backend/internal/types"
)

func testBatch(semesterID int) *transform.Batch {
	num := 103
	return &transform.Batch{
		SemesterID: semesterID,
		Schools:    []types.School{{SchoolID: "ENGR", SchoolName: "Viterbi School of Engineering"}},
		Programs:   []types.Program{{ProgramID: "CSCI", SchoolID: "ENGR", ProgramName: "Computer Science"}},
		Courses: []types.Course{{
			SemesterID:   semesterID,
			CourseID:     "CSCI-103",
			ProgramID:    "CSCI",
			CourseNumber: &num,
			Title:        "Introduction to Programming",
		}},
		Sections: []types.Section{{
			SemesterID:   semesterID,
			SectionID:    29903,
			CourseID:     "CSCI-103",
			SectionType:  types.SectionTypeLecture,
			Units:        "4",
			TotalSeats:   90,
			TimeSchedule: "MW 10:00 - 11:50",
		}},
		Instructors: []types.SectionInstructor{{
			SemesterID:    semesterID,
			SectionID:     29903,
			ProfessorName: "Andrew Goodney",
		}},
		ProfessorSeeds: []types.Professor{{ProfessorName: "Andrew Goodney"}},
	}
}

func TestLoaderLoadAndCounts(t *testing.T) {
	db := testutil.DB(t)
	loader := NewLoader(db, testutil.Logger(t))
	ctx := context.Background()

	counts, err := loader.Load(ctx, testBatch(20261))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if counts["staging_courses"] != 1 || counts["staging_sections"] != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	var courses int64
	if err := db.Table("staging_courses").Where("semester_id = ?", 20261).Count(&courses).Error; err != nil {
		t.Fatalf("count staging courses: %v", err)
	}
	if courses != 1 {
		t.Fatalf("expected 1 staged course, got %d", courses)
	}
	var seeds []types.StagingProfessor
	if err := db.Find(&seeds).Error; err != nil {
		t.Fatalf("read staged professors: %v", err)
	}
	if len(seeds) != 1 || seeds[0].ProfessorName != "Andrew Goodney" {
		t.Fatalf("unexpected staged professors %+v", seeds)
	}
}

func TestLoaderSeedsNeverClobberMetrics(t *testing.T) {
	db := testutil.DB(t)
	loader := NewLoader(db, testutil.Logger(t))
	ctx := context.Background()

	rating := 4.2
	batch := testBatch(20261)
	batch.Professors = []types.Professor{{ProfessorName: "Andrew Goodney", Rating: &rating}}

	if _, err := loader.Load(ctx, batch); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var prof types.StagingProfessor
	if err := db.Where("professor_name = ?", "Andrew Goodney").First(&prof).Error; err != nil {
		t.Fatalf("read professor: %v", err)
	}
	if prof.Rating == nil || *prof.Rating != 4.2 {
		t.Fatalf("seed insert overwrote rating metrics: %+v", prof)
	}
}

func TestLoaderFullReplaceDropsStaleRows(t *testing.T) {
	db := testutil.DB(t)
	loader := NewLoader(db, testutil.Logger(t))
	ctx := context.Background()

	if _, err := loader.Load(ctx, testBatch(20261)); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// second run: the course disappeared upstream
	next := testBatch(20261)
	next.Courses[0].CourseID = "CSCI-104"
	next.Courses[0].Title = "Data Structures"
	next.Sections[0].SectionID = 30101
	next.Sections[0].CourseID = "CSCI-104"
	next.Instructors[0].SectionID = 30101

	if _, err := loader.Load(ctx, next); err != nil {
		t.Fatalf("second load: %v", err)
	}

	var ids []string
	if err := db.Table("staging_courses").
		Where("semester_id = ?", 20261).
		Order("course_id").
		Pluck("course_id", &ids).Error; err != nil {
		t.Fatalf("read staged course ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "CSCI-104" {
		t.Fatalf("stale staged rows survived full replace: %v", ids)
	}
}

func TestLoaderScopesReplaceToSemester(t *testing.T) {
	db := testutil.DB(t)
	loader := NewLoader(db, testutil.Logger(t))
	ctx := context.Background()

	if _, err := loader.Load(ctx, testBatch(20253)); err != nil {
		t.Fatalf("load 20253: %v", err)
	}
	if _, err := loader.Load(ctx, testBatch(20261)); err != nil {
		t.Fatalf("load 20261: %v", err)
	}

	var count int64
	if err := db.Table("staging_courses").Where("semester_id = ?", 20253).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("other semester's staging rows were touched, count=%d", count)
	}
}

func TestLoaderClear(t *testing.T) {
	db := testutil.DB(t)
	loader := NewLoader(db, testutil.Logger(t))
	ctx := context.Background()

	if _, err := loader.Load(ctx, testBatch(20261)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := loader.Clear(ctx, 20261); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	var count int64
	if err := db.Table("staging_sections").Where("semester_id = ?", 20261).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cleared staging, got %d rows", count)
	}
}
