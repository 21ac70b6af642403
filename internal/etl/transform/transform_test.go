package transform

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/coursex/coursex-backend/internal/clients/classapi"
	"github.com/coursex/coursex-backend/internal/etl/extract"
	pkgerrors "github.com/coursex/coursex-backend/internal/pkg/errors"
)

func testCatalog() *extract.Catalog {
	return &extract.Catalog{
		Schools: []classapi.School{
			{
				Name:   "Viterbi School of Engineering",
				Prefix: "ENGR",
				Programs: []classapi.Program{
					{Name: "Computer Science", Prefix: "CSCI"},
				},
			},
		},
	}
}

func rawCourse(code, title string, sections ...classapi.Section) classapi.Course {
	prefix := strings.SplitN(code, "-", 2)[0]
	return classapi.Course{
		Name:                title,
		ScheduledCourseCode: &classapi.CourseCode{Prefix: prefix, CourseHyphen: code},
		Sections:            sections,
	}
}

func rawSection(id, mode string, instructors ...string) classapi.Section {
	s := classapi.Section{SisSectionID: id, RnrMode: mode, Units: "4", TotalSeats: 30}
	for _, name := range instructors {
		parts := strings.SplitN(name, " ", 2)
		inst := classapi.Instructor{FirstName: parts[0]}
		if len(parts) > 1 {
			inst.LastName = parts[1]
		}
		s.Instructors = append(s.Instructors, inst)
	}
	return s
}

func TestNormalizeGroupsCoursesAndSeedsProfessors(t *testing.T) {
	cat := testCatalog()
	cat.Programs = []extract.ProgramCourses{
		{
			SchoolID:  "ENGR",
			ProgramID: "CSCI",
			Courses: []classapi.Course{
				rawCourse("CSCI-103", "Introduction to Programming",
					rawSection("29903", "Lecture", "Andrew Goodney"),
					rawSection("29904", "Lab", "Andrew Goodney"),
				),
			},
		},
	}

	batch, err := Normalize(20261, cat)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(batch.Courses) != 1 {
		t.Fatalf("expected 1 course, got %d", len(batch.Courses))
	}
	course := batch.Courses[0]
	if course.CourseID != "CSCI-103" || course.ProgramID != "CSCI" {
		t.Fatalf("unexpected course row %+v", course)
	}
	if course.CourseNumber == nil || *course.CourseNumber != 103 {
		t.Fatalf("expected course number 103, got %v", course.CourseNumber)
	}
	if len(batch.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(batch.Sections))
	}
	// same professor across two sections seeds exactly once
	if len(batch.ProfessorSeeds) != 1 || batch.ProfessorSeeds[0].ProfessorName != "Andrew Goodney" {
		t.Fatalf("unexpected professor seeds %+v", batch.ProfessorSeeds)
	}
	if len(batch.Instructors) != 2 {
		t.Fatalf("expected 2 instructor rows, got %d", len(batch.Instructors))
	}
}

func TestNormalizeDeduplicatesSectionsAcrossUnits(t *testing.T) {
	course := rawCourse("CSCI-270", "Algorithms", rawSection("30201", "Lecture"))

	cat := testCatalog()
	cat.Programs = []extract.ProgramCourses{
		{SchoolID: "ENGR", ProgramID: "CSCI", Courses: []classapi.Course{course}},
	}
	cat.GE = []extract.GEPayload{
		{Letter: "F", Courses: []classapi.Course{course}},
	}

	batch, err := Normalize(20261, cat)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(batch.Courses) != 1 {
		t.Fatalf("expected 1 course after merge, got %d", len(batch.Courses))
	}
	if len(batch.Sections) != 1 {
		t.Fatalf("expected 1 section after dedupe, got %d", len(batch.Sections))
	}
	if len(batch.GECategories) != 1 || batch.GECategories[0].GECategory != "F" {
		t.Fatalf("expected GE category F, got %+v", batch.GECategories)
	}
}

func TestNormalizeDisambiguatesSharedCourseCode(t *testing.T) {
	cat := testCatalog()
	cat.Programs = []extract.ProgramCourses{
		{
			SchoolID:  "ENGR",
			ProgramID: "CSCI",
			Courses: []classapi.Course{
				rawCourse("CSCI-499", "Special Topics: Robotics", rawSection("30301", "Lecture")),
				rawCourse("CSCI-499", "Special Topics: Compilers", rawSection("30302", "Lecture")),
			},
		},
	}

	batch, err := Normalize(20261, cat)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(batch.Courses) != 2 {
		t.Fatalf("expected 2 disambiguated courses, got %d", len(batch.Courses))
	}
	seen := map[string]bool{}
	for _, c := range batch.Courses {
		if !strings.HasPrefix(c.CourseID, "CSCI-499-") {
			t.Fatalf("expected hash-suffixed id, got %q", c.CourseID)
		}
		if seen[c.CourseID] {
			t.Fatalf("duplicate course id %q", c.CourseID)
		}
		seen[c.CourseID] = true
		// the numeric part survives the suffix
		if c.CourseNumber == nil || *c.CourseNumber != 499 {
			t.Fatalf("expected course number 499, got %v", c.CourseNumber)
		}
	}
}

func TestNormalizeGEMergeOrderIndependent(t *testing.T) {
	course := rawCourse("CSCI-104", "Data Structures", rawSection("30101", "Lecture"))

	build := func(letters []string) *extract.Catalog {
		cat := testCatalog()
		cat.Programs = []extract.ProgramCourses{
			{SchoolID: "ENGR", ProgramID: "CSCI", Courses: []classapi.Course{course}},
		}
		for _, letter := range letters {
			cat.GE = append(cat.GE, extract.GEPayload{Letter: letter, Courses: []classapi.Course{course}})
		}
		return cat
	}

	a, err := Normalize(20261, build([]string{"B", "E"}))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	b, err := Normalize(20261, build([]string{"E", "B"}))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !reflect.DeepEqual(a.GECategories, b.GECategories) {
		t.Fatalf("GE merge depends on unit order: %+v vs %+v", a.GECategories, b.GECategories)
	}
	if len(a.GECategories) != 2 {
		t.Fatalf("expected 2 GE categories, got %d", len(a.GECategories))
	}
}

func TestNormalizeRejectsStructuralMalformation(t *testing.T) {
	if _, err := Normalize(20261, nil); !errors.Is(err, pkgerrors.ErrMalformedRecord) {
		t.Fatalf("nil catalog: expected ErrMalformedRecord, got %v", err)
	}
	if _, err := Normalize(20261, &extract.Catalog{}); !errors.Is(err, pkgerrors.ErrMalformedRecord) {
		t.Fatalf("empty school tree: expected ErrMalformedRecord, got %v", err)
	}

	cat := testCatalog()
	cat.Programs = []extract.ProgramCourses{
		{
			SchoolID:  "ENGR",
			ProgramID: "CSCI",
			Courses: []classapi.Course{
				rawCourse("CSCI-103", "Introduction to Programming", rawSection("notanumber", "Lecture")),
			},
		},
	}
	if _, err := Normalize(20261, cat); !errors.Is(err, pkgerrors.ErrMalformedRecord) {
		t.Fatalf("non-numeric section id: expected ErrMalformedRecord, got %v", err)
	}
}
