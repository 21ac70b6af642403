package transform

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/coursex/coursex-backend/internal/clients/classapi"
	"github.com/coursex/coursex-backend/internal/clients/rmp"
	"github.com/coursex/coursex-backend/internal/etl/extract"
	pkgerrors "github.com/coursex/coursex-backend/internal/pkg/errors"
	"github.com/coursex/coursex-backend/internal/types"
)

// Batch is one coherent in-memory load set for a semester: every row the
// staging loader will write, already deduplicated and normalized.
type Batch struct {
	SemesterID        int
	Schools           []types.School
	Programs          []types.Program
	Courses           []types.Course
	Sections          []types.Section
	Instructors       []types.SectionInstructor
	GECategories      []types.CourseGECategory
	Prerequisites     []types.SectionPrerequisite
	DuplicatedCredits []types.SectionDuplicatedCredit
	ProfessorSeeds    []types.Professor
	Professors        []types.Professor
}

// Counts reports per-entity row counts for the audit record.
func (b *Batch) Counts() map[string]int {
	return map[string]int{
		"schools":                    len(b.Schools),
		"programs":                   len(b.Programs),
		"courses":                    len(b.Courses),
		"sections":                   len(b.Sections),
		"section_instructors":        len(b.Instructors),
		"course_ge_categories":       len(b.GECategories),
		"section_prerequisites":      len(b.Prerequisites),
		"section_duplicated_credits": len(b.DuplicatedCredits),
		"professor_seeds":            len(b.ProfessorSeeds),
		"professors":                 len(b.Professors),
	}
}

// sectionRecord is the per-section intermediate shape between raw course
// payloads and canonical rows.
type sectionRecord struct {
	SectionCode       string
	Type              string
	Units             string
	TotalSeats        int
	RegisteredSeats   int
	Location          string
	Time              string
	DClearance        bool
	Instructors       []string
	Prerequisites     []string
	DuplicatedCredits []string
}

// groupedCourse aggregates all sections sharing (title, description, code).
type groupedCourse struct {
	Title       string
	Description string
	CourseCode  string
	Sections    []sectionRecord
	GELetters   map[string]struct{}
	seenCodes   map[string]struct{}
}

type groupKey struct {
	title, description, code string
}

// Normalize maps the raw extraction into the canonical batch. Unit merge
// order never affects the result: groups are keyed and the emission walk is
// sorted.
func Normalize(semesterID int, cat *extract.Catalog) (*Batch, error) {
	if cat == nil || len(cat.Schools) == 0 {
		return nil, fmt.Errorf("normalize semester %d: empty school tree: %w", semesterID, pkgerrors.ErrMalformedRecord)
	}

	batch := &Batch{SemesterID: semesterID}

	programToSchool := map[string]string{}
	for _, school := range cat.Schools {
		if school.Prefix != "" && school.Name != "" {
			batch.Schools = append(batch.Schools, types.School{
				SchoolID:   school.Prefix,
				SchoolName: school.Name,
			})
		}
		for _, program := range school.Programs {
			if program.Prefix == "" || program.Name == "" || school.Prefix == "" {
				continue
			}
			batch.Programs = append(batch.Programs, types.Program{
				ProgramID:   program.Prefix,
				SchoolID:    school.Prefix,
				ProgramName: program.Name,
			})
			programToSchool[program.Prefix] = school.Prefix
		}
	}

	// school -> program -> grouped courses
	grouped := map[string]map[string][]*groupedCourse{}

	for _, unit := range cat.Programs {
		groups, err := aggregateCourses(unit.Courses, unit.ProgramID)
		if err != nil {
			return nil, err
		}
		byProgram, ok := grouped[unit.SchoolID]
		if !ok {
			byProgram = map[string][]*groupedCourse{}
			grouped[unit.SchoolID] = byProgram
		}
		byProgram[unit.ProgramID] = mergeGroups(byProgram[unit.ProgramID], groups, nil)
	}

	// GE courses merge into the main catalog so they exist even when the
	// owning program unit failed or never listed them.
	for _, payload := range cat.GE {
		for _, course := range payload.Courses {
			progPrefix := coursePrefix(course)
			schoolPrefix := programToSchool[progPrefix]
			if progPrefix == "" || schoolPrefix == "" {
				continue
			}
			groups, err := aggregateCourses([]classapi.Course{course}, progPrefix)
			if err != nil {
				return nil, err
			}
			byProgram, ok := grouped[schoolPrefix]
			if !ok {
				byProgram = map[string][]*groupedCourse{}
				grouped[schoolPrefix] = byProgram
			}
			byProgram[progPrefix] = mergeGroups(byProgram[progPrefix], groups, []string{payload.Letter})
		}
	}

	emitRows(batch, grouped)
	return batch, nil
}

// aggregateCourses groups a unit's raw courses by (title, description,
// code), deduplicating repeated section codes within a group.
func aggregateCourses(courses []classapi.Course, preferredPrefix string) ([]*groupedCourse, error) {
	byKey := map[groupKey]*groupedCourse{}
	var order []groupKey
	for _, course := range courses {
		items, err := processCourse(course, preferredPrefix)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			key := groupKey{title: item.group.Title, description: item.group.Description, code: item.group.CourseCode}
			g, ok := byKey[key]
			if !ok {
				g = &groupedCourse{
					Title:       item.group.Title,
					Description: item.group.Description,
					CourseCode:  item.group.CourseCode,
					GELetters:   map[string]struct{}{},
					seenCodes:   map[string]struct{}{},
				}
				byKey[key] = g
				order = append(order, key)
			}
			if _, dup := g.seenCodes[item.section.SectionCode]; dup && item.section.SectionCode != "" {
				continue
			}
			if item.section.SectionCode != "" {
				g.seenCodes[item.section.SectionCode] = struct{}{}
			}
			g.Sections = append(g.Sections, item.section)
		}
	}
	out := make([]*groupedCourse, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, nil
}

type processedItem struct {
	group   groupedCourse
	section sectionRecord
}

// processCourse flattens one raw course into per-section items. A section
// without a numeric section id is structural malformation: the snapshot
// cannot be keyed, so the whole run aborts rather than silently shrinking.
func processCourse(course classapi.Course, preferredPrefix string) ([]processedItem, error) {
	courseCode := NormalizeCourseCode(safeCourseCode(course, preferredPrefix))
	title := firstNonEmpty(
		course.Name,
		course.FullCourseName,
		publishedCourseSpace(course),
	)

	var prereqs []string
	for _, prereq := range course.PrerequisiteCourseCodes {
		if len(prereq.CourseOptions) == 0 {
			continue
		}
		if code := prereq.CourseOptions[0].CourseHyphen; code != "" {
			prereqs = append(prereqs, NormalizeCourseCode(code))
		}
	}
	dupCredits := SplitDuplicatedCredit(course.DuplicateCredit)

	items := make([]processedItem, 0, len(course.Sections))
	for _, section := range course.Sections {
		code := strings.TrimSpace(section.SisSectionID)
		if code == "" {
			return nil, fmt.Errorf("course %q: section with no section id: %w", courseCode, pkgerrors.ErrMalformedRecord)
		}
		if _, err := strconv.Atoi(code); err != nil {
			return nil, fmt.Errorf("course %q: non-numeric section id %q: %w", courseCode, code, pkgerrors.ErrMalformedRecord)
		}

		var instructors []string
		for _, instructor := range section.Instructors {
			full := normalizeWhitespace(instructor.FirstName + " " + instructor.LastName)
			if full != "" {
				instructors = append(instructors, full)
			}
		}

		sectionTitle := firstNonEmpty(section.Name, title)
		location := ""
		if len(section.Schedule) > 0 {
			location = section.Schedule[0].Location
		}

		items = append(items, processedItem{
			group: groupedCourse{
				Title:       sectionTitle,
				Description: course.Description,
				CourseCode:  courseCode,
			},
			section: sectionRecord{
				SectionCode:       code,
				Type:              MapSectionType(section.RnrMode),
				Units:             string(section.Units),
				TotalSeats:        section.TotalSeats,
				RegisteredSeats:   section.RegisteredSeats,
				Location:          location,
				Time:              FormatTimeSchedule(section.Schedule),
				DClearance:        section.HasDClearance,
				Instructors:       instructors,
				Prerequisites:     prereqs,
				DuplicatedCredits: dupCredits,
			},
		})
	}
	return items, nil
}

// mergeGroups folds src groups into dst, deduplicating section codes and
// unioning GE letters. Commutative over the order units arrive in.
func mergeGroups(dst, src []*groupedCourse, geLetters []string) []*groupedCourse {
	for _, g := range src {
		var target *groupedCourse
		for _, existing := range dst {
			if existing.Title == g.Title && existing.Description == g.Description && existing.CourseCode == g.CourseCode {
				target = existing
				break
			}
		}
		if target == nil {
			for _, letter := range geLetters {
				g.GELetters[letter] = struct{}{}
			}
			dst = append(dst, g)
			continue
		}
		for _, section := range g.Sections {
			if _, dup := target.seenCodes[section.SectionCode]; dup {
				continue
			}
			target.seenCodes[section.SectionCode] = struct{}{}
			target.Sections = append(target.Sections, section)
		}
		for letter := range g.GELetters {
			target.GELetters[letter] = struct{}{}
		}
		for _, letter := range geLetters {
			target.GELetters[letter] = struct{}{}
		}
	}
	return dst
}

// emitRows walks the grouped catalog in sorted order and emits canonical
// rows with term-wide dedup of junction and annotation triples.
func emitRows(batch *Batch, grouped map[string]map[string][]*groupedCourse) {
	semesterID := batch.SemesterID

	seenCourses := map[string]struct{}{}
	seenInstructors := map[string]struct{}{}
	seenGE := map[string]struct{}{}
	seenPrereqs := map[string]struct{}{}
	seenDupCredits := map[string]struct{}{}
	seenProfessors := map[string]struct{}{}
	seenSections := map[int]struct{}{}

	schoolIDs := sortedKeys(grouped)
	for _, schoolID := range schoolIDs {
		byProgram := grouped[schoolID]
		programIDs := sortedKeys(byProgram)
		for _, programID := range programIDs {
			groups := byProgram[programID]

			codeCounts := map[string]int{}
			for _, g := range groups {
				if g.CourseCode != "" {
					codeCounts[g.CourseCode]++
				}
			}

			for _, g := range groups {
				if g.CourseCode == "" || g.Title == "" {
					continue
				}
				finalCourseID := g.CourseCode
				if codeCounts[g.CourseCode] > 1 {
					finalCourseID = g.CourseCode + "-" + titleHash(g.Title)
				}

				if _, dup := seenCourses[finalCourseID]; !dup {
					seenCourses[finalCourseID] = struct{}{}
					batch.Courses = append(batch.Courses, types.Course{
						SemesterID:   semesterID,
						CourseID:     finalCourseID,
						ProgramID:    programID,
						CourseNumber: CourseNumberFromCode(g.CourseCode),
						Title:        g.Title,
						Description:  g.Description,
					})
				}

				for _, letter := range sortedSet(g.GELetters) {
					geKey := finalCourseID + "\x00" + letter
					if _, dup := seenGE[geKey]; dup {
						continue
					}
					seenGE[geKey] = struct{}{}
					batch.GECategories = append(batch.GECategories, types.CourseGECategory{
						SemesterID: semesterID,
						CourseID:   finalCourseID,
						GECategory: letter,
					})
				}

				for _, section := range g.Sections {
					sectionID, err := strconv.Atoi(section.SectionCode)
					if err != nil {
						continue // filtered earlier; keep the walk total
					}
					if _, dup := seenSections[sectionID]; dup {
						continue
					}
					seenSections[sectionID] = struct{}{}

					batch.Sections = append(batch.Sections, types.Section{
						SemesterID:         semesterID,
						SectionID:          sectionID,
						CourseID:           finalCourseID,
						SectionType:        section.Type,
						Units:              section.Units,
						TotalSeats:         section.TotalSeats,
						RegisteredSeats:    section.RegisteredSeats,
						Location:           section.Location,
						TimeSchedule:       section.Time,
						DClearanceRequired: section.DClearance,
					})

					for _, name := range section.Instructors {
						ikey := strconv.Itoa(sectionID) + "\x00" + strings.ToLower(name)
						if _, dup := seenInstructors[ikey]; dup {
							continue
						}
						seenInstructors[ikey] = struct{}{}
						batch.Instructors = append(batch.Instructors, types.SectionInstructor{
							SemesterID:    semesterID,
							SectionID:     sectionID,
							ProfessorName: name,
						})
						if _, dup := seenProfessors[name]; !dup {
							seenProfessors[name] = struct{}{}
							batch.ProfessorSeeds = append(batch.ProfessorSeeds, types.Professor{ProfessorName: name})
						}
					}

					for _, text := range section.Prerequisites {
						pkey := strconv.Itoa(sectionID) + "\x00" + strings.ToLower(text)
						if _, dup := seenPrereqs[pkey]; dup {
							continue
						}
						seenPrereqs[pkey] = struct{}{}
						batch.Prerequisites = append(batch.Prerequisites, types.SectionPrerequisite{
							SemesterID:       semesterID,
							SectionID:        sectionID,
							PrerequisiteText: text,
						})
					}

					for _, text := range section.DuplicatedCredits {
						dkey := strconv.Itoa(sectionID) + "\x00" + strings.ToLower(text)
						if _, dup := seenDupCredits[dkey]; dup {
							continue
						}
						seenDupCredits[dkey] = struct{}{}
						batch.DuplicatedCredits = append(batch.DuplicatedCredits, types.SectionDuplicatedCredit{
							SemesterID:     semesterID,
							SectionID:      sectionID,
							DuplicatedText: text,
						})
					}
				}
			}
		}
	}
}

// RatingsToProfessors maps rating snapshots onto professor rows.
func RatingsToProfessors(rows []rmp.ProfessorRating) []types.Professor {
	out := make([]types.Professor, 0, len(rows))
	seen := map[string]struct{}{}
	for _, row := range rows {
		name := normalizeWhitespace(row.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, types.Professor{
			ProfessorName:       name,
			RmpID:               row.RmpID,
			Difficulty:          row.Difficulty,
			Rating:              row.Rating,
			RatingCount:         row.RatingCount,
			TakeAgainPercentage: row.TakeAgainPercentage,
		})
	}
	return out
}

// titleHash disambiguates course ids when the same code appears with
// different titles within one program.
func titleHash(title string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(title))))
	return hex.EncodeToString(sum[:])[:6]
}

func publishedCourseSpace(course classapi.Course) string {
	if course.PublishedCourseCode != nil {
		return course.PublishedCourseCode.CourseSpace
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
