package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const sampleLimit = 5

// Check is one integrity rule's outcome over staging data.
type Check struct {
	Name   string   `json:"name"`
	Status string   `json:"status"` // pass|fail|error
	Count  int      `json:"count"`
	Sample []string `json:"sample,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Report is the full battery result. Promotion requires Status == "pass".
type Report struct {
	Status     string    `json:"status"`
	SemesterID int       `json:"semester_id"`
	CheckedAt  time.Time `json:"checked_at"`
	Checks     []Check   `json:"checks"`
}

func (r Report) Passed() bool { return r.Status == "pass" }

// Violations renders the failed checks as the audit error detail, e.g.
// "no-orphan-sections: COLT-999".
func (r Report) Violations() []string {
	var out []string
	for _, check := range r.Checks {
		if check.Status == "pass" {
			continue
		}
		if check.Error != "" {
			out = append(out, fmt.Sprintf("%s: %s", check.Name, check.Error))
			continue
		}
		detail := strings.Join(check.Sample, ", ")
		if detail == "" {
			detail = fmt.Sprintf("%d rows", check.Count)
		}
		out = append(out, fmt.Sprintf("%s: %s", check.Name, detail))
	}
	return out
}

// Validate runs the fixed check battery against staging for one semester.
// It is a pure read-only pass; it returns an error only when a check itself
// cannot be executed.
func Validate(ctx context.Context, db *gorm.DB, semesterID int) (Report, error) {
	report := Report{
		Status:     "pass",
		SemesterID: semesterID,
		CheckedAt:  time.Now().UTC(),
	}

	runners := []func(context.Context, *gorm.DB, int) (Check, error){
		checkOrphanSections,
		checkOrphanCourses,
		checkOrphanJunctions,
		checkProfessorReferences,
		checkNonEmptySemester,
	}
	for _, run := range runners {
		check, err := run(ctx, db, semesterID)
		if err != nil {
			return report, err
		}
		report.Checks = append(report.Checks, check)
		if check.Status != "pass" {
			report.Status = "fail"
		}
	}
	return report, nil
}

// checkOrphanSections: every section's (semester, course_id) must reference
// a staged course. The single most important rule.
func checkOrphanSections(ctx context.Context, db *gorm.DB, semesterID int) (Check, error) {
	check := Check{Name: "no-orphan-sections", Status: "pass"}
	var orphans []string
	err := db.WithContext(ctx).
		Table("staging_sections AS s").
		Select("DISTINCT s.course_id").
		Joins("LEFT JOIN staging_courses c ON c.semester_id = s.semester_id AND c.course_id = s.course_id").
		Where("s.semester_id = ?", semesterID).
		Where("c.course_id IS NULL").
		Order("s.course_id").
		Scan(&orphans).Error
	if err != nil {
		return check, fmt.Errorf("no-orphan-sections: %w", err)
	}
	return failIfAny(check, orphans), nil
}

// checkOrphanCourses: a course's program must exist in staging or already in
// production (programs are global and upserted).
func checkOrphanCourses(ctx context.Context, db *gorm.DB, semesterID int) (Check, error) {
	check := Check{Name: "no-orphan-courses", Status: "pass"}
	var orphans []string
	err := db.WithContext(ctx).
		Table("staging_courses AS c").
		Select("DISTINCT c.course_id").
		Joins("LEFT JOIN staging_programs sp ON sp.program_id = c.program_id").
		Joins("LEFT JOIN programs p ON p.program_id = c.program_id").
		Where("c.semester_id = ?", semesterID).
		Where("sp.program_id IS NULL AND p.program_id IS NULL").
		Order("c.course_id").
		Scan(&orphans).Error
	if err != nil {
		return check, fmt.Errorf("no-orphan-courses: %w", err)
	}
	return failIfAny(check, orphans), nil
}

// checkOrphanJunctions covers the four junction/annotation tables against
// their staged parent rows.
func checkOrphanJunctions(ctx context.Context, db *gorm.DB, semesterID int) (Check, error) {
	check := Check{Name: "no-orphan-junctions", Status: "pass"}

	type junction struct {
		table     string
		keyCol    string
		parent    string
		parentCol string
	}
	junctions := []junction{
		{table: "staging_section_instructors", keyCol: "section_id", parent: "staging_sections", parentCol: "section_id"},
		{table: "staging_course_ge_categories", keyCol: "course_id", parent: "staging_courses", parentCol: "course_id"},
		{table: "staging_section_prerequisites", keyCol: "section_id", parent: "staging_sections", parentCol: "section_id"},
		{table: "staging_section_duplicated_credits", keyCol: "section_id", parent: "staging_sections", parentCol: "section_id"},
	}

	for _, j := range junctions {
		var orphans []string
		err := db.WithContext(ctx).
			Table(j.table+" AS j").
			Select("DISTINCT j."+j.keyCol).
			Joins(fmt.Sprintf("LEFT JOIN %s p ON p.semester_id = j.semester_id AND p.%s = j.%s", j.parent, j.parentCol, j.keyCol)).
			Where("j.semester_id = ?", semesterID).
			Where(fmt.Sprintf("p.%s IS NULL", j.parentCol)).
			Scan(&orphans).Error
		if err != nil {
			return check, fmt.Errorf("no-orphan-junctions (%s): %w", j.table, err)
		}
		check.Count += len(orphans)
		for i, key := range orphans {
			if i >= sampleLimit {
				break
			}
			if len(check.Sample) < sampleLimit {
				check.Sample = append(check.Sample, j.table+"/"+key)
			}
		}
	}
	if check.Count > 0 {
		check.Status = "fail"
	}
	return check, nil
}

// checkProfessorReferences: every instructor name must resolve to a
// professor row in staging or production, since professors refresh
// independently of the catalog.
func checkProfessorReferences(ctx context.Context, db *gorm.DB, semesterID int) (Check, error) {
	check := Check{Name: "professor-references", Status: "pass"}
	var orphans []string
	err := db.WithContext(ctx).
		Table("staging_section_instructors AS si").
		Select("DISTINCT si.professor_name").
		Joins("LEFT JOIN staging_professors sp ON sp.professor_name = si.professor_name").
		Joins("LEFT JOIN professors p ON p.professor_name = si.professor_name").
		Where("si.semester_id = ?", semesterID).
		Where("sp.professor_name IS NULL AND p.professor_name IS NULL").
		Order("si.professor_name").
		Scan(&orphans).Error
	if err != nil {
		return check, fmt.Errorf("professor-references: %w", err)
	}
	return failIfAny(check, orphans), nil
}

// checkNonEmptySemester guards against a silent upstream outage promoting an
// empty snapshot over the live catalog.
func checkNonEmptySemester(ctx context.Context, db *gorm.DB, semesterID int) (Check, error) {
	check := Check{Name: "non-empty-semester", Status: "pass"}
	var courseCount, sectionCount int64
	if err := db.WithContext(ctx).Table("staging_courses").
		Where("semester_id = ?", semesterID).Count(&courseCount).Error; err != nil {
		return check, fmt.Errorf("non-empty-semester: %w", err)
	}
	if err := db.WithContext(ctx).Table("staging_sections").
		Where("semester_id = ?", semesterID).Count(&sectionCount).Error; err != nil {
		return check, fmt.Errorf("non-empty-semester: %w", err)
	}
	if courseCount == 0 || sectionCount == 0 {
		check.Status = "fail"
		check.Sample = []string{
			fmt.Sprintf("courses=%d", courseCount),
			fmt.Sprintf("sections=%d", sectionCount),
		}
	}
	return check, nil
}

func failIfAny(check Check, orphans []string) Check {
	check.Count = len(orphans)
	if len(orphans) == 0 {
		return check
	}
	check.Status = "fail"
	if len(orphans) > sampleLimit {
		orphans = orphans[:sampleLimit]
	}
	check.Sample = orphans
	return check
}
