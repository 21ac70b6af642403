package staging

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coursex/coursex-backend/internal/etl/transform"
	"github.com/coursex/coursex-backend/internal/platform/logger"
	"github.com/coursex/coursex-backend/internal/types"
)

const insertBatchSize = 500

// Loader replaces the staging tables' contents with one transformed batch.
// The whole replace runs in a single transaction so the validator never sees
// a mixture of two runs' data.
type Loader struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLoader(db *gorm.DB, baseLog *logger.Logger) *Loader {
	return &Loader{db: db, log: baseLog.With("component", "StagingLoader")}
}

// Load writes the batch and returns per-table row counts.
func (l *Loader) Load(ctx context.Context, batch *transform.Batch) (map[string]int, error) {
	if batch == nil {
		return nil, fmt.Errorf("staging load: nil batch")
	}
	counts := map[string]int{}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// global entities: upsert, never semester-scoped
		if err := upsert(tx, wrap(batch.Schools, func(r types.School) types.StagingSchool {
			return types.StagingSchool{School: r}
		}), conflictUpdate([]string{"school_id"}, "school_name")); err != nil {
			return fmt.Errorf("staging schools: %w", err)
		}
		if err := upsert(tx, wrap(batch.Programs, func(r types.Program) types.StagingProgram {
			return types.StagingProgram{Program: r}
		}), conflictUpdate([]string{"program_id"}, "school_id", "program_name")); err != nil {
			return fmt.Errorf("staging programs: %w", err)
		}

		// rating rows first so the name-only seeds below never clobber metrics
		if err := upsert(tx, wrap(batch.Professors, func(r types.Professor) types.StagingProfessor {
			return types.StagingProfessor{Professor: r}
		}), conflictUpdate([]string{"professor_name"},
			"rmp_id", "difficulty", "rating", "rating_count", "take_again_percentage")); err != nil {
			return fmt.Errorf("staging professors: %w", err)
		}
		if err := upsert(tx, wrap(batch.ProfessorSeeds, func(r types.Professor) types.StagingProfessor {
			return types.StagingProfessor{Professor: r}
		}), clause.OnConflict{DoNothing: true}); err != nil {
			return fmt.Errorf("staging professor seeds: %w", err)
		}

		// semester-scoped staging is a full replace
		for _, model := range []interface{}{
			&types.StagingSectionDuplicatedCredit{},
			&types.StagingSectionPrerequisite{},
			&types.StagingSectionInstructor{},
			&types.StagingCourseGECategory{},
			&types.StagingSection{},
			&types.StagingCourse{},
		} {
			if err := tx.Where("semester_id = ?", batch.SemesterID).Delete(model).Error; err != nil {
				return fmt.Errorf("clear staging: %w", err)
			}
		}

		if err := upsert(tx, wrap(batch.Courses, func(r types.Course) types.StagingCourse {
			return types.StagingCourse{Course: r}
		}), conflictUpdate([]string{"semester_id", "course_id"},
			"program_id", "course_number", "title", "description")); err != nil {
			return fmt.Errorf("staging courses: %w", err)
		}
		if err := upsert(tx, wrap(batch.Sections, func(r types.Section) types.StagingSection {
			return types.StagingSection{Section: r}
		}), conflictUpdate([]string{"semester_id", "section_id"},
			"course_id", "section_type", "units", "total_seats", "registered_seats",
			"location", "time_schedule", "d_clearance_required")); err != nil {
			return fmt.Errorf("staging sections: %w", err)
		}
		if err := upsert(tx, wrap(batch.Instructors, func(r types.SectionInstructor) types.StagingSectionInstructor {
			return types.StagingSectionInstructor{SectionInstructor: r}
		}), clause.OnConflict{DoNothing: true}); err != nil {
			return fmt.Errorf("staging section instructors: %w", err)
		}
		if err := upsert(tx, wrap(batch.GECategories, func(r types.CourseGECategory) types.StagingCourseGECategory {
			return types.StagingCourseGECategory{CourseGECategory: r}
		}), clause.OnConflict{DoNothing: true}); err != nil {
			return fmt.Errorf("staging GE categories: %w", err)
		}
		if err := upsert(tx, wrap(batch.Prerequisites, func(r types.SectionPrerequisite) types.StagingSectionPrerequisite {
			return types.StagingSectionPrerequisite{SectionPrerequisite: r}
		}), clause.OnConflict{DoNothing: true}); err != nil {
			return fmt.Errorf("staging prerequisites: %w", err)
		}
		if err := upsert(tx, wrap(batch.DuplicatedCredits, func(r types.SectionDuplicatedCredit) types.StagingSectionDuplicatedCredit {
			return types.StagingSectionDuplicatedCredit{SectionDuplicatedCredit: r}
		}), clause.OnConflict{DoNothing: true}); err != nil {
			return fmt.Errorf("staging duplicated credits: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	counts["staging_schools"] = len(batch.Schools)
	counts["staging_programs"] = len(batch.Programs)
	counts["staging_professors"] = len(batch.Professors)
	counts["staging_professor_seeds"] = len(batch.ProfessorSeeds)
	counts["staging_courses"] = len(batch.Courses)
	counts["staging_sections"] = len(batch.Sections)
	counts["staging_section_instructors"] = len(batch.Instructors)
	counts["staging_course_ge_categories"] = len(batch.GECategories)
	counts["staging_section_prerequisites"] = len(batch.Prerequisites)
	counts["staging_section_duplicated_credits"] = len(batch.DuplicatedCredits)

	l.log.Info("Staging load complete",
		"semester_id", batch.SemesterID,
		"courses", counts["staging_courses"],
		"sections", counts["staging_sections"])
	return counts, nil
}

// Clear drops the semester's staging rows; the loader also runs this after
// a successful promotion so staging never outlives its run.
func (l *Loader) Clear(ctx context.Context, semesterID int) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&types.StagingSectionDuplicatedCredit{},
			&types.StagingSectionPrerequisite{},
			&types.StagingSectionInstructor{},
			&types.StagingCourseGECategory{},
			&types.StagingSection{},
			&types.StagingCourse{},
		} {
			if err := tx.Where("semester_id = ?", semesterID).Delete(model).Error; err != nil {
				return fmt.Errorf("clear staging: %w", err)
			}
		}
		return nil
	})
}

func conflictUpdate(conflictCols []string, updateCols ...string) clause.OnConflict {
	cols := make([]clause.Column, 0, len(conflictCols))
	for _, c := range conflictCols {
		cols = append(cols, clause.Column{Name: c})
	}
	return clause.OnConflict{
		Columns:   cols,
		DoUpdates: clause.AssignmentColumns(updateCols),
	}
}

func upsert[S any](tx *gorm.DB, rows []S, onConflict clause.OnConflict) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(onConflict).CreateInBatches(rows, insertBatchSize).Error
}

func wrap[P, S any](rows []P, mk func(P) S) []S {
	out := make([]S, 0, len(rows))
	for _, r := range rows {
		out = append(out, mk(r))
	}
	return out
}
