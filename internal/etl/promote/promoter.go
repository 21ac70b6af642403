package promote

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coursex/coursex-backend/internal/platform/logger"
	"github.com/coursex/coursex-backend/internal/types"
)

// Promoter copies validated staging data into production. The entire
// promotion is one transaction: readers see the fully-old or fully-new
// semester snapshot, never anything between.
type Promoter struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPromoter(db *gorm.DB, baseLog *logger.Logger) *Promoter {
	return &Promoter{db: db, log: baseLog.With("component", "Promoter")}
}

type Options struct {
	SemesterID int
	// ProfessorsRefreshed gates the metric upsert; seed names are always
	// promoted so instructor references resolve.
	ProfessorsRefreshed bool
	// Activate flips the single-active-semester flag to this semester
	// inside the same transaction.
	Activate bool
}

func (p *Promoter) Promote(ctx context.Context, opts Options) error {
	semesterID := opts.SemesterID

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meta := types.SemesterMeta(semesterID)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "semester_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"semester_name", "year", "term"}),
		}).Create(&meta).Error; err != nil {
			return fmt.Errorf("ensure semester: %w", err)
		}

		// global upserts from staging
		if err := tx.Exec(`
			INSERT INTO schools (school_id, school_name)
			SELECT school_id, school_name FROM staging_schools WHERE true
			ON CONFLICT (school_id) DO UPDATE SET school_name = excluded.school_name
		`).Error; err != nil {
			return fmt.Errorf("promote schools: %w", err)
		}
		if err := tx.Exec(`
			INSERT INTO programs (program_id, school_id, program_name)
			SELECT program_id, school_id, program_name FROM staging_programs WHERE true
			ON CONFLICT (program_id) DO UPDATE SET school_id = excluded.school_id, program_name = excluded.program_name
		`).Error; err != nil {
			return fmt.Errorf("promote programs: %w", err)
		}

		if opts.ProfessorsRefreshed {
			if err := tx.Exec(`
				INSERT INTO professors (professor_name, rmp_id, difficulty, rating, rating_count, take_again_percentage)
				SELECT professor_name, rmp_id, difficulty, rating, rating_count, take_again_percentage
				FROM staging_professors WHERE true
				ON CONFLICT (professor_name) DO UPDATE SET
					rmp_id = excluded.rmp_id,
					difficulty = excluded.difficulty,
					rating = excluded.rating,
					rating_count = excluded.rating_count,
					take_again_percentage = excluded.take_again_percentage
			`).Error; err != nil {
				return fmt.Errorf("promote professors: %w", err)
			}
		} else {
			// keep existing metrics; only guarantee referenced names exist
			if err := tx.Exec(`
				INSERT INTO professors (professor_name, rmp_id, difficulty, rating, rating_count, take_again_percentage)
				SELECT professor_name, rmp_id, difficulty, rating, rating_count, take_again_percentage
				FROM staging_professors WHERE true
				ON CONFLICT (professor_name) DO NOTHING
			`).Error; err != nil {
				return fmt.Errorf("promote professor seeds: %w", err)
			}
		}

		// delete in dependency order, then rebuild from staging
		for _, table := range []string{
			"section_duplicated_credits",
			"section_prerequisites",
			"section_instructors",
			"course_ge_categories",
			"sections",
			"courses",
		} {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE semester_id = ?", table), semesterID).Error; err != nil {
				return fmt.Errorf("clear production %s: %w", table, err)
			}
		}

		copies := []struct {
			dst  string
			cols string
		}{
			{"courses", "semester_id, course_id, program_id, course_number, title, description"},
			{"sections", "semester_id, section_id, course_id, section_type, units, total_seats, registered_seats, location, time_schedule, d_clearance_required"},
			{"section_instructors", "semester_id, section_id, professor_name"},
			{"course_ge_categories", "semester_id, course_id, ge_category"},
			{"section_prerequisites", "semester_id, section_id, prerequisite_text"},
			{"section_duplicated_credits", "semester_id, section_id, duplicated_text"},
		}
		for _, c := range copies {
			stmt := fmt.Sprintf(
				"INSERT INTO %s (%s) SELECT %s FROM staging_%s WHERE semester_id = ?",
				c.dst, c.cols, c.cols, c.dst,
			)
			if err := tx.Exec(stmt, semesterID).Error; err != nil {
				return fmt.Errorf("promote %s: %w", c.dst, err)
			}
		}

		if opts.Activate {
			if err := activate(tx, semesterID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.log.Info("Promotion committed", "semester_id", semesterID, "activated", opts.Activate)
	return nil
}

// ActivateSemester flips the active flag to the given semester on its own,
// still clear-then-set inside one transaction.
func (p *Promoter) ActivateSemester(ctx context.Context, semesterID int) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return activate(tx, semesterID)
	})
}

func activate(tx *gorm.DB, semesterID int) error {
	res := tx.Model(&types.Semester{}).Where("semester_id = ?", semesterID).Update("is_active", true)
	if res.Error != nil {
		return fmt.Errorf("activate semester %d: %w", semesterID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("activate semester %d: no such semester", semesterID)
	}
	if err := tx.Model(&types.Semester{}).
		Where("semester_id <> ?", semesterID).
		Where("is_active = ?", true).
		Update("is_active", false).Error; err != nil {
		return fmt.Errorf("clear active semester: %w", err)
	}
	return nil
}
