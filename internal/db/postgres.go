package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/coursex/coursex-backend/internal/platform/envutil"
	"github.com/coursex/coursex-backend/internal/platform/logger"
	"github.com/coursex/coursex-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "coursex")
	sslmode := envutil.String("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)

	serviceLog.Info("Connecting to Postgres...", "host", host, "database", name)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect to Postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

// AutoMigrateAll creates the production tables, their staging mirrors, and
// the etl_runs audit table.
func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating catalog tables...")
	return Migrate(s.db)
}

// Migrate is split out so tests can run the same schema against an
// in-memory database.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&types.Semester{},
		&types.School{},
		&types.Program{},
		&types.Professor{},
		&types.Course{},
		&types.Section{},
		&types.SectionInstructor{},
		&types.CourseGECategory{},
		&types.SectionPrerequisite{},
		&types.SectionDuplicatedCredit{},
		&types.StagingSchool{},
		&types.StagingProgram{},
		&types.StagingProfessor{},
		&types.StagingCourse{},
		&types.StagingSection{},
		&types.StagingSectionInstructor{},
		&types.StagingCourseGECategory{},
		&types.StagingSectionPrerequisite{},
		&types.StagingSectionDuplicatedCredit{},
		&types.EtlRun{},
	)
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
