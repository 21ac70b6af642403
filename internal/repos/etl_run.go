package repos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coursex/coursex-backend/internal/platform/logger"
	"github.com/coursex/coursex-backend/internal/types"
)

type EtlRunRepo interface {
	Start(ctx context.Context, semesterID int) (*types.EtlRun, error)
	Finish(ctx context.Context, runID uuid.UUID, status string, runErr error, counts map[string]int) error
	GetByID(ctx context.Context, runID uuid.UUID) (*types.EtlRun, error)
	ListRecent(ctx context.Context, limit int) ([]*types.EtlRun, error)
	LastSuccessCounts(ctx context.Context, semesterID int) (map[string]int, error)
}

type etlRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEtlRunRepo(db *gorm.DB, baseLog *logger.Logger) EtlRunRepo {
	return &etlRunRepo{
		db:  db,
		log: baseLog.With("repo", "EtlRunRepo"),
	}
}

// Start inserts the audit row before any pipeline work. Status begins as
// failure so a crash that never reaches Finish still reads as a failed run.
func (r *etlRunRepo) Start(ctx context.Context, semesterID int) (*types.EtlRun, error) {
	run := &types.EtlRun{
		RunID:      uuid.New(),
		SemesterID: semesterID,
		StartedAt:  time.Now().UTC(),
		Status:     types.EtlRunStatusFailure,
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Finish finalizes the row exactly once. A nil runErr with a success status
// clears the error column; counts marshal into the JSON counts column.
func (r *etlRunRepo) Finish(ctx context.Context, runID uuid.UUID, status string, runErr error, counts map[string]int) error {
	if runID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      status,
		"finished_at": now,
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}
	if counts != nil {
		raw, err := json.Marshal(counts)
		if err == nil {
			updates["counts"] = datatypes.JSON(raw)
		}
	}
	return r.db.WithContext(ctx).
		Model(&types.EtlRun{}).
		Where("run_id = ?", runID).
		Updates(updates).Error
}

func (r *etlRunRepo) GetByID(ctx context.Context, runID uuid.UUID) (*types.EtlRun, error) {
	var run types.EtlRun
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.RunID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

// LastSuccessCounts returns the previous successful run's counts for the
// semester, nil when there is no prior success.
func (r *etlRunRepo) LastSuccessCounts(ctx context.Context, semesterID int) (map[string]int, error) {
	var run types.EtlRun
	err := r.db.WithContext(ctx).
		Where("semester_id = ? AND status = ?", semesterID, types.EtlRunStatusSuccess).
		Order("started_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.RunID == uuid.Nil || len(run.Counts) == 0 {
		return nil, nil
	}
	counts := map[string]int{}
	if err := json.Unmarshal(run.Counts, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *etlRunRepo) ListRecent(ctx context.Context, limit int) ([]*types.EtlRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.EtlRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
