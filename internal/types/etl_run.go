package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EtlRunStatusSuccess = "success"
	EtlRunStatusFailure = "failure"
)

// EtlRun is the per-invocation audit record. A row is created at run start
// (pessimistically marked failure) and finalized exactly once at run end.
type EtlRun struct {
	RunID      uuid.UUID      `gorm:"column:run_id;type:uuid;primaryKey" json:"run_id"`
	SemesterID int            `gorm:"column:semester_id;not null;index" json:"semester_id"`
	StartedAt  time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Status     string         `gorm:"column:status;not null;index" json:"status"` // success|failure
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	Counts     datatypes.JSON `gorm:"column:counts" json:"counts"`
}

func (EtlRun) TableName() string { return "etl_runs" }
