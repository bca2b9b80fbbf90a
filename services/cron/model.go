package cron

import (
	"time"

	"gorm.io/datatypes"
)

const (
	JobRecalculate = "recalculate"
	JobHealthSweep = "health_sweep"
	JobFreeze      = "freeze"
)

const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

const (
	TriggerHTTP     = "http"
	TriggerSchedule = "schedule"
)

// JobRun is an execution record for one scheduled job.
type JobRun struct {
	ID          string         `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	Job         string         `gorm:"column:job;type:varchar(40);index;not null" json:"job"`
	Trigger     string         `gorm:"column:triggered_by;type:varchar(20);not null" json:"trigger"`
	Status      string         `gorm:"column:status;type:varchar(20);default:'pending'" json:"status"` // pending|running|success|failed
	ErrorMsg    string         `gorm:"column:error_msg;type:text" json:"error_msg,omitempty"`
	StartedAt   *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// FreezePayload is the body of a freeze sync task.
type FreezePayload struct {
	Frozen bool `json:"frozen"`
}
