package cron

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, run *JobRun) error
	// Start marks a run as running, creating it when it was enqueued elsewhere.
	Start(ctx context.Context, run *JobRun) error
	Finish(ctx context.Context, id, status, errMsg string, metadata datatypes.JSON, at time.Time) error
	Get(ctx context.Context, id string) (*JobRun, error)
	ListRecent(ctx context.Context, job string, limit int) ([]JobRun, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, run *JobRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *gormRepository) Start(ctx context.Context, run *JobRun) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "started_at", "updated_at"}),
	}).Create(run).Error
}

func (r *gormRepository) Finish(ctx context.Context, id, status, errMsg string, metadata datatypes.JSON, at time.Time) error {
	updates := map[string]any{
		"status":       status,
		"error_msg":    errMsg,
		"completed_at": at,
	}
	if metadata != nil {
		updates["metadata"] = metadata
	}
	return r.db.WithContext(ctx).Model(&JobRun{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) Get(ctx context.Context, id string) (*JobRun, error) {
	var run JobRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *gormRepository) ListRecent(ctx context.Context, job string, limit int) ([]JobRun, error) {
	query := r.db.WithContext(ctx).Model(&JobRun{})
	if job != "" {
		query = query.Where("job = ?", job)
	}
	var runs []JobRun
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
