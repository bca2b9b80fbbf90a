package health

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Get(ctx context.Context, entityType EntityType, entityID string) (*HealthScore, error)
	Upsert(ctx context.Context, score *HealthScore) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Get(ctx context.Context, entityType EntityType, entityID string) (*HealthScore, error) {
	var hs HealthScore
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		First(&hs).Error
	if err != nil {
		return nil, err
	}
	return &hs, nil
}

// Upsert replaces the stored result; concurrent writers converge on the last one.
func (r *gormRepository) Upsert(ctx context.Context, score *HealthScore) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"overall", "grade", "previous_overall", "trend", "factors", "computed_at"}),
	}).Create(score).Error
}
