package health

import (
	"time"

	"gorm.io/datatypes"
)

type EntityType string

const (
	EntityProject EntityType = "project"
	EntityClient  EntityType = "client"
)

// HealthScore keeps the latest result per entity and exactly one prior value.
type HealthScore struct {
	ID              string         `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	EntityType      EntityType     `gorm:"column:entity_type;type:varchar(20);uniqueIndex:idx_health_entity;not null" json:"entity_type"`
	EntityID        string         `gorm:"column:entity_id;type:varchar(32);uniqueIndex:idx_health_entity;not null" json:"entity_id"`
	Overall         int            `gorm:"column:overall;not null" json:"overall"`
	Grade           string         `gorm:"column:grade;type:varchar(1);not null" json:"grade"`
	PreviousOverall *int           `gorm:"column:previous_overall" json:"previous_overall,omitempty"`
	Trend           int            `gorm:"column:trend;not null;default:0" json:"trend"`
	Factors         datatypes.JSON `gorm:"column:factors" json:"factors"`
	ComputedAt      time.Time      `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (HealthScore) TableName() string {
	return "health_scores"
}
