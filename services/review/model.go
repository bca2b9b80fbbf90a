package review

import (
	"time"
)

// AuditEntry records one status change. Rows are only ever inserted.
type AuditEntry struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	EntityType string    `gorm:"column:entity_type;type:varchar(20);index:idx_audit_entity;not null" json:"entity_type"`
	EntityID   string    `gorm:"column:entity_id;type:varchar(32);index:idx_audit_entity;not null" json:"entity_id"`
	FromStatus Status    `gorm:"column:from_status;type:varchar(20);not null" json:"from_status"`
	ToStatus   Status    `gorm:"column:to_status;type:varchar(20);not null" json:"to_status"`
	Requested  Status    `gorm:"column:requested;type:varchar(20)" json:"requested"`
	Actor      string    `gorm:"column:actor;type:varchar(64);not null" json:"actor"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (AuditEntry) TableName() string {
	return "review_audit_entries"
}

const EntityTask = "task"
