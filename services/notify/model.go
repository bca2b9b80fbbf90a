package notify

import (
	"time"

	"gorm.io/datatypes"
)

// DeliverPayload is the background payload for one notification.
type DeliverPayload struct {
	UserID  string         `json:"user_id"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

type Notification struct {
	ID        string         `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	UserID    string         `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	Kind      string         `gorm:"column:kind;type:varchar(40);not null" json:"kind"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	ReadAt    *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
