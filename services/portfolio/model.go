package portfolio

import (
	"time"
)

type Client struct {
	ID         string     `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Name       string     `gorm:"column:name;type:varchar(150);not null" json:"name"`
	Slug       string     `gorm:"column:slug;type:varchar(160);uniqueIndex;not null" json:"slug"`
	Archived   bool       `gorm:"column:archived;default:false;index" json:"archived"`
	ArchivedAt *time.Time `gorm:"column:archived_at" json:"archived_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type Project struct {
	ID          string     `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	ClientID    *string    `gorm:"column:client_id;type:varchar(32);index" json:"client_id,omitempty"`
	Name        string     `gorm:"column:name;type:varchar(150);not null" json:"name"`
	Slug        string     `gorm:"column:slug;type:varchar(160);uniqueIndex;not null" json:"slug"`
	BudgetHours *float64   `gorm:"column:budget_hours" json:"budget_hours,omitempty"`
	Archived    bool       `gorm:"column:archived;default:false;index" json:"archived"`
	ArchivedAt  *time.Time `gorm:"column:archived_at" json:"archived_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type Invoice struct {
	ID        string     `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	ClientID  string     `gorm:"column:client_id;type:varchar(32);index;not null" json:"client_id"`
	Number    string     `gorm:"column:number;type:varchar(40);uniqueIndex;not null" json:"number"`
	Amount    float64    `gorm:"column:amount;not null" json:"amount"`
	DueDate   time.Time  `gorm:"column:due_date;not null" json:"due_date"`
	Paid      bool       `gorm:"column:paid;default:false" json:"paid"`
	PaidAt    *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Overdue reports whether the invoice is unpaid past its due date at now.
func (i Invoice) Overdue(now time.Time) bool {
	return !i.Paid && now.After(i.DueDate)
}
