package task

import (
	"time"

	"studiodesk/services/review"

	"gorm.io/datatypes"
)

type Type string

const (
	TypeClient   Type = "CLIENT"
	TypeInternal Type = "INTERNAL"
	TypeAdmin    Type = "ADMIN"
	TypeResearch Type = "RESEARCH"
)

var Types = []Type{TypeClient, TypeInternal, TypeAdmin, TypeResearch}

// Priority follows the urgent/important matrix, most pressing first.
type Priority string

const (
	PriorityUrgentImportant       Priority = "URGENT_IMPORTANT"
	PriorityImportantNotUrgent    Priority = "IMPORTANT_NOT_URGENT"
	PriorityUrgentNotImportant    Priority = "URGENT_NOT_IMPORTANT"
	PriorityNotUrgentNotImportant Priority = "NOT_URGENT_NOT_IMPORTANT"
)

var Priorities = []Priority{
	PriorityUrgentImportant,
	PriorityImportantNotUrgent,
	PriorityUrgentNotImportant,
	PriorityNotUrgentNotImportant,
}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

type Task struct {
	ID             string        `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Code           string        `gorm:"column:code;type:varchar(20);uniqueIndex;not null" json:"code"`
	Title          string        `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Description    string        `gorm:"column:description;type:text" json:"description"`
	Type           Type          `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Priority       Priority      `gorm:"column:priority;type:varchar(40);not null" json:"priority"`
	Status         review.Status `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	OwnerID        string        `gorm:"column:owner_id;type:varchar(32);index;not null" json:"owner_id"`
	ReviewerID     *string       `gorm:"column:reviewer_id;type:varchar(32)" json:"reviewer_id,omitempty"`
	ProjectID      *string       `gorm:"column:project_id;type:varchar(32);index" json:"project_id,omitempty"`
	StartDate      time.Time     `gorm:"column:start_date;not null" json:"start_date"`
	Deadline       time.Time     `gorm:"column:deadline;not null" json:"deadline"`
	Emergency      bool          `gorm:"column:emergency;default:false" json:"emergency"`
	EstimatedHours *float64      `gorm:"column:estimated_hours" json:"estimated_hours,omitempty"`
	CompletedAt    *time.Time    `gorm:"column:completed_at" json:"completed_at,omitempty"`

	// TodoSince is set only while Status is TODO.
	TodoSince   *time.Time `gorm:"column:todo_since" json:"todo_since,omitempty"`
	StatusSince time.Time  `gorm:"column:status_since;not null" json:"status_since"`
	IsFrozen    bool       `gorm:"column:is_frozen;default:false" json:"is_frozen"`

	// Derived by the scorer, never written from requests.
	RawScore       float64        `gorm:"column:raw_score;default:0" json:"raw_score"`
	DisplayScore   float64        `gorm:"column:display_score;default:0;index" json:"display_score"`
	ScoreBreakdown datatypes.JSON `gorm:"column:score_breakdown" json:"-"`
	ScoredAt       *time.Time     `gorm:"column:scored_at" json:"scored_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasReviewer reports whether a reviewer other than nobody is assigned.
func (t *Task) HasReviewer() bool {
	return t.ReviewerID != nil && *t.ReviewerID != ""
}

// AgingAnchor is the instant the task entered its current waiting state.
func (t *Task) AgingAnchor() time.Time {
	if t.Status == review.StatusTodo && t.TodoSince != nil {
		return *t.TodoSince
	}
	return t.StatusSince
}

type User struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Name       string    `gorm:"column:name;type:varchar(120);not null" json:"name"`
	Email      string    `gorm:"column:email;type:varchar(200);uniqueIndex;not null" json:"email"`
	AtCapacity bool      `gorm:"column:at_capacity;default:false" json:"at_capacity"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ScoreUpdate is the set of derived fields written by one scoring pass.
type ScoreUpdate struct {
	RawScore     float64
	DisplayScore float64
	Breakdown    datatypes.JSON
	ScoredAt     time.Time
}

const (
	CalendarActionUpsert = "upsert"
	CalendarActionDelete = "delete"
)

// CalendarSyncPayload is the background payload for calendar mirroring.
type CalendarSyncPayload struct {
	TaskID string `json:"task_id"`
	Action string `json:"action"`
}
