package task

import (
	"context"
	"errors"
	"time"

	"studiodesk/services/portfolio"
	"studiodesk/services/review"

	"gorm.io/gorm"
)

type ListParams struct {
	OwnerID     string
	ProjectID   string
	Status      review.Status
	IncludeDone bool
	AfterScore  *float64
	AfterID     string
	Limit       int
}

type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	Save(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]Task, error)

	// ListLive returns tasks that are not DONE and not in an archived project.
	ListLive(ctx context.Context) ([]Task, error)
	ListByProjects(ctx context.Context, projectIDs []string) ([]Task, error)
	UpdateScore(ctx context.Context, id string, u ScoreUpdate) error
	SetFrozenForLive(ctx context.Context, frozen bool) (int64, error)
	SaveTransition(ctx context.Context, t *Task, entry *review.AuditEntry) error

	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]User, error)
	SetCapacity(ctx context.Context, id string, atCapacity bool) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, t *Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// Save writes user-editable fields only; score columns belong to UpdateScore.
func (r *gormRepository) Save(ctx context.Context, t *Task) error {
	return r.db.WithContext(ctx).Model(t).
		Select(editableColumns).
		Updates(t).Error
}

var editableColumns = []string{
	"title", "description", "type", "priority", "status", "owner_id", "reviewer_id",
	"project_id", "start_date", "deadline", "emergency", "estimated_hours",
	"completed_at", "todo_since", "status_since", "is_frozen", "updated_at",
}

func (r *gormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, params ListParams) ([]Task, error) {
	query := r.db.WithContext(ctx).Model(&Task{})

	if params.OwnerID != "" {
		query = query.Where("owner_id = ?", params.OwnerID)
	}
	if params.ProjectID != "" {
		query = query.Where("project_id = ?", params.ProjectID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	} else if !params.IncludeDone {
		query = query.Where("status <> ?", review.StatusDone)
	}
	if params.AfterScore != nil && params.AfterID != "" {
		query = query.Where("(display_score < ? OR (display_score = ? AND id > ?))",
			*params.AfterScore, *params.AfterScore, params.AfterID)
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}

	var tasks []Task
	err := query.Order("display_score DESC, id ASC").Find(&tasks).Error
	return tasks, err
}

func (r *gormRepository) liveQuery(ctx context.Context) *gorm.DB {
	archived := r.db.Model(&portfolio.Project{}).Select("id").Where("archived = ?", true)
	return r.db.WithContext(ctx).Model(&Task{}).
		Where("status <> ?", review.StatusDone).
		Where("(project_id IS NULL OR project_id NOT IN (?))", archived)
}

func (r *gormRepository) ListLive(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := r.liveQuery(ctx).Order("id ASC").Find(&tasks).Error
	return tasks, err
}

func (r *gormRepository) ListByProjects(ctx context.Context, projectIDs []string) ([]Task, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	var tasks []Task
	err := r.db.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Order("id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *gormRepository) UpdateScore(ctx context.Context, id string, u ScoreUpdate) error {
	res := r.db.WithContext(ctx).Model(&Task{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"raw_score":       u.RawScore,
			"display_score":   u.DisplayScore,
			"score_breakdown": u.Breakdown,
			"scored_at":       u.ScoredAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetFrozenForLive freezes live tasks only. Unfreezing clears every frozen
// task so one closed or archived during the freeze cannot keep a stale flag.
func (r *gormRepository) SetFrozenForLive(ctx context.Context, frozen bool) (int64, error) {
	if !frozen {
		res := r.db.WithContext(ctx).Model(&Task{}).
			Where("is_frozen = ?", true).
			UpdateColumn("is_frozen", false)
		return res.RowsAffected, res.Error
	}
	res := r.liveQuery(ctx).UpdateColumn("is_frozen", true)
	return res.RowsAffected, res.Error
}

// SaveTransition persists a status change and its audit row atomically.
func (r *gormRepository) SaveTransition(ctx context.Context, t *Task, entry *review.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(t).Select(editableColumns).Updates(t).Error; err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		return review.NewAuditRepository(tx).Append(ctx, entry)
	})
}

func (r *gormRepository) CreateUser(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *gormRepository) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) GetUsers(ctx context.Context, ids []string) (map[string]User, error) {
	out := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *gormRepository) SetCapacity(ctx context.Context, id string, atCapacity bool) error {
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Updates(map[string]any{"at_capacity": atCapacity, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
