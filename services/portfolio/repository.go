package portfolio

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	CreateClient(ctx context.Context, c *Client) error
	GetClient(ctx context.Context, id string) (*Client, error)
	ListClients(ctx context.Context, includeArchived bool) ([]Client, error)
	ArchiveClient(ctx context.Context, id string, at time.Time) error

	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, includeArchived bool) ([]Project, error)
	ListProjectsByClient(ctx context.Context, clientID string) ([]Project, error)
	ArchiveProject(ctx context.Context, id string, at time.Time) error

	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	MarkInvoicePaid(ctx context.Context, id string, at time.Time) error
	ListInvoicesByClient(ctx context.Context, clientID string) ([]Invoice, error)

	SlugExists(ctx context.Context, model any, slug string) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateClient(ctx context.Context, c *Client) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *gormRepository) GetClient(ctx context.Context, id string) (*Client, error) {
	var c Client
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) ListClients(ctx context.Context, includeArchived bool) ([]Client, error) {
	query := r.db.WithContext(ctx).Model(&Client{})
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}

	var clients []Client
	err := query.Order("id ASC").Find(&clients).Error
	return clients, err
}

func (r *gormRepository) ArchiveClient(ctx context.Context, id string, at time.Time) error {
	return r.archive(ctx, &Client{}, id, at)
}

func (r *gormRepository) CreateProject(ctx context.Context, p *Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *gormRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) ListProjects(ctx context.Context, includeArchived bool) ([]Project, error) {
	query := r.db.WithContext(ctx).Model(&Project{})
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}

	var projects []Project
	err := query.Order("id ASC").Find(&projects).Error
	return projects, err
}

func (r *gormRepository) ListProjectsByClient(ctx context.Context, clientID string) ([]Project, error) {
	var projects []Project
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND archived = ?", clientID, false).
		Order("id ASC").
		Find(&projects).Error
	return projects, err
}

func (r *gormRepository) ArchiveProject(ctx context.Context, id string, at time.Time) error {
	return r.archive(ctx, &Project{}, id, at)
}

func (r *gormRepository) archive(ctx context.Context, model any, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(model).
		Where("id = ?", id).
		Updates(map[string]any{"archived": true, "archived_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormRepository) CreateInvoice(ctx context.Context, inv *Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *gormRepository) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormRepository) MarkInvoicePaid(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{"paid": true, "paid_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormRepository) ListInvoicesByClient(ctx context.Context, clientID string) ([]Invoice, error) {
	var invoices []Invoice
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("due_date ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *gormRepository) SlugExists(ctx context.Context, model any, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(model).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}
