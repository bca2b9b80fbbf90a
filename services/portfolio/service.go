package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studiodesk/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugAttempts = 50

type Service struct {
	repo Repository
	node *snowflake.Node
	now  func() time.Time
}

type Params struct {
	fx.In
	Repository Repository
	Node       *snowflake.Node
}

func NewService(p Params) *Service {
	return &Service{
		repo: p.Repository,
		node: p.Node,
		now:  time.Now,
	}
}

type CreateClientRequest struct {
	Name string `json:"name"`
}

type CreateProjectRequest struct {
	Name        string   `json:"name"`
	ClientID    *string  `json:"client_id"`
	BudgetHours *float64 `json:"budget_hours"`
}

type CreateInvoiceRequest struct {
	ClientID string    `json:"client_id"`
	Number   string    `json:"number"`
	Amount   float64   `json:"amount"`
	DueDate  time.Time `json:"due_date"`
	Paid     bool      `json:"paid"`
}

func (s *Service) CreateClient(ctx context.Context, req CreateClientRequest) (*Client, error) {
	var v errutil.Validator
	v.Check(strings.TrimSpace(req.Name) != "", "name", "is required")
	if err := v.Err(); err != nil {
		return nil, err
	}

	sl, err := s.uniqueSlug(ctx, &Client{}, req.Name)
	if err != nil {
		return nil, err
	}

	c := &Client{
		ID:   s.node.Generate().String(),
		Name: strings.TrimSpace(req.Name),
		Slug: sl,
	}
	if err := s.repo.CreateClient(ctx, c); err != nil {
		zap.L().Error("failed to create client", zap.Error(err))
		return nil, errutil.Internal("failed to create client", err)
	}
	return c, nil
}

func (s *Service) GetClient(ctx context.Context, id string) (*Client, error) {
	c, err := s.repo.GetClient(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "client")
	}
	return c, nil
}

func (s *Service) ArchiveClient(ctx context.Context, id string) (*Client, error) {
	if err := s.repo.ArchiveClient(ctx, id, s.now()); err != nil {
		return nil, notFoundOr(err, "client")
	}
	return s.GetClient(ctx, id)
}

func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	var v errutil.Validator
	v.Check(strings.TrimSpace(req.Name) != "", "name", "is required")
	v.Check(req.BudgetHours == nil || *req.BudgetHours >= 0, "budget_hours", "must not be negative")
	if err := v.Err(); err != nil {
		return nil, err
	}

	if req.ClientID != nil && *req.ClientID != "" {
		c, err := s.GetClient(ctx, *req.ClientID)
		if err != nil {
			return nil, err
		}
		if c.Archived {
			return nil, errutil.ValidationFailed("client is archived", nil,
				errutil.WithDetails(errutil.Detail{Field: "client_id", Message: "is archived"}))
		}
	} else {
		req.ClientID = nil
	}

	sl, err := s.uniqueSlug(ctx, &Project{}, req.Name)
	if err != nil {
		return nil, err
	}

	p := &Project{
		ID:          s.node.Generate().String(),
		ClientID:    req.ClientID,
		Name:        strings.TrimSpace(req.Name),
		Slug:        sl,
		BudgetHours: req.BudgetHours,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		zap.L().Error("failed to create project", zap.Error(err))
		return nil, errutil.Internal("failed to create project", err)
	}
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "project")
	}
	return p, nil
}

func (s *Service) ArchiveProject(ctx context.Context, id string) (*Project, error) {
	if err := s.repo.ArchiveProject(ctx, id, s.now()); err != nil {
		return nil, notFoundOr(err, "project")
	}
	return s.GetProject(ctx, id)
}

func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	var v errutil.Validator
	v.Check(req.ClientID != "", "client_id", "is required")
	v.Check(req.Amount > 0, "amount", "must be positive")
	v.Check(!req.DueDate.IsZero(), "due_date", "is required")
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := s.GetClient(ctx, req.ClientID); err != nil {
		return nil, err
	}

	id := s.node.Generate()
	number := strings.TrimSpace(req.Number)
	if number == "" {
		number = fmt.Sprintf("INV-%s", id.Base36())
	}

	inv := &Invoice{
		ID:       id.String(),
		ClientID: req.ClientID,
		Number:   number,
		Amount:   req.Amount,
		DueDate:  req.DueDate,
		Paid:     req.Paid,
	}
	if req.Paid {
		now := s.now()
		inv.PaidAt = &now
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		zap.L().Error("failed to create invoice", zap.Error(err))
		return nil, errutil.Internal("failed to create invoice", err)
	}
	return inv, nil
}

func (s *Service) MarkInvoicePaid(ctx context.Context, id string) (*Invoice, error) {
	if err := s.repo.MarkInvoicePaid(ctx, id, s.now()); err != nil {
		return nil, notFoundOr(err, "invoice")
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "invoice")
	}
	return inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, clientID string) ([]Invoice, error) {
	if _, err := s.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	invoices, err := s.repo.ListInvoicesByClient(ctx, clientID)
	if err != nil {
		return nil, errutil.Internal("failed to list invoices", err)
	}
	return invoices, nil
}

// uniqueSlug derives a slug from name, suffixing -2, -3... on collision.
func (s *Service) uniqueSlug(ctx context.Context, model any, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "untitled"
	}

	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.repo.SlugExists(ctx, model, candidate)
		if err != nil {
			return "", errutil.Internal("failed to check slug", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	return "", errutil.Conflict("could not allocate a unique slug", nil,
		errutil.WithDetails(errutil.Detail{Field: "name", Message: "too many records share this name"}))
}

func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errutil.NotFound(entity+" not found", err)
	}
	return errutil.Internal("failed to load "+entity, err)
}
