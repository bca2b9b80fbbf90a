package health

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"studiodesk/pkg/config"
	"studiodesk/pkg/errutil"
	"studiodesk/services/portfolio"
	"studiodesk/services/task"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Score is the API view of a computed health result.
type Score struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Overall    int        `json:"overall"`
	Grade      string     `json:"grade"`
	Trend      int        `json:"trend"`
	Factors    Factors    `json:"factors"`
	ComputedAt time.Time  `json:"computed_at"`
}

type SweepReport struct {
	Projects int           `json:"projects"`
	Clients  int           `json:"clients"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type Service struct {
	repo        Repository
	tasks       task.Repository
	portfolio   portfolio.Repository
	node        *snowflake.Node
	rubric      Rubric
	concurrency int
	group       singleflight.Group
	now         func() time.Time
}

type Params struct {
	fx.In
	Config     *config.Config
	Repository Repository
	Tasks      task.Repository
	Portfolio  portfolio.Repository
	Node       *snowflake.Node
	Clock      func() time.Time `optional:"true"`
}

func NewService(p Params) *Service {
	now := p.Clock
	if now == nil {
		now = time.Now
	}
	concurrency := p.Config.Health.SweepConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		repo:        p.Repository,
		tasks:       p.Tasks,
		portfolio:   p.Portfolio,
		node:        p.Node,
		rubric:      RubricFromConfig(p.Config),
		concurrency: concurrency,
		now:         now,
	}
}

func logger(ctx context.Context) *zap.Logger {
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return zap.L()
	}
	return zap.L().With(
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
	)
}

// ComputeProject recomputes and stores a project's health. Concurrent calls
// for the same project share one computation.
func (s *Service) ComputeProject(ctx context.Context, id string) (*Score, error) {
	return s.compute(ctx, EntityProject, id, func(ctx context.Context) (Snapshot, error) {
		p, err := s.portfolio.GetProject(ctx, id)
		if err != nil {
			return Snapshot{}, notFoundOr(err, "project not found")
		}
		return s.snapshot(ctx, []portfolio.Project{*p}, nil)
	})
}

// ComputeClient recomputes and stores a client's health across its live
// projects and invoices.
func (s *Service) ComputeClient(ctx context.Context, id string) (*Score, error) {
	return s.compute(ctx, EntityClient, id, func(ctx context.Context) (Snapshot, error) {
		if _, err := s.portfolio.GetClient(ctx, id); err != nil {
			return Snapshot{}, notFoundOr(err, "client not found")
		}
		projects, err := s.portfolio.ListProjectsByClient(ctx, id)
		if err != nil {
			return Snapshot{}, errutil.Internal("failed to load client projects", err)
		}
		invoices, err := s.portfolio.ListInvoicesByClient(ctx, id)
		if err != nil {
			return Snapshot{}, errutil.Internal("failed to load client invoices", err)
		}
		return s.snapshot(ctx, projects, invoices)
	})
}

func (s *Service) compute(ctx context.Context, kind EntityType, id string, load func(context.Context) (Snapshot, error)) (*Score, error) {
	v, err, _ := s.group.Do(string(kind)+":"+id, func() (any, error) {
		// Shared by every waiter, so one caller going away must not cancel it.
		shared := context.WithoutCancel(ctx)
		snap, err := load(shared)
		if err != nil {
			return nil, err
		}
		return s.persist(shared, kind, id, Evaluate(snap, s.rubric, s.now()))
	})
	if err != nil {
		computations.WithLabelValues(string(kind), "failed").Inc()
		return nil, err
	}
	computations.WithLabelValues(string(kind), "computed").Inc()
	return v.(*Score), nil
}

func (s *Service) snapshot(ctx context.Context, projects []portfolio.Project, invoices []portfolio.Invoice) (Snapshot, error) {
	var snap Snapshot
	ids := make([]string, 0, len(projects))
	budgeted := make(map[string]bool, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
		if p.BudgetHours != nil && *p.BudgetHours > 0 {
			budgeted[p.ID] = true
			total := *p.BudgetHours
			if snap.BudgetHours != nil {
				total += *snap.BudgetHours
			}
			snap.BudgetHours = &total
		}
	}

	tasks, err := s.tasks.ListByProjects(ctx, ids)
	if err != nil {
		return snap, errutil.Internal("failed to load tasks", err)
	}

	owners := make([]string, 0, len(tasks))
	for _, t := range tasks {
		owners = append(owners, t.OwnerID)
	}
	users, err := s.tasks.GetUsers(ctx, owners)
	if err != nil {
		return snap, errutil.Internal("failed to load owners", err)
	}

	for _, t := range tasks {
		snap.Tasks = append(snap.Tasks, TaskFacts{
			Status:          t.Status,
			Deadline:        t.Deadline,
			CompletedAt:     t.CompletedAt,
			OwnerID:         t.OwnerID,
			EstimatedHours:  t.EstimatedHours,
			OwnerAtCapacity: users[t.OwnerID].AtCapacity,
		})
		if t.ProjectID != nil && budgeted[*t.ProjectID] && t.EstimatedHours != nil {
			snap.BudgetedEstimate += *t.EstimatedHours
		}
	}
	for _, inv := range invoices {
		snap.Invoices = append(snap.Invoices, InvoiceFacts{DueDate: inv.DueDate, Paid: inv.Paid})
	}
	return snap, nil
}

// persist keeps exactly one prior value so trend can be derived.
func (s *Service) persist(ctx context.Context, kind EntityType, id string, res Result) (*Score, error) {
	now := s.now()
	factors, err := json.Marshal(res.Factors)
	if err != nil {
		return nil, errutil.Internal("failed to encode factors", err)
	}

	hs := &HealthScore{
		ID:         s.node.Generate().String(),
		EntityType: kind,
		EntityID:   id,
		Overall:    res.Overall,
		Grade:      res.Grade,
		Factors:    factors,
		ComputedAt: now,
	}

	prev, err := s.repo.Get(ctx, kind, id)
	switch {
	case err == nil:
		hs.ID = prev.ID
		previous := prev.Overall
		hs.PreviousOverall = &previous
		hs.Trend = res.Overall - previous
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errutil.Internal("failed to load previous health", err)
	}

	if err := s.repo.Upsert(ctx, hs); err != nil {
		logger(ctx).Error("failed to store health score",
			zap.String("entity_type", string(kind)),
			zap.String("entity_id", id),
			zap.Error(err),
		)
		return nil, errutil.Internal("failed to store health score", err)
	}

	return &Score{
		EntityType: kind,
		EntityID:   id,
		Overall:    res.Overall,
		Grade:      res.Grade,
		Trend:      hs.Trend,
		Factors:    res.Factors,
		ComputedAt: now,
	}, nil
}

// Sweep recomputes every non-archived project and client. Failures are
// logged and counted without aborting the sweep.
func (s *Service) Sweep(ctx context.Context) (SweepReport, error) {
	start := time.Now()

	projects, err := s.portfolio.ListProjects(ctx, false)
	if err != nil {
		return SweepReport{}, errutil.Internal("failed to list projects", err)
	}
	clients, err := s.portfolio.ListClients(ctx, false)
	if err != nil {
		return SweepReport{}, errutil.Internal("failed to list clients", err)
	}

	failed := make(chan string, len(projects)+len(clients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	run := func(kind EntityType, id string, fn func(context.Context, string) (*Score, error)) {
		g.Go(func() error {
			if _, err := fn(gctx, id); err != nil {
				logger(ctx).Warn("health computation failed",
					zap.String("entity_type", string(kind)),
					zap.String("entity_id", id),
					zap.Error(err),
				)
				failed <- id
			}
			return nil
		})
	}
	for _, p := range projects {
		run(EntityProject, p.ID, s.ComputeProject)
	}
	for _, c := range clients {
		run(EntityClient, c.ID, s.ComputeClient)
	}
	_ = g.Wait()
	close(failed)

	report := SweepReport{
		Projects: len(projects),
		Clients:  len(clients),
		Failed:   len(failed),
		Duration: time.Since(start),
	}
	sweepDuration.Observe(report.Duration.Seconds())
	logger(ctx).Info("health sweep finished",
		zap.Int("projects", report.Projects),
		zap.Int("clients", report.Clients),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *Service) HandleSweepTask(ctx context.Context, _ *asynq.Task) error {
	_, err := s.Sweep(ctx)
	return err
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errutil.NotFound(msg, err)
	}
	return errutil.Internal(msg, err)
}
