package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studiodesk/pkg/asynq"
	"studiodesk/pkg/errutil"
	"studiodesk/pkg/freeze"
	"studiodesk/pkg/middleware"
	"studiodesk/pkg/sequence"
	queue "studiodesk/pkg/task"
	"studiodesk/pkg/taskname"
	"studiodesk/services/notify"
	"studiodesk/services/portfolio"
	"studiodesk/services/review"

	"github.com/bwmarrin/snowflake"
	hibiken "github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Recalculator rescores a single task synchronously.
type Recalculator interface {
	RecalculateTask(ctx context.Context, id string) error
}

type Service struct {
	repo         Repository
	projects     portfolio.Repository
	audit        review.AuditRepository
	notifier     notify.Notifier
	recalculator Recalculator
	enqueuer     queue.Enqueuer
	sequence     sequence.Generator
	freeze       freeze.Store
	node         *snowflake.Node
	now          func() time.Time
}

type Params struct {
	fx.In
	Repository   Repository
	Projects     portfolio.Repository
	Audit        review.AuditRepository
	Node         *snowflake.Node
	Notifier     notify.Notifier    `optional:"true"`
	Recalculator Recalculator       `optional:"true"`
	Enqueuer     queue.Enqueuer     `optional:"true"`
	Sequence     sequence.Generator `optional:"true"`
	Freeze       freeze.Store       `optional:"true"`
	Clock        func() time.Time   `optional:"true"`
}

func NewService(p Params) *Service {
	now := p.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:         p.Repository,
		projects:     p.Projects,
		audit:        p.Audit,
		notifier:     p.Notifier,
		recalculator: p.Recalculator,
		enqueuer:     p.Enqueuer,
		sequence:     p.Sequence,
		freeze:       p.Freeze,
		node:         p.Node,
		now:          now,
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

type CreateTaskRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Type           Type       `json:"type"`
	Priority       Priority   `json:"priority"`
	OwnerID        string     `json:"owner_id"`
	ReviewerID     *string    `json:"reviewer_id"`
	ProjectID      *string    `json:"project_id"`
	StartDate      *time.Time `json:"start_date"`
	Deadline       *time.Time `json:"deadline"`
	Emergency      bool       `json:"emergency"`
	EstimatedHours *float64   `json:"estimated_hours"`
}

// UpdateTaskRequest is a partial edit; nil fields are left untouched.
type UpdateTaskRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Type           *Type      `json:"type"`
	Priority       *Priority  `json:"priority"`
	OwnerID        *string    `json:"owner_id"`
	ReviewerID     *string    `json:"reviewer_id"`
	ProjectID      *string    `json:"project_id"`
	StartDate      *time.Time `json:"start_date"`
	Deadline       *time.Time `json:"deadline"`
	Emergency      *bool      `json:"emergency"`
	EstimatedHours *float64   `json:"estimated_hours"`
}

func (s *Service) Create(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	now := s.now()
	t := &Task{
		ID:             s.node.Generate().String(),
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Type:           Type(strings.ToUpper(string(req.Type))),
		Priority:       Priority(strings.ToUpper(string(req.Priority))),
		Status:         review.StatusTodo,
		OwnerID:        req.OwnerID,
		ReviewerID:     emptyToNil(req.ReviewerID),
		ProjectID:      emptyToNil(req.ProjectID),
		Emergency:      req.Emergency,
		EstimatedHours: req.EstimatedHours,
		TodoSince:      &now,
		StatusSince:    now,
		IsFrozen:       freeze.Current(ctx, s.freeze),
	}
	if req.StartDate != nil {
		t.StartDate = *req.StartDate
	}
	if req.Deadline != nil {
		t.Deadline = *req.Deadline
	}

	if err := s.validate(ctx, t, req.StartDate == nil, req.Deadline == nil); err != nil {
		return nil, err
	}

	t.Code = s.nextCode(ctx, t.ID)
	if err := s.repo.Create(ctx, t); err != nil {
		logger(ctx).Error("failed to create task", zap.Error(err))
		return nil, errutil.Internal("failed to create task", err)
	}

	logger(ctx).Info("task created",
		zap.String("task_id", t.ID),
		zap.String("code", t.Code),
		zap.String("actor", middleware.GetActor(ctx)),
	)

	// The caller gets a fresh score, so this one pass is synchronous.
	if s.recalculator != nil {
		if err := s.recalculator.RecalculateTask(ctx, t.ID); err != nil {
			logger(ctx).Warn("initial scoring failed", zap.String("task_id", t.ID), zap.Error(err))
		}
	}
	s.syncCalendar(ctx, t.ID, CalendarActionUpsert)

	return s.Get(ctx, t.ID)
}

func (s *Service) nextCode(ctx context.Context, id string) string {
	if s.sequence != nil {
		code, err := s.sequence.NextTaskCode(ctx)
		if err == nil {
			return code
		}
		logger(ctx).Warn("task sequence unavailable, falling back to id based code", zap.Error(err))
	}
	sid, err := snowflake.ParseString(id)
	if err != nil {
		return "TSK-" + id
	}
	return "TSK-" + strings.ToUpper(sid.Base36())
}

func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errutil.NotFound("task not found", err)
		}
		return nil, errutil.Internal("failed to load task", err)
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateTaskRequest) (*Task, error) {
	t, err := s.update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.TriggerRecalculation(ctx)
	s.syncCalendar(ctx, t.ID, CalendarActionUpsert)
	return t, nil
}

func (s *Service) update(ctx context.Context, id string, req UpdateTaskRequest) (*Task, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Type != nil {
		t.Type = Type(strings.ToUpper(string(*req.Type)))
	}
	if req.Priority != nil {
		t.Priority = Priority(strings.ToUpper(string(*req.Priority)))
	}
	if req.OwnerID != nil {
		t.OwnerID = *req.OwnerID
	}
	if req.ReviewerID != nil {
		t.ReviewerID = emptyToNil(req.ReviewerID)
	}
	if req.ProjectID != nil {
		t.ProjectID = emptyToNil(req.ProjectID)
	}
	if req.StartDate != nil {
		t.StartDate = *req.StartDate
	}
	if req.Deadline != nil {
		t.Deadline = *req.Deadline
	}
	if req.Emergency != nil {
		t.Emergency = *req.Emergency
	}
	if req.EstimatedHours != nil {
		t.EstimatedHours = req.EstimatedHours
	}

	if err := s.validate(ctx, t, false, false); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, t); err != nil {
		logger(ctx).Error("failed to update task", zap.String("task_id", id), zap.Error(err))
		return nil, errutil.Internal("failed to update task", err)
	}
	return t, nil
}

// ChangeStatus runs the review state machine for a requested status or verdict.
func (s *Service) ChangeStatus(ctx context.Context, id, requested string) (*Task, error) {
	t, changed, err := s.changeStatus(ctx, id, requested)
	if err != nil {
		return nil, err
	}
	if changed {
		s.TriggerRecalculation(ctx)
		s.syncCalendar(ctx, t.ID, CalendarActionUpsert)
	}
	return t, nil
}

func (s *Service) changeStatus(ctx context.Context, id, requested string) (*Task, bool, error) {
	status, err := review.ParseStatus(requested)
	if err != nil {
		return nil, false, errutil.ValidationFailed("invalid status", err,
			errutil.WithDetails(errutil.Detail{Field: "status", Message: err.Error()}))
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	tr, err := review.Decide(t.Status, status, t.HasReviewer())
	if err != nil {
		return nil, false, errutil.ValidationFailed("status transition not allowed", err,
			errutil.WithDetails(errutil.Detail{Field: "status", Message: err.Error()}))
	}
	if !tr.Changed() {
		return t, false, nil
	}

	now := s.now()
	t.Status = tr.To
	var entry *review.AuditEntry
	for _, effect := range tr.Effects {
		switch effect.Kind {
		case review.EffectStampTodoSince:
			t.TodoSince = &now
		case review.EffectClearTodoSince:
			t.TodoSince = nil
		case review.EffectStampStatusTime:
			t.StatusSince = now
		case review.EffectWriteAudit:
			entry = &review.AuditEntry{
				ID:         s.node.Generate().String(),
				EntityType: review.EntityTask,
				EntityID:   t.ID,
				FromStatus: tr.From,
				ToStatus:   tr.To,
				Requested:  status,
				Actor:      middleware.GetActor(ctx),
				CreatedAt:  now,
			}
		}
	}
	if tr.To == review.StatusDone {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
	// Reopened tasks rejoin the live set under the current freeze state.
	if tr.From == review.StatusDone {
		t.IsFrozen = freeze.Current(ctx, s.freeze)
	}

	if err := s.repo.SaveTransition(ctx, t, entry); err != nil {
		logger(ctx).Error("failed to persist status change", zap.String("task_id", id), zap.Error(err))
		return nil, false, errutil.Internal("failed to change status", err)
	}

	logger(ctx).Info("task status changed",
		zap.String("task_id", t.ID),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("requested", string(status)),
	)

	if tr.Has(review.EffectNotifyReviewer) && t.ReviewerID != nil {
		for _, effect := range tr.Effects {
			if effect.Kind != review.EffectNotifyReviewer {
				continue
			}
			s.notify(ctx, *t.ReviewerID, effect.Notification, map[string]any{
				"task_id": t.ID,
				"code":    t.Code,
				"title":   t.Title,
				"owner":   t.OwnerID,
			})
		}
	}

	return t, true, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.delete(ctx, id); err != nil {
		return err
	}
	s.TriggerRecalculation(ctx)
	s.syncCalendar(ctx, id, CalendarActionDelete)
	return nil
}

func (s *Service) delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return errutil.NotFound("task not found", err)
		}
		return errutil.Internal("failed to delete task", err)
	}
	logger(ctx).Info("task deleted", zap.String("task_id", id), zap.String("actor", middleware.GetActor(ctx)))
	return nil
}

func (s *Service) Audit(ctx context.Context, id string) ([]review.AuditEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByEntity(ctx, review.EntityTask, id)
	if err != nil {
		return nil, errutil.Internal("failed to load audit trail", err)
	}
	return entries, nil
}

// TriggerRecalculation submits a full rescoring without waiting for it.
func (s *Service) TriggerRecalculation(ctx context.Context) bool {
	return queue.Submit(ctx, s.enqueuer, taskname.ScoringRecalculateAll, nil,
		hibiken.Queue(asynq.QueueDefault),
		hibiken.MaxRetry(3),
	)
}

func (s *Service) syncCalendar(ctx context.Context, id, action string) {
	queue.Submit(ctx, s.enqueuer, taskname.CalendarSyncTask, CalendarSyncPayload{TaskID: id, Action: action},
		hibiken.Queue(asynq.QueueLow),
		hibiken.MaxRetry(5),
	)
}

// notify hands delivery to the worker. Without a queue it falls back to the
// in-process notifier.
func (s *Service) notify(ctx context.Context, userID, kind string, payload map[string]any) {
	if s.enqueuer == nil {
		notify.Dispatch(ctx, s.notifier, userID, kind, payload)
		return
	}
	queue.Submit(ctx, s.enqueuer, taskname.NotifyDeliver,
		notify.DeliverPayload{UserID: userID, Kind: kind, Payload: payload},
		hibiken.Queue(asynq.QueueDefault),
		hibiken.MaxRetry(5),
	)
}

func (s *Service) validate(ctx context.Context, t *Task, missingStart, missingDeadline bool) error {
	var v errutil.Validator
	v.Check(t.Title != "", "title", "is required")
	v.Check(len(t.Title) <= 200, "title", "must be at most 200 characters")
	v.Check(t.Type.Valid(), "type", fmt.Sprintf("must be one of %v", Types))
	v.Check(t.Priority.Valid(), "priority", fmt.Sprintf("must be one of %v", Priorities))
	v.Check(t.OwnerID != "", "owner_id", "is required")
	v.Check(!missingStart && !t.StartDate.IsZero(), "start_date", "is required")
	v.Check(!missingDeadline && !t.Deadline.IsZero(), "deadline", "is required")
	if !t.StartDate.IsZero() && !t.Deadline.IsZero() {
		v.Check(!t.Deadline.Before(t.StartDate), "deadline", "must not be before start_date")
	}
	if t.EstimatedHours != nil {
		v.Check(*t.EstimatedHours >= 0, "estimated_hours", "must not be negative")
	}
	if err := v.Err(); err != nil {
		return err
	}

	if _, err := s.repo.GetUser(ctx, t.OwnerID); err != nil {
		if !isNotFound(err) {
			return errutil.Internal("failed to load owner", err)
		}
		v.Add("owner_id", "user does not exist")
	}
	if t.HasReviewer() {
		if _, err := s.repo.GetUser(ctx, *t.ReviewerID); err != nil {
			if !isNotFound(err) {
				return errutil.Internal("failed to load reviewer", err)
			}
			v.Add("reviewer_id", "user does not exist")
		}
	}
	if t.ProjectID != nil {
		p, err := s.projects.GetProject(ctx, *t.ProjectID)
		switch {
		case err != nil && !isNotFound(err):
			return errutil.Internal("failed to load project", err)
		case err != nil:
			v.Add("project_id", "project does not exist")
		case p.Archived:
			v.Add("project_id", "project is archived")
		}
	}
	return v.Err()
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
