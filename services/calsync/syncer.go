package calsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studiodesk/pkg/config"
	"studiodesk/services/review"
	"studiodesk/services/task"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"gorm.io/gorm"
)

// Google Calendar color ids.
const (
	colorDefault   = ""
	colorEmergency = "11"
	colorReview    = "5"
)

// Syncer mirrors tasks into a shared calendar. A Syncer without a Calendar
// accepts every request and does nothing.
type Syncer struct {
	cal   Calendar
	tasks task.Repository
}

type Params struct {
	fx.In
	Config     *config.Config
	Repository task.Repository
	Calendar   Calendar `optional:"true"`
}

func NewSyncer(p Params) (*Syncer, error) {
	s := &Syncer{cal: p.Calendar, tasks: p.Repository}
	if s.cal != nil || !p.Config.GoogleCalendar.Enable {
		return s, nil
	}

	cal, err := NewGoogleCalendar(context.Background(), p.Config)
	if err != nil {
		return nil, err
	}
	s.cal = cal
	return s, nil
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

func (s *Syncer) Enabled() bool {
	return s.cal != nil
}

// Upsert creates or updates the event for a task. Finished or missing tasks
// have their event removed.
func (s *Syncer) Upsert(ctx context.Context, taskID string) error {
	if !s.Enabled() {
		return nil
	}

	t, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.Delete(ctx, taskID)
	}
	if err != nil {
		return err
	}
	if t.Status == review.StatusDone {
		return s.Delete(ctx, taskID)
	}

	event := EventFor(t)
	existing, err := s.cal.FindByTaskID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("error searching for event: %w", err)
	}
	if existing == nil {
		created, err := s.cal.Insert(ctx, event)
		if err != nil {
			return err
		}
		logger(ctx).Info("calendar event created", zap.String("task_id", taskID), zap.String("event_id", created.Id))
		return nil
	}
	if !needsUpdate(existing, event) {
		return nil
	}
	_, err = s.cal.Patch(ctx, existing.Id, event)
	return err
}

func (s *Syncer) Delete(ctx context.Context, taskID string) error {
	if !s.Enabled() {
		return nil
	}
	existing, err := s.cal.FindByTaskID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("error searching for event: %w", err)
	}
	if existing == nil {
		return nil
	}
	if err := s.cal.Delete(ctx, existing.Id); err != nil {
		return err
	}
	logger(ctx).Info("calendar event removed", zap.String("task_id", taskID), zap.String("event_id", existing.Id))
	return nil
}

func (s *Syncer) HandleCalendarSyncTask(ctx context.Context, t *asynq.Task) error {
	var p task.CalendarSyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode calendar sync payload: %v: %w", err, asynq.SkipRetry)
	}

	switch p.Action {
	case task.CalendarActionUpsert:
		return s.Upsert(ctx, p.TaskID)
	case task.CalendarActionDelete:
		return s.Delete(ctx, p.TaskID)
	default:
		return fmt.Errorf("unknown calendar action %q: %w", p.Action, asynq.SkipRetry)
	}
}

// EventFor renders a task as a calendar event spanning start date to deadline.
func EventFor(t *task.Task) *calendar.Event {
	color := colorDefault
	switch {
	case t.Emergency:
		color = colorEmergency
	case t.Status == review.StatusInReview:
		color = colorReview
	}

	return &calendar.Event{
		Summary:     fmt.Sprintf("[%s] %s", t.Code, t.Title),
		Description: t.Description,
		Start:       &calendar.EventDateTime{DateTime: t.StartDate.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: t.Deadline.UTC().Format(time.RFC3339)},
		ColorId:     color,
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				taskIDProperty: t.ID,
				"status":       string(t.Status),
			},
		},
	}
}

func needsUpdate(existing, want *calendar.Event) bool {
	if existing.Summary != want.Summary || existing.Description != want.Description || existing.ColorId != want.ColorId {
		return true
	}
	if !sameInstant(existing.Start, want.Start) || !sameInstant(existing.End, want.End) {
		return true
	}
	if existing.ExtendedProperties == nil {
		return true
	}
	return existing.ExtendedProperties.Private["status"] != want.ExtendedProperties.Private["status"]
}

func sameInstant(a, b *calendar.EventDateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, errA := time.Parse(time.RFC3339, a.DateTime)
	tb, errB := time.Parse(time.RFC3339, b.DateTime)
	if errA != nil || errB != nil {
		return a.DateTime == b.DateTime
	}
	return ta.Equal(tb)
}
