package calsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"studiodesk/pkg/config"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// taskIDProperty is the private extended property linking an event to its task.
const taskIDProperty = "studiodesk_task_id"

// Calendar is the part of the Google Calendar API the syncer needs.
type Calendar interface {
	FindByTaskID(ctx context.Context, taskID string) (*calendar.Event, error)
	Insert(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
	Patch(ctx context.Context, eventID string, event *calendar.Event) (*calendar.Event, error)
	Delete(ctx context.Context, eventID string) error
}

type googleCalendar struct {
	srv        *calendar.Service
	calendarID string
}

// NewGoogleCalendar authenticates with a service account key file.
func NewGoogleCalendar(ctx context.Context, cfg *config.Config) (Calendar, error) {
	b, err := os.ReadFile(cfg.GoogleCalendar.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file %s: %w", cfg.GoogleCalendar.CredentialsFile, err)
	}

	jwt, err := google.JWTConfigFromJSON(b, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar client: %w", err)
	}

	return &googleCalendar{srv: srv, calendarID: cfg.GoogleCalendar.CalendarID}, nil
}

func (g *googleCalendar) FindByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := g.srv.Events.List(g.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", taskIDProperty, taskID)).
		ShowDeleted(false).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) == 0 {
		return nil, nil
	}
	return events.Items[0], nil
}

func (g *googleCalendar) Insert(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	return g.srv.Events.Insert(g.calendarID, event).Context(ctx).Do()
}

func (g *googleCalendar) Patch(ctx context.Context, eventID string, event *calendar.Event) (*calendar.Event, error) {
	return g.srv.Events.Patch(g.calendarID, eventID, event).Context(ctx).Do()
}

func (g *googleCalendar) Delete(ctx context.Context, eventID string) error {
	err := g.srv.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
	if isGone(err) {
		return nil
	}
	return err
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
}
