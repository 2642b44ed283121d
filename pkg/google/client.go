package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/taskquest/pkg/auth"
)

// CalendarClient talks to one Google Calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
}

var _ Events = (*CalendarClient)(nil)

// NewClient authenticates with the token kept in dir and binds to the
// calendar whose summary is calendarName.
func NewClient(ctx context.Context, dir, calendarName string, logger *zap.Logger) (*CalendarClient, error) {
	srv, err := auth.GetCalendarService(ctx, dir, logger)
	if err != nil {
		return nil, err
	}
	id, err := findCalendar(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return &CalendarClient{srv: srv, calendarID: id}, nil
}

func findCalendar(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	var id string
	err := srv.CalendarList.List().Context(ctx).Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			if item.Summary == name {
				id = item.Id
				return errStop
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("calendar %q not found", name)
	}
	return id, nil
}

var errStop = errors.New("stop")

// gone reports whether err says the event no longer exists.
func gone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}

// GetEvent returns nil, nil for deleted or cancelled events.
func (c *CalendarClient) GetEvent(ctx context.Context, eventID string) (*calendar.Event, error) {
	e, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if gone(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if e.Status == "cancelled" {
		return nil, nil
	}
	return e, nil
}

func (c *CalendarClient) InsertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
}

func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

// DeleteEvent treats an already deleted event as success.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if gone(err) {
		return nil
	}
	return err
}

// GetEventByTaskID finds the event tagged with taskID in its private
// extended properties, or nil, nil.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", TaskIDProperty, taskID)).
		ShowDeleted(false).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}
