package google

import (
	"context"
	"fmt"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/tally/pkg/colors"
	"github.com/harrisonrobin/tally/pkg/index"
	"github.com/harrisonrobin/tally/pkg/logger"
	"github.com/harrisonrobin/tally/pkg/report"
	"github.com/harrisonrobin/tally/pkg/util"
)

// Describer turns a task reference into a human readable title.
type Describer interface {
	Describe(taskID string) string
}

// Options are the optional collaborators of a CalendarClient.
type Options struct {
	Index     *index.EventIndex
	Colors    *colors.ColorCache
	Describer Describer
	StartHour int
}

// CalendarClient writes committed reports as Google Calendar events.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	opts       Options
}

func NewCalendarClient(srv *calendar.Service, calendarID string, opts Options) *CalendarClient {
	if opts.StartHour <= 0 {
		opts.StartHour = 9
	}
	return &CalendarClient{srv: srv, calendarID: calendarID, opts: opts}
}

// CreateReport inserts the event for rep unless one already exists for the
// same timer, which makes a retried commit safe.
func (c *CalendarClient) CreateReport(ctx context.Context, rep report.Report) error {
	existing, err := c.findExisting(ctx, rep.TimerID)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Info("report already on calendar", "timer", rep.TimerID, "event", existing.Id)
		c.remember(rep.TimerID, existing.Id)
		return nil
	}

	title := ""
	if c.opts.Describer != nil {
		title = c.opts.Describer.Describe(rep.TaskID)
	}
	colorID := colors.DefaultColorID
	if c.opts.Colors != nil {
		colorID = c.opts.Colors.GetColorID(rep.TaskID)
		if err := c.opts.Colors.Save(); err != nil {
			logger.Warn("could not save color cache", "error", err.Error())
		}
	}

	event, err := util.ConvertReportToCalendarEvent(rep, title, colorID, c.opts.StartHour)
	if err != nil {
		return err
	}
	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	c.remember(rep.TimerID, created.Id)
	return nil
}

func (c *CalendarClient) findExisting(ctx context.Context, timerID string) (*calendar.Event, error) {
	if c.opts.Index != nil {
		if eventID := c.opts.Index.Get(timerID); eventID != "" {
			ev, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err == nil && ev.Status != "cancelled" {
				return ev, nil
			}
			// Stale mapping: fall back to the property search.
			c.opts.Index.Remove(timerID)
		}
	}
	ev, err := c.GetEventByTimerID(ctx, timerID)
	if err != nil {
		return nil, fmt.Errorf("error searching for event: %w", err)
	}
	return ev, nil
}

func (c *CalendarClient) remember(timerID, eventID string) {
	if c.opts.Index == nil {
		return
	}
	c.opts.Index.Set(timerID, eventID)
	if err := c.opts.Index.Save(); err != nil {
		logger.Warn("could not save event index", "error", err.Error())
	}
}

// GetEventByTimerID finds the event carrying the timer id in its private
// extended properties, or nil if there is none.
func (c *CalendarClient) GetEventByTimerID(ctx context.Context, timerID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", util.TimerIDProperty, timerID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	for _, ev := range events.Items {
		if ev.Status != "cancelled" {
			return ev, nil
		}
	}
	return nil, nil
}
