package google

import (
	"context"
	"fmt"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/tally/pkg/auth"
)

// NewService authorizes with the credentials in configDir and returns a
// Calendar API service.
func NewService(ctx context.Context, configDir string) (*calendar.Service, error) {
	client, err := auth.GetClient(ctx, configDir, auth.CalendarScopes)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client for Calendar API: %w", err)
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}
	return srv, nil
}

// FindCalendarID returns the id of the calendar whose summary is name.
func FindCalendarID(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	calendarList, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	for _, item := range calendarList.Items {
		if item.Summary == name {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar '%s' not found", name)
}

// NewClient connects to the named calendar.
func NewClient(ctx context.Context, configDir, calendarName string, opts Options) (*CalendarClient, error) {
	srv, err := NewService(ctx, configDir)
	if err != nil {
		return nil, err
	}
	calendarID, err := FindCalendarID(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID, opts), nil
}
