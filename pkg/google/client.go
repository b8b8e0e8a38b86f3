package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/harrisonrobin/hunt/pkg/auth"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// NewClient authenticates, prompting on out when no token is stored, and returns a client
// for the calendar whose summary is calendarName.
func NewClient(ctx context.Context, calendarName string, out io.Writer) (*CalendarClient, error) {
	httpClient, err := auth.GetClient(ctx, auth.Scopes, out)
	if err != nil {
		return nil, err
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}

	calendarID, err := findCalendar(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	slog.Debug("using calendar", slog.String("name", calendarName), slog.String("id", calendarID))
	return NewCalendarClient(srv, calendarID), nil
}

// errFound stops paging once the calendar is found.
var errFound = errors.New("found")

// findCalendar pages through the user's calendar list for one named name.
func findCalendar(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	var id string
	err := srv.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			if item.Summary == name {
				id = item.Id
				return errFound
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, errFound):
		return id, nil
	case err != nil:
		return "", fmt.Errorf("unable to list calendars: %w", err)
	}
	return "", fmt.Errorf("calendar %q not found, create it or pick another with 'hunt config set-calendar'", name)
}
