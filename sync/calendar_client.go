// ABOUTME: Calendar provider interface and Google Calendar implementation
// ABOUTME: Builds a request-scoped Calendar service from a user's OAuth token
package sync

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	defaultCalendarID = "primary"
	maxResults        = 250 // Google Calendar API max per page
)

// Provider is the slice of the external calendar API the sync engine needs.
type Provider interface {
	Insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	ListWindow(ctx context.Context, calendarID string, from, to time.Time) ([]*calendar.Event, error)
}

type googleCalendar struct {
	service *calendar.Service
}

// NewGoogleProvider creates a provider scoped to a single user's token.
// Each call builds its own client, so concurrent syncs for different users
// never share credentials.
func NewGoogleProvider(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (Provider, error) {
	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, newError(KindProvider, "failed to create calendar service: %w", err)
	}
	return &googleCalendar{service: service}, nil
}

func (g *googleCalendar) Insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	created, err := g.service.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, newError(KindProvider, "failed to insert event: %w", err)
	}
	return created, nil
}

// ListWindow fetches single events in [from, to) ordered by start time,
// following pagination until exhausted. Recurring events arrive already
// expanded by the provider.
func (g *googleCalendar) ListWindow(ctx context.Context, calendarID string, from, to time.Time) ([]*calendar.Event, error) {
	var events []*calendar.Event
	pageToken := ""

	for {
		call := g.service.Events.List(calendarID).
			MaxResults(maxResults).
			SingleEvents(true).
			OrderBy("startTime").
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, newError(KindProvider, "failed to list events: %w", err)
		}

		events = append(events, page.Items...)

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return events, nil
}
