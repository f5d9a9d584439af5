// ABOUTME: Push/pull orchestration between local sessions and the external calendar
// ABOUTME: Stateless per call; accumulates per-item results so one bad event never aborts a pull
package sync

import (
	"context"
	"database/sql"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	"github.com/harperreed/calsync/db"
	"github.com/harperreed/calsync/models"
)

const defaultWindowDays = 30

// ProviderFactory builds a provider scoped to one user's token.
type ProviderFactory func(ctx context.Context, token *oauth2.Token) (Provider, error)

// Engine drives synchronization. It carries no per-call state; everything
// lives in the database and on the remote calendar.
type Engine struct {
	db          *sql.DB
	credentials *CredentialStore
	newProvider ProviderFactory
	calendarID  string
	location    *time.Location
	window      time.Duration
	now         func() time.Time
}

func NewEngine(database *sql.DB, credentials *CredentialStore, factory ProviderFactory, loc *time.Location, windowDays int) *Engine {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		db:          database,
		credentials: credentials,
		newProvider: factory,
		calendarID:  defaultCalendarID,
		location:    loc,
		window:      time.Duration(windowDays) * 24 * time.Hour,
		now:         time.Now,
	}
}

// PushResult reports the remote linkage created by a successful push.
type PushResult struct {
	ExternalEventID    string `json:"externalEventId"`
	ExternalCalendarID string `json:"externalCalendarId"`
}

// PullItem identifies one session touched during a pull.
type PullItem struct {
	SessionID string `json:"sessionId"`
	EventID   string `json:"eventId"`
}

// PullItemError records a per-event failure without aborting the batch.
type PullItemError struct {
	EventID string `json:"eventId"`
	Error   string `json:"error"`
}

// PullResult is the partial-success accumulator for one pull pass.
type PullResult struct {
	Created   []PullItem      `json:"created"`
	Updated   []PullItem      `json:"updated"`
	Errors    []PullItemError `json:"errors"`
	TotalSeen int             `json:"totalSeen"`
}

// Push sends one local session to the external calendar and links it to the
// created remote event. Any failure leaves the session untouched; there is
// no partial state for a push.
func (e *Engine) Push(ctx context.Context, userID string, sessionID uuid.UUID) (*PushResult, error) {
	session, err := db.GetSession(e.db, sessionID)
	if err != nil {
		return nil, newError(KindPersistence, "failed to load session: %w", err)
	}
	if session == nil {
		return nil, newError(KindNotFound, "session %s not found", sessionID)
	}

	cred, err := e.credentials.Fresh(ctx, userID)
	if err != nil {
		return nil, err
	}

	studyName := ""
	if session.StudyID != nil {
		study, err := db.GetStudy(e.db, *session.StudyID)
		if err != nil {
			return nil, newError(KindPersistence, "failed to load study: %w", err)
		}
		if study != nil {
			studyName = study.Name
		}
	}

	provider, err := e.newProvider(ctx, tokenFromCredential(cred))
	if err != nil {
		return nil, err
	}

	event := SessionToEvent(session, studyName, e.location)
	created, err := provider.Insert(ctx, e.calendarID, event)
	if err != nil {
		return nil, err
	}

	if err := db.SetSessionLink(e.db, session.ID, e.calendarID, created.Id); err != nil {
		return nil, newError(KindPersistence, "failed to link session %s to event %s: %w", session.ID, created.Id, err)
	}

	return &PushResult{ExternalEventID: created.Id, ExternalCalendarID: e.calendarID}, nil
}

// Pull lists upcoming remote events and reconciles each one independently.
// The remote copy wins for every matched session; local edits made since the
// last pull are overwritten by design, never merged.
func (e *Engine) Pull(ctx context.Context, userID string, studyID *uuid.UUID) (*PullResult, error) {
	cred, err := e.credentials.Fresh(ctx, userID)
	if err != nil {
		return nil, err
	}

	provider, err := e.newProvider(ctx, tokenFromCredential(cred))
	if err != nil {
		return nil, err
	}

	scope := syncScope(userID)
	if err := db.UpdateSyncStatus(e.db, scope, models.SyncStatusSyncing, nil); err != nil {
		return nil, newError(KindPersistence, "failed to update sync status: %w", err)
	}

	from := e.now()
	events, err := provider.ListWindow(ctx, e.calendarID, from, from.Add(e.window))
	if err != nil {
		msg := err.Error()
		_ = db.UpdateSyncStatus(e.db, scope, models.SyncStatusError, &msg)
		return nil, err
	}

	result := &PullResult{TotalSeen: len(events)}
	for _, event := range events {
		if err := e.applyEvent(scope, event, studyID, result); err != nil {
			eventID := ""
			if event != nil {
				eventID = event.Id
			}
			result.Errors = append(result.Errors, PullItemError{EventID: eventID, Error: err.Error()})
		}
	}

	// Every event has already been reconciled at this point; a failed state
	// write must not throw that work away.
	if err := db.MarkSynced(e.db, scope); err != nil {
		return result, newError(KindPersistence, "failed to update sync state: %w", err)
	}

	return result, nil
}

// Status returns the recorded sync state for a user's calendar scope.
func (e *Engine) Status(userID string) (*db.SyncState, error) {
	state, err := db.GetSyncState(e.db, syncScope(userID))
	if err != nil {
		return nil, newError(KindPersistence, "failed to load sync state: %w", err)
	}
	return state, nil
}

// applyEvent reconciles a single remote event: overwrite the session already
// linked to it, or create a new linked session.
func (e *Engine) applyEvent(scope string, event *calendar.Event, studyID *uuid.UUID, result *PullResult) error {
	if event == nil || event.Id == "" {
		return newError(KindMapping, "event without id")
	}

	draft, err := EventToSession(event, studyID, e.location)
	if err != nil {
		return err
	}

	existing, err := db.GetSessionByExternalEventID(e.db, e.calendarID, event.Id)
	if err != nil {
		return newError(KindPersistence, "failed to look up session for event %s: %w", event.Id, err)
	}

	if existing != nil {
		existing.Title = draft.Title
		existing.Description = draft.Description
		existing.StartAt = draft.StartAt
		existing.DurationMinutes = draft.DurationMinutes
		existing.Location = draft.Location
		existing.Attendees = draft.Attendees
		if draft.StudyID != nil {
			existing.StudyID = draft.StudyID
		}
		if err := db.UpdateSession(e.db, existing); err != nil {
			return newError(KindPersistence, "failed to update session %s: %w", existing.ID, err)
		}
		e.logImport(scope, event.Id, existing.ID, "update")
		result.Updated = append(result.Updated, PullItem{SessionID: existing.ID.String(), EventID: event.Id})
		return nil
	}

	calendarID := e.calendarID
	eventID := event.Id
	draft.ExternalCalendarID = &calendarID
	draft.ExternalEventID = &eventID
	if err := db.CreateSession(e.db, draft); err != nil {
		return newError(KindPersistence, "failed to create session for event %s: %w", event.Id, err)
	}
	e.logImport(scope, event.Id, draft.ID, "create")
	result.Created = append(result.Created, PullItem{SessionID: draft.ID.String(), EventID: event.Id})
	return nil
}

// logImport appends to the import audit log. Best-effort; an audit failure
// never fails the item it records.
func (e *Engine) logImport(scope, eventID string, sessionID uuid.UUID, operation string) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(e.now().UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(e.now()), entropy).String()
	_ = db.CreateSyncLog(e.db, id, scope, eventID, sessionID.String(), operation)
}

func syncScope(userID string) string {
	return "calendar:" + userID
}
