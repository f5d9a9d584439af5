// ABOUTME: Pure bidirectional mapping between Sessions and Google Calendar events
// ABOUTME: Handles timezone-explicit start/end, field fallbacks, reminders, and back-reference properties
package sync

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/google/uuid"
	"github.com/harperreed/calsync/models"
)

const defaultEventLocation = "To be determined"

// Private extended property keys carrying back-references onto the remote
// event, so a reverse lookup stays possible even if the local link is lost.
const (
	propSessionID   = "sessionId"
	propStudyID     = "studyId"
	propSessionType = "sessionType"
)

// Fixed reminder rules attached to every pushed event: one well in advance,
// one shortly before the session starts.
const (
	reminderEmailMinutes = 24 * 60
	reminderPopupMinutes = 10
)

// SessionToEvent maps a session onto the provider's event shape. studyName
// feeds the generated description fallback and may be empty.
func SessionToEvent(session *models.Session, studyName string, loc *time.Location) *calendar.Event {
	description := session.Description
	if description == "" {
		if studyName != "" {
			description = fmt.Sprintf("Research session for study %q", studyName)
		} else {
			description = "Research session"
		}
	}

	location := session.Location
	if location == "" {
		location = defaultEventLocation
	}

	start := session.StartAt.In(loc)
	end := start.Add(time.Duration(session.DurationMinutes) * time.Minute)

	var attendees []*calendar.EventAttendee
	for _, a := range session.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{
			Email:       a.Email,
			DisplayName: a.DisplayName,
		})
	}

	private := map[string]string{
		propSessionID:   session.ID.String(),
		propSessionType: session.SessionType,
		propStudyID:     "",
	}
	if session.StudyID != nil {
		private[propStudyID] = session.StudyID.String()
	}

	return &calendar.Event{
		Summary:     session.Title,
		Description: description,
		Location:    location,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		Attendees: attendees,
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: reminderEmailMinutes},
				{Method: "popup", Minutes: reminderPopupMinutes},
			},
			ForceSendFields: []string{"UseDefault"},
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: private,
		},
	}
}

// EventToSession maps a remote event into a session draft. knownStudyID wins
// over the study back-reference carried in the event's private properties.
// Drafts are marked imported and adopt the default recording-consent policy.
func EventToSession(event *calendar.Event, knownStudyID *uuid.UUID, loc *time.Location) (*models.Session, error) {
	if event == nil {
		return nil, newError(KindMapping, "nil event")
	}

	start, err := parseEventTime(event.Start, loc)
	if err != nil {
		return nil, newError(KindMapping, "event %s has unparseable start: %w", event.Id, err)
	}
	end, err := parseEventTime(event.End, loc)
	if err != nil {
		return nil, newError(KindMapping, "event %s has unparseable end: %w", event.Id, err)
	}

	duration := int(math.Round(end.Sub(start).Minutes()))

	session := &models.Session{
		Title:           event.Summary,
		Description:     event.Description,
		StartAt:         start,
		DurationMinutes: duration,
		Location:        event.Location,
		SessionType:     models.SessionTypeImported,
		AcceptRecording: true,
	}

	for _, a := range event.Attendees {
		if a == nil || a.Email == "" {
			continue
		}
		session.Attendees = append(session.Attendees, models.Attendee{
			Email:       a.Email,
			DisplayName: a.DisplayName,
		})
	}

	if knownStudyID != nil {
		session.StudyID = knownStudyID
	} else if event.ExtendedProperties != nil {
		if raw := event.ExtendedProperties.Private[propStudyID]; raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				session.StudyID = &id
			}
		}
	}

	return session, nil
}

// parseEventTime accepts either a full timestamp or a date-only value.
// Date-only values resolve to midnight in the sync timezone.
func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, error) {
	if edt == nil {
		return time.Time{}, fmt.Errorf("missing time")
	}
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	if edt.Date != "" {
		return time.ParseInLocation("2006-01-02", edt.Date, loc)
	}
	return time.Time{}, fmt.Errorf("missing time")
}
