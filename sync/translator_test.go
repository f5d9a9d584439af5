// ABOUTME: Tests for the session/event translation layer
// ABOUTME: Covers field fallbacks, reminders, timezone handling, and round trips
package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/harperreed/calsync/models"
)

func TestSessionToEvent(t *testing.T) {
	studyID := uuid.New()
	session := &models.Session{
		ID:              uuid.New(),
		Title:           "Kickoff",
		Description:     "First participant interview",
		StartAt:         time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Location:        "Room 4",
		Attendees: []models.Attendee{
			{Email: "alice@example.com", DisplayName: "Alice"},
		},
		StudyID:     &studyID,
		SessionType: models.SessionTypeScheduled,
	}

	event := SessionToEvent(session, "Usability Study", time.UTC)

	assert.Equal(t, "Kickoff", event.Summary)
	assert.Equal(t, "First participant interview", event.Description)
	assert.Equal(t, "Room 4", event.Location)
	assert.Equal(t, "2024-05-01T14:00:00Z", event.Start.DateTime)
	assert.Equal(t, "2024-05-01T14:30:00Z", event.End.DateTime)
	assert.Equal(t, "UTC", event.Start.TimeZone)

	require.Len(t, event.Attendees, 1)
	assert.Equal(t, "alice@example.com", event.Attendees[0].Email)
	assert.Equal(t, "Alice", event.Attendees[0].DisplayName)

	require.NotNil(t, event.Reminders)
	assert.False(t, event.Reminders.UseDefault)
	assert.Contains(t, event.Reminders.ForceSendFields, "UseDefault")
	require.Len(t, event.Reminders.Overrides, 2)
	assert.Equal(t, "email", event.Reminders.Overrides[0].Method)
	assert.Equal(t, int64(1440), event.Reminders.Overrides[0].Minutes)
	assert.Equal(t, "popup", event.Reminders.Overrides[1].Method)
	assert.Equal(t, int64(10), event.Reminders.Overrides[1].Minutes)

	require.NotNil(t, event.ExtendedProperties)
	assert.Equal(t, session.ID.String(), event.ExtendedProperties.Private["sessionId"])
	assert.Equal(t, studyID.String(), event.ExtendedProperties.Private["studyId"])
	assert.Equal(t, models.SessionTypeScheduled, event.ExtendedProperties.Private["sessionType"])
}

func TestSessionToEventFallbacks(t *testing.T) {
	session := &models.Session{
		ID:              uuid.New(),
		Title:           "Interview",
		StartAt:         time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
	}

	event := SessionToEvent(session, "Diary Study", time.UTC)
	assert.Equal(t, `Research session for study "Diary Study"`, event.Description)
	assert.Equal(t, "To be determined", event.Location)

	event = SessionToEvent(session, "", time.UTC)
	assert.Equal(t, "Research session", event.Description)
}

func TestSessionToEventConvertsToSyncTimezone(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	session := &models.Session{
		ID:              uuid.New(),
		Title:           "Interview",
		StartAt:         time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
	}

	event := SessionToEvent(session, "", chicago)
	assert.Equal(t, "2024-05-01T09:00:00-05:00", event.Start.DateTime)
	assert.Equal(t, "America/Chicago", event.Start.TimeZone)
}

func TestEventToSessionRoundTrip(t *testing.T) {
	studyID := uuid.New()
	original := &models.Session{
		ID:              uuid.New(),
		Title:           "Kickoff",
		Description:     "First participant interview",
		StartAt:         time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Location:        "Room 4",
		Attendees: []models.Attendee{
			{Email: "alice@example.com", DisplayName: "Alice"},
			{Email: "bob@example.com"},
		},
		StudyID:     &studyID,
		SessionType: models.SessionTypeScheduled,
	}

	event := SessionToEvent(original, "Usability Study", time.UTC)
	event.Id = "evt-1"

	got, err := EventToSession(event, nil, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, original.Title, got.Title)
	assert.Equal(t, original.Description, got.Description)
	assert.True(t, got.StartAt.Equal(original.StartAt))
	assert.Equal(t, original.DurationMinutes, got.DurationMinutes)
	assert.Equal(t, original.Location, got.Location)
	assert.Equal(t, original.Attendees, got.Attendees)
	require.NotNil(t, got.StudyID)
	assert.Equal(t, studyID, *got.StudyID)
	assert.Equal(t, models.SessionTypeImported, got.SessionType)
	assert.True(t, got.AcceptRecording)
}

func TestEventToSessionKnownStudyWins(t *testing.T) {
	propStudy := uuid.New()
	knownStudy := uuid.New()

	event := &calendar.Event{
		Id:      "evt-1",
		Summary: "Interview",
		Start:   &calendar.EventDateTime{DateTime: "2024-05-01T14:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2024-05-01T15:00:00Z"},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"studyId": propStudy.String()},
		},
	}

	got, err := EventToSession(event, &knownStudy, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, got.StudyID)
	assert.Equal(t, knownStudy, *got.StudyID)
}

func TestEventToSessionDateOnly(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	event := &calendar.Event{
		Id:      "evt-1",
		Summary: "All Day Workshop",
		Start:   &calendar.EventDateTime{Date: "2024-07-04"},
		End:     &calendar.EventDateTime{Date: "2024-07-05"},
	}

	got, err := EventToSession(event, nil, chicago)
	require.NoError(t, err)
	assert.True(t, got.StartAt.Equal(time.Date(2024, 7, 4, 0, 0, 0, 0, chicago)))
	assert.Equal(t, 24*60, got.DurationMinutes)
}

func TestEventToSessionDurationRounding(t *testing.T) {
	event := &calendar.Event{
		Id:      "evt-1",
		Summary: "Interview",
		Start:   &calendar.EventDateTime{DateTime: "2024-05-01T10:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2024-05-01T10:45:30Z"},
	}

	got, err := EventToSession(event, nil, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 46, got.DurationMinutes)
}

func TestEventToSessionSkipsAttendeesWithoutEmail(t *testing.T) {
	event := &calendar.Event{
		Id:      "evt-1",
		Summary: "Interview",
		Start:   &calendar.EventDateTime{DateTime: "2024-05-01T10:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2024-05-01T11:00:00Z"},
		Attendees: []*calendar.EventAttendee{
			{Email: "alice@example.com"},
			{DisplayName: "Room 4"},
			nil,
		},
	}

	got, err := EventToSession(event, nil, time.UTC)
	require.NoError(t, err)
	require.Len(t, got.Attendees, 1)
	assert.Equal(t, "alice@example.com", got.Attendees[0].Email)
}

func TestEventToSessionMalformedTimes(t *testing.T) {
	tests := []struct {
		name  string
		event *calendar.Event
	}{
		{
			name: "garbage start",
			event: &calendar.Event{
				Id:    "evt-1",
				Start: &calendar.EventDateTime{DateTime: "yesterday-ish"},
				End:   &calendar.EventDateTime{DateTime: "2024-05-01T11:00:00Z"},
			},
		},
		{
			name: "missing start",
			event: &calendar.Event{
				Id:  "evt-2",
				End: &calendar.EventDateTime{DateTime: "2024-05-01T11:00:00Z"},
			},
		},
		{
			name: "missing end",
			event: &calendar.Event{
				Id:    "evt-3",
				Start: &calendar.EventDateTime{DateTime: "2024-05-01T10:00:00Z"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EventToSession(tt.event, nil, time.UTC)
			require.Error(t, err)
			assert.Equal(t, KindMapping, KindOf(err))
		})
	}
}

func TestEventToSessionNilEvent(t *testing.T) {
	_, err := EventToSession(nil, nil, time.UTC)
	require.Error(t, err)
	assert.Equal(t, KindMapping, KindOf(err))
}
