// ABOUTME: Session database operations
// ABOUTME: Handles CRUD, external event id lookups, and sync link updates
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/calsync/models"
)

func CreateSession(db *sql.DB, session *models.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.SessionType == "" {
		session.SessionType = models.SessionTypeScheduled
	}

	attendees, err := marshalAttendees(session.Attendees)
	if err != nil {
		return err
	}

	var studyID *string
	if session.StudyID != nil {
		s := session.StudyID.String()
		studyID = &s
	}

	_, err = db.Exec(`
		INSERT INTO sessions (id, title, description, start_at, duration_minutes, location, attendees,
			study_id, session_type, accept_recording, external_calendar_id, external_event_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID.String(), session.Title, session.Description, session.StartAt, session.DurationMinutes,
		session.Location, attendees, studyID, session.SessionType, session.AcceptRecording,
		session.ExternalCalendarID, session.ExternalEventID, session.CreatedAt, session.UpdatedAt)

	return err
}

func GetSession(db *sql.DB, id uuid.UUID) (*models.Session, error) {
	row := db.QueryRow(sessionSelect+` WHERE id = ?`, id.String())
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// GetSessionByExternalEventID looks up the session linked to a remote event.
// This is the idempotency lookup used during pull matching.
func GetSessionByExternalEventID(db *sql.DB, calendarID, eventID string) (*models.Session, error) {
	row := db.QueryRow(sessionSelect+` WHERE external_calendar_id = ? AND external_event_id = ?`, calendarID, eventID)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by external event id: %w", err)
	}
	return session, nil
}

// UpdateSession overwrites every mutable field of an existing session.
func UpdateSession(db *sql.DB, session *models.Session) error {
	session.UpdatedAt = time.Now()

	attendees, err := marshalAttendees(session.Attendees)
	if err != nil {
		return err
	}

	var studyID *string
	if session.StudyID != nil {
		s := session.StudyID.String()
		studyID = &s
	}

	result, err := db.Exec(`
		UPDATE sessions
		SET title = ?, description = ?, start_at = ?, duration_minutes = ?, location = ?, attendees = ?,
			study_id = ?, session_type = ?, accept_recording = ?, external_calendar_id = ?, external_event_id = ?, updated_at = ?
		WHERE id = ?
	`, session.Title, session.Description, session.StartAt, session.DurationMinutes, session.Location, attendees,
		studyID, session.SessionType, session.AcceptRecording, session.ExternalCalendarID, session.ExternalEventID,
		session.UpdatedAt, session.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %s", session.ID)
	}
	return nil
}

// SetSessionLink writes the external link fields onto a session. These are
// the only fields the push path is allowed to mutate.
func SetSessionLink(db *sql.DB, id uuid.UUID, calendarID, eventID string) error {
	_, err := db.Exec(`
		UPDATE sessions
		SET external_calendar_id = ?, external_event_id = ?, updated_at = ?
		WHERE id = ?
	`, calendarID, eventID, time.Now(), id.String())
	if err != nil {
		return fmt.Errorf("failed to set session link: %w", err)
	}
	return nil
}

// CountLinkedSessions returns how many sessions are linked to a calendar.
func CountLinkedSessions(db *sql.DB, calendarID string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sessions
		WHERE external_calendar_id = ? AND external_event_id IS NOT NULL
	`, calendarID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count linked sessions: %w", err)
	}
	return count, nil
}

func FindSessions(db *sql.DB, limit int) ([]models.Session, error) {
	rows, err := db.Query(sessionSelect+` ORDER BY start_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

const sessionSelect = `
	SELECT id, title, description, start_at, duration_minutes, location, attendees,
		study_id, session_type, accept_recording, external_calendar_id, external_event_id, created_at, updated_at
	FROM sessions`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	session := &models.Session{}
	var idStr string
	var description, location, attendees sql.NullString
	var studyID, externalCalendarID, externalEventID sql.NullString

	err := row.Scan(
		&idStr,
		&session.Title,
		&description,
		&session.StartAt,
		&session.DurationMinutes,
		&location,
		&attendees,
		&studyID,
		&session.SessionType,
		&session.AcceptRecording,
		&externalCalendarID,
		&externalEventID,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", idStr, err)
	}
	session.ID = id
	session.Description = description.String
	session.Location = location.String

	if attendees.Valid && attendees.String != "" {
		if err := json.Unmarshal([]byte(attendees.String), &session.Attendees); err != nil {
			return nil, fmt.Errorf("invalid attendees for session %s: %w", id, err)
		}
	}
	if studyID.Valid {
		parsed, err := uuid.Parse(studyID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid study id %q: %w", studyID.String, err)
		}
		session.StudyID = &parsed
	}
	if externalCalendarID.Valid {
		session.ExternalCalendarID = &externalCalendarID.String
	}
	if externalEventID.Valid {
		session.ExternalEventID = &externalEventID.String
	}

	return session, nil
}

func marshalAttendees(attendees []models.Attendee) (string, error) {
	if len(attendees) == 0 {
		return "", nil
	}
	data, err := json.Marshal(attendees)
	if err != nil {
		return "", fmt.Errorf("failed to marshal attendees: %w", err)
	}
	return string(data), nil
}
