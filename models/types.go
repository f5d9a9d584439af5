// ABOUTME: Data models for research scheduling entities
// ABOUTME: Defines Study, Session, Attendee, and Credential structs with sync link fields
package models

import (
	"time"

	"github.com/google/uuid"
)

type Study struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

type Session struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	StartAt            time.Time  `json:"start_at"`
	DurationMinutes    int        `json:"duration_minutes"`
	Location           string     `json:"location,omitempty"`
	Attendees          []Attendee `json:"attendees,omitempty"`
	StudyID            *uuid.UUID `json:"study_id,omitempty"`
	SessionType        string     `json:"session_type"`
	AcceptRecording    bool       `json:"accept_recording"`
	ExternalCalendarID *string    `json:"external_calendar_id,omitempty"`
	ExternalEventID    *string    `json:"external_event_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Linked reports whether the session is tied to a remote calendar event.
// The external event id is the sole sync key; there is no join table.
func (s *Session) Linked() bool {
	return s.ExternalEventID != nil && *s.ExternalEventID != ""
}

type Credential struct {
	UserID       string     `json:"user_id"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	Scope        string     `json:"scope,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Expired reports whether the access token needs a refresh before use.
// A credential without a recorded expiry is treated as expired.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt == nil || !c.ExpiresAt.After(now)
}

// Session type constants.
const (
	SessionTypeScheduled = "scheduled"
	SessionTypeImported  = "imported"
)

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)
