// ABOUTME: Database operations for sync_state and sync_log tables
// ABOUTME: Tracks per-user pull status and an audit log of imported events
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncState represents the sync state for one scope. A scope is one user's
// calendar link, e.g. "calendar:user-123".
type SyncState struct {
	Scope        string     `json:"scope"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// GetSyncState retrieves the sync state for a scope.
func GetSyncState(db *sql.DB, scope string) (*SyncState, error) {
	var state SyncState
	var lastSyncTime sql.NullTime
	var errorMessage sql.NullString

	err := db.QueryRow(`
		SELECT scope, last_sync_time, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE scope = ?
	`, scope).Scan(
		&state.Scope,
		&lastSyncTime,
		&state.Status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	if lastSyncTime.Valid {
		state.LastSyncTime = &lastSyncTime.Time
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}

	return &state, nil
}

// UpdateSyncStatus updates the sync status for a scope.
func UpdateSyncStatus(db *sql.DB, scope, status string, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (scope, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(scope) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, scope, status, errorMsgVal)

	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// MarkSynced records a successful pull: status back to idle, error cleared,
// last sync time stamped.
func MarkSynced(db *sql.DB, scope string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (scope, last_sync_time, status, created_at, updated_at)
		VALUES (?, CURRENT_TIMESTAMP, 'idle', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(scope) DO UPDATE SET
			last_sync_time = CURRENT_TIMESTAMP,
			status = 'idle',
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
	`, scope)

	if err != nil {
		return fmt.Errorf("failed to mark synced: %w", err)
	}

	return nil
}

// CheckSyncLogExists checks if a remote event has already been imported.
func CheckSyncLogExists(db *sql.DB, scope, sourceID string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sync_log
		WHERE scope = ? AND source_id = ?
	`, scope, sourceID).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check sync log: %w", err)
	}

	return count > 0, nil
}

// CreateSyncLog creates a sync log entry for an imported event.
func CreateSyncLog(db *sql.DB, id, scope, sourceID, sessionID, operation string) error {
	_, err := db.Exec(`
		INSERT INTO sync_log (id, scope, source_id, session_id, operation, imported_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, id, scope, sourceID, sessionID, operation)

	if err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}

	return nil
}
