// ABOUTME: Database schema definitions
// ABOUTME: Handles SQLite table creation for studies, sessions, credentials, and sync tracking
package db

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS studies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_studies_name ON studies(name);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	start_at DATETIME NOT NULL,
	duration_minutes INTEGER NOT NULL,
	location TEXT,
	attendees TEXT,
	study_id TEXT,
	session_type TEXT NOT NULL DEFAULT 'scheduled',
	accept_recording INTEGER NOT NULL DEFAULT 1,
	external_calendar_id TEXT,
	external_event_id TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (study_id) REFERENCES studies(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_start_at ON sessions(start_at);
CREATE INDEX IF NOT EXISTS idx_sessions_study_id ON sessions(study_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_external_event
	ON sessions(external_calendar_id, external_event_id)
	WHERE external_event_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS credentials (
	user_id TEXT PRIMARY KEY,
	access_token TEXT NOT NULL,
	refresh_token TEXT,
	token_type TEXT,
	scope TEXT,
	expires_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
	scope TEXT PRIMARY KEY,
	last_sync_time DATETIME,
	status TEXT NOT NULL DEFAULT 'idle',
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_log (
	id TEXT PRIMARY KEY,
	scope TEXT NOT NULL,
	source_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	operation TEXT NOT NULL,
	imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sync_log_source ON sync_log(scope, source_id);
`

func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
