// ABOUTME: Credential database operations
// ABOUTME: Stores at most one OAuth credential row per user with upsert semantics
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/calsync/models"
)

func GetCredential(db *sql.DB, userID string) (*models.Credential, error) {
	cred := &models.Credential{}
	var refreshToken, tokenType, scope sql.NullString
	var expiresAt sql.NullTime

	err := db.QueryRow(`
		SELECT user_id, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at
		FROM credentials
		WHERE user_id = ?
	`, userID).Scan(
		&cred.UserID,
		&cred.AccessToken,
		&refreshToken,
		&tokenType,
		&scope,
		&expiresAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	cred.RefreshToken = refreshToken.String
	cred.TokenType = tokenType.String
	cred.Scope = scope.String
	if expiresAt.Valid {
		cred.ExpiresAt = &expiresAt.Time
	}

	return cred, nil
}

// PutCredential stores a credential, overwriting any existing row for the
// user. Used both after the initial authorization and after every refresh.
func PutCredential(db *sql.DB, cred *models.Credential) error {
	now := time.Now()
	cred.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO credentials (user_id, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			scope = excluded.scope,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, cred.UserID, cred.AccessToken, cred.RefreshToken, cred.TokenType, cred.Scope, cred.ExpiresAt, now, now)

	if err != nil {
		return fmt.Errorf("failed to put credential: %w", err)
	}

	return nil
}
