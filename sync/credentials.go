// ABOUTME: Credential store adapter with lazy refresh-on-demand
// ABOUTME: Persists one OAuth credential set per user and refreshes expired tokens before use
package sync

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/oauth2"

	"github.com/harperreed/calsync/db"
	"github.com/harperreed/calsync/models"
)

// refreshFunc exchanges an expired token for a fresh one.
type refreshFunc func(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)

// CredentialStore persists per-user OAuth credentials and hands out
// credentials that are valid at the moment of use. The refresh exchange is
// the only network call it ever makes.
type CredentialStore struct {
	db      *sql.DB
	config  *oauth2.Config
	refresh refreshFunc
	now     func() time.Time
}

func NewCredentialStore(database *sql.DB, config *oauth2.Config) *CredentialStore {
	s := &CredentialStore{
		db:     database,
		config: config,
		now:    time.Now,
	}
	s.refresh = s.refreshWithConfig
	return s
}

// Get returns the stored credential for a user without refreshing it.
func (s *CredentialStore) Get(userID string) (*models.Credential, error) {
	cred, err := db.GetCredential(s.db, userID)
	if err != nil {
		return nil, newError(KindPersistence, "failed to load credential: %w", err)
	}
	if cred == nil {
		return nil, newError(KindCredentialMissing, "no credential stored for user %s", userID)
	}
	return cred, nil
}

// Put stores a credential, overwriting any existing one for the user.
func (s *CredentialStore) Put(cred *models.Credential) error {
	if err := db.PutCredential(s.db, cred); err != nil {
		return newError(KindPersistence, "failed to store credential: %w", err)
	}
	return nil
}

// Fresh returns a credential usable right now. An expired credential is
// refreshed and persisted before being returned; one that cannot be
// refreshed requires the user to re-authorize.
func (s *CredentialStore) Fresh(ctx context.Context, userID string) (*models.Credential, error) {
	cred, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if !cred.Expired(s.now()) {
		return cred, nil
	}
	if cred.RefreshToken == "" {
		return nil, newError(KindCredentialExpired, "credential for user %s expired with no refresh token", userID)
	}

	refreshed, err := s.refresh(ctx, tokenFromCredential(cred))
	if err != nil {
		return nil, newError(KindCredentialExpired, "failed to refresh credential for user %s: %w", userID, err)
	}

	next := credentialFromToken(userID, refreshed)
	// Google omits the refresh token from refresh responses; keep the old one.
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}
	next.Scope = cred.Scope
	if err := s.Put(next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *CredentialStore) refreshWithConfig(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	return s.config.TokenSource(ctx, token).Token()
}
