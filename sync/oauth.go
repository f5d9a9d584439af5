// ABOUTME: OAuth configuration and authorization-code handshake for Google Calendar
// ABOUTME: Builds env-driven oauth2 config, per-user auth URLs, and token exchange
package sync

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/harperreed/calsync/models"
)

const defaultRedirectURL = "http://localhost:8080/oauth/callback"

// NewOAuthConfig creates the oauth2 config for Google Calendar access.
// Client credentials come from the environment; users must create their own
// OAuth app in Google Cloud Console.
func NewOAuthConfig() *oauth2.Config {
	redirectURL := os.Getenv("CALSYNC_REDIRECT_URL")
	if redirectURL == "" {
		redirectURL = defaultRedirectURL
	}

	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar.events",
		},
		Endpoint: google.Endpoint,
	}
}

// RequireOAuthConfig returns the oauth2 config or fails when the client
// credentials are absent. Synchronization cannot proceed without them.
func RequireOAuthConfig() (*oauth2.Config, error) {
	config := NewOAuthConfig()
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}
	return config, nil
}

// AuthURL builds the authorization URL for a user. The state value carries
// the requesting user id so the callback can attribute the credential.
func AuthURL(config *oauth2.Config, userID string) string {
	return config.AuthCodeURL(userID, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for a credential owned by userID.
func ExchangeCode(ctx context.Context, config *oauth2.Config, userID, code string) (*models.Credential, error) {
	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	cred := credentialFromToken(userID, token)
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		cred.Scope = scope
	} else {
		cred.Scope = strings.Join(config.Scopes, " ")
	}
	return cred, nil
}

func credentialFromToken(userID string, token *oauth2.Token) *models.Credential {
	cred := &models.Credential{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		cred.ExpiresAt = &expiry
	}
	return cred
}

func tokenFromCredential(cred *models.Credential) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
	}
	if cred.ExpiresAt != nil {
		token.Expiry = *cred.ExpiresAt
	}
	return token
}
