// ABOUTME: HTTP handler tests for the sync server
// ABOUTME: Drives the mux with httptest against a real database and a fake provider
package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	"github.com/harperreed/calsync/db"
	"github.com/harperreed/calsync/metrics"
	"github.com/harperreed/calsync/models"
	"github.com/harperreed/calsync/sync"
)

type fakeProvider struct {
	events    []*calendar.Event
	insertErr error
}

func (f *fakeProvider) Insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return &calendar.Event{Id: "evt-created"}, nil
}

func (f *fakeProvider) ListWindow(ctx context.Context, calendarID string, from, to time.Time) ([]*calendar.Event, error) {
	return f.events, nil
}

type serverHarness struct {
	db       *sql.DB
	server   *Server
	provider *fakeProvider
}

func newServerHarness(t *testing.T) *serverHarness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.OpenDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	h := &serverHarness{db: database, provider: &fakeProvider{}}

	credentials := sync.NewCredentialStore(database, &oauth2.Config{})
	factory := func(ctx context.Context, token *oauth2.Token) (sync.Provider, error) {
		return h.provider, nil
	}
	engine := sync.NewEngine(database, credentials, factory, time.UTC, 30)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	h.server = NewServer(database, engine, credentials, collector)
	return h
}

func (h *serverHarness) seedCredential(t *testing.T, userID string) {
	t.Helper()

	expires := time.Now().Add(time.Hour)
	require.NoError(t, db.PutCredential(h.db, &models.Credential{
		UserID:      userID,
		AccessToken: "access-token",
		ExpiresAt:   &expires,
	}))
}

func (h *serverHarness) postSync(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/sync", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)
	return rec
}

func TestSyncRejectsNonPost(t *testing.T) {
	h := newServerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/sync", nil)
	rec := httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSyncRejectsBadRequests(t *testing.T) {
	h := newServerHarness(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing user", map[string]string{"action": "pull"}},
		{"invalid action", map[string]string{"userId": "user-1", "action": "teleport"}},
		{"push without session id", map[string]string{"userId": "user-1", "action": "push"}},
		{"pull with bad study id", map[string]string{"userId": "user-1", "action": "pull", "studyId": "not-a-uuid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.postSync(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSyncRejectsInvalidBody(t *testing.T) {
	h := newServerHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/sync", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushEndpoint(t *testing.T) {
	h := newServerHarness(t)
	h.seedCredential(t, "user-1")

	session := &models.Session{
		Title:           "Kickoff",
		StartAt:         time.Now().Add(time.Hour),
		DurationMinutes: 30,
	}
	require.NoError(t, db.CreateSession(h.db, session))

	rec := h.postSync(t, map[string]string{
		"userId":    "user-1",
		"action":    "push",
		"sessionId": session.ID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success         bool   `json:"success"`
		ExternalEventID string `json:"externalEventId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "evt-created", resp.ExternalEventID)
}

func TestPushWithoutCredentialReturns404(t *testing.T) {
	h := newServerHarness(t)

	session := &models.Session{
		Title:           "Kickoff",
		StartAt:         time.Now().Add(time.Hour),
		DurationMinutes: 30,
	}
	require.NoError(t, db.CreateSession(h.db, session))

	rec := h.postSync(t, map[string]string{
		"userId":    "user-1",
		"action":    "push",
		"sessionId": session.ID.String(),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPullEndpoint(t *testing.T) {
	h := newServerHarness(t)
	h.seedCredential(t, "user-1")

	start := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	h.provider.events = []*calendar.Event{
		{
			Id:      "evt-1",
			Summary: "Interview",
			Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
			End:     &calendar.EventDateTime{DateTime: start.Add(45 * time.Minute).Format(time.RFC3339)},
		},
	}

	rec := h.postSync(t, map[string]string{"userId": "user-1", "action": "pull"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success   bool                 `json:"success"`
		Created   []sync.PullItem      `json:"created"`
		Updated   []sync.PullItem      `json:"updated"`
		Errors    []sync.PullItemError `json:"errors"`
		TotalSeen int                  `json:"totalSeen"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Created, 1)
	assert.Equal(t, "evt-1", resp.Created[0].EventID)
	assert.Equal(t, 1, resp.TotalSeen)

	// Empty collections arrive as [] rather than null
	assert.Contains(t, rec.Body.String(), `"updated":[]`)
	assert.Contains(t, rec.Body.String(), `"errors":[]`)
}

func TestSyncStatusEndpoint(t *testing.T) {
	h := newServerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/sync/status?user_id=user-1", nil)
	rec := httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.seedCredential(t, "user-1")
	pullRec := h.postSync(t, map[string]string{"userId": "user-1", "action": "pull"})
	require.Equal(t, http.StatusOK, pullRec.Code)

	rec = httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var state db.SyncState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "calendar:user-1", state.Scope)
	assert.Equal(t, models.SyncStatusIdle, state.Status)
}

func TestSyncStatusRequiresUserID(t *testing.T) {
	h := newServerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	rec := httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthorizeRedirects(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")

	h := newServerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/oauth/authorize?user_id=user-1", nil)
	rec := httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "state=user-1")
	assert.Contains(t, location, "access_type=offline")
}

func TestCallbackRequiresCodeAndState(t *testing.T) {
	h := newServerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc", nil)
	rec := httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	h := newServerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newServerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.server.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
