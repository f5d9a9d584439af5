// ABOUTME: HTTP surface for the calendar sync service
// ABOUTME: Exposes the sync trigger endpoint, the OAuth handshake, health, and metrics
package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harperreed/calsync/metrics"
	"github.com/harperreed/calsync/sync"
)

type Server struct {
	db          *sql.DB
	engine      *sync.Engine
	credentials *sync.CredentialStore
	collector   *metrics.Collector
}

func NewServer(database *sql.DB, engine *sync.Engine, credentials *sync.CredentialStore, collector *metrics.Collector) *Server {
	return &Server{
		db:          database,
		engine:      engine,
		credentials: credentials,
		collector:   collector,
	}
}

// Routes builds the request mux. Split from Start for tests.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/sync/status", s.handleSyncStatus)
	mux.HandleFunc("/oauth/authorize", s.handleAuthorize)
	mux.HandleFunc("/oauth/callback", s.handleCallback)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	slog.Info("starting sync server", "addr", addr)
	return http.ListenAndServe(addr, s.Routes())
}

type syncRequest struct {
	UserID    string `json:"userId"`
	Action    string `json:"action"`
	SessionID string `json:"sessionId,omitempty"`
	StudyID   string `json:"studyId,omitempty"`
}

type pushResponse struct {
	Success         bool   `json:"success"`
	ExternalEventID string `json:"externalEventId"`
}

type pullResponse struct {
	Success   bool                 `json:"success"`
	Created   []sync.PullItem      `json:"created"`
	Updated   []sync.PullItem      `json:"updated"`
	Errors    []sync.PullItemError `json:"errors"`
	TotalSeen int                  `json:"totalSeen"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "userId is required")
		return
	}

	switch req.Action {
	case "push":
		s.handlePush(r.Context(), w, req)
	case "pull":
		s.handlePull(r.Context(), w, req)
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid action")
	}
}

func (s *Server) handlePush(ctx context.Context, w http.ResponseWriter, req syncRequest) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid sessionId")
		return
	}

	result, err := s.engine.Push(ctx, req.UserID, sessionID)
	if err != nil {
		s.collector.RecordPush(metrics.OutcomeError)
		slog.Error("push failed", "user_id", req.UserID, "session_id", req.SessionID, "error", err)
		writeJSONError(w, statusForError(err), err.Error())
		return
	}

	s.collector.RecordPush(metrics.OutcomeOK)
	slog.Info("push complete", "user_id", req.UserID, "session_id", req.SessionID, "event_id", result.ExternalEventID)
	writeJSON(w, http.StatusOK, pushResponse{Success: true, ExternalEventID: result.ExternalEventID})
}

func (s *Server) handlePull(ctx context.Context, w http.ResponseWriter, req syncRequest) {
	var studyID *uuid.UUID
	if req.StudyID != "" {
		id, err := uuid.Parse(req.StudyID)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid studyId")
			return
		}
		studyID = &id
	}

	result, err := s.engine.Pull(ctx, req.UserID, studyID)
	if err != nil {
		s.collector.RecordPull(metrics.OutcomeError)
		slog.Error("pull failed", "user_id", req.UserID, "error", err)
		writeJSONError(w, statusForError(err), err.Error())
		return
	}

	s.collector.RecordPull(metrics.OutcomeOK)
	s.collector.RecordPullEvents(len(result.Created), len(result.Updated), len(result.Errors))
	slog.Info("pull complete", "user_id", req.UserID,
		"created", len(result.Created), "updated", len(result.Updated),
		"errors", len(result.Errors), "total_seen", result.TotalSeen)

	resp := pullResponse{
		Success:   true,
		Created:   result.Created,
		Updated:   result.Updated,
		Errors:    result.Errors,
		TotalSeen: result.TotalSeen,
	}
	// Empty slices serialize as [] rather than null.
	if resp.Created == nil {
		resp.Created = []sync.PullItem{}
	}
	if resp.Updated == nil {
		resp.Updated = []sync.PullItem{}
	}
	if resp.Errors == nil {
		resp.Errors = []sync.PullItemError{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	state, err := s.engine.Status(userID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if state == nil {
		writeJSONError(w, http.StatusNotFound, "no sync state recorded")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	config, err := sync.RequireOAuthConfig()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.Redirect(w, r, sync.AuthURL(config, userID), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeJSONError(w, http.StatusBadRequest, "code and state are required")
		return
	}

	config, err := sync.RequireOAuthConfig()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	cred, err := sync.ExchangeCode(r.Context(), config, state, code)
	if err != nil {
		slog.Error("oauth exchange failed", "user_id", state, "error", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.credentials.Put(cred); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("authorization complete", "user_id", state)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusForError(err error) int {
	switch sync.KindOf(err) {
	case sync.KindNotFound, sync.KindCredentialMissing:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
