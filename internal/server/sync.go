package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"planner-sync/internal/constants"
	"planner-sync/internal/planner"
	"planner-sync/internal/service"
)

// SyncServer is the JSON surface the planner UI drives sync from. Sync
// invocations are serialized here: the engine itself has no concurrency
// guard, so a request while a sync is in flight is rejected with 409.
type SyncServer struct {
	svc    *service.SyncService
	store  *planner.Store
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
}

func NewSyncServer(svc *service.SyncService, store *planner.Store, logger zerolog.Logger) *SyncServer {
	return &SyncServer{svc: svc, store: store, logger: logger}
}

// Register mounts the sync routes on mux.
func (s *SyncServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sync/battery", s.handleSyncBattery)
	mux.HandleFunc("POST /api/v1/sync/characters", s.handleSyncCharacters)
	mux.HandleFunc("POST /api/v1/sync/items", s.handleSyncItems)
	mux.HandleFunc("POST /api/v1/sync/all", s.handleSyncAll)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
}

func (s *SyncServer) tryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *SyncServer) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *SyncServer) handleSyncBattery(w http.ResponseWriter, r *http.Request) {
	if !s.tryBegin() {
		writeError(w, http.StatusConflict, "a sync is already running")
		return
	}
	defer s.end()

	if err := s.svc.SyncBattery(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("battery sync failed")
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *SyncServer) handleSyncCharacters(w http.ResponseWriter, r *http.Request) {
	if !s.tryBegin() {
		writeError(w, http.StatusConflict, "a sync is already running")
		return
	}
	defer s.end()

	result, err := s.svc.SyncCharacters(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("character sync failed")
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error(), "result": result})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

func (s *SyncServer) handleSyncItems(w http.ResponseWriter, r *http.Request) {
	if !s.tryBegin() {
		writeError(w, http.StatusConflict, "a sync is already running")
		return
	}
	defer s.end()

	if err := s.svc.SyncItems(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("item sync failed")
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *SyncServer) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	if !s.tryBegin() {
		writeError(w, http.StatusConflict, "a sync is already running")
		return
	}
	defer s.end()

	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, s.svc.SyncAll(ctx))
}

func (s *SyncServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list goals")
		writeError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"running": running,
		"goals":   goals,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
