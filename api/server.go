package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/mars-rover/mission/config"
	"github.com/wricardo/mars-rover/mission/controller"
	"github.com/wricardo/mars-rover/mission/service"
	"github.com/wricardo/mars-rover/mission/session"
	"github.com/wricardo/mars-rover/transport/websocket"
)

// maxInputBytes bounds a mission description accepted over HTTP.
const maxInputBytes = 1 << 20

// Server represents the REST API server
type Server struct {
	service service.MissionService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil.
func NewServer(missionService service.MissionService, hub *websocket.Hub) *Server {
	s := &Server{
		service: missionService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api", s.handleIndex).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Stateless
	api.HandleFunc("/simulate", s.handleSimulate).Methods("POST")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Mission operations
	api.HandleFunc("/sessions/{id}/execute", s.handleExecute).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Presets
	api.HandleFunc("/missions", s.handleListMissions).Methods("GET")
	api.HandleFunc("/missions", s.handleCreateMission).Methods("POST")
	api.HandleFunc("/missions/{name}", s.handleGetMission).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError picks the status code from the error chain. Ingestion
// errors carry their classified failure next to the message.
func respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if f := service.ClassifyFailure(err); status == http.StatusBadRequest && f.Kind != service.FailureUnknown {
		respondJSON(w, status, map[string]interface{}{
			"error":   err.Error(),
			"failure": f,
		})
		return
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrMissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, controller.ErrFormat),
		errors.Is(err, controller.ErrOutOfBounds),
		errors.Is(err, controller.ErrCollision),
		errors.Is(err, config.ErrInvalidMission),
		errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, service.ErrNoMission):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondBodyError reports an unreadable request body. Bodies over
// maxInputBytes are rejected whole, never truncated.
func respondBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	respondError(w, http.StatusBadRequest, "Invalid request body")
}

// readInput accepts either {"input": "..."} JSON or a raw text body.
func readInput(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInputBytes))
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return "", err
		}
		return req.Input, nil
	}

	return string(body), nil
}

func logRun(sessionID string, result *service.RunResult) {
	status := "OK"
	detail := ""
	if !result.Success {
		status = "FAIL"
		if f := result.Failure; f != nil {
			detail = fmt.Sprintf(" kind=%s rover=%d", f.Kind, f.Rover+1)
			if f.Position != nil {
				detail += fmt.Sprintf(" at=(%d,%d)", f.Position.X, f.Position.Y)
			}
		}
	}
	log.Printf("[RUN] session=%s run=%s rovers=%d steps=%d status=%s%s",
		sessionID, result.RunID, len(result.Rovers), result.TotalSteps, status, detail)
}

// Stateless Handlers

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	input, err := readInput(w, r)
	if err != nil {
		respondBodyError(w, err)
		return
	}

	result, err := s.service.Simulate(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logRun("-", result)
	respondJSON(w, http.StatusOK, result)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MissionID string `json:"mission_id,omitempty"`
		Input     string `json:"input,omitempty"`
	}

	if r.Body != nil {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBytes)).Decode(&req); err != nil && err != io.EOF {
			respondBodyError(w, err)
			return
		}
	}

	info, err := s.service.CreateSession(r.Context(), req.MissionID, req.Input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventDeleted, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Mission Operation Handlers

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Execute(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastRun(sessionID, result)
	}

	logRun(sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventReset, info)
	}

	log.Printf("[RESET] session=%s rovers=%d", sessionID, len(info.Rovers))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Session reset successfully",
		"session": info,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Preset Handlers

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := s.service.ListMissions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, missions)
}

func (s *Server) handleGetMission(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".txt")

	mission, err := s.service.LoadMission(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mission)
}

func (s *Server) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Input string `json:"input"`
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBytes)).Decode(&req); err != nil {
		respondBodyError(w, err)
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Mission name is required")
		return
	}

	info, err := s.service.SaveMission(r.Context(), req.Name, req.Input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Mission saved successfully",
		"mission_id": info.MissionID,
		"mission":    info,
	})
}

// handleIndex lists the API routes; the MCP stdio mode also probes it to
// detect a running server.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"endpoints": []string{
			"POST /api/simulate",
			"POST /api/sessions",
			"GET /api/sessions",
			"GET /api/sessions/{id}",
			"DELETE /api/sessions/{id}",
			"POST /api/sessions/{id}/execute",
			"POST /api/sessions/{id}/reset",
			"GET /api/sessions/{id}/history",
			"GET /api/missions",
			"POST /api/missions",
			"GET /api/missions/{name}",
		},
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(context.Background(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
