package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/planforge/internal/models"
	"github.com/fentz26/planforge/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoint. Set at build time via -ldflags.
var Version = "0.1.0"

// UserHeader carries the acting user's ID.
const UserHeader = "X-Planforge-User"

// Server provides the HTTP API for the backend.
type Server struct {
	service *Service
	store   *store.Store
	addr    string
	log     *logrus.Entry
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, st *store.Store, addr string, log *logrus.Entry) *Server {
	return &Server{
		service: service,
		store:   st,
		addr:    addr,
		log:     log,
	}
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/projects/", s.handleProjectByID)
	mux.HandleFunc("/invitations/", s.handleInvitation)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return requestIDMiddleware(loggingMiddleware(s.log, metricsMiddleware(mux)))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.log.WithField("addr", s.addr).Info("starting planforge backend")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		resp.OK = false
		resp.DB = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// handleProjects handles POST /projects and GET /projects
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createProject(w, r)
	case http.MethodGet:
		s.listProjects(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProjectByID handles /projects/{id}/*
func (s *Server) handleProjectByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/projects/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "project id required", http.StatusBadRequest)
		return
	}

	projectID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getProject(w, r, projectID)
	case action == "" && r.Method == http.MethodPatch:
		s.updateProject(w, r, projectID)
	case action == "activity" && r.Method == http.MethodPost:
		s.logActivity(w, r, projectID)
	case action == "activity" && r.Method == http.MethodGet:
		s.listActivity(w, r, projectID)
	case action == "invitations" && r.Method == http.MethodPost:
		s.createInvitation(w, r, projectID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleInvitation handles POST /invitations/{token}/accept
func (s *Server) handleInvitation(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/invitations/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "accept" || r.Method != http.MethodPost {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.acceptInvitation(w, r, parts[0])
}

// --- Project Handlers ---

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req models.ProjectFields
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = r.Header.Get(UserHeader)
	}

	p, err := s.service.CreateProject(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	actor := r.Header.Get(UserHeader)
	switch {
	case userID == "":
		userID = actor
	case actor != "" && actor != userID:
		s.writeError(w, r, ErrForbidden)
		return
	}

	list, err := s.service.ListProjects(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.ProjectSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request, projectID string) {
	p, err := s.service.GetProject(r.Context(), projectID, r.Header.Get(UserHeader))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request, projectID string) {
	var req models.ProjectUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	// The edit is recorded against whoever made it.
	actor := r.Header.Get(UserHeader)
	if actor == "" && req.LastModifiedBy != nil {
		actor = *req.LastModifiedBy
	}
	req.LastModifiedBy = &actor

	if err := s.service.UpdateProject(r.Context(), projectID, actor, req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// --- Activity Handlers ---

type logActivityRequest struct {
	UserID  string              `json:"user_id"`
	Kind    models.ActivityKind `json:"kind"`
	Payload map[string]any      `json:"payload"`
}

func (s *Server) logActivity(w http.ResponseWriter, r *http.Request, projectID string) {
	var req logActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if u := r.Header.Get(UserHeader); u != "" {
		req.UserID = u
	}

	rec, err := s.service.LogActivity(r.Context(), projectID, req.UserID, req.Kind, req.Payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) listActivity(w http.ResponseWriter, r *http.Request, projectID string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := s.service.ListActivity(r.Context(), projectID, r.Header.Get(UserHeader), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.ActivityRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

// --- Invitation Handlers ---

func (s *Server) createInvitation(w http.ResponseWriter, r *http.Request, projectID string) {
	inv, err := s.service.CreateInvitation(r.Context(), projectID, r.Header.Get(UserHeader))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

type acceptInvitationRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request, token string) {
	var req acceptInvitationRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}
	if req.UserID == "" {
		req.UserID = r.Header.Get(UserHeader)
	}

	inv, err := s.service.AcceptInvitation(r.Context(), token, req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// writeError maps sentinel errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrProjectNotFound), errors.Is(err, ErrInvitationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvitationUsed):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		s.log.WithField("request_id", RequestID(r.Context())).WithError(err).Error("request failed")
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
