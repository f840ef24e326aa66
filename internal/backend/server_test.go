package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fentz26/planforge/internal/audit"
	"github.com/fentz26/planforge/internal/logger"
	"github.com/fentz26/planforge/internal/models"
	"github.com/fentz26/planforge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint_OK(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.True(t, health.OK)
	assert.Equal(t, "ok", health.DB)
	assert.NotEmpty(t, health.Version)
	assert.NotEmpty(t, health.Time)
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Result().StatusCode)
}

func TestHealthEndpoint_DBError(t *testing.T) {
	s, st := newTestServer(t)
	st.Close()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.False(t, health.OK)
	assert.NotEqual(t, "ok", health.DB)
}

func TestProjectLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	body := models.ProjectFields{
		Title: "Launch",
		Goal:  "Launch product",
		Tasks: []models.Task{{ID: "t1", Title: "Research", Status: models.TaskStatusPending, ExtendedDetails: models.DefaultExtendedDetails()}},
	}
	resp := do(t, h, http.MethodPost, "/projects", "u1", body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.NotEmpty(t, resp.Header().Get(RequestIDHeader))

	var created models.Project
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "u1", created.OwnerID, "owner falls back to the user header")

	resp = do(t, h, http.MethodPost, "/projects/"+created.ID+"/invitations", "u1", nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var inv models.Invitation
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &inv))
	resp = do(t, h, http.MethodPost, "/invitations/"+inv.Token+"/accept", "u2", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	tasks := []models.Task{
		{ID: "t1", Title: "Research", Status: models.TaskStatusCompleted, ExtendedDetails: models.DefaultExtendedDetails()},
		{ID: "t2", Title: "Build", Status: models.TaskStatusPending, ExtendedDetails: models.DefaultExtendedDetails()},
	}
	resp = do(t, h, http.MethodPatch, "/projects/"+created.ID, "u2", models.ProjectUpdate{Tasks: &tasks})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = do(t, h, http.MethodGet, "/projects/"+created.ID, "u1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var got models.Project
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Len(t, got.Tasks, 2)
	assert.Equal(t, "u2", got.LastModifiedBy)

	resp = do(t, h, http.MethodGet, "/projects?user_id=u1", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []models.ProjectSummary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].TaskCount)
}

func TestProjectErrors(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		want   int
	}{
		{"missing project", http.MethodGet, "/projects/nope", "u1", nil, http.StatusNotFound},
		{"update missing", http.MethodPatch, "/projects/nope", "u1", models.ProjectUpdate{}, http.StatusNotFound},
		{"create without owner", http.MethodPost, "/projects", "", models.ProjectFields{Title: "x"}, http.StatusBadRequest},
		{"create without title", http.MethodPost, "/projects", "u1", models.ProjectFields{}, http.StatusBadRequest},
		{"list without user", http.MethodGet, "/projects", "", nil, http.StatusBadRequest},
		{"unknown action", http.MethodGet, "/projects/p1/unknown", "u1", nil, http.StatusNotFound},
		{"bad method", http.MethodDelete, "/projects", "u1", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, h, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.want, resp.Code, resp.Body.String())
		})
	}
}

func TestNonMemberIsForbidden(t *testing.T) {
	s, st := newTestServer(t)
	h := s.Handler()
	p := createProject(t, h, "u1")

	tasks := []models.Task{{ID: "x", Title: "Overwritten", Status: models.TaskStatusPending, ExtendedDetails: models.DefaultExtendedDetails()}}
	stranger := "stranger"

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
	}{
		{"read", http.MethodGet, "/projects/" + p.ID, stranger, nil},
		{"read anonymously", http.MethodGet, "/projects/" + p.ID, "", nil},
		{"update", http.MethodPatch, "/projects/" + p.ID, stranger, models.ProjectUpdate{Tasks: &tasks}},
		{"update as claimed editor", http.MethodPatch, "/projects/" + p.ID, "", models.ProjectUpdate{Tasks: &tasks, LastModifiedBy: &stranger}},
		{"log activity", http.MethodPost, "/projects/" + p.ID + "/activity", stranger, map[string]any{"kind": "task_created", "user_id": "u1"}},
		{"list activity", http.MethodGet, "/projects/" + p.ID + "/activity", stranger, nil},
		{"invite", http.MethodPost, "/projects/" + p.ID + "/invitations", stranger, nil},
		{"list someone else's projects", http.MethodGet, "/projects?user_id=u1", stranger, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, h, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
		})
	}

	got, err := st.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tasks, "the owner's tasks are untouched")
	assert.Equal(t, "u1", got.LastModifiedBy)

	ok, err := st.IsMember(context.Background(), p.ID, stranger)
	require.NoError(t, err)
	assert.False(t, ok)

	activity, err := st.ListActivity(context.Background(), p.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, activity)
}

func TestProjectInvalidJSON(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader("{"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActivityEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	p := createProject(t, h, "u1")

	resp := do(t, h, http.MethodPost, "/projects/"+p.ID+"/activity", "u1", map[string]any{
		"kind":    "task_created",
		"payload": map[string]any{"task_id": "t1", "task_title": "Research"},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var rec models.ActivityRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, "u1", rec.UserID)
	assert.NotEmpty(t, rec.PayloadHash)

	resp = do(t, h, http.MethodPost, "/projects/"+p.ID+"/activity", "u1", map[string]any{"kind": "task_renamed"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, h, http.MethodPost, "/projects/missing/activity", "u1", map[string]any{"kind": "task_created"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, h, http.MethodGet, "/projects/"+p.ID+"/activity?limit=5", "u1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []models.ActivityRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestInvitationEndpoints(t *testing.T) {
	s, st := newTestServer(t)
	h := s.Handler()
	p := createProject(t, h, "u1")

	resp := do(t, h, http.MethodPost, "/projects/"+p.ID+"/invitations", "u1", nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var inv models.Invitation
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &inv))
	assert.Equal(t, "u1", inv.InvitedBy)

	resp = do(t, h, http.MethodPost, "/invitations/"+inv.Token+"/accept", "", map[string]string{"user_id": "u2"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	ok, err := st.IsMember(context.Background(), p.ID, "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	resp = do(t, h, http.MethodPost, "/invitations/"+inv.Token+"/accept", "u3", map[string]string{})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = do(t, h, http.MethodPost, "/invitations/missing/accept", "u3", map[string]string{})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, h, http.MethodGet, "/invitations/"+inv.Token+"/accept", "u3", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	do(t, h, http.MethodGet, "/projects/nope", "u1", nil)
	resp := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "planforge_http_requests_total")
	assert.Contains(t, resp.Body.String(), `route="/projects/{id}"`)
}

func TestNormalizeRoute(t *testing.T) {
	assert.Equal(t, "/projects/{id}/activity", normalizeRoute("/projects/abc/activity"))
	assert.Equal(t, "/invitations/{token}/accept", normalizeRoute("/invitations/xyz/accept"))
	assert.Equal(t, "/projects", normalizeRoute("/projects"))
	assert.Equal(t, "/health", normalizeRoute("/health"))
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logger.Discard()
	service := NewService(st, audit.NewRecorder(st), log)
	return NewServer(service, st, "127.0.0.1:0", log), st
}

func createProject(t *testing.T, h http.Handler, owner string) models.Project {
	t.Helper()
	resp := do(t, h, http.MethodPost, "/projects", owner, models.ProjectFields{Title: "P", OwnerID: owner})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var p models.Project
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &p))
	return p
}

func do(t *testing.T, h http.Handler, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
