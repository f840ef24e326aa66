// Package client wraps HTTP calls to the planforge backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/planforge/internal/backend"
	"github.com/fentz26/planforge/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Errors mapped from backend status codes.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, strings.TrimSpace(e.Body))
}

// Unwrap lets errors.Is match the sentinel for well-known statuses.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client with timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Projects ---

// CreateProject stores a new project.
func (c *Client) CreateProject(ctx context.Context, f models.ProjectFields) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, http.MethodPost, "/projects", f.OwnerID, f, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject applies a partial update.
func (c *Client) UpdateProject(ctx context.Context, id string, upd models.ProjectUpdate) error {
	user := ""
	if upd.LastModifiedBy != nil {
		user = *upd.LastModifiedBy
	}
	return c.do(ctx, http.MethodPatch, "/projects/"+url.PathEscape(id), user, upd, nil)
}

// GetProject fetches a project with its tasks. userID must be a member.
func (c *Client) GetProject(ctx context.Context, id, userID string) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), userID, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects lists the projects a user can open.
func (c *Client) ListProjects(ctx context.Context, userID string) ([]models.ProjectSummary, error) {
	var list []models.ProjectSummary
	path := "/projects?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, userID, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// --- Activity ---

// LogActivity records a collaboration activity entry.
func (c *Client) LogActivity(ctx context.Context, projectID, userID string, kind models.ActivityKind, payload map[string]any) error {
	body := map[string]interface{}{
		"user_id": userID,
		"kind":    kind,
		"payload": payload,
	}
	return c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/activity", userID, body, nil)
}

// ListActivity fetches recent activity for a project.
func (c *Client) ListActivity(ctx context.Context, projectID, userID string, limit int) ([]models.ActivityRecord, error) {
	var list []models.ActivityRecord
	path := "/projects/" + url.PathEscape(projectID) + "/activity?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, userID, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// --- Invitations ---

// CreateInvitation issues an invitation token for a project.
func (c *Client) CreateInvitation(ctx context.Context, projectID, userID string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/invitations", userID, map[string]string{}, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// AcceptInvitation redeems an invitation token for userID.
func (c *Client) AcceptInvitation(ctx context.Context, token, userID string) (*models.Invitation, error) {
	var inv models.Invitation
	body := map[string]string{"user_id": userID}
	if err := c.do(ctx, http.MethodPost, "/invitations/"+url.PathEscape(token)+"/accept", userID, body, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// --- Health ---

// CheckHealth returns the backend health payload. A non-200 response still
// returns the parsed payload alongside the error.
func (c *Client) CheckHealth(ctx context.Context) (*backend.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var health backend.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, fmt.Errorf("health check failed (status %d): %s", resp.StatusCode, health.DB)
	}
	return &health, nil
}

func (c *Client) do(ctx context.Context, method, path, user string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(backend.UserHeader, user)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
