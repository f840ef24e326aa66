package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fentz26/planforge/internal/models"
)

// Default Gemini settings.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second
)

// Gemini calls the Gemini generateContent REST endpoint.
type Gemini struct {
	baseURL    string
	model      string
	httpClient *http.Client
	newID      func() string

	mu     sync.RWMutex
	apiKey string
}

// NewGemini creates a Gemini generator. Empty values fall back to defaults.
func NewGemini(apiKey, model, baseURL string, timeout time.Duration) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gemini{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		newID:      models.NewID,
		apiKey:     apiKey,
	}
}

// SetAPIKey replaces the API key used for later calls.
func (g *Gemini) SetAPIKey(key string) {
	g.mu.Lock()
	g.apiKey = strings.TrimSpace(key)
	g.mu.Unlock()
}

func (g *Gemini) key() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.apiKey
}

// GeneratePlan asks the model for a plan for goal.
func (g *Gemini) GeneratePlan(ctx context.Context, goal string) (*models.Plan, error) {
	var plan models.Plan
	if err := g.generateJSON(ctx, buildPlanPrompt(goal), &plan); err != nil {
		return nil, err
	}
	if len(plan.Tasks) == 0 {
		return nil, fmt.Errorf("%w: plan has no tasks", ErrGeneration)
	}
	for i := range plan.Tasks {
		t := &plan.Tasks[i]
		if t.ID == "" {
			t.ID = g.newID()
		}
		if !t.Status.Valid() {
			t.Status = models.TaskStatusPending
		}
	}
	return &plan, nil
}

// GenerateReportDeck asks the model for a slide deck summarizing task.
func (g *Gemini) GenerateReportDeck(ctx context.Context, task models.Task) (*models.SlideDeck, error) {
	var deck models.SlideDeck
	if err := g.generateJSON(ctx, buildDeckPrompt(task), &deck); err != nil {
		return nil, err
	}
	if deck.ID == "" {
		deck.ID = g.newID()
	}
	if deck.Title == "" {
		deck.Title = task.Title
	}
	for i := range deck.Slides {
		if deck.Slides[i].ID == "" {
			deck.Slides[i].ID = g.newID()
		}
	}
	return &deck, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) generateJSON(ctx context.Context, prompt string, out interface{}) error {
	key := g.key()
	if key == "" {
		return ErrNoAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// url.Error carries the key in the query string.
		return fmt.Errorf("%w: request failed", ErrGeneration)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrGeneration, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGeneration, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("%w: empty response", ErrGeneration)
	}

	text := stripFences(gr.Candidates[0].Content.Parts[0].Text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: decode content: %v", ErrGeneration, err)
	}
	return nil
}

// stripFences removes a ```json fence some models add despite the mime type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
