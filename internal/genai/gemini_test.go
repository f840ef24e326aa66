package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/planforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGemini struct {
	t        *testing.T
	status   int
	text     string
	lastReq  generateRequest
	lastPath string
	lastKey  string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lastPath = r.URL.Path
	f.lastKey = r.URL.Query().Get("key")
	assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastReq))

	if f.status != 0 && f.status != http.StatusOK {
		http.Error(w, `{"error":{"message":"quota"}}`, f.status)
		return
	}
	resp := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": f.text}}}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newFake(t *testing.T, text string) (*fakeGemini, *Gemini) {
	t.Helper()
	f := &fakeGemini{t: t, text: text}
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)

	g := NewGemini("secret", "", ts.URL, 5*time.Second)
	n := 0
	g.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return f, g
}

const threeTaskPlan = `{
  "projectTitle": "Launch",
  "projectGoal": "Launch product",
  "targetDate": "2026-12-01",
  "tasks": [
    {"id": "t1", "title": "Research", "description": "market", "status": "pending"},
    {"title": "Build", "description": "mvp", "dependencies": ["t1"]},
    {"id": "t3", "title": "Ship", "status": "bogus"}
  ],
  "ganttData": [{"id": "g1", "name": "Research", "start": "2026-10-01", "end": "2026-10-10", "type": "task"}]
}`

func TestGeneratePlan(t *testing.T) {
	f, g := newFake(t, threeTaskPlan)

	plan, err := g.GeneratePlan(context.Background(), "Launch product")
	require.NoError(t, err)

	assert.Equal(t, "Launch", plan.Title)
	assert.Equal(t, "2026-12-01", plan.TargetDate)
	require.Len(t, plan.Tasks, 3)
	assert.Equal(t, "t1", plan.Tasks[0].ID)
	assert.Equal(t, "id-1", plan.Tasks[1].ID, "missing ids are generated")
	assert.Equal(t, models.TaskStatusPending, plan.Tasks[1].Status)
	assert.Equal(t, models.TaskStatusPending, plan.Tasks[2].Status, "unknown status falls back to pending")
	assert.Equal(t, []string{"t1"}, plan.Tasks[1].Dependencies)
	require.Len(t, plan.GanttData, 1)

	assert.Equal(t, "/v1beta/models/"+DefaultModel+":generateContent", f.lastPath)
	assert.Equal(t, "secret", f.lastKey)
	assert.Equal(t, "application/json", f.lastReq.GenerationConfig.ResponseMimeType)
	require.Len(t, f.lastReq.Contents, 1)
	assert.Contains(t, f.lastReq.Contents[0].Parts[0].Text, "Goal: Launch product")
}

func TestGeneratePlan_FencedJSON(t *testing.T) {
	_, g := newFake(t, "```json\n"+threeTaskPlan+"\n```")

	plan, err := g.GeneratePlan(context.Background(), "Launch product")
	require.NoError(t, err)
	assert.Len(t, plan.Tasks, 3)
}

func TestGeneratePlan_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		text   string
	}{
		{"http error", http.StatusTooManyRequests, ""},
		{"not json", http.StatusOK, "sure, here is a plan"},
		{"no tasks", http.StatusOK, `{"projectTitle": "x", "tasks": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, g := newFake(t, tt.text)
			f.status = tt.status

			_, err := g.GeneratePlan(context.Background(), "goal")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGeneration))
		})
	}
}

func TestGeneratePlan_EmptyCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer ts.Close()

	_, err := NewGemini("k", "", ts.URL, time.Second).GeneratePlan(context.Background(), "goal")
	assert.True(t, errors.Is(err, ErrGeneration))
	assert.Contains(t, err.Error(), "empty response")
}

func TestGeneratePlan_NoAPIKey(t *testing.T) {
	_, g := newFake(t, threeTaskPlan)
	g.SetAPIKey("  ")

	_, err := g.GeneratePlan(context.Background(), "goal")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	g.SetAPIKey("again")
	_, err = g.GeneratePlan(context.Background(), "goal")
	assert.NoError(t, err)
}

func TestGeneratePlan_TransportErrorHidesKey(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	_, err := NewGemini("super-secret", "", base, time.Second).GeneratePlan(context.Background(), "goal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))
	assert.NotContains(t, err.Error(), "super-secret")
}

func TestGenerateReportDeck(t *testing.T) {
	f, g := newFake(t, `{"slides": [{"title": "Status", "content": "# On track"}, {"id": "s2", "title": "Risks", "content": "- none"}]}`)

	target := 42.0
	task := models.Task{
		ID:     "t1",
		Title:  "Research",
		Status: models.TaskStatusInProgress,
		ExtendedDetails: models.ExtendedDetails{
			Responsible:     "nina",
			NumericalTarget: &target,
			SubSteps:        []models.SubStep{{ID: "s", Title: "Interviews", Status: models.SubStepCompleted}},
		},
	}

	deck, err := g.GenerateReportDeck(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "id-1", deck.ID)
	assert.Equal(t, "Research", deck.Title, "title falls back to the task title")
	require.Len(t, deck.Slides, 2)
	assert.Equal(t, "id-2", deck.Slides[0].ID)
	assert.Equal(t, "s2", deck.Slides[1].ID)

	prompt := f.lastReq.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "Task: Research")
	assert.Contains(t, prompt, "Responsible: nina")
	assert.Contains(t, prompt, "Target: 42")
	assert.Contains(t, prompt, "- Interviews (completed)")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1} `))
	assert.True(t, strings.HasPrefix(buildPlanPrompt(" x "), "You are"))
}
