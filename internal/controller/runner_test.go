package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/fentz26/planforge/internal/environment"
	"github.com/fentz26/planforge/internal/genai"
	"github.com/fentz26/planforge/internal/logger"
	"github.com/fentz26/planforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	plan   *models.Plan
	deck   *models.SlideDeck
	err    error
	goals  []string
	apiKey string
}

func (f *fakeGenerator) GeneratePlan(_ context.Context, goal string) (*models.Plan, error) {
	f.goals = append(f.goals, goal)
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func (f *fakeGenerator) GenerateReportDeck(_ context.Context, _ models.Task) (*models.SlideDeck, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.deck, nil
}

func (f *fakeGenerator) SetAPIKey(key string) { f.apiKey = key }

type fakeBackend struct {
	updateErr   error
	createErr   error
	activityErr error
	created     []models.ProjectFields
	updates     []models.ProjectUpdate
	activity    []models.ActivityKind
	projects    map[string]*models.Project
	accepted    []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{projects: map[string]*models.Project{}}
}

func (f *fakeBackend) CreateProject(_ context.Context, fields models.ProjectFields) (*models.Project, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, fields)
	p := &models.Project{ID: "p-new", Title: fields.Title, Goal: fields.Goal, Tasks: fields.Tasks, OwnerID: fields.OwnerID}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeBackend) UpdateProject(_ context.Context, id string, upd models.ProjectUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeBackend) GetProject(_ context.Context, id, _ string) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (f *fakeBackend) ListProjects(_ context.Context, userID string) ([]models.ProjectSummary, error) {
	var out []models.ProjectSummary
	for _, p := range f.projects {
		out = append(out, p.Summary())
	}
	return out, nil
}

func (f *fakeBackend) LogActivity(_ context.Context, _, _ string, kind models.ActivityKind, _ map[string]any) error {
	if f.activityErr != nil {
		return f.activityErr
	}
	f.activity = append(f.activity, kind)
	return nil
}

func (f *fakeBackend) AcceptInvitation(_ context.Context, token, userID string) (*models.Invitation, error) {
	if token == "bad" {
		return nil, errors.New("invitation not found")
	}
	f.accepted = append(f.accepted, token)
	return &models.Invitation{Token: token, ProjectID: "p1", AcceptedBy: userID}, nil
}

func newTestRunner(gen *fakeGenerator, b *fakeBackend, env environment.Environment) *Runner {
	return &Runner{
		Generator:   gen,
		Projects:    b,
		Activity:    b,
		Invitations: b,
		Env:         env,
		Log:         logger.Discard(),
	}
}

func TestRunner_GeneratePlan(t *testing.T) {
	gen := &fakeGenerator{plan: &models.Plan{Title: "Launch", Tasks: []models.Task{{ID: "a"}}}}
	r := newTestRunner(gen, newFakeBackend(), nil)

	ev := r.Run(context.Background(), GeneratePlan{Goal: "Launch product"})
	require.IsType(t, PlanGenerated{}, ev)
	assert.Equal(t, "Launch", ev.(PlanGenerated).Plan.Title)
	assert.Equal(t, []string{"Launch product"}, gen.goals)

	gen.err = genai.ErrNoAPIKey
	ev = r.Run(context.Background(), GeneratePlan{Goal: "x"})
	require.IsType(t, GenerationFailed{}, ev)
	assert.ErrorIs(t, ev.(GenerationFailed).Err, genai.ErrNoAPIKey)
}

func TestRunner_GenerateDeck(t *testing.T) {
	gen := &fakeGenerator{deck: &models.SlideDeck{ID: "d1"}}
	r := newTestRunner(gen, newFakeBackend(), nil)

	ev := r.Run(context.Background(), GenerateDeck{Task: models.Task{ID: "A"}})
	assert.Equal(t, DeckGenerated{TaskID: "A", Deck: models.SlideDeck{ID: "d1"}}, ev)

	gen.err = errors.New("boom")
	assert.IsType(t, DeckGenerationFailed{}, r.Run(context.Background(), GenerateDeck{}))
}

func TestRunner_SaveTasks(t *testing.T) {
	b := newFakeBackend()
	r := newTestRunner(&fakeGenerator{}, b, nil)
	act := &Activity{Kind: models.ActivityTaskCreated, TaskID: "A", TaskTitle: "a"}

	ev := r.Run(context.Background(), SaveTasks{ProjectID: "p1", UserID: "u1", Tasks: []models.Task{{ID: "A"}}, Activity: act})
	assert.Equal(t, ProjectSaved{ProjectID: "p1", UserID: "u1", Activity: act}, ev)
	require.Len(t, b.updates, 1)
	assert.Equal(t, "u1", *b.updates[0].LastModifiedBy)
	assert.Len(t, *b.updates[0].Tasks, 1)

	b.updateErr = errors.New("connection refused")
	ev = r.Run(context.Background(), SaveTasks{ProjectID: "p1", UserID: "u1"})
	require.IsType(t, ProjectSaveFailed{}, ev)
}

func TestRunner_LogActivityIsBestEffort(t *testing.T) {
	b := newFakeBackend()
	r := newTestRunner(&fakeGenerator{}, b, nil)

	assert.Nil(t, r.Run(context.Background(), LogActivity{Kind: models.ActivityTaskDeleted}))
	assert.Equal(t, []models.ActivityKind{models.ActivityTaskDeleted}, b.activity)

	b.activityErr = errors.New("down")
	assert.Nil(t, r.Run(context.Background(), LogActivity{Kind: models.ActivityTaskDeleted}))
}

func TestRunner_Projects(t *testing.T) {
	b := newFakeBackend()
	r := newTestRunner(&fakeGenerator{}, b, nil)
	ctx := context.Background()

	ev := r.Run(ctx, CreateProject{Fields: models.ProjectFields{Title: "Launch", OwnerID: "u1"}})
	require.IsType(t, ProjectCreated{}, ev)
	assert.Equal(t, "p-new", ev.(ProjectCreated).Project.ID)

	ev = r.Run(ctx, ListProjects{UserID: "u1"})
	require.IsType(t, ProjectsListed{}, ev)
	assert.Len(t, ev.(ProjectsListed).Projects, 1)

	ev = r.Run(ctx, FetchProject{ID: "p-new", UserID: "u1"})
	require.IsType(t, ProjectLoaded{}, ev)

	assert.IsType(t, ProjectLoadFailed{}, r.Run(ctx, FetchProject{ID: "missing"}))

	b.createErr = errors.New("down")
	assert.IsType(t, ProjectCreateFailed{}, r.Run(ctx, CreateProject{}))
}

func TestRunner_Invitations(t *testing.T) {
	b := newFakeBackend()
	env := &environment.Static{Token: "tok"}
	r := newTestRunner(&fakeGenerator{}, b, env)
	ctx := context.Background()

	ev := r.Run(ctx, RedeemInvitation{Token: "tok", UserID: "u2"})
	require.IsType(t, InvitationAccepted{}, ev)
	assert.Equal(t, "u2", ev.(InvitationAccepted).Invitation.AcceptedBy)

	assert.IsType(t, InvitationFailed{}, r.Run(ctx, RedeemInvitation{Token: "bad", UserID: "u2"}))

	assert.Nil(t, r.Run(ctx, ClearInvitationToken{}))
	assert.True(t, env.Cleared)
}

func TestRunner_ConfigureGenerator(t *testing.T) {
	gen := &fakeGenerator{}
	r := newTestRunner(gen, newFakeBackend(), nil)

	assert.Nil(t, r.Run(context.Background(), ConfigureGenerator{APIKey: "k"}))
	assert.Equal(t, "k", gen.apiKey)
}

func TestRunner_NoCollaborators(t *testing.T) {
	r := &Runner{}
	ctx := context.Background()

	assert.IsType(t, GenerationFailed{}, r.Run(ctx, GeneratePlan{Goal: "x"}))
	assert.IsType(t, DeckGenerationFailed{}, r.Run(ctx, GenerateDeck{}))

	ev := r.Run(ctx, SaveTasks{})
	require.IsType(t, ProjectSaveFailed{}, ev)
	assert.ErrorIs(t, ev.(ProjectSaveFailed).Err, ErrNoBackend)

	assert.IsType(t, ProjectCreateFailed{}, r.Run(ctx, CreateProject{}))
	assert.IsType(t, ProjectListFailed{}, r.Run(ctx, ListProjects{}))
	assert.IsType(t, ProjectLoadFailed{}, r.Run(ctx, FetchProject{}))
	assert.IsType(t, InvitationFailed{}, r.Run(ctx, RedeemInvitation{}))
	assert.Nil(t, r.Run(ctx, LogActivity{}))
	assert.Nil(t, r.Run(ctx, ClearInvitationToken{}))
	assert.Nil(t, r.Run(ctx, ConfigureGenerator{}))
}
