package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/planforge/internal/auth"
	"github.com/fentz26/planforge/internal/controller"
	"github.com/fentz26/planforge/internal/environment"
	"github.com/fentz26/planforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	effects []controller.Effect
	respond func(controller.Effect) controller.Event
}

func (f *fakeRunner) Run(_ context.Context, eff controller.Effect) controller.Event {
	f.mu.Lock()
	f.effects = append(f.effects, eff)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return nil
	}
	return respond(eff)
}

func (f *fakeRunner) ran() []controller.Effect {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]controller.Effect(nil), f.effects...)
}

type fakeAuth struct {
	mu       sync.Mutex
	user     *models.User
	loginErr error
}

func (f *fakeAuth) CurrentUser() *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeAuth) Subscribe(func(*models.User)) func() { return func() {} }

func (f *fakeAuth) Login(context.Context) (*auth.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = &models.User{ID: "u1", Email: "alice@example.com", Username: "alice"}
	return &auth.Session{User: *f.user}, nil
}

func (f *fakeAuth) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
	return nil
}

func testPlan() models.Plan {
	return models.Plan{
		Title: "Launch",
		Goal:  "Launch product",
		Tasks: []models.Task{
			{ID: "T1", Title: "Research", Status: models.TaskStatusPending},
			{ID: "T2", Title: "Build", Status: models.TaskStatusPending, Dependencies: []string{"T1"}},
		},
	}
}

func newTestApp(opts Options) *App {
	n := 0
	opts.Reducer = controller.Reducer{
		NewID: func() string { n++; return fmt.Sprintf("id-%d", n) },
		Now:   func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	a := New(opts)
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return a
}

// drain runs cmd and every follow-up command, feeding results back into the
// App. Commands that block (cursor blink, spinner ticks) are abandoned.
func drain(a *App, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 200; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}

		out := make(chan tea.Msg, 1)
		go func() { out <- c() }()
		var msg tea.Msg
		select {
		case msg = <-out:
		case <-time.After(50 * time.Millisecond):
			continue
		}

		switch m := msg.(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, m...)
		case tea.QuitMsg:
		default:
			_, next := a.Update(m)
			queue = append(queue, next)
		}
	}
}

func typeText(a *App, s string) {
	for _, r := range s {
		drain(a, send(a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}))
	}
}

func press(a *App, k tea.KeyType) {
	drain(a, send(a, tea.KeyMsg{Type: k}))
}

func key(a *App, r rune) {
	drain(a, send(a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}))
}

func send(a *App, msg tea.Msg) tea.Cmd {
	_, cmd := a.Update(msg)
	return cmd
}

func withPlan(t *testing.T, a *App) {
	t.Helper()
	drain(a, send(a, controller.PlanGenerated{Plan: testPlan()}))
	require.Equal(t, controller.ViewFlow, a.State().View)
}

func TestApp_GoalSubmitGeneratesPlan(t *testing.T) {
	runner := &fakeRunner{respond: func(eff controller.Effect) controller.Event {
		if _, ok := eff.(controller.GeneratePlan); ok {
			return controller.PlanGenerated{Plan: testPlan()}
		}
		return nil
	}}
	a := newTestApp(Options{Runner: runner})

	typeText(a, "Launch product")
	press(a, tea.KeyEnter)

	s := a.State()
	assert.Equal(t, controller.ViewFlow, s.View)
	assert.Len(t, s.Tasks, 2)
	assert.False(t, s.Loading)
	require.NotEmpty(t, runner.ran())
	assert.Equal(t, controller.GeneratePlan{Goal: "Launch product"}, runner.ran()[0])
	assert.Contains(t, a.View(), "Research")
}

func TestApp_GenerationFailureShowsError(t *testing.T) {
	runner := &fakeRunner{respond: func(controller.Effect) controller.Event {
		return controller.GenerationFailed{Err: errors.New("quota exceeded")}
	}}
	a := newTestApp(Options{Runner: runner})

	typeText(a, "x")
	press(a, tea.KeyEnter)
	assert.Equal(t, "Failed to generate project plan: quota exceeded", a.State().Error)
	assert.Contains(t, a.View(), "quota exceeded")

	press(a, tea.KeyEsc)
	assert.Empty(t, a.State().Error)
}

func TestApp_FlowKeys(t *testing.T) {
	a := newTestApp(Options{})
	withPlan(t, a)

	key(a, 'j')
	press(a, tea.KeyEnter)
	s := a.State()
	require.NotNil(t, s.Selected)
	assert.Equal(t, "T2", s.Selected.ID)
	assert.True(t, s.TaskDetailOpen)

	key(a, 's')
	task, _ := a.State().Task("T2")
	assert.Equal(t, models.TaskStatusInProgress, task.Status)

	press(a, tea.KeyEsc)
	assert.False(t, a.State().TaskDetailOpen)

	key(a, 'd')
	assert.Len(t, a.State().Tasks, 1)
	assert.Equal(t, 0, a.cursor)
}

func TestApp_AddTaskPrompt(t *testing.T) {
	a := newTestApp(Options{})
	withPlan(t, a)

	key(a, 'a')
	require.True(t, a.State().AddTaskOpen)
	typeText(a, "Ship it")
	press(a, tea.KeyEnter)

	s := a.State()
	assert.False(t, s.AddTaskOpen)
	require.Len(t, s.Tasks, 3)
	assert.Equal(t, "Ship it", s.Tasks[2].Title)
}

func TestApp_CommandBarEditsCursorTask(t *testing.T) {
	a := newTestApp(Options{})
	withPlan(t, a)

	key(a, ':')
	require.True(t, a.cmdbar.Focused())
	typeText(a, "sub Interview users")
	press(a, tea.KeyEnter)

	assert.False(t, a.cmdbar.Focused())
	task, _ := a.State().Task("T1")
	require.Len(t, task.ExtendedDetails.SubSteps, 1)
	assert.Equal(t, "Interview users", task.ExtendedDetails.SubSteps[0].Title)
}

func TestApp_CommandBarReference(t *testing.T) {
	a := newTestApp(Options{})
	withPlan(t, a)

	key(a, ':')
	typeText(a, "@build")
	press(a, tea.KeyEnter)

	require.NotNil(t, a.State().Selected)
	assert.Equal(t, "T2", a.State().Selected.ID)
	assert.Equal(t, 1, a.cursor)
}

func TestApp_CommandBarError(t *testing.T) {
	a := newTestApp(Options{})
	withPlan(t, a)

	key(a, ':')
	typeText(a, "frobnicate")
	press(a, tea.KeyEnter)
	assert.Contains(t, a.message, "Unknown: frobnicate")
}

func TestApp_SlideEditor(t *testing.T) {
	deck := models.SlideDeck{ID: "deck", Title: "Research", Slides: []models.Slide{{ID: "s1", Title: "Intro", Content: "Hi"}}}
	runner := &fakeRunner{respond: func(eff controller.Effect) controller.Event {
		if g, ok := eff.(controller.GenerateDeck); ok {
			return controller.DeckGenerated{TaskID: g.Task.ID, Deck: deck}
		}
		return nil
	}}
	a := newTestApp(Options{Runner: runner})
	withPlan(t, a)

	key(a, 'e')
	assert.Contains(t, a.message, "No report deck yet")

	key(a, 'g')
	task, _ := a.State().Task("T1")
	require.NotNil(t, task.ExtendedDetails.ReportDeck)

	key(a, 'e')
	require.NotNil(t, a.slides)
	assert.Contains(t, a.View(), "Slide 1 of 1")

	key(a, 'n')
	require.True(t, a.slides.Editing())
	typeText(a, "Next steps")
	press(a, tea.KeyCtrlS)

	task, _ = a.State().Task("T1")
	slides := task.ExtendedDetails.ReportDeck.Slides
	require.Len(t, slides, 2)
	assert.Equal(t, "New slide", slides[1].Title)
	assert.Equal(t, "Next steps", slides[1].Content)
	assert.NotEmpty(t, slides[1].ID)
	assert.NotEqual(t, "s1", slides[1].ID)

	press(a, tea.KeyEsc)
	assert.Nil(t, a.State().SlideEditor)
	assert.Nil(t, a.slides)
}

func TestApp_InvitationRequiresSignIn(t *testing.T) {
	runner := &fakeRunner{respond: func(eff controller.Effect) controller.Event {
		if r, ok := eff.(controller.RedeemInvitation); ok {
			return controller.InvitationAccepted{Invitation: models.Invitation{Token: r.Token, ProjectID: "p1", AcceptedBy: r.UserID}}
		}
		return nil
	}}
	fa := &fakeAuth{}
	env := &environment.Static{Token: "tok"}
	a := newTestApp(Options{Runner: runner, Auth: fa, Env: env})
	drain(a, a.Init())
	require.True(t, a.State().InvitationOpen)
	assert.Contains(t, a.View(), "Project invitation")

	key(a, 'a')
	require.True(t, a.State().AuthOpen)

	press(a, tea.KeyEnter)
	s := a.State()
	require.NotNil(t, s.User)
	assert.False(t, s.AuthOpen)

	key(a, 'a')
	s = a.State()
	assert.False(t, s.InvitationOpen)
	assert.Empty(t, s.InvitationToken)

	ran := runner.ran()
	require.Len(t, ran, 2)
	assert.Equal(t, controller.RedeemInvitation{Token: "tok", UserID: "u1"}, ran[0])
	assert.Equal(t, controller.ClearInvitationToken{}, ran[1])
}

func TestApp_LoginFailure(t *testing.T) {
	fa := &fakeAuth{loginErr: errors.New("timed out")}
	a := newTestApp(Options{Auth: fa})
	drain(a, a.Init())

	drain(a, send(a, tea.KeyMsg{Type: tea.KeyCtrlL}))
	require.True(t, a.State().AuthOpen)
	press(a, tea.KeyEnter)

	assert.Nil(t, a.State().User)
	assert.Equal(t, "Sign-in failed: timed out", a.message)
}

func TestApp_LogoutKeepsBoard(t *testing.T) {
	fa := &fakeAuth{user: &models.User{ID: "u1", Username: "alice"}}
	a := newTestApp(Options{Auth: fa})
	drain(a, a.Init())
	withPlan(t, a)
	require.NotNil(t, a.State().User)

	key(a, ':')
	typeText(a, "logout")
	press(a, tea.KeyEnter)

	s := a.State()
	assert.Nil(t, s.User)
	assert.Len(t, s.Tasks, 2)
	assert.Equal(t, "Signed out", a.message)
	assert.Contains(t, a.View(), "not signed in")
}

func TestApp_ProjectList(t *testing.T) {
	stored := models.Project{ID: "p1", Title: "Saved", Tasks: []models.Task{{ID: "X", Title: "Existing", Status: models.TaskStatusCompleted}}}
	runner := &fakeRunner{respond: func(eff controller.Effect) controller.Event {
		switch e := eff.(type) {
		case controller.ListProjects:
			return controller.ProjectsListed{Projects: []models.ProjectSummary{stored.Summary()}}
		case controller.FetchProject:
			if e.ID == "p1" {
				return controller.ProjectLoaded{Project: stored}
			}
		}
		return nil
	}}
	fa := &fakeAuth{user: &models.User{ID: "u1", Username: "alice"}}
	a := newTestApp(Options{Runner: runner, Auth: fa})
	drain(a, a.Init())

	drain(a, send(a, tea.KeyMsg{Type: tea.KeyCtrlO}))
	require.True(t, a.State().ProjectListOpen)
	require.Len(t, a.State().Projects, 1)
	assert.Contains(t, a.View(), "Saved")

	press(a, tea.KeyEnter)
	s := a.State()
	assert.False(t, s.ProjectListOpen)
	assert.Equal(t, controller.ViewFlow, s.View)
	require.NotNil(t, s.CurrentProject)
	assert.Equal(t, "p1", s.CurrentProject.ID)
	assert.Len(t, s.Tasks, 1)
}

func TestApp_ConfirmReplace(t *testing.T) {
	runner := &fakeRunner{respond: func(eff controller.Effect) controller.Event {
		if _, ok := eff.(controller.GeneratePlan); ok {
			p := testPlan()
			p.Title = "Second"
			return controller.PlanGenerated{Plan: p}
		}
		return nil
	}}
	a := newTestApp(Options{Runner: runner})
	withPlan(t, a)

	key(a, 'n')
	require.Equal(t, controller.ViewInput, a.State().View)
	// NewProject clears the board, so the next plan applies directly.
	typeText(a, "Second goal")
	press(a, tea.KeyEnter)
	assert.False(t, a.State().ConfirmNewProjectOpen)

	drain(a, send(a, controller.PlanGenerated{Plan: testPlan()}))
	require.True(t, a.State().ConfirmNewProjectOpen)
	assert.Contains(t, a.View(), "Replace the current project?")

	key(a, 'n')
	assert.False(t, a.State().ConfirmNewProjectOpen)
	assert.Len(t, a.State().Tasks, 2)
}

func TestApp_APIKeyPrompt(t *testing.T) {
	runner := &fakeRunner{}
	a := newTestApp(Options{Runner: runner})
	drain(a, send(a, tea.KeyMsg{Type: tea.KeyCtrlK}))
	require.True(t, a.State().APIKeyOpen)

	typeText(a, "secret")
	assert.False(t, strings.Contains(a.View(), "secret"), "key is masked")
	press(a, tea.KeyEnter)

	assert.False(t, a.State().APIKeyOpen)
	assert.Equal(t, []controller.Effect{controller.ConfigureGenerator{APIKey: "secret"}}, runner.ran())
}
