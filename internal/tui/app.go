// Package tui provides the interactive terminal UI for PlanForge.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/planforge/internal/auth"
	"github.com/fentz26/planforge/internal/controller"
	"github.com/fentz26/planforge/internal/environment"
	"github.com/fentz26/planforge/internal/logger"
	"github.com/fentz26/planforge/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// effectTimeout bounds one collaborator call. Plan generation is the
	// slowest of them.
	effectTimeout = 2 * time.Minute
	loginTimeout  = 5 * time.Minute
)

// Authenticator is the session source the App signs in through.
type Authenticator interface {
	CurrentUser() *models.User
	Subscribe(fn func(*models.User)) func()
	Login(ctx context.Context) (*auth.Session, error)
	Logout() error
}

// Options configures the App.
type Options struct {
	Reducer controller.Reducer
	Runner  controller.EffectRunner
	Auth    Authenticator
	Env     environment.Environment
	Log     *logrus.Entry
	// Backend is shown in the status bar.
	Backend string
}

type loginResultMsg struct{ err error }

type logoutResultMsg struct{ err error }

// App is the main TUI application model.
type App struct {
	reducer controller.Reducer
	runner  controller.EffectRunner
	auth    Authenticator
	env     environment.Environment
	log     *logrus.Entry
	backend string

	state  controller.State
	cursor int

	goal     textinput.Model
	addTitle textinput.Model
	apiKey   textinput.Model
	cmdbar   *CmdBar
	projects *ProjectListModel
	detail   viewport.Model
	spinner  spinner.Model
	slides   *SlideEditor

	message   string
	showHelp  bool
	loggingIn bool
	width     int
	height    int
}

// New creates the App.
func New(opts Options) *App {
	goal := textinput.New()
	goal.Placeholder = "Describe what you want to achieve..."
	goal.CharLimit = 1000
	goal.Width = 70
	goal.Focus()

	addTitle := textinput.New()
	addTitle.Placeholder = "Task title"
	addTitle.CharLimit = 200

	apiKey := textinput.New()
	apiKey.Placeholder = "Gemini API key"
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'

	reducer := opts.Reducer
	if reducer.NewID == nil || reducer.Now == nil {
		reducer = controller.NewReducer()
	}
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}

	return &App{
		reducer:  reducer,
		runner:   opts.Runner,
		auth:     opts.Auth,
		env:      opts.Env,
		log:      log,
		backend:  opts.Backend,
		state:    controller.NewState(),
		goal:     goal,
		addTitle: addTitle,
		apiKey:   apiKey,
		cmdbar:   NewCmdBar(),
		projects: NewProjectListModel(),
		detail:   viewport.New(40, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	if a.auth != nil {
		unsub := a.auth.Subscribe(func(u *models.User) {
			p.Send(controller.UserChanged{User: u})
		})
		defer unsub()
	}
	_, err := p.Run()
	return err
}

// State returns the current snapshot.
func (a *App) State() controller.State { return a.state }

// Init starts the session.
func (a *App) Init() tea.Cmd {
	start := controller.Started{}
	if a.auth != nil {
		start.User = a.auth.CurrentUser()
	}
	if a.env != nil {
		start.InvitationToken = a.env.InvitationToken()
	}
	return tea.Batch(
		textinput.Blink,
		a.spinner.Tick,
		func() tea.Msg { return start },
	)
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case controller.Event:
		return a, a.dispatch(msg)

	case loginResultMsg:
		a.loggingIn = false
		if msg.err != nil {
			a.message = "Sign-in failed: " + msg.err.Error()
			return a, nil
		}
		a.message = ""
		return a, a.dispatch(controller.UserChanged{User: a.auth.CurrentUser()})

	case logoutResultMsg:
		if msg.err != nil {
			a.message = "Sign-out failed: " + msg.err.Error()
			return a, nil
		}
		a.message = "Signed out"
		return a, a.dispatch(controller.UserChanged{User: nil})

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.handleKey(msg)
	}

	return a, a.forward(msg)
}

// dispatch reduces ev and turns the resulting effects into commands.
func (a *App) dispatch(ev controller.Event) tea.Cmd {
	prev := a.state
	var effects []controller.Effect
	a.state, effects = a.reducer.Reduce(a.state, ev)

	cmds := []tea.Cmd{a.sync(prev)}
	for _, eff := range effects {
		cmds = append(cmds, a.run(eff))
	}
	return tea.Batch(cmds...)
}

// run executes eff off the event loop. Its result comes back as a message.
func (a *App) run(eff controller.Effect) tea.Cmd {
	if a.runner == nil {
		return nil
	}
	runner := a.runner
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		defer cancel()
		if ev := runner.Run(ctx, eff); ev != nil {
			return ev
		}
		return nil
	}
}

// sync brings the widgets in line with a new snapshot.
func (a *App) sync(prev controller.State) tea.Cmd {
	var cmds []tea.Cmd
	s := a.state

	if a.cursor >= len(s.Tasks) {
		a.cursor = max(0, len(s.Tasks)-1)
	}
	if s.Selected != nil {
		if prev.Selected == nil || prev.Selected.ID != s.Selected.ID {
			a.detail.GotoTop()
			for i, t := range s.Tasks {
				if t.ID == s.Selected.ID {
					a.cursor = i
				}
			}
		}
		a.detail.SetContent(renderTaskDetail(*s.Selected, a.detail.Width))
	}

	switch {
	case s.SlideEditor == nil:
		a.slides = nil
	case a.slides == nil || a.slides.TaskID() != s.SlideEditor.TaskID:
		a.slides = NewSlideEditor(*s.SlideEditor, a.reducer.NewID)
		a.slides.SetSize(a.width, a.height)
	}

	cmds = append(cmds, a.projects.SetProjects(s.Projects))

	if s.View == controller.ViewInput && prev.View != controller.ViewInput {
		a.goal.SetValue("")
		cmds = append(cmds, a.goal.Focus())
	}
	if s.View == controller.ViewFlow {
		a.goal.Blur()
	}
	if s.AddTaskOpen && !prev.AddTaskOpen {
		a.addTitle.SetValue("")
		cmds = append(cmds, a.addTitle.Focus())
	}
	if !s.AddTaskOpen {
		a.addTitle.Blur()
	}
	if s.APIKeyOpen && !prev.APIKeyOpen {
		a.apiKey.SetValue("")
		cmds = append(cmds, a.apiKey.Focus())
	}
	if !s.APIKeyOpen {
		a.apiKey.Blur()
	}
	if s.ProjectListOpen && !prev.ProjectListOpen {
		a.cmdbar.Blur()
	}
	return tea.Batch(cmds...)
}

func (a *App) resize(w, h int) {
	a.width, a.height = w, h
	a.goal.Width = max(20, min(w-8, 100))
	a.addTitle.Width = max(20, min(w-12, 80))
	a.apiKey.Width = max(20, min(w-12, 80))
	a.cmdbar.SetWidth(w)
	a.projects.SetSize(w-2, h-6)
	a.detail.Width = max(30, w*2/5)
	a.detail.Height = max(5, h-6)
	if a.state.Selected != nil {
		a.detail.SetContent(renderTaskDetail(*a.state.Selected, a.detail.Width))
	}
	if a.slides != nil {
		a.slides.SetSize(w, h)
	}
}

// forward passes non-key messages to the focused widget.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case a.slides != nil:
		return nil
	case a.state.ProjectListOpen:
		return a.projects.Update(msg)
	case a.cmdbar.Focused():
		return a.cmdbar.Update(msg, a.state.Tasks)
	case a.state.APIKeyOpen:
		a.apiKey, cmd = a.apiKey.Update(msg)
	case a.state.AddTaskOpen:
		a.addTitle, cmd = a.addTitle.Update(msg)
	case a.state.View == controller.ViewInput:
		a.goal, cmd = a.goal.Update(msg)
	}
	return cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	s := a.state

	switch {
	case a.slides != nil:
		cmd, ev := a.slides.Update(msg)
		if ev != nil {
			return tea.Batch(cmd, a.dispatch(ev))
		}
		return cmd

	case s.ConfirmNewProjectOpen:
		switch key {
		case "y", "enter":
			return a.dispatch(controller.ConfirmNewProject{})
		case "n", "esc":
			return a.dispatch(controller.CancelNewProject{})
		}
		return nil

	case s.InvitationOpen && !s.AuthOpen:
		switch key {
		case "a", "enter":
			return a.dispatch(controller.AcceptInvitation{})
		case "d", "esc":
			return a.dispatch(controller.DismissInvitation{})
		}
		return nil

	case s.AuthOpen:
		switch key {
		case "enter":
			return a.login()
		case "esc":
			return a.dispatch(controller.CloseAuth{})
		}
		return nil

	case s.APIKeyOpen:
		switch key {
		case "enter":
			k := a.apiKey.Value()
			a.apiKey.SetValue("")
			a.message = ""
			if strings.TrimSpace(k) != "" {
				a.message = "API key set"
			}
			return a.dispatch(controller.SetAPIKey{Key: k})
		case "esc":
			return a.dispatch(controller.CloseAPIKey{})
		}
		var cmd tea.Cmd
		a.apiKey, cmd = a.apiKey.Update(msg)
		return cmd

	case s.AddTaskOpen:
		switch key {
		case "enter":
			title := a.addTitle.Value()
			return a.dispatch(controller.AddTask{Title: title})
		case "esc":
			return a.dispatch(controller.CloseAddTask{})
		}
		var cmd tea.Cmd
		a.addTitle, cmd = a.addTitle.Update(msg)
		return cmd

	case s.ProjectListOpen:
		if !a.projects.Filtering() {
			switch key {
			case "enter":
				if p, ok := a.projects.Selected(); ok {
					return a.dispatch(controller.LoadProject{ID: p.ID})
				}
				return nil
			case "esc", "q":
				return a.dispatch(controller.CloseProjectList{})
			}
		}
		return a.projects.Update(msg)

	case a.cmdbar.Focused():
		switch key {
		case "enter":
			return a.runCommand(a.cmdbar.Submit())
		case "esc":
			a.cmdbar.Blur()
			return nil
		case "tab":
			a.cmdbar.Complete()
			return nil
		}
		return a.cmdbar.Update(msg, s.Tasks)

	case s.View == controller.ViewInput:
		return a.handleInputKey(msg)
	}

	return a.handleFlowKey(msg)
}

func (a *App) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		if a.state.Loading {
			return nil
		}
		return a.dispatch(controller.SubmitGoal{Goal: a.goal.Value()})
	case "esc":
		if a.state.Error != "" {
			return a.dispatch(controller.DismissError{})
		}
		return nil
	case "ctrl+o":
		return a.dispatch(controller.OpenProjectList{})
	case "ctrl+k":
		return a.dispatch(controller.OpenAPIKey{})
	case "ctrl+l":
		return a.dispatch(controller.OpenAuth{})
	}
	var cmd tea.Cmd
	a.goal, cmd = a.goal.Update(msg)
	return cmd
}

func (a *App) handleFlowKey(msg tea.KeyMsg) tea.Cmd {
	s := a.state
	cur, hasCur := a.cursorTask()

	switch msg.String() {
	case "q":
		return tea.Quit
	case "?":
		a.showHelp = !a.showHelp
	case "j", "down":
		if a.cursor < len(s.Tasks)-1 {
			a.cursor++
		}
	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
	case "enter":
		if hasCur {
			return a.dispatch(controller.SelectTask{ID: cur.ID})
		}
	case "esc":
		switch {
		case s.TaskDetailOpen:
			return a.dispatch(controller.CloseTaskDetail{})
		case s.Error != "":
			return a.dispatch(controller.DismissError{})
		}
		a.message = ""
	case "a":
		return a.dispatch(controller.OpenAddTask{})
	case "n":
		return a.dispatch(controller.NewProject{})
	case "o":
		return a.dispatch(controller.OpenProjectList{})
	case "K":
		return a.dispatch(controller.OpenAPIKey{})
	case "s":
		if hasCur {
			cur.Status = cur.Status.Next()
			return a.dispatch(controller.UpdateTask{Task: cur})
		}
	case "d", "delete":
		if hasCur {
			return a.dispatch(controller.DeleteTask{ID: cur.ID})
		}
	case "g":
		if hasCur && !s.Loading {
			return tea.Batch(
				a.dispatch(controller.SelectTask{ID: cur.ID}),
				a.dispatch(controller.GenerateReportDeck{}),
			)
		}
	case "e":
		if hasCur {
			if cur.ExtendedDetails.ReportDeck == nil {
				a.message = "No report deck yet (press g to generate one)"
				return nil
			}
			return a.dispatch(controller.OpenSlideEditor{TaskID: cur.ID, Deck: *cur.ExtendedDetails.ReportDeck})
		}
	case ":", "/":
		a.message = ""
		return a.cmdbar.Focus()
	case "pgdown", "ctrl+d":
		a.detail.LineDown(max(1, a.detail.Height/2))
	case "pgup", "ctrl+u":
		a.detail.LineUp(max(1, a.detail.Height/2))
	}
	return nil
}

func (a *App) cursorTask() (models.Task, bool) {
	if a.cursor < 0 || a.cursor >= len(a.state.Tasks) {
		return models.Task{}, false
	}
	return a.state.Tasks[a.cursor], true
}

// runCommand executes a command bar line. Task commands apply to the open
// task, or to the one under the cursor when none is open.
func (a *App) runCommand(line string) tea.Cmd {
	if line == "" {
		return nil
	}
	a.message = ""

	if ref, ok := strings.CutPrefix(line, "@"); ok {
		if t, found := findTask(a.state.Tasks, ref); found {
			return a.dispatch(controller.SelectTask{ID: t.ID})
		}
		a.message = "No task matches " + ref
		return nil
	}

	var cmds []tea.Cmd
	if a.state.Selected == nil {
		if cur, ok := a.cursorTask(); ok {
			cmds = append(cmds, a.dispatch(controller.SelectTask{ID: cur.ID}))
		}
	}

	ev, action, err := parseCommand(line, a.state)
	if err != nil {
		a.message = err.Error()
		return tea.Batch(cmds...)
	}

	switch action {
	case actionQuit:
		return tea.Quit
	case actionLogin:
		cmds = append(cmds, a.login())
	case actionLogout:
		cmds = append(cmds, a.logout())
	case actionWhoami:
		if u := a.state.User; u != nil {
			a.message = fmt.Sprintf("Signed in as %s <%s>", u.Username, u.Email)
		} else {
			a.message = "Not signed in (run: login)"
		}
	}
	if ev != nil {
		if _, ok := ev.(controller.SetAPIKey); ok {
			a.message = "API key set"
		}
		cmds = append(cmds, a.dispatch(ev))
	}
	return tea.Batch(cmds...)
}

func findTask(tasks []models.Task, ref string) (models.Task, bool) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return models.Task{}, false
	}
	for _, t := range tasks {
		if strings.ToLower(t.Title) == ref || t.ID == ref {
			return t, true
		}
	}
	for _, t := range tasks {
		if strings.HasPrefix(strings.ToLower(t.Title), ref) {
			return t, true
		}
	}
	return models.Task{}, false
}

func (a *App) login() tea.Cmd {
	if a.auth == nil {
		a.message = "Sign-in is not configured"
		return nil
	}
	if a.loggingIn {
		return nil
	}
	a.loggingIn = true
	a.message = "Opening browser to sign in..."
	mgr := a.auth
	log := a.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
		defer cancel()
		_, err := mgr.Login(ctx)
		if err != nil {
			log.WithError(err).Warn("sign-in failed")
		}
		return loginResultMsg{err: err}
	}
}

// logout runs off the event loop because subscribers send to the program.
func (a *App) logout() tea.Cmd {
	if a.auth == nil {
		return a.dispatch(controller.UserChanged{User: nil})
	}
	mgr := a.auth
	return func() tea.Msg {
		return logoutResultMsg{err: mgr.Logout()}
	}
}

// View renders the UI.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}
	if a.slides != nil {
		return a.slides.View()
	}

	var b strings.Builder
	b.WriteString(a.headerView() + "\n\n")

	switch {
	case a.state.ConfirmNewProjectOpen:
		b.WriteString(a.modal(a.confirmView()))
	case a.state.InvitationOpen && !a.state.AuthOpen:
		b.WriteString(a.modal(a.invitationView()))
	case a.state.AuthOpen:
		b.WriteString(a.modal(a.authView()))
	case a.state.APIKeyOpen:
		b.WriteString(a.modal(a.apiKeyView()))
	case a.state.AddTaskOpen:
		b.WriteString(a.modal(a.addTaskView()))
	case a.state.ProjectListOpen:
		b.WriteString(a.projects.View(a.state.Loading))
	case a.state.View == controller.ViewInput:
		b.WriteString(a.inputView())
	default:
		b.WriteString(a.flowView())
	}
	b.WriteString("\n")

	if a.state.Error != "" {
		b.WriteString("\n" + errorBarStyle.Width(a.width).Render("✗ "+a.state.Error+"  (esc to dismiss)"))
	}
	if a.message != "" {
		b.WriteString("\n" + accentStyle.Render(a.message))
	}
	if a.showHelp && a.state.View == controller.ViewFlow {
		b.WriteString("\n" + helpStyle.Render(flowHelp))
	}

	b.WriteString("\n")
	if a.state.View == controller.ViewFlow && !a.state.ProjectListOpen {
		b.WriteString(a.cmdbar.View(a.width) + "\n")
	}
	b.WriteString(a.statusBar())
	return b.String()
}

const flowHelp = "j/k move • enter open • a add • s status • d delete • g deck • e slides • : command • n new • o projects • K api key • q quit"

func (a *App) headerView() string {
	header := titleStyle.Render("PlanForge")
	if p := a.state.CurrentProject; p != nil {
		header += "  " + textStyle.Bold(true).Render(p.Title)
	}
	if a.state.Loading {
		header += "  " + a.spinner.View() + mutedStyle.Render(" working...")
	}
	return header
}

func (a *App) inputView() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("What do you want to achieve?") + "\n\n")
	b.WriteString(inputBoxStyle.Render(a.goal.View()) + "\n\n")
	if a.state.Loading {
		b.WriteString(a.spinner.View() + " Generating your project plan...\n")
	}
	b.WriteString(helpStyle.Render("enter generate • ctrl+o open project • ctrl+k api key • ctrl+l sign in • ctrl+c quit"))
	return b.String()
}

func (a *App) flowView() string {
	bodyHeight := max(cardHeight, a.height-8)
	if !a.state.TaskDetailOpen || a.state.Selected == nil {
		return renderBoard(a.state.Tasks, a.cursor, "", a.width-2, bodyHeight)
	}
	boardWidth := max(24, a.width-a.detail.Width-4)
	board := renderBoard(a.state.Tasks, a.cursor, a.state.Selected.ID, boardWidth, bodyHeight)
	detail := panelStyle.Render(a.detail.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, board, " ", detail)
}

func (a *App) confirmView() string {
	title := "a new plan"
	if p := a.state.PendingPlan; p != nil {
		title = fmt.Sprintf("%q (%d tasks)", p.Title, len(p.Tasks))
	}
	return headingStyle.Render("Replace the current project?") + "\n\n" +
		"Apply " + title + "? Your current board will be replaced.\n\n" +
		helpStyle.Render("y confirm • n cancel")
}

func (a *App) invitationView() string {
	return headingStyle.Render("Project invitation") + "\n\n" +
		"You have been invited to collaborate on a project.\n\n" +
		helpStyle.Render("a accept • d dismiss")
}

func (a *App) authView() string {
	body := headingStyle.Render("Sign in") + "\n\n" +
		"Sign in to save projects and collaborate.\n\n"
	if a.loggingIn {
		return body + a.spinner.View() + " Waiting for the browser...\n\n" + helpStyle.Render("esc cancel")
	}
	return body + helpStyle.Render("enter open browser • esc cancel")
}

func (a *App) apiKeyView() string {
	return headingStyle.Render("Gemini API key") + "\n\n" +
		inputBoxStyle.Render(a.apiKey.View()) + "\n\n" +
		helpStyle.Render("enter save • esc cancel")
}

func (a *App) addTaskView() string {
	return headingStyle.Render("Add task") + "\n\n" +
		inputBoxStyle.Render(a.addTitle.View()) + "\n\n" +
		helpStyle.Render("enter add • esc cancel")
}

func (a *App) modal(content string) string {
	return lipgloss.Place(a.width, max(10, a.height-6), lipgloss.Center, lipgloss.Center, modalStyle.Render(content))
}

func (a *App) statusBar() string {
	user := mutedStyle.Render("○ not signed in")
	if u := a.state.User; u != nil {
		name := u.Username
		if name == "" {
			name = u.Email
		}
		user = lipgloss.NewStyle().Foreground(colorSuccess).Render("● " + name)
	}

	parts := []string{user}
	if a.backend != "" {
		parts = append(parts, a.backend)
	}
	if a.state.View == controller.ViewFlow {
		parts = append(parts, fmt.Sprintf("%d tasks", len(a.state.Tasks)))
		if !a.state.CanPersist() {
			parts = append(parts, lipgloss.NewStyle().Foreground(colorWarning).Render("not saved"))
		}
	}
	parts = append(parts, "? help")
	return statusBarStyle.Width(a.width).Render(strings.Join(parts, " | "))
}
