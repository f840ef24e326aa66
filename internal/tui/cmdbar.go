package tui

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/planforge/internal/controller"
	"github.com/fentz26/planforge/internal/models"
)

var (
	cmdBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

var errNoSelection = errors.New("No task selected (Enter opens a task)")

// appAction is a command handled by the App itself rather than the reducer.
type appAction int

const (
	actionNone appAction = iota
	actionLogin
	actionLogout
	actionWhoami
	actionQuit
)

// CmdBar manages the command input on the board.
type CmdBar struct {
	input       textinput.Model
	suggestions *Suggestions
	focused     bool
}

// NewCmdBar creates a new command bar.
func NewCmdBar() *CmdBar {
	ti := textinput.New()
	ti.Placeholder = "add, status, sub, attach, decide, deck, slides..."
	ti.CharLimit = 512
	ti.Prompt = ""
	return &CmdBar{
		input:       ti,
		suggestions: NewSuggestions(),
	}
}

// Focus focuses the command bar.
func (c *CmdBar) Focus() tea.Cmd {
	c.focused = true
	return c.input.Focus()
}

// Blur unfocuses and clears the command bar.
func (c *CmdBar) Blur() {
	c.focused = false
	c.input.Blur()
	c.input.SetValue("")
	c.suggestions.Update("")
}

// Focused reports whether the bar takes key input.
func (c *CmdBar) Focused() bool { return c.focused }

// Submit returns the current input and blurs.
func (c *CmdBar) Submit() string {
	val := strings.TrimSpace(c.input.Value())
	c.Blur()
	return val
}

// Complete accepts the highlighted suggestion. It reports whether one was
// accepted.
func (c *CmdBar) Complete() bool {
	sel := c.suggestions.Selected()
	if sel == nil {
		return false
	}
	c.input.SetValue(sel.Text + " ")
	c.input.CursorEnd()
	c.suggestions.Update("")
	return true
}

// SetWidth sets the input width.
func (c *CmdBar) SetWidth(w int) {
	c.input.Width = max(10, w-6)
}

// Update handles messages.
func (c *CmdBar) Update(msg tea.Msg, tasks []models.Task) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up":
			c.suggestions.Prev()
			return nil
		case "down":
			c.suggestions.Next()
			return nil
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	c.suggestions.Update(c.input.Value())
	c.suggestions.SetTasks(tasks)
	return cmd
}

// View renders the command bar.
func (c *CmdBar) View(width int) string {
	var b strings.Builder
	if c.focused {
		b.WriteString(cmdBarStyle.Width(width).Render(promptStyle.Render(": ") + c.input.View()))
		if c.suggestions.IsVisible() {
			b.WriteString("\n" + c.suggestions.Render(width))
		}
		return b.String()
	}
	return cmdBarStyle.Width(width).Render("Press : to enter a command, ? for keys")
}

// parseCommand turns a command line into a reducer event or an app action.
// s supplies the selected task for commands that edit it.
func parseCommand(input string, s controller.State) (controller.Event, appAction, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil, actionNone, nil
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))

	switch cmd {
	case "q", "quit", "exit":
		return nil, actionQuit, nil
	case "login":
		return nil, actionLogin, nil
	case "logout":
		return nil, actionLogout, nil
	case "whoami":
		return nil, actionWhoami, nil
	case "new":
		return controller.NewProject{}, actionNone, nil
	case "open", "projects":
		return controller.OpenProjectList{}, actionNone, nil
	case "key":
		if rest == "" {
			return controller.OpenAPIKey{}, actionNone, nil
		}
		return controller.SetAPIKey{Key: rest}, actionNone, nil

	case "add":
		if rest == "" {
			return nil, actionNone, errors.New("Usage: add <title> [-- description]")
		}
		title, desc, _ := strings.Cut(rest, "--")
		return controller.AddTask{Title: strings.TrimSpace(title), Description: strings.TrimSpace(desc)}, actionNone, nil
	}

	// Everything below edits the selected task.
	if s.Selected == nil {
		return nil, actionNone, errNoSelection
	}
	t := *s.Selected
	d := t.ExtendedDetails

	switch cmd {
	case "rename":
		if rest == "" {
			return nil, actionNone, errors.New("Usage: rename <title>")
		}
		t.Title = rest
		return controller.UpdateTask{Task: t}, actionNone, nil

	case "describe":
		t.Description = rest
		return controller.UpdateTask{Task: t}, actionNone, nil

	case "status":
		status := models.TaskStatus(strings.ToLower(strings.Join(args, "_")))
		if !status.Valid() {
			return nil, actionNone, errors.New("Usage: status <pending|in_progress|completed|blocked>")
		}
		t.Status = status
		return controller.UpdateTask{Task: t}, actionNone, nil

	case "delete":
		return controller.DeleteTask{ID: t.ID}, actionNone, nil

	case "sub":
		if rest == "" {
			return nil, actionNone, errors.New("Usage: sub <title> [-- description]")
		}
		title, desc, _ := strings.Cut(rest, "--")
		return controller.AddSubStep{Title: strings.TrimSpace(title), Description: strings.TrimSpace(desc)}, actionNone, nil

	case "sub-status":
		if len(args) != 2 {
			return nil, actionNone, errors.New("Usage: sub-status <n> <pending|in_progress|completed>")
		}
		st, err := pickSubStep(d.SubSteps, args[0])
		if err != nil {
			return nil, actionNone, err
		}
		status := models.SubStepStatus(strings.ToLower(args[1]))
		switch status {
		case models.SubStepPending, models.SubStepInProgress, models.SubStepCompleted:
		default:
			return nil, actionNone, fmt.Errorf("unknown sub-step status %q", args[1])
		}
		return controller.SetSubStepStatus{ID: st.ID, Status: status}, actionNone, nil

	case "sub-rm":
		if len(args) != 1 {
			return nil, actionNone, errors.New("Usage: sub-rm <n>")
		}
		st, err := pickSubStep(d.SubSteps, args[0])
		if err != nil {
			return nil, actionNone, err
		}
		return controller.DeleteSubStep{ID: st.ID}, actionNone, nil

	case "sub-move":
		if len(args) != 3 {
			return nil, actionNone, errors.New("Usage: sub-move <n> <x> <y>")
		}
		st, err := pickSubStep(d.SubSteps, args[0])
		if err != nil {
			return nil, actionNone, err
		}
		x, errX := strconv.ParseFloat(args[1], 64)
		y, errY := strconv.ParseFloat(args[2], 64)
		if errX != nil || errY != nil {
			return nil, actionNone, errors.New("Usage: sub-move <n> <x> <y>")
		}
		return controller.MoveSubStep{ID: st.ID, Position: models.Position{X: x, Y: y}}, actionNone, nil

	case "attach":
		if len(args) < 1 {
			return nil, actionNone, errors.New("Usage: attach <name> [url]")
		}
		a := models.Attachment{Name: args[0], MimeType: mime.TypeByExtension(filepath.Ext(args[0]))}
		if len(args) > 1 {
			a.URL = args[1]
		}
		return controller.AddAttachment{Attachment: a}, actionNone, nil

	case "detach":
		if len(args) != 1 {
			return nil, actionNone, errors.New("Usage: detach <n>")
		}
		i, err := pickIndex(len(d.Attachments), args[0])
		if err != nil {
			return nil, actionNone, err
		}
		return controller.DeleteAttachment{ID: d.Attachments[i].ID}, actionNone, nil

	case "decide":
		if rest == "" {
			return nil, actionNone, errors.New("Usage: decide <title> [-- description]")
		}
		title, desc, _ := strings.Cut(rest, "--")
		return controller.AddDecision{Decision: models.Decision{Title: strings.TrimSpace(title), Description: strings.TrimSpace(desc)}}, actionNone, nil

	case "decision":
		if len(args) < 2 {
			return nil, actionNone, errors.New("Usage: decision <n> <open|decided|deferred> [by]")
		}
		i, err := pickIndex(len(d.Decisions), args[0])
		if err != nil {
			return nil, actionNone, err
		}
		status := models.DecisionStatus(strings.ToLower(args[1]))
		switch status {
		case models.DecisionOpen, models.DecisionDecided, models.DecisionDeferred:
		default:
			return nil, actionNone, fmt.Errorf("unknown decision status %q", args[1])
		}
		patch := models.DecisionPatch{Status: &status}
		if len(args) > 2 {
			by := strings.Join(args[2:], " ")
			patch.DecidedBy = &by
		}
		return controller.UpdateDecision{ID: d.Decisions[i].ID, Patch: patch}, actionNone, nil

	case "decision-rm":
		if len(args) != 1 {
			return nil, actionNone, errors.New("Usage: decision-rm <n>")
		}
		i, err := pickIndex(len(d.Decisions), args[0])
		if err != nil {
			return nil, actionNone, err
		}
		return controller.DeleteDecision{ID: d.Decisions[i].ID}, actionNone, nil

	case "note", "notes":
		return controller.UpdateTaskDetails{Patch: models.DetailsPatch{Notes: &rest}}, actionNone, nil
	case "owner":
		return controller.UpdateTaskDetails{Patch: models.DetailsPatch{Responsible: &rest}}, actionNone, nil
	case "resources":
		return controller.UpdateTaskDetails{Patch: models.DetailsPatch{Resources: &rest}}, actionNone, nil
	case "due":
		return controller.UpdateTaskDetails{Patch: models.DetailsPatch{DueDate: &rest}}, actionNone, nil
	case "target":
		if rest == "" || rest == "none" {
			return controller.UpdateTaskDetails{Patch: models.DetailsPatch{ClearTarget: true}}, actionNone, nil
		}
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return nil, actionNone, errors.New("Usage: target <number|none>")
		}
		return controller.UpdateTaskDetails{Patch: models.DetailsPatch{NumericalTarget: &v}}, actionNone, nil

	case "canvas":
		if len(args) != 2 {
			return nil, actionNone, errors.New("Usage: canvas <width> <height>")
		}
		w, errW := strconv.Atoi(args[0])
		h, errH := strconv.Atoi(args[1])
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			return nil, actionNone, errors.New("Usage: canvas <width> <height>")
		}
		return controller.ResizeSubStepCanvas{Size: models.CanvasSize{Width: w, Height: h}}, actionNone, nil

	case "deck":
		return controller.GenerateReportDeck{}, actionNone, nil

	case "slides":
		if d.ReportDeck == nil {
			return nil, actionNone, errors.New("No report deck yet (run: deck)")
		}
		return controller.OpenSlideEditor{TaskID: t.ID, Deck: *d.ReportDeck}, actionNone, nil
	}

	return nil, actionNone, fmt.Errorf("Unknown: %s (try: add, status, sub, attach, decide, deck)", cmd)
}

func pickIndex(n int, arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("no item %s (have %d)", arg, n)
	}
	return i - 1, nil
}

func pickSubStep(subs []models.SubStep, arg string) (models.SubStep, error) {
	i, err := pickIndex(len(subs), arg)
	if err != nil {
		return models.SubStep{}, err
	}
	return subs[i], nil
}
