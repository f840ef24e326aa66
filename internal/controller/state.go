// Package controller holds the planning application's state machine.
//
// Reduce is a pure function from (State, Event) to a new State plus the side
// effects to perform. A Runner executes effects against the generator, the
// backend and the environment and turns each result into another Event.
package controller

import "github.com/fentz26/planforge/internal/models"

// View is the main view mode.
type View string

const (
	ViewInput View = "input"
	ViewFlow  View = "flow"
)

// SlideEditorState is the slide editor overlay. While set it replaces the
// rendered view regardless of View.
type SlideEditorState struct {
	TaskID string
	Deck   models.SlideDeck
}

// State is a snapshot of the application. Reduce never mutates a snapshot
// it is given; every change builds new slices.
type State struct {
	View        View
	SlideEditor *SlideEditorState

	Tasks          []models.Task
	Selected       *models.Task
	CurrentProject *models.ProjectSummary
	User           *models.User

	Loading               bool
	TaskDetailOpen        bool
	AddTaskOpen           bool
	ConfirmNewProjectOpen bool
	ProjectListOpen       bool
	AuthOpen              bool
	InvitationOpen        bool
	APIKeyOpen            bool

	PendingPlan     *models.Plan
	InvitationToken string
	Projects        []models.ProjectSummary

	// Error is the single error slot; a new message overwrites the old one.
	Error string
}

// NewState returns the startup state.
func NewState() State {
	return State{View: ViewInput, Tasks: []models.Task{}}
}

// HasActiveProject reports whether applying a new plan would replace work.
func (s State) HasActiveProject() bool {
	return s.CurrentProject != nil || len(s.Tasks) > 0
}

// Task returns the task with id.
func (s State) Task(id string) (models.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// CanPersist reports whether task edits are sent to the backend.
func (s State) CanPersist() bool {
	return s.CurrentProject != nil && s.User != nil
}
