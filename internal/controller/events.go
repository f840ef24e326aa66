package controller

import "github.com/fentz26/planforge/internal/models"

// Event is a user action or a collaborator response.
type Event interface {
	event()
}

// --- Session ---

// Started is the first event. InvitationToken comes from the environment.
type Started struct {
	User            *models.User
	InvitationToken string
}

// UserChanged is delivered on sign-in (User set) and sign-out (nil).
type UserChanged struct {
	User *models.User
}

// --- Generation ---

type SubmitGoal struct {
	Goal string
}

type PlanGenerated struct {
	Plan models.Plan
}

type GenerationFailed struct {
	Err error
}

type ConfirmNewProject struct{}

type CancelNewProject struct{}

// NewProject returns to goal entry and unbinds the current project.
type NewProject struct{}

type ProjectCreated struct {
	Project models.Project
}

type ProjectCreateFailed struct {
	Err error
}

// --- Tasks ---

type SelectTask struct {
	ID string
}

type CloseTaskDetail struct{}

type OpenAddTask struct{}

type CloseAddTask struct{}

type AddTask struct {
	Title       string
	Description string
	Status      models.TaskStatus
}

type UpdateTask struct {
	Task models.Task
}

type DeleteTask struct {
	ID string
}

// --- Selected task details ---

type UpdateTaskDetails struct {
	Patch models.DetailsPatch
}

type AddSubStep struct {
	Title       string
	Description string
}

type DeleteSubStep struct {
	ID string
}

type SetSubStepStatus struct {
	ID     string
	Status models.SubStepStatus
}

type MoveSubStep struct {
	ID       string
	Position models.Position
}

type AddAttachment struct {
	Attachment models.Attachment
}

type DeleteAttachment struct {
	ID string
}

type AddDecision struct {
	Decision models.Decision
}

type UpdateDecision struct {
	ID    string
	Patch models.DecisionPatch
}

type DeleteDecision struct {
	ID string
}

type ResizeSubStepCanvas struct {
	Size models.CanvasSize
}

// --- Report decks ---

type GenerateReportDeck struct{}

type DeckGenerated struct {
	TaskID string
	Deck   models.SlideDeck
}

type DeckGenerationFailed struct {
	Err error
}

type OpenSlideEditor struct {
	TaskID string
	Deck   models.SlideDeck
}

type CloseSlideEditor struct{}

type SaveSlideDeck struct {
	Deck models.SlideDeck
}

// --- Persistence results ---

// ProjectSaved reports a successful SaveTasks. IDs are the ones the save was
// issued with, not the current binding.
type ProjectSaved struct {
	ProjectID string
	UserID    string
	Activity  *Activity
}

type ProjectSaveFailed struct {
	Err error
}

// --- Project list ---

type OpenProjectList struct{}

type CloseProjectList struct{}

type ProjectsListed struct {
	Projects []models.ProjectSummary
}

type ProjectListFailed struct {
	Err error
}

type LoadProject struct {
	ID string
}

type ProjectLoaded struct {
	Project models.Project
}

type ProjectLoadFailed struct {
	Err error
}

// --- Invitations ---

type AcceptInvitation struct{}

type InvitationAccepted struct {
	Invitation models.Invitation
}

type InvitationFailed struct {
	Err error
}

type DismissInvitation struct{}

// --- Prompts ---

type OpenAuth struct{}

type CloseAuth struct{}

type OpenAPIKey struct{}

type CloseAPIKey struct{}

type SetAPIKey struct {
	Key string
}

type DismissError struct{}

func (Started) event()              {}
func (UserChanged) event()          {}
func (SubmitGoal) event()           {}
func (PlanGenerated) event()        {}
func (GenerationFailed) event()     {}
func (ConfirmNewProject) event()    {}
func (CancelNewProject) event()     {}
func (NewProject) event()           {}
func (ProjectCreated) event()       {}
func (ProjectCreateFailed) event()  {}
func (SelectTask) event()           {}
func (CloseTaskDetail) event()      {}
func (OpenAddTask) event()          {}
func (CloseAddTask) event()         {}
func (AddTask) event()              {}
func (UpdateTask) event()           {}
func (DeleteTask) event()           {}
func (UpdateTaskDetails) event()    {}
func (AddSubStep) event()           {}
func (DeleteSubStep) event()        {}
func (SetSubStepStatus) event()     {}
func (MoveSubStep) event()          {}
func (AddAttachment) event()        {}
func (DeleteAttachment) event()     {}
func (AddDecision) event()          {}
func (UpdateDecision) event()       {}
func (DeleteDecision) event()       {}
func (ResizeSubStepCanvas) event()  {}
func (GenerateReportDeck) event()   {}
func (DeckGenerated) event()        {}
func (DeckGenerationFailed) event() {}
func (OpenSlideEditor) event()      {}
func (CloseSlideEditor) event()     {}
func (SaveSlideDeck) event()        {}
func (ProjectSaved) event()         {}
func (ProjectSaveFailed) event()    {}
func (OpenProjectList) event()      {}
func (CloseProjectList) event()     {}
func (ProjectsListed) event()       {}
func (ProjectListFailed) event()    {}
func (LoadProject) event()          {}
func (ProjectLoaded) event()        {}
func (ProjectLoadFailed) event()    {}
func (AcceptInvitation) event()     {}
func (InvitationAccepted) event()   {}
func (InvitationFailed) event()     {}
func (DismissInvitation) event()    {}
func (OpenAuth) event()             {}
func (CloseAuth) event()            {}
func (OpenAPIKey) event()           {}
func (CloseAPIKey) event()          {}
func (SetAPIKey) event()            {}
func (DismissError) event()         {}
