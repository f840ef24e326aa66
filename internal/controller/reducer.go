package controller

import (
	"strings"
	"time"

	"github.com/fentz26/planforge/internal/models"
)

// Error messages placed in the error slot.
const (
	msgGenerateFailed = "Failed to generate project plan: "
	msgCreateFailed   = "Project generated, but saving failed. Further edits may not be saved."
	msgSaveFailed     = "Failed to save changes: "
	msgDeckFailed     = "Failed to generate report deck: "
	msgListFailed     = "Failed to load projects: "
	msgLoadFailed     = "Failed to load project: "
	msgInviteFailed   = "Failed to accept invitation: "
)

// unknownTaskTitle names a deleted task that was not in the list.
const unknownTaskTitle = "Unknown"

// Reducer computes state transitions. NewID and Now are its only sources of
// non-determinism.
type Reducer struct {
	NewID func() string
	Now   func() time.Time
}

// NewReducer returns a Reducer using random UUIDs and the wall clock.
func NewReducer() Reducer {
	return Reducer{NewID: models.NewID, Now: time.Now}
}

// Reduce applies ev to s. It returns the new state and the effects to run.
func (r Reducer) Reduce(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {

	// --- Session ---

	case Started:
		s.User = e.User
		if tok := strings.TrimSpace(e.InvitationToken); tok != "" {
			s.InvitationToken = tok
			s.InvitationOpen = true
		}
		return s, nil

	case UserChanged:
		s.User = e.User
		if e.User != nil {
			s.AuthOpen = false
		}
		return s, nil

	// --- Generation ---

	case SubmitGoal:
		goal := strings.TrimSpace(e.Goal)
		if goal == "" {
			return s, nil
		}
		s.Loading = true
		s.Error = ""
		return s, []Effect{GeneratePlan{Goal: goal}}

	case PlanGenerated:
		s.Loading = false
		if s.HasActiveProject() {
			plan := e.Plan
			s.PendingPlan = &plan
			s.ConfirmNewProjectOpen = true
			return s, nil
		}
		return r.applyPlan(s, e.Plan)

	case GenerationFailed:
		s.Loading = false
		s.Error = msgGenerateFailed + errText(e.Err)
		return s, nil

	case ConfirmNewProject:
		pending := s.PendingPlan
		s.PendingPlan = nil
		s.ConfirmNewProjectOpen = false
		if pending == nil {
			return s, nil
		}
		return r.applyPlan(s, *pending)

	case CancelNewProject:
		s.PendingPlan = nil
		s.ConfirmNewProjectOpen = false
		return s, nil

	case NewProject:
		s.View = ViewInput
		s.Tasks = []models.Task{}
		s.Selected = nil
		s.TaskDetailOpen = false
		s.Error = ""
		s.CurrentProject = nil
		return s, nil

	case ProjectCreated:
		// The board was cleared while the create was in flight.
		if s.View == ViewInput {
			return s, nil
		}
		summary := e.Project.Summary()
		s.CurrentProject = &summary
		return s, nil

	case ProjectCreateFailed:
		s.Error = msgCreateFailed
		return s, nil

	// --- Tasks ---

	case SelectTask:
		t, ok := s.Task(e.ID)
		if !ok {
			return s, nil
		}
		s.Selected = &t
		s.TaskDetailOpen = true
		return s, nil

	case CloseTaskDetail:
		s.Selected = nil
		s.TaskDetailOpen = false
		return s, nil

	case OpenAddTask:
		s.AddTaskOpen = true
		return s, nil

	case CloseAddTask:
		s.AddTaskOpen = false
		return s, nil

	case AddTask:
		title := strings.TrimSpace(e.Title)
		if title == "" {
			return s, nil
		}
		status := e.Status
		if !status.Valid() {
			status = models.TaskStatusPending
		}
		t := models.Task{
			ID:              r.NewID(),
			Title:           title,
			Description:     strings.TrimSpace(e.Description),
			Status:          status,
			ExtendedDetails: models.DefaultExtendedDetails(),
		}
		s.AddTaskOpen = false
		return r.commit(s, appendTask(s.Tasks, t), &Activity{Kind: models.ActivityTaskCreated, TaskID: t.ID, TaskTitle: t.Title})

	case UpdateTask:
		t := models.NormalizeTask(e.Task)
		return r.updateTask(s, t, &Activity{Kind: models.ActivityTaskUpdated, TaskID: t.ID, TaskTitle: t.Title})

	case DeleteTask:
		tasks, removed := removeTask(s.Tasks, e.ID)
		title := unknownTaskTitle
		if removed != nil {
			title = removed.Title
		}
		s.Selected = nil
		s.TaskDetailOpen = false
		return r.commit(s, tasks, &Activity{Kind: models.ActivityTaskDeleted, TaskID: e.ID, TaskTitle: title})

	// --- Selected task details ---

	case UpdateTaskDetails:
		return r.editSelected(s, func(t models.Task) models.Task {
			return withDetails(t, e.Patch.Apply(t.ExtendedDetails))
		})

	case AddSubStep:
		title := strings.TrimSpace(e.Title)
		if title == "" {
			return s, nil
		}
		return r.editSelected(s, func(t models.Task) models.Task {
			return addSubStep(t, models.SubStep{
				ID:          r.NewID(),
				Title:       title,
				Description: strings.TrimSpace(e.Description),
				Status:      models.SubStepPending,
				Position:    models.DefaultSubStepPosition(len(t.ExtendedDetails.SubSteps)),
			})
		})

	case DeleteSubStep:
		return r.editSelected(s, func(t models.Task) models.Task {
			return deleteSubStep(t, e.ID)
		})

	case SetSubStepStatus:
		return r.editSelected(s, func(t models.Task) models.Task {
			return mapSubSteps(t, e.ID, func(st models.SubStep) models.SubStep {
				st.Status = e.Status
				return st
			})
		})

	case MoveSubStep:
		return r.editSelected(s, func(t models.Task) models.Task {
			return mapSubSteps(t, e.ID, func(st models.SubStep) models.SubStep {
				st.Position = e.Position
				return st
			})
		})

	case AddAttachment:
		a := e.Attachment
		if a.AddedAt.IsZero() {
			a.AddedAt = r.Now().UTC()
		}
		return r.editSelected(s, func(t models.Task) models.Task {
			if a.ID == "" || hasAttachment(t.ExtendedDetails.Attachments, a.ID) {
				a.ID = r.NewID()
			}
			return addAttachment(t, a)
		})

	case DeleteAttachment:
		return r.editSelected(s, func(t models.Task) models.Task {
			return deleteAttachment(t, e.ID)
		})

	case AddDecision:
		d := e.Decision
		if d.Status == "" {
			d.Status = models.DecisionOpen
		}
		return r.editSelected(s, func(t models.Task) models.Task {
			if d.ID == "" || hasDecision(t.ExtendedDetails.Decisions, d.ID) {
				d.ID = r.NewID()
			}
			return addDecision(t, d)
		})

	case UpdateDecision:
		return r.editSelected(s, func(t models.Task) models.Task {
			return updateDecision(t, e.ID, e.Patch)
		})

	case DeleteDecision:
		return r.editSelected(s, func(t models.Task) models.Task {
			return deleteDecision(t, e.ID)
		})

	case ResizeSubStepCanvas:
		if e.Size.Width <= 0 || e.Size.Height <= 0 {
			return s, nil
		}
		return r.editSelected(s, func(t models.Task) models.Task {
			d := t.ExtendedDetails
			d.SubStepCanvasSize = e.Size
			return withDetails(t, d)
		})

	// --- Report decks ---

	case GenerateReportDeck:
		if s.Selected == nil {
			return s, nil
		}
		s.Loading = true
		s.Error = ""
		return s, []Effect{GenerateDeck{Task: *s.Selected}}

	case DeckGenerated:
		s.Loading = false
		t, ok := s.Task(e.TaskID)
		if !ok {
			return s, nil
		}
		return r.updateTask(s, setReportDeck(t, e.Deck), nil)

	case DeckGenerationFailed:
		s.Loading = false
		s.Error = msgDeckFailed + errText(e.Err)
		return s, nil

	case OpenSlideEditor:
		if _, ok := s.Task(e.TaskID); !ok {
			return s, nil
		}
		s.SlideEditor = &SlideEditorState{TaskID: e.TaskID, Deck: e.Deck}
		return s, nil

	case CloseSlideEditor:
		s.SlideEditor = nil
		return s, nil

	case SaveSlideDeck:
		if s.SlideEditor == nil {
			return s, nil
		}
		t, ok := s.Task(s.SlideEditor.TaskID)
		if !ok {
			return s, nil
		}
		s.SlideEditor = &SlideEditorState{TaskID: t.ID, Deck: e.Deck}
		return r.updateTask(s, setReportDeck(t, e.Deck), nil)

	// --- Persistence results ---

	case ProjectSaved:
		if e.Activity == nil {
			return s, nil
		}
		return s, []Effect{LogActivity{
			ProjectID: e.ProjectID,
			UserID:    e.UserID,
			Kind:      e.Activity.Kind,
			Payload:   e.Activity.Payload(),
		}}

	case ProjectSaveFailed:
		s.Error = msgSaveFailed + errText(e.Err)
		return s, nil

	// --- Project list ---

	case OpenProjectList:
		if s.User == nil {
			s.AuthOpen = true
			return s, nil
		}
		s.ProjectListOpen = true
		s.Loading = true
		return s, []Effect{ListProjects{UserID: s.User.ID}}

	case CloseProjectList:
		s.ProjectListOpen = false
		return s, nil

	case ProjectsListed:
		s.Loading = false
		list := make([]models.ProjectSummary, len(e.Projects))
		copy(list, e.Projects)
		s.Projects = list
		return s, nil

	case ProjectListFailed:
		s.Loading = false
		s.Error = msgListFailed + errText(e.Err)
		return s, nil

	case LoadProject:
		if e.ID == "" {
			return s, nil
		}
		if s.User == nil {
			s.AuthOpen = true
			return s, nil
		}
		s.Loading = true
		return s, []Effect{FetchProject{ID: e.ID, UserID: s.User.ID}}

	case ProjectLoaded:
		summary := e.Project.Summary()
		s.Loading = false
		s.CurrentProject = &summary
		s.Tasks = normalizeTasks(e.Project.Tasks)
		s.View = ViewFlow
		s.Error = ""
		s.ProjectListOpen = false
		s.Selected = nil
		s.TaskDetailOpen = false
		return s, nil

	case ProjectLoadFailed:
		s.Loading = false
		s.Error = msgLoadFailed + errText(e.Err)
		return s, nil

	// --- Invitations ---

	case AcceptInvitation:
		if s.InvitationToken == "" {
			return s, nil
		}
		if s.User == nil {
			s.AuthOpen = true
			return s, nil
		}
		return s, []Effect{RedeemInvitation{Token: s.InvitationToken, UserID: s.User.ID}}

	case InvitationAccepted:
		s.InvitationToken = ""
		s.InvitationOpen = false
		return s, []Effect{ClearInvitationToken{}}

	case InvitationFailed:
		s.Error = msgInviteFailed + errText(e.Err)
		return s, nil

	case DismissInvitation:
		s.InvitationToken = ""
		s.InvitationOpen = false
		return s, []Effect{ClearInvitationToken{}}

	// --- Prompts ---

	case OpenAuth:
		s.AuthOpen = true
		return s, nil

	case CloseAuth:
		s.AuthOpen = false
		return s, nil

	case OpenAPIKey:
		s.APIKeyOpen = true
		return s, nil

	case CloseAPIKey:
		s.APIKeyOpen = false
		return s, nil

	case SetAPIKey:
		key := strings.TrimSpace(e.Key)
		if key == "" {
			return s, nil
		}
		s.APIKeyOpen = false
		return s, []Effect{ConfigureGenerator{APIKey: key}}

	case DismissError:
		s.Error = ""
		return s, nil
	}

	return s, nil
}

// applyPlan replaces the board with plan. With a signed-in user it also asks
// for the project to be created; CurrentProject stays unbound until then.
func (r Reducer) applyPlan(s State, plan models.Plan) (State, []Effect) {
	tasks := planTasks(plan, r.NewID)

	s.Tasks = tasks
	s.View = ViewFlow
	s.Error = ""
	s.Selected = nil
	s.TaskDetailOpen = false
	s.CurrentProject = nil

	if s.User == nil {
		return s, nil
	}
	return s, []Effect{CreateProject{Fields: models.ProjectFields{
		Title:      plan.Title,
		Goal:       plan.Goal,
		TargetDate: plan.TargetDate,
		Tasks:      tasks,
		GanttData:  plan.GanttData,
		OwnerID:    s.User.ID,
	}}}
}

// updateTask replaces t in the list, refreshes the selection and persists.
// An unknown task is a no-op.
func (r Reducer) updateTask(s State, t models.Task, act *Activity) (State, []Effect) {
	tasks, found := replaceTask(s.Tasks, t)
	if !found {
		return s, nil
	}
	if s.Selected != nil && s.Selected.ID == t.ID {
		sel := t
		s.Selected = &sel
	}
	return r.commit(s, tasks, act)
}

// editSelected applies fn to the selected task through the generic update.
// Nested edits carry no activity.
func (r Reducer) editSelected(s State, fn func(models.Task) models.Task) (State, []Effect) {
	if s.Selected == nil {
		return s, nil
	}
	cur, ok := s.Task(s.Selected.ID)
	if !ok {
		return s, nil
	}
	return r.updateTask(s, fn(cur), nil)
}

// commit applies tasks locally and, when bound, asks for them to be saved.
func (r Reducer) commit(s State, tasks []models.Task, act *Activity) (State, []Effect) {
	s.Tasks = tasks
	if !s.CanPersist() {
		return s, nil
	}
	return s, []Effect{SaveTasks{
		ProjectID: s.CurrentProject.ID,
		Tasks:     tasks,
		UserID:    s.User.ID,
		Activity:  act,
	}}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
