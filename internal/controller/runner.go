package controller

import (
	"context"
	"errors"

	"github.com/fentz26/planforge/internal/environment"
	"github.com/fentz26/planforge/internal/genai"
	"github.com/fentz26/planforge/internal/models"
	"github.com/fentz26/planforge/internal/sentry"
	"github.com/sirupsen/logrus"
)

// ErrNoBackend is returned for persistence effects when no backend is set.
var ErrNoBackend = errors.New("no backend configured")

// ProjectStore persists projects.
type ProjectStore interface {
	CreateProject(ctx context.Context, f models.ProjectFields) (*models.Project, error)
	UpdateProject(ctx context.Context, id string, upd models.ProjectUpdate) error
	GetProject(ctx context.Context, id, userID string) (*models.Project, error)
	ListProjects(ctx context.Context, userID string) ([]models.ProjectSummary, error)
}

// ActivityLogger records collaboration activity.
type ActivityLogger interface {
	LogActivity(ctx context.Context, projectID, userID string, kind models.ActivityKind, payload map[string]any) error
}

// Invitations redeems invitation tokens.
type Invitations interface {
	AcceptInvitation(ctx context.Context, token, userID string) (*models.Invitation, error)
}

// EffectRunner executes one effect and returns the resulting event, or nil.
type EffectRunner interface {
	Run(ctx context.Context, eff Effect) Event
}

// Runner executes effects against the collaborators. Each call is made once.
type Runner struct {
	Generator   genai.Generator
	Projects    ProjectStore
	Activity    ActivityLogger
	Invitations Invitations
	Env         environment.Environment
	Log         *logrus.Entry
}

// Run executes eff.
func (r *Runner) Run(ctx context.Context, eff Effect) Event {
	switch e := eff.(type) {
	case GeneratePlan:
		if r.Generator == nil {
			return GenerationFailed{Err: genai.ErrNoAPIKey}
		}
		plan, err := r.Generator.GeneratePlan(ctx, e.Goal)
		if err != nil {
			r.fail("generate plan", err, !errors.Is(err, genai.ErrNoAPIKey))
			return GenerationFailed{Err: err}
		}
		r.log().WithField("tasks", len(plan.Tasks)).Info("plan generated")
		return PlanGenerated{Plan: *plan}

	case GenerateDeck:
		if r.Generator == nil {
			return DeckGenerationFailed{Err: genai.ErrNoAPIKey}
		}
		deck, err := r.Generator.GenerateReportDeck(ctx, e.Task)
		if err != nil {
			r.fail("generate deck", err, !errors.Is(err, genai.ErrNoAPIKey))
			return DeckGenerationFailed{Err: err}
		}
		return DeckGenerated{TaskID: e.Task.ID, Deck: *deck}

	case CreateProject:
		if r.Projects == nil {
			return ProjectCreateFailed{Err: ErrNoBackend}
		}
		p, err := r.Projects.CreateProject(ctx, e.Fields)
		if err != nil {
			r.fail("create project", err, true)
			return ProjectCreateFailed{Err: err}
		}
		r.log().WithField("project_id", p.ID).Info("project created")
		return ProjectCreated{Project: *p}

	case SaveTasks:
		if r.Projects == nil {
			return ProjectSaveFailed{Err: ErrNoBackend}
		}
		tasks := e.Tasks
		user := e.UserID
		err := r.Projects.UpdateProject(ctx, e.ProjectID, models.ProjectUpdate{Tasks: &tasks, LastModifiedBy: &user})
		if err != nil {
			r.fail("save tasks", err, true)
			return ProjectSaveFailed{Err: err}
		}
		return ProjectSaved{ProjectID: e.ProjectID, UserID: e.UserID, Activity: e.Activity}

	case LogActivity:
		// Best effort: failures never reach the state.
		if r.Activity == nil {
			return nil
		}
		if err := r.Activity.LogActivity(ctx, e.ProjectID, e.UserID, e.Kind, e.Payload); err != nil {
			r.log().WithError(err).WithFields(logrus.Fields{
				"project_id": e.ProjectID,
				"kind":       e.Kind,
			}).Warn("activity log failed")
		}
		return nil

	case ListProjects:
		if r.Projects == nil {
			return ProjectListFailed{Err: ErrNoBackend}
		}
		list, err := r.Projects.ListProjects(ctx, e.UserID)
		if err != nil {
			r.fail("list projects", err, true)
			return ProjectListFailed{Err: err}
		}
		return ProjectsListed{Projects: list}

	case FetchProject:
		if r.Projects == nil {
			return ProjectLoadFailed{Err: ErrNoBackend}
		}
		p, err := r.Projects.GetProject(ctx, e.ID, e.UserID)
		if err != nil {
			r.fail("fetch project", err, true)
			return ProjectLoadFailed{Err: err}
		}
		return ProjectLoaded{Project: *p}

	case RedeemInvitation:
		if r.Invitations == nil {
			return InvitationFailed{Err: ErrNoBackend}
		}
		inv, err := r.Invitations.AcceptInvitation(ctx, e.Token, e.UserID)
		if err != nil {
			r.fail("accept invitation", err, false)
			return InvitationFailed{Err: err}
		}
		r.log().WithField("project_id", inv.ProjectID).Info("invitation accepted")
		return InvitationAccepted{Invitation: *inv}

	case ClearInvitationToken:
		if r.Env != nil {
			if err := r.Env.ClearInvitationToken(); err != nil {
				r.log().WithError(err).Warn("clear invitation token failed")
			}
		}
		return nil

	case ConfigureGenerator:
		if r.Generator != nil {
			r.Generator.SetAPIKey(e.APIKey)
		}
		return nil
	}

	r.log().Warnf("unhandled effect %T", eff)
	return nil
}

func (r *Runner) fail(op string, err error, report bool) {
	r.log().WithError(err).WithField("op", op).Error("effect failed")
	if report {
		sentry.CaptureError(err, map[string]string{"op": op})
	}
}

func (r *Runner) log() *logrus.Entry {
	if r.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return r.Log
}
