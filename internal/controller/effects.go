package controller

import "github.com/fentz26/planforge/internal/models"

// Effect is a side effect requested by Reduce.
type Effect interface {
	effect()
}

// Activity is the collaboration record attached to a task-level save.
type Activity struct {
	Kind      models.ActivityKind
	TaskID    string
	TaskTitle string
}

// Payload is the JSON object stored with the activity record.
func (a Activity) Payload() map[string]any {
	return map[string]any{
		"task_id":    a.TaskID,
		"task_title": a.TaskTitle,
	}
}

type GeneratePlan struct {
	Goal string
}

type GenerateDeck struct {
	Task models.Task
}

type CreateProject struct {
	Fields models.ProjectFields
}

// SaveTasks persists the full task list tagged with the acting user.
// Activity is nil for nested-collection edits.
type SaveTasks struct {
	ProjectID string
	Tasks     []models.Task
	UserID    string
	Activity  *Activity
}

type LogActivity struct {
	ProjectID string
	UserID    string
	Kind      models.ActivityKind
	Payload   map[string]any
}

type ListProjects struct {
	UserID string
}

type FetchProject struct {
	ID     string
	UserID string
}

type RedeemInvitation struct {
	Token  string
	UserID string
}

type ClearInvitationToken struct{}

type ConfigureGenerator struct {
	APIKey string
}

func (GeneratePlan) effect()         {}
func (GenerateDeck) effect()         {}
func (CreateProject) effect()        {}
func (SaveTasks) effect()            {}
func (LogActivity) effect()          {}
func (ListProjects) effect()         {}
func (FetchProject) effect()         {}
func (RedeemInvitation) effect()     {}
func (ClearInvitationToken) effect() {}
func (ConfigureGenerator) effect()   {}
