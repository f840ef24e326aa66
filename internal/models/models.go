// Package models defines the core domain types for planforge.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusBlocked:
		return true
	}
	return false
}

// Next cycles through the task statuses in board order.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskStatusPending:
		return TaskStatusInProgress
	case TaskStatusInProgress:
		return TaskStatusCompleted
	case TaskStatusCompleted:
		return TaskStatusBlocked
	default:
		return TaskStatusPending
	}
}

// Task represents a unit of work in a project plan.
type Task struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Status          TaskStatus      `json:"status"`
	Dependencies    []string        `json:"dependencies,omitempty"`
	ExtendedDetails ExtendedDetails `json:"extendedDetails"`
}

// Project is a persisted plan together with its editable tasks.
type Project struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Goal           string      `json:"goal"`
	TargetDate     string      `json:"target_date,omitempty"`
	Tasks          []Task      `json:"tasks"`
	GanttData      []GanttItem `json:"gantt_data,omitempty"`
	OwnerID        string      `json:"owner_id"`
	LastModifiedBy string      `json:"last_modified_by,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Summary returns the list view of a project.
func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{
		ID:        p.ID,
		Title:     p.Title,
		Goal:      p.Goal,
		TaskCount: len(p.Tasks),
		UpdatedAt: p.UpdatedAt,
	}
}

// ProjectFields is the payload used to create a project.
type ProjectFields struct {
	Title      string      `json:"title"`
	Goal       string      `json:"goal"`
	TargetDate string      `json:"target_date,omitempty"`
	Tasks      []Task      `json:"tasks"`
	GanttData  []GanttItem `json:"gantt_data,omitempty"`
	OwnerID    string      `json:"owner_id"`
}

// ProjectUpdate is a partial project update. Nil fields are left unchanged.
type ProjectUpdate struct {
	Tasks          *[]Task `json:"tasks,omitempty"`
	LastModifiedBy *string `json:"last_modified_by,omitempty"`
}

// ProjectSummary is a lightweight project record for lists.
type ProjectSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Goal      string    `json:"goal"`
	TaskCount int       `json:"task_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Plan is the AI-generated project skeleton.
type Plan struct {
	Title      string      `json:"projectTitle"`
	Goal       string      `json:"projectGoal"`
	TargetDate string      `json:"targetDate,omitempty"`
	Tasks      []Task      `json:"tasks"`
	GanttData  []GanttItem `json:"ganttData,omitempty"`
}

// GanttItem is one bar or milestone of the optional schedule.
type GanttItem struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Progress     int      `json:"progress"`
	Type         string   `json:"type"` // "task" or "milestone"
	Dependencies []string `json:"dependencies,omitempty"`
}

// User is the signed-in account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// ActivityKind names a collaboration action.
type ActivityKind string

const (
	ActivityTaskCreated ActivityKind = "task_created"
	ActivityTaskUpdated ActivityKind = "task_updated"
	ActivityTaskDeleted ActivityKind = "task_deleted"
)

// Valid reports whether k is a known activity kind.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityTaskCreated, ActivityTaskUpdated, ActivityTaskDeleted:
		return true
	}
	return false
}

// ActivityRecord is an audit log entry for a task-level action.
type ActivityRecord struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	UserID      string         `json:"user_id"`
	Kind        ActivityKind   `json:"kind"`
	Payload     map[string]any `json:"payload"`
	PayloadHash string         `json:"payload_hash"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Invitation grants a user membership of a project.
type Invitation struct {
	Token      string     `json:"token"`
	ProjectID  string     `json:"project_id"`
	InvitedBy  string     `json:"invited_by"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedBy string     `json:"accepted_by,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// NewID returns a random 128-bit identifier.
func NewID() string {
	return uuid.NewString()
}
