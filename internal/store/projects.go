package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/planforge/internal/models"
	"github.com/google/uuid"
)

// ErrProjectNotFound indicates an update targeted a missing project.
var ErrProjectNotFound = fmt.Errorf("project not found")

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
)

// CreateProject inserts a new project and makes the owner its first member.
func (s *Store) CreateProject(ctx context.Context, f models.ProjectFields) (*models.Project, error) {
	now := time.Now().UTC()
	tasks := f.Tasks
	if tasks == nil {
		tasks = []models.Task{}
	}
	p := &models.Project{
		ID:             uuid.New().String(),
		Title:          f.Title,
		Goal:           f.Goal,
		TargetDate:     f.TargetDate,
		Tasks:          tasks,
		GanttData:      f.GanttData,
		OwnerID:        f.OwnerID,
		LastModifiedBy: f.OwnerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tasksJSON, err := json.Marshal(p.Tasks)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}
	ganttJSON, err := encodeGantt(p.GanttData)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, title, goal, target_date, tasks, gantt_data, owner_id, last_modified_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Goal, p.TargetDate, string(tasksJSON), ganttJSON, p.OwnerID, p.LastModifiedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	if err := addMember(ctx, tx, p.ID, p.OwnerID, RoleOwner, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return p, nil
}

// GetProject retrieves a project by ID. It returns nil, nil when absent.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p := &models.Project{}
	var tasksJSON string
	var ganttJSON, lastModifiedBy sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, goal, target_date, tasks, gantt_data, owner_id, last_modified_by, created_at, updated_at
		 FROM projects WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Title, &p.Goal, &p.TargetDate, &tasksJSON, &ganttJSON, &p.OwnerID, &lastModifiedBy, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}

	if err := json.Unmarshal([]byte(tasksJSON), &p.Tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if ganttJSON.Valid && ganttJSON.String != "" {
		if err := json.Unmarshal([]byte(ganttJSON.String), &p.GanttData); err != nil {
			return nil, fmt.Errorf("decode gantt data: %w", err)
		}
	}
	if lastModifiedBy.Valid {
		p.LastModifiedBy = lastModifiedBy.String
	}
	return p, nil
}

// UpdateProject applies a partial update. The last writer wins.
func (s *Store) UpdateProject(ctx context.Context, id string, upd models.ProjectUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	if upd.Tasks != nil {
		tasks := *upd.Tasks
		if tasks == nil {
			tasks = []models.Task{}
		}
		data, err := json.Marshal(tasks)
		if err != nil {
			return fmt.Errorf("encode tasks: %w", err)
		}
		sets = append(sets, "tasks = ?")
		args = append(args, string(data))
	}
	if upd.LastModifiedBy != nil {
		sets = append(sets, "last_modified_by = ?")
		args = append(args, *upd.LastModifiedBy)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// ListProjects returns the projects a user owns or is a member of, newest first.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]models.ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.goal, p.tasks, p.updated_at
		 FROM projects p
		 JOIN project_members m ON m.project_id = p.id
		 WHERE m.user_id = ?
		 ORDER BY p.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []models.ProjectSummary
	for rows.Next() {
		var sum models.ProjectSummary
		var tasksJSON string
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Goal, &tasksJSON, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		var tasks []json.RawMessage
		if err := json.Unmarshal([]byte(tasksJSON), &tasks); err == nil {
			sum.TaskCount = len(tasks)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// addMember grants userID access to a project. An existing membership keeps
// its role.
func addMember(ctx context.Context, db execer, projectID, userID, role string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO project_members (project_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		projectID, userID, role, at,
	)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// IsMember reports whether userID belongs to the project.
func (s *Store) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return n > 0, nil
}

func encodeGantt(items []models.GanttItem) (sql.NullString, error) {
	if len(items) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode gantt data: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
