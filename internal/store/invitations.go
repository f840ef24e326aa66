package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fentz26/planforge/internal/models"
	"github.com/google/uuid"
)

// Invitation errors.
var (
	ErrInvitationNotFound = fmt.Errorf("invitation not found")
	ErrInvitationUsed     = fmt.Errorf("invitation already accepted")
)

// CreateInvitation issues a new single-use invitation token for a project.
func (s *Store) CreateInvitation(ctx context.Context, projectID, invitedBy string) (*models.Invitation, error) {
	inv := &models.Invitation{
		Token:     uuid.New().String(),
		ProjectID: projectID,
		InvitedBy: invitedBy,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitations (token, project_id, invited_by, created_at) VALUES (?, ?, ?, ?)`,
		inv.Token, inv.ProjectID, inv.InvitedBy, inv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	return inv, nil
}

// AcceptInvitation atomically marks the invitation used and adds the user as
// a project member.
func (s *Store) AcceptInvitation(ctx context.Context, token, userID string) (*models.Invitation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inv := &models.Invitation{}
	var acceptedBy sql.NullString
	var acceptedAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT token, project_id, invited_by, created_at, accepted_by, accepted_at FROM invitations WHERE token = ?`,
		token,
	).Scan(&inv.Token, &inv.ProjectID, &inv.InvitedBy, &inv.CreatedAt, &acceptedBy, &acceptedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query invitation: %w", err)
	}
	if acceptedBy.Valid {
		return nil, ErrInvitationUsed
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE invitations SET accepted_by = ?, accepted_at = ? WHERE token = ? AND accepted_by IS NULL`,
		userID, now, token,
	)
	if err != nil {
		return nil, fmt.Errorf("update invitation: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("check rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrInvitationUsed
	}

	if err := addMember(ctx, tx, inv.ProjectID, userID, RoleEditor, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	inv.AcceptedBy = userID
	inv.AcceptedAt = &now
	return inv, nil
}
