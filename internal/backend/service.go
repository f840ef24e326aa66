// Package backend provides the collaboration backend: project storage,
// activity logging and invitations over HTTP.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fentz26/planforge/internal/audit"
	"github.com/fentz26/planforge/internal/models"
	"github.com/fentz26/planforge/internal/store"
	"github.com/sirupsen/logrus"
)

// Service provides the backend business logic.
type Service struct {
	store    *store.Store
	recorder *audit.Recorder
	log      *logrus.Entry
}

// NewService creates a new backend service.
func NewService(s *store.Store, rec *audit.Recorder, log *logrus.Entry) *Service {
	return &Service{
		store:    s,
		recorder: rec,
		log:      log,
	}
}

// --- Project Operations ---

// CreateProject stores a new project owned by f.OwnerID.
func (s *Service) CreateProject(ctx context.Context, f models.ProjectFields) (*models.Project, error) {
	if strings.TrimSpace(f.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(f.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	p, err := s.store.CreateProject(ctx, f)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"project_id": p.ID, "owner_id": p.OwnerID, "tasks": len(p.Tasks)}).Info("project created")
	return p, nil
}

// GetProject retrieves a project for a member.
func (s *Service) GetProject(ctx context.Context, id, userID string) (*models.Project, error) {
	return s.authorize(ctx, id, userID)
}

// UpdateProject applies a partial update on behalf of a member. Concurrent
// editors are not reconciled: the last write wins.
func (s *Service) UpdateProject(ctx context.Context, id, userID string, upd models.ProjectUpdate) error {
	if _, err := s.authorize(ctx, id, userID); err != nil {
		return err
	}
	err := s.store.UpdateProject(ctx, id, upd)
	if errors.Is(err, store.ErrProjectNotFound) {
		return ErrProjectNotFound
	}
	if err != nil {
		return err
	}

	fields := logrus.Fields{"project_id": id, "user_id": userID}
	if upd.Tasks != nil {
		fields["tasks"] = len(*upd.Tasks)
	}
	if upd.LastModifiedBy != nil {
		fields["modified_by"] = *upd.LastModifiedBy
	}
	s.log.WithFields(fields).Debug("project updated")
	return nil
}

// authorize loads the project and checks that userID belongs to it. A
// missing project wins over a missing membership.
func (s *Service) authorize(ctx context.Context, projectID, userID string) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProjectNotFound
	}
	if userID == "" {
		return nil, ErrForbidden
	}
	ok, err := s.store.IsMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.WithFields(logrus.Fields{"project_id": projectID, "user_id": userID}).Warn("access denied")
		return nil, ErrForbidden
	}
	return p, nil
}

// ListProjects returns the projects a user owns or collaborates on.
func (s *Service) ListProjects(ctx context.Context, userID string) ([]models.ProjectSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.ListProjects(ctx, userID)
}

// --- Activity Operations ---

// LogActivity records a collaboration activity entry.
func (s *Service) LogActivity(ctx context.Context, projectID, userID string, kind models.ActivityKind, payload map[string]any) (*models.ActivityRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown activity kind %q", ErrInvalidInput, kind)
	}
	if _, err := s.authorize(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.recorder.Record(ctx, projectID, userID, kind, payload)
}

// ListActivity returns recent activity for a project to a member.
func (s *Service) ListActivity(ctx context.Context, projectID, userID string, limit int) ([]models.ActivityRecord, error) {
	if _, err := s.authorize(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.store.ListActivity(ctx, projectID, limit)
}

// --- Invitation Operations ---

// CreateInvitation issues an invitation token for a project. Only members
// may invite.
func (s *Service) CreateInvitation(ctx context.Context, projectID, invitedBy string) (*models.Invitation, error) {
	if _, err := s.authorize(ctx, projectID, invitedBy); err != nil {
		return nil, err
	}
	inv, err := s.store.CreateInvitation(ctx, projectID, invitedBy)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"project_id": projectID, "invited_by": invitedBy}).Info("invitation created")
	return inv, nil
}

// AcceptInvitation redeems a token and adds the user to the project.
func (s *Service) AcceptInvitation(ctx context.Context, token, userID string) (*models.Invitation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	inv, err := s.store.AcceptInvitation(ctx, token, userID)
	switch {
	case errors.Is(err, store.ErrInvitationNotFound):
		return nil, ErrInvitationNotFound
	case errors.Is(err, store.ErrInvitationUsed):
		return nil, ErrInvitationUsed
	case err != nil:
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"project_id": inv.ProjectID, "user_id": userID}).Info("invitation accepted")
	return inv, nil
}
