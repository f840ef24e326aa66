package backend

import "errors"

// Sentinel errors for backend operations.
var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationUsed     = errors.New("invitation already accepted")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("not a member of this project")
)
