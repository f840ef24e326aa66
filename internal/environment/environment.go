// Package environment exposes the startup parameters the controller reads
// once, such as a pending invitation token.
package environment

import (
	"os"
	"strings"
	"sync"
)

// InviteEnv is the environment variable carrying an invitation token.
const InviteEnv = "PLANFORGE_INVITE"

// Environment provides the startup invitation token.
type Environment interface {
	InvitationToken() string
	ClearInvitationToken() error
}

// ProcessEnv reads the token from a command-line flag value, falling back to
// InviteEnv.
type ProcessEnv struct {
	mu    sync.Mutex
	token string
}

// NewProcessEnv captures the token once. flagValue wins over the environment.
func NewProcessEnv(flagValue string) *ProcessEnv {
	token := strings.TrimSpace(flagValue)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(InviteEnv))
	}
	return &ProcessEnv{token: token}
}

// InvitationToken returns the captured token, or "".
func (e *ProcessEnv) InvitationToken() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// ClearInvitationToken forgets the token and unsets InviteEnv so child
// processes and later reads do not see it again.
func (e *ProcessEnv) ClearInvitationToken() error {
	e.mu.Lock()
	e.token = ""
	e.mu.Unlock()
	return os.Unsetenv(InviteEnv)
}

// Static is a fixed Environment for tests and headless runs.
type Static struct {
	Token   string
	Cleared bool
}

// InvitationToken returns the token unless it was cleared.
func (s *Static) InvitationToken() string {
	if s.Cleared {
		return ""
	}
	return s.Token
}

// ClearInvitationToken marks the token as consumed.
func (s *Static) ClearInvitationToken() error {
	s.Cleared = true
	return nil
}
