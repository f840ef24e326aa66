package environment

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessEnv_FlagWins(t *testing.T) {
	t.Setenv(InviteEnv, "from-env")

	e := NewProcessEnv("  from-flag ")
	assert.Equal(t, "from-flag", e.InvitationToken())
}

func TestProcessEnv_FallsBackToEnv(t *testing.T) {
	t.Setenv(InviteEnv, "from-env")

	e := NewProcessEnv("")
	assert.Equal(t, "from-env", e.InvitationToken())
}

func TestProcessEnv_Clear(t *testing.T) {
	t.Setenv(InviteEnv, "tok")

	e := NewProcessEnv("")
	require.NoError(t, e.ClearInvitationToken())
	assert.Empty(t, e.InvitationToken())

	_, set := os.LookupEnv(InviteEnv)
	assert.False(t, set)

	assert.Empty(t, NewProcessEnv("").InvitationToken(), "a fresh read does not see the cleared token")
}

func TestProcessEnv_Empty(t *testing.T) {
	t.Setenv(InviteEnv, "")
	assert.Empty(t, NewProcessEnv("").InvitationToken())
}

func TestStatic(t *testing.T) {
	var env Environment = &Static{Token: "abc"}
	assert.Equal(t, "abc", env.InvitationToken())
	require.NoError(t, env.ClearInvitationToken())
	assert.Empty(t, env.InvitationToken())
}
