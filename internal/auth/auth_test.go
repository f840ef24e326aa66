package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/planforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManagerAt(t.TempDir(), "")
	require.NoError(t, err)
	return m
}

func TestNewManager_NoCredentials(t *testing.T) {
	m := newTestManager(t)
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.CurrentUser())
	assert.Nil(t, m.GetSession())
	assert.Equal(t, DefaultAuthURL, m.authURL)
}

func TestSetSession_PersistsAndNotifies(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManagerAt(dir, "")
	require.NoError(t, err)

	var got []*models.User
	unsub := m.Subscribe(func(u *models.User) { got = append(got, u) })
	defer unsub()

	require.NoError(t, m.SetSession(Session{
		AccessToken: "tok",
		User:        models.User{ID: "u1", Email: "a@example.com"},
	}))

	require.Len(t, got, 1)
	require.NotNil(t, got[0])
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, "u1", m.CurrentUser().ID)

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := NewManagerAt(dir, "")
	require.NoError(t, err)
	require.NotNil(t, reloaded.CurrentUser())
	assert.Equal(t, "a@example.com", reloaded.CurrentUser().Email)
}

func TestSetSession_RequiresUserID(t *testing.T) {
	m := newTestManager(t)
	assert.Error(t, m.SetSession(Session{AccessToken: "tok"}))
	assert.Nil(t, m.CurrentUser())
}

func TestExpiredSession(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SetSession(Session{
		ExpiresAt: time.Now().Add(time.Minute).Unix(),
		User:      models.User{ID: "u1"},
	}))
	assert.False(t, m.IsAuthenticated(), "tokens inside the refresh buffer count as expired")
	assert.Nil(t, m.CurrentUser())

	require.NoError(t, m.SetSession(Session{
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
		User:      models.User{ID: "u1"},
	}))
	assert.True(t, m.IsAuthenticated())
}

func TestLogout_NotifiesNil(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SetSession(Session{User: models.User{ID: "u1"}}))

	var got []*models.User
	m.Subscribe(func(u *models.User) { got = append(got, u) })

	require.NoError(t, m.Logout())
	require.Len(t, got, 1)
	assert.Nil(t, got[0])
	assert.Nil(t, m.CurrentUser())

	_, err := os.Stat(m.credentialsPath())
	assert.True(t, os.IsNotExist(err))

	// Logging out twice is fine.
	assert.NoError(t, m.Logout())
}

func TestUnsubscribe(t *testing.T) {
	m := newTestManager(t)

	calls := 0
	unsub := m.Subscribe(func(*models.User) { calls++ })
	unsub()

	require.NoError(t, m.SetSession(Session{User: models.User{ID: "u1"}}))
	assert.Equal(t, 0, calls)
}

func TestLogin_Callback(t *testing.T) {
	m := newTestManager(t)

	var opened string
	m.SetOpener(func(raw string) error {
		opened = raw
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		go postCallback(u.Query().Get("port"), CallbackData{
			AccessToken: "tok",
			User:        models.User{ID: "u9", Username: "nina"},
			State:       u.Query().Get("state"),
		})
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := m.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u9", s.User.ID)
	assert.Contains(t, opened, DefaultAuthURL)
	assert.Equal(t, "nina", m.CurrentUser().Username)
}

func TestLogin_StateMismatch(t *testing.T) {
	m := newTestManager(t)
	m.SetOpener(func(raw string) error {
		u, _ := url.Parse(raw)
		go postCallback(u.Query().Get("port"), CallbackData{User: models.User{ID: "u9"}, State: "forged"})
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.Login(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
	assert.Nil(t, m.CurrentUser())
}

func TestLogin_OpenerFails(t *testing.T) {
	m := newTestManager(t)
	m.SetOpener(func(string) error { return errors.New("no browser") })

	_, err := m.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please open this URL manually")
}

func TestLogin_ContextCancelled(t *testing.T) {
	m := newTestManager(t)
	m.SetOpener(func(string) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Login(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateState(t *testing.T) {
	a, err := generateState()
	require.NoError(t, err)
	b, err := generateState()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func postCallback(port string, data CallbackData) {
	body, _ := json.Marshal(data)
	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%s/callback", port), "application/json", bytes.NewReader(body))
	if err == nil {
		resp.Body.Close()
	}
}
