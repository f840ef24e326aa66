// Package auth keeps the signed-in planforge session and runs the browser
// sign-in flow.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/fentz26/planforge/internal/models"
)

const (
	// DefaultCallbackPort is the default port for the local callback server.
	DefaultCallbackPort = 17890
	// AuthTimeout is the maximum time to wait for authentication.
	AuthTimeout = 5 * time.Minute
	// DefaultAuthURL is the planforge website auth URL.
	DefaultAuthURL = "https://planforge.app/auth/cli/"

	// refreshBuffer treats sessions about to expire as expired.
	refreshBuffer = 5 * time.Minute
)

// Session represents an authentication session. ExpiresAt of zero never
// expires.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    int64       `json:"expires_at"`
	User         models.User `json:"user"`
}

// Credentials stores the complete auth credentials.
type Credentials struct {
	Session   Session `json:"session"`
	CreatedAt int64   `json:"created_at"`
}

// AuthResult is returned from the authentication flow.
type AuthResult struct {
	Session Session
	Error   error
}

// Manager handles authentication operations and notifies subscribers when
// the signed-in user changes.
type Manager struct {
	configDir   string
	authURL     string
	openURL     func(string) error
	credentials *Credentials
	mu          sync.RWMutex

	subMu   sync.Mutex
	subs    map[int]func(*models.User)
	nextSub int
}

// NewManager creates an auth manager storing credentials under
// ~/.config/planforge.
func NewManager(authURL string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewManagerAt(filepath.Join(homeDir, ".config", "planforge"), authURL)
}

// NewManagerAt creates an auth manager storing credentials in dir.
func NewManagerAt(dir, authURL string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if authURL == "" {
		authURL = DefaultAuthURL
	}

	m := &Manager{
		configDir: dir,
		authURL:   authURL,
		openURL:   openBrowser,
		subs:      make(map[int]func(*models.User)),
	}

	// A missing or unreadable file means signed out.
	_ = m.loadCredentials()

	return m, nil
}

// SetOpener replaces the function used to open the login URL.
func (m *Manager) SetOpener(fn func(string) error) {
	m.openURL = fn
}

// IsAuthenticated checks if the user is currently authenticated.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validLocked()
}

func (m *Manager) validLocked() bool {
	if m.credentials == nil {
		return false
	}
	if m.credentials.Session.ExpiresAt == 0 {
		return true
	}
	exp := time.Unix(m.credentials.Session.ExpiresAt, 0).Add(-refreshBuffer)
	return time.Now().Before(exp)
}

// CurrentUser returns the signed-in user, or nil.
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.validLocked() {
		return nil
	}
	u := m.credentials.Session.User
	return &u
}

// GetSession returns the current session if authenticated.
func (m *Manager) GetSession() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.validLocked() {
		return nil
	}
	s := m.credentials.Session
	return &s
}

// Subscribe registers fn to be called with the new user (nil on sign-out)
// whenever the session changes. The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(*models.User)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	user := m.CurrentUser()

	m.subMu.Lock()
	fns := make([]func(*models.User), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

// SetSession stores a session and notifies subscribers.
func (m *Manager) SetSession(s Session) error {
	if s.User.ID == "" {
		return errors.New("session has no user id")
	}

	m.mu.Lock()
	m.credentials = &Credentials{
		Session:   s,
		CreatedAt: time.Now().Unix(),
	}
	m.mu.Unlock()

	if err := m.saveCredentials(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	m.notify()
	return nil
}

// Login opens the browser at the sign-in page and waits for the page to post
// the session back to a loopback callback. It gives up after AuthTimeout or
// when ctx is done.
func (m *Manager) Login(ctx context.Context) (*Session, error) {
	state, err := generateState()
	if err != nil {
		return nil, err
	}

	ln, port, err := listenLoopback(DefaultCallbackPort, 100)
	if err != nil {
		return nil, fmt.Errorf("start callback server: %w", err)
	}
	cb := &callback{state: state, done: make(chan AuthResult, 1)}
	srv := &http.Server{Handler: cb.routes(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cb.finish(AuthResult{Error: fmt.Errorf("callback server: %w", err)})
		}
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	q := url.Values{}
	q.Set("port", strconv.Itoa(port))
	q.Set("state", state)
	loginURL := m.authURL + "?" + q.Encode()
	if err := m.openURL(loginURL); err != nil {
		return nil, fmt.Errorf("open browser: %w\nPlease open this URL manually: %s", err, loginURL)
	}

	ctx, cancel := context.WithTimeout(ctx, AuthTimeout)
	defer cancel()

	select {
	case res := <-cb.done:
		if res.Error != nil {
			return nil, res.Error
		}
		if err := m.SetSession(res.Session); err != nil {
			return nil, err
		}
		return &res.Session, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Logout clears the current session and notifies subscribers.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.credentials = nil
	m.mu.Unlock()

	if err := os.Remove(m.credentialsPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	m.notify()
	return nil
}

func (m *Manager) credentialsPath() string {
	return filepath.Join(m.configDir, "credentials.json")
}

func (m *Manager) loadCredentials() error {
	data, err := os.ReadFile(m.credentialsPath())
	if err != nil {
		return err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return err
	}

	m.mu.Lock()
	m.credentials = &creds
	m.mu.Unlock()

	return nil
}

func (m *Manager) saveCredentials() error {
	m.mu.RLock()
	creds := m.credentials
	m.mu.RUnlock()

	if creds == nil {
		return nil
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(m.credentialsPath(), data, 0600)
}

// CallbackData represents the data received from the browser callback.
type CallbackData struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    int64       `json:"expires_at"`
	User         models.User `json:"user"`
	State        string      `json:"state"`
}

type callback struct {
	state string
	done  chan AuthResult
}

func (c *callback) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", c.handle)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		allowBrowser(w)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (c *callback) handle(w http.ResponseWriter, r *http.Request) {
	allowBrowser(w)
	switch r.Method {
	case http.MethodOptions:
		return
	case http.MethodPost:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var data CallbackData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		c.finish(AuthResult{Error: fmt.Errorf("invalid callback data: %w", err)})
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if data.State != c.state {
		c.finish(AuthResult{Error: errors.New("state mismatch: possible CSRF attack")})
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	c.finish(AuthResult{Session: Session{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		ExpiresAt:    data.ExpiresAt,
		User:         data.User,
	}})
}

// finish records the first result; later callbacks are dropped.
func (c *callback) finish(r AuthResult) {
	select {
	case c.done <- r:
	default:
	}
}

func allowBrowser(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

// listenLoopback binds the first free port in [start, start+span).
func listenLoopback(start, span int) (net.Listener, int, error) {
	for port := start; port < start+span; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err == nil {
			return ln, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d", start, start+span-1)
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func openBrowser(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	return cmd.Start()
}
