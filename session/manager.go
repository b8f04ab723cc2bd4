package session

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

const (
	defaultLoginPath    = "/api/v1/auth/login"
	defaultRegisterPath = "/api/v1/auth/register"
	defaultLogoutPath   = "/api/v1/auth/logout"
	defaultProfilePath  = "/api/v1/auth/me"
)

// RealtimeLink is the slice of the realtime manager the session flows
// need. Login brings the link up after tokens are persisted; Logout
// always tears it down.
type RealtimeLink interface {
	Connect(ctx context.Context) error
	Disconnect()
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Language string `json:"language,omitempty"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Language string `json:"language,omitempty"`
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Language string `json:"language"`
	State    string `json:"state"`
	District string `json:"district"`
}

type tokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// Manager drives the authenticated session lifecycle: it exchanges
// credentials with the backend, persists them through the client's token
// store, and keeps the realtime link in step with the session.
type Manager struct {
	client   *core.Client
	realtime RealtimeLink
	logger   core.Logger
	now      func() time.Time

	loginPath    string
	registerPath string
	logoutPath   string
	profilePath  string
}

type Option func(*Manager)

func WithRealtime(link RealtimeLink) Option {
	return func(m *Manager) {
		m.realtime = link
	}
}

func WithLogger(logger core.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(client *core.Client, options ...Option) (*Manager, error) {
	if client == nil {
		return nil, goerrors.New("session: client is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	manager := &Manager{
		client:       client,
		logger:       client.Logger(),
		now:          func() time.Time { return time.Now().UTC() },
		loginPath:    defaultLoginPath,
		registerPath: defaultRegisterPath,
		logoutPath:   defaultLogoutPath,
		profilePath:  defaultProfilePath,
	}
	for _, option := range options {
		if option != nil {
			option(manager)
		}
	}
	return manager, nil
}

// Login exchanges phone and password for a token pair, persists it, and
// brings the realtime link up. A realtime failure does not fail the login;
// the session is usable without the socket.
func (m *Manager) Login(ctx context.Context, req LoginRequest) (User, error) {
	if m == nil || m.client == nil {
		return User{}, notConfigured()
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Password) == "" {
		return User{}, goerrors.New("session: phone and password are required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	return m.establish(ctx, m.loginPath, req)
}

// Register creates an account and establishes a session from the returned
// token pair, mirroring Login.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if m == nil || m.client == nil {
		return User{}, notConfigured()
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Password) == "" {
		return User{}, goerrors.New("session: name, phone, and password are required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	return m.establish(ctx, m.registerPath, req)
}

func (m *Manager) establish(ctx context.Context, path string, body any) (User, error) {
	res, err := m.client.Do(ctx, core.Request{
		Method:   "POST",
		Path:     path,
		Body:     body,
		SkipAuth: true,
	})
	if err != nil {
		return User{}, err
	}
	var grant tokenGrant
	if err := res.Decode(&grant); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(grant.AccessToken) == "" {
		return User{}, goerrors.New("session: backend returned no access token", goerrors.CategoryExternal).
			WithTextCode(core.ClientErrorServerFailure)
	}

	cred := core.Credential{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
	}
	if grant.ExpiresIn > 0 {
		expiresAt := m.now().Add(time.Duration(grant.ExpiresIn) * time.Second)
		cred.ExpiresAt = &expiresAt
	}
	if err := m.client.TokenStore().Save(ctx, cred); err != nil {
		return User{}, goerrors.Wrap(err, goerrors.CategoryInternal, "session: failed to persist credential").
			WithTextCode(core.ClientErrorInternal)
	}

	if m.realtime != nil {
		if err := m.realtime.Connect(ctx); err != nil && m.logger != nil {
			m.logger.Error("session: realtime connect after login failed", "error", err)
		}
	}
	return grant.User, nil
}

// Logout revokes the session on the backend and always clears local state.
// A backend failure is logged, never surfaced: the caller asked to be
// logged out and locally they are.
func (m *Manager) Logout(ctx context.Context) error {
	if m == nil || m.client == nil {
		return notConfigured()
	}
	if _, err := m.client.Post(ctx, m.logoutPath, nil); err != nil && m.logger != nil {
		m.logger.Error("session: backend logout failed, clearing locally", "error", err)
	}
	if m.realtime != nil {
		m.realtime.Disconnect()
	}
	if err := m.client.TokenStore().Clear(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "session: failed to clear credential").
			WithTextCode(core.ClientErrorInternal)
	}
	return nil
}

// CurrentUser fetches the authenticated profile.
func (m *Manager) CurrentUser(ctx context.Context) (User, error) {
	if m == nil || m.client == nil {
		return User{}, notConfigured()
	}
	res, err := m.client.Get(ctx, m.profilePath, nil)
	if err != nil {
		return User{}, err
	}
	var user User
	if err := res.Decode(&user); err != nil {
		return User{}, err
	}
	return user, nil
}

func notConfigured() error {
	return goerrors.New("session: manager is not configured", goerrors.CategoryInternal).
		WithTextCode(core.ClientErrorInternal)
}
