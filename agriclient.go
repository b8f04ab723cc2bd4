package agriclient

import (
	"net/http"
	"strings"

	"github.com/agrisetu/go-agriclient/auth"
	"github.com/agrisetu/go-agriclient/command"
	"github.com/agrisetu/go-agriclient/core"
	"github.com/agrisetu/go-agriclient/realtime"
	"github.com/agrisetu/go-agriclient/sanitize"
	"github.com/agrisetu/go-agriclient/services"
	"github.com/agrisetu/go-agriclient/session"
	"github.com/agrisetu/go-agriclient/transport"
)

// Commands groups the dispatchable session mutations.
type Commands struct {
	Login    *command.LoginCommand
	Register *command.RegisterCommand
	Logout   *command.LogoutCommand
	Refresh  *command.RefreshCommand
}

// Client is the assembled SDK: request pipeline, session flows, realtime
// connection, typed service wrappers, and the command facade, all sharing
// one token store and one configuration.
type Client struct {
	core     *core.Client
	session  *session.Manager
	realtime *realtime.Manager
	services *services.Registry
	commands Commands
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient      *http.Client
	transport       core.TransportAdapter
	tokenStore      core.TokenStore
	refresher       core.TokenRefresher
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metrics         core.MetricsRecorder
	sessionBoundary core.SessionBoundary
	messageHandler  realtime.MessageHandler
	dialer          realtime.Dialer
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

func WithTransport(adapter core.TransportAdapter) Option {
	return func(o *clientOptions) {
		o.transport = adapter
	}
}

func WithTokenStore(store core.TokenStore) Option {
	return func(o *clientOptions) {
		o.tokenStore = store
	}
}

func WithTokenRefresher(refresher core.TokenRefresher) Option {
	return func(o *clientOptions) {
		o.refresher = refresher
	}
}

func WithLogger(logger core.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *clientOptions) {
		o.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(o *clientOptions) {
		o.metrics = recorder
	}
}

func WithSessionBoundary(boundary core.SessionBoundary) Option {
	return func(o *clientOptions) {
		o.sessionBoundary = boundary
	}
}

func WithMessageHandler(handler realtime.MessageHandler) Option {
	return func(o *clientOptions) {
		o.messageHandler = handler
	}
}

func WithDialer(dialer realtime.Dialer) Option {
	return func(o *clientOptions) {
		o.dialer = dialer
	}
}

// New assembles the SDK around one backend. The zero Config is usable: every
// field falls back to the documented default.
func New(cfg core.Config, options ...Option) (*Client, error) {
	resolved := clientOptions{}
	for _, option := range options {
		if option != nil {
			option(&resolved)
		}
	}

	adapter := resolved.transport
	if adapter == nil {
		adapter = transport.NewRESTAdapter(resolved.httpClient)
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = core.DefaultBaseURL
	}
	refresher := resolved.refresher
	if refresher == nil {
		refresher = auth.NewRefreshStrategy(adapter, auth.RefreshStrategyConfig{
			BaseURL: baseURL,
			Path:    cfg.Refresh.Path,
			Timeout: cfg.Timeout,
		})
	}

	coreOptions := []core.Option{
		core.WithTransport(adapter),
		core.WithSanitizer(sanitize.New(cfg.Sanitize)),
		core.WithTokenRefresher(refresher),
	}
	if resolved.tokenStore != nil {
		coreOptions = append(coreOptions, core.WithTokenStore(resolved.tokenStore))
	}
	if resolved.logger != nil {
		coreOptions = append(coreOptions, core.WithLogger(resolved.logger))
	}
	if resolved.loggerProvider != nil {
		coreOptions = append(coreOptions, core.WithLoggerProvider(resolved.loggerProvider))
	}
	if resolved.metrics != nil {
		coreOptions = append(coreOptions, core.WithMetricsRecorder(resolved.metrics))
	}
	if resolved.sessionBoundary != nil {
		coreOptions = append(coreOptions, core.WithSessionBoundary(resolved.sessionBoundary))
	}

	coreClient, err := core.NewClient(cfg, coreOptions...)
	if err != nil {
		return nil, err
	}

	realtimeOptions := []realtime.ManagerOption{
		realtime.WithLogger(coreClient.Logger()),
	}
	if resolved.messageHandler != nil {
		realtimeOptions = append(realtimeOptions, realtime.WithMessageHandler(resolved.messageHandler))
	}
	if resolved.dialer != nil {
		realtimeOptions = append(realtimeOptions, realtime.WithDialer(resolved.dialer))
	}
	realtimeManager, err := realtime.NewManager(realtime.ManagerConfig{
		BaseURL:  coreClient.Config().BaseURL,
		Realtime: coreClient.Config().Realtime,
	}, coreClient.TokenStore(), realtimeOptions...)
	if err != nil {
		return nil, err
	}

	sessionManager, err := session.NewManager(coreClient, session.WithRealtime(realtimeManager))
	if err != nil {
		return nil, err
	}

	return &Client{
		core:     coreClient,
		session:  sessionManager,
		realtime: realtimeManager,
		services: services.NewRegistry(coreClient),
		commands: Commands{
			Login:    command.NewLoginCommand(sessionManager),
			Register: command.NewRegisterCommand(sessionManager),
			Logout:   command.NewLogoutCommand(sessionManager),
			Refresh:  command.NewRefreshCommand(coreClient),
		},
	}, nil
}

func (c *Client) Core() *core.Client {
	if c == nil {
		return nil
	}
	return c.core
}

func (c *Client) Session() *session.Manager {
	if c == nil {
		return nil
	}
	return c.session
}

func (c *Client) Realtime() *realtime.Manager {
	if c == nil {
		return nil
	}
	return c.realtime
}

func (c *Client) Services() *services.Registry {
	if c == nil {
		return nil
	}
	return c.services
}

func (c *Client) Commands() Commands {
	if c == nil {
		return Commands{}
	}
	return c.commands
}

// Close tears down the realtime connection. The request pipeline holds no
// other long-lived resources.
func (c *Client) Close() {
	if c == nil || c.realtime == nil {
		return
	}
	c.realtime.Disconnect()
}
