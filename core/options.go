package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type clientBuilder struct {
	runtimeConfig    Config
	logger           Logger
	loggerProvider   LoggerProvider
	metrics          MetricsRecorder
	errorMapper      ErrorMapper
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	tokenStore       TokenStore
	transport        TransportAdapter
	sanitizer        RequestSanitizer
	refresher        TokenRefresher
	refreshGate      *RefreshGate
	backoffScheduler BackoffScheduler
	sessionBoundary  SessionBoundary
	now              func() time.Time
}

type Option func(*clientBuilder)

func WithLogger(logger Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *clientBuilder) {
		b.metrics = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *clientBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *clientBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *clientBuilder) {
		b.optionsResolver = resolver
	}
}

func WithTokenStore(store TokenStore) Option {
	return func(b *clientBuilder) {
		b.tokenStore = store
	}
}

func WithTransport(adapter TransportAdapter) Option {
	return func(b *clientBuilder) {
		b.transport = adapter
	}
}

func WithSanitizer(sanitizer RequestSanitizer) Option {
	return func(b *clientBuilder) {
		b.sanitizer = sanitizer
	}
}

func WithTokenRefresher(refresher TokenRefresher) Option {
	return func(b *clientBuilder) {
		b.refresher = refresher
	}
}

func WithRefreshGate(gate *RefreshGate) Option {
	return func(b *clientBuilder) {
		b.refreshGate = gate
	}
}

func WithBackoffScheduler(scheduler BackoffScheduler) Option {
	return func(b *clientBuilder) {
		b.backoffScheduler = scheduler
	}
}

func WithSessionBoundary(boundary SessionBoundary) Option {
	return func(b *clientBuilder) {
		b.sessionBoundary = boundary
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *clientBuilder) {
		b.now = now
	}
}

func defaultClientBuilder(runtime Config) clientBuilder {
	loggerProvider, logger := glog.Resolve("agriclient", nil, nil)
	return clientBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metrics:         NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return clientErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.BaseURL) != "" {
		layer["base_url"] = cfg.BaseURL
	}
	if includeZero || cfg.Timeout > 0 {
		layer["timeout"] = cfg.Timeout
	}
	if includeZero || cfg.Retry != (RetryConfig{}) {
		layer["retry"] = map[string]any{
			"max_attempts": cfg.Retry.MaxAttempts,
			"base_delay":   cfg.Retry.BaseDelay,
			"max_delay":    cfg.Retry.MaxDelay,
		}
	}
	if includeZero || cfg.Refresh != (RefreshConfig{}) {
		layer["refresh"] = map[string]any{
			"path":                 cfg.Refresh.Path,
			"lead_window":          cfg.Refresh.LeadWindow,
			"expiring_soon_window": cfg.Refresh.ExpiringSoonWindow,
		}
	}
	if includeZero || cfg.Sanitize.Disabled || len(cfg.Sanitize.ExcludedFields) > 0 || len(cfg.Sanitize.SkipPaths) > 0 {
		layer["sanitize"] = map[string]any{
			"disabled":        cfg.Sanitize.Disabled,
			"excluded_fields": append([]string(nil), cfg.Sanitize.ExcludedFields...),
			"skip_paths":      append([]string(nil), cfg.Sanitize.SkipPaths...),
		}
	}
	if includeZero || cfg.Realtime != (RealtimeConfig{}) {
		layer["realtime"] = map[string]any{
			"path":                cfg.Realtime.Path,
			"handshake_timeout":   cfg.Realtime.HandshakeTimeout,
			"reconnect_attempts":  cfg.Realtime.ReconnectAttempts,
			"reconnect_delay":     cfg.Realtime.ReconnectDelay,
			"reconnect_max_delay": cfg.Realtime.ReconnectMaxDelay,
		}
	}
	return layer
}
