package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerRequestID     = "X-Request-ID"

	contentTypeJSON = "application/json"
)

// Request is a logical API call before transport concerns are applied.
// Body is marshaled to JSON unless RawBody is set, in which case RawBody is
// sent verbatim with ContentType.
type Request struct {
	Method      string
	Path        string
	Query       map[string]string
	Headers     map[string]string
	Body        any
	RawBody     []byte
	ContentType string
	SkipAuth    bool
	Timeout     time.Duration
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Decode unmarshals the JSON response body into out.
func (r Response) Decode(out any) error {
	if out == nil {
		return goerrors.New("core: decode target is nil", goerrors.CategoryBadInput).
			WithTextCode(ClientErrorBadInput)
	}
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "core: response decode failed").
			WithTextCode(ClientErrorInternal)
	}
	return nil
}

// Client drives every API call through a fixed pipeline: attach auth,
// sanitize the body, send, then classify the outcome. A 401 is handled
// first and exclusively by the refresh protocol; transient failures (no
// response, 5xx, 429) are replayed under the bounded backoff policy.
type Client struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metrics         MetricsRecorder
	errorMapper     ErrorMapper
	tokens          TokenStore
	transport       TransportAdapter
	sanitizer       RequestSanitizer
	refresher       TokenRefresher
	retry           RetryPolicy
	gate            *RefreshGate
	sessionBoundary SessionBoundary
	now             func() time.Time
}

// NewClient resolves configuration through the provider/resolver chain and
// assembles the pipeline. A transport adapter is required; every other
// collaborator has a default.
func NewClient(runtime Config, options ...Option) (*Client, error) {
	builder := defaultClientBuilder(runtime)
	for _, option := range options {
		if option != nil {
			option(&builder)
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "core: config load failed").
			WithTextCode(ClientErrorBadInput)
	}
	resolved, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "core: config resolve failed").
			WithTextCode(ClientErrorBadInput)
	}

	if builder.transport == nil {
		return nil, goerrors.New("core: transport adapter is required", goerrors.CategoryBadInput).
			WithTextCode(ClientErrorBadInput)
	}

	tokens := builder.tokenStore
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	gate := builder.refreshGate
	if gate == nil {
		gate = NewRefreshGate()
	}
	retry := NewRetryPolicy(resolved.Retry)
	if builder.backoffScheduler != nil {
		retry.Scheduler = builder.backoffScheduler
	}
	now := builder.now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	mapper := builder.errorMapper
	if mapper == nil {
		mapper = defaultErrorMapper
	}

	return &Client{
		config:          resolved,
		logger:          builder.logger,
		loggerProvider:  builder.loggerProvider,
		metrics:         builder.metrics,
		errorMapper:     mapper,
		tokens:          tokens,
		transport:       builder.transport,
		sanitizer:       builder.sanitizer,
		refresher:       builder.refresher,
		retry:           retry,
		gate:            gate,
		sessionBoundary: builder.sessionBoundary,
		now:             now,
	}, nil
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Client) TokenStore() TokenStore {
	if c == nil {
		return nil
	}
	return c.tokens
}

func (c *Client) Logger() Logger {
	if c == nil {
		return nil
	}
	return c.logger
}

func (c *Client) LoggerProvider() LoggerProvider {
	if c == nil {
		return nil
	}
	return c.loggerProvider
}

// Do executes one logical request through the pipeline. The sanitized body
// and resolved URL are computed once; refresh and retry replays reuse them.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if c == nil {
		return Response{}, goerrors.New("core: client not initialized", goerrors.CategoryInternal).
			WithTextCode(ClientErrorInternal)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := c.now()

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		return Response{}, goerrors.New("core: request method is required", goerrors.CategoryBadInput).
			WithTextCode(ClientErrorBadInput)
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return Response{}, goerrors.New("core: request path is required", goerrors.CategoryBadInput).
			WithTextCode(ClientErrorBadInput)
	}

	fullURL, err := c.resolveURL(path)
	if err != nil {
		return Response{}, c.mapError(err)
	}

	body, contentType, err := c.prepareBody(req)
	if err != nil {
		return Response{}, c.mapError(err)
	}
	body, err = c.sanitizeBody(method, path, contentType, body)
	if err != nil {
		return Response{}, c.mapError(err)
	}

	transportReq := TransportRequest{
		Method:  method,
		URL:     fullURL,
		Headers: c.buildHeaders(ctx, req, contentType),
		Query:   cloneStringMap(req.Query),
		Body:    body,
		Timeout: c.resolveTimeout(req.Timeout),
	}

	res, err := c.send(ctx, req, transportReq)
	status := res.StatusCode
	c.observeRequest(ctx, startedAt, method, path, status, err, map[string]any{
		"url": fullURL,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		Body:       res.Body,
	}, nil
}

// send runs the send → classify → refresh-and-replay → retry-and-replay
// stages. authReplayed guarantees at most one refresh-driven replay per
// logical request, so a still-failing token cannot loop.
func (c *Client) send(ctx context.Context, req Request, transportReq TransportRequest) (TransportResponse, error) {
	attempt := 1
	authReplayed := false

	for {
		res, transportErr := c.transport.Do(ctx, transportReq)

		if transportErr == nil && res.StatusCode == http.StatusUnauthorized && !req.SkipAuth && !authReplayed {
			failedToken := strings.TrimPrefix(transportReq.Headers[headerAuthorization], "Bearer ")
			cred, refreshErr := c.refreshAccessToken(ctx, failedToken)
			if refreshErr != nil {
				return res, c.mapError(refreshErr)
			}
			authReplayed = true
			c.applyBearer(transportReq.Headers, cred.AccessToken)
			continue
		}

		if IsTransientFailure(res.StatusCode, transportErr) {
			if c.retry.ShouldRetry(attempt) {
				delay := c.retry.NextDelay(attempt)
				c.logInfo(ctx, "transient failure, backing off", map[string]any{
					"method":   transportReq.Method,
					"url":      transportReq.URL,
					"attempt":  attempt,
					"delay_ms": delay.Milliseconds(),
				})
				if waitErr := waitWithContext(ctx, delay); waitErr != nil {
					return res, c.mapError(waitErr)
				}
				attempt++
				continue
			}
		}
		if transportErr != nil {
			return res, c.mapError(networkError(transportErr, transportReq.Method, transportReq.URL))
		}

		if res.StatusCode >= http.StatusBadRequest {
			return res, c.mapError(ClassifyResponse(res))
		}
		return res, nil
	}
}

// refreshAccessToken renews the credential through the single-flight gate.
// Exactly one caller performs the refresh; everyone else parks on the gate
// and is served by that outcome. Fatal failures (missing or rejected
// refresh token) clear stored credentials and cross the session boundary
// before the queue is flushed.
func (c *Client) refreshAccessToken(ctx context.Context, failedToken string) (Credential, error) {
	leader, wait := c.gate.Begin()
	if !leader {
		outcome, err := Await(ctx, wait)
		if err != nil {
			return Credential{}, err
		}
		return outcome.Credential, outcome.Err
	}

	cred, err := c.performRefresh(ctx, failedToken)
	c.gate.Finish(RefreshOutcome{Credential: cred, Err: err})
	return cred, err
}

// RefreshAhead renews the credential before it expires, going through the
// same single-flight gate as 401-triggered refreshes. It reports whether a
// refresh was attempted; a credential that is absent, unexpiring, or not
// yet inside the lead window is left alone.
func (c *Client) RefreshAhead(ctx context.Context) (bool, error) {
	if c == nil {
		return false, goerrors.New("core: client not initialized", goerrors.CategoryInternal).
			WithTextCode(ClientErrorInternal)
	}
	cred, err := c.tokens.Get(ctx)
	if err == ErrNoCredential {
		return false, nil
	}
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "core: credential read failed").
			WithTextCode(ClientErrorInternal)
	}
	now := c.now()
	state := ResolveTokenState(now, cred, c.config.Refresh.ExpiringSoonWindow)
	if !ShouldRefreshToken(now, state, c.config.Refresh.LeadWindow) {
		return false, nil
	}
	_, err = c.refreshAccessToken(ctx, cred.AccessToken)
	return true, err
}

func (c *Client) performRefresh(ctx context.Context, failedToken string) (Credential, error) {
	current, err := c.tokens.Get(ctx)
	if err != nil && err != ErrNoCredential {
		return Credential{}, goerrors.Wrap(err, goerrors.CategoryInternal, "core: credential read failed").
			WithTextCode(ClientErrorInternal)
	}
	// Double-check against the stored credential: when a previous round
	// already renewed the token the 401 was raised against, reuse it
	// instead of burning the refresh token again.
	if current.HasAccessToken() && strings.TrimSpace(failedToken) != "" && current.AccessToken != failedToken {
		return current, nil
	}
	if !current.HasRefreshToken() {
		return Credential{}, c.expireSession(ctx, goerrors.New(
			"core: session expired: no refresh token available",
			goerrors.CategoryAuth,
		).WithTextCode(ClientErrorSessionExpired))
	}
	if c.refresher == nil {
		return Credential{}, c.expireSession(ctx, goerrors.New(
			"core: session expired: no token refresher configured",
			goerrors.CategoryAuth,
		).WithTextCode(ClientErrorSessionExpired))
	}

	renewed, err := c.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return Credential{}, c.expireSession(ctx, goerrors.Wrap(
			err,
			goerrors.CategoryAuth,
			"core: session expired: token refresh rejected",
		).WithTextCode(ClientErrorSessionExpired))
	}
	if !renewed.HasRefreshToken() {
		renewed.RefreshToken = current.RefreshToken
	}
	if err := c.tokens.Save(ctx, renewed); err != nil {
		return Credential{}, goerrors.Wrap(err, goerrors.CategoryInternal, "core: credential save failed").
			WithTextCode(ClientErrorInternal)
	}
	c.logInfo(ctx, "access token refreshed", map[string]any{
		"has_expiry": renewed.ExpiresAt != nil,
	})
	return renewed, nil
}

// expireSession clears stored credentials and notifies the session boundary,
// then returns cause so the triggering request fails with it.
func (c *Client) expireSession(ctx context.Context, cause error) error {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logError(ctx, "credential clear failed", map[string]any{
			"error": err.Error(),
		})
	}
	c.logError(ctx, "session expired", map[string]any{
		"cause": cause.Error(),
	})
	if c.sessionBoundary != nil {
		c.sessionBoundary(ctx, cause)
	}
	return cause
}

func (c *Client) resolveURL(path string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(c.config.BaseURL))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "core: invalid base url").
			WithTextCode(ClientErrorBadInput)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("core: invalid request path %q", path)).
			WithTextCode(ClientErrorBadInput)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) prepareBody(req Request) ([]byte, string, error) {
	if len(req.RawBody) > 0 {
		contentType := strings.TrimSpace(req.ContentType)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return req.RawBody, contentType, nil
	}
	if req.Body == nil {
		return nil, strings.TrimSpace(req.ContentType), nil
	}
	encoded, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryBadInput, "core: request body encode failed").
			WithTextCode(ClientErrorBadInput)
	}
	return encoded, contentTypeJSON, nil
}

func (c *Client) sanitizeBody(method string, path string, contentType string, body []byte) ([]byte, error) {
	if c.sanitizer == nil || len(body) == 0 {
		return body, nil
	}
	cleaned, err := c.sanitizer.SanitizeBody(method, path, contentType, body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "core: request body sanitize failed").
			WithTextCode(ClientErrorBadInput)
	}
	return cleaned, nil
}

// buildHeaders resolves the outgoing header set: caller headers, then the
// content type, a request ID, and the bearer token when one is stored.
func (c *Client) buildHeaders(ctx context.Context, req Request, contentType string) map[string]string {
	headers := cloneStringMap(req.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	if contentType != "" {
		if _, ok := headers[headerContentType]; !ok {
			headers[headerContentType] = contentType
		}
	}
	if _, ok := headers[headerRequestID]; !ok {
		headers[headerRequestID] = uuid.NewString()
	}
	if !req.SkipAuth {
		if cred, err := c.tokens.Get(ctx); err == nil && cred.HasAccessToken() {
			c.applyBearer(headers, cred.AccessToken)
		}
	}
	return headers
}

func (c *Client) applyBearer(headers map[string]string, accessToken string) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		delete(headers, headerAuthorization)
		return
	}
	headers[headerAuthorization] = "Bearer " + token
}

func (c *Client) resolveTimeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return c.config.Timeout
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	if c != nil && c.errorMapper != nil {
		if mapped := c.errorMapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}

func (c *Client) Get(ctx context.Context, path string, query map[string]string) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	copied := make(map[string]string, len(values))
	for key, value := range values {
		copied[key] = value
	}
	return copied
}
