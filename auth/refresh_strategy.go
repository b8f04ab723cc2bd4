// Package auth implements credential acquisition and renewal against the
// backend's auth endpoints.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

const defaultRefreshPath = "/api/v1/auth/refresh"

type RefreshStrategyConfig struct {
	BaseURL string
	Path    string
	Timeout time.Duration
	Now     func() time.Time
}

// RefreshStrategy exchanges a refresh token for a renewed credential pair by
// calling the backend's refresh endpoint directly through a transport
// adapter. It deliberately bypasses the client pipeline: a refresh call must
// never trigger another refresh.
type RefreshStrategy struct {
	config    RefreshStrategyConfig
	transport core.TransportAdapter
}

func NewRefreshStrategy(transport core.TransportAdapter, cfg RefreshStrategyConfig) *RefreshStrategy {
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = defaultRefreshPath
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	return &RefreshStrategy{
		config:    cfg,
		transport: transport,
	}
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (s *RefreshStrategy) Refresh(ctx context.Context, refreshToken string) (core.Credential, error) {
	if s == nil || s.transport == nil {
		return core.Credential{}, goerrors.New(
			"auth: refresh strategy requires a transport adapter",
			goerrors.CategoryInternal,
		).WithTextCode(core.ClientErrorInternal)
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.Credential{}, goerrors.New(
			"auth: refresh token is required",
			goerrors.CategoryAuth,
		).WithTextCode(core.ClientErrorSessionExpired)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return core.Credential{}, goerrors.Wrap(err, goerrors.CategoryInternal, "auth: encode refresh request").
			WithTextCode(core.ClientErrorInternal)
	}

	res, err := s.transport.Do(ctx, core.TransportRequest{
		Method:  http.MethodPost,
		URL:     s.refreshURL(),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
		Timeout: s.config.Timeout,
	})
	if err != nil {
		return core.Credential{}, goerrors.Wrap(err, goerrors.CategoryExternal, "auth: refresh request failed").
			WithCode(http.StatusBadGateway).
			WithTextCode(core.ClientErrorNetwork)
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusBadRequest, res.StatusCode == http.StatusForbidden:
		message := core.ExtractErrorMessage(res.Body)
		if message == "" {
			message = "refresh token rejected"
		}
		return core.Credential{}, goerrors.New("auth: "+message, goerrors.CategoryAuth).
			WithCode(res.StatusCode).
			WithTextCode(core.ClientErrorSessionExpired).
			WithMetadata(map[string]any{"status": res.StatusCode})
	case res.StatusCode >= http.StatusBadRequest:
		return core.Credential{}, core.ClassifyResponse(res)
	}

	var payload refreshResponse
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return core.Credential{}, goerrors.Wrap(err, goerrors.CategoryExternal, "auth: decode refresh response").
			WithTextCode(core.ClientErrorNetwork)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.Credential{}, goerrors.New(
			"auth: refresh response is missing an access token",
			goerrors.CategoryExternal,
		).WithTextCode(core.ClientErrorNetwork)
	}

	cred := core.Credential{
		AccessToken:  strings.TrimSpace(payload.AccessToken),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
	}
	if payload.ExpiresIn > 0 {
		expiresAt := s.config.Now().UTC().Add(time.Duration(payload.ExpiresIn) * time.Second)
		cred.ExpiresAt = &expiresAt
	}
	return cred, nil
}

func (s *RefreshStrategy) refreshURL() string {
	base := strings.TrimSuffix(s.config.BaseURL, "/")
	path := s.config.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

var _ core.TokenRefresher = (*RefreshStrategy)(nil)
