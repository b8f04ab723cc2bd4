package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/agrisetu/go-agriclient/session"
)

// SessionMutatingService is the slice of the session manager the commands
// dispatch to.
type SessionMutatingService interface {
	Login(ctx context.Context, req session.LoginRequest) (session.User, error)
	Register(ctx context.Context, req session.RegisterRequest) (session.User, error)
	Logout(ctx context.Context) error
}

// TokenRefreshService drives a proactive credential renewal.
type TokenRefreshService interface {
	RefreshAhead(ctx context.Context) (bool, error)
}

type LoginCommand struct {
	service SessionMutatingService
}

func NewLoginCommand(service SessionMutatingService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, msg LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	user, err := c.service.Login(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, user)
	return nil
}

type RegisterCommand struct {
	service SessionMutatingService
}

func NewRegisterCommand(service SessionMutatingService) *RegisterCommand {
	return &RegisterCommand{service: service}
}

func (c *RegisterCommand) Execute(ctx context.Context, msg RegisterMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: register service is required")
	}
	user, err := c.service.Register(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, user)
	return nil
}

type LogoutCommand struct {
	service SessionMutatingService
}

func NewLogoutCommand(service SessionMutatingService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	_ = msg
	return c.service.Logout(ctx)
}

type RefreshCommand struct {
	service TokenRefreshService
}

func NewRefreshCommand(service TokenRefreshService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

// RefreshResult reports whether a renewal was actually attempted; a
// credential outside the lead window is left alone.
type RefreshResult struct {
	Attempted bool
}

func (c *RefreshCommand) Execute(ctx context.Context, msg RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	_ = msg
	attempted, err := c.service.RefreshAhead(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, RefreshResult{Attempted: attempted})
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
