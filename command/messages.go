package command

import (
	"strings"

	"github.com/agrisetu/go-agriclient/session"
)

const (
	TypeLogin    = "agriclient.command.session.login"
	TypeRegister = "agriclient.command.session.register"
	TypeLogout   = "agriclient.command.session.logout"
	TypeRefresh  = "agriclient.command.token.refresh"
)

type LoginMessage struct {
	Request session.LoginRequest
}

func (LoginMessage) Type() string { return TypeLogin }

func (m LoginMessage) Validate() error {
	if strings.TrimSpace(m.Request.Phone) == "" {
		return commandValidationError("phone", "phone is required")
	}
	if strings.TrimSpace(m.Request.Password) == "" {
		return commandValidationError("password", "password is required")
	}
	return nil
}

type RegisterMessage struct {
	Request session.RegisterRequest
}

func (RegisterMessage) Type() string { return TypeRegister }

func (m RegisterMessage) Validate() error {
	if strings.TrimSpace(m.Request.Name) == "" {
		return commandValidationError("name", "name is required")
	}
	if strings.TrimSpace(m.Request.Phone) == "" {
		return commandValidationError("phone", "phone is required")
	}
	if strings.TrimSpace(m.Request.Password) == "" {
		return commandValidationError("password", "password is required")
	}
	return nil
}

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

func (LogoutMessage) Validate() error { return nil }

type RefreshMessage struct{}

func (RefreshMessage) Type() string { return TypeRefresh }

func (RefreshMessage) Validate() error { return nil }
