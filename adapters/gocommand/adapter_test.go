package gocommand

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"

	clientcmd "github.com/agrisetu/go-agriclient/command"
	"github.com/agrisetu/go-agriclient/session"
)

type okMessage struct{}

func (okMessage) Type() string { return "agriclient.command.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "agriclient.command.test" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(clientcmd.LoginMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
	if err := ValidateMessageContract(clientcmd.LoginMessage{Request: session.LoginRequest{
		Phone:    "9876500001",
		Password: "kheti@123",
	}}); err != nil {
		t.Fatalf("expected complete login message to validate, got %v", err)
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	subscription, err := RegisterAndSubscribe(adapter, cmd)
	if err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	t.Cleanup(subscription.Unsubscribe)

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestRegisterAndSubscribeRequiresCommand(t *testing.T) {
	adapter := NewRegistryAdapter(nil)
	if _, err := RegisterAndSubscribe[dispatchMessage](adapter, nil); err == nil {
		t.Fatalf("expected error for nil command")
	}
	var missing *RegistryAdapter
	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error { return nil })
	if _, err := RegisterAndSubscribe(missing, cmd); err == nil {
		t.Fatalf("expected error for missing registry")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("expected fresh registry to initialize: %v", err)
	}
}
