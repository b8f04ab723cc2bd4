package services

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

type ChatService struct {
	client *core.Client
}

func NewChatService(client *core.Client) *ChatService {
	return &ChatService{client: client}
}

type ChatRequest struct {
	Message        string `json:"message"`
	Language       string `json:"language,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ChatReply struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
	Language       string `json:"language"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// SendMessage submits a farmer question to the advisory assistant.
func (s *ChatService) SendMessage(ctx context.Context, req ChatRequest) (ChatReply, error) {
	if s == nil || s.client == nil {
		return ChatReply{}, serviceNotConfigured("chat")
	}
	if strings.TrimSpace(req.Message) == "" {
		return ChatReply{}, goerrors.New("services: chat message is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	res, err := s.client.Post(ctx, "/api/v1/chat", req)
	if err != nil {
		return ChatReply{}, err
	}
	var reply ChatReply
	if err := res.Decode(&reply); err != nil {
		return ChatReply{}, err
	}
	return reply, nil
}

// History returns the stored transcript for a conversation.
func (s *ChatService) History(ctx context.Context, conversationID string) ([]ChatMessage, error) {
	if s == nil || s.client == nil {
		return nil, serviceNotConfigured("chat")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, goerrors.New("services: conversation id is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	res, err := s.client.Get(ctx, "/api/v1/chat/"+conversationID+"/history", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Messages []ChatMessage `json:"messages"`
	}
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Messages, nil
}

func serviceNotConfigured(name string) error {
	return goerrors.New("services: "+name+" service is not configured", goerrors.CategoryInternal).
		WithTextCode(core.ClientErrorInternal)
}
