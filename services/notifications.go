package services

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

type NotificationsService struct {
	client *core.Client
}

func NewNotificationsService(client *core.Client) *NotificationsService {
	return &NotificationsService{client: client}
}

type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

func (s *NotificationsService) List(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	if s == nil || s.client == nil {
		return nil, serviceNotConfigured("notifications")
	}
	params := map[string]string{}
	if unreadOnly {
		params["unread"] = "true"
	}
	res, err := s.client.Get(ctx, "/api/v1/notifications", params)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Notifications, nil
}

func (s *NotificationsService) MarkRead(ctx context.Context, notificationID string) error {
	if s == nil || s.client == nil {
		return serviceNotConfigured("notifications")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return goerrors.New("services: notification id is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	_, err := s.client.Put(ctx, "/api/v1/notifications/"+notificationID+"/read", nil)
	return err
}

func (s *NotificationsService) MarkAllRead(ctx context.Context) error {
	if s == nil || s.client == nil {
		return serviceNotConfigured("notifications")
	}
	_, err := s.client.Put(ctx, "/api/v1/notifications/read-all", nil)
	return err
}
