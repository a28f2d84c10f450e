package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"trustlink/config"
	"trustlink/models"
	userRepo "trustlink/database/repository/user"
	"trustlink/utils"

	"firebase.google.com/go/v4/messaging"
	"github.com/hibiken/asynq"
)

// TypeLoginEvent is the asynq task type for login notifications.
const TypeLoginEvent = "login:event"

// AsynqLoginNotifier enqueues login events onto the notification queue. The
// worker in cron drains the queue and pushes via FCM.
type AsynqLoginNotifier struct {
	client *asynq.Client
}

// NewAsynqLoginNotifier creates a queue-backed LoginNotifier.
func NewAsynqLoginNotifier() (*AsynqLoginNotifier, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisNotifyQueueDB,
	})
	if client == nil {
		return nil, fmt.Errorf("notification: failed to create asynq client")
	}
	return &AsynqLoginNotifier{client: client}, nil
}

// NotifyLoginEvent enqueues the event for asynchronous delivery.
func (n *AsynqLoginNotifier) NotifyLoginEvent(ctx context.Context, event models.LoginEventPayload) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notification: failed to marshal login event: %w", err)
	}
	if _, err := n.client.EnqueueContext(ctx, asynq.NewTask(TypeLoginEvent, payload)); err != nil {
		return fmt.Errorf("notification: failed to enqueue login event: %w", err)
	}
	return nil
}

// Close releases the underlying queue connection.
func (n *AsynqLoginNotifier) Close() error {
	return n.client.Close()
}

// PushSender delivers a login event to the account owner's device via FCM.
type PushSender struct {
	Users userRepo.UserRepository
}

// SendLoginPush looks up the user's FCM token and sends a push describing
// the login outcome.
func (s *PushSender) SendLoginPush(ctx context.Context, event models.LoginEventPayload) error {
	u, err := s.Users.GetByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("SendLoginPush: could not find user %s: %w", event.UserID, err)
	}
	if u == nil || u.FCMToken == "" {
		// No push target; nothing to deliver.
		return nil
	}

	title := "New sign-in to your account"
	body := fmt.Sprintf("A device signed in using %s login.", event.Method)
	if !event.Success {
		title = "Sign-in attempt blocked"
		body = fmt.Sprintf("A %s login attempt on one of your devices failed.", event.Method)
	}

	msg := &messaging.Message{
		Token: u.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":     "login_event",
			"deviceId": event.DeviceID,
			"clientId": event.ClientID,
			"success":  fmt.Sprintf("%t", event.Success),
		},
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendLoginPush: failed to send FCM message: %w", err)
	}
	return nil
}
