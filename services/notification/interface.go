package notification

import (
	"context"

	"trustlink/models"
)

// LoginNotifier publishes login success/failure events. Delivery happens
// outside the request path.
type LoginNotifier interface {
	NotifyLoginEvent(ctx context.Context, event models.LoginEventPayload) error
}
