package clientRepo

import (
	"context"

	"trustlink/models"
)

// ClientRepository defines read access to client configuration. The
// device-binding flows never mutate client records.
type ClientRepository interface {
	// GetByClientID retrieves a client by its ID. Returns nil when absent.
	GetByClientID(ctx context.Context, clientID string) (*models.Client, error)
}
