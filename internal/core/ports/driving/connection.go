package driving

import (
	"context"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// ConnectionService manages the provider connection.
type ConnectionService interface {
	// Connect authenticates with the configured account and stores the credential.
	Connect(ctx context.Context) (*domain.Credential, error)

	// ConnectionStatus reports whether a usable credential is stored.
	ConnectionStatus(ctx context.Context) (*domain.ConnectionStatus, error)

	// Disconnect deletes the stored credential.
	Disconnect(ctx context.Context) error
}
