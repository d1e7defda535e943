package config

import (
	"context"

	"modelkombat/config/models"
)

// Service is the remote inference service the State drives
type Service interface {
	// Initialize configures the client with credential
	Initialize(credential string)
	// TestConnection reports whether the configured credential is accepted
	TestConnection(ctx context.Context) bool
	// FetchModelCatalog returns the offered models in service order.
	// Without force a recently fetched catalog may be returned.
	FetchModelCatalog(ctx context.Context, force bool) ([]models.CatalogEntry, error)
	// Reset clears client state
	Reset()
}
