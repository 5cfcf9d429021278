package adapters

import (
	"net/http"

	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// AdapterRegistry resolves provider adapters by code. All adapters share
// one HTTP client carrying the configured request timeout.
type AdapterRegistry struct {
	adapters map[provider.Code]provider.BillingProvider
}

// NewRegistry creates a registry with every supported provider wired in
func NewRegistry(cfg config.ProviderConfig, logger *zap.Logger) *AdapterRegistry {
	client := &http.Client{Timeout: cfg.RequestTimeout}

	return NewRegistryWith(
		NewNiboAdapter(client, cfg.MaxPages, logger),
		NewSafe2PayAdapter(client, cfg.MaxPages, logger),
		NewAsaasAdapter(client, cfg.MaxPages, logger),
		NewContaAzulAdapter(client, cfg.MaxPages, logger),
	)
}

// NewRegistryWith creates a registry from explicit adapters. Used by tests
// to register stubs.
func NewRegistryWith(providers ...provider.BillingProvider) *AdapterRegistry {
	adapters := make(map[provider.Code]provider.BillingProvider, len(providers))
	for _, p := range providers {
		adapters[p.Code()] = p
	}
	return &AdapterRegistry{adapters: adapters}
}

// Get returns the adapter for a provider code
func (r *AdapterRegistry) Get(code provider.Code) (provider.BillingProvider, error) {
	adapter, ok := r.adapters[code]
	if !ok {
		return nil, provider.ErrUnknownProvider
	}
	return adapter, nil
}

// Ensure AdapterRegistry implements Registry
var _ provider.Registry = (*AdapterRegistry)(nil)
