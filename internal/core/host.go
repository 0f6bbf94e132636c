package core

import (
	"context"

	"acm/internal/domain"
	"acm/internal/source"
	"acm/internal/storage/config"
)

// SettingsStore loads the settings root and schedules its persistence.
// RequestPersist returns immediately; the write happens later.
type SettingsStore interface {
	Load() (*config.SettingsDocument, error)
	RequestPersist(settings *domain.Settings)
	Flush() error
}

// Vault stores provider keys by opaque id
type Vault interface {
	// Write stores value under key and returns its new id
	Write(ctx context.Context, key, value, label string) (string, error)
	// Find returns the secret stored under key with the given id, or the
	// active secret when id is empty
	Find(ctx context.Context, key, id string) (string, bool, error)
	// State lists every stored secret by key. Values may be masked.
	State(ctx context.Context) (map[string][]domain.SecretEntry, error)
}

// Rotator is implemented by vaults that can mark a secret as the one in use.
// Vaults without it are used without rotation.
type Rotator interface {
	Rotate(ctx context.Context, key, id string) error
}

// ConnectionStateProvider reports the host's current connection
type ConnectionStateProvider interface {
	ConnectionState(ctx context.Context) (domain.ConnectionState, error)
}

// Connector drives the host's connection
type Connector interface {
	// Connect writes the connection fields and triggers a (re)connect.
	// Completion is observed through ModelsReady.
	Connect(ctx context.Context, req domain.ConnectRequest) error
	// SelectModel sets the model for source
	SelectModel(ctx context.Context, source domain.Source, model string) error
	// ModelsReady reports whether the host has populated its model list
	ModelsReady(ctx context.Context, source domain.Source) (bool, error)
}

// ModelLister lists the models available for a connection
type ModelLister interface {
	ListModels(ctx context.Context, req source.ListRequest) ([]string, error)
}

// ModelCache remembers model listings per source and endpoint
type ModelCache interface {
	Get(source, endpoint string) ([]string, bool, error)
	Store(source, endpoint string, models []string) error
	Delete(source, endpoint string) error
}
