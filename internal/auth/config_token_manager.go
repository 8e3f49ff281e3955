package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister defines the interface for persisting config changes.
type ConfigPersister interface {
	UpdateAPIToken(tenant, token string, expiresAt time.Time) error
}

// ConfigTokenManager serves a tenant token and writes every replacement back
// to the configuration.
type ConfigTokenManager struct {
	mutex           sync.Mutex
	static          *StaticTokenManager
	configPersister ConfigPersister
	tenant          string
}

// NewConfigTokenManager creates a config-persisting token manager.
func NewConfigTokenManager(configPersister ConfigPersister, tenant, initialToken string) *ConfigTokenManager {
	return &ConfigTokenManager{
		static:          NewStaticTokenManager(initialToken),
		configPersister: configPersister,
		tenant:          tenant,
	}
}

// GetToken returns the current token.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.static.GetToken(ctx)
}

// RefreshToken is not supported for weclapp API tokens.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	return m.static.RefreshToken(ctx)
}

// SetToken replaces the token without persisting it. Use Update to persist.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	m.static.SetToken(token, expiresAt)
}

// Update replaces the token and persists it.
func (m *ConfigTokenManager) Update(token string, expiresAt time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.configPersister == nil {
		return ErrNoConfigPersister
	}

	err := m.configPersister.UpdateAPIToken(m.tenant, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update API token: %w", err)
	}

	m.static.SetToken(token, expiresAt)

	return nil
}
