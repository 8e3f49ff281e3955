package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/weclapp-client/internal/constants"
)

// ConfigPersister implements the auth.ConfigPersister interface.
type ConfigPersister struct {
	mutex sync.Mutex
	path  string
}

// NewConfigPersister creates a persister for the active configuration file.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// NewFileConfigPersister creates a persister bound to a specific file.
func NewFileConfigPersister(path string) *ConfigPersister {
	return &ConfigPersister{path: path}
}

func (p *ConfigPersister) file() (string, error) {
	if p.path != "" {
		return p.path, nil
	}

	return configFilePath()
}

// UpdateAPIToken stores token for tenant.
func (p *ConfigPersister) UpdateAPIToken(tenant, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	configFile, err := p.file()
	if err != nil {
		return err
	}

	config, err := loadConfigFile(configFile)
	if err != nil {
		return err
	}

	tenantConfig, exists := config.Tenants[tenant]
	if !exists {
		return fmt.Errorf("tenant '%s': %w", tenant, constants.ErrTenantConfigNotFound)
	}

	tenantConfig.Token = token
	tenantConfig.TokenExpiresAt = nil

	if !expiresAt.IsZero() {
		tenantConfig.TokenExpiresAt = &expiresAt
	}

	now := time.Now()
	tenantConfig.LastUpdated = &now

	return saveConfigFile(configFile, config)
}
