package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fivetwenty-io/weclapp-client/internal/auth"
	"github.com/fivetwenty-io/weclapp-client/internal/constants"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetConfigValue(t *testing.T) {
	t.Parallel()

	newConfig := func() *Config {
		return &Config{
			CurrentTenant: "acme",
			Tenants:       map[string]*TenantConfig{"acme": {Tenant: "acme"}},
		}
	}

	t.Run("global output", func(t *testing.T) {
		t.Parallel()

		config := newConfig()
		require.NoError(t, setConfigValue(config, "", "output", "yaml"))
		assert.Equal(t, "yaml", config.Output)

		require.ErrorIs(t, setConfigValue(config, "", "output", "xml"), constants.ErrInvalidOutput)
	})

	t.Run("tenant api version", func(t *testing.T) {
		t.Parallel()

		config := newConfig()
		require.NoError(t, setConfigValue(config, "", "api_version", "1"))
		assert.Equal(t, 1, config.Tenants["acme"].APIVersion)

		err := setConfigValue(config, "", "api_version", "3")
		require.ErrorIs(t, err, weclapp.ErrInvalidAPIVersion)
	})

	t.Run("requests per second", func(t *testing.T) {
		t.Parallel()

		config := newConfig()
		require.NoError(t, setConfigValue(config, "acme", "requests_per_second", "2.5"))
		assert.InDelta(t, 2.5, config.Tenants["acme"].RequestsPerSecond, 0.001)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()

		err := setConfigValue(newConfig(), "other", "base_url", "http://localhost")
		require.ErrorIs(t, err, constants.ErrTenantConfigNotFound)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		err := setConfigValue(newConfig(), "", "colour", "blue")
		require.ErrorIs(t, err, constants.ErrUnknownConfigKey)
	})
}

func TestMaskConfig(t *testing.T) {
	t.Parallel()

	config := &Config{Tenants: map[string]*TenantConfig{
		"acme":  {Tenant: "acme", Token: "secret"},
		"empty": {Tenant: "empty"},
	}}

	masked := maskConfig(config)

	assert.Equal(t, constants.MaskedSecret, masked.Tenants["acme"].Token)
	assert.Empty(t, masked.Tenants["empty"].Token)
	assert.Equal(t, "secret", config.Tenants["acme"].Token)
}

func TestConfigFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	config, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Empty(t, config.Tenants)

	config.CurrentTenant = "acme"
	config.Tenants["acme"] = &TenantConfig{Tenant: "acme", APIVersion: 1}
	require.NoError(t, saveConfigFile(path, config))

	loaded, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", loaded.CurrentTenant)
	assert.Equal(t, 1, loaded.Tenants["acme"].APIVersion)
}

func TestConfigPersisterWithTokenManager(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, saveConfigFile(path, &Config{
		CurrentTenant: "acme",
		Tenants:       map[string]*TenantConfig{"acme": {Tenant: "acme"}},
	}))

	manager := auth.NewConfigTokenManager(NewFileConfigPersister(path), "acme", "old")

	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, manager.Update("new-token", expiresAt))

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)

	loaded, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new-token", loaded.Tenants["acme"].Token)
	require.NotNil(t, loaded.Tenants["acme"].TokenExpiresAt)
	assert.True(t, expiresAt.Equal(*loaded.Tenants["acme"].TokenExpiresAt))
	assert.NotNil(t, loaded.Tenants["acme"].LastUpdated)

	missing := auth.NewConfigTokenManager(NewFileConfigPersister(path), "other", "x")
	require.ErrorIs(t, missing.Update("y", time.Time{}), constants.ErrTenantConfigNotFound)
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", formatConfigValue(""))
	assert.Equal(t, "v2", formatAPIVersion(0))
	assert.Equal(t, "v1", formatAPIVersion(1))
	assert.Equal(t, "*", formatCurrentIndicator(true))
	assert.Empty(t, formatCurrentIndicator(false))
}
