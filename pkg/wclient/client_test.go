package wclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fivetwenty-io/weclapp-client/pkg/wclient"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := wclient.New(context.Background(), nil)
	require.ErrorIs(t, err, weclapp.ErrConfigRequired)

	_, err = wclient.New(context.Background(), &weclapp.Config{APIToken: "token"})
	require.ErrorIs(t, err, weclapp.ErrTenantRequired)

	client, err := wclient.NewWithToken(context.Background(), "acme", "token")
	require.NoError(t, err)
	assert.Equal(t, weclapp.DefaultAPIVersion, client.APIVersion())
}

func TestNew_TrimsTenant(t *testing.T) {
	t.Parallel()

	config := &weclapp.Config{Tenant: "  acme ", APIToken: "token"}

	_, err := wclient.New(context.Background(), config)
	require.NoError(t, err)
	assert.Equal(t, "acme", config.Tenant)
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestLoadConfig(t *testing.T) {
	t.Setenv("WECLAPP_TENANT", "acme")
	t.Setenv("WECLAPP_API_TOKEN", "secret")
	t.Setenv("WECLAPP_API_VERSION", "1")
	t.Setenv("WECLAPP_HTTP_TIMEOUT", "5s")
	t.Setenv("WECLAPP_RETRY_MAX", "3")
	t.Setenv("WECLAPP_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("WECLAPP_DEBUG", "true")
	t.Setenv("WECLAPP_CACHE_TYPE", "memory")
	t.Setenv("WECLAPP_CACHE_TTL", "30s")

	config, err := wclient.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "acme", config.Tenant)
	assert.Equal(t, "secret", config.APIToken)
	assert.Equal(t, 1, config.APIVersion)
	assert.Equal(t, 5*time.Second, config.HTTPTimeout)
	assert.Equal(t, 3, config.RetryMax)
	assert.InDelta(t, 2.5, config.RequestsPerSecond, 0.001)
	assert.True(t, config.Debug)

	require.NotNil(t, config.Cache)
	assert.Equal(t, weclapp.CacheTypeMemory, config.Cache.Type)
	assert.Equal(t, 30*time.Second, config.Cache.Options.TTL)
	assert.Nil(t, config.Cache.NATS)
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("WECLAPP_TENANT", "")
	t.Setenv("WECLAPP_CACHE_TYPE", "")

	config, err := wclient.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, weclapp.DefaultAPIVersion, config.APIVersion)
	assert.Equal(t, 30*time.Second, config.HTTPTimeout)
	assert.Nil(t, config.Cache)
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestLoadConfig_NATSCache(t *testing.T) {
	t.Setenv("WECLAPP_CACHE_TYPE", "chain")
	t.Setenv("WECLAPP_NATS_URL", "nats://localhost:4222")
	t.Setenv("WECLAPP_NATS_BUCKET", "weclapp")

	config, err := wclient.LoadConfig()
	require.NoError(t, err)

	require.NotNil(t, config.Cache)
	assert.Equal(t, weclapp.CacheTypeChain, config.Cache.Type)
	require.NotNil(t, config.Cache.NATS)
	assert.Equal(t, "nats://localhost:4222", config.Cache.NATS.URL)
	assert.Equal(t, "weclapp", config.Cache.NATS.Bucket)
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestNewFromEnv(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "env-token", r.Header.Get(weclapp.HeaderAuthenticationToken))
		_, _ = w.Write([]byte(`{"result":5}`))
	}))
	defer server.Close()

	t.Setenv("WECLAPP_BASE_URL", server.URL)
	t.Setenv("WECLAPP_API_TOKEN", "env-token")
	t.Setenv("WECLAPP_CACHE_TYPE", "none")

	client, err := wclient.NewFromEnv(context.Background())
	require.NoError(t, err)

	count, err := client.Query("salesInvoice").Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
