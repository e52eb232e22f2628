package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Cart.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Cart.RequestTimeout)
	assert.Equal(t, "last-response", cfg.Cart.ReconcilePolicy)
	assert.Equal(t, "keep", cfg.Cart.FailurePolicy)
	assert.False(t, cfg.Cart.SnapshotFallback)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.CartCleanupSpec)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CART_API_BASE_URL", "http://cart.internal:9000")
	t.Setenv("CART_REQUEST_TIMEOUT", "1500ms")
	t.Setenv("CART_FAILURE_POLICY", "rollback")
	t.Setenv("CART_SNAPSHOT_FALLBACK", "true")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://cart.internal:9000", cfg.Cart.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Cart.RequestTimeout)
	assert.Equal(t, "rollback", cfg.Cart.FailurePolicy)
	assert.True(t, cfg.Cart.SnapshotFallback)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("CART_REQUEST_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Cart.RequestTimeout)
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("CART_REQUEST_TIMEOUT", "-1s")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com, ,http://localhost:3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop.example.com", "http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}
