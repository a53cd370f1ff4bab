package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmygitz3/final-project/internal/mpesa"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("CLEANUP_INTERVAL", "")
	t.Setenv("LISTING_FEE", "")
	t.Setenv("MPESA_ENVIRONMENT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, DriverMongo, cfg.StorageDriver)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 500, cfg.Pricing.ListingFee)
	assert.Equal(t, 100, cfg.Pricing.ConnectionFee)
	assert.Equal(t, 1000, cfg.Pricing.SubscriptionFee)
	assert.Equal(t, mpesa.EnvSandbox, cfg.Mpesa.Environment)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("CLEANUP_INTERVAL", "15m")
	t.Setenv("CONNECTION_FEE", "150")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 15*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 150, cfg.Pricing.ConnectionFee)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LISTING_FEE", "free")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("LISTING_FEE", "")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err = FromEnv()
	assert.Error(t, err)
}
