package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 3.5, cfg.Fees.Percent)
	assert.Equal(t, int64(10), cfg.Fees.MinFee)
	assert.Equal(t, int64(5000), cfg.Fees.MaxFee)
	assert.Equal(t, 72*time.Hour, cfg.Escrow.InviteTTL)
	assert.Equal(t, 5*time.Minute, cfg.PresenceTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Len(t, cfg.AllowedOrigins, 2)
}

func TestLoad_CustomFeesAndOrigins(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("FEE_PERCENT", "2.25")
	t.Setenv("FEE_MIN", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2.25, cfg.Fees.Percent)
	assert.Equal(t, int64(5), cfg.Fees.MinFee)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidFeeSchedule(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("FEE_MIN", "100")
	t.Setenv("FEE_MAX", "10")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_UnknownStorageDriver(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load()
	assert.Error(t, err)
}
