package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDevelopmentDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("S3_BUCKET_NAME", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.Equal(t, 15*time.Minute, cfg.ResetTicketTTL)
	assert.False(t, cfg.UploadsEnabled())
}

func TestLoadConfigProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("STORE_DRIVER", StoreDriverMemory)
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "only allowed in development")
}

func TestLoadConfigPartialS3(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PORT", "")
	t.Setenv("S3_BUCKET_NAME", "photos")
	t.Setenv("S3_ENDPOINT", "")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "S3_ENDPOINT")
}

func TestLoadClientConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DONORLINK_API_URL", "http://localhost:9000/")
	t.Setenv("DONORLINK_STORE_PATH", "/tmp/donorlink-test.db")
	t.Setenv("DONORLINK_SIGNOUT_DELAY", "3s")
	t.Setenv("DONORLINK_LEGACY_RECOVERY", "true")

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.APIBaseURL)
	assert.Equal(t, "/tmp/donorlink-test.db", cfg.StorePath)
	assert.Equal(t, 3*time.Second, cfg.SignOutDelay)
	assert.True(t, cfg.LegacyRecoveryRoutes)
	assert.Equal(t, "/login", cfg.SignInRoute)

	t.Setenv("DONORLINK_REDIRECT_DELAY", "soon")
	_, err = LoadClientConfig()
	assert.Error(t, err)
}
