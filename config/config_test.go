package config

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	require.NoError(t, LoadConfig())

	assert.Equal(t, 2*time.Hour, AppConfig.JWTExpiry)
	assert.Equal(t, 24*time.Hour, AppConfig.ConfirmTokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, AppConfig.CORSOrigins)
	assert.Equal(t, 587, AppConfig.SMTP.Port)
	assert.False(t, AppConfig.Redis.Enabled)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "")

	require.EqualError(t, LoadConfig(), "JWT_SECRET is required")
}

func TestValidateProductionSecretLength(t *testing.T) {
	cfg := Config{Environment: "production", DBPassword: "x", JWTSecret: "short", RateLimitAuth: 10}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	require.NoError(t, cfg.Validate())
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t,
		"host=db port=5432 user=u password=***** dbname=d",
		maskPassword("host=db port=5432 user=u password=hunter2 dbname=d"),
	)
	assert.Equal(t, "host=db password=*****", maskPassword("host=db password=hunter2"))
}

func TestGormLoggerWritesThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	newGormLogger(log, false).Info(context.Background(), "hello %s", "gorm")
	assert.Contains(t, buf.String(), "hello gorm")

	buf.Reset()
	newGormLogger(log, true).Info(context.Background(), "quiet %s", "gorm")
	assert.Empty(t, buf.String())
}
