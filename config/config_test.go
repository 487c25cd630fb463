package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("MONGO_URI", "")
	t.Setenv("MONGO_DB", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("ORDER_STATUS_STRICT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "storedb", cfg.DBName)
	assert.Equal(t, []byte("s3cret"), cfg.JWTSecret)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.False(t, cfg.StrictStatusFlow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("ORDER_STATUS_STRICT", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.True(t, cfg.StrictStatusFlow)
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
