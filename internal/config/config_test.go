package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DefaultsApply(t *testing.T) {
	v, err := newViper()
	require.NoError(t, err)
	cfg := fromViper(v)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 30, cfg.RateLimit.Messages)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5*time.Minute, cfg.Notification.ActivityWindow)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.Origins)
}

func Test_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("RATELIMIT_MESSAGES", "5")
	t.Setenv("RATELIMIT_WINDOW", "10s")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test,")

	v, err := newViper()
	require.NoError(t, err)
	cfg := fromViper(v)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 5, cfg.RateLimit.Messages)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORS.Origins)
}

func Test_DatabaseURLs(t *testing.T) {
	db := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "chat", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/chat?sslmode=disable", db.URL())
	assert.Contains(t, db.DSN(), "dbname=chat")
}
