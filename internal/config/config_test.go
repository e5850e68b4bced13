package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Prefix)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, 3*time.Second, cfg.DB.Timeout)
	assert.Equal(t, "books", cfg.Mongo.Collection)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, "db/migrations", cfg.Migrations.Dir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOOKS_BACKEND", "mongo")
	t.Setenv("BOOKS_MONGO_URI", "mongodb://db:27017")
	t.Setenv("BOOKS_DB_TIMEOUT", "750ms")
	t.Setenv("BOOKS_RATELIMIT_RPS", "2.5")
	t.Setenv("BOOKS_LOG_FORMAT", "json")

	cfg, err := Load(Prefix)
	require.NoError(t, err)
	assert.Equal(t, BackendMongo, cfg.Backend)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, 750*time.Millisecond, cfg.DB.Timeout)
	assert.InDelta(t, 2.5, cfg.RateLimit.RPS, 1e-9)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("BOOKS_ADDR=:9090\nBOOKS_JWT_SECRET=from-file\n"), 0o600))
	t.Setenv("BOOKS_ADDR", ":7070")

	cfg, err := Load(Prefix)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr, "environment wins over .env")
	assert.Equal(t, "from-file", cfg.JWT.Secret)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOOKS_BACKEND", "sqlite")

	_, err := Load(Prefix)
	assert.ErrorContains(t, err, `unknown backend "sqlite"`)
}

func TestPropertyKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"BOOKS_DB_DSN", "db.dsn", true},
		{"books_log_level", "log.level", true},
		{"BOOKS_", "", false},
		{"PATH", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := propertyKey(Prefix, tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	base := Config{Backend: BackendMemory, RateLimit: RateLimitConfig{RPS: 1, Burst: 1}}
	assert.NoError(t, base.Validate())

	pg := base
	pg.Backend = BackendPostgres
	assert.Error(t, pg.Validate())

	noRate := base
	noRate.RateLimit.Burst = 0
	assert.Error(t, noRate.Validate())
}
