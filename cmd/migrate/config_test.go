package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	got, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, "db/migrations", got.Dir)
	assert.Contains(t, got.DSN, "postgres://")
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOOKS_MIGRATIONS_DIR", "/custom/migrations")
	t.Setenv("BOOKS_DB_DSN", "postgres://u:p@db:5432/books")

	got, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, "/custom/migrations", got.Dir)
	assert.Equal(t, "postgres://u:p@db:5432/books", got.DSN)
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env.local"), []byte("BOOKS_DB_DSN=from_file\n"), 0o644))

	t.Setenv("BOOKS_DB_DSN", "from_env")
	t.Chdir(tmp)

	loadEnvFiles()

	assert.Equal(t, "from_env", os.Getenv("BOOKS_DB_DSN"))
}
