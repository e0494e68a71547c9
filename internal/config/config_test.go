package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFileWithDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	path := writeConfig(t, `
server:
  port: 8081
database:
  host: db
  user: app
  password: secret
  dbname: social
jwt:
  secret: file-secret
  ttl: 2h
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "/uploads", cfg.Storage.PublicBaseURL)
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=social sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "pgx5://app:secret@db:5432/social?sslmode=disable", cfg.Database.MigrationURL())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: file-secret
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@host:5432/connectiu?sslmode=require")
	t.Setenv("PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@host:5432/connectiu?sslmode=require", cfg.Database.DSN())
	assert.Equal(t, "pgx5://u:p@host:5432/connectiu?sslmode=require", cfg.Database.MigrationURL())
}

func TestMissingFileIsAllowed(t *testing.T) {
	t.Setenv("JWT_SECRET", "only-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
}

func TestSecretIsRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(writeConfig(t, "server:\n  port: 4000\n"))
	assert.Error(t, err)
}

func TestS3DriverRequiresBucket(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("S3_BUCKET", "")

	_, err := Load(writeConfig(t, "log:\n  level: info\n"))
	assert.ErrorContains(t, err, "bucket")
}
