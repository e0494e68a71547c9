package cmd

import (
	"context"
	"testing"

	"connectiu-backend/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupLoggerLevels(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	setupLogger(config.LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogger(config.LogConfig{Level: "loud", Format: "json"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestRunMigrateRejectsBadArguments(t *testing.T) {
	cfg := config.DatabaseConfig{URL: "postgres://localhost/connectiu"}

	assert.Error(t, runMigrate(cfg, []string{"sideways"}))
	assert.Error(t, runMigrate(cfg, []string{"down", "zero"}))
}

func TestConnectRedisDisabledWithoutURL(t *testing.T) {
	assert.Nil(t, connectRedis(context.Background(), config.RedisConfig{}))
	assert.Nil(t, connectRedis(context.Background(), config.RedisConfig{URL: "://bad"}))
}
