package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/tutorial-bot/internal/util"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	setDefaults()
	t.Cleanup(func() {
		viper.Reset()
		setDefaults()
	})
}

func TestDefaults(t *testing.T) {
	resetViper(t)

	assert.Equal(t, "/var/www/music", GetConfigString("library.root", ""))
	assert.Equal(t, "music_library", GetConfigString("library.table", ""))
	assert.Equal(t, []string{".mp3", ".wav", ".m4a"}, GetConfigStringSlice("library.extensions"))
	assert.Equal(t, 5*time.Minute, GetConfigDuration("render.webhook_timeout", 0))
	assert.Equal(t, 60, GetConfigInt("render.max_attempts", 0))
	assert.Equal(t, "docker exec -i postgres psql -U n8n -d n8n", GetConfigString("library.psql", ""))
}

func TestGetConfigStringSlice_CommaSeparated(t *testing.T) {
	resetViper(t)
	viper.Set("library.extensions", ".mp3,.flac")

	assert.Equal(t, []string{".mp3", ".flac"}, GetConfigStringSlice("library.extensions"))
}

func TestRemoteConfig(t *testing.T) {
	resetViper(t)

	_, err := remoteConfig()
	assert.ErrorIs(t, err, util.ErrInvalidConfig)

	viper.Set("remote.host", "media.example.net")
	viper.Set("remote.port", 2222)
	viper.Set("remote.timeout", "10s")

	cfg, err := remoteConfig()
	require.NoError(t, err)
	assert.Equal(t, "media.example.net", cfg.Host)
	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, "root", cfg.User)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "media.example.net:2222", cfg.Addr())
}

func TestPollerConfig(t *testing.T) {
	resetViper(t)
	viper.Set("render.api_key", "k")
	viper.Set("render.poll_interval", "2s")

	cfg := pollerConfig()
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "sandbox", cfg.Env)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 60, cfg.MaxAttempts)
}
