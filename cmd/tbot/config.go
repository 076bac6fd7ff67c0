package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/franz/tutorial-bot/internal/library"
	"github.com/franz/tutorial-bot/internal/populate"
	"github.com/franz/tutorial-bot/internal/remote"
	"github.com/franz/tutorial-bot/internal/render"
	"github.com/franz/tutorial-bot/internal/report"
	"github.com/franz/tutorial-bot/internal/store"
	"github.com/franz/tutorial-bot/internal/util"
)

const (
	defaultDB        = "tbot-state.db"
	defaultArtifacts = "artifacts"
)

// setDefaults registers the value used when neither a flag, an environment
// variable (TBOT_*) nor the config file sets a key.
func setDefaults() {
	viper.SetDefault("remote.port", 22)
	viper.SetDefault("remote.user", "root")
	viper.SetDefault("remote.timeout", 30*time.Second)

	viper.SetDefault("library.root", populate.DefaultRoot)
	viper.SetDefault("library.extensions", remote.DefaultExtensions)
	viper.SetDefault("library.table", library.DefaultTable)
	viper.SetDefault("library.local_script", populate.DefaultLocalScript)
	viper.SetDefault("library.remote_script", populate.DefaultRemoteScript)
	viper.SetDefault("library.psql", populate.DefaultPsqlCommand)

	viper.SetDefault("render.webhook_url", render.DefaultWebhookURL)
	viper.SetDefault("render.webhook_timeout", render.DefaultWebhookTimeout)
	viper.SetDefault("render.env", render.DefaultEnv)
	viper.SetDefault("render.api_base", render.DefaultAPIBase)
	viper.SetDefault("render.poll_interval", render.DefaultPollInterval)
	viper.SetDefault("render.max_attempts", render.DefaultMaxAttempts)
	viper.SetDefault("render.output_dir", ".")
}

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (TBOT_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := strings.TrimSpace(viper.GetString(key))
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigDuration retrieves a duration config value
func GetConfigDuration(key string, defaultValue time.Duration) time.Duration {
	val := viper.GetDuration(key)
	if val <= 0 {
		return defaultValue
	}
	return val
}

// GetConfigStringSlice retrieves a string slice config value. A single
// comma-separated string (as set through the environment) is split.
func GetConfigStringSlice(key string) []string {
	vals := viper.GetStringSlice(key)
	if len(vals) == 1 && strings.Contains(vals[0], ",") {
		vals = strings.Split(vals[0], ",")
	}
	return vals
}

// remoteConfig builds the SSH settings for the media host.
func remoteConfig() (remote.Config, error) {
	host, err := util.RequireString("remote.host")
	if err != nil {
		return remote.Config{}, err
	}
	return remote.Config{
		Host:       host,
		Port:       GetConfigInt("remote.port", 22),
		User:       GetConfigString("remote.user", "root"),
		Password:   viper.GetString("remote.password"),
		KeyFile:    GetConfigString("remote.key_file", ""),
		KnownHosts: GetConfigString("remote.known_hosts", ""),
		Timeout:    GetConfigDuration("remote.timeout", 30*time.Second),
	}, nil
}

// pollerConfig builds the Shotstack polling settings.
func pollerConfig() render.PollerConfig {
	return render.PollerConfig{
		APIKey:      viper.GetString("render.api_key"),
		Env:         GetConfigString("render.env", render.DefaultEnv),
		BaseURL:     GetConfigString("render.api_base", render.DefaultAPIBase),
		Interval:    GetConfigDuration("render.poll_interval", render.DefaultPollInterval),
		MaxAttempts: GetConfigInt("render.max_attempts", render.DefaultMaxAttempts),
	}
}

func openStore() (*store.Store, error) {
	dbPath := GetConfigString("db", defaultDB)
	util.DebugLog("Opening database: %s", dbPath)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newEventLogger opens an event log whose level follows -v/-q.
func newEventLogger(prefix string) (*report.EventLogger, error) {
	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger(GetConfigString("artifacts", defaultArtifacts), prefix, logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create event logger: %w", err)
	}
	return logger, nil
}
