package util

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// RequireString returns the configured value for key, or ErrInvalidConfig
// naming the key and the flag/env var that can supply it.
func RequireString(key string) (string, error) {
	val := strings.TrimSpace(viper.GetString(key))
	if val == "" {
		envKey := "TBOT_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
		return "", fmt.Errorf("%w: %s is required (set it in the config file or %s)", ErrInvalidConfig, key, envKey)
	}
	return val, nil
}
