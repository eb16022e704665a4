// Package config loads watcher configuration with flag > environment >
// config file > default precedence. The environment names are kept
// compatible with earlier deployments of the watcher.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultProfile is the credential profile used when none is given.
	DefaultProfile = "20859"

	// DefaultLookbackHours bounds the modification-time query window.
	DefaultLookbackHours = 2
)

// Config is the resolved watcher configuration for one run.
type Config struct {
	Profile       string `mapstructure:"profile"`
	StateFile     string `mapstructure:"state_file"`
	LookbackHours int    `mapstructure:"lookback_hours"`
	WebhookURL    string `mapstructure:"webhook_url"`
	SlackChannel  string `mapstructure:"slack_channel"`
	SlackToken    string `mapstructure:"slack_token"`
	ImportantOnly bool   `mapstructure:"important_only"`
	Triage        bool   `mapstructure:"triage"`
	Quiet         bool   `mapstructure:"quiet"`
	JSON          bool   `mapstructure:"json"`
	Model         string `mapstructure:"model"`
}

// DefaultStateFile is the state path used when neither flag, env, nor config
// file names one.
func DefaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vision-watcher-state.json"
	}
	return filepath.Join(home, ".vision-watcher-state.json")
}

// Load reads configuration. cfgFile, when non-empty, names an explicit
// config file and a read failure there is an error; otherwise an optional
// visionwatch.yaml is searched in ~/.config/visionwatch and the current
// directory, and its absence is fine.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("profile", DefaultProfile)
	v.SetDefault("state_file", DefaultStateFile())
	v.SetDefault("lookback_hours", DefaultLookbackHours)

	// Environment fallbacks, names carried over from the original
	// watcher deployment.
	_ = v.BindEnv("webhook_url", "VISION_WATCHER_WEBHOOK")
	_ = v.BindEnv("state_file", "VISION_WATCHER_STATE")
	_ = v.BindEnv("slack_token", "SLACK_BOT_TOKEN")
	_ = v.BindEnv("model", "VISIONWATCH_MODEL")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("visionwatch")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "visionwatch"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
