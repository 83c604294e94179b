package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the server
type Config struct {
	// Server configuration
	Port int `envconfig:"PORT" default:"10001"`

	// Cross-realm call timeout in milliseconds
	CallTimeoutMS int `envconfig:"CALL_TIMEOUT_MS" default:"1000"`

	// Readiness poll: short interval, small bound
	ReadyPollIntervalMS int `envconfig:"READY_POLL_INTERVAL_MS" default:"200"`
	ReadyPollAttempts   int `envconfig:"READY_POLL_ATTEMPTS" default:"10"`

	// Media-element wait: longer interval, larger bound (the host page may
	// need user interaction before any element exists)
	ElementPollIntervalMS int `envconfig:"ELEMENT_POLL_INTERVAL_MS" default:"1000"`
	ElementPollAttempts   int `envconfig:"ELEMENT_POLL_ATTEMPTS" default:"30"`

	// Settings persistence
	SettingsDBPath string `envconfig:"SETTINGS_DB_PATH" default:"soundshift.db"`

	// Optional path to the page-agent script bundle served at /pageagent.js.
	// Empty disables the endpoint.
	AgentBundlePath string `envconfig:"AGENT_BUNDLE_PATH" default:""`

	// Host matched by the checkSpotifyTab action
	TargetHost string `envconfig:"TARGET_HOST" default:"open.spotify.com"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, err
	}
	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(config *Config) error {
	if config.Port <= 0 {
		return fmt.Errorf("PORT must be greater than 0")
	}
	if config.CallTimeoutMS <= 0 {
		return fmt.Errorf("CALL_TIMEOUT_MS must be greater than 0")
	}
	if config.ReadyPollIntervalMS <= 0 || config.ElementPollIntervalMS <= 0 {
		return fmt.Errorf("poll intervals must be greater than 0")
	}
	if config.ReadyPollAttempts <= 0 || config.ElementPollAttempts <= 0 {
		return fmt.Errorf("poll attempt counts must be greater than 0")
	}
	if config.SettingsDBPath == "" {
		return fmt.Errorf("SETTINGS_DB_PATH is required")
	}
	if config.TargetHost == "" {
		return fmt.Errorf("TARGET_HOST is required")
	}

	return nil
}

// CallTimeout returns the cross-realm call timeout as a duration.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutMS) * time.Millisecond
}

// ReadyPollInterval returns the readiness poll interval as a duration.
func (c *Config) ReadyPollInterval() time.Duration {
	return time.Duration(c.ReadyPollIntervalMS) * time.Millisecond
}

// ElementPollInterval returns the element-wait poll interval as a duration.
func (c *Config) ElementPollInterval() time.Duration {
	return time.Duration(c.ElementPollIntervalMS) * time.Millisecond
}
