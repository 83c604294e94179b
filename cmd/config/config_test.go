package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		wantErr bool
		wantCfg *Config
	}{
		{
			name: "defaults (no env set)",
			env:  map[string]string{},
			wantCfg: &Config{
				Port:                  10001,
				CallTimeoutMS:         1000,
				ReadyPollIntervalMS:   200,
				ReadyPollAttempts:     10,
				ElementPollIntervalMS: 1000,
				ElementPollAttempts:   30,
				SettingsDBPath:        "soundshift.db",
				AgentBundlePath:       "",
				TargetHost:            "open.spotify.com",
			},
		},
		{
			name: "custom valid env",
			env: map[string]string{
				"PORT":                "12345",
				"CALL_TIMEOUT_MS":     "500",
				"READY_POLL_ATTEMPTS": "3",
				"SETTINGS_DB_PATH":    "/tmp/settings.db",
				"TARGET_HOST":         "music.example.com",
			},
			wantCfg: &Config{
				Port:                  12345,
				CallTimeoutMS:         500,
				ReadyPollIntervalMS:   200,
				ReadyPollAttempts:     3,
				ElementPollIntervalMS: 1000,
				ElementPollAttempts:   30,
				SettingsDBPath:        "/tmp/settings.db",
				AgentBundlePath:       "",
				TargetHost:            "music.example.com",
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"PORT": "0"},
			wantErr: true,
		},
		{
			name:    "invalid call timeout",
			env:     map[string]string{"CALL_TIMEOUT_MS": "-5"},
			wantErr: true,
		},
		{
			name:    "invalid poll attempts",
			env:     map[string]string{"ELEMENT_POLL_ATTEMPTS": "0"},
			wantErr: true,
		},
		{
			name:    "empty target host",
			env:     map[string]string{"TARGET_HOST": ""},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCfg, cfg)
		})
	}
}
