package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/rollcall/internal/eventbus"
	"pkt.systems/rollcall/sshserver"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	SSH           SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Metrics       MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Events        EventsConfig  `mapstructure:"events" yaml:"events"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr            string `mapstructure:"addr" yaml:"addr"`
	SessionCookie   string `mapstructure:"session_cookie" yaml:"session_cookie"`
	SessionTTLHours int    `mapstructure:"session_ttl_hours" yaml:"session_ttl_hours"`
	BasePath        string `mapstructure:"base_path" yaml:"base_path"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Enabled            bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"`
	TOTPSecret         string `mapstructure:"totp_secret" yaml:"totp_secret"`
	IdleTimeoutMinutes int    `mapstructure:"idle_timeout_minutes" yaml:"idle_timeout_minutes"`
	Theme              string `mapstructure:"theme" yaml:"theme"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// EventsConfig controls change-event fan-out.
type EventsConfig struct {
	Buffer int `mapstructure:"buffer" yaml:"buffer"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		HTTP: HTTPConfig{
			Enabled:         true,
			Addr:            ":27580",
			SessionCookie:   "rollcall_session",
			SessionTTLHours: 24,
			BasePath:        "",
		},
		SSH: SSHConfig{
			Enabled:            true,
			Addr:               ":27522",
			HostKeyPath:        filepath.Join(home, ".rollcall", "ssh_host_key"),
			AuthorizedKeysPath: "",
			TOTPSecret:         "",
			IdleTimeoutMinutes: 30,
			Theme:              sshserver.DefaultTheme,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
		},
		Events: EventsConfig{
			Buffer: eventbus.DefaultDepth,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rollcall", "config.yaml"), nil
}
