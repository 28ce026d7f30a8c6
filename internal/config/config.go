// Package config loads go_nodehost settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	dirName   = ".go_nodehost"
	envPrefix = "NODEHOST"
)

var (
	configData Config
	v          = viper.New()
)

// Config holds all configuration settings.
type Config struct {
	// Server configuration
	Server struct {
		Host       string
		Port       int
		TCPAddress string `mapstructure:"tcp_address"`
		AccessLog  bool   `mapstructure:"access_log"`
	}
	// Plugin configuration
	Plugin struct {
		Path string
	}
	// Watcher configuration
	Watcher struct {
		PollInterval        time.Duration `mapstructure:"poll_interval"`
		UnavailableInterval time.Duration `mapstructure:"unavailable_interval"`
		BackoffInterval     time.Duration `mapstructure:"backoff_interval"`
		ExtractTimeout      time.Duration `mapstructure:"extract_timeout"`
	}
	// Patch configuration
	Patch struct {
		Enabled bool
	}
	// Logging configuration
	Log struct {
		Level  string
		Format string
	}
}

// Initialize sets up the configuration system. An empty cfgFile searches the default
// locations and creates $HOME/.go_nodehost/config.yaml when it is missing.
func Initialize(cfgFile string) error {
	if cfgFile == "" {
		if err := ensureConfig(os.Getenv("HOME")); err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
	}

	cfg, err := load(v, cfgFile)
	if err != nil {
		return err
	}
	configData = *cfg

	return nil
}

// load reads configuration into a Config using the given viper instance.
func load(vp *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
	} else {
		vp.SetConfigName("config")            // name of config file (without extension)
		vp.SetConfigType("yaml")              // config file type
		vp.AddConfigPath(".")                 // optionally look for config in working directory
		vp.AddConfigPath("$HOME/" + dirName)  // look for config in .go_nodehost directory in home
		vp.AddConfigPath("/etc/go_nodehost/") // path to look for the config file in
	}

	setDefaults(vp)

	// Environment variables
	vp.SetEnvPrefix(envPrefix)
	vp.AutomaticEnv()
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read in config file
	if err := vp.ReadInConfig(); err != nil {
		// It's okay if we can't find a config file, we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options.
func setDefaults(vp *viper.Viper) {
	// Server defaults
	vp.SetDefault("server.host", "localhost")
	vp.SetDefault("server.port", 8188)
	vp.SetDefault("server.tcp_address", "")
	vp.SetDefault("server.access_log", false)

	// Plugin defaults
	vp.SetDefault("plugin.path", "plugins")

	// Watcher defaults
	vp.SetDefault("watcher.poll_interval", 100*time.Millisecond)
	vp.SetDefault("watcher.unavailable_interval", 100*time.Millisecond)
	vp.SetDefault("watcher.backoff_interval", time.Second)
	vp.SetDefault("watcher.extract_timeout", 5*time.Second)

	// Patch defaults
	vp.SetDefault("patch.enabled", true)

	// Logging defaults
	vp.SetDefault("log.level", "info")
	vp.SetDefault("log.format", "human")
}

const defaultConfig = `# go_nodehost configuration file
server:
  host: localhost
  port: 8188
  # tcp_address: 127.0.0.1:8189
  access_log: false

plugin:
  path: plugins

watcher:
  poll_interval: 100ms
  unavailable_interval: 100ms
  backoff_interval: 1s
  extract_timeout: 5s

patch:
  enabled: true

log:
  level: info
  format: human
`

// ensureConfig creates a default config file under home if none exists.
func ensureConfig(home string) error {
	if home == "" {
		return nil
	}

	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := os.WriteFile(configFile, []byte(defaultConfig), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// Get returns the current configuration.
func Get() *Config {
	return &configData
}

// GetViper returns the viper instance.
func GetViper() *viper.Viper {
	return v
}
