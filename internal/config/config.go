// Package config loads voxread's viper-backed application configuration:
// proxy base URL and shared secret (§6.2-6.4), data directory for the
// SQLite store (§4.9/§4.10/§6.5). Grounded
// on the teacher's main.go tryLoadConfigFromDefaultPlaces/init idiom
// (github.com/muesli/go-app-paths config-dir resolution,
// github.com/spf13/viper layered config) and tts/config_loader.go's
// SetDefaults convention.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// Config is voxread's top-level application configuration.
type Config struct {
	// ProxyBaseURL is {proxyBase} in spec.md §6.2-6.4.
	ProxyBaseURL string
	// ProxyKey is the optional X-Proxy-Key shared secret.
	ProxyKey string
	// DataDir holds the sqlite store (content, settings, queue).
	DataDir string
	// Debug enables verbose logging.
	Debug bool
}

// Load resolves config from (in ascending priority) built-in defaults,
// a config file in the platform's standard config directory, and
// VOXREAD_-prefixed environment variables, following main.go's
// tryLoadConfigFromDefaultPlaces pattern.
func Load(explicitConfigFile string) (*Config, error) {
	scope := gap.NewScope(gap.User, "voxread")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("config: resolve config dirs: %w", err)
	}
	dataDirs, err := scope.DataDirs()
	if err != nil {
		return nil, fmt.Errorf("config: resolve data dirs: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voxread")}, dirs...)
	}
	if c := os.Getenv("VOXREAD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	v := viper.New()
	v.SetEnvPrefix("voxread")
	v.AutomaticEnv()

	v.SetDefault("proxy.base_url", "")
	v.SetDefault("proxy.key", "")
	v.SetDefault("data_dir", firstOr(dataDirs, "."))
	v.SetDefault("debug", false)

	if explicitConfigFile != "" {
		v.SetConfigFile(explicitConfigFile)
	} else {
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
		v.SetConfigName("voxread")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("config: could not parse configuration file", "err", err)
		}
	} else {
		log.Debug("config: using configuration file", "path", v.ConfigFileUsed())
	}

	dataDir := v.GetString("data_dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: create data dir %q: %w", dataDir, err)
	}

	return &Config{
		ProxyBaseURL: v.GetString("proxy.base_url"),
		ProxyKey:     v.GetString("proxy.key"),
		DataDir:      dataDir,
		Debug:        v.GetBool("debug"),
	}, nil
}

func firstOr(dirs []string, fallback string) string {
	if len(dirs) == 0 || dirs[0] == "" {
		return fallback
	}
	return dirs[0]
}

// StorePath returns the sqlite database path under DataDir.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "voxread.db")
}
