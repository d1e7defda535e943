package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"modelkombat/internal/utils"
)

const (
	BackendLocal   = "local"
	BackendAccount = "account"

	// DefaultBaseURL is the OpenRouter API root
	DefaultBaseURL    = "https://openrouter.ai/api/v1"
	DefaultCatalogTTL = 5 * time.Minute
)

// Settings is the application configuration loaded from YAML and ENV.
// It is distinct from the per-user model configuration held by State.
type Settings struct {
	Backend string         `mapstructure:"backend"` // local or account
	DataDir string         `mapstructure:"data_dir"`
	API     APISettings    `mapstructure:"api"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Server  ServerSettings `mapstructure:"server"`
}

// APISettings configures the remote inference service client
type APISettings struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CatalogTTL time.Duration `mapstructure:"catalog_ttl"`
}

// LoggingConfig controls logger behaviour
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// ServerSettings describes the HTTP API
type ServerSettings struct {
	Addr           string `mapstructure:"addr"`
	JWTSecret      string `mapstructure:"jwt_secret"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// LoadSettings reads settings from path, or from modelkombat.yaml in the
// working directory or the default data dir when path is empty. A missing
// default file is not an error. Environment variables override file values
// (prefix: MODELKOMBAT_, dots replaced with underscores).
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MODELKOMBAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("modelkombat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir())
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DefaultDataDir is $XDG_CONFIG_HOME/modelkombat, falling back to ~/.config
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "modelkombat")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".modelkombat")
	}
	return filepath.Join(home, ".config", "modelkombat")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendLocal)
	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", DefaultTimeout)
	v.SetDefault("api.catalog_ttl", DefaultCatalogTTL)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.metrics_enabled", true)
}

// Validate performs basic sanity checks on setting values
func (s *Settings) Validate() error {
	switch s.Backend {
	case BackendLocal, BackendAccount:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendLocal, BackendAccount, s.Backend)
	}
	if strings.TrimSpace(s.DataDir) == "" {
		return errors.New("data_dir must not be empty")
	}
	if !utils.ValidateURL(s.API.BaseURL) {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", s.API.BaseURL)
	}
	if s.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", s.API.Timeout)
	}
	if s.API.CatalogTTL < 0 {
		return fmt.Errorf("api.catalog_ttl must not be negative, got %s", s.API.CatalogTTL)
	}
	return nil
}

// StorePath is the local key-value file
func (s *Settings) StorePath() string {
	return filepath.Join(s.DataDir, "store.json")
}

// DocumentsDir is the document store directory
func (s *Settings) DocumentsDir() string {
	return filepath.Join(s.DataDir, "documents")
}
