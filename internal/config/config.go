// Package config loads melora's configuration.
//
// Values are layered, later layers winning:
//
//  1. struct defaults (defaultConfig)
//  2. a YAML file: $CONFIG_PATH, else the first of DefaultConfigPaths that exists
//  3. environment variables prefixed MELORA_ (MELORA_CATALOG_PATH -> catalog.path)
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "MELORA_"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"melora.yaml",
	"melora.yml",
	"/etc/melora/melora.yaml",
}

// Catalog sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// ErrInvalid is returned when the loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Database  DatabaseConfig  `koanf:"database"`
	Model     ModelConfig     `koanf:"model"`
	Recommend RecommendConfig `koanf:"recommend"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// RateLimit is requests per minute per client IP on /api. Zero disables it.
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`
}

// CatalogConfig selects where tracks are loaded from.
type CatalogConfig struct {
	Source string `koanf:"source" validate:"oneof=file postgres"`
	Path   string `koanf:"path" validate:"required_if=Source file"`
}

// DatabaseConfig configures the PostgreSQL catalog store.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// ModelConfig locates the optional mood classifier artifacts.
type ModelConfig struct {
	Path        string `koanf:"path"`
	EncoderPath string `koanf:"encoder_path"`
	Clusters    int    `koanf:"clusters" validate:"min=1"`
}

// RecommendConfig tunes sampling.
type RecommendConfig struct {
	MoodPool   int `koanf:"mood_pool" validate:"min=1"`
	GenrePool  int `koanf:"genre_pool" validate:"min=1"`
	MaxResults int `koanf:"max_results" validate:"min=1"`
}

// SpotifyConfig holds client credentials for track lookups. Lookups are
// disabled when either value is empty.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// LookupEnabled reports whether Spotify credentials are configured.
func (c SpotifyConfig) LookupEnabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       120,
		},
		Catalog: CatalogConfig{
			Source: SourceFile,
			Path:   "data/music/dataset.csv",
		},
		Model: ModelConfig{
			Path:        "data/music/model.json",
			EncoderPath: "data/music/labels.json",
			Clusters:    8,
		},
		Recommend: RecommendConfig{
			MoodPool:   100,
			GenrePool:  50,
			MaxResults: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment. An explicit path takes precedence over CONFIG_PATH and the
// default search paths; it must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	// Comma-separated lists arrive from the environment as a single string.
	if raw, ok := k.Get("server.cors_origins").(string); ok {
		if err := k.Set("server.cors_origins", splitList(raw)); err != nil {
			return nil, fmt.Errorf("parsing server.cors_origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and cross-section requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.Catalog.Source == SourcePostgres && c.Database.URL == "" {
		return fmt.Errorf("%w: database.url is required when catalog.source is postgres", ErrInvalid)
	}

	return nil
}

// envTransform maps MELORA_SECTION_FIELD_NAME to section.field_name.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok || field == "" {
		return ""
	}
	return section + "." + field
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
