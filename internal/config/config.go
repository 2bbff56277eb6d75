// Package config loads schemakit settings from .schemakit.yaml, the
// environment and .env files.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
)

// AppFs is the filesystem configuration files are read from.
var AppFs = afero.NewOsFs()

const (
	// FileName is the config file name without extension.
	FileName = ".schemakit"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SCHEMAKIT"
)

// ErrNoDatabaseURL is returned when a command needs a connection that was
// not configured.
var ErrNoDatabaseURL = errors.New("no database url configured")

// Config holds the application configuration
type Config struct {
	SchemaDir string `mapstructure:"schema_dir"`

	Dialect     string `mapstructure:"dialect"`
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`

	TargetDialect string `mapstructure:"target_dialect"`
	TargetDriver  string `mapstructure:"target_driver"`
	TargetURL     string `mapstructure:"target_url"`

	MaxConnections int `mapstructure:"max_connections"`
	ConnectTimeout int `mapstructure:"connect_timeout"`

	// Extensions restricts assembly to these extension identifiers;
	// empty means every extension.
	Extensions []string `mapstructure:"extensions"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("schema_dir", "schema")
	v.SetDefault("connect_timeout", 10)
	v.SetDefault("max_connections", 0)
	return v
}

// Load reads the configuration. An explicit file must exist; otherwise
// .schemakit.yaml is searched in the working directory, $HOME and
// $HOME/.config/schemakit and may be absent.
func Load(file string) (*Config, error) {
	v := newViper()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "schemakit"))

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	loadDotEnv()

	cfg := &Config{File: v.ConfigFileUsed()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// Environment overrides are not seen by Unmarshal for keys that have
	// neither a default nor a value in the file.
	for key, dst := range map[string]*string{
		"dialect":        &cfg.Dialect,
		"driver":         &cfg.Driver,
		"database_url":   &cfg.DatabaseURL,
		"target_dialect": &cfg.TargetDialect,
		"target_driver":  &cfg.TargetDriver,
		"target_url":     &cfg.TargetURL,
	} {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	if exts := v.GetStringSlice("extensions"); len(exts) > 0 {
		cfg.Extensions = splitList(exts)
	}
	return cfg, nil
}

// loadDotEnv loads .env and then .env.local, which takes precedence.
// Failures are ignored; both files are optional.
func loadDotEnv() {
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Filter parses Extensions.
func (c *Config) Filter() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(c.Extensions))
	for _, s := range c.Extensions {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid extension %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Source returns the connection settings of the primary database.
func (c *Config) Source() (database.Config, error) {
	if c.DatabaseURL == "" {
		return database.Config{}, fmt.Errorf("%w: set database_url or %s_DATABASE_URL", ErrNoDatabaseURL, EnvPrefix)
	}
	return database.Config{
		Dialect:        c.Dialect,
		Driver:         c.Driver,
		URL:            c.DatabaseURL,
		MaxConnections: c.MaxConnections,
		ConnectTimeout: c.ConnectTimeout,
	}, nil
}

// Target returns the connection settings of the clone target.
func (c *Config) Target() (database.Config, error) {
	if c.TargetURL == "" {
		return database.Config{}, fmt.Errorf("%w: set target_url or %s_TARGET_URL", ErrNoDatabaseURL, EnvPrefix)
	}
	return database.Config{
		Dialect:        c.TargetDialect,
		Driver:         c.TargetDriver,
		URL:            c.TargetURL,
		MaxConnections: c.MaxConnections,
		ConnectTimeout: c.ConnectTimeout,
	}, nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("yaml")
	v.Set("schema_dir", cfg.SchemaDir)
	for key, value := range map[string]string{
		"dialect":        cfg.Dialect,
		"driver":         cfg.Driver,
		"database_url":   cfg.DatabaseURL,
		"target_dialect": cfg.TargetDialect,
		"target_driver":  cfg.TargetDriver,
		"target_url":     cfg.TargetURL,
	} {
		if value != "" {
			v.Set(key, value)
		}
	}
	if cfg.MaxConnections > 0 {
		v.Set("max_connections", cfg.MaxConnections)
	}
	v.Set("connect_timeout", cfg.ConnectTimeout)
	if len(cfg.Extensions) > 0 {
		v.Set("extensions", cfg.Extensions)
	}

	if err := AppFs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}
