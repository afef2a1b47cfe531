// Package config loads the server configuration from an optional YAML file,
// applies defaults, and validates the result. A missing file is not an
// error; the defaults run a local single-user server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string   `yaml:"addr" validate:"required"`
	Database    string   `yaml:"database" validate:"required"`
	BlobDir     string   `yaml:"blob_dir"`
	DefaultUser string   `yaml:"default_user" validate:"required"`
	LogLevel    string   `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	CORSOrigins []string `yaml:"cors_origins" validate:"min=1"`
}

func Default() Config {
	return Config{
		Addr:        ":8080",
		Database:    "billing.db",
		BlobDir:     "blobs",
		DefaultUser: "local",
		LogLevel:    "info",
		CORSOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
	}
}

// Load reads path over the defaults. Empty path or a missing file yields
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to defaults
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
