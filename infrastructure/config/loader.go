package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from, lowest priority first: defaults, the
// YAML file named by CONFIG_FILE (or config/base.yaml then
// config/<environment>.yaml), and environment variables. Variables missing
// from the environment are first filled from ENV_FILE (default .env).
func Load() (*Config, error) {
	if err := LoadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}
	env := Environment(strings.ToLower(getEnv("ENVIRONMENT", string(Development))))
	return NewLoader(getEnv("CONFIG_DIR", "config"), env).WithFile(os.Getenv("CONFIG_FILE")).Load()
}

// Loader loads configuration from files and the environment
type Loader struct {
	basePath    string
	environment Environment
	file        string
}

// NewLoader creates a loader that looks for files under basePath
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{basePath: basePath, environment: env}
}

// WithFile pins a single configuration file; it must exist
func (l *Loader) WithFile(path string) *Loader {
	l.file = path
	return l
}

// Files returns the files the loader reads, in order
func (l *Loader) Files() []string {
	if l.file != "" {
		return []string{l.file}
	}
	return []string{
		filepath.Join(l.basePath, "base.yaml"),
		filepath.Join(l.basePath, string(l.environment)+".yaml"),
	}
}

// Load applies every source and validates the result
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	cfg.Environment = l.environment
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	for _, path := range l.Files() {
		err := loadFile(path, cfg)
		switch {
		case err == nil:
			cfg.LoadedFrom = append(cfg.LoadedFrom, path)
		case errors.Is(err, os.ErrNotExist) && l.file == "":
			// optional layer
		default:
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile overlays a YAML file on cfg; absent keys keep their values
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// LoadLinking reads only the linking section of a file on top of base
func LoadLinking(path string, base LinkingConfig) (LinkingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}

	doc := struct {
		Linking LinkingConfig `yaml:"linking"`
	}{Linking: base}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return base, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := doc.Linking.Validate(); err != nil {
		return base, err
	}
	return doc.Linking, nil
}

// ConfigFile returns the highest priority file that was applied, or "" when
// only defaults and the environment were used
func (c *Config) ConfigFile() string {
	for i := len(c.LoadedFrom) - 1; i >= 0; i-- {
		switch c.LoadedFrom[i] {
		case "defaults", "environment":
			continue
		}
		return c.LoadedFrom[i]
	}
	return ""
}

// LoadDotEnv sets the variables of a dotenv file that are not already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return nil
}
