package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "taskquest"
	yamlFile   = "config.yaml"
	tomlFile   = "config.toml"
	dbFile     = "taskquest.db"

	DefaultCalendar = "Tasks"
	DefaultAddr     = "127.0.0.1:8080"
)

type Database struct {
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

type HTTP struct {
	Addr string `yaml:"addr" toml:"addr"`
}

type Log struct {
	Level       string `yaml:"level" toml:"level"`
	Development bool   `yaml:"development" toml:"development"`
}

type Config struct {
	Calendar string   `yaml:"calendar" toml:"calendar"`
	Player   string   `yaml:"player" toml:"player"`
	Database Database `yaml:"database" toml:"database"`
	HTTP     HTTP     `yaml:"http" toml:"http"`
	Log      Log      `yaml:"log" toml:"log"`
}

// Dir is the directory holding the config file, OAuth token, calendar index
// and the default SQLite database. TASKQUEST_CONFIG_DIR overrides it.
func Dir() (string, error) {
	if v := os.Getenv("TASKQUEST_CONFIG_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, yamlFile), nil
}

// Defaults keeps the database next to the config file.
func Defaults(dir string) *Config {
	return &Config{
		Calendar: DefaultCalendar,
		Database: Database{Driver: "sqlite", DSN: filepath.Join(dir, dbFile)},
		HTTP:     HTTP{Addr: DefaultAddr},
		Log:      Log{Level: "info"},
	}
}

// Load reads the configuration in priority order: defaults, config file
// (config.yaml, else config.toml), then TASKQUEST_* environment variables.
// Command-line flags are applied by the caller.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

func LoadFrom(dir string) (*Config, error) {
	cfg := Defaults(dir)
	if err := loadFile(cfg, dir); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	if cfg.Calendar == "" {
		cfg.Calendar = DefaultCalendar
	}
	return cfg, nil
}

func loadFile(cfg *Config, dir string) error {
	path := filepath.Join(dir, yamlFile)
	b, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	path = filepath.Join(dir, tomlFile)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	set := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	set("TASKQUEST_DB_DRIVER", &cfg.Database.Driver)
	set("TASKQUEST_DSN", &cfg.Database.DSN)
	set("TASKQUEST_HTTP_ADDR", &cfg.HTTP.Addr)
	set("TASKQUEST_LOG_LEVEL", &cfg.Log.Level)
	set("TASKQUEST_PLAYER", &cfg.Player)
	set("TASKQUEST_CALENDAR", &cfg.Calendar)
}

// Save writes cfg as YAML to the config directory.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
