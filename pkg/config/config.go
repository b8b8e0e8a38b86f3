package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	xdgAppName = "hunt"
	configFile = "config.json"

	DefaultDatabaseName = "hunt.db"
	DefaultEditor       = "vim"
	DefaultCalendar     = "Tasks"
)

// Config is the resolved configuration: the JSON file, overridden by the environment.
type Config struct {
	Directory    string `json:"directory,omitempty" yaml:"directory"`
	DatabaseName string `json:"database_name,omitempty" yaml:"database_name"`
	Editor       string `json:"editor,omitempty" yaml:"editor"`
	Silent       bool   `json:"silent,omitempty" yaml:"silent"`
	Debug        bool   `json:"debug,omitempty" yaml:"debug"`
	FocusPolicy  string `json:"focus_policy,omitempty" yaml:"focus_policy"`
	IgnoreCase   bool   `json:"ignore_case,omitempty" yaml:"ignore_case"`
	Calendar     string `json:"calendar" yaml:"calendar"`
}

// envKeys maps config keys to the environment variables that override them.
var envKeys = map[string]string{
	"directory":     "HUNT_DIRECTORY",
	"database_name": "HUNT_DATABASE_NAME",
	"editor":        "EDITOR",
	"silent":        "HUNT_SILENT",
	"debug":         "DEBUG",
	"focus_policy":  "HUNT_FOCUS_POLICY",
	"ignore_case":   "HUNT_IGNORE_CASE",
	"calendar":      "HUNT_CALENDAR",
}

func GetConfigPath() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName, configFile), nil
}

// DefaultDirectory is where the database lives unless HUNT_DIRECTORY says otherwise.
func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "."+xdgAppName), nil
}

// Load reads the config file, if any, and applies environment overrides.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	dir, err := DefaultDirectory()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("directory", dir)
	v.SetDefault("database_name", DefaultDatabaseName)
	v.SetDefault("editor", DefaultEditor)
	v.SetDefault("silent", false)
	v.SetDefault("debug", false)
	v.SetDefault("focus_policy", "autostop")
	v.SetDefault("ignore_case", false)
	v.SetDefault("calendar", DefaultCalendar)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg := &Config{
		Directory:    expandHome(v.GetString("directory")),
		DatabaseName: v.GetString("database_name"),
		Editor:       strings.TrimSpace(v.GetString("editor")),
		FocusPolicy:  v.GetString("focus_policy"),
		Calendar:     v.GetString("calendar"),
	}
	if cfg.Silent, err = parseBool("silent", v.GetString("silent")); err != nil {
		return nil, err
	}
	if cfg.Debug, err = parseBool("debug", v.GetString("debug")); err != nil {
		return nil, err
	}
	if cfg.IgnoreCase, err = parseBool("ignore_case", v.GetString("ignore_case")); err != nil {
		return nil, err
	}

	if cfg.Directory == "" {
		cfg.Directory = dir
	}
	if cfg.DatabaseName == "" {
		cfg.DatabaseName = DefaultDatabaseName
	}
	if cfg.Editor == "" {
		cfg.Editor = DefaultEditor
	}
	if cfg.Calendar == "" {
		cfg.Calendar = DefaultCalendar
	}
	return cfg, nil
}

// DatabasePath is the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Directory, c.DatabaseName)
}

// ReadFile returns the config file contents without defaults or environment overrides.
func ReadFile() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

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

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}

// parseBool accepts true/1/yes/y and false/0/no/n, case-insensitively.
func parseBool(key, s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "", "false", "0", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q for %s", s, key)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
