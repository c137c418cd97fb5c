package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/claude/overload/internal/progression"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Tailscale   TailscaleConfig   `yaml:"tailscale"`
	Progression ProgressionConfig `yaml:"progression"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// ProgressionConfig holds defaults for exercises created without an explicit
// progression setup (e.g. from an import).
type ProgressionConfig struct {
	DefaultRepMin    int     `yaml:"default_rep_min"`
	DefaultRepMax    int     `yaml:"default_rep_max"`
	DefaultWorkSets  int     `yaml:"default_work_sets"`
	DefaultIncrement float64 `yaml:"default_increment"`
	DefaultUnit      string  `yaml:"default_unit"`
	HistoryWindow    int     `yaml:"history_window"`
}

// Defaults returns the progression setup for a new exercise.
func (p ProgressionConfig) Defaults() progression.Config {
	return progression.Config{
		RepMin:          p.DefaultRepMin,
		RepMax:          p.DefaultRepMax,
		WorkSetsTarget:  p.DefaultWorkSets,
		WeightIncrement: p.DefaultIncrement,
		Unit:            p.DefaultUnit,
	}
}

// DefaultProgression is used for any progression field left unset.
func DefaultProgression() ProgressionConfig {
	return ProgressionConfig{
		DefaultRepMin:    6,
		DefaultRepMax:    10,
		DefaultWorkSets:  3,
		DefaultIncrement: 2.5,
		DefaultUnit:      "kg",
		HistoryWindow:    10,
	}
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix OVERLOAD_ and underscore-separated paths:
//
//	OVERLOAD_SERVER_HOST, OVERLOAD_SERVER_PORT,
//	OVERLOAD_DB_HOST, OVERLOAD_DB_PORT, OVERLOAD_DB_NAME,
//	OVERLOAD_DB_USER, OVERLOAD_DB_PASSWORD, OVERLOAD_DB_SSLMODE,
//	OVERLOAD_AUTH_API_KEY, OVERLOAD_TAILSCALE_ENABLED,
//	OVERLOAD_TAILSCALE_HOSTNAME, OVERLOAD_DEFAULT_UNIT
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OVERLOAD_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("OVERLOAD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OVERLOAD_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("OVERLOAD_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("OVERLOAD_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("OVERLOAD_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("OVERLOAD_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("OVERLOAD_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("OVERLOAD_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("OVERLOAD_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("OVERLOAD_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("OVERLOAD_DEFAULT_UNIT"); v != "" {
		cfg.Progression.DefaultUnit = v
	}
}

func applyDefaults(cfg *Config) {
	def := DefaultProgression()
	p := &cfg.Progression
	if p.DefaultRepMin == 0 {
		p.DefaultRepMin = def.DefaultRepMin
	}
	if p.DefaultRepMax == 0 {
		p.DefaultRepMax = max(def.DefaultRepMax, p.DefaultRepMin)
	}
	if p.DefaultWorkSets == 0 {
		p.DefaultWorkSets = def.DefaultWorkSets
	}
	if p.DefaultIncrement == 0 {
		p.DefaultIncrement = def.DefaultIncrement
	}
	if p.DefaultUnit == "" {
		p.DefaultUnit = def.DefaultUnit
	}
	if p.HistoryWindow == 0 {
		p.HistoryWindow = def.HistoryWindow
	}
	if cfg.Tailscale.Enabled && cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "overload"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	p := c.Progression
	if p.DefaultRepMin < 1 {
		return fmt.Errorf("progression.default_rep_min must be at least 1")
	}
	if p.DefaultRepMax < p.DefaultRepMin {
		return fmt.Errorf("progression.default_rep_max (%d) must be >= default_rep_min (%d)", p.DefaultRepMax, p.DefaultRepMin)
	}
	if p.DefaultWorkSets < 1 {
		return fmt.Errorf("progression.default_work_sets must be at least 1")
	}
	if p.DefaultIncrement <= 0 {
		return fmt.Errorf("progression.default_increment must be positive")
	}
	if p.HistoryWindow < 1 {
		return fmt.Errorf("progression.history_window must be at least 1")
	}
	return nil
}
