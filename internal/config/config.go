package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Provider   ProviderConfig   `yaml:"provider"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	History    HistoryConfig    `yaml:"history"`
	Planner    PlannerConfig    `yaml:"planner"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Simulation SimulationConfig `yaml:"simulation"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type ProviderConfig struct {
	API     string `yaml:"api"` // "openai-completions" or "gemini-generate"
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// CatalogConfig selects where API descriptors are loaded from.
// Source "embedded" uses the built-in catalog; "file" reads a YAML file;
// "db" reads the apis/api_parameters/api_dependencies tables.
type CatalogConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
	Driver string `yaml:"driver"` // "sqlite" or "postgres" when source is "db"
	DSN    string `yaml:"dsn"`
}

type HistoryConfig struct {
	Store     string `yaml:"store"` // "memory" or "redis"
	RedisAddr string `yaml:"redis_addr"`
	Window    int    `yaml:"window"` // messages kept per session for prompt context
}

type PlannerConfig struct {
	Mode string `yaml:"mode"` // "multi" (dependency-ordered) or "single"
}

// ExecutionConfig selects whether plan steps are simulated or sent to a
// real backend.
type ExecutionConfig struct {
	Mode    string `yaml:"mode"` // "simulate" or "live"
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type SimulationConfig struct {
	ScriptsDir string `yaml:"scripts_dir"` // optional Lua responders, one <api-id>.lua per API
}

type SweeperConfig struct {
	Schedule   string        `yaml:"schedule"` // cron spec; empty disables the sweeper
	SessionTTL time.Duration `yaml:"session_ttl"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)}`)

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Provider.BaseURL = expandEnv(cfg.Provider.BaseURL)
	cfg.Provider.APIKey = expandEnv(cfg.Provider.APIKey)
	cfg.Catalog.DSN = expandEnv(cfg.Catalog.DSN)
	cfg.History.RedisAddr = expandEnv(cfg.History.RedisAddr)
	cfg.Execution.BaseURL = expandEnv(cfg.Execution.BaseURL)
	cfg.Execution.Token = expandEnv(cfg.Execution.Token)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8000"
	}
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = "embedded"
	}
	if cfg.History.Store == "" {
		cfg.History.Store = "memory"
	}
	if cfg.History.Window <= 0 {
		cfg.History.Window = 5
	}
	if cfg.Planner.Mode == "" {
		cfg.Planner.Mode = "multi"
	}
	if cfg.Execution.Mode == "" {
		cfg.Execution.Mode = "simulate"
	}
	if cfg.Sweeper.SessionTTL <= 0 {
		cfg.Sweeper.SessionTTL = 30 * time.Minute
	}
}
