package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Events   EventsConfig   `yaml:"events"`
	Scorer   ScorerConfig   `yaml:"scorer"`
	Routing  RoutingConfig  `yaml:"routing"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	// Driver selects the store implementation: "postgres" or "sqlite".
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
}

type EventsConfig struct {
	URL string `yaml:"url"`
}

type ScorerConfig struct {
	// Backend selects the scorer: "service", "ollama", or "heuristic".
	Backend   string `yaml:"backend"`
	URL       string `yaml:"url"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type RoutingConfig struct {
	TickIntervalMs     int `yaml:"tick_interval_ms"`
	SLACheckIntervalMs int `yaml:"sla_check_interval_ms"`

	// Complexity thresholds on the 1.0-5.0 scale.
	JuniorMax float64 `yaml:"junior_max"`
	MidMax    float64 `yaml:"mid_max"`

	MaxAttempts  int  `yaml:"max_attempts"`
	AutoEscalate bool `yaml:"auto_escalate"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Routing.TickIntervalMs) * time.Millisecond
}

func (c *Config) SLACheckInterval() time.Duration {
	return time.Duration(c.Routing.SLACheckIntervalMs) * time.Millisecond
}

func (c *Config) ScorerTimeout() time.Duration {
	return time.Duration(c.Scorer.TimeoutMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "intelliroute.db",
		},
		Events: EventsConfig{
			URL: "nats://localhost:4222",
		},
		Scorer: ScorerConfig{
			Backend:   "heuristic",
			URL:       "http://localhost:8000",
			Model:     "llama3.2",
			TimeoutMs: 5000,
		},
		Routing: RoutingConfig{
			TickIntervalMs:     5000,
			SLACheckIntervalMs: 60000,
			JuniorMax:          2.0,
			MidMax:             3.5,
			MaxAttempts:        3,
			AutoEscalate:       true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	switch cfg.Scorer.Backend {
	case "service", "ollama", "heuristic":
	default:
		return fmt.Errorf("unknown scorer backend %q", cfg.Scorer.Backend)
	}
	if cfg.Routing.JuniorMax > cfg.Routing.MidMax {
		return fmt.Errorf("junior_max %.2f exceeds mid_max %.2f", cfg.Routing.JuniorMax, cfg.Routing.MidMax)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("INTELLIROUTE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("INTELLIROUTE_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("INTELLIROUTE_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("INTELLIROUTE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("INTELLIROUTE_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("INTELLIROUTE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("INTELLIROUTE_EVENTS_URL"); v != "" {
		cfg.Events.URL = v
	}
	if v := os.Getenv("INTELLIROUTE_SCORER_BACKEND"); v != "" {
		cfg.Scorer.Backend = v
	}
	if v := os.Getenv("INTELLIROUTE_SCORER_URL"); v != "" {
		cfg.Scorer.URL = v
	}
	if v := os.Getenv("INTELLIROUTE_SCORER_MODEL"); v != "" {
		cfg.Scorer.Model = v
	}
	if v := os.Getenv("INTELLIROUTE_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Routing.TickIntervalMs = n
		}
	}
	if v := os.Getenv("INTELLIROUTE_AUTO_ESCALATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Routing.AutoEscalate = b
		}
	}
	if v := os.Getenv("INTELLIROUTE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
