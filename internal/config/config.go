package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/ballha123/wifak-banque/internal/delegation"
)

// Config holds the service settings read from the environment.
type Config struct {
	Port           string   `env:"PORT" envDefault:"2000"`
	JournalPath    string   `env:"DELEGATION_JOURNAL_PATH" envDefault:"data/delegation.db"`
	DisableJournal bool     `env:"DISABLE_JOURNAL"`
	SilentDB       bool     `env:"SILENT_DB" envDefault:"true"`
	PolicyPath     string   `env:"DELEGATION_POLICY_PATH"`
	RiskPoleRoute  string   `env:"RISK_POLE_BCT_ESCALATION"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string   `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Policy resolves the escalation policy: the YAML file when configured, then
// the RISK_POLE_BCT_ESCALATION override.
func (c Config) Policy() (delegation.Policy, error) {
	policy := delegation.DefaultPolicy()
	if path := strings.TrimSpace(c.PolicyPath); path != "" {
		loaded, err := delegation.LoadPolicy(path)
		if err != nil {
			return delegation.Policy{}, err
		}
		policy = loaded
	}
	if route := strings.TrimSpace(c.RiskPoleRoute); route != "" {
		level, err := delegation.ParseLevel(route)
		if err != nil {
			return delegation.Policy{}, fmt.Errorf("%w: %v", delegation.ErrInvalidPolicy, err)
		}
		policy.RiskPoleBCTEscalation = level
	}
	if err := policy.Validate(); err != nil {
		return delegation.Policy{}, err
	}
	return policy, nil
}

// ConfigureLogging applies the level and formatter to the global logger.
func (c Config) ConfigureLogging() error {
	level, err := logrus.ParseLevel(strings.TrimSpace(c.LogLevel))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(level)
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
