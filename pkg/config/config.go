// Package config loads the engine configuration from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/dukex/autopilot/pkg/notify"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid engine configuration")

// EngineConfig is the runtime configuration shared by the worker commands. Command flags
// override values read from the file.
type EngineConfig struct {
	DatabaseURL  string `yaml:"database_url"  validate:"required"`
	EventBus     string `yaml:"event_bus"     validate:"oneof=gochannel kafka"`
	KafkaBrokers string `yaml:"kafka_brokers" validate:"required_if=EventBus kafka"`

	RedisURL   string `yaml:"redis_url"   validate:"omitempty,url"`
	EventQueue string `yaml:"event_queue" validate:"required"`

	ChatServiceURL       string            `yaml:"chat_service_url"       validate:"omitempty,url"`
	MailServiceURL       string            `yaml:"mail_service_url"       validate:"omitempty,url"`
	InternalServiceToken string            `yaml:"internal_service_token"`
	SMTP                 notify.SMTPConfig `yaml:"smtp"`

	MaxChainDepth       int `yaml:"max_chain_depth"      validate:"min=0,max=50"`
	DispatchConcurrency int `yaml:"dispatch_concurrency" validate:"min=1,max=256"`

	LogLevel  string `yaml:"log_level"  validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
	Port      int    `yaml:"port"       validate:"min=1,max=65535"`
	Tracing   bool   `yaml:"tracing"`
}

func Default() EngineConfig {
	return EngineConfig{
		DatabaseURL:         "memory://",
		EventBus:            "gochannel",
		EventQueue:          "autopilot:triggers",
		MaxChainDepth:       5,
		DispatchConcurrency: 4,
		LogLevel:            "info",
		LogFormat:           "text",
		Port:                9091,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (EngineConfig, error) {
	config := Default()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return config, nil
}

func (c EngineConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// SMTPEnabled reports whether enough SMTP settings are present to send mail directly.
func (c EngineConfig) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}
