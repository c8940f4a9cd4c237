package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the trading server. Values load
// from YAML, then environment variables override the deploy-sensitive ones.
type Config struct {
	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`

	Stream struct {
		// RingSize is the execution stream buffer capacity, a power of two.
		RingSize int64 `yaml:"ring_size"`
	} `yaml:"stream"`

	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Listen = ":8080"
	cfg.Stream.RingSize = 1 << 16
	cfg.Kafka.Topic = "executions"
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads a YAML config file, applies environment overrides, and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server listen address is required")
	}
	if c.Stream.RingSize <= 0 || c.Stream.RingSize&(c.Stream.RingSize-1) != 0 {
		return fmt.Errorf("stream ring size must be a power of 2, got %d", c.Stream.RingSize)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka is enabled but no brokers are configured")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka is enabled but no topic is configured")
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

func overrideWithEnv(cfg *Config) {
	if listen := os.Getenv("MATCHING_LISTEN"); listen != "" {
		cfg.Server.Listen = listen
	}
	if brokers := os.Getenv("MATCHING_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
		cfg.Kafka.Enabled = true
	}
	if topic := os.Getenv("MATCHING_KAFKA_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}
	if level := os.Getenv("MATCHING_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
