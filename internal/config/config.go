package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Game struct {
		Environment   string `yaml:"environment"`   // "production" enables the strict play limit
		MaxAttempts   int    `yaml:"maxAttempts"`   // 0 = environment default
		SessionTTL    string `yaml:"sessionTTL"`    // default 24h
		ImageCacheTTL string `yaml:"imageCacheTTL"` // default 10m
	} `yaml:"game"`
}

// Production reports whether the strict play-limit policy applies.
func (c Config) Production() bool {
	return c.Game.Environment == "production"
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
