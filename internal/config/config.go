package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		BasePath    string   `yaml:"base_path"`
		Mode        string   `yaml:"mode"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Log   LogConfig `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Grading struct {
		// TextPolicy is "exact" (auto-grade TEXT answers) or "review" (leave them for manual review).
		TextPolicy string `yaml:"text_policy"`
	} `yaml:"grading"`
	Admin struct {
		// JWTSecret enables bearer-token auth on admin routes when set.
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"admin"`
	RateLimit struct {
		SubmitPerMinute int `yaml:"submit_per_minute"`
	} `yaml:"rate_limit"`
	Tracing struct {
		Enabled           bool   `yaml:"enabled"`
		CollectorEndpoint string `yaml:"collector_endpoint"`
	} `yaml:"tracing"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File enables a rotated JSON log file in addition to stdout.
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.BasePath = "/api"
	cfg.Server.Mode = "release"
	cfg.Log.Level = "info"
	cfg.Grading.TextPolicy = "exact"
	cfg.Admin.TokenTTL = "24h"
	cfg.RateLimit.SubmitPerMinute = 30
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not
// an error. Environment variables override file values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		c.Admin.JWTSecret = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
