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
		Port string `yaml:"port"`
	} `yaml:"server"`
	API struct {
		BaseURL  string `yaml:"base_url"`
		Token    string `yaml:"token"`
		Timeout  string `yaml:"timeout"`
		Language string `yaml:"language"`
	} `yaml:"api"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Activity struct {
		TTL string `yaml:"ttl"`
	} `yaml:"activity"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadOptional is Load, except a missing file yields defaults plus env.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Config{}
		applyEnv(&cfg)
		return cfg, nil
	}
	return cfg, err
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PLAYER_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PLAYER_API_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if cfg.API.Language == "" {
		cfg.API.Language = "en"
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
