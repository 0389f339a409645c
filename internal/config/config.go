package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Auth struct {
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
	} `yaml:"auth"`
	Token struct {
		Secret         string `yaml:"secret"`
		Grace          string `yaml:"grace"`
		PracticeWindow string `yaml:"practiceWindow"`
	} `yaml:"token"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		// Retention bounds how long daily activity counters are kept.
		Retention string `yaml:"retention"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Rabbit struct {
		URL string `yaml:"url"`
	} `yaml:"rabbit"`
	Attempts struct {
		HistoryLimit int `yaml:"historyLimit"`
	} `yaml:"attempts"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`
	Client struct {
		BaseURL   string `yaml:"baseURL"`
		StorePath string `yaml:"storePath"`
	} `yaml:"client"`
}

// Load reads YAML config from path. A missing file yields defaults so the
// service can run from environment variables alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"TOKEN_SECRET": &c.Token.Secret,
		"AUTH_SECRET":  &c.Auth.Secret,
		"REDIS_ADDR":   &c.Redis.Addr,
		"POSTGRES_URL": &c.Postgres.URL,
		"RABBIT_URL":   &c.Rabbit.URL,
		"QUIZ_API_URL": &c.Client.BaseURL,
	}
	for env, field := range overrides {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.Attempts.HistoryLimit <= 0 {
		c.Attempts.HistoryLimit = 10
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = "http://localhost:8080"
	}
	if c.Client.StorePath == "" {
		c.Client.StorePath = "quiz-local.db"
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
