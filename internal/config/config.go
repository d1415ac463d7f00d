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
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		TTL string `yaml:"ttl"`
		// DefaultTimeLimit in seconds, for quizzes that do not carry their own.
		DefaultTimeLimit int      `yaml:"default_time_limit"`
		TickInterval     string   `yaml:"tick_interval"`
		DailyTopics      []string `yaml:"daily_topics"`
	} `yaml:"quiz"`
	LLM struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`
	Progression struct {
		// Store is one of memory, redis, postgres or sqlite; empty picks the
		// most durable configured backend.
		Store  string `yaml:"store"`
		Buffer int    `yaml:"buffer"`
	} `yaml:"progression"`
}

// Load reads YAML config from path. A missing file yields the zero config,
// which runs the service fully in memory. The LLM key may come from
// OPENAI_API_KEY so it stays out of the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
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
