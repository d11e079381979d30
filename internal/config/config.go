package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. QUIZ_POSTGRES_URL or QUIZ_GAME_FINISH_GRACE.
const EnvPrefix = "QUIZ"

type Config struct {
	Server struct {
		Port        string   `yaml:"port" split_words:"true"`
		CORSOrigins []string `yaml:"corsOrigins" split_words:"true"`
	} `yaml:"server" envconfig:"SERVER"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret" split_words:"true"`
		TokenTTL  string `yaml:"tokenTTL" split_words:"true"`
	} `yaml:"auth" envconfig:"AUTH"`
	Redis struct {
		Addr     string `yaml:"addr" split_words:"true"`
		Password string `yaml:"password" split_words:"true"`
		DB       int    `yaml:"db" split_words:"true"`
	} `yaml:"redis" envconfig:"REDIS"`
	Postgres struct {
		URL          string `yaml:"url" split_words:"true"`
		MaxTxRetries int    `yaml:"maxTxRetries" split_words:"true"`
	} `yaml:"postgres" envconfig:"POSTGRES"`
	Quiz struct {
		QuestionsTTL string `yaml:"questionsTTL" split_words:"true"`
		FinishGrace  string `yaml:"finishGrace" split_words:"true"`
		TrimAnswers  bool   `yaml:"trimAnswers" split_words:"true"`
		IgnoreCase   bool   `yaml:"ignoreCase" split_words:"true"`
		SeedFile     string `yaml:"seedFile" split_words:"true"`
	} `yaml:"quiz" envconfig:"GAME"`
	Events struct {
		AMQPURL  string `yaml:"amqpURL" split_words:"true"`
		Exchange string `yaml:"exchange" split_words:"true"`
	} `yaml:"events" envconfig:"EVENTS"`
	Log struct {
		Level  string `yaml:"level" split_words:"true"`
		Format string `yaml:"format" split_words:"true"`
	} `yaml:"log" envconfig:"LOG"`
}

// Load reads YAML config from path and applies QUIZ_* environment overrides.
// A missing file is not an error so the service can run from the environment alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, err
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
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
