package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
server:
  port: "9090"
  corsOrigins: ["http://localhost:3000"]
postgres:
  url: postgres://quiz@localhost/quiz
  maxTxRetries: 5
quiz:
  finishGrace: 10s
  trimAnswers: true
  ignoreCase: true
`

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QUIZ_POSTGRES_URL", "postgres://override/quiz")
	t.Setenv("QUIZ_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || len(cfg.Server.CORSOrigins) != 1 {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if cfg.Postgres.URL != "postgres://override/quiz" || cfg.Postgres.MaxTxRetries != 5 {
		t.Fatalf("unexpected postgres section %+v", cfg.Postgres)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("expected secret from env, got %q", cfg.Auth.JWTSecret)
	}
	if !cfg.Quiz.TrimAnswers || !cfg.Quiz.IgnoreCase {
		t.Fatalf("unexpected quiz section %+v", cfg.Quiz)
	}
	if got := TTLDuration(cfg.Quiz.FinishGrace, 0); got != 10*time.Second {
		t.Fatalf("expected 10s grace, got %v", got)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("QUIZ_SERVER_PORT", "7070")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected port from env, got %q", cfg.Server.Port)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	data := `
questions:
  - id: q1
    body: "Capital of France?"
    correctAnswers: ["Paris"]
    published: true
users:
  - id: u1
    login: alice
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if len(seed.Questions) != 1 || !seed.Questions[0].Published || seed.Questions[0].CorrectAnswers[0] != "Paris" {
		t.Fatalf("unexpected questions %+v", seed.Questions)
	}
	if len(seed.Users) != 1 || seed.Users[0].Login != "alice" {
		t.Fatalf("unexpected users %+v", seed.Users)
	}
}

func TestLoadSeedRejectsIncompleteQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte("questions:\n  - id: q1\n"), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := LoadSeed(path); err == nil {
		t.Fatalf("expected error for question without body")
	}
}

func TestShippedSeedIsValid(t *testing.T) {
	seed, err := LoadSeed(filepath.Join("..", "..", "config", "seed.yaml"))
	if err != nil {
		t.Fatalf("load shipped seed: %v", err)
	}
	published := 0
	for _, q := range seed.Questions {
		if q.Published {
			published++
		}
	}
	if published < 5 {
		t.Fatalf("shipped seed needs at least 5 published questions, has %d", published)
	}
}
