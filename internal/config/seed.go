package config

import (
	"fmt"
	"os"

	"pair-quiz-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// Seed is the initial question bank and user list loaded by the seed command
// and by the in-memory server mode.
type Seed struct {
	Questions []domain.Question `yaml:"questions"`
	Users     []domain.Player   `yaml:"users"`
}

func LoadSeed(path string) (Seed, error) {
	var seed Seed
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, err
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i, q := range seed.Questions {
		if q.ID == "" || q.Body == "" || len(q.CorrectAnswers) == 0 {
			return seed, fmt.Errorf("seed question %d: id, body and correctAnswers are required", i)
		}
	}
	for i, u := range seed.Users {
		if u.ID == "" || u.Login == "" {
			return seed, fmt.Errorf("seed user %d: id and login are required", i)
		}
	}
	return seed, nil
}
