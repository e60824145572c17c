// Package config assembles process configuration from environment
// variables with defaults, optionally overlaid by a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/bluffparty/bluffparty/internal/game"
)

// Config holds server settings.
type Config struct {
	ListenAddr          string      `yaml:"listen_addr"`
	AllowedOrigins      []string    `yaml:"allowed_origins"`
	DefaultQuestionsCSV string      `yaml:"default_questions_csv"`
	Timers              game.Timers `yaml:"timers"`
	LogLevel            string      `yaml:"log_level"`
}

// FromEnv reads SERVER_* environment variables with defaults.
func FromEnv() Config {
	return Config{
		ListenAddr:          getEnv("SERVER_ADDR", ":8080"),
		AllowedOrigins:      []string{getEnv("SERVER_ALLOWED_ORIGIN", "*")},
		DefaultQuestionsCSV: getEnv("SERVER_QUESTIONS_CSV", "data/default_questions.csv"),
		Timers: game.Timers{
			SubmissionSec:     getEnvAsInt("SERVER_SUBMISSION_TIMEOUT", 60),
			VotingSec:         getEnvAsInt("SERVER_VOTING_TIMEOUT", 30),
			ResultsDisplaySec: getEnvAsInt("SERVER_RESULTS_DISPLAY", 10),
		},
		LogLevel: getEnv("SERVER_LOG_LEVEL", "info"),
	}
}

// Load returns the environment configuration overlaid with values from
// the YAML file at path, when path is non-empty and the file exists.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
