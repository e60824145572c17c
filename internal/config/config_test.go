package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("allowed origins = %v", cfg.AllowedOrigins)
	}
	if cfg.DefaultQuestionsCSV != "data/default_questions.csv" {
		t.Fatalf("questions csv = %q", cfg.DefaultQuestionsCSV)
	}
	if cfg.Timers.SubmissionSec != 60 || cfg.Timers.VotingSec != 30 || cfg.Timers.ResultsDisplaySec != 10 {
		t.Fatalf("timers = %+v", cfg.Timers)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("SERVER_SUBMISSION_TIMEOUT", "15")
	t.Setenv("SERVER_VOTING_TIMEOUT", "not-a-number")

	cfg := FromEnv()

	if cfg.ListenAddr != ":9999" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Timers.SubmissionSec != 15 {
		t.Fatalf("submission timeout = %d", cfg.Timers.SubmissionSec)
	}
	if cfg.Timers.VotingSec != 30 {
		t.Fatalf("unparseable value should keep the default, got %d", cfg.Timers.VotingSec)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9000")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("listen_addr: \":7070\"\ntimers:\n  submission_timeout: 5\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != ":7070" {
		t.Fatalf("file value should win over env, got %q", cfg.ListenAddr)
	}
	if cfg.Timers.SubmissionSec != 5 {
		t.Fatalf("submission timeout = %d", cfg.Timers.SubmissionSec)
	}
	// Keys absent from the file keep their environment values.
	if cfg.Timers.VotingSec != 30 {
		t.Fatalf("voting timeout = %d", cfg.Timers.VotingSec)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
