package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
server:
  port: "9090"
database:
  driver: sqlite
  path: quiz.db
storage:
  local_path: `+filepath.Join(dir, "uploads")+`
quiz:
  free_limits:
    timed: 3
`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Database.Driver != "sqlite" {
		t.Fatalf("server/database = %+v %+v", cfg.Server, cfg.Database)
	}
	if cfg.Quiz.FreeLimits.Timed != 3 || cfg.Quiz.FreeLimits.Standard != 1 {
		t.Fatalf("free limits = %+v", cfg.Quiz.FreeLimits)
	}
	if cfg.Quiz.TimedDuration != 10*time.Minute || cfg.JWT.ExpireTime != 72*time.Hour {
		t.Fatalf("durations = %v %v", cfg.Quiz.TimedDuration, cfg.JWT.ExpireTime)
	}
	if _, err := os.Stat(filepath.Join(dir, "uploads")); err != nil {
		t.Fatalf("local storage dir should be created: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Mode: "debug"},
			Database: DatabaseConfig{Driver: "mysql"},
			Quiz:     QuizConfig{TimedDuration: time.Minute, SessionIdleTimeout: time.Hour},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	cases := map[string]func(*Config){
		"short secret in release": func(c *Config) { c.Server.Mode = "release"; c.JWT.Secret = "short" },
		"negative limit":          func(c *Config) { c.Quiz.FreeLimits.Practice = -1 },
		"zero timed duration":     func(c *Config) { c.Quiz.TimedDuration = 0 },
		"unknown driver":          func(c *Config) { c.Database.Driver = "postgres" },
		"idle shorter than timer": func(c *Config) { c.Quiz.SessionIdleTimeout = 30 * time.Second },
		"idle equal to timer":     func(c *Config) { c.Quiz.SessionIdleTimeout = c.Quiz.TimedDuration },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	cfg := valid()
	cfg.Server.Mode = "release"
	cfg.JWT.Secret = strings.Repeat("x", 32)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("release with long secret: %v", err)
	}
}
