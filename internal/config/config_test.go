package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != ":8000" {
		t.Errorf("listen default: got %q", cfg.Server.Listen)
	}
	if cfg.Catalog.Source != "embedded" {
		t.Errorf("catalog source default: got %q", cfg.Catalog.Source)
	}
	if cfg.History.Store != "memory" || cfg.History.Window != 5 {
		t.Errorf("history defaults: got %+v", cfg.History)
	}
	if cfg.Planner.Mode != "multi" {
		t.Errorf("planner mode default: got %q", cfg.Planner.Mode)
	}
	if cfg.Execution.Mode != "simulate" {
		t.Errorf("execution mode default: got %q", cfg.Execution.Mode)
	}
	if cfg.Sweeper.SessionTTL != 30*time.Minute {
		t.Errorf("session ttl default: got %v", cfg.Sweeper.SessionTTL)
	}
}

func TestParseFull(t *testing.T) {
	data := []byte(`
server:
  listen: ":9000"
provider:
  api: gemini-generate
  base_url: https://generativelanguage.googleapis.com/v1beta
  model: gemini-2.0-flash
catalog:
  source: db
  driver: sqlite
  dsn: /tmp/catalog.db
history:
  store: redis
  redis_addr: localhost:6379
  window: 10
planner:
  mode: single
sweeper:
  schedule: "*/5 * * * *"
  session_ttl: 1h
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != ":9000" {
		t.Errorf("listen: got %q", cfg.Server.Listen)
	}
	if cfg.Provider.API != "gemini-generate" || cfg.Provider.Model != "gemini-2.0-flash" {
		t.Errorf("provider: got %+v", cfg.Provider)
	}
	if cfg.Catalog.Source != "db" || cfg.Catalog.Driver != "sqlite" {
		t.Errorf("catalog: got %+v", cfg.Catalog)
	}
	if cfg.History.Window != 10 {
		t.Errorf("window: got %d", cfg.History.Window)
	}
	if cfg.Planner.Mode != "single" {
		t.Errorf("planner mode: got %q", cfg.Planner.Mode)
	}
	if cfg.Sweeper.Schedule != "*/5 * * * *" || cfg.Sweeper.SessionTTL != time.Hour {
		t.Errorf("sweeper: got %+v", cfg.Sweeper)
	}
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("AIVA_TEST_KEY", "sk-secret")

	cfg, err := Parse([]byte("provider:\n  api_key: ${AIVA_TEST_KEY}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "sk-secret" {
		t.Errorf("api key should expand from environment, got %q", cfg.Provider.APIKey)
	}
}

func TestParseUnsetEnvLeftVerbatim(t *testing.T) {
	cfg, err := Parse([]byte("provider:\n  api_key: ${AIVA_DEFINITELY_UNSET}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "${AIVA_DEFINITELY_UNSET}" {
		t.Errorf("unset variable should be left as-is, got %q", cfg.Provider.APIKey)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("server: [not a map")); err == nil {
		t.Error("invalid YAML should be an error")
	}
}
