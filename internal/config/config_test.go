package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  mode: debug
database:
  driver: sqlite
  path: test.db
jwt:
  secret: short
  expire_hours: 2
storage:
  type: minio
quiz:
  strict_capacity: true
  ticket_ttl_hours: 3
ai:
  api_keys: ["a", " ", "b"]
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "test.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.JWT.ExpireTime != 2*time.Hour {
		t.Errorf("jwt expire = %v", cfg.JWT.ExpireTime)
	}
	if !cfg.Quiz.StrictCapacity || cfg.Quiz.TicketTTL != 3*time.Hour {
		t.Errorf("quiz = %+v", cfg.Quiz)
	}
	if !reflect.DeepEqual(cfg.AI.APIKeys, []string{"a", "b"}) {
		t.Errorf("api keys = %q", cfg.AI.APIKeys)
	}
	if cfg.Quiz.DefaultQuestionsToShow != 20 || cfg.Quiz.DefaultMaxStudents != 100 || cfg.Quiz.DefaultTimeLimit != 20 {
		t.Errorf("defaults not applied: %+v", cfg.Quiz)
	}
	if cfg.Server.Port != "8080" || cfg.AI.MaxSourceChars != 4000 {
		t.Errorf("server/ai defaults not applied: %+v %+v", cfg.Server, cfg.AI)
	}
}

func TestCleanKeys(t *testing.T) {
	got := cleanKeys([]string{"k1, k2", "", "  k3 "})
	want := []string{"k1", "k2", "k3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cleanKeys = %q, want %q", got, want)
	}
}
