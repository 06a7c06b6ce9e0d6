package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != ":3009" {
		t.Errorf("Listen = %q, want :3009", cfg.Listen)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("Session.Backend = %q, want memory", cfg.Session.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
listen: ":8080"
formPath: forms/apply.json
session:
  backend: redis
  redisAddress: localhost:6379
  ttl: 1h
notify:
  templateId: tmpl-1
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Session.Backend != "redis" || cfg.Session.RedisAddress != "localhost:6379" {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("TTL = %v", cfg.Session.TTL)
	}
	if cfg.Notify.TemplateID != "tmpl-1" {
		t.Errorf("TemplateID = %q", cfg.Notify.TemplateID)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARBOR_LISTEN", ":9999")
	t.Setenv("ARBOR_REDIS_ADDRESS", "redis:6379")
	t.Setenv("ARBOR_SESSION_KEY", "c2VjcmV0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != ":9999" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Session.Backend != "redis" {
		t.Errorf("Backend = %q, want redis", cfg.Session.Backend)
	}
	if cfg.Session.EncryptionKey != "c2VjcmV0" {
		t.Errorf("EncryptionKey = %q", cfg.Session.EncryptionKey)
	}
}
