package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_HUB_SECRET", "s3cret")

	yaml := `
node_id: relay-a
jwt:
  secret: ${TEST_HUB_SECRET}
mongo:
  uri: mongodb://localhost:27017
  database: hub_test
redis:
  enabled: true
  addr: localhost:6380
relay:
  pong_wait: 30s
`
	cfg, err := LoadAndValidate(writeTempFile(t, yaml))
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.NodeID != "relay-a" {
		t.Errorf("NodeID = %q, want %q", cfg.NodeID, "relay-a")
	}
	if cfg.JWT.Secret != "s3cret" {
		t.Errorf("JWT.Secret = %q, want %q", cfg.JWT.Secret, "s3cret")
	}
	if cfg.Redis.Addr != "localhost:6380" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Relay.PongWait != 30*time.Second {
		t.Errorf("Relay.PongWait = %v", cfg.Relay.PongWait)
	}
	if cfg.Relay.PingPeriod != 27*time.Second {
		t.Errorf("Relay.PingPeriod = %v, want 27s derived from pong wait", cfg.Relay.PingPeriod)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &AppConfig{NodeID: "n1"}
	cfg.ApplyDefaults()

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Kafka.OfflineTopic != "chat.offline" {
		t.Errorf("Kafka.OfflineTopic = %q", cfg.Kafka.OfflineTopic)
	}
	if cfg.Nats.SubjectPrefix != "relay.node" {
		t.Errorf("Nats.SubjectPrefix = %q", cfg.Nats.SubjectPrefix)
	}
	if cfg.Relay.SendQueueSize != 64 {
		t.Errorf("Relay.SendQueueSize = %d", cfg.Relay.SendQueueSize)
	}
	if cfg.Nats.Name != "hub-n1" {
		t.Errorf("Nats.Name = %q", cfg.Nats.Name)
	}
}

func TestValidate(t *testing.T) {
	cfg := &AppConfig{}
	cfg.ApplyDefaults()
	cfg.Nats.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"jwt.secret", "mongo.uri", "nats.enabled requires redis.enabled"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
