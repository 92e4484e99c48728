package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "p2p.db" {
		t.Errorf("Expected p2p.db, got %s", cfg.Database.Path)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Auth.InitDataMaxAge != 24*time.Hour {
		t.Errorf("Expected 24h init data max age, got %s", cfg.Auth.InitDataMaxAge)
	}
	if cfg.Auth.SessionTTL != 720*time.Hour {
		t.Errorf("Expected 720h session ttl, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Reminder.StaleAfter != 2*time.Hour {
		t.Errorf("Expected 2h stale after, got %s", cfg.Reminder.StaleAfter)
	}
	if cfg.AssetsFile != "assets.yaml" {
		t.Errorf("Expected assets.yaml, got %s", cfg.AssetsFile)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/exchange.db")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("ADMIN_IDS", "42, 7,,")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TELEGRAM_WEBHOOK_URL", "https://example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/exchange.db" {
		t.Errorf("Expected /tmp/exchange.db, got %s", cfg.Database.Path)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Expected :9090, got %s", cfg.Server.Addr)
	}
	if cfg.Auth.SessionTTL != time.Hour {
		t.Errorf("Expected 1h, got %s", cfg.Auth.SessionTTL)
	}
	if !cfg.Auth.CookieSecure {
		t.Error("Expected secure cookies")
	}
	if !reflect.DeepEqual(cfg.Auth.AdminIDs, []int64{42, 7}) {
		t.Errorf("Expected [42 7], got %v", cfg.Auth.AdminIDs)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"kafka-1:9092", "kafka-2:9092"}) {
		t.Errorf("Expected two brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("Expected redis db 3, got %d", cfg.Redis.DB)
	}
	if cfg.Telegram.WebhookURL != "https://example.com" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.Telegram.WebhookURL)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "REMINDER_INTERVAL", "soon"},
		{"bad admin id", "ADMIN_IDS", "42,abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestGetEnvInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	if got := getEnvInt("DB_MAX_OPEN_CONNS", 25); got != 25 {
		t.Errorf("Expected 25, got %d", got)
	}
}
