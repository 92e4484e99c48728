package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	t.Helper()

	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		service.Close()
	}

	return service, cleanup
}

func createTestUser(t *testing.T, service *Service, telegramId int64, username string) *models.User {
	t.Helper()

	user, err := service.UpsertTelegramUser(context.Background(), store.UpsertUserParams{
		TelegramId: telegramId,
		Username:   &username,
	})
	if err != nil {
		t.Fatalf("UpsertTelegramUser failed: %v", err)
	}
	return user
}

func createTestOffer(t *testing.T, service *Service, userId, offerType, amount string) *models.Offer {
	t.Helper()

	offer, err := service.CreateOffer(context.Background(), store.CreateOfferParams{
		UserId:   userId,
		Type:     offerType,
		Crypto:   "USDT",
		Network:  "TRC20",
		Amount:   decimal.RequireFromString(amount),
		Currency: "RUB",
		Rate:     decimal.RequireFromString("95.5"),
	})
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}
	return offer
}

func TestNewService_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  models.DatabaseConfig
	}{
		{"empty path", models.DatabaseConfig{MaxOpenConns: 1, PingTimeout: time.Second}},
		{"zero open conns", models.DatabaseConfig{Path: "x.db", PingTimeout: time.Second}},
		{"negative idle conns", models.DatabaseConfig{Path: "x.db", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second}},
		{"zero ping timeout", models.DatabaseConfig{Path: "x.db", MaxOpenConns: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(ctx, tt.cfg); err == nil {
				t.Errorf("Expected error for %s, got nil", tt.name)
			}
		})
	}
}

func TestDataSourceName(t *testing.T) {
	dsn := dataSourceName(models.DatabaseConfig{Path: "p2p.db"})
	expected := "p2p.db?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_foreign_keys=on&_txlock=immediate&_busy_timeout=5000"
	if dsn != expected {
		t.Errorf("Expected %s, got %s", expected, dsn)
	}
}

func TestUpsertTelegramUser_UpdatesProfile(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	first := createTestUser(t, service, 1001, "alice")
	second := createTestUser(t, service, 1001, "alice_renamed")

	if first.Id != second.Id {
		t.Errorf("Expected same user id %s, got %s", first.Id, second.Id)
	}
	if *second.Username != "alice_renamed" {
		t.Errorf("Expected username alice_renamed, got %s", *second.Username)
	}

	users, total, err := service.ListUsers(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if total != 1 || len(users) != 1 {
		t.Errorf("Expected 1 user, got total=%d len=%d", total, len(users))
	}

	if _, err := service.GetUserByTelegramId(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, 1001, "alice")
	now := time.Now().UTC()

	if _, err := service.CreateSession(ctx, user.Id, "live-hash", now.Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := service.CreateSession(ctx, user.Id, "stale-hash", now.Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	session, err := service.GetSessionByTokenHash(ctx, "live-hash")
	if err != nil {
		t.Fatalf("GetSessionByTokenHash failed: %v", err)
	}
	if session.UserId != user.Id {
		t.Errorf("Expected user %s, got %s", user.Id, session.UserId)
	}

	extended := now.Add(48 * time.Hour)
	if err := service.TouchSession(ctx, session.Id, extended); err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}
	session, _ = service.GetSessionByTokenHash(ctx, "live-hash")
	if !session.ExpiresAt.Equal(extended) {
		t.Errorf("Expected expiry %s, got %s", extended, session.ExpiresAt)
	}

	deleted, err := service.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 expired session deleted, got %d", deleted)
	}

	if err := service.DeleteSession(ctx, "live-hash"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := service.GetSessionByTokenHash(ctx, "live-hash"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
