package reminder

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"p2p-exchange-go/internal/database"
	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event models.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func setupTestDb(t *testing.T) (*database.Service, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "reminder.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	return db, func() { db.Close() }
}

// createAcceptedDeal returns an accepted request between a seller and a buyer
func createAcceptedDeal(t *testing.T, db *database.Service) (*models.Request, *models.User, *models.User) {
	t.Helper()
	ctx := context.Background()

	seller, err := db.UpsertTelegramUser(ctx, store.UpsertUserParams{TelegramId: 10})
	if err != nil {
		t.Fatalf("UpsertTelegramUser failed: %v", err)
	}
	buyer, err := db.UpsertTelegramUser(ctx, store.UpsertUserParams{TelegramId: 20})
	if err != nil {
		t.Fatalf("UpsertTelegramUser failed: %v", err)
	}

	offer, err := db.CreateOffer(ctx, store.CreateOfferParams{
		UserId:   seller.Id,
		Type:     models.OfferTypeSell,
		Crypto:   "USDT",
		Network:  "TRC20",
		Amount:   decimal.NewFromInt(100),
		Currency: "RUB",
		Rate:     decimal.RequireFromString("95.5"),
	})
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	request, err := db.CreateRequest(ctx, store.CreateRequestParams{
		OfferId:     offer.Id,
		RequesterId: buyer.Id,
		Amount:      decimal.NewFromInt(30),
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	accepted, err := db.AcceptRequest(ctx, request.Id, seller.Id)
	if err != nil {
		t.Fatalf("AcceptRequest failed: %v", err)
	}

	return accepted, seller, buyer
}

func TestDealReminder_RemindsBothParticipantsOnce(t *testing.T) {
	db, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	_, seller, buyer := createAcceptedDeal(t, db)

	notifier := &recordingNotifier{}
	reminder := NewDealReminder(DealReminderConfig{Store: db, Notifier: notifier})

	count, err := reminder.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected fresh deal not to be reminded, got %d", count)
	}

	reminder.now = func() time.Time { return time.Now().UTC().Add(3 * time.Hour) }

	count, err = reminder.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 stale deal, got %d", count)
	}
	if notifier.count() != 2 {
		t.Fatalf("Expected 2 notifications, got %d", notifier.count())
	}

	recipients := map[string]bool{}
	for _, event := range notifier.events {
		if event.Type != models.NotificationDealReminder {
			t.Errorf("Expected type %s, got %s", models.NotificationDealReminder, event.Type)
		}
		recipients[event.UserId] = true
	}
	if !recipients[seller.Id] || !recipients[buyer.Id] {
		t.Errorf("Expected both participants to be reminded, got %v", recipients)
	}

	count, err = reminder.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if count != 0 || notifier.count() != 2 {
		t.Errorf("Expected no repeated reminder, got count=%d notifications=%d", count, notifier.count())
	}
}

func TestDealReminder_CompletedDealIsNotReminded(t *testing.T) {
	db, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	request, _, buyer := createAcceptedDeal(t, db)
	if _, _, err := db.CompleteRequest(ctx, request.Id, buyer.Id); err != nil {
		t.Fatalf("CompleteRequest failed: %v", err)
	}

	notifier := &recordingNotifier{}
	reminder := NewDealReminder(DealReminderConfig{Store: db, Notifier: notifier})
	reminder.now = func() time.Time { return time.Now().UTC().Add(3 * time.Hour) }

	count, err := reminder.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected completed deal to be skipped, got %d", count)
	}
}

func TestDealReminder_CleanupForgetsAndSweepsSessions(t *testing.T) {
	db, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	_, seller, _ := createAcceptedDeal(t, db)

	if _, err := db.CreateSession(ctx, seller.Id, "expired-hash", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := db.CreateSession(ctx, seller.Id, "live-hash", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	notifier := &recordingNotifier{}
	reminder := NewDealReminder(DealReminderConfig{Store: db, Notifier: notifier})
	reminder.now = func() time.Time { return time.Now().UTC().Add(3 * time.Hour) }

	if _, err := reminder.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	reminder.now = func() time.Time { return time.Now().UTC().Add(3*time.Hour + defaultRetention + time.Minute) }
	reminder.cleanup(ctx)

	if len(reminder.reminded) != 0 {
		t.Errorf("Expected reminders to be forgotten, got %d", len(reminder.reminded))
	}
	if _, err := db.GetSessionByTokenHash(ctx, "expired-hash"); err == nil {
		t.Error("Expected expired session to be deleted")
	}

	if _, err := reminder.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if notifier.count() != 4 {
		t.Errorf("Expected a forgotten deal to be reminded again, got %d notifications", notifier.count())
	}
}

func TestDealReminder_StartStop(t *testing.T) {
	db, cleanup := setupTestDb(t)
	defer cleanup()

	reminder := NewDealReminder(DealReminderConfig{
		Store:    db,
		Notifier: &recordingNotifier{},
		Interval: 10 * time.Millisecond,
	})

	reminder.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	reminder.Stop()
}
