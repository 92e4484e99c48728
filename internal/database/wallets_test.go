package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"
)

func TestWallets_SingleDefault(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, 1, "alice")

	first, err := service.CreateWallet(ctx, store.CreateWalletParams{UserId: user.Id, Type: "card", Value: "4111 1111", IsDefault: true})
	if err != nil {
		t.Fatalf("CreateWallet failed: %v", err)
	}
	second, err := service.CreateWallet(ctx, store.CreateWalletParams{UserId: user.Id, Type: "crypto", Value: "TXabc", IsDefault: true})
	if err != nil {
		t.Fatalf("CreateWallet failed: %v", err)
	}

	wallets, err := service.ListWallets(ctx, user.Id)
	if err != nil {
		t.Fatalf("ListWallets failed: %v", err)
	}

	defaults := 0
	for _, wallet := range wallets {
		if wallet.IsDefault {
			defaults++
			if wallet.Id != second.Id {
				t.Errorf("Expected default wallet %s, got %s", second.Id, wallet.Id)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("Expected exactly 1 default wallet, got %d", defaults)
	}

	isDefault := true
	updated, err := service.UpdateWallet(ctx, store.UpdateWalletParams{WalletId: first.Id, UserId: user.Id, IsDefault: &isDefault})
	if err != nil {
		t.Fatalf("UpdateWallet failed: %v", err)
	}
	if !updated.IsDefault {
		t.Errorf("Expected wallet %s to be default", first.Id)
	}

	wallets, _ = service.ListWallets(ctx, user.Id)
	for _, wallet := range wallets {
		if wallet.Id == second.Id && wallet.IsDefault {
			t.Errorf("Expected wallet %s to lose default", second.Id)
		}
	}
}

func TestWallets_OtherUserIsNotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, service, 1, "alice")
	bob := createTestUser(t, service, 2, "bob")

	wallet, err := service.CreateWallet(ctx, store.CreateWalletParams{UserId: alice.Id, Type: "card", Value: "4111"})
	if err != nil {
		t.Fatalf("CreateWallet failed: %v", err)
	}

	value := "stolen"
	if _, err := service.UpdateWallet(ctx, store.UpdateWalletParams{WalletId: wallet.Id, UserId: bob.Id, Value: &value}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := service.DeleteWallet(ctx, bob.Id, wallet.Id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := service.DeleteWallet(ctx, alice.Id, wallet.Id); err != nil {
		t.Errorf("Expected owner delete to succeed, got %v", err)
	}

	if _, err := service.CreateWallet(ctx, store.CreateWalletParams{UserId: alice.Id, Type: " ", Value: "x"}); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestNotifications_MarkRead(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, 1, "alice")

	for _, notificationType := range []string{models.NotificationRequestCreated, models.NotificationRequestAccepted} {
		if _, err := service.CreateNotification(ctx, models.NotificationEvent{UserId: user.Id, Type: notificationType, Title: "t", Body: "b"}); err != nil {
			t.Fatalf("CreateNotification failed: %v", err)
		}
	}

	unread, err := service.ListNotifications(ctx, user.Id, true, 50)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(unread) != 2 {
		t.Errorf("Expected 2 unread, got %d", len(unread))
	}

	updated, err := service.MarkNotificationsRead(ctx, user.Id, time.Now())
	if err != nil {
		t.Fatalf("MarkNotificationsRead failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("Expected 2 marked read, got %d", updated)
	}

	unread, _ = service.ListNotifications(ctx, user.Id, true, 50)
	if len(unread) != 0 {
		t.Errorf("Expected 0 unread, got %d", len(unread))
	}
	all, _ := service.ListNotifications(ctx, user.Id, false, 50)
	if len(all) != 2 || all[0].ReadAt == nil {
		t.Errorf("Expected 2 read notifications, got %d", len(all))
	}
}

func TestGetStats(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, service, 1, "owner")
	requester := createTestUser(t, service, 2, "requester")
	completeTestDeal(t, service, owner, requester, 10)

	stats, err := service.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Users != 2 || stats.Offers != 1 || stats.ActiveOffers != 1 || stats.Requests != 1 || stats.Transactions != 1 {
		t.Errorf("Unexpected counters: %+v", stats)
	}
	if volume := stats.Volume["RUB"]; volume.String() != "955" {
		t.Errorf("Expected RUB volume 955, got %s", volume)
	}
}
