package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

func completeTestDeal(t *testing.T, service *Service, owner, requester *models.User, amount int64) *models.Transaction {
	t.Helper()

	ctx := context.Background()
	offer := createTestOffer(t, service, owner.Id, models.OfferTypeSell, "1000")
	request, err := service.CreateRequest(ctx, store.CreateRequestParams{OfferId: offer.Id, RequesterId: requester.Id, Amount: decimal.NewFromInt(amount)})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if _, err := service.AcceptRequest(ctx, request.Id, owner.Id); err != nil {
		t.Fatalf("AcceptRequest failed: %v", err)
	}
	_, transaction, err := service.CompleteRequest(ctx, request.Id, owner.Id)
	if err != nil {
		t.Fatalf("CompleteRequest failed: %v", err)
	}
	return transaction
}

func TestCreateRating_Rules(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, service, 1, "owner")
	requester := createTestUser(t, service, 2, "requester")
	outsider := createTestUser(t, service, 3, "outsider")
	transaction := completeTestDeal(t, service, owner, requester, 10)

	rating, err := service.CreateRating(ctx, store.CreateRatingParams{TransactionId: transaction.Id, RaterId: requester.Id, Score: 5})
	if err != nil {
		t.Fatalf("CreateRating failed: %v", err)
	}
	if rating.UserId != owner.Id {
		t.Errorf("Expected rating target %s, got %s", owner.Id, rating.UserId)
	}

	tests := []struct {
		name     string
		params   store.CreateRatingParams
		expected error
	}{
		{"duplicate", store.CreateRatingParams{TransactionId: transaction.Id, RaterId: requester.Id, Score: 4}, store.ErrAlreadyRated},
		{"outsider", store.CreateRatingParams{TransactionId: transaction.Id, RaterId: outsider.Id, Score: 4}, store.ErrForbidden},
		{"unknown transaction", store.CreateRatingParams{TransactionId: "missing", RaterId: owner.Id, Score: 4}, store.ErrNotFound},
		{"score too high", store.CreateRatingParams{TransactionId: transaction.Id, RaterId: owner.Id, Score: 6}, store.ErrValidation},
		{"score too low", store.CreateRatingParams{TransactionId: transaction.Id, RaterId: owner.Id, Score: 0}, store.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.CreateRating(ctx, tt.params); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}

	if _, err := service.CreateRating(ctx, store.CreateRatingParams{TransactionId: transaction.Id, RaterId: owner.Id, Score: 2}); err != nil {
		t.Errorf("Expected the other participant to rate, got %v", err)
	}
}

func TestGetRatingStats(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, service, 1, "owner")
	requester := createTestUser(t, service, 2, "requester")

	scores := []int{5, 4, 2}
	for i, score := range scores {
		transaction := completeTestDeal(t, service, owner, requester, int64(10*(i+1)))
		if _, err := service.CreateRating(ctx, store.CreateRatingParams{TransactionId: transaction.Id, RaterId: requester.Id, Score: score}); err != nil {
			t.Fatalf("CreateRating failed: %v", err)
		}
	}

	stats, err := service.GetRatingStats(ctx, owner.Id)
	if err != nil {
		t.Fatalf("GetRatingStats failed: %v", err)
	}
	if stats.TotalDeals != 3 {
		t.Errorf("Expected 3 deals, got %d", stats.TotalDeals)
	}
	if !stats.TotalVolume.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected volume 60, got %s", stats.TotalVolume)
	}
	if stats.RatingCount != 3 || stats.ScoreSum != 11 {
		t.Errorf("Expected 3 ratings summing 11, got %d summing %d", stats.RatingCount, stats.ScoreSum)
	}
	if stats.PositiveReviews != 2 || stats.NegativeReviews != 1 {
		t.Errorf("Expected 2 positive 1 negative, got %d/%d", stats.PositiveReviews, stats.NegativeReviews)
	}

	ratings, err := service.ListRatings(ctx, owner.Id, 10)
	if err != nil {
		t.Fatalf("ListRatings failed: %v", err)
	}
	if len(ratings) != 3 || ratings[0].Score != 2 {
		t.Errorf("Expected 3 ratings newest first, got %d", len(ratings))
	}

	transactions, err := service.ListTransactions(ctx, requester.Id, 10, 0)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(transactions) != 3 {
		t.Errorf("Expected 3 transactions, got %d", len(transactions))
	}
}

func TestListStaleAcceptedRequests(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, service, 1, "owner")
	requester := createTestUser(t, service, 2, "requester")
	offer := createTestOffer(t, service, owner.Id, models.OfferTypeSell, "100")

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	request, err := service.CreateRequest(ctx, store.CreateRequestParams{OfferId: offer.Id, RequesterId: requester.Id, Amount: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if _, err := service.AcceptRequest(ctx, request.Id, owner.Id); err != nil {
		t.Fatalf("AcceptRequest failed: %v", err)
	}

	stale, err := service.ListStaleAcceptedRequests(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListStaleAcceptedRequests failed: %v", err)
	}
	if len(stale) != 1 || stale[0].Id != request.Id {
		t.Errorf("Expected request %s to be stale, got %d results", request.Id, len(stale))
	}

	fresh, _ := service.ListStaleAcceptedRequests(ctx, base.Add(-time.Hour))
	if len(fresh) != 0 {
		t.Errorf("Expected no stale requests before the accept time, got %d", len(fresh))
	}
}
