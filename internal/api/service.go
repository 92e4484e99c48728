/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"p2p-exchange-go/internal/events"
	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"go.uber.org/zap"
)

const (
	// maxRetries bounds re-execution of a unit that lost an optimistic version check
	maxRetries = 3

	defaultPageSize = 20
	maxPageSize     = 100
)

// Notifier delivers a notification to its recipient. Implementations log failures.
type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent)
}

// SettlementJournal mirrors completed transactions into an external ledger
type SettlementJournal interface {
	RecordSettlement(ctx context.Context, transaction *models.Transaction) error
}

// RatingCache stores computed rating summaries
type RatingCache interface {
	GetRatingSummary(ctx context.Context, userId string) (*models.RatingSummary, bool, error)
	SetRatingSummary(ctx context.Context, summary *models.RatingSummary) error
	InvalidateRatingSummary(ctx context.Context, userId string) error
}

// AssetCatalog reports whether a crypto/network pair may be traded
type AssetCatalog interface {
	Supports(crypto, network string) bool
}

// Dependencies are the post-commit collaborators of the ledger. Nil fields are disabled.
type Dependencies struct {
	Notifier  Notifier
	Publisher events.Publisher
	Journal   SettlementJournal
	Cache     RatingCache
	Assets    AssetCatalog
}

// LedgerService runs the offer/request/transaction ledger on top of a LedgerStore
type LedgerService struct {
	store     store.LedgerStore
	notifier  Notifier
	publisher events.Publisher
	journal   SettlementJournal
	cache     RatingCache
	assets    AssetCatalog
	now       func() time.Time
}

func NewLedgerService(ledgerStore store.LedgerStore, deps Dependencies) *LedgerService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &LedgerService{
		store:     ledgerStore,
		notifier:  deps.Notifier,
		publisher: publisher,
		journal:   deps.Journal,
		cache:     deps.Cache,
		assets:    deps.Assets,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// withRetry re-runs fn while it fails with ErrConcurrentModification. No other error is retried.
func withRetry[T any](ctx context.Context, operation string, fn func() (T, error)) (T, error) {
	result, err := fn()
	for attempt := 1; attempt <= maxRetries && errors.Is(err, store.ErrConcurrentModification); attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		zap.L().Warn("Concurrent modification, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt))
		result, err = fn()
	}
	return result, err
}

func (s *LedgerService) notify(ctx context.Context, event models.NotificationEvent) {
	if s.notifier == nil || event.UserId == "" {
		return
	}
	s.notifier.Notify(ctx, event)
}

func (s *LedgerService) publish(ctx context.Context, event events.LedgerEvent) {
	event.OccurredAt = s.now()
	if err := s.publisher.Publish(ctx, event); err != nil {
		zap.L().Warn("Failed to publish ledger event",
			zap.String("type", event.Type),
			zap.String("offer_id", event.OfferId),
			zap.Error(err))
	}
}

// NormalizePage clamps page to >= 1 and pageSize to 1..100, defaulting to 1 and 20
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func pageOffset(page, pageSize int) int {
	return (page - 1) * pageSize
}
