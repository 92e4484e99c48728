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


package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultInterval        = 15 * time.Minute
	DefaultStaleAfter      = 2 * time.Hour
	DefaultCleanupInterval = time.Hour
	defaultRetention       = 24 * time.Hour
)

// Notifier receives one event per participant of a stale deal
type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent)
}

// DealReminderConfig contains configuration for DealReminder
type DealReminderConfig struct {
	Store           store.LedgerStore
	Notifier        Notifier
	Interval        time.Duration
	StaleAfter      time.Duration
	CleanupInterval time.Duration
}

// DealReminder polls for accepted requests that were not completed in time
// and nudges both participants. It also sweeps expired sessions.
type DealReminder struct {
	store    store.LedgerStore
	notifier Notifier

	// Requests already reminded, keyed by request id
	reminded        map[string]time.Time
	mutex           sync.Mutex
	interval        time.Duration
	staleAfter      time.Duration
	cleanupInterval time.Duration
	retention       time.Duration
	now             func() time.Time

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func NewDealReminder(cfg DealReminderConfig) *DealReminder {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	return &DealReminder{
		store:           cfg.Store,
		notifier:        cfg.Notifier,
		reminded:        make(map[string]time.Time),
		interval:        interval,
		staleAfter:      staleAfter,
		cleanupInterval: cleanupInterval,
		retention:       defaultRetention,
		now:             func() time.Time { return time.Now().UTC() },
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start launches the poll and cleanup loops
func (r *DealReminder) Start(ctx context.Context) {
	go r.pollLoop(ctx)
	go r.cleanupLoop(ctx)

	zap.L().Info("Deal reminder started",
		zap.Duration("interval", r.interval),
		zap.Duration("stale_after", r.staleAfter))
}

// Stop gracefully stops the reminder
func (r *DealReminder) Stop() {
	zap.L().Info("Stopping deal reminder")
	r.stopOnce.Do(func() { close(r.stopChan) })
	<-r.doneChan
	zap.L().Info("Deal reminder stopped")
}

// Run blocks until ctx is cancelled
func (r *DealReminder) Run(ctx context.Context) error {
	r.Start(ctx)
	<-ctx.Done()
	r.Stop()
	return nil
}

func (r *DealReminder) pollLoop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				zap.L().Error("Deal reminder poll failed", zap.Error(err))
			}
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce reminds participants of every stale deal not reminded yet and returns how many deals were reminded
func (r *DealReminder) RunOnce(ctx context.Context) (int, error) {
	now := r.now()
	requests, err := r.store.ListStaleAcceptedRequests(ctx, now.Add(-r.staleAfter))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale requests: %w", err)
	}

	count := 0
	for i := range requests {
		request := &requests[i]
		if r.isReminded(request.Id) {
			continue
		}

		for _, event := range reminderEvents(request, now) {
			r.notifier.Notify(ctx, event)
		}
		r.markReminded(request.Id, now)
		count++
	}

	if count > 0 {
		zap.L().Info("Sent deal reminders", zap.Int("deals", count))
	}
	return count, nil
}

func reminderEvents(request *models.Request, now time.Time) []models.NotificationEvent {
	crypto := ""
	ownerId := ""
	if request.Offer != nil {
		crypto = request.Offer.Crypto
		ownerId = request.Offer.UserId
	}

	hours := int(now.Sub(request.UpdatedAt).Hours())
	body := fmt.Sprintf("Your deal for %s %s was accepted %d h ago and is still not completed. "+
		"Please complete it or contact the counterparty.", request.Amount, crypto, hours)

	events := []models.NotificationEvent{{
		UserId: request.UserId,
		Type:   models.NotificationDealReminder,
		Title:  "Deal reminder",
		Body:   body,
	}}
	if ownerId != "" && ownerId != request.UserId {
		events = append(events, models.NotificationEvent{
			UserId: ownerId,
			Type:   models.NotificationDealReminder,
			Title:  "Deal reminder",
			Body:   body,
		})
	}
	return events
}

func (r *DealReminder) isReminded(requestId string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, exists := r.reminded[requestId]
	return exists
}

func (r *DealReminder) markReminded(requestId string, at time.Time) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.reminded[requestId] = at
}

// cleanupLoop periodically forgets old reminders and deletes expired sessions
func (r *DealReminder) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *DealReminder) cleanup(ctx context.Context) {
	now := r.now()

	r.mutex.Lock()
	cutoff := now.Add(-r.retention)
	cleaned := 0
	for requestId, remindedAt := range r.reminded {
		if remindedAt.Before(cutoff) {
			delete(r.reminded, requestId)
			cleaned++
		}
	}
	remaining := len(r.reminded)
	r.mutex.Unlock()

	if cleaned > 0 {
		zap.L().Debug("Cleaned up old reminders",
			zap.Int("cleaned", cleaned),
			zap.Int("remaining", remaining))
	}

	deleted, err := r.store.DeleteExpiredSessions(ctx, now)
	if err != nil {
		zap.L().Error("Failed to delete expired sessions", zap.Error(err))
		return
	}
	if deleted > 0 {
		zap.L().Info("Deleted expired sessions", zap.Int64("deleted", deleted))
	}
}
