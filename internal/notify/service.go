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


package notify

import (
	"context"
	"sync"
	"time"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"go.uber.org/zap"
)

const defaultDeliveryTimeout = 10 * time.Second

// Sender pushes a formatted message to a Telegram chat
type Sender interface {
	SendMessage(ctx context.Context, telegramId int64, text string) error
}

// Service persists notification rows and pushes them to Telegram.
// Delivery is best effort and never reported back to the caller.
type Service struct {
	store   store.LedgerStore
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewService creates the emitter; a nil sender only persists rows
func NewService(ledgerStore store.LedgerStore, sender Sender) *Service {
	return &Service{
		store:   ledgerStore,
		sender:  sender,
		timeout: defaultDeliveryTimeout,
	}
}

func (s *Service) Notify(ctx context.Context, event models.NotificationEvent) {
	notification, err := s.store.CreateNotification(ctx, event)
	if err != nil {
		zap.L().Error("Failed to persist notification",
			zap.String("user_id", event.UserId),
			zap.String("type", event.Type),
			zap.Error(err))
		return
	}

	if s.sender == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		s.deliver(deliveryCtx, notification)
	}()
}

func (s *Service) deliver(ctx context.Context, notification *models.Notification) {
	user, err := s.store.GetUserById(ctx, notification.UserId)
	if err != nil {
		zap.L().Warn("Failed to load notification recipient",
			zap.String("notification_id", notification.Id),
			zap.String("user_id", notification.UserId),
			zap.Error(err))
		return
	}

	if err := s.sender.SendMessage(ctx, user.TelegramId, FormatMessage(notification.Title, notification.Body)); err != nil {
		zap.L().Warn("Failed to deliver notification",
			zap.String("notification_id", notification.Id),
			zap.Int64("telegram_id", user.TelegramId),
			zap.Error(err))
		return
	}

	zap.L().Debug("Notification delivered",
		zap.String("notification_id", notification.Id),
		zap.String("type", notification.Type))
}

// Wait blocks until in-flight deliveries finish
func (s *Service) Wait() {
	s.wg.Wait()
}
