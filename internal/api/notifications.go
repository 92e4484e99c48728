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

	"p2p-exchange-go/internal/models"
)

const maxNotificationsListed = 50

func (s *LedgerService) ListNotifications(ctx context.Context, actor *models.User, unreadOnly bool) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, actor.Id, unreadOnly, maxNotificationsListed)
}

// MarkNotificationsRead marks every unread notification of the actor as read now
func (s *LedgerService) MarkNotificationsRead(ctx context.Context, actor *models.User) (int64, error) {
	return s.store.MarkNotificationsRead(ctx, actor.Id, s.now())
}
