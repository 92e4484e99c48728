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

func (s *LedgerService) GetStats(ctx context.Context) (*models.Stats, error) {
	return s.store.GetStats(ctx)
}

// ListUsers returns a page of users, newest first
func (s *LedgerService) ListUsers(ctx context.Context, page, pageSize int) (*models.UserPage, error) {
	page, pageSize = NormalizePage(page, pageSize)

	users, total, err := s.store.ListUsers(ctx, pageSize, pageOffset(page, pageSize))
	if err != nil {
		return nil, err
	}

	return &models.UserPage{
		Users:    users,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}
