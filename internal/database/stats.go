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


package database

import (
	"context"
	"fmt"

	"p2p-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

// GetStats returns platform counters and completed fiat volume per currency
func (s *Service) GetStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{Volume: make(map[string]decimal.Decimal)}

	err := s.db.QueryRowContext(ctx, queryPlatformCounts).
		Scan(&stats.Users, &stats.Offers, &stats.ActiveOffers, &stats.Requests, &stats.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to count platform rows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryCompletedVolumeRows)
	if err != nil {
		return nil, fmt.Errorf("failed to query volume: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var currency string
		var amount, rate decimal.Decimal
		if err := rows.Scan(&currency, &amount, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan volume row: %w", err)
		}
		stats.Volume[currency] = stats.Volume[currency].Add(amount.Mul(rate))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volume rows: %w", err)
	}

	return stats, nil
}
