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
	"database/sql"
	"errors"
	"fmt"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanRating(row rowScanner) (*models.Rating, error) {
	var rating models.Rating
	err := row.Scan(&rating.Id, &rating.UserId, &rating.FromUserId, &rating.TransactionId,
		&rating.Score, &rating.Comment, &rating.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// CreateRating records the rater's review of the other participant of a completed transaction.
func (s *Service) CreateRating(ctx context.Context, params store.CreateRatingParams) (*models.Rating, error) {
	if params.Score < 1 || params.Score > 5 {
		return nil, fmt.Errorf("%w: score must be between 1 and 5", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	transaction, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransaction, params.TransactionId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", params.TransactionId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if transaction.Status != models.TransactionStatusCompleted {
		return nil, fmt.Errorf("transaction %s is %s: %w", transaction.Id, transaction.Status, store.ErrTransactionNotCompleted)
	}
	if transaction.BuyerId != params.RaterId && transaction.SellerId != params.RaterId {
		return nil, fmt.Errorf("only deal participants can rate: %w", store.ErrForbidden)
	}

	var existingId string
	err = tx.QueryRowContext(ctx, queryCheckExistingRating, transaction.Id, params.RaterId).Scan(&existingId)
	if err == nil {
		return nil, fmt.Errorf("rating %s exists: %w", existingId, store.ErrAlreadyRated)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check for existing rating: %w", err)
	}

	rating, err := scanRating(tx.QueryRowContext(ctx, queryInsertRating,
		uuid.New().String(), transaction.Counterparty(params.RaterId), params.RaterId, transaction.Id,
		params.Score, params.Comment, s.now()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("rating for transaction %s: %w", transaction.Id, store.ErrAlreadyRated)
		}
		return nil, fmt.Errorf("failed to insert rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Rating created",
		zap.String("rating_id", rating.Id),
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", rating.UserId),
		zap.Int("score", rating.Score))

	return rating, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// ListRatings returns the ratings received by the user, newest first
func (s *Service) ListRatings(ctx context.Context, userId string, limit int) ([]models.Rating, error) {
	rows, err := s.db.QueryContext(ctx, queryListRatings, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer closeRows(rows)

	ratings := []models.Rating{}
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, *rating)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during rating row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating rating rows: %w", err)
	}

	return ratings, nil
}

// GetRatingStats aggregates received ratings and completed deal volume.
// Volume is summed in Go since amounts are stored as decimal strings.
func (s *Service) GetRatingStats(ctx context.Context, userId string) (*models.RatingStats, error) {
	stats := &models.RatingStats{TotalVolume: decimal.Zero}

	err := s.db.QueryRowContext(ctx, queryRatingAggregate, userId).
		Scan(&stats.RatingCount, &stats.ScoreSum, &stats.PositiveReviews, &stats.NegativeReviews)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryListDealAmounts, userId, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list deal amounts: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return nil, fmt.Errorf("failed to scan deal amount: %w", err)
		}
		stats.TotalDeals++
		stats.TotalVolume = stats.TotalVolume.Add(amount)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deal rows: %w", err)
	}

	return stats, nil
}
