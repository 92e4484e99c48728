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
	"fmt"
	"strings"

	"p2p-exchange-go/internal/events"
	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"go.uber.org/zap"
)

const maxRatingsListed = 50

func (s *LedgerService) CreateRating(ctx context.Context, actor *models.User, req models.CreateRatingRequest) (*models.Rating, error) {
	if strings.TrimSpace(req.TransactionId) == "" {
		return nil, fmt.Errorf("%w: transactionId is required", store.ErrValidation)
	}
	if req.Score < 1 || req.Score > 5 {
		return nil, fmt.Errorf("%w: score must be between 1 and 5", store.ErrValidation)
	}

	rating, err := s.store.CreateRating(ctx, store.CreateRatingParams{
		TransactionId: req.TransactionId,
		RaterId:       actor.Id,
		Score:         req.Score,
		Comment:       req.Comment,
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateRatingSummary(ctx, rating.UserId); err != nil {
			zap.L().Warn("Failed to invalidate rating summary", zap.String("user_id", rating.UserId), zap.Error(err))
		}
	}

	s.notify(ctx, models.NotificationEvent{
		UserId: rating.UserId,
		Type:   models.NotificationRatingReceived,
		Title:  "New rating",
		Body:   fmt.Sprintf("%s rated your deal %d/5.", actor.DisplayName(), rating.Score),
	})
	s.publish(ctx, events.LedgerEvent{
		Type:          events.RatingCreated,
		TransactionId: rating.TransactionId,
		UserId:        actor.Id,
	})

	return rating, nil
}

func (s *LedgerService) ListRatings(ctx context.Context, userId string) ([]models.Rating, error) {
	if strings.TrimSpace(userId) == "" {
		return nil, fmt.Errorf("%w: userId is required", store.ErrValidation)
	}
	return s.store.ListRatings(ctx, userId, maxRatingsListed)
}

// GetRatingSummary returns deal and review aggregates with badges, served from cache when possible
func (s *LedgerService) GetRatingSummary(ctx context.Context, userId string) (*models.RatingSummary, error) {
	if s.cache != nil {
		summary, found, err := s.cache.GetRatingSummary(ctx, userId)
		if err != nil {
			zap.L().Warn("Rating summary cache read failed", zap.String("user_id", userId), zap.Error(err))
		} else if found {
			return summary, nil
		}
	}

	if _, err := s.store.GetUserById(ctx, userId); err != nil {
		return nil, err
	}

	stats, err := s.store.GetRatingStats(ctx, userId)
	if err != nil {
		return nil, err
	}

	summary := BuildRatingSummary(userId, stats)

	if s.cache != nil {
		if err := s.cache.SetRatingSummary(ctx, summary); err != nil {
			zap.L().Warn("Rating summary cache write failed", zap.String("user_id", userId), zap.Error(err))
		}
	}

	return summary, nil
}
