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


package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"p2p-exchange-go/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRatingTTL = 5 * time.Minute

	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	defaultPoolSize     = 10

	ratingKeyPrefix = "rating-summary:"
)

// RatingCache stores rating summaries in Redis as JSON
type RatingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConnection opens a Redis client and verifies it with a ping
func NewConnection(ctx context.Context, cfg models.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		PoolSize:     defaultPoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

func NewRatingCache(client *redis.Client, ttl time.Duration) *RatingCache {
	if ttl <= 0 {
		ttl = DefaultRatingTTL
	}
	return &RatingCache{client: client, ttl: ttl}
}

// GetRatingSummary reports a miss as (nil, false, nil)
func (c *RatingCache) GetRatingSummary(ctx context.Context, userId string) (*models.RatingSummary, bool, error) {
	val, err := c.client.Get(ctx, ratingKey(userId)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	summary, err := decodeSummary(val)
	if err != nil {
		return nil, false, err
	}
	return summary, true, nil
}

func (c *RatingCache) SetRatingSummary(ctx context.Context, summary *models.RatingSummary) error {
	val, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("unable to encode rating summary: %w", err)
	}
	if err := c.client.Set(ctx, ratingKey(summary.UserId), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RatingCache) InvalidateRatingSummary(ctx context.Context, userId string) error {
	if err := c.client.Del(ctx, ratingKey(userId)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *RatingCache) Close() error {
	return c.client.Close()
}

func ratingKey(userId string) string {
	return ratingKeyPrefix + userId
}

func decodeSummary(val []byte) (*models.RatingSummary, error) {
	var summary models.RatingSummary
	if err := json.Unmarshal(val, &summary); err != nil {
		return nil, fmt.Errorf("unable to decode rating summary: %w", err)
	}
	return &summary, nil
}
