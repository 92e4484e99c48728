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
	"go.uber.org/zap"
)

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.Id, &user.TelegramId, &user.Username, &user.FirstName, &user.LastName,
		&user.LanguageCode, &user.PhotoURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertTelegramUser creates the user on first login and refreshes profile fields afterwards.
func (s *Service) UpsertTelegramUser(ctx context.Context, params store.UpsertUserParams) (*models.User, error) {
	if params.TelegramId == 0 {
		return nil, fmt.Errorf("%w: telegram id is required", store.ErrValidation)
	}

	now := s.now()
	user, err := scanUser(s.db.QueryRowContext(ctx, queryUpsertUser,
		uuid.New().String(), params.TelegramId, params.Username, params.FirstName, params.LastName,
		params.LanguageCode, params.PhotoURL, now, now))
	if err != nil {
		zap.L().Error("Failed to upsert user", zap.Int64("telegram_id", params.TelegramId), zap.Error(err))
		return nil, fmt.Errorf("unable to upsert user: %w", err)
	}

	zap.L().Debug("User upserted", zap.String("user_id", user.Id), zap.Int64("telegram_id", user.TelegramId))
	return user, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))

	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userId, store.ErrNotFound)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}
	return user, nil
}

func (s *Service) GetUserByTelegramId(ctx context.Context, telegramId int64) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserByTelegramId, telegramId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("telegram user %d: %w", telegramId, store.ErrNotFound)
		}
		zap.L().Error("Failed to query user by telegram ID", zap.Int64("telegram_id", telegramId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by telegram ID: %w", err)
	}
	return user, nil
}

// ListUsers returns a page of users, newest first, and the total user count.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, queryCountUsers).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("unable to count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryListUsers, limit, offset)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, 0, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, 0, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, 0, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, total, nil
}
