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
	"time"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) CreateSession(ctx context.Context, userId, tokenHash string, expiresAt time.Time) (*models.Session, error) {
	var session models.Session
	err := s.db.QueryRowContext(ctx, queryInsertSession, uuid.New().String(), userId, tokenHash, expiresAt.UTC(), s.now()).
		Scan(&session.Id, &session.UserId, &session.TokenHash, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		zap.L().Error("Failed to insert session", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert session: %w", err)
	}
	return &session, nil
}

func (s *Service) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var session models.Session
	err := s.db.QueryRowContext(ctx, queryGetSessionByTokenHash, tokenHash).
		Scan(&session.Id, &session.UserId, &session.TokenHash, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query session: %w", err)
	}
	return &session, nil
}

// TouchSession slides the session expiry forward.
func (s *Service) TouchSession(ctx context.Context, sessionId string, expiresAt time.Time) error {
	if _, err := s.db.ExecContext(ctx, queryTouchSession, expiresAt.UTC(), sessionId); err != nil {
		return fmt.Errorf("unable to extend session: %w", err)
	}
	return nil
}

func (s *Service) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteSession, tokenHash); err != nil {
		return fmt.Errorf("unable to delete session: %w", err)
	}
	return nil
}

func (s *Service) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryDeleteExpiredSessions, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("unable to delete expired sessions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unable to get rows affected: %w", err)
	}
	return deleted, nil
}
