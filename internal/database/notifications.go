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
	"time"

	"p2p-exchange-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanNotification(row rowScanner) (*models.Notification, error) {
	var notification models.Notification
	err := row.Scan(&notification.Id, &notification.UserId, &notification.Type, &notification.Title,
		&notification.Body, &notification.ReadAt, &notification.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (s *Service) CreateNotification(ctx context.Context, event models.NotificationEvent) (*models.Notification, error) {
	notification, err := scanNotification(s.db.QueryRowContext(ctx, queryInsertNotification,
		uuid.New().String(), event.UserId, event.Type, event.Title, event.Body, s.now()))
	if err != nil {
		return nil, fmt.Errorf("unable to insert notification: %w", err)
	}
	return notification, nil
}

// ListNotifications returns the user's notifications, newest first
func (s *Service) ListNotifications(ctx context.Context, userId string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := queryListNotifications
	if unreadOnly {
		query = queryListUnreadNotifications
	}

	rows, err := s.db.QueryContext(ctx, query, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer closeRows(rows)

	notifications := []models.Notification{}
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, *notification)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during notification row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return notifications, nil
}

// MarkNotificationsRead stamps every unread notification of the user
func (s *Service) MarkNotificationsRead(ctx context.Context, userId string, readAt time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryMarkNotificationsRead, readAt.UTC(), userId)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return updated, nil
}
