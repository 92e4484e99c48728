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
	"strings"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var wallet models.Wallet
	err := row.Scan(&wallet.Id, &wallet.UserId, &wallet.Type, &wallet.Label, &wallet.Value,
		&wallet.IsDefault, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *Service) ListWallets(ctx context.Context, userId string) ([]models.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, queryListWallets, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer closeRows(rows)

	wallets := []models.Wallet{}
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, *wallet)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during wallet row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}

	return wallets, nil
}

// CreateWallet inserts a payment method. A new default wallet replaces the previous default.
func (s *Service) CreateWallet(ctx context.Context, params store.CreateWalletParams) (*models.Wallet, error) {
	walletType := strings.TrimSpace(params.Type)
	value := strings.TrimSpace(params.Value)
	if walletType == "" || value == "" {
		return nil, fmt.Errorf("%w: type and value are required", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	if params.IsDefault {
		if _, err := tx.ExecContext(ctx, queryClearDefaultWallets, now, params.UserId); err != nil {
			return nil, fmt.Errorf("failed to clear default wallets: %w", err)
		}
	}

	wallet, err := scanWallet(tx.QueryRowContext(ctx, queryInsertWallet,
		uuid.New().String(), params.UserId, walletType, params.Label, value, params.IsDefault, now, now))
	if err != nil {
		return nil, fmt.Errorf("failed to insert wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Wallet created", zap.String("wallet_id", wallet.Id), zap.String("user_id", wallet.UserId))
	return wallet, nil
}

// UpdateWallet patches a wallet owned by the user. Wallets of other users are reported as not found.
func (s *Service) UpdateWallet(ctx context.Context, params store.UpdateWalletParams) (*models.Wallet, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	wallet, err := scanWallet(tx.QueryRowContext(ctx, queryGetWallet, params.WalletId, params.UserId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wallet %s: %w", params.WalletId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	if params.Label != nil {
		wallet.Label = params.Label
	}
	if params.Value != nil {
		value := strings.TrimSpace(*params.Value)
		if value == "" {
			return nil, fmt.Errorf("%w: value cannot be empty", store.ErrValidation)
		}
		wallet.Value = value
	}

	now := s.now()
	if params.IsDefault != nil {
		if *params.IsDefault && !wallet.IsDefault {
			if _, err := tx.ExecContext(ctx, queryClearDefaultWallets, now, params.UserId); err != nil {
				return nil, fmt.Errorf("failed to clear default wallets: %w", err)
			}
		}
		wallet.IsDefault = *params.IsDefault
	}

	updated, err := scanWallet(tx.QueryRowContext(ctx, queryUpdateWallet,
		wallet.Label, wallet.Value, wallet.IsDefault, now, wallet.Id, params.UserId))
	if err != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

func (s *Service) DeleteWallet(ctx context.Context, userId, walletId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteWallet, walletId, userId)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("wallet %s: %w", walletId, store.ErrNotFound)
	}
	return nil
}
