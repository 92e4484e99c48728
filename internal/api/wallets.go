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

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"
)

func (s *LedgerService) ListWallets(ctx context.Context, actor *models.User) ([]models.Wallet, error) {
	return s.store.ListWallets(ctx, actor.Id)
}

func (s *LedgerService) CreateWallet(ctx context.Context, actor *models.User, req models.CreateWalletRequest) (*models.Wallet, error) {
	return s.store.CreateWallet(ctx, store.CreateWalletParams{
		UserId:    actor.Id,
		Type:      req.Type,
		Label:     req.Label,
		Value:     req.Value,
		IsDefault: req.IsDefault,
	})
}

func (s *LedgerService) PatchWallet(ctx context.Context, actor *models.User, walletId string, req models.PatchWalletRequest) (*models.Wallet, error) {
	if req.Label == nil && req.Value == nil && req.IsDefault == nil {
		return nil, fmt.Errorf("%w: no fields to update", store.ErrValidation)
	}
	return s.store.UpdateWallet(ctx, store.UpdateWalletParams{
		WalletId:  walletId,
		UserId:    actor.Id,
		Label:     req.Label,
		Value:     req.Value,
		IsDefault: req.IsDefault,
	})
}

func (s *LedgerService) DeleteWallet(ctx context.Context, actor *models.User, walletId string) error {
	return s.store.DeleteWallet(ctx, actor.Id, walletId)
}
