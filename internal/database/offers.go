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
	"time"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanOffer(row rowScanner) (*models.Offer, error) {
	var offer models.Offer
	err := row.Scan(&offer.Id, &offer.UserId, &offer.Type, &offer.Crypto, &offer.Network,
		&offer.Amount, &offer.Remaining, &offer.Currency, &offer.Rate,
		&offer.MinAmount, &offer.MaxAmount, &offer.PaymentInfo, &offer.Status, &offer.Version,
		&offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *Service) CreateOffer(ctx context.Context, params store.CreateOfferParams) (*models.Offer, error) {
	zap.L().Info("Creating offer",
		zap.String("user_id", params.UserId),
		zap.String("type", params.Type),
		zap.String("crypto", params.Crypto),
		zap.String("amount", params.Amount.String()),
		zap.String("rate", params.Rate.String()))

	now := s.now()
	offer, err := scanOffer(s.db.QueryRowContext(ctx, queryInsertOffer,
		uuid.New().String(), params.UserId, params.Type, params.Crypto, params.Network,
		params.Amount, params.Amount, params.Currency, params.Rate,
		params.MinAmount, params.MaxAmount, params.PaymentInfo, models.OfferStatusActive, now, now))
	if err != nil {
		zap.L().Error("Failed to insert offer", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert offer: %w", err)
	}

	return offer, nil
}

func (s *Service) GetOffer(ctx context.Context, offerId string) (*models.Offer, error) {
	offer, err := scanOffer(s.db.QueryRowContext(ctx, queryGetOffer, offerId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("offer %s: %w", offerId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query offer: %w", err)
	}
	return offer, nil
}

func getOfferTx(ctx context.Context, tx *sql.Tx, offerId string) (*models.Offer, error) {
	offer, err := scanOffer(tx.QueryRowContext(ctx, queryGetOffer, offerId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("offer %s: %w", offerId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load offer: %w", err)
	}
	return offer, nil
}

// updateRemainingTx writes a new remaining amount guarded by the version read earlier in the same unit.
func updateRemainingTx(ctx context.Context, tx *sql.Tx, offer *models.Offer, remaining decimal.Decimal, now time.Time) error {
	if remaining.IsNegative() || remaining.GreaterThan(offer.Amount) {
		return fmt.Errorf("remaining %s outside [0, %s] for offer %s", remaining, offer.Amount, offer.Id)
	}

	result, err := tx.ExecContext(ctx, queryUpdateOfferRemaining, remaining, now, offer.Id, offer.Version)
	if err != nil {
		return fmt.Errorf("failed to update remaining: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("remaining update failed - %w", store.ErrConcurrentModification)
	}

	offer.Remaining = remaining
	offer.Version++
	offer.UpdatedAt = now
	return nil
}

func (s *Service) ListOffers(ctx context.Context, filter store.OfferFilter) ([]models.Offer, error) {
	var conditions []string
	var args []any

	addCondition := func(condition string, arg any) {
		conditions = append(conditions, condition)
		args = append(args, arg)
	}

	if filter.Type != "" {
		addCondition("type = ?", filter.Type)
	}
	if filter.Status != "" {
		addCondition("status = ?", filter.Status)
	}
	if filter.Crypto != "" {
		addCondition("crypto = ?", filter.Crypto)
	}
	if filter.Network != "" {
		addCondition("network = ?", filter.Network)
	}
	if filter.Currency != "" {
		addCondition("currency = ?", filter.Currency)
	}
	if filter.MinRate.Valid {
		addCondition("CAST(rate AS REAL) >= ?", filter.MinRate.Decimal.InexactFloat64())
	}
	if filter.MaxRate.Valid {
		addCondition("CAST(rate AS REAL) <= ?", filter.MaxRate.Decimal.InexactFloat64())
	}
	if filter.UserId != "" {
		addCondition("user_id = ?", filter.UserId)
	}

	var query strings.Builder
	query.WriteString("SELECT " + offerColumns + " FROM offers")
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer closeRows(rows)

	offers := []models.Offer{}
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, *offer)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during offer row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating offer rows: %w", err)
	}

	return offers, nil
}

// UpdateOffer patches owner editable fields. Amount and remaining are never touched.
// Closing an already closed offer is a no-op success.
func (s *Service) UpdateOffer(ctx context.Context, params store.UpdateOfferParams) (*models.Offer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	offer, err := getOfferTx(ctx, tx, params.OfferId)
	if err != nil {
		return nil, err
	}
	if offer.UserId != params.ActorId {
		return nil, fmt.Errorf("offer %s belongs to another user: %w", offer.Id, store.ErrForbidden)
	}

	updated := *offer
	changed := false

	if params.Status != nil {
		status := strings.ToUpper(*params.Status)
		if status != models.OfferStatusActive && status != models.OfferStatusClosed {
			return nil, fmt.Errorf("%w: status must be ACTIVE or CLOSED", store.ErrValidation)
		}
		if status != offer.Status {
			updated.Status = status
			changed = true
		}
	}

	fieldsPatched := params.Rate.Valid || params.MinAmount.Valid || params.MaxAmount.Valid || params.PaymentInfo != nil
	if fieldsPatched && updated.Status == models.OfferStatusClosed {
		return nil, fmt.Errorf("offer %s is closed: %w", offer.Id, store.ErrOfferUnavailable)
	}

	if params.Rate.Valid {
		updated.Rate = params.Rate.Decimal
		changed = true
	}
	if params.MinAmount.Valid {
		updated.MinAmount = params.MinAmount
		changed = true
	}
	if params.MaxAmount.Valid {
		updated.MaxAmount = params.MaxAmount
		changed = true
	}
	if params.PaymentInfo != nil {
		updated.PaymentInfo = params.PaymentInfo
		changed = true
	}

	if err := validateOfferTerms(updated.Rate, updated.MinAmount, updated.MaxAmount); err != nil {
		return nil, err
	}

	if !changed {
		return offer, nil
	}

	now := s.now()
	result, err := tx.ExecContext(ctx, queryUpdateOfferFields,
		updated.Rate, updated.MinAmount, updated.MaxAmount, updated.PaymentInfo, updated.Status, now,
		offer.Id, offer.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update offer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("offer update failed - %w", store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	updated.Version++
	updated.UpdatedAt = now

	zap.L().Info("Offer updated",
		zap.String("offer_id", updated.Id),
		zap.String("status", updated.Status),
		zap.String("rate", updated.Rate.String()))

	return &updated, nil
}

// validateOfferTerms checks the owner editable terms of an offer.
func validateOfferTerms(rate decimal.Decimal, minAmount, maxAmount decimal.NullDecimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive", store.ErrValidation)
	}
	if minAmount.Valid && !minAmount.Decimal.IsPositive() {
		return fmt.Errorf("%w: minAmount must be positive", store.ErrValidation)
	}
	if maxAmount.Valid && !maxAmount.Decimal.IsPositive() {
		return fmt.Errorf("%w: maxAmount must be positive", store.ErrValidation)
	}
	if minAmount.Valid && maxAmount.Valid && minAmount.Decimal.GreaterThan(maxAmount.Decimal) {
		return fmt.Errorf("%w: minAmount must not exceed maxAmount", store.ErrValidation)
	}
	return nil
}
