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
	"go.uber.org/zap"
)

// scanRequest reads requestColumns followed by joinedOfferColumns
func scanRequest(row rowScanner) (*models.Request, error) {
	var request models.Request
	var offer models.Offer
	err := row.Scan(&request.Id, &request.OfferId, &request.UserId, &request.Amount, &request.Status,
		&request.CreatedAt, &request.UpdatedAt,
		&offer.Id, &offer.UserId, &offer.Type, &offer.Crypto, &offer.Network,
		&offer.Amount, &offer.Remaining, &offer.Currency, &offer.Rate,
		&offer.MinAmount, &offer.MaxAmount, &offer.PaymentInfo, &offer.Status, &offer.Version,
		&offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		return nil, err
	}
	request.Offer = &offer
	return &request, nil
}

func getRequestTx(ctx context.Context, tx *sql.Tx, requestId string) (*models.Request, error) {
	request, err := scanRequest(tx.QueryRowContext(ctx, queryGetRequest, requestId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", requestId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	return request, nil
}

// transitionRequestTx moves a request from one status to another. A zero row count means
// another unit already moved it, which is reported as lostRace.
func transitionRequestTx(ctx context.Context, tx *sql.Tx, request *models.Request, from, to string, now time.Time, lostRace error) error {
	result, err := tx.ExecContext(ctx, queryUpdateRequestStatus, to, now, request.Id, from)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("request %s is no longer %s: %w", request.Id, from, lostRace)
	}

	request.Status = to
	request.UpdatedAt = now
	return nil
}

// CreateRequest reserves amount from the offer: the request insert and the remaining
// decrement commit together or not at all.
func (s *Service) CreateRequest(ctx context.Context, params store.CreateRequestParams) (*models.Request, error) {
	zap.L().Info("Creating request",
		zap.String("offer_id", params.OfferId),
		zap.String("user_id", params.RequesterId),
		zap.String("amount", params.Amount.String()))

	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	offer, err := getOfferTx(ctx, tx, params.OfferId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("offer %s does not exist: %w", params.OfferId, store.ErrOfferUnavailable)
		}
		return nil, err
	}

	if offer.Status != models.OfferStatusActive {
		return nil, fmt.Errorf("offer %s is %s: %w", offer.Id, strings.ToLower(offer.Status), store.ErrOfferUnavailable)
	}
	if offer.UserId == params.RequesterId {
		return nil, store.ErrSelfRequest
	}
	if offer.MinAmount.Valid && params.Amount.LessThan(offer.MinAmount.Decimal) {
		return nil, fmt.Errorf("amount %s below minimum %s: %w", params.Amount, offer.MinAmount.Decimal, store.ErrAmountOutOfBounds)
	}
	if offer.MaxAmount.Valid && params.Amount.GreaterThan(offer.MaxAmount.Decimal) {
		return nil, fmt.Errorf("amount %s above maximum %s: %w", params.Amount, offer.MaxAmount.Decimal, store.ErrAmountOutOfBounds)
	}
	if params.Amount.GreaterThan(offer.Remaining) {
		return nil, fmt.Errorf("amount %s exceeds remaining %s: %w", params.Amount, offer.Remaining, store.ErrInsufficientRemaining)
	}

	now := s.now()
	request := &models.Request{
		Id:        uuid.New().String(),
		OfferId:   offer.Id,
		UserId:    params.RequesterId,
		Amount:    params.Amount,
		Status:    models.RequestStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = tx.ExecContext(ctx, queryInsertRequest,
		request.Id, request.OfferId, request.UserId, request.Amount, request.Status, request.CreatedAt, request.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert request: %w", err)
	}

	if err := updateRemainingTx(ctx, tx, offer, offer.Remaining.Sub(params.Amount), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	request.Offer = offer

	zap.L().Info("Request created",
		zap.String("request_id", request.Id),
		zap.String("offer_id", offer.Id),
		zap.String("remaining", offer.Remaining.String()))

	return request, nil
}

func (s *Service) GetRequest(ctx context.Context, requestId string) (*models.Request, error) {
	request, err := scanRequest(s.db.QueryRowContext(ctx, queryGetRequest, requestId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", requestId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query request: %w", err)
	}
	return request, nil
}

// ListRequests returns requests newest first. UserId matches both the requester and the offer owner.
func (s *Service) ListRequests(ctx context.Context, filter store.RequestFilter) ([]models.Request, error) {
	var conditions []string
	var args []any

	if filter.UserId != "" {
		conditions = append(conditions, "(r.user_id = ? OR o.user_id = ?)")
		args = append(args, filter.UserId, filter.UserId)
	}
	if filter.OfferId != "" {
		conditions = append(conditions, "r.offer_id = ?")
		args = append(args, filter.OfferId)
	}
	if filter.Status != "" {
		conditions = append(conditions, "r.status = ?")
		args = append(args, filter.Status)
	}

	var query strings.Builder
	query.WriteString("SELECT " + requestColumns + ", " + joinedOfferColumns +
		" FROM requests r JOIN offers o ON o.id = r.offer_id")
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY r.created_at DESC, r.rowid DESC LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer closeRows(rows)

	return collectRequests(rows)
}

// ListStaleAcceptedRequests returns accepted requests last updated before the cutoff
func (s *Service) ListStaleAcceptedRequests(ctx context.Context, before time.Time) ([]models.Request, error) {
	rows, err := s.db.QueryContext(ctx, queryListStaleAcceptedRequests, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list stale requests: %w", err)
	}
	defer closeRows(rows)

	return collectRequests(rows)
}

func collectRequests(rows *sql.Rows) ([]models.Request, error) {
	requests := []models.Request{}
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, *request)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during request row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating request rows: %w", err)
	}

	return requests, nil
}

// AcceptRequest moves a pending request to ACCEPTED. Only the offer owner may accept.
func (s *Service) AcceptRequest(ctx context.Context, requestId, actorId string) (*models.Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	request, err := getRequestTx(ctx, tx, requestId)
	if err != nil {
		return nil, err
	}
	if request.Offer.UserId != actorId {
		return nil, fmt.Errorf("only the offer owner can accept: %w", store.ErrForbidden)
	}
	if request.Status != models.RequestStatusPending {
		return nil, fmt.Errorf("request %s is %s: %w", request.Id, request.Status, store.ErrAlreadyProcessed)
	}

	now := s.now()
	if err := transitionRequestTx(ctx, tx, request, models.RequestStatusPending, models.RequestStatusAccepted, now, store.ErrAlreadyProcessed); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Request accepted", zap.String("request_id", request.Id), zap.String("offer_id", request.OfferId))
	return request, nil
}

// RejectRequest moves a pending request to REJECTED and returns its amount to the offer.
func (s *Service) RejectRequest(ctx context.Context, requestId, actorId string) (*models.Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	request, err := getRequestTx(ctx, tx, requestId)
	if err != nil {
		return nil, err
	}
	if request.Offer.UserId != actorId {
		return nil, fmt.Errorf("only the offer owner can reject: %w", store.ErrForbidden)
	}
	if request.Status != models.RequestStatusPending {
		return nil, fmt.Errorf("request %s is %s: %w", request.Id, request.Status, store.ErrAlreadyProcessed)
	}

	now := s.now()
	if err := transitionRequestTx(ctx, tx, request, models.RequestStatusPending, models.RequestStatusRejected, now, store.ErrAlreadyProcessed); err != nil {
		return nil, err
	}

	offer := request.Offer
	if err := updateRemainingTx(ctx, tx, offer, offer.Remaining.Add(request.Amount), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Request rejected",
		zap.String("request_id", request.Id),
		zap.String("offer_id", offer.Id),
		zap.String("remaining", offer.Remaining.String()))

	return request, nil
}

// CompleteRequest settles an accepted request. Either participant may complete it.
// Buyer and seller follow the offer direction: the owner of a SELL offer is the seller.
func (s *Service) CompleteRequest(ctx context.Context, requestId, actorId string) (*models.Request, *models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	request, err := getRequestTx(ctx, tx, requestId)
	if err != nil {
		return nil, nil, err
	}
	if !request.IsParticipant(actorId) {
		return nil, nil, fmt.Errorf("only deal participants can complete: %w", store.ErrForbidden)
	}
	if request.Status != models.RequestStatusAccepted {
		return nil, nil, fmt.Errorf("request %s is %s: %w", request.Id, request.Status, store.ErrNotAccepted)
	}

	now := s.now()
	if err := transitionRequestTx(ctx, tx, request, models.RequestStatusAccepted, models.RequestStatusCompleted, now, store.ErrNotAccepted); err != nil {
		return nil, nil, err
	}

	offer := request.Offer
	buyerId, sellerId := request.UserId, offer.UserId
	if offer.Type == models.OfferTypeBuy {
		buyerId, sellerId = offer.UserId, request.UserId
	}

	transaction, err := scanTransaction(tx.QueryRowContext(ctx, queryInsertTransaction,
		uuid.New().String(), request.Id, offer.Id, buyerId, sellerId,
		request.Amount, offer.Crypto, offer.Currency, offer.Rate,
		models.TransactionStatusCompleted, now, now))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Request completed",
		zap.String("request_id", request.Id),
		zap.String("transaction_id", transaction.Id),
		zap.String("buyer_id", buyerId),
		zap.String("seller_id", sellerId),
		zap.String("amount", transaction.Amount.String()))

	return request, transaction, nil
}
