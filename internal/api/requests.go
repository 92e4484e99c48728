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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestQuery filters request listings. Without OfferId the actor sees requests
// they made or received; with OfferId the actor must own the offer.
type RequestQuery struct {
	OfferId  string
	Status   string
	Page     int
	PageSize int
}

func (s *LedgerService) CreateRequest(ctx context.Context, actor *models.User, offerId string, amount decimal.Decimal) (*models.Request, error) {
	if strings.TrimSpace(offerId) == "" {
		return nil, fmt.Errorf("%w: offerId is required", store.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}

	request, err := withRetry(ctx, "create_request", func() (*models.Request, error) {
		return s.store.CreateRequest(ctx, store.CreateRequestParams{
			OfferId:     offerId,
			RequesterId: actor.Id,
			Amount:      amount,
		})
	})
	if err != nil {
		return nil, err
	}

	offer := request.Offer
	s.notify(ctx, models.NotificationEvent{
		UserId: offer.UserId,
		Type:   models.NotificationRequestCreated,
		Title:  "New request",
		Body: fmt.Sprintf("%s wants to %s %s %s on your offer at %s %s.",
			actor.DisplayName(), counterAction(offer.Type), request.Amount, offer.Crypto, offer.Rate, offer.Currency),
	})
	s.publish(ctx, events.LedgerEvent{
		Type:      events.RequestCreated,
		OfferId:   offer.Id,
		RequestId: request.Id,
		UserId:    actor.Id,
		Amount:    request.Amount.String(),
	})

	return request, nil
}

// counterAction is what the requester does against an offer of the given type
func counterAction(offerType string) string {
	if offerType == models.OfferTypeBuy {
		return "sell"
	}
	return "buy"
}

// GetRequest returns a request visible to its participants only
func (s *LedgerService) GetRequest(ctx context.Context, actor *models.User, requestId string) (*models.Request, error) {
	request, err := s.store.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	if !request.IsParticipant(actor.Id) {
		return nil, fmt.Errorf("request %s: %w", requestId, store.ErrForbidden)
	}
	return request, nil
}

func (s *LedgerService) ListRequests(ctx context.Context, actor *models.User, query RequestQuery) ([]models.Request, error) {
	page, pageSize := NormalizePage(query.Page, query.PageSize)

	filter := store.RequestFilter{
		Status: strings.ToUpper(query.Status),
		Limit:  pageSize,
		Offset: pageOffset(page, pageSize),
	}
	switch filter.Status {
	case "", models.RequestStatusPending, models.RequestStatusAccepted, models.RequestStatusRejected, models.RequestStatusCompleted:
	default:
		return nil, fmt.Errorf("%w: unknown status %s", store.ErrValidation, query.Status)
	}

	if query.OfferId != "" {
		offer, err := s.store.GetOffer(ctx, query.OfferId)
		if err != nil {
			return nil, err
		}
		if offer.UserId != actor.Id {
			return nil, fmt.Errorf("requests of offer %s: %w", offer.Id, store.ErrForbidden)
		}
		filter.OfferId = offer.Id
	} else {
		filter.UserId = actor.Id
	}

	return s.store.ListRequests(ctx, filter)
}

// AcceptRequest lets the offer owner accept a pending request
func (s *LedgerService) AcceptRequest(ctx context.Context, actor *models.User, requestId string) (*models.Request, error) {
	request, err := s.store.AcceptRequest(ctx, requestId, actor.Id)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, models.NotificationEvent{
		UserId: request.UserId,
		Type:   models.NotificationRequestAccepted,
		Title:  "Request accepted",
		Body: fmt.Sprintf("%s accepted your request for %s %s. Contact them to settle the deal.",
			actor.DisplayName(), request.Amount, request.Offer.Crypto),
	})
	s.publish(ctx, events.LedgerEvent{
		Type:      events.RequestAccepted,
		OfferId:   request.OfferId,
		RequestId: request.Id,
		UserId:    actor.Id,
	})

	return request, nil
}

// RejectRequest lets the offer owner reject a pending request; its amount returns to the offer
func (s *LedgerService) RejectRequest(ctx context.Context, actor *models.User, requestId string) (*models.Request, error) {
	request, err := withRetry(ctx, "reject_request", func() (*models.Request, error) {
		return s.store.RejectRequest(ctx, requestId, actor.Id)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, models.NotificationEvent{
		UserId: request.UserId,
		Type:   models.NotificationRequestRejected,
		Title:  "Request rejected",
		Body: fmt.Sprintf("%s rejected your request for %s %s.",
			actor.DisplayName(), request.Amount, request.Offer.Crypto),
	})
	s.publish(ctx, events.LedgerEvent{
		Type:      events.RequestRejected,
		OfferId:   request.OfferId,
		RequestId: request.Id,
		UserId:    actor.Id,
		Amount:    request.Amount.String(),
	})

	return request, nil
}

// CompleteRequest lets either participant settle an accepted request
func (s *LedgerService) CompleteRequest(ctx context.Context, actor *models.User, requestId string) (*models.Request, *models.Transaction, error) {
	request, transaction, err := s.store.CompleteRequest(ctx, requestId, actor.Id)
	if err != nil {
		return nil, nil, err
	}

	s.notify(ctx, models.NotificationEvent{
		UserId: transaction.Counterparty(actor.Id),
		Type:   models.NotificationRequestCompleted,
		Title:  "Deal completed",
		Body: fmt.Sprintf("%s marked the deal for %s %s as completed. You can now rate them.",
			actor.DisplayName(), transaction.Amount, transaction.Crypto),
	})
	s.publish(ctx, events.LedgerEvent{
		Type:      events.RequestCompleted,
		OfferId:   request.OfferId,
		RequestId: request.Id,
		UserId:    actor.Id,
	})
	s.publish(ctx, events.LedgerEvent{
		Type:          events.TransactionCompleted,
		OfferId:       transaction.OfferId,
		RequestId:     transaction.RequestId,
		TransactionId: transaction.Id,
		UserId:        actor.Id,
		Amount:        transaction.Amount.String(),
	})

	if s.journal != nil {
		if err := s.journal.RecordSettlement(ctx, transaction); err != nil {
			zap.L().Error("Failed to journal settlement",
				zap.String("transaction_id", transaction.Id),
				zap.Error(err))
		}
	}

	return request, transaction, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, actor *models.User, page, pageSize int) ([]models.Transaction, error) {
	page, pageSize = NormalizePage(page, pageSize)
	return s.store.ListTransactions(ctx, actor.Id, pageSize, pageOffset(page, pageSize))
}
