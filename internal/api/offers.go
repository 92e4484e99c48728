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

// OfferQuery filters the offer board. Status defaults to ACTIVE unless Mine is set.
type OfferQuery struct {
	Type     string
	Status   string
	Crypto   string
	Network  string
	Currency string
	MinRate  decimal.NullDecimal
	MaxRate  decimal.NullDecimal
	Mine     bool
	Page     int
	PageSize int
}

func (s *LedgerService) CreateOffer(ctx context.Context, actor *models.User, req models.CreateOfferRequest) (*models.Offer, error) {
	params := store.CreateOfferParams{
		UserId:      actor.Id,
		Type:        strings.ToUpper(strings.TrimSpace(req.Type)),
		Crypto:      strings.ToUpper(strings.TrimSpace(req.Crypto)),
		Network:     strings.ToUpper(strings.TrimSpace(req.Network)),
		Amount:      req.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		Rate:        req.Rate,
		MinAmount:   req.MinAmount,
		MaxAmount:   req.MaxAmount,
		PaymentInfo: req.PaymentInfo,
	}

	if err := s.validateNewOffer(params); err != nil {
		return nil, err
	}

	offer, err := s.store.CreateOffer(ctx, params)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.LedgerEvent{
		Type:    events.OfferCreated,
		OfferId: offer.Id,
		UserId:  actor.Id,
		Amount:  offer.Amount.String(),
	})

	return offer, nil
}

func (s *LedgerService) validateNewOffer(params store.CreateOfferParams) error {
	if params.Type != models.OfferTypeBuy && params.Type != models.OfferTypeSell {
		return fmt.Errorf("%w: type must be BUY or SELL", store.ErrValidation)
	}
	if params.Crypto == "" || params.Network == "" || params.Currency == "" {
		return fmt.Errorf("%w: crypto, network and currency are required", store.ErrValidation)
	}
	if !params.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if !params.Rate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive", store.ErrValidation)
	}
	if params.MinAmount.Valid && !params.MinAmount.Decimal.IsPositive() {
		return fmt.Errorf("%w: minAmount must be positive", store.ErrValidation)
	}
	if params.MaxAmount.Valid && !params.MaxAmount.Decimal.IsPositive() {
		return fmt.Errorf("%w: maxAmount must be positive", store.ErrValidation)
	}
	if params.MinAmount.Valid && params.MaxAmount.Valid && params.MinAmount.Decimal.GreaterThan(params.MaxAmount.Decimal) {
		return fmt.Errorf("%w: minAmount must not exceed maxAmount", store.ErrValidation)
	}
	if s.assets != nil && !s.assets.Supports(params.Crypto, params.Network) {
		return fmt.Errorf("%w: %s on %s is not tradable", store.ErrValidation, params.Crypto, params.Network)
	}
	return nil
}

func (s *LedgerService) GetOffer(ctx context.Context, offerId string) (*models.Offer, error) {
	return s.store.GetOffer(ctx, offerId)
}

func (s *LedgerService) ListOffers(ctx context.Context, actor *models.User, query OfferQuery) ([]models.Offer, error) {
	page, pageSize := NormalizePage(query.Page, query.PageSize)

	filter := store.OfferFilter{
		Type:     strings.ToUpper(query.Type),
		Status:   strings.ToUpper(query.Status),
		Crypto:   strings.ToUpper(query.Crypto),
		Network:  strings.ToUpper(query.Network),
		Currency: strings.ToUpper(query.Currency),
		MinRate:  query.MinRate,
		MaxRate:  query.MaxRate,
		Limit:    pageSize,
		Offset:   pageOffset(page, pageSize),
	}
	if filter.Type != "" && filter.Type != models.OfferTypeBuy && filter.Type != models.OfferTypeSell {
		return nil, fmt.Errorf("%w: type must be BUY or SELL", store.ErrValidation)
	}
	if filter.Status != "" && filter.Status != models.OfferStatusActive && filter.Status != models.OfferStatusClosed {
		return nil, fmt.Errorf("%w: status must be ACTIVE or CLOSED", store.ErrValidation)
	}

	if query.Mine {
		filter.UserId = actor.Id
	} else if filter.Status == "" {
		filter.Status = models.OfferStatusActive
	}

	return s.store.ListOffers(ctx, filter)
}

// PatchOffer updates owner editable offer fields
func (s *LedgerService) PatchOffer(ctx context.Context, actor *models.User, offerId string, req models.PatchOfferRequest) (*models.Offer, error) {
	if !req.Rate.Valid && !req.MinAmount.Valid && !req.MaxAmount.Valid && req.PaymentInfo == nil && req.Status == nil {
		return nil, fmt.Errorf("%w: no fields to update", store.ErrValidation)
	}

	offer, err := withRetry(ctx, "patch_offer", func() (*models.Offer, error) {
		return s.store.UpdateOffer(ctx, store.UpdateOfferParams{
			OfferId:     offerId,
			ActorId:     actor.Id,
			Rate:        req.Rate,
			MinAmount:   req.MinAmount,
			MaxAmount:   req.MaxAmount,
			PaymentInfo: req.PaymentInfo,
			Status:      req.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	eventType := events.OfferUpdated
	if req.Status != nil && offer.Status == models.OfferStatusClosed {
		eventType = events.OfferClosed
	}
	s.publish(ctx, events.LedgerEvent{Type: eventType, OfferId: offer.Id, UserId: actor.Id})

	return offer, nil
}

// CloseOffer sets the offer CLOSED. Closing a closed offer succeeds without change.
// Pending requests keep their reserved amounts.
func (s *LedgerService) CloseOffer(ctx context.Context, actor *models.User, offerId string) (*models.Offer, error) {
	closed := models.OfferStatusClosed
	offer, err := withRetry(ctx, "close_offer", func() (*models.Offer, error) {
		return s.store.UpdateOffer(ctx, store.UpdateOfferParams{
			OfferId: offerId,
			ActorId: actor.Id,
			Status:  &closed,
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Offer closed", zap.String("offer_id", offer.Id), zap.String("user_id", actor.Id))
	s.publish(ctx, events.LedgerEvent{Type: events.OfferClosed, OfferId: offer.Id, UserId: actor.Id})

	return offer, nil
}
