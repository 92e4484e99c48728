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


package events

import (
	"context"
	"time"
)

// Ledger event types
const (
	OfferCreated         = "offer.created"
	OfferUpdated         = "offer.updated"
	OfferClosed          = "offer.closed"
	RequestCreated       = "request.created"
	RequestAccepted      = "request.accepted"
	RequestRejected      = "request.rejected"
	RequestCompleted     = "request.completed"
	TransactionCompleted = "transaction.completed"
	RatingCreated        = "rating.created"
)

// LedgerEvent describes a committed ledger change
type LedgerEvent struct {
	Type          string    `json:"type"`
	OfferId       string    `json:"offerId,omitempty"`
	RequestId     string    `json:"requestId,omitempty"`
	TransactionId string    `json:"transactionId,omitempty"`
	UserId        string    `json:"userId"`
	Amount        string    `json:"amount,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher ships ledger events after commit. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
