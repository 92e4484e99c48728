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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offer directions
const (
	OfferTypeBuy  = "BUY"
	OfferTypeSell = "SELL"
)

// Offer statuses
const (
	OfferStatusActive = "ACTIVE"
	OfferStatusClosed = "CLOSED"
)

// Request statuses
const (
	RequestStatusPending   = "PENDING"
	RequestStatusAccepted  = "ACCEPTED"
	RequestStatusRejected  = "REJECTED"
	RequestStatusCompleted = "COMPLETED"
)

// TransactionStatusCompleted is the only status a settlement record is created with
const TransactionStatusCompleted = "completed"

// User is identified externally by the Telegram id
type User struct {
	Id           string    `db:"id" json:"id"`
	TelegramId   int64     `db:"telegram_id" json:"telegramId"`
	Username     *string   `db:"username" json:"username"`
	FirstName    *string   `db:"first_name" json:"firstName"`
	LastName     *string   `db:"last_name" json:"lastName"`
	LanguageCode *string   `db:"language_code" json:"languageCode"`
	PhotoURL     *string   `db:"photo_url" json:"photoUrl"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// DisplayName returns the best human readable handle for the user
func (u *User) DisplayName() string {
	switch {
	case u.Username != nil && *u.Username != "":
		return "@" + *u.Username
	case u.FirstName != nil && *u.FirstName != "":
		return *u.FirstName
	default:
		return "user"
	}
}

// Session is a login session; only the sha256 of the cookie token is stored
type Session struct {
	Id        string    `db:"id"`
	UserId    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Offer is a standing intent to buy or sell a crypto asset.
// Remaining only changes when a request is created or rejected.
type Offer struct {
	Id          string              `db:"id" json:"id"`
	UserId      string              `db:"user_id" json:"userId"`
	Type        string              `db:"type" json:"type"`
	Crypto      string              `db:"crypto" json:"crypto"`
	Network     string              `db:"network" json:"network"`
	Amount      decimal.Decimal     `db:"amount" json:"amount"`
	Remaining   decimal.Decimal     `db:"remaining" json:"remaining"`
	Currency    string              `db:"currency" json:"currency"`
	Rate        decimal.Decimal     `db:"rate" json:"rate"`
	MinAmount   decimal.NullDecimal `db:"min_amount" json:"minAmount"`
	MaxAmount   decimal.NullDecimal `db:"max_amount" json:"maxAmount"`
	PaymentInfo *string             `db:"payment_info" json:"paymentInfo"`
	Status      string              `db:"status" json:"status"`
	Version     int64               `db:"version" json:"-"`
	CreatedAt   time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updatedAt"`
}

// Request is a bid against an offer
type Request struct {
	Id        string          `db:"id" json:"id"`
	OfferId   string          `db:"offer_id" json:"offerId"`
	UserId    string          `db:"user_id" json:"userId"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Status    string          `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`

	// Offer is populated by queries that join the owning offer
	Offer *Offer `json:"offer,omitempty"`
}

// IsParticipant reports whether userId is the requester or the offer owner.
// Requires Offer to be populated.
func (r *Request) IsParticipant(userId string) bool {
	return r.UserId == userId || (r.Offer != nil && r.Offer.UserId == userId)
}

// Transaction is the immutable settlement record of a completed request
type Transaction struct {
	Id          string          `db:"id" json:"id"`
	RequestId   string          `db:"request_id" json:"requestId"`
	OfferId     string          `db:"offer_id" json:"offerId"`
	BuyerId     string          `db:"buyer_id" json:"buyerId"`
	SellerId    string          `db:"seller_id" json:"sellerId"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Crypto      string          `db:"crypto" json:"crypto"`
	Currency    string          `db:"currency" json:"currency"`
	Rate        decimal.Decimal `db:"rate" json:"rate"`
	Status      string          `db:"status" json:"status"`
	CompletedAt time.Time       `db:"completed_at" json:"completedAt"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// Counterparty returns the other participant of the transaction
func (t *Transaction) Counterparty(userId string) string {
	if t.BuyerId == userId {
		return t.SellerId
	}
	return t.BuyerId
}

// Rating is a review of a transaction counterparty
type Rating struct {
	Id            string    `db:"id" json:"id"`
	UserId        string    `db:"user_id" json:"userId"`
	FromUserId    string    `db:"from_user_id" json:"fromUserId"`
	TransactionId string    `db:"transaction_id" json:"transactionId"`
	Score         int       `db:"score" json:"score"`
	Comment       *string   `db:"comment" json:"comment"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Wallet is a payment method or requisite owned by a user
type Wallet struct {
	Id        string    `db:"id" json:"id"`
	UserId    string    `db:"user_id" json:"userId"`
	Type      string    `db:"type" json:"type"`
	Label     *string   `db:"label" json:"label"`
	Value     string    `db:"value" json:"value"`
	IsDefault bool      `db:"is_default" json:"isDefault"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Notification belongs to exactly one recipient
type Notification struct {
	Id        string     `db:"id" json:"id"`
	UserId    string     `db:"user_id" json:"userId"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	ReadAt    *time.Time `db:"read_at" json:"readAt"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// RatingStats is the raw aggregate read from the store
type RatingStats struct {
	TotalDeals      int
	TotalVolume     decimal.Decimal
	RatingCount     int
	ScoreSum        int
	PositiveReviews int
	NegativeReviews int
}

// Stats holds platform wide counters
type Stats struct {
	Users        int                        `json:"users"`
	Offers       int                        `json:"offers"`
	ActiveOffers int                        `json:"activeOffers"`
	Requests     int                        `json:"requests"`
	Transactions int                        `json:"transactions"`
	Volume       map[string]decimal.Decimal `json:"volume"` // fiat volume keyed by currency
}
