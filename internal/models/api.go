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
	"github.com/shopspring/decimal"
)

// TelegramAuthRequest is the body of POST /auth/telegram
type TelegramAuthRequest struct {
	InitData string `json:"initData"`
}

// CreateOfferRequest is the body of POST /offers
type CreateOfferRequest struct {
	Type        string              `json:"type"` // "BUY" or "SELL"
	Crypto      string              `json:"crypto"`
	Network     string              `json:"network"`
	Amount      decimal.Decimal     `json:"amount"`
	Currency    string              `json:"currency"`
	Rate        decimal.Decimal     `json:"rate"`
	MinAmount   decimal.NullDecimal `json:"minAmount"`
	MaxAmount   decimal.NullDecimal `json:"maxAmount"`
	PaymentInfo *string             `json:"paymentInfo"`
}

// PatchOfferRequest is the body of PATCH /offers/{id}; absent fields are left unchanged
type PatchOfferRequest struct {
	Rate        decimal.NullDecimal `json:"rate"`
	MinAmount   decimal.NullDecimal `json:"minAmount"`
	MaxAmount   decimal.NullDecimal `json:"maxAmount"`
	PaymentInfo *string             `json:"paymentInfo"`
	Status      *string             `json:"status"`
}

// CreateRequestRequest is the body of POST /requests
type CreateRequestRequest struct {
	OfferId string          `json:"offerId"`
	Amount  decimal.Decimal `json:"amount"`
}

// CreateRatingRequest is the body of POST /ratings
type CreateRatingRequest struct {
	TransactionId string  `json:"transactionId"`
	Score         int     `json:"score"`
	Comment       *string `json:"comment"`
}

// CreateWalletRequest is the body of POST /wallets
type CreateWalletRequest struct {
	Type      string  `json:"type"`
	Label     *string `json:"label"`
	Value     string  `json:"value"`
	IsDefault bool    `json:"isDefault"`
}

// PatchWalletRequest is the body of PATCH /wallets/{id}
type PatchWalletRequest struct {
	Label     *string `json:"label"`
	Value     *string `json:"value"`
	IsDefault *bool   `json:"isDefault"`
}

// Badge is an achievement derived from a rating summary
type Badge struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// RatingSummary aggregates a user's deals and reviews
type RatingSummary struct {
	UserId          string          `json:"userId"`
	TotalDeals      int             `json:"totalDeals"`
	TotalVolume     decimal.Decimal `json:"totalVolume"`
	AverageRating   float64         `json:"averageRating"`
	PositiveReviews int             `json:"positiveReviews"`
	NegativeReviews int             `json:"negativeReviews"`
	Badges          []Badge         `json:"badges"`
}

// UserPage is a page of users for the admin listing
type UserPage struct {
	Users    []User `json:"users"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Total    int    `json:"total"`
}

// NotificationEvent is produced by ledger transitions and persisted by the emitter
type NotificationEvent struct {
	UserId string
	Type   string
	Title  string
	Body   string
}

// Notification types
const (
	NotificationRequestCreated   = "request_created"
	NotificationRequestAccepted  = "request_accepted"
	NotificationRequestRejected  = "request_rejected"
	NotificationRequestCompleted = "request_completed"
	NotificationRatingReceived   = "rating_received"
	NotificationDealReminder     = "deal_reminder"
)
