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

import "context"

// Amounts and rates are stored as TEXT decimal strings and parsed with shopspring/decimal.
const schema = `
	-- Users (identity keyed by Telegram id)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		telegram_id INTEGER NOT NULL UNIQUE,
		username TEXT,
		first_name TEXT,
		last_name TEXT,
		language_code TEXT,
		photo_url TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);

	-- Sessions (only the sha256 of the cookie token is stored)
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

	-- Offers (remaining is guarded by the version column)
	CREATE TABLE IF NOT EXISTS offers (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL CHECK (type IN ('BUY', 'SELL')),
		crypto TEXT NOT NULL,
		network TEXT NOT NULL,
		amount TEXT NOT NULL,
		remaining TEXT NOT NULL,
		currency TEXT NOT NULL,
		rate TEXT NOT NULL,
		min_amount TEXT,
		max_amount TEXT,
		payment_info TEXT,
		status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'CLOSED')),
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_offers_user_id ON offers(user_id);
	CREATE INDEX IF NOT EXISTS idx_offers_status_created_at ON offers(status, created_at);

	-- Requests
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		offer_id TEXT NOT NULL REFERENCES offers(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		amount TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('PENDING', 'ACCEPTED', 'REJECTED', 'COMPLETED')),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_offer_id ON requests(offer_id);
	CREATE INDEX IF NOT EXISTS idx_requests_user_id ON requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status_updated_at ON requests(status, updated_at);

	-- Transactions (one per completed request)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL UNIQUE REFERENCES requests(id),
		offer_id TEXT NOT NULL REFERENCES offers(id),
		buyer_id TEXT NOT NULL REFERENCES users(id),
		seller_id TEXT NOT NULL REFERENCES users(id),
		amount TEXT NOT NULL,
		crypto TEXT NOT NULL,
		currency TEXT NOT NULL,
		rate TEXT NOT NULL,
		status TEXT NOT NULL,
		completed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_buyer_id ON transactions(buyer_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_seller_id ON transactions(seller_id);

	-- Ratings (one per transaction and rater)
	CREATE TABLE IF NOT EXISTS ratings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		from_user_id TEXT NOT NULL REFERENCES users(id),
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		score INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
		comment TEXT,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(transaction_id, from_user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_ratings_user_id ON ratings(user_id);

	-- Wallets (payment methods)
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		label TEXT,
		value TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_user_id ON wallets(user_id);

	-- Notifications
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		read_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user_created_at ON notifications(user_id, created_at);
	`

func (s *Service) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
