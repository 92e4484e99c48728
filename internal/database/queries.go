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

const (
	userColumns = `id, telegram_id, username, first_name, last_name, language_code, photo_url, created_at, updated_at`

	offerColumns = `id, user_id, type, crypto, network, amount, remaining, currency, rate,
		min_amount, max_amount, payment_info, status, version, created_at, updated_at`

	joinedOfferColumns = `o.id, o.user_id, o.type, o.crypto, o.network, o.amount, o.remaining, o.currency, o.rate,
		o.min_amount, o.max_amount, o.payment_info, o.status, o.version, o.created_at, o.updated_at`

	requestColumns = `r.id, r.offer_id, r.user_id, r.amount, r.status, r.created_at, r.updated_at`

	transactionColumns = `id, request_id, offer_id, buyer_id, seller_id, amount, crypto, currency, rate,
		status, completed_at, created_at`

	ratingColumns = `id, user_id, from_user_id, transaction_id, score, comment, created_at`

	walletColumns = `id, user_id, type, label, value, is_default, created_at, updated_at`

	notificationColumns = `id, user_id, type, title, body, read_at, created_at`
)

const (
	// User queries
	queryUpsertUser = `
		INSERT INTO users (id, telegram_id, username, first_name, last_name, language_code, photo_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			language_code = excluded.language_code,
			photo_url = excluded.photo_url,
			updated_at = excluded.updated_at
		RETURNING ` + userColumns

	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ?`

	queryGetUserByTelegramId = `
		SELECT ` + userColumns + `
		FROM users
		WHERE telegram_id = ?`

	queryListUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryCountUsers = `SELECT COUNT(*) FROM users`

	// Session queries
	queryInsertSession = `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, user_id, token_hash, expires_at, created_at`

	queryGetSessionByTokenHash = `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM sessions
		WHERE token_hash = ?`

	queryTouchSession = `
		UPDATE sessions SET expires_at = ? WHERE id = ?`

	queryDeleteSession = `
		DELETE FROM sessions WHERE token_hash = ?`

	queryDeleteExpiredSessions = `
		DELETE FROM sessions WHERE expires_at < ?`

	// Offer queries
	queryInsertOffer = `
		INSERT INTO offers (id, user_id, type, crypto, network, amount, remaining, currency, rate,
			min_amount, max_amount, payment_info, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		RETURNING ` + offerColumns

	queryGetOffer = `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE id = ?`

	// Optimistic locking: zero rows affected means another unit changed the offer
	queryUpdateOfferRemaining = `
		UPDATE offers
		SET remaining = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryUpdateOfferFields = `
		UPDATE offers
		SET rate = ?, min_amount = ?, max_amount = ?, payment_info = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Request queries
	queryInsertRequest = `
		INSERT INTO requests (id, offer_id, user_id, amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetRequest = `
		SELECT ` + requestColumns + `, ` + joinedOfferColumns + `
		FROM requests r
		JOIN offers o ON o.id = r.offer_id
		WHERE r.id = ?`

	// Guarded by the expected current status so a lost race cannot transition twice
	queryUpdateRequestStatus = `
		UPDATE requests
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	queryListStaleAcceptedRequests = `
		SELECT ` + requestColumns + `, ` + joinedOfferColumns + `
		FROM requests r
		JOIN offers o ON o.id = r.offer_id
		WHERE r.status = 'ACCEPTED' AND r.updated_at < ?
		ORDER BY r.updated_at`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (id, request_id, offer_id, buyer_id, seller_id, amount, crypto, currency, rate,
			status, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + transactionColumns

	queryGetTransaction = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryListTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE buyer_id = ? OR seller_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryListDealAmounts = `
		SELECT amount
		FROM transactions
		WHERE (buyer_id = ? OR seller_id = ?) AND status = 'completed'`

	// Rating queries
	queryCheckExistingRating = `
		SELECT id FROM ratings WHERE transaction_id = ? AND from_user_id = ?`

	queryInsertRating = `
		INSERT INTO ratings (id, user_id, from_user_id, transaction_id, score, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + ratingColumns

	queryListRatings = `
		SELECT ` + ratingColumns + `
		FROM ratings
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryRatingAggregate = `
		SELECT COUNT(*),
		       COALESCE(SUM(score), 0),
		       COALESCE(SUM(CASE WHEN score >= 4 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN score <= 2 THEN 1 ELSE 0 END), 0)
		FROM ratings
		WHERE user_id = ?`

	// Wallet queries
	queryListWallets = `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`

	queryGetWallet = `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE id = ? AND user_id = ?`

	queryClearDefaultWallets = `
		UPDATE wallets SET is_default = 0, updated_at = ? WHERE user_id = ? AND is_default = 1`

	queryInsertWallet = `
		INSERT INTO wallets (id, user_id, type, label, value, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + walletColumns

	queryUpdateWallet = `
		UPDATE wallets
		SET label = ?, value = ?, is_default = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
		RETURNING ` + walletColumns

	queryDeleteWallet = `
		DELETE FROM wallets WHERE id = ? AND user_id = ?`

	// Notification queries
	queryInsertNotification = `
		INSERT INTO notifications (id, user_id, type, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING ` + notificationColumns

	queryListNotifications = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryListUnreadNotifications = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = ? AND read_at IS NULL
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryMarkNotificationsRead = `
		UPDATE notifications SET read_at = ? WHERE user_id = ? AND read_at IS NULL`

	// Admin queries
	queryPlatformCounts = `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM offers),
			(SELECT COUNT(*) FROM offers WHERE status = 'ACTIVE'),
			(SELECT COUNT(*) FROM requests),
			(SELECT COUNT(*) FROM transactions)`

	queryCompletedVolumeRows = `
		SELECT currency, amount, rate FROM transactions WHERE status = 'completed'`
)
