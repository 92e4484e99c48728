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


package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"go.uber.org/zap"
)

const (
	CookieName        = "session"
	DefaultSessionTTL = 30 * 24 * time.Hour
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Manager issues and resolves cookie sessions backed by the store
type Manager struct {
	store        store.LedgerStore
	botToken     string
	maxAge       time.Duration
	ttl          time.Duration
	cookieSecure bool
	now          func() time.Time
}

func NewManager(ledgerStore store.LedgerStore, cfg models.AuthConfig, botToken string) *Manager {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	maxAge := cfg.InitDataMaxAge
	if maxAge <= 0 {
		maxAge = DefaultInitDataMaxAge
	}

	return &Manager{
		store:        ledgerStore,
		botToken:     botToken,
		maxAge:       maxAge,
		ttl:          ttl,
		cookieSecure: cfg.CookieSecure,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Login verifies initData, upserts the Telegram user and opens a session.
// It returns the raw token for the cookie; only its hash is persisted.
func (m *Manager) Login(ctx context.Context, initData string) (*models.User, string, time.Time, error) {
	payload, err := VerifyInitData(initData, m.botToken, m.maxAge, m.now())
	if err != nil {
		return nil, "", time.Time{}, err
	}

	tg := payload.User
	user, err := m.store.UpsertTelegramUser(ctx, store.UpsertUserParams{
		TelegramId:   tg.Id,
		Username:     optional(tg.Username),
		FirstName:    optional(tg.FirstName),
		LastName:     optional(tg.LastName),
		LanguageCode: optional(tg.LanguageCode),
		PhotoURL:     optional(tg.PhotoURL),
	})
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, err := newToken()
	if err != nil {
		return nil, "", time.Time{}, err
	}

	expiresAt := m.now().Add(m.ttl)
	if _, err := m.store.CreateSession(ctx, user.Id, hashToken(token), expiresAt); err != nil {
		return nil, "", time.Time{}, err
	}

	zap.L().Info("User logged in", zap.String("user_id", user.Id), zap.Int64("telegram_id", user.TelegramId))
	return user, token, expiresAt, nil
}

// Resolve maps a cookie token to its user. Expired sessions are deleted; valid ones slide forward.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	tokenHash := hashToken(token)
	session, err := m.store.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	now := m.now()
	if !session.ExpiresAt.After(now) {
		if err := m.store.DeleteSession(ctx, tokenHash); err != nil {
			zap.L().Warn("Failed to delete expired session", zap.String("session_id", session.Id), zap.Error(err))
		}
		return nil, ErrUnauthenticated
	}

	if err := m.store.TouchSession(ctx, session.Id, now.Add(m.ttl)); err != nil {
		zap.L().Warn("Failed to extend session", zap.String("session_id", session.Id), zap.Error(err))
	}

	user, err := m.store.GetUserById(ctx, session.UserId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.DeleteSession(ctx, hashToken(token))
}

func (m *Manager) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware attaches the session user, if any, to the request context
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.Resolve(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				zap.L().Error("Failed to resolve session", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(models.WithUser(r.Context(), user)))
	})
}

// TokenFromRequest returns the session cookie value, or "" when absent
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("unable to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
