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


package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"p2p-exchange-go/internal/auth"
	"p2p-exchange-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/telebot.v3"
)

const healthTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.ledger.HealthCheck(ctx); err != nil {
		zap.L().Warn("Health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true})
}

type loginUser struct {
	Id         string  `json:"id"`
	TelegramId int64   `json:"telegramId"`
	Username   *string `json:"username"`
}

func (s *Server) handleTelegramLogin(w http.ResponseWriter, r *http.Request) {
	var req models.TelegramAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.InitData) == "" {
		writeError(w, http.StatusBadRequest, "initData is required")
		return
	}

	user, token, expiresAt, err := s.auth.Login(r.Context(), req.InitData)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidInitData) || errors.Is(err, auth.ErrInitDataExpired) {
			zap.L().Info("Rejected Telegram login", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "invalid initData")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	s.auth.SetCookie(w, token, expiresAt)
	writeOK(w, http.StatusOK, "user", loginUser{Id: user.Id, TelegramId: user.TelegramId, Username: user.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, envelope{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := models.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, envelope{
		"ok":      true,
		"user":    user,
		"isAdmin": s.adminIds[user.TelegramId],
	})
}

// handleTelegramWebhook always answers 200 so Telegram does not redeliver
func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil {
		writeJSON(w, http.StatusOK, envelope{"ok": true})
		return
	}

	var update telebot.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		zap.L().Warn("Failed to decode Telegram update", zap.Error(err))
		writeJSON(w, http.StatusOK, envelope{"ok": true})
		return
	}

	s.bot.HandleUpdate(update)
	writeJSON(w, http.StatusOK, envelope{"ok": true})
}

func (s *Server) handleTelegramSetup(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if s.adminAPIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if s.bot == nil {
		writeError(w, http.StatusInternalServerError, "telegram bot is not configured")
		return
	}

	result, err := s.bot.Setup()
	if err != nil {
		zap.L().Error("Telegram setup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, http.StatusOK, "webhook", result)
}
