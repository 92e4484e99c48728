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
	"errors"
	"net/http"
	"time"

	"p2p-exchange-go/internal/api"
	"p2p-exchange-go/internal/auth"
	"p2p-exchange-go/internal/bot"
	"p2p-exchange-go/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gopkg.in/telebot.v3"
)

const defaultShutdownTimeout = 10 * time.Second

// TelegramBot receives webhook updates and registers the webhook
type TelegramBot interface {
	HandleUpdate(update telebot.Update)
	Setup() (*bot.SetupResult, error)
}

// Dependencies wires the HTTP surface to the services behind it
type Dependencies struct {
	Ledger      *api.LedgerService
	Auth        *auth.Manager
	Bot         TelegramBot // nil disables the webhook
	AdminIDs    []int64
	AdminAPIKey string
}

type Server struct {
	ledger      *api.LedgerService
	auth        *auth.Manager
	bot         TelegramBot
	adminIds    map[int64]bool
	adminAPIKey string

	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func New(cfg models.ServerConfig, deps Dependencies) *Server {
	adminIds := make(map[int64]bool, len(deps.AdminIDs))
	for _, id := range deps.AdminIDs {
		adminIds[id] = true
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		ledger:          deps.Ledger,
		auth:            deps.Auth,
		bot:             deps.Bot,
		adminIds:        adminIds,
		adminAPIKey:     deps.AdminAPIKey,
		shutdownTimeout: shutdownTimeout,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Handler serves every route both at the root and under /api
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.auth.Middleware)

	routes := s.routes()
	r.Mount("/api", routes)
	r.Mount("/", routes)

	return r
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)

	r.Post("/auth/telegram", s.handleTelegramLogin)
	r.Post("/telegram/webhook", s.handleTelegramWebhook)
	r.Get("/telegram/setup", s.handleTelegramSetup)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/auth/logout", s.handleLogout)
		r.Get("/me", s.handleMe)

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", s.handleListOffers)
			r.Post("/", s.handleCreateOffer)
			r.Get("/{id}", s.handleGetOffer)
			r.Patch("/{id}", s.handlePatchOffer)
			r.Delete("/{id}", s.handleCloseOffer)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", s.handleListRequests)
			r.Post("/", s.handleCreateRequest)
			r.Get("/{id}", s.handleGetRequest)
			r.Post("/{id}/accept", s.handleAcceptRequest)
			r.Post("/{id}/reject", s.handleRejectRequest)
			r.Post("/{id}/complete", s.handleCompleteRequest)
		})

		r.Get("/transactions", s.handleListTransactions)

		r.Get("/ratings", s.handleListRatings)
		r.Post("/ratings", s.handleCreateRating)
		r.Get("/users/{id}/rating", s.handleRatingSummary)

		r.Get("/notifications", s.handleListNotifications)
		r.Patch("/notifications", s.handleMarkNotificationsRead)

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", s.handleListWallets)
			r.Post("/", s.handleCreateWallet)
			r.Patch("/{id}", s.handlePatchWallet)
			r.Delete("/{id}", s.handleDeleteWallet)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/stats", s.handleStats)
			r.Get("/users", s.handleListUsers)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down HTTP server", zap.Duration("timeout", s.shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
