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


package common

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"strings"

	"p2p-exchange-go/internal/api"
	"p2p-exchange-go/internal/auth"
	"p2p-exchange-go/internal/bot"
	"p2p-exchange-go/internal/cache"
	"p2p-exchange-go/internal/database"
	"p2p-exchange-go/internal/events"
	"p2p-exchange-go/internal/formance"
	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/notify"
	"p2p-exchange-go/internal/reminder"
	"p2p-exchange-go/internal/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services holds every long-lived component of the exchange process.
// Optional integrations (Kafka, Redis, Formance, Telegram) are nil when unconfigured.
type Services struct {
	DbService *database.Service
	Assets    *AssetCatalog
	Publisher events.Publisher
	Cache     *cache.RatingCache
	Journal   *formance.Service
	Bot       *bot.Bot
	Notifier  *notify.Service
	Ledger    *api.LedgerService
	Auth      *auth.Manager
	Reminder  *reminder.DealReminder
	Server    *server.Server
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	services := &Services{Publisher: events.NopPublisher{}}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services.DbService = dbService

	if err := services.initializeIntegrations(ctx, cfg); err != nil {
		services.Close()
		return nil, err
	}

	deps := api.Dependencies{
		Notifier:  services.Notifier,
		Publisher: services.Publisher,
	}
	if services.Assets != nil {
		deps.Assets = services.Assets
	}
	if services.Cache != nil {
		deps.Cache = services.Cache
	}
	if services.Journal != nil {
		deps.Journal = services.Journal
	}
	services.Ledger = api.NewLedgerService(dbService, deps)

	services.Auth = auth.NewManager(dbService, cfg.Auth, cfg.Telegram.BotToken)

	services.Reminder = reminder.NewDealReminder(reminder.DealReminderConfig{
		Store:           dbService,
		Notifier:        services.Notifier,
		Interval:        cfg.Reminder.Interval,
		StaleAfter:      cfg.Reminder.StaleAfter,
		CleanupInterval: cfg.Reminder.CleanupInterval,
	})

	serverDeps := server.Dependencies{
		Ledger:      services.Ledger,
		Auth:        services.Auth,
		AdminIDs:    cfg.Auth.AdminIDs,
		AdminAPIKey: cfg.Auth.AdminAPIKey,
	}
	if services.Bot != nil {
		serverDeps.Bot = services.Bot
	}
	services.Server = server.New(cfg.Server, serverDeps)

	return services, nil
}

func (cs *Services) initializeIntegrations(ctx context.Context, cfg *models.Config) error {
	assets, err := LoadAssetConfig(cfg.AssetsFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		zap.L().Warn("Assets file not found, every crypto/network pair is tradable", zap.String("file", cfg.AssetsFile))
	case err != nil:
		return err
	default:
		cs.Assets = NewAssetCatalog(assets)
		zap.L().Info("Asset catalog loaded", zap.Strings("pairs", cs.Assets.Symbols()))
	}

	httpClient, err := NewHttpClient()
	if err != nil {
		return err
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			return err
		}
		cs.Publisher = publisher
	}

	if cfg.Redis.Addr != "" {
		client, err := cache.NewConnection(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		cs.Cache = cache.NewRatingCache(client, cfg.Redis.TTL)
	}

	if cfg.Formance.StackURL != "" {
		journal, err := formance.NewService(ctx, cfg.Formance, httpClient, cs.Assets)
		if err != nil {
			return err
		}
		cs.Journal = journal
	}

	var sender notify.Sender
	if cfg.Telegram.BotToken != "" {
		telegramBot, err := bot.New(cfg.Telegram, bot.Options{Client: httpClient})
		if err != nil {
			return err
		}
		cs.Bot = telegramBot
		sender = notify.NewTelegramSender(telegramBot.Telebot())
	} else {
		zap.L().Warn("BOT_TOKEN is not set, Telegram login and delivery are disabled")
	}
	cs.Notifier = notify.NewService(cs.DbService, sender)

	return nil
}

// InitializeDatabaseOnly opens the store for read-only tooling
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// Close waits for in-flight notification deliveries and releases every connection
func (cs *Services) Close() {
	if cs.Notifier != nil {
		cs.Notifier.Wait()
	}
	if cs.Publisher != nil {
		if err := cs.Publisher.Close(); err != nil {
			zap.L().Warn("Failed to close event publisher", zap.Error(err))
		}
	}
	if cs.Cache != nil {
		if err := cs.Cache.Close(); err != nil {
			zap.L().Warn("Failed to close rating cache", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
