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


package main

import (
	"flag"
	"fmt"

	"p2p-exchange-go/internal/bot"
	"p2p-exchange-go/internal/common"
	"p2p-exchange-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	deleteFlag := flag.Bool("delete", false, "Remove the webhook so the server falls back to long polling")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Telegram.BotToken == "" {
		logger.Fatal("BOT_TOKEN is required")
	}

	httpClient, err := common.NewHttpClient()
	if err != nil {
		logger.Fatal("Failed to create HTTP client", zap.Error(err))
	}

	telegramBot, err := bot.New(cfg.Telegram, bot.Options{Client: httpClient})
	if err != nil {
		logger.Fatal("Failed to connect to Telegram", zap.Error(err))
	}

	if *deleteFlag {
		if err := telegramBot.DeleteWebhook(); err != nil {
			logger.Fatal("Failed to delete webhook", zap.Error(err))
		}
		if err := telegramBot.SetCommands(); err != nil {
			logger.Fatal("Failed to set bot commands", zap.Error(err))
		}
		common.PrintFooter("Webhook removed, the server will use long polling", common.DefaultWidth)
		return
	}

	if cfg.Telegram.WebhookURL == "" {
		logger.Fatal("TELEGRAM_WEBHOOK_URL is required to register a webhook")
	}

	result, err := telegramBot.Setup()
	if err != nil {
		logger.Fatal("Telegram setup failed", zap.Error(err))
	}

	common.PrintHeader("TELEGRAM WEBHOOK", common.DefaultWidth)
	fmt.Printf("%s %-16s: %s\n", common.BoxPrefix(false), "webhook", result.WebhookURL)
	fmt.Printf("%s %-16s: %d\n", common.BoxPrefix(false), "pending updates", result.PendingUpdates)
	lastError := result.LastError
	if lastError == "" {
		lastError = "none"
	}
	fmt.Printf("%s %-16s: %s\n", common.BoxPrefix(true), "last error", lastError)
	common.PrintFooter("Setup completed", common.DefaultWidth)
}
