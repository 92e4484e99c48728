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


package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"p2p-exchange-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/telebot.v3"
)

const (
	WebhookPath = "/api/telegram/webhook"

	startText   = "Open the app:"
	buttonText  = "Open WebApp"
	pollTimeout = 10 * time.Second
)

// Options tune how the bot talks to the Bot API
type Options struct {
	Client      *http.Client
	APIURL      string // overrides https://api.telegram.org
	Offline     bool   // skip getMe on startup
	Synchronous bool   // run handlers on the caller goroutine
}

// Bot serves /start with a Mini App button and receives updates by polling or webhook
type Bot struct {
	bot        *telebot.Bot
	webAppURL  string
	webhookURL string
}

func New(cfg models.TelegramConfig, opts Options) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	settings := telebot.Settings{
		Token:       cfg.BotToken,
		URL:         opts.APIURL,
		Client:      opts.Client,
		Offline:     opts.Offline,
		Synchronous: opts.Synchronous,
		OnError: func(err error, c telebot.Context) {
			fields := []zap.Field{zap.Error(err)}
			if c != nil && c.Sender() != nil {
				fields = append(fields, zap.Int64("telegram_id", c.Sender().ID))
			}
			zap.L().Error("Bot handler failed", fields...)
		},
	}
	if cfg.WebhookURL == "" {
		settings.Poller = &telebot.LongPoller{Timeout: pollTimeout}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:        tb,
		webAppURL:  cfg.WebAppURL,
		webhookURL: cfg.WebhookURL,
	}
	tb.Handle("/start", b.handleStart)

	return b, nil
}

// Telebot exposes the underlying client for message delivery
func (b *Bot) Telebot() *telebot.Bot {
	return b.bot
}

func (b *Bot) handleStart(c telebot.Context) error {
	zap.L().Debug("Start command", zap.Int64("telegram_id", c.Sender().ID))

	return c.Send(startText, &telebot.ReplyMarkup{
		InlineKeyboard: [][]telebot.InlineButton{{
			{Text: buttonText, WebApp: &telebot.WebApp{URL: b.webAppURL}},
		}},
	})
}

// Run long-polls until ctx is cancelled. In webhook mode updates arrive through
// HandleUpdate and Run only waits for cancellation.
func (b *Bot) Run(ctx context.Context) error {
	if b.webhookURL != "" {
		zap.L().Info("Bot running in webhook mode", zap.String("webhook_url", WebhookEndpoint(b.webhookURL)))
		<-ctx.Done()
		return nil
	}

	zap.L().Info("Bot running in long polling mode")
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.bot.Start()
	return nil
}

// HandleUpdate feeds a webhook update to the registered handlers
func (b *Bot) HandleUpdate(update telebot.Update) {
	b.bot.ProcessUpdate(update)
}

// SetupResult reports what was registered with Telegram
type SetupResult struct {
	WebhookURL     string `json:"webhookUrl"`
	PendingUpdates int    `json:"pendingUpdates"`
	LastError      string `json:"lastError,omitempty"`
}

// Setup registers the webhook and the /start command for private chats
func (b *Bot) Setup() (*SetupResult, error) {
	if b.webhookURL == "" {
		return nil, errors.New("telegram webhook url is not configured")
	}

	endpoint := WebhookEndpoint(b.webhookURL)
	if err := b.bot.SetWebhook(&telebot.Webhook{
		Endpoint: &telebot.WebhookEndpoint{PublicURL: endpoint},
	}); err != nil {
		return nil, fmt.Errorf("failed to set webhook: %w", err)
	}

	if err := b.SetCommands(); err != nil {
		return nil, err
	}

	info, err := b.bot.Webhook()
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook info: %w", err)
	}

	zap.L().Info("Telegram webhook registered", zap.String("webhook_url", endpoint))
	return &SetupResult{
		WebhookURL:     endpoint,
		PendingUpdates: info.PendingUpdates,
		LastError:      info.ErrorMessage,
	}, nil
}

func (b *Bot) SetCommands() error {
	err := b.bot.SetCommands(
		[]telebot.Command{{Text: "start", Description: "Open the app"}},
		telebot.CommandScope{Type: telebot.CommandScopeAllPrivateChats},
	)
	if err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}
	return nil
}

// DeleteWebhook switches the bot back to long polling
func (b *Bot) DeleteWebhook() error {
	if err := b.bot.RemoveWebhook(); err != nil {
		return fmt.Errorf("failed to remove webhook: %w", err)
	}
	zap.L().Info("Telegram webhook removed")
	return nil
}

// WebhookEndpoint appends the webhook route to the public base URL
func WebhookEndpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + WebhookPath
}
