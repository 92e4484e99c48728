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


package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/telebot.v3"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`,
	"|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// TelegramSender delivers notifications through the bot
type TelegramSender struct {
	bot *telebot.Bot
}

func NewTelegramSender(bot *telebot.Bot) *TelegramSender {
	return &TelegramSender{bot: bot}
}

func (t *TelegramSender) SendMessage(ctx context.Context, telegramId int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := t.bot.Send(&telebot.User{ID: telegramId}, text, &telebot.SendOptions{
		ParseMode:             telebot.ModeMarkdownV2,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram send failed [chat=%d]: %w", telegramId, err)
	}
	return nil
}

// FormatMessage renders a bold title over the body in MarkdownV2
func FormatMessage(title, body string) string {
	return "*" + EscapeMarkdown(title) + "*\n\n" + EscapeMarkdown(body)
}

// EscapeMarkdown escapes MarkdownV2 control characters
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
