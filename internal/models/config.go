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

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Telegram   TelegramConfig
	Auth       AuthConfig
	Reminder   ReminderConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	Formance   FormanceConfig
	AssetsFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// TelegramConfig holds bot and Mini App settings
type TelegramConfig struct {
	BotToken   string
	WebAppURL  string
	WebhookURL string // empty means long polling
}

// AuthConfig holds session and admin settings
type AuthConfig struct {
	InitDataMaxAge time.Duration
	SessionTTL     time.Duration
	CookieSecure   bool
	AdminIDs       []int64 // telegram ids
	AdminAPIKey    string
}

// ReminderConfig holds deal reminder worker settings
type ReminderConfig struct {
	Interval        time.Duration
	StaleAfter      time.Duration
	CleanupInterval time.Duration
}

// KafkaConfig holds ledger event stream settings; no brokers disables publishing
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RedisConfig holds rating cache settings; empty Addr disables caching
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// FormanceConfig holds settlement journal settings; empty StackURL disables journaling
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}
