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


package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"p2p-exchange-go/internal/models"
)

func Load() (*models.Config, error) {
	var (
		connMaxLifetime, connMaxIdleTime, pingTimeout, busyTimeout    time.Duration
		readTimeout, writeTimeout, shutdownTimeout                    time.Duration
		initDataMaxAge, sessionTTL                                    time.Duration
		reminderInterval, reminderStaleAfter, reminderCleanupInterval time.Duration
		ratingCacheTTL                                                time.Duration
	)

	for _, d := range []struct {
		key          string
		target       *time.Duration
		defaultValue time.Duration
	}{
		{"DB_CONN_MAX_LIFETIME", &connMaxLifetime, 5 * time.Minute},
		{"DB_CONN_MAX_IDLE_TIME", &connMaxIdleTime, 30 * time.Second},
		{"DB_PING_TIMEOUT", &pingTimeout, 5 * time.Second},
		{"DB_BUSY_TIMEOUT", &busyTimeout, 5 * time.Second},
		{"HTTP_READ_TIMEOUT", &readTimeout, 15 * time.Second},
		{"HTTP_WRITE_TIMEOUT", &writeTimeout, 30 * time.Second},
		{"HTTP_SHUTDOWN_TIMEOUT", &shutdownTimeout, 10 * time.Second},
		{"INIT_DATA_MAX_AGE", &initDataMaxAge, 24 * time.Hour},
		{"SESSION_TTL", &sessionTTL, 30 * 24 * time.Hour},
		{"REMINDER_INTERVAL", &reminderInterval, 15 * time.Minute},
		{"REMINDER_STALE_AFTER", &reminderStaleAfter, 2 * time.Hour},
		{"REMINDER_CLEANUP_INTERVAL", &reminderCleanupInterval, time.Hour},
		{"RATING_CACHE_TTL", &ratingCacheTTL, 5 * time.Minute},
	} {
		value, err := getEnvDuration(d.key, d.defaultValue)
		if err != nil {
			return nil, err
		}
		*d.target = value
	}

	adminIds, err := getEnvInt64List("ADMIN_IDS")
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "p2p.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
		},
		Server: models.ServerConfig{
			Addr:            getEnvString("HTTP_ADDR", ":8080"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Telegram: models.TelegramConfig{
			BotToken:   os.Getenv("BOT_TOKEN"),
			WebAppURL:  os.Getenv("WEBAPP_URL"),
			WebhookURL: strings.TrimRight(os.Getenv("TELEGRAM_WEBHOOK_URL"), "/"),
		},
		Auth: models.AuthConfig{
			InitDataMaxAge: initDataMaxAge,
			SessionTTL:     sessionTTL,
			CookieSecure:   getEnvBool("COOKIE_SECURE", false),
			AdminIDs:       adminIds,
			AdminAPIKey:    os.Getenv("ADMIN_API_KEY"),
		},
		Reminder: models.ReminderConfig{
			Interval:        reminderInterval,
			StaleAfter:      reminderStaleAfter,
			CleanupInterval: reminderCleanupInterval,
		},
		Kafka: models.KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS"),
			Topic:   os.Getenv("KAFKA_TOPIC"),
		},
		Redis: models.RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      ratingCacheTTL,
		},
		Formance: models.FormanceConfig{
			StackURL:     os.Getenv("FORMANCE_STACK_URL"),
			ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
			ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
			LedgerName:   os.Getenv("FORMANCE_LEDGER"),
		},
		AssetsFile: getEnvString("ASSETS_FILE", "assets.yaml"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvInt64List(key string) ([]int64, error) {
	var values []int64
	for _, item := range getEnvList(key) {
		value, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id in %s: %q (%w)", key, item, err)
		}
		values = append(values, value)
	}
	return values, nil
}
