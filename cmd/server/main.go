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
	"context"
	"os/signal"
	"syscall"

	"p2p-exchange-go/internal/common"
	"p2p-exchange-go/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting P2P exchange",
		zap.String("addr", cfg.Server.Addr),
		zap.String("database", cfg.Database.Path))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return services.Server.Run(gctx)
	})
	g.Go(func() error {
		return services.Reminder.Run(gctx)
	})
	if services.Bot != nil {
		g.Go(func() error {
			return services.Bot.Run(gctx)
		})
	}

	zap.L().Info("P2P exchange running, press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		zap.L().Error("P2P exchange stopped with error", zap.Error(err))
		return
	}

	zap.L().Info("P2P exchange stopped gracefully")
}
