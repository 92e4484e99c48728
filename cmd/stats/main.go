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
	"flag"
	"fmt"
	"sort"

	"p2p-exchange-go/internal/api"
	"p2p-exchange-go/internal/common"
	"p2p-exchange-go/internal/config"
	"p2p-exchange-go/internal/formance"
	"p2p-exchange-go/internal/models"

	"go.uber.org/zap"
)

func printStats(stats *models.Stats) {
	common.PrintSection("Ledger", common.DefaultWidth)
	fmt.Printf("%s %-15s: %d\n", common.BoxPrefix(false), "users", stats.Users)
	fmt.Printf("%s %-15s: %d (%d active)\n", common.BoxPrefix(false), "offers", stats.Offers, stats.ActiveOffers)
	fmt.Printf("%s %-15s: %d\n", common.BoxPrefix(false), "requests", stats.Requests)
	fmt.Printf("%s %-15s: %d\n", common.BoxPrefix(true), "transactions", stats.Transactions)

	if len(stats.Volume) == 0 {
		return
	}

	currencies := make([]string, 0, len(stats.Volume))
	for currency := range stats.Volume {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	common.PrintSection("Completed volume", common.DefaultWidth)
	for i, currency := range currencies {
		fmt.Printf("%s %20s\n", common.BoxPrefix(i == len(currencies)-1), common.FormatVolume(stats.Volume[currency], currency))
	}
}

func printUsers(page *models.UserPage) {
	common.PrintSection(fmt.Sprintf("Latest users (%d of %d)", len(page.Users), page.Total), common.DefaultWidth)
	for i, user := range page.Users {
		fmt.Printf("%s %-11s %-30s joined %s\n",
			common.BoxPrefix(i == len(page.Users)-1),
			common.ShortId(user.Id),
			common.UserLabel(user),
			user.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

// printPositions shows the settled net position of one user from the Formance journal
func printPositions(ctx context.Context, cfg *models.Config, userId string) error {
	httpClient, err := common.NewHttpClient()
	if err != nil {
		return err
	}

	journal, err := formance.NewService(ctx, cfg.Formance, httpClient, nil)
	if err != nil {
		return err
	}

	positions, err := journal.GetUserPositions(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to get positions: %w", err)
	}

	common.PrintSection("Settled positions of "+userId, common.DefaultWidth)
	if len(positions) == 0 {
		fmt.Printf("%s none\n", common.BoxPrefix(true))
		return nil
	}
	for i, position := range positions {
		fmt.Printf("%s %-15s: %20s\n", common.BoxPrefix(i == len(positions)-1), position.Asset, position.Balance.String())
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	usersFlag := flag.Int("users", 10, "Number of most recent users to list")
	positionsFlag := flag.String("positions", "", "User id whose settled positions to read from Formance (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	ledger := api.NewLedgerService(dbService, api.Dependencies{})

	stats, err := ledger.GetStats(ctx)
	if err != nil {
		logger.Fatal("Failed to read stats", zap.Error(err))
	}

	users, err := ledger.ListUsers(ctx, 1, *usersFlag)
	if err != nil {
		logger.Fatal("Failed to list users", zap.Error(err))
	}

	common.PrintHeader("P2P EXCHANGE REPORT", common.DefaultWidth)
	printStats(stats)
	printUsers(users)

	if *positionsFlag != "" {
		if cfg.Formance.StackURL == "" {
			logger.Fatal("FORMANCE_STACK_URL is required for -positions")
		}
		if err := printPositions(ctx, cfg, *positionsFlag); err != nil {
			logger.Fatal("Failed to read positions", zap.Error(err))
		}
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d users, %d completed transactions", stats.Users, stats.Transactions), common.DefaultWidth)
}
