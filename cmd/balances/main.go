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

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers    int
	totalAccounts int
	totals        map[string]decimal.Decimal
}

func printAccount(acct models.Account, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	state := ""
	if !acct.Active {
		state = " [inactive]"
	}

	fmt.Printf("%s %-6s %-28s %22s (v%d, updated: %s)%s\n",
		symbol,
		acct.Kind,
		models.MaskKey(acct.Kind, acct.NaturalKey),
		common.FormatMoney(acct.Balance, acct.Currency),
		acct.Version,
		acct.UpdatedAt.Format("2006-01-02 15:04:05"),
		state)
	fmt.Printf("%s   id: %s\n", common.BoxDetailPrefix(isLast), acct.Id)
}

func printUserHeader(user common.UserInfo) {
	fmt.Printf("\n┌─ User: %s\n", user.Name)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Accounts: %d\n", len(user.Accounts))
	common.PrintBoxSeparator(78)
}

func generateReport(users []common.UserInfo) balanceStats {
	stats := balanceStats{totals: make(map[string]decimal.Decimal)}

	for _, user := range users {
		stats.totalUsers++
		if len(user.Accounts) == 0 {
			continue
		}

		printUserHeader(user)
		for i, acct := range user.Accounts {
			printAccount(acct, i == len(user.Accounts)-1)
			stats.totalAccounts++
			stats.totals[acct.Currency] = stats.totals[acct.Currency].Add(acct.Balance)
		}
	}
	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Filter by user id or display name (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only: no resolver or engine needed.
	logger.Info("Connecting to database", zap.String("driver", cfg.Database.Driver))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.InitializeUsers(ctx, dbService, *userFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("ACCOUNT BALANCE REPORT", common.DefaultWidth)
	stats := generateReport(users)

	summary := fmt.Sprintf("SUMMARY: %d accounts across %d users", stats.totalAccounts, stats.totalUsers)
	for _, c := range []string{models.CurrencyAED, models.CurrencyUSDT, models.CurrencyUSDC} {
		if total, ok := stats.totals[c]; ok {
			summary += fmt.Sprintf("\n  %s held by users: %s", c, common.FormatMoney(total, c))
		}
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("accounts", stats.totalAccounts))
}
