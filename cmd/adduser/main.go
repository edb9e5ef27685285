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
	"strings"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type newAccount struct {
	kind        models.AccountKind
	currency    string
	key         string
	institution string
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func validateToken(token, network string) error {
	if !models.IsStablecoin(token) {
		return fmt.Errorf("unsupported token %s", token)
	}
	switch network {
	case models.NetworkTRC20, models.NetworkERC20, models.NetworkBEP20, models.NetworkSOL:
		return nil
	}
	return fmt.Errorf("unsupported network %s", network)
}

func createAccounts(ctx context.Context, dbService *database.Service, userId, name string, wanted []newAccount) int {
	created := 0
	for _, want := range wanted {
		acct := &models.Account{
			Kind:        want.kind,
			OwnerId:     userId,
			Currency:    want.currency,
			Balance:     decimal.Zero,
			Active:      true,
			NaturalKey:  want.key,
			HolderName:  name,
			Institution: want.institution,
		}
		if err := dbService.CreateAccount(ctx, acct); err != nil {
			zap.L().Error("Failed to create account",
				zap.String("kind", string(want.kind)),
				zap.String("key", models.MaskKey(want.kind, want.key)),
				zap.Error(err))
			common.PrintFailure("%s %s: %v", want.kind, models.MaskKey(want.kind, want.key), err)
			continue
		}
		common.PrintSuccess("%-6s %-28s %s (%s)", want.kind, models.MaskKey(want.kind, want.key), acct.Currency, acct.Id)
		created++
	}
	return created
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "Display name (required)")
	avatarFlag := flag.String("avatar", "", "Avatar URL")
	cardFlag := flag.String("card", "", "Card number to register")
	ibanFlag := flag.String("iban", "", "IBAN of the user's bank account")
	bankFlag := flag.String("bank", "", "Bank name for -iban")
	addressFlag := flag.String("address", "", "Crypto wallet address to register")
	tokenFlag := flag.String("token", models.CurrencyUSDT, "Wallet token for -address (USDT or USDC)")
	networkFlag := flag.String("network", models.NetworkTRC20, "Wallet network for -address")
	flag.Parse()

	name := strings.TrimSpace(*nameFlag)
	if err := validateName(name); err != nil {
		logger.Fatal("Invalid name", zap.Error(err))
	}

	var wanted []newAccount
	if *cardFlag != "" {
		wanted = append(wanted, newAccount{kind: models.AccountKindCard, currency: models.CurrencyAED, key: *cardFlag})
	}
	if *ibanFlag != "" {
		wanted = append(wanted, newAccount{kind: models.AccountKindBank, currency: models.CurrencyAED, key: *ibanFlag, institution: *bankFlag})
	}
	if *addressFlag != "" {
		if err := validateToken(*tokenFlag, *networkFlag); err != nil {
			logger.Fatal("Invalid wallet", zap.Error(err))
		}
		wanted = append(wanted, newAccount{kind: models.AccountKindCrypto, currency: *tokenFlag, key: *addressFlag, institution: *networkFlag})
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	userId := uuid.New().String()
	if err := dbService.UpsertProfile(ctx, &models.Profile{
		UserId:      userId,
		DisplayName: name,
		AvatarUrl:   *avatarFlag,
	}); err != nil {
		logger.Fatal("Failed to create profile", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("USER CREATED: %s", name), common.DefaultWidth)
	common.PrintField("User ID", userId)
	common.PrintField("Avatar", *avatarFlag)
	fmt.Println()

	created := createAccounts(ctx, dbService, userId, name, wanted)
	common.PrintFooter(fmt.Sprintf("%d of %d accounts registered", created, len(wanted)), common.DefaultWidth)

	logger.Info("User added",
		zap.String("user_id", userId),
		zap.String("name", name),
		zap.Int("accounts", created))
}
