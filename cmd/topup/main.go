package main

import (
	"context"
	"flag"
	"fmt"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

// Opens a pending top-up and prints the instructions the user pays against.
// Funds arrive later through the settlement callback (settle -confirm).
func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id or display name (required)")
	railFlag := flag.String("rail", "bank", "Top-up rail: bank or crypto")
	bankRailFlag := flag.String("bank-rail", models.RailUAELocal, "Bank rail: UAE_LOCAL_AED or SWIFT_INTL")
	accountFlag := flag.String("account", "", "Bank account id to credit (defaults to the first active one)")
	expectedFlag := flag.String("expected", "", "Expected amount in AED, or in the token for crypto (optional)")
	tokenFlag := flag.String("token", models.CurrencyUSDT, "Token for crypto top-ups")
	networkFlag := flag.String("network", models.NetworkTRC20, "Network for crypto top-ups")
	flag.Parse()

	if *userFlag == "" {
		logger.Fatal("Missing required flag: --user")
	}
	expected, err := common.ParseAmount(*expectedFlag)
	if err != nil {
		logger.Fatal("Invalid expected amount", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := common.InitializeUsers(ctx, services.DbService, *userFlag, logger)
	if err != nil {
		common.Exit("User lookup failed", err)
	}
	userId := users[0].Id

	var res *engine.Result
	switch *railFlag {
	case "bank":
		res, err = services.Engine.InitiateBankTopUp(ctx, engine.BankTopUpRequest{
			UserId:         userId,
			Rail:           *bankRailFlag,
			BankAccountId:  *accountFlag,
			ExpectedAmount: expected,
		})
	case "crypto":
		res, err = services.Engine.InitiateCryptoTopUp(ctx, engine.CryptoTopUpRequest{
			UserId:         userId,
			Token:          *tokenFlag,
			Network:        *networkFlag,
			ExpectedAmount: expected,
		})
	default:
		logger.Fatal("Unknown rail, expected bank or crypto", zap.String("rail", *railFlag))
	}
	if err != nil {
		common.Exit("Top-up rejected", err)
	}

	receipt, err := services.Receipts.Build(ctx, res.Transaction.Id, userId)
	if err != nil {
		common.Exit("Failed to build instructions", err)
	}
	common.PrintReceipt(receipt)
	fmt.Printf("\nConfirm with: settle -confirm -tx %s -received <amount> -ref <bank or chain ref>\n", res.Transaction.Id)
}
