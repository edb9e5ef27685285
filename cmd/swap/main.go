package main

import (
	"context"
	"flag"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id or display name (required)")
	fromKindFlag := flag.String("from-kind", "card", "Source account kind")
	fromFlag := flag.String("from", "", "Source account id (optional when unambiguous)")
	toKindFlag := flag.String("to-kind", "crypto", "Destination account kind")
	toFlag := flag.String("to", "", "Destination account id (optional when unambiguous)")
	amountFlag := flag.String("amount", "", "Amount in the source currency (required)")
	quoteFlag := flag.Bool("quote", false, "Print the current USDT rates and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *quoteFlag {
		rates, err := services.Resolver.Rates(ctx)
		if err != nil {
			common.Exit("Rates unavailable", err)
		}
		common.PrintHeader("USDT / AED RATES", common.DefaultWidth)
		common.PrintField("Buy (USDT to AED)", rates.Buy.String())
		common.PrintField("Sell (AED to USDT)", rates.Sell.String())
		common.PrintField("Mid", rates.Mid.String())
		return
	}

	if *userFlag == "" || *amountFlag == "" {
		logger.Fatal("Missing required flags: --user, --amount")
	}
	amount, err := common.ParseAmount(*amountFlag)
	if err != nil {
		logger.Fatal("Invalid amount", zap.Error(err))
	}

	users, err := common.InitializeUsers(ctx, services.DbService, *userFlag, logger)
	if err != nil {
		common.Exit("User lookup failed", err)
	}
	from, err := common.FindAccount(users[0], models.AccountKind(*fromKindFlag), *fromFlag)
	if err != nil {
		common.Exit("Source account lookup failed", err)
	}
	to, err := common.FindAccount(users[0], models.AccountKind(*toKindFlag), *toFlag)
	if err != nil {
		common.Exit("Destination account lookup failed", err)
	}

	res, err := services.Engine.Swap(ctx, engine.SwapRequest{
		UserId:   users[0].Id,
		FromKind: from.Kind,
		FromId:   from.Id,
		ToKind:   to.Kind,
		ToId:     to.Id,
		Amount:   amount,
	})
	if err != nil {
		common.Exit("Swap rejected", err)
	}

	common.PrintResult("SWAP COMPLETED", res)
}
