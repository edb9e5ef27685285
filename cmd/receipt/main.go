package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

func printHistory(ctx context.Context, services *common.Services, user common.UserInfo, limit int) {
	txns, err := services.DbService.ListUserTransactions(ctx, user.Id, models.Page{Limit: limit})
	if err != nil {
		common.Exit("Failed to list transactions", err)
	}

	common.PrintHeader(fmt.Sprintf("TRANSACTIONS: %s", user.Name), common.WideWidth)
	for i, txn := range txns {
		fmt.Printf("%s %s  %-18s %-9s %-10s %22s\n",
			common.BoxPrefix(i == len(txns)-1),
			txn.Id,
			txn.Type,
			txn.Status,
			txn.CreatedAt.In(services.Location).Format("2006-01-02"),
			common.FormatMoney(txn.Amount, txn.Currency))
	}
	common.PrintFooter(fmt.Sprintf("%d transactions", len(txns)), common.WideWidth)
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Viewer id or display name (required)")
	txFlag := flag.String("tx", "", "Transaction id; omit to list the viewer's transactions")
	jsonFlag := flag.Bool("json", false, "Print the receipt as JSON")
	limitFlag := flag.Int("limit", 20, "Number of transactions to list")
	flag.Parse()

	if *userFlag == "" {
		logger.Fatal("Missing required flag: --user")
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

	if *txFlag == "" {
		printHistory(ctx, services, users[0], *limitFlag)
		return
	}

	receipt, err := services.Receipts.Build(ctx, *txFlag, users[0].Id)
	if err != nil {
		common.Exit("Receipt unavailable", err)
	}
	receipt.CreatedAt = receipt.CreatedAt.In(services.Location)

	if *jsonFlag {
		out, err := json.MarshalIndent(receipt, "", "  ")
		if err != nil {
			logger.Fatal("Failed to encode receipt", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}
	common.PrintReceipt(receipt)
}
