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

// Stands in for the settlement worker's callbacks: completes or fails an
// outbound transaction, or confirms a received top-up with -confirm.
func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	txFlag := flag.String("tx", "", "Transaction id (required)")
	outcomeFlag := flag.String("outcome", string(models.StatusCompleted), "Outcome: completed or failed")
	refFlag := flag.String("ref", "", "External rail reference")
	reasonFlag := flag.String("reason", "", "Failure reason")
	confirmFlag := flag.Bool("confirm", false, "Confirm a pending top-up instead of settling")
	receivedFlag := flag.String("received", "", "Amount actually received (with -confirm)")
	flag.Parse()

	if *txFlag == "" {
		logger.Fatal("Missing required flag: --tx")
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

	if *confirmFlag {
		received, err := common.ParseAmount(*receivedFlag)
		if err != nil {
			logger.Fatal("Invalid received amount", zap.Error(err))
		}
		res, err := services.Engine.ConfirmTopUp(ctx, engine.ConfirmTopUpRequest{
			TransactionId:  *txFlag,
			ReceivedAmount: received,
			ExternalRef:    *refFlag,
		})
		if err != nil {
			common.Exit("Top-up confirmation rejected", err)
		}
		common.PrintResult("TOP-UP CONFIRMED", res)
		return
	}

	res, err := services.Engine.Settle(ctx, engine.SettleRequest{
		TransactionId: *txFlag,
		Outcome:       models.TransactionStatus(*outcomeFlag),
		ExternalRef:   *refFlag,
		Reason:        *reasonFlag,
	})
	if err != nil {
		common.Exit("Settlement rejected", err)
	}
	common.PrintResult("TRANSACTION SETTLED", res)
}
