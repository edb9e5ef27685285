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

// Sends from one of the user's accounts to a card number, IBAN or wallet
// address. Card to card goes through the dedicated card transfer path.
func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Sender id or display name (required)")
	fromKindFlag := flag.String("from-kind", "card", "Source account kind: card, bank or crypto")
	fromFlag := flag.String("from", "", "Source account id (optional when unambiguous)")
	toKindFlag := flag.String("to-kind", "card", "Destination kind: card, bank or crypto")
	toFlag := flag.String("to", "", "Destination card number, IBAN or address (required)")
	amountFlag := flag.String("amount", "", "Amount in the source currency (required)")
	beneficiaryFlag := flag.String("beneficiary", "", "Beneficiary name for external bank destinations")
	bankFlag := flag.String("bank", "", "Bank name for external bank destinations")
	tokenFlag := flag.String("token", "", "Token for external crypto destinations")
	networkFlag := flag.String("network", "", "Network for external crypto destinations")
	flag.Parse()

	if *userFlag == "" || *toFlag == "" || *amountFlag == "" {
		logger.Fatal("Missing required flags: --user, --to, --amount")
	}
	amount, err := common.ParseAmount(*amountFlag)
	if err != nil {
		logger.Fatal("Invalid amount", zap.Error(err))
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
	sender := users[0]
	fromKind := models.AccountKind(*fromKindFlag)
	toKind := models.AccountKind(*toKindFlag)

	source, err := common.FindAccount(sender, fromKind, *fromFlag)
	if err != nil {
		common.Exit("Source account lookup failed", err)
	}

	var res *engine.Result
	if fromKind == models.AccountKindCard && toKind == models.AccountKindCard {
		res, err = services.Engine.CardTransfer(ctx, engine.CardTransferRequest{
			UserId:             sender.Id,
			SourceCardId:       source.Id,
			ReceiverCardNumber: *toFlag,
			Amount:             amount,
		})
	} else {
		res, err = services.Engine.Transfer(ctx, engine.TransferRequest{
			UserId:          sender.Id,
			SourceKind:      fromKind,
			SourceId:        source.Id,
			DestinationKind: toKind,
			DestinationKey:  *toFlag,
			Amount:          amount,
			BeneficiaryName: *beneficiaryFlag,
			BankName:        *bankFlag,
			Token:           *tokenFlag,
			Network:         *networkFlag,
		})
	}
	if err != nil {
		common.Exit("Transfer rejected", err)
	}

	common.PrintResult(fmt.Sprintf("TRANSFER %s", res.Transaction.Status), res)
}
