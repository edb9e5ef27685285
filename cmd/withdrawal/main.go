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
	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type withdrawalRequest struct {
	user        string
	rail        string
	fromKind    models.AccountKind
	fromId      string
	amount      decimal.Decimal
	iban        string
	beneficiary string
	bank        string
	address     string
	token       string
	network     string
}

func parseAndValidateFlags() (*withdrawalRequest, error) {
	userFlag := flag.String("user", "", "User id or display name (required)")
	railFlag := flag.String("rail", "bank", "Withdrawal rail: bank or crypto")
	fromKindFlag := flag.String("from-kind", "", "Source account kind (defaults to bank for -rail bank, crypto for -rail crypto)")
	fromFlag := flag.String("from", "", "Source account id (optional when the user has one account of that kind)")
	amountFlag := flag.String("amount", "", "Amount to withdraw, AED for bank and token units for crypto (required)")
	ibanFlag := flag.String("iban", "", "Destination IBAN (bank rail)")
	beneficiaryFlag := flag.String("beneficiary", "", "Beneficiary name (bank rail)")
	bankFlag := flag.String("bank", "", "Beneficiary bank name (bank rail)")
	addressFlag := flag.String("address", "", "Destination address (crypto rail)")
	tokenFlag := flag.String("token", models.CurrencyUSDT, "Token (crypto rail)")
	networkFlag := flag.String("network", models.NetworkTRC20, "Network (crypto rail)")
	flag.Parse()

	if *userFlag == "" || *amountFlag == "" {
		return nil, fmt.Errorf("flags are required: --user, --amount")
	}

	amount, err := common.ParseAmount(*amountFlag)
	if err != nil {
		return nil, err
	}

	req := &withdrawalRequest{
		user:        *userFlag,
		rail:        *railFlag,
		fromKind:    models.AccountKind(*fromKindFlag),
		fromId:      *fromFlag,
		amount:      amount,
		iban:        *ibanFlag,
		beneficiary: *beneficiaryFlag,
		bank:        *bankFlag,
		address:     *addressFlag,
		token:       *tokenFlag,
		network:     *networkFlag,
	}

	switch req.rail {
	case "bank":
		if req.iban == "" || req.beneficiary == "" {
			return nil, fmt.Errorf("bank rail requires --iban and --beneficiary")
		}
		if req.fromKind == "" {
			req.fromKind = models.AccountKindBank
		}
	case "crypto":
		if req.address == "" {
			return nil, fmt.Errorf("crypto rail requires --address")
		}
		if req.fromKind == "" {
			req.fromKind = models.AccountKindCrypto
		}
	default:
		return nil, fmt.Errorf("unknown rail %q, expected bank or crypto", req.rail)
	}
	return req, nil
}

func withdraw(ctx context.Context, services *common.Services, req *withdrawalRequest, source *models.Account, userId string) (*engine.Result, error) {
	if req.rail == "bank" {
		return services.Engine.BankWithdrawal(ctx, engine.BankWithdrawalRequest{
			UserId:          userId,
			SourceKind:      source.Kind,
			SourceId:        source.Id,
			Iban:            req.iban,
			BeneficiaryName: req.beneficiary,
			BankName:        req.bank,
			Amount:          req.amount,
		})
	}
	return services.Engine.CryptoWithdrawal(ctx, engine.CryptoWithdrawalRequest{
		UserId:     userId,
		SourceKind: source.Kind,
		SourceId:   source.Id,
		Token:      req.token,
		Network:    req.network,
		Address:    req.address,
		Amount:     req.amount,
	})
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		logger.Fatal("Invalid arguments", zap.Error(err))
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

	users, err := common.InitializeUsers(ctx, services.DbService, req.user, logger)
	if err != nil {
		common.Exit("User lookup failed", err)
	}
	source, err := common.FindAccount(users[0], req.fromKind, req.fromId)
	if err != nil {
		common.Exit("Source account lookup failed", err)
	}

	logger.Info("Submitting withdrawal",
		zap.String("user_id", users[0].Id),
		zap.String("rail", req.rail),
		zap.String("source", source.Id),
		zap.String("amount", req.amount.String()))

	res, err := withdraw(ctx, services, req, source, users[0].Id)
	if err != nil {
		common.Exit("Withdrawal rejected", err)
	}

	common.PrintResult("WITHDRAWAL SUBMITTED", res)
	fmt.Printf("\nSettle with: settle -tx %s -outcome completed|failed\n", res.Transaction.Id)
}
