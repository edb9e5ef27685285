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

package engine

import (
	"context"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/settings"
)

// BankWithdrawal pays AED from a card or bank account to an IBAN. An IBAN
// that belongs to an on-platform account is credited directly.
func (e *Engine) BankWithdrawal(ctx context.Context, req BankWithdrawalRequest) (res *Result, err error) {
	started := time.Now()
	defer func() { e.observe("bank_withdrawal", started, res, err) }()

	if err := e.checkStruct(req); err != nil {
		return nil, err
	}
	if err := checkIban(req.Iban); err != nil {
		return nil, err
	}
	if err := checkAmount(req.Amount, models.CurrencyAED); err != nil {
		return nil, err
	}

	source, err := e.findSource(ctx, models.AccountRef{Kind: req.SourceKind, Id: req.SourceId}, req.UserId)
	if err != nil {
		return nil, err
	}
	dest, err := e.resolveDestination(ctx, models.AccountKindBank, req.Iban)
	if err != nil {
		return nil, err
	}
	if !dest.IsExternal() && dest.Account.Ref() == source.Ref() {
		return nil, ledgererr.InvalidOperation("cannot withdraw to the source account")
	}

	pct, err := e.settings.Value(ctx, settings.FeeBankTransfer, req.UserId)
	if err != nil {
		return nil, err
	}
	fee := percentFee(req.Amount, pct, models.CurrencyAED)

	iban := dest.Identifier
	bankName := req.BankName
	if bankName == "" && !dest.IsExternal() {
		bankName = dest.Account.Institution
	}
	rail := ibanRail(iban)

	return e.book(ctx, outbound{
		txType:  models.TxTypeBankWithdrawal,
		class:   settings.ClassWithdrawal,
		userId:  req.UserId,
		source:  source,
		dest:    dest,
		amount:  req.Amount,
		charges: []charge{{feeType: models.FeeTypeBankTransfer, amount: fee}},
		metadata: models.BankWithdrawalMetadata{
			SourceAccount:   models.MaskKey(source.Kind, source.NaturalKey),
			IbanMasked:      models.MaskIban(iban),
			BeneficiaryName: req.BeneficiaryName,
			BankName:        bankName,
		},
		detail: func(id string) models.Detail {
			return &models.WithdrawalDetail{
				TransactionId:   id,
				Destination:     models.DestinationBank,
				Iban:            iban,
				BeneficiaryName: req.BeneficiaryName,
				BankName:        bankName,
				Rail:            rail,
			}
		},
	})
}

// CryptoWithdrawal sends a stablecoin amount to a chain address, from a
// wallet holding the token or from an AED card converted at the sell rate.
func (e *Engine) CryptoWithdrawal(ctx context.Context, req CryptoWithdrawalRequest) (res *Result, err error) {
	started := time.Now()
	defer func() { e.observe("crypto_withdrawal", started, res, err) }()

	if err := e.checkStruct(req); err != nil {
		return nil, err
	}
	if err := checkAddress(req.Address); err != nil {
		return nil, err
	}
	if err := checkAmount(req.Amount, req.Token); err != nil {
		return nil, err
	}

	source, err := e.findSource(ctx, models.AccountRef{Kind: req.SourceKind, Id: req.SourceId}, req.UserId)
	if err != nil {
		return nil, err
	}
	if source.Kind == models.AccountKindCrypto && source.Currency != req.Token {
		return nil, ledgererr.InvalidOperation("cannot withdraw %s from a %s wallet", req.Token, source.Currency)
	}
	dest, err := e.resolveDestination(ctx, models.AccountKindCrypto, req.Address)
	if err != nil {
		return nil, err
	}
	if !dest.IsExternal() {
		if dest.Account.Ref() == source.Ref() {
			return nil, ledgererr.InvalidOperation("cannot withdraw to the source wallet")
		}
		if dest.Account.Currency != req.Token {
			return nil, ledgererr.InvalidOperation("destination wallet holds %s, not %s", dest.Account.Currency, req.Token)
		}
	}

	rates, err := e.settings.Rates(ctx)
	if err != nil {
		return nil, err
	}
	networkFee, err := e.networkFee(ctx, req.Amount, req.Token, req.UserId)
	if err != nil {
		return nil, err
	}

	amount, fee := req.Amount, networkFee
	var conv *conversion
	if source.Kind == models.AccountKindCard {
		amount, conv = fiatForCrypto(req.Amount, req.Token, rates)
		fee = networkFee.Mul(rates.Sell).Round(models.Precision(models.CurrencyAED))
	}

	var recipient string
	if !dest.IsExternal() {
		receiver, err := e.profile(ctx, dest.Account.OwnerId)
		if err != nil {
			return nil, err
		}
		recipient = receiverDisplayName(dest, receiver, "")
	}

	address := dest.Identifier
	return e.book(ctx, outbound{
		txType:  models.TxTypeCryptoWithdrawal,
		class:   settings.ClassWithdrawal,
		userId:  req.UserId,
		source:  source,
		dest:    dest,
		amount:  amount,
		charges: []charge{{feeType: models.FeeTypeNetwork, amount: fee}},
		conv:    conv,
		rates:   rates,
		metadata: models.CryptoWithdrawalMetadata{
			SourceAccount: models.MaskKey(source.Kind, source.NaturalKey),
			AddressMasked: models.MaskAddress(address),
			Token:         req.Token,
			Network:       req.Network,
			RecipientName: recipient,
			Pricing:       pricingSnapshot(conv, amount, source.Currency),
		},
		detail: func(id string) models.Detail {
			return &models.WithdrawalDetail{
				TransactionId: id,
				Destination:   models.DestinationCrypto,
				Rail:          models.RailCrypto,
				Token:         req.Token,
				Network:       req.Network,
				Address:       address,
				NetworkFee:    networkFee,
			}
		},
	})
}
