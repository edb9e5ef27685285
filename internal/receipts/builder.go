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

// Package receipts rebuilds a viewer-aware view of a committed transaction
// from its header, metadata snapshot and detail record. Values that none of
// those carry are left empty; nothing is inferred.
package receipts

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Accounts is the live lookup used when a snapshot lacks a counterpart key.
type Accounts interface {
	GetAccount(ctx context.Context, ref models.AccountRef) (*models.Account, error)
}

type Builder struct {
	txns     store.TransactionReader
	accounts Accounts
	profiles store.ProfileStore
}

func NewBuilder(txns store.TransactionReader, accounts Accounts, profiles store.ProfileStore) *Builder {
	return &Builder{txns: txns, accounts: accounts, profiles: profiles}
}

// Build returns the receipt of transactionId as seen by viewerId. Viewers
// who are neither sender nor receiver get NotFound.
func (b *Builder) Build(ctx context.Context, transactionId, viewerId string) (*models.Receipt, error) {
	txn, err := b.txns.GetTransaction(ctx, transactionId)
	if errors.Is(err, store.ErrTransactionNotFound) {
		return nil, ledgererr.NotFound("transaction %s not found", transactionId)
	}
	if err != nil {
		return nil, ledgererr.System("failed to load transaction", err)
	}
	if viewerId == "" || (txn.SenderId != viewerId && txn.ReceiverId != viewerId) {
		return nil, ledgererr.NotFound("transaction %s not found", transactionId)
	}

	detail, err := b.txns.GetDetail(ctx, txn)
	if err != nil {
		if !errors.Is(err, store.ErrDetailNotFound) {
			return nil, ledgererr.System("failed to load transaction detail", err)
		}
		zap.L().Warn("Receipt built without detail record", zap.String("transaction_id", txn.Id))
		detail = nil
	}

	direction := Direction(txn, viewerId)
	r := &models.Receipt{
		TransactionId: txn.Id,
		Type:          txn.Type,
		Status:        txn.Status,
		Direction:     direction,
		CreatedAt:     txn.CreatedAt,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Fee:           txn.Fee,
		ExchangeRate:  txn.ExchangeRate,
		ExternalRef:   txn.ExternalRef,
	}
	if txn.TotalDebit.IsPositive() {
		total := txn.TotalDebit
		r.TotalDebit = &total
	}

	applyMetadata(r, txn.Metadata)
	applyDetail(r, detail)
	if err := b.fillCounterpart(ctx, r, txn); err != nil {
		return nil, err
	}
	r.Breakdown = breakdown(txn, detail)

	// Inbound viewers see what reached them; the sender's fee is not theirs.
	if direction == models.DirectionInbound {
		r.Amount = txn.CreditedAmount
		r.Currency = txn.CreditedCurrency
		r.Fee = decimal.Zero
		r.TotalDebit = nil
		r.Breakdown = nil
	}
	return r, nil
}

// Direction classifies txn relative to viewerId.
func Direction(txn *models.Transaction, viewerId string) models.ReceiptDirection {
	switch {
	case txn.SenderId == viewerId && txn.ReceiverId == viewerId:
		return models.DirectionInternal
	case txn.ReceiverId == viewerId:
		return models.DirectionInbound
	default:
		return models.DirectionOutbound
	}
}

func applyMetadata(r *models.Receipt, md models.Metadata) {
	switch m := md.(type) {
	case models.CardTransferMetadata:
		r.SenderName, r.SenderAccount = m.SenderName, m.SenderAccount
		r.RecipientName, r.RecipientCard, r.RecipientAvatar = m.ReceiverName, m.ReceiverCardMasked, m.ReceiverAvatarUrl
	case models.BankTransferMetadata:
		r.SenderName, r.SenderAccount = m.SenderName, m.SenderAccount
		r.RecipientName, r.RecipientIban = m.BeneficiaryName, m.IbanMasked
	case models.CryptoTransferMetadata:
		r.SenderName, r.SenderAccount = m.SenderName, m.SenderAccount
		r.RecipientName, r.RecipientAvatar = m.RecipientName, m.RecipientAvatarUrl
		r.ToAddress, r.Network = m.AddressMasked, m.Network
	case models.BankWithdrawalMetadata:
		r.SenderAccount = m.SourceAccount
		r.RecipientName, r.RecipientIban = m.BeneficiaryName, m.IbanMasked
	case models.CryptoWithdrawalMetadata:
		r.SenderAccount = m.SourceAccount
		r.RecipientName = m.RecipientName
		r.ToAddress, r.Network = m.AddressMasked, m.Network
	case models.BankTopUpMetadata:
		r.Reference = m.Reference
		r.RecipientIban = models.MaskIban(m.Instructions.Iban)
	case models.CryptoTopUpMetadata:
		r.ToAddress, r.Network = models.MaskAddress(m.DepositAddress), m.Network
	case models.SwapMetadata:
		r.SenderAccount = m.FromAccount
	}
}

// applyDetail fills only what the metadata snapshot left empty.
func applyDetail(r *models.Receipt, detail models.Detail) {
	switch d := detail.(type) {
	case *models.CardTransferDetail:
		setIfEmpty(&r.RecipientCard, d.ReceiverCardMasked)
		setIfEmpty(&r.RecipientName, d.ReceiverName)
	case *models.WithdrawalDetail:
		if d.Destination == models.DestinationBank {
			setIfEmpty(&r.RecipientIban, models.MaskIban(d.Iban))
			setIfEmpty(&r.RecipientName, d.BeneficiaryName)
		} else {
			setIfEmpty(&r.ToAddress, models.MaskAddress(d.Address))
			setIfEmpty(&r.Network, d.Network)
		}
		setIfEmpty(&r.ExternalRef, d.ProviderReference)
	case *models.TopUpDetail:
		setIfEmpty(&r.Reference, d.Reference)
		if d.Iban != "" {
			setIfEmpty(&r.RecipientIban, models.MaskIban(d.Iban))
		}
		if d.DepositAddress != "" {
			setIfEmpty(&r.ToAddress, models.MaskAddress(d.DepositAddress))
		}
		setIfEmpty(&r.Network, d.Network)
	}
}

// fillCounterpart falls back to live lookups for the destination key and
// the parties' display names.
func (b *Builder) fillCounterpart(ctx context.Context, r *models.Receipt, txn *models.Transaction) error {
	if txn.Destination != nil && txn.Destination.Kind.Valid() && !isTopUp(txn.Type) {
		key := ""
		switch txn.Destination.Kind {
		case models.AccountKindCard:
			key = r.RecipientCard
		case models.AccountKindBank:
			key = r.RecipientIban
		case models.AccountKindCrypto:
			key = r.ToAddress
		}
		if key == "" && txn.Type != models.TxTypeInternalTransfer && txn.Type != models.TxTypeReversal {
			acct, err := b.accounts.GetAccount(ctx, *txn.Destination)
			switch {
			case errors.Is(err, ledgererr.ErrNotFound):
			case err != nil:
				return ledgererr.System("failed to load destination account", err)
			default:
				setCounterpartKey(r, acct)
				setIfEmpty(&r.RecipientName, acct.HolderName)
			}
		}
	}

	if r.SenderName == "" && txn.SenderId != "" {
		p, err := b.profile(ctx, txn.SenderId)
		if err != nil {
			return err
		}
		if p != nil {
			r.SenderName = p.DisplayName
		}
	}
	if txn.ReceiverId != "" && txn.ReceiverId != txn.SenderId && (r.RecipientName == "" || r.RecipientAvatar == "") {
		p, err := b.profile(ctx, txn.ReceiverId)
		if err != nil {
			return err
		}
		if p != nil {
			setIfEmpty(&r.RecipientName, p.DisplayName)
			setIfEmpty(&r.RecipientAvatar, p.AvatarUrl)
		}
	}
	return nil
}

func (b *Builder) profile(ctx context.Context, userId string) (*models.Profile, error) {
	p, err := b.profiles.GetProfile(ctx, userId)
	if err != nil {
		return nil, ledgererr.System(fmt.Sprintf("failed to load profile %s", userId), err)
	}
	return p, nil
}

func setCounterpartKey(r *models.Receipt, acct *models.Account) {
	masked := models.MaskKey(acct.Kind, acct.NaturalKey)
	switch acct.Kind {
	case models.AccountKindCard:
		r.RecipientCard = masked
	case models.AccountKindBank:
		r.RecipientIban = masked
	case models.AccountKindCrypto:
		r.ToAddress = masked
		setIfEmpty(&r.Network, acct.Institution)
	}
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func isTopUp(t models.TransactionType) bool {
	return t == models.TxTypeBankTopUp || t == models.TxTypeCryptoTopUp
}
