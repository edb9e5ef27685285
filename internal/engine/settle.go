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
	"errors"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Settle records the provider outcome of a processing transaction. A failure
// books a reversal that returns the debit, fee included, to the source.
func (e *Engine) Settle(ctx context.Context, req SettleRequest) (res *Result, err error) {
	started := time.Now()
	defer func() { e.observe("settle", started, res, err) }()

	if err := e.checkStruct(req); err != nil {
		return nil, err
	}

	err = e.inTx(ctx, func(tx store.Tx) error {
		txn, err := tx.LockTransaction(ctx, req.TransactionId)
		if err != nil {
			return lockError(req.TransactionId, err)
		}
		if txn.Status.Terminal() {
			return ledgererr.InvalidOperation("transaction %s is already %s", txn.Id, txn.Status)
		}
		isTopUp := txn.Type == models.TxTypeBankTopUp || txn.Type == models.TxTypeCryptoTopUp
		if isTopUp && req.Outcome == models.StatusCompleted {
			return ledgererr.InvalidOperation("top-up %s completes through deposit confirmation", txn.Id)
		}

		if err := tx.UpdateTransactionStatus(ctx, txn.Id, req.Outcome, req.ExternalRef); err != nil {
			return systemError("failed to update transaction status", err)
		}
		txn.Status = req.Outcome
		if req.ExternalRef != "" {
			txn.ExternalRef = req.ExternalRef
		}
		res = &Result{Transaction: txn}

		if req.Outcome == models.StatusFailed {
			reversal, err := e.reverse(ctx, tx, txn, req.Reason)
			if err != nil {
				return err
			}
			res.Reversal = reversal
		}
		return e.enqueue(ctx, tx, models.EventTransactionUpdated, txn, nil)
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("transaction_id", res.Transaction.Id),
		zap.String("outcome", string(req.Outcome)),
	}
	if res.Reversal != nil {
		fields = append(fields, zap.String("reversal_id", res.Reversal.Transaction.Id))
	}
	zap.L().Info("Transaction settled", fields...)
	return res, nil
}

// reverse books the exact negation of txn's movements and fee rows. It
// returns nil when txn never moved a balance.
func (e *Engine) reverse(ctx context.Context, tx store.Tx, txn *models.Transaction, reason string) (*Result, error) {
	movements, err := tx.ListMovements(ctx, txn.Id)
	if err != nil {
		return nil, systemError("failed to load movements", err)
	}
	if len(movements) == 0 {
		return nil, nil
	}
	fees, err := tx.ListFeeRevenue(ctx, txn.Id)
	if err != nil {
		return nil, systemError("failed to load fee revenue", err)
	}

	reversal := &models.Transaction{
		Type:             models.TxTypeReversal,
		Status:           models.StatusCompleted,
		SenderId:         txn.SenderId,
		ReceiverId:       txn.SenderId,
		CounterpartyKind: models.CounterpartyInternal,
		Source:           models.ClearingRef(txn.CreditedCurrency),
		Destination:      ptr(txn.Source),
		Amount:           txn.TotalDebit,
		Currency:         txn.Currency,
		Fee:              decimal.Zero,
		TotalDebit:       decimal.Zero,
		CreditedAmount:   txn.TotalDebit,
		CreditedCurrency: txn.Currency,
		RelatedId:        txn.Id,
		Metadata:         models.ReversalMetadata{OriginalTransactionId: txn.Id, Reason: reason},
	}

	p := &posting{
		txn: reversal,
		detail: func(id string) models.Detail {
			return &models.ReversalDetail{TransactionId: id, OriginalTransactionId: txn.Id, Reason: reason}
		},
	}
	for _, m := range movements {
		p.legs = append(p.legs, leg{
			ref:      models.AccountRef{Kind: m.AccountKind, Id: m.AccountId},
			amount:   m.Amount.Neg(),
			currency: m.Currency,
		})
	}
	for _, f := range fees {
		p.fees = append(p.fees, models.FeeRevenue{
			FeeType:  f.FeeType,
			Amount:   f.Amount.Neg(),
			Currency: f.Currency,
			UserId:   f.UserId,
		})
	}
	return e.write(ctx, tx, p)
}

func lockError(id string, err error) error {
	if errors.Is(err, store.ErrTransactionNotFound) {
		return ledgererr.NotFound("transaction %s not found", id)
	}
	return systemError("failed to lock transaction", err)
}
