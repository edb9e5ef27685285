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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ store.Tx = (*ledgerTx)(nil)

// ledgerTx is one unit of work on *sql.Tx. Account rows stay locked until
// Commit or Rollback.
type ledgerTx struct {
	svc  *Service
	tx   *sql.Tx
	done bool
}

// BeginTx starts a write transaction. On SQLite the connection's
// _txlock=immediate acquires the database write lock here.
func (s *Service) BeginTx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	if s.dialect.postgres() {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}
	return &ledgerTx{svc: s, tx: tx}, nil
}

func (t *ledgerTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.done = true
	return nil
}

func (t *ledgerTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *ledgerTx) LockAndLoad(ctx context.Context, ref models.AccountRef) (*models.Account, error) {
	query := t.svc.dialect.forUpdate(queryGetAccount)
	acct, err := scanAccount(t.svc.queryRow(ctx, t.tx, query, string(ref.Kind), ref.Id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledgererr.NotFound("%s account %s not found", ref.Kind, ref.Id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", ref, err)
	}
	return acct, nil
}

// SaveAccount writes the balance with a version check. The row lock makes a
// version miss impossible in normal operation; it still guards against
// callers saving an account they never locked.
func (t *ledgerTx) SaveAccount(ctx context.Context, acct *models.Account) error {
	if acct.Balance.IsNegative() {
		return fmt.Errorf("refusing to save negative balance %s for %s", acct.Balance, acct.Ref())
	}
	now := t.svc.now()
	result, err := t.svc.exec(ctx, t.tx, queryUpdateAccountBalance,
		acct.Balance.String(), now, string(acct.Kind), acct.Id, acct.Version)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance update failed for %s - %w", acct.Ref(), store.ErrConcurrentModification)
	}
	acct.Version++
	acct.UpdatedAt = now
	return nil
}

func (t *ledgerTx) LockTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	query := t.svc.dialect.forUpdate(queryGetTransaction)
	txn, err := scanTransaction(t.svc.queryRow(ctx, t.tx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock transaction %s: %w", id, err)
	}
	return txn, nil
}

func (t *ledgerTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.Id == "" {
		txn.Id = uuid.New().String()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = t.svc.now()
	}
	txn.UpdatedAt = txn.CreatedAt

	metadata, err := models.EncodeMetadata(txn.Metadata)
	if err != nil {
		return err
	}

	var destKind, destId, receiverId, rate any
	if txn.Destination != nil {
		destKind, destId = string(txn.Destination.Kind), txn.Destination.Id
	}
	if txn.ReceiverId != "" {
		receiverId = txn.ReceiverId
	}
	if txn.ExchangeRate != nil {
		rate = txn.ExchangeRate.String()
	}
	var metadataArg any
	if metadata != nil {
		metadataArg = string(metadata)
	}

	_, err = t.svc.exec(ctx, t.tx, queryInsertTransaction,
		txn.Id, string(txn.Type), string(txn.Status), txn.SenderId, receiverId, string(txn.CounterpartyKind),
		string(txn.Source.Kind), txn.Source.Id, destKind, destId,
		txn.Amount.String(), txn.Currency, txn.Fee.String(), txn.TotalDebit.String(),
		txn.CreditedAmount.String(), txn.CreditedCurrency, rate, txn.LimitAmount.String(),
		txn.ExternalRef, txn.RelatedId, metadataArg, txn.CreatedAt, txn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (t *ledgerTx) UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus, externalRef string) error {
	result, err := t.svc.exec(ctx, t.tx, queryUpdateTransactionStatus, string(status), externalRef, externalRef, t.svc.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", store.ErrTransactionNotFound, id)
	}
	return nil
}

// CompleteTopUp rewrites the header of a confirmed deposit with the amounts
// that actually arrived.
func (t *ledgerTx) CompleteTopUp(ctx context.Context, id string, c store.TopUpCompletion) error {
	result, err := t.svc.exec(ctx, t.tx, queryCompleteTopUp,
		string(models.StatusCompleted),
		c.Received.String(),
		c.Fee.String(),
		c.Received.String(),
		c.Credited.String(),
		c.LimitAmount.String(),
		c.ExternalRef, c.ExternalRef,
		t.svc.now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete top-up: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", store.ErrTransactionNotFound, id)
	}
	return nil
}

func (t *ledgerTx) InsertDetail(ctx context.Context, detail models.Detail) error {
	var err error
	switch d := detail.(type) {
	case *models.CardTransferDetail:
		_, err = t.svc.exec(ctx, t.tx, queryInsertCardTransferDetail,
			d.TransactionId, string(d.SourceKind), d.ReceiverCardMasked, d.ReceiverName)
	case *models.WithdrawalDetail:
		_, err = t.svc.exec(ctx, t.tx, queryInsertWithdrawalDetail,
			d.TransactionId, string(d.Destination), d.Iban, d.BeneficiaryName, d.BankName, d.Rail,
			d.Token, d.Network, d.Address, d.NetworkFee.String(), d.ProviderReference)
	case *models.TopUpDetail:
		_, err = t.svc.exec(ctx, t.tx, queryInsertTopUpDetail,
			d.TransactionId, d.Rail, d.Reference, d.BankName, d.Iban, d.BeneficiaryName,
			d.Token, d.Network, d.DepositAddress, d.QrPayload, d.MinAmount.String(), d.ExpectedAmount.String())
	case *models.SwapDetail:
		_, err = t.svc.exec(ctx, t.tx, queryInsertSwapDetail,
			d.TransactionId, string(d.FromKind), d.FromCurrency, string(d.ToKind), d.ToCurrency,
			string(d.Side), nullableDecimal(d.Rate), nullableDecimal(d.MidRate), d.Spread.String())
	case *models.ReversalDetail:
		_, err = t.svc.exec(ctx, t.tx, queryInsertReversalDetail,
			d.TransactionId, d.OriginalTransactionId, d.Reason)
	default:
		return fmt.Errorf("unsupported detail type %T", detail)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %T: %w", detail, err)
	}
	return nil
}

func (t *ledgerTx) ConfirmTopUpDetail(ctx context.Context, transactionId string, received, fee decimal.Decimal, at time.Time) error {
	result, err := t.svc.exec(ctx, t.tx, queryConfirmTopUpDetail, received.String(), fee.String(), at.UTC(), transactionId)
	if err != nil {
		return fmt.Errorf("failed to confirm top-up detail: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: top-up %s unconfirmed detail", store.ErrDetailNotFound, transactionId)
	}
	return nil
}

func (t *ledgerTx) InsertMovements(ctx context.Context, movements []models.BalanceMovement) error {
	now := t.svc.now()
	for i := range movements {
		m := &movements[i]
		if m.Id == "" {
			m.Id = uuid.New().String()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		_, err := t.svc.exec(ctx, t.tx, queryInsertMovement,
			m.Id, m.TransactionId, string(m.AccountKind), m.AccountId, m.Amount.String(), m.Currency, string(m.Direction), m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert balance movement: %w", err)
		}
	}
	return nil
}

// ListMovements reads through the open transaction so callers holding the
// write lock never wait on a second pool connection.
func (t *ledgerTx) ListMovements(ctx context.Context, transactionId string) ([]models.BalanceMovement, error) {
	return t.svc.listMovements(ctx, t.tx, transactionId)
}

func (t *ledgerTx) ListFeeRevenue(ctx context.Context, transactionId string) ([]models.FeeRevenue, error) {
	return t.svc.listFeeRevenue(ctx, t.tx, transactionId)
}

func (t *ledgerTx) InsertFeeRevenue(ctx context.Context, rows []models.FeeRevenue) error {
	now := t.svc.now()
	for i := range rows {
		r := &rows[i]
		if r.Id == "" {
			r.Id = uuid.New().String()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		_, err := t.svc.exec(ctx, t.tx, queryInsertFeeRevenue,
			r.Id, r.TransactionId, string(r.FeeType), r.Amount.String(), r.Currency, r.UserId, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert fee revenue: %w", err)
		}
	}
	return nil
}

func (t *ledgerTx) InsertOutbox(ctx context.Context, event *models.OutboxEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = t.svc.now()
	}
	err := t.svc.queryRow(ctx, t.tx, queryInsertOutbox,
		event.TransactionId, event.EventType, string(event.Payload), event.CreatedAt).Scan(&event.Id)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
