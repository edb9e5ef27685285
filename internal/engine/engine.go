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

// Package engine moves money between accounts. Every operation resolves its
// parameters and limits first, then locks the touched accounts in a fixed
// order and writes the header, detail, movements, fee rows and an outbox
// event in one database transaction.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/metrics"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/settings"
	"wallet-ledger-go/internal/store"

	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Resolver is the slice of settings.Resolver the engine reads.
type Resolver interface {
	Value(ctx context.Context, k settings.Key, userId string) (decimal.Decimal, error)
	CheckLimits(ctx context.Context, userId string, amount decimal.Decimal, class settings.OperationClass) error
	CheckBounds(ctx context.Context, userId string, amount decimal.Decimal, currency string, class settings.OperationClass) error
	CheckWindows(ctx context.Context, userId string, amount, reserved decimal.Decimal, class settings.OperationClass) error
	Rates(ctx context.Context) (settings.Rates, error)
}

// Store is the persistence the engine needs: locked writes plus the
// header read that settlement callbacks do before opening a transaction.
type Store interface {
	store.LedgerStore
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
}

// Result is what a committed operation wrote.
type Result struct {
	Transaction *models.Transaction
	Detail      models.Detail
	Movements   []models.BalanceMovement
	Fees        []models.FeeRevenue
	// Reversal is set when a failed settlement compensated a debit.
	Reversal *Result
}

type Engine struct {
	store    Store
	profiles store.ProfileStore
	settings Resolver
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(ledger Store, profiles store.ProfileStore, resolver Resolver, opts ...Option) *Engine {
	e := &Engine{
		store:    ledger,
		profiles: profiles,
		settings: resolver,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// leg is one signed balance change before netting.
type leg struct {
	ref      models.AccountRef
	amount   decimal.Decimal
	currency string
}

// posting is a new transaction ready to be written.
type posting struct {
	txn    *models.Transaction
	detail func(transactionId string) models.Detail
	legs   []leg
	fees   []models.FeeRevenue
}

func (p *posting) debit(ref models.AccountRef, amount decimal.Decimal, currency string) {
	p.legs = append(p.legs, leg{ref: ref, amount: amount.Neg(), currency: currency})
}

func (p *posting) credit(ref models.AccountRef, amount decimal.Decimal, currency string) {
	p.legs = append(p.legs, leg{ref: ref, amount: amount, currency: currency})
}

// fee books positive explicit fee or spread income. Zero amounts are dropped.
func (p *posting) fee(feeType models.FeeType, amount decimal.Decimal, currency string) {
	if !amount.IsPositive() {
		return
	}
	p.fees = append(p.fees, models.FeeRevenue{
		FeeType:  feeType,
		Amount:   amount,
		Currency: currency,
		UserId:   p.txn.SenderId,
	})
}

// observe wraps an operation with metrics and the outcome log line.
func (e *Engine) observe(operation string, started time.Time, res *Result, err error) {
	outcome := "success"
	if err != nil {
		outcome = ledgererr.KindOf(err).String()
	}
	metrics.ObserveOperation(operation, outcome, time.Since(started))

	switch {
	case err == nil:
		txn := res.Transaction
		zap.L().Info("Ledger operation committed",
			zap.String("operation", operation),
			zap.String("transaction_id", txn.Id),
			zap.String("type", string(txn.Type)),
			zap.String("status", string(txn.Status)),
			zap.String("user_id", txn.SenderId),
			zap.String("amount", txn.Amount.String()),
			zap.String("currency", txn.Currency))
		for _, f := range res.Fees {
			metrics.AddFeeRevenue(string(f.FeeType), f.Currency, f.Amount)
		}
	case ledgererr.IsClientError(err):
		zap.L().Warn("Ledger operation rejected", zap.String("operation", operation), zap.Error(err))
	default:
		zap.L().Error("Ledger operation failed", zap.String("operation", operation), zap.Error(err))
	}
}

// inTx runs fn inside one database transaction. Any error rolls everything back.
func (e *Engine) inTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return systemError("failed to begin transaction", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil {
			zap.L().Error("Failed to roll back transaction", zap.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return systemError("failed to commit transaction", err)
	}
	return nil
}

// commit writes p in its own database transaction.
func (e *Engine) commit(ctx context.Context, p *posting) (*Result, error) {
	var res *Result
	err := e.inTx(ctx, func(tx store.Tx) error {
		var err error
		res, err = e.write(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// write applies p's legs and persists its header, detail, movements, fee
// rows and outbox event on tx.
func (e *Engine) write(ctx context.Context, tx store.Tx, p *posting) (*Result, error) {
	movements, err := applyLegs(ctx, tx, p.legs, p.txn)
	if err != nil {
		return nil, err
	}

	p.txn.CreatedAt = e.now().UTC()
	if err := tx.InsertTransaction(ctx, p.txn); err != nil {
		return nil, systemError("failed to insert transaction", err)
	}

	res := &Result{Transaction: p.txn, Movements: movements, Fees: p.fees}
	if p.detail != nil {
		res.Detail = p.detail(p.txn.Id)
		if err := tx.InsertDetail(ctx, res.Detail); err != nil {
			return nil, systemError("failed to insert detail", err)
		}
	}
	for i := range res.Movements {
		res.Movements[i].TransactionId = p.txn.Id
	}
	if err := tx.InsertMovements(ctx, res.Movements); err != nil {
		return nil, systemError("failed to insert movements", err)
	}
	for i := range res.Fees {
		res.Fees[i].TransactionId = p.txn.Id
	}
	if len(res.Fees) > 0 {
		if err := tx.InsertFeeRevenue(ctx, res.Fees); err != nil {
			return nil, systemError("failed to insert fee revenue", err)
		}
	}
	if err := e.enqueue(ctx, tx, models.EventTransactionCreated, p.txn, res.Movements); err != nil {
		return nil, err
	}
	return res, nil
}

// applyLegs nets legs, locks every user account they touch in (kind, id)
// order, re-checks balances under the lock and saves the new balances.
func applyLegs(ctx context.Context, tx store.Tx, legs []leg, txn *models.Transaction) ([]models.BalanceMovement, error) {
	movements := netLegs(legs)

	locked, err := lockInOrder(ctx, tx, movements)
	if err != nil {
		return nil, err
	}
	for _, m := range movements {
		acct, ok := locked[models.AccountRef{Kind: m.AccountKind, Id: m.AccountId}]
		if !ok {
			continue
		}
		if !acct.Active {
			return nil, ledgererr.InvalidOperation("%s account %s is inactive", acct.Kind, acct.Id)
		}
		if acct.Currency != m.Currency {
			return nil, ledgererr.InvalidOperation("%s account %s holds %s, not %s", acct.Kind, acct.Id, acct.Currency, m.Currency)
		}
		next := acct.Balance.Add(m.Amount)
		if next.IsNegative() {
			return nil, insufficientFunds(m.Amount.Neg(), acct.Balance, m.Currency, txn)
		}
		acct.Balance = next
	}
	for _, acct := range locked {
		if err := tx.SaveAccount(ctx, acct); err != nil {
			return nil, systemError("failed to save account", err)
		}
	}
	return movements, nil
}

// enqueue writes the outbox row inside tx. The dispatcher relays it after commit.
func (e *Engine) enqueue(ctx context.Context, tx store.Tx, eventType string, txn *models.Transaction, movements []models.BalanceMovement) error {
	event := models.NewTransactionEvent(eventType, txn, movements, e.now().UTC())
	payload, err := json.Marshal(event)
	if err != nil {
		return systemError("failed to marshal outbox event", err)
	}
	if err := tx.InsertOutbox(ctx, &models.OutboxEvent{
		TransactionId: txn.Id,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return systemError("failed to insert outbox event", err)
	}
	return nil
}

// netLegs folds legs into one movement per (account, currency), in first-seen
// order, dropping legs that cancel out.
func netLegs(legs []leg) []models.BalanceMovement {
	type netKey struct {
		ref      models.AccountRef
		currency string
	}
	index := make(map[netKey]int)
	var out []models.BalanceMovement
	for _, l := range legs {
		k := netKey{ref: l.ref, currency: l.currency}
		if i, ok := index[k]; ok {
			out[i].Amount = out[i].Amount.Add(l.amount)
			continue
		}
		index[k] = len(out)
		out = append(out, models.BalanceMovement{
			AccountKind: l.ref.Kind,
			AccountId:   l.ref.Id,
			Amount:      l.amount,
			Currency:    l.currency,
		})
	}

	kept := out[:0]
	for _, m := range out {
		if m.Amount.IsZero() {
			continue
		}
		m.Direction = models.Credit
		if m.Amount.IsNegative() {
			m.Direction = models.Debit
		}
		kept = append(kept, m)
	}
	return kept
}

// lockInOrder takes the row lock on every user account in movements, in
// ascending AccountRef order. System accounts have no rows to lock.
func lockInOrder(ctx context.Context, tx store.Tx, movements []models.BalanceMovement) (map[models.AccountRef]*models.Account, error) {
	var refs []models.AccountRef
	seen := make(map[models.AccountRef]bool)
	for _, m := range movements {
		ref := models.AccountRef{Kind: m.AccountKind, Id: m.AccountId}
		if !ref.Kind.Valid() || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })

	locked := make(map[models.AccountRef]*models.Account, len(refs))
	for _, ref := range refs {
		acct, err := tx.LockAndLoad(ctx, ref)
		if err != nil {
			return nil, systemError("failed to lock account", err)
		}
		locked[ref] = acct
	}
	return locked, nil
}

func insufficientFunds(required, available decimal.Decimal, currency string, txn *models.Transaction) error {
	prec := models.Precision(currency)
	if txn != nil && txn.Fee.IsPositive() && txn.Currency == currency {
		return ledgererr.InsufficientFunds("insufficient funds: required %s %s (including fee %s %s), available %s %s",
			required.StringFixed(prec), currency, txn.Fee.StringFixed(prec), currency, available.StringFixed(prec), currency)
	}
	return ledgererr.InsufficientFunds("insufficient funds: required %s %s, available %s %s",
		required.StringFixed(prec), currency, available.StringFixed(prec), currency)
}

// systemError keeps taxonomy errors as they are and wraps everything else as System.
func systemError(message string, err error) error {
	var le *ledgererr.Error
	if errors.As(err, &le) {
		return err
	}
	return ledgererr.System(message, err)
}

// profile reads the directory entry shown on receipts. A missing profile is not an error.
func (e *Engine) profile(ctx context.Context, userId string) (*models.Profile, error) {
	if userId == "" {
		return nil, nil
	}
	p, err := e.profiles.GetProfile(ctx, userId)
	if err != nil {
		return nil, systemError("failed to load profile", err)
	}
	return p, nil
}

func displayName(p *models.Profile) string {
	if p == nil {
		return ""
	}
	return p.DisplayName
}

func avatarUrl(p *models.Profile) string {
	if p == nil {
		return ""
	}
	return p.AvatarUrl
}

// findSource loads an account the user owns and checks it can send.
func (e *Engine) findSource(ctx context.Context, ref models.AccountRef, userId string) (*models.Account, error) {
	acct, err := e.store.FindAccount(ctx, ref, userId)
	if err != nil {
		return nil, systemError("failed to load source account", err)
	}
	if !acct.Active {
		return nil, ledgererr.InvalidOperation("%s account %s is inactive", acct.Kind, acct.Id)
	}
	return acct, nil
}

// resolveDestination looks up a natural key. Unknown keys are external.
func (e *Engine) resolveDestination(ctx context.Context, kind models.AccountKind, key string) (models.Counterparty, error) {
	acct, err := e.store.ResolveNaturalKey(ctx, kind, key)
	if err != nil {
		return models.Counterparty{}, systemError("failed to resolve destination", err)
	}
	if acct == nil {
		return models.ExternalCounterparty(models.NormalizeKey(kind, key)), nil
	}
	if !acct.Active {
		return models.Counterparty{}, ledgererr.InvalidOperation("destination %s account is inactive", kind)
	}
	return models.InternalCounterparty(acct), nil
}

// precheckBalance fails fast without a lock. The authoritative check runs in write.
func precheckBalance(acct *models.Account, totalDebit decimal.Decimal, txn *models.Transaction) error {
	if acct.Balance.LessThan(totalDebit) {
		return insufficientFunds(totalDebit, acct.Balance, acct.Currency, txn)
	}
	return nil
}

func pricingSnapshot(c *conversion, amount decimal.Decimal, from string) *models.ConversionPricing {
	if c == nil {
		return nil
	}
	return &models.ConversionPricing{
		Side:           c.side,
		Rate:           c.rate,
		MidRate:        c.mid,
		SourceAmount:   amount,
		SourceCurrency: from,
		TargetAmount:   c.target,
		TargetCurrency: c.to,
		Spread:         c.spread,
	}
}

func ptr[T any](v T) *T {
	return &v
}
