package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/settings"
	"wallet-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// topUpReference is what the user quotes on the inbound wire.
func topUpReference(transactionId string) string {
	return "REF-" + strings.ToUpper(transactionId[:8])
}

// InitiateBankTopUp records a pending deposit into the user's bank account
// and returns the instructions to show. No balance moves until ConfirmTopUp.
func (e *Engine) InitiateBankTopUp(ctx context.Context, req BankTopUpRequest) (res *Result, err error) {
	started := time.Now()
	defer func() { e.observe("bank_topup", started, res, err) }()

	if err := e.checkStruct(req); err != nil {
		return nil, err
	}
	if !req.ExpectedAmount.IsZero() {
		if err := checkAmount(req.ExpectedAmount, models.CurrencyAED); err != nil {
			return nil, err
		}
	}

	acct, err := e.depositAccount(ctx, req.UserId, req.BankAccountId)
	if err != nil {
		return nil, err
	}
	if req.ExpectedAmount.IsPositive() {
		if _, err := e.checkTopUpLimits(ctx, req.UserId, models.TxTypeBankTopUp, req.ExpectedAmount, models.CurrencyAED, decimal.Zero, false); err != nil {
			return nil, err
		}
	}
	minAmount, err := e.settings.Value(ctx, settings.TopUpBankMin, req.UserId)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	reference := topUpReference(id)
	instructions := models.BankInstructions{
		BankName:        acct.Institution,
		Iban:            acct.NaturalKey,
		BeneficiaryName: acct.HolderName,
		Reference:       reference,
	}

	txn := pendingTopUp(id, models.TxTypeBankTopUp, req.UserId, acct, req.ExpectedAmount, req.ExpectedAmount)
	txn.Metadata = models.BankTopUpMetadata{Rail: req.Rail, Reference: reference, Instructions: instructions}

	return e.commit(ctx, &posting{
		txn: txn,
		detail: func(id string) models.Detail {
			return &models.TopUpDetail{
				TransactionId:   id,
				Rail:            req.Rail,
				Reference:       reference,
				BankName:        instructions.BankName,
				Iban:            instructions.Iban,
				BeneficiaryName: instructions.BeneficiaryName,
				MinAmount:       minAmount,
				ExpectedAmount:  req.ExpectedAmount,
			}
		},
	})
}

// InitiateCryptoTopUp records a pending deposit into the user's wallet for
// token on network and returns the deposit address and QR payload.
func (e *Engine) InitiateCryptoTopUp(ctx context.Context, req CryptoTopUpRequest) (res *Result, err error) {
	started := time.Now()
	defer func() { e.observe("crypto_topup", started, res, err) }()

	if err := e.checkStruct(req); err != nil {
		return nil, err
	}
	if !req.ExpectedAmount.IsZero() {
		if err := checkAmount(req.ExpectedAmount, req.Token); err != nil {
			return nil, err
		}
	}

	accounts, err := e.store.ListAccounts(ctx, req.UserId)
	if err != nil {
		return nil, systemError("failed to list accounts", err)
	}
	var wallet *models.Account
	for i := range accounts {
		a := &accounts[i]
		if a.Kind == models.AccountKindCrypto && a.Active && a.Currency == req.Token && a.Institution == req.Network {
			wallet = a
			break
		}
	}
	if wallet == nil {
		return nil, ledgererr.NotFound("no %s wallet on %s for this user", req.Token, req.Network)
	}

	limitAmount := decimal.Zero
	if req.ExpectedAmount.IsPositive() {
		limitAmount, err = e.checkTopUpLimits(ctx, req.UserId, models.TxTypeCryptoTopUp, req.ExpectedAmount, req.Token, decimal.Zero, false)
		if err != nil {
			return nil, err
		}
	}

	minAmount, err := e.settings.Value(ctx, settings.TopUpCryptoMin, req.UserId)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	address := wallet.NaturalKey
	qr := strings.ToLower(req.Token) + ":" + address

	txn := pendingTopUp(id, models.TxTypeCryptoTopUp, req.UserId, wallet, req.ExpectedAmount, limitAmount)
	txn.Metadata = models.CryptoTopUpMetadata{
		Token:          req.Token,
		Network:        req.Network,
		DepositAddress: address,
		QrPayload:      qr,
		MinAmount:      minAmount,
	}

	return e.commit(ctx, &posting{
		txn: txn,
		detail: func(id string) models.Detail {
			return &models.TopUpDetail{
				TransactionId:  id,
				Rail:           models.RailCrypto,
				Reference:      topUpReference(id),
				Token:          req.Token,
				Network:        req.Network,
				DepositAddress: address,
				QrPayload:      qr,
				MinAmount:      minAmount,
				ExpectedAmount: req.ExpectedAmount,
			}
		},
	})
}

func pendingTopUp(id string, txType models.TransactionType, userId string, acct *models.Account, expected, limitAmount decimal.Decimal) *models.Transaction {
	dest := acct.Ref()
	return &models.Transaction{
		Id:               id,
		Type:             txType,
		Status:           models.StatusPending,
		SenderId:         userId,
		ReceiverId:       userId,
		CounterpartyKind: models.CounterpartyExternal,
		Source:           models.ClearingRef(acct.Currency),
		Destination:      &dest,
		Amount:           expected,
		Currency:         acct.Currency,
		CreditedCurrency: acct.Currency,
		LimitAmount:      limitAmount,
	}
}

// checkTopUpLimits applies the rail's per-deposit bounds in the deposit
// currency and the shared top-up windows in AED, returning the AED amount to
// record as limit usage. reserved is what the pending transaction already
// counts toward the windows. Once funds have arrived only the maximum applies:
// a deposit under the advertised minimum is still credited.
func (e *Engine) checkTopUpLimits(ctx context.Context, userId string, txType models.TransactionType, amount decimal.Decimal, currency string, reserved decimal.Decimal, arrived bool) (decimal.Decimal, error) {
	class, maxKey := settings.ClassTopUp, settings.TopUpBankMax
	if txType == models.TxTypeCryptoTopUp {
		class, maxKey = settings.ClassCryptoTopUp, settings.TopUpCryptoMax
	}
	if arrived {
		upper, err := e.settings.Value(ctx, maxKey, userId)
		if err != nil {
			return decimal.Zero, err
		}
		if amount.GreaterThan(upper) {
			return decimal.Zero, ledgererr.LimitExceeded("received %s %s exceeds the maximum top-up amount of %s %s",
				amount.StringFixed(2), currency, upper.StringFixed(2), currency)
		}
	} else if err := e.settings.CheckBounds(ctx, userId, amount, currency, class); err != nil {
		return decimal.Zero, err
	}

	rates, err := e.loadRates(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	limitAmount := aedEquivalent(amount, currency, rates)
	if err := e.settings.CheckWindows(ctx, userId, limitAmount, reserved, class); err != nil {
		return decimal.Zero, err
	}
	return limitAmount, nil
}

// depositAccount returns the named bank account or the user's first active one.
func (e *Engine) depositAccount(ctx context.Context, userId, accountId string) (*models.Account, error) {
	if accountId != "" {
		return e.findSource(ctx, models.AccountRef{Kind: models.AccountKindBank, Id: accountId}, userId)
	}
	accounts, err := e.store.ListAccounts(ctx, userId)
	if err != nil {
		return nil, systemError("failed to list accounts", err)
	}
	for i := range accounts {
		if accounts[i].Kind == models.AccountKindBank && accounts[i].Active {
			return &accounts[i], nil
		}
	}
	return nil, ledgererr.NotFound("user has no active bank account")
}

// ConfirmTopUp is the settlement callback for an arrived deposit. It credits
// the received amount less the top-up fee and completes the transaction.
func (e *Engine) ConfirmTopUp(ctx context.Context, req ConfirmTopUpRequest) (res *Result, err error) {
	started := time.Now()
	defer func() { e.observe("confirm_topup", started, res, err) }()

	if err := e.checkStruct(req); err != nil {
		return nil, err
	}
	txn, err := e.loadTransaction(ctx, req.TransactionId)
	if err != nil {
		return nil, err
	}
	if txn.Type != models.TxTypeBankTopUp && txn.Type != models.TxTypeCryptoTopUp {
		return nil, ledgererr.InvalidOperation("transaction %s is a %s, not a top-up", txn.Id, txn.Type)
	}
	if txn.Status.Terminal() {
		return nil, ledgererr.InvalidOperation("top-up %s is already %s", txn.Id, txn.Status)
	}
	if txn.Destination == nil {
		return nil, ledgererr.System("top-up has no destination account", errors.New(txn.Id))
	}
	ccy := txn.Currency
	if err := checkAmount(req.ReceivedAmount, ccy); err != nil {
		return nil, err
	}

	var fee decimal.Decimal
	if txn.Type == models.TxTypeBankTopUp {
		pct, err := e.settings.Value(ctx, settings.FeeTopUpBank, txn.ReceiverId)
		if err != nil {
			return nil, err
		}
		fee = percentFee(req.ReceivedAmount, pct, ccy)
	} else {
		flat, err := e.settings.Value(ctx, settings.FeeTopUpCryptoFlat, txn.ReceiverId)
		if err != nil {
			return nil, err
		}
		fee = flat.Round(models.Precision(ccy))
	}
	if fee.GreaterThanOrEqual(req.ReceivedAmount) {
		return nil, ledgererr.InvalidOperation("received %s %s does not cover the %s %s top-up fee",
			req.ReceivedAmount, ccy, fee, ccy)
	}
	credit := req.ReceivedAmount.Sub(fee)

	// An over-limit deposit stays pending; the settlement side fails it
	// through Settle and returns the funds.
	limitAmount, err := e.checkTopUpLimits(ctx, txn.ReceiverId, txn.Type, req.ReceivedAmount, ccy, txn.LimitAmount, true)
	if err != nil {
		return nil, err
	}

	err = e.inTx(ctx, func(tx store.Tx) error {
		locked, err := tx.LockTransaction(ctx, txn.Id)
		if err != nil {
			return lockError(txn.Id, err)
		}
		if locked.Status.Terminal() {
			return ledgererr.InvalidOperation("top-up %s is already %s", locked.Id, locked.Status)
		}

		legs := []leg{
			{ref: models.ClearingRef(ccy), amount: req.ReceivedAmount.Neg(), currency: ccy},
			{ref: *locked.Destination, amount: credit, currency: ccy},
			{ref: models.RevenueRef(ccy), amount: fee, currency: ccy},
		}
		movements, err := applyLegs(ctx, tx, legs, locked)
		if err != nil {
			return err
		}
		for i := range movements {
			movements[i].TransactionId = locked.Id
		}
		if err := tx.InsertMovements(ctx, movements); err != nil {
			return systemError("failed to insert movements", err)
		}

		var fees []models.FeeRevenue
		if fee.IsPositive() {
			fees = append(fees, models.FeeRevenue{
				TransactionId: locked.Id,
				FeeType:       models.FeeTypeTopUp,
				Amount:        fee,
				Currency:      ccy,
				UserId:        locked.ReceiverId,
			})
			if err := tx.InsertFeeRevenue(ctx, fees); err != nil {
				return systemError("failed to insert fee revenue", err)
			}
		}

		if err := tx.ConfirmTopUpDetail(ctx, locked.Id, req.ReceivedAmount, fee, e.now()); err != nil {
			return systemError("failed to confirm top-up detail", err)
		}
		completion := store.TopUpCompletion{
			Received:    req.ReceivedAmount,
			Fee:         fee,
			Credited:    credit,
			LimitAmount: limitAmount,
			ExternalRef: req.ExternalRef,
		}
		if err := tx.CompleteTopUp(ctx, locked.Id, completion); err != nil {
			return systemError("failed to complete top-up", err)
		}
		locked.Status = models.StatusCompleted
		locked.ExternalRef = req.ExternalRef
		locked.Amount = req.ReceivedAmount
		locked.Fee = fee
		locked.TotalDebit = req.ReceivedAmount
		locked.CreditedAmount = credit
		locked.LimitAmount = limitAmount

		if err := e.enqueue(ctx, tx, models.EventTransactionUpdated, locked, movements); err != nil {
			return err
		}
		res = &Result{Transaction: locked, Movements: movements, Fees: fees}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Top-up confirmed",
		zap.String("transaction_id", txn.Id),
		zap.String("received", req.ReceivedAmount.String()),
		zap.String("fee", fee.String()),
		zap.String("currency", ccy))
	return res, nil
}

// loadTransaction reads a header, mapping a missing row to NotFound.
func (e *Engine) loadTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	txn, err := e.store.GetTransaction(ctx, id)
	if errors.Is(err, store.ErrTransactionNotFound) {
		return nil, ledgererr.NotFound("transaction %s not found", id)
	}
	if err != nil {
		return nil, systemError("failed to load transaction", err)
	}
	return txn, nil
}
