package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDb(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), models.DatabaseConfig{
		Driver:       DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
		LockTimeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func createAccount(t *testing.T, svc *Service, kind models.AccountKind, owner, key, currency, balance string) *models.Account {
	t.Helper()
	acct := &models.Account{
		Kind:       kind,
		OwnerId:    owner,
		Currency:   currency,
		Balance:    decimal.RequireFromString(balance),
		Active:     true,
		NaturalKey: key,
		HolderName: owner,
	}
	require.NoError(t, svc.CreateAccount(context.Background(), acct))
	return acct
}

func TestNewServiceValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := NewService(ctx, models.DatabaseConfig{Driver: DriverSQLite, MaxOpenConns: 1, PingTimeout: time.Second})
	assert.Error(t, err)

	_, err = NewService(ctx, models.DatabaseConfig{Driver: "oracle", Path: "x.db", MaxOpenConns: 1, PingTimeout: time.Second})
	assert.Error(t, err)

	_, err = NewService(ctx, models.DatabaseConfig{Driver: DriverSQLite, Path: "x.db", MaxOpenConns: 0, PingTimeout: time.Second})
	assert.Error(t, err)

	_, err = NewService(ctx, models.DatabaseConfig{Driver: DriverPostgres, MaxOpenConns: 1, PingTimeout: time.Second})
	assert.Error(t, err)
}

func TestFindAccountIsOwnerScoped(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	card := createAccount(t, svc, models.AccountKindCard, "alice", "4000 0000 0000 0001", models.CurrencyAED, "100")

	got, err := svc.FindAccount(ctx, card.Ref(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "4000000000000001", got.NaturalKey)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))

	_, err = svc.FindAccount(ctx, card.Ref(), "mallory")
	assert.True(t, errors.Is(err, ledgererr.ErrNotFound))

	_, err = svc.FindAccount(ctx, models.AccountRef{Kind: models.AccountKindCard, Id: "missing"}, "alice")
	assert.True(t, errors.Is(err, ledgererr.ErrNotFound))
}

func TestResolveNaturalKey(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	bank := createAccount(t, svc, models.AccountKindBank, "bob", "AE07 0331 2345 6789 0123 456", models.CurrencyAED, "0")

	got, err := svc.ResolveNaturalKey(ctx, models.AccountKindBank, "ae070331234567890123456")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bank.Id, got.Id)

	got, err = svc.ResolveNaturalKey(ctx, models.AccountKindBank, "GB33BUKB20201555555555")
	require.NoError(t, err)
	assert.Nil(t, got, "off-platform IBAN resolves to nothing")

	// Same key on a different kind is a different account space.
	got, err = svc.ResolveNaturalKey(ctx, models.AccountKindCard, "AE070331234567890123456")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateAccountRejectsDuplicateKey(t *testing.T) {
	svc := setupTestDb(t)
	createAccount(t, svc, models.AccountKindCard, "alice", "4000000000000001", models.CurrencyAED, "0")

	err := svc.CreateAccount(context.Background(), &models.Account{
		Kind: models.AccountKindCard, OwnerId: "bob", Currency: models.CurrencyAED, Active: true, NaturalKey: "4000000000000001",
	})
	assert.True(t, errors.Is(err, store.ErrDuplicateNaturalKey))
}

func TestLedgerTxCommitAndRead(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	card := createAccount(t, svc, models.AccountKindCard, "alice", "4000000000000001", models.CurrencyAED, "100")

	tx, err := svc.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	locked, err := tx.LockAndLoad(ctx, card.Ref())
	require.NoError(t, err)
	locked.Balance = locked.Balance.Sub(decimal.RequireFromString("50.50"))
	require.NoError(t, tx.SaveAccount(ctx, locked))

	rate := decimal.RequireFromString("3.69")
	txn := &models.Transaction{
		Type:             models.TxTypeCardTransfer,
		Status:           models.StatusProcessing,
		SenderId:         "alice",
		CounterpartyKind: models.CounterpartyExternal,
		Source:           card.Ref(),
		Amount:           decimal.RequireFromString("50"),
		Currency:         models.CurrencyAED,
		Fee:              decimal.RequireFromString("0.50"),
		TotalDebit:       decimal.RequireFromString("50.50"),
		CreditedAmount:   decimal.RequireFromString("50"),
		CreditedCurrency: models.CurrencyAED,
		ExchangeRate:     &rate,
		LimitAmount:      decimal.RequireFromString("50"),
		Metadata:         models.CardTransferMetadata{ReceiverCardMasked: "**** 9999"},
	}
	require.NoError(t, tx.InsertTransaction(ctx, txn))
	require.NoError(t, tx.InsertDetail(ctx, &models.CardTransferDetail{
		TransactionId: txn.Id, SourceKind: models.AccountKindCard, ReceiverCardMasked: "**** 9999",
	}))
	require.NoError(t, tx.InsertMovements(ctx, []models.BalanceMovement{
		{TransactionId: txn.Id, AccountKind: card.Kind, AccountId: card.Id, Amount: decimal.RequireFromString("-50.50"), Currency: "AED", Direction: models.Debit},
		{TransactionId: txn.Id, AccountKind: models.AccountKindClearing, AccountId: "AED", Amount: decimal.RequireFromString("50"), Currency: "AED", Direction: models.Credit},
	}))
	require.NoError(t, tx.InsertFeeRevenue(ctx, []models.FeeRevenue{
		{TransactionId: txn.Id, FeeType: models.FeeTypeCardTransfer, Amount: decimal.RequireFromString("0.50"), Currency: "AED", UserId: "alice"},
	}))
	ev := &models.OutboxEvent{TransactionId: txn.Id, EventType: "transaction.created", Payload: []byte(`{}`)}
	require.NoError(t, tx.InsertOutbox(ctx, ev))
	assert.NotZero(t, ev.Id)
	require.NoError(t, tx.Commit())

	got, err := svc.GetTransaction(ctx, txn.Id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.True(t, got.IsExternal())
	assert.Empty(t, got.ReceiverId)
	assert.Nil(t, got.Destination)
	require.NotNil(t, got.ExchangeRate)
	assert.Equal(t, "3.69", got.ExchangeRate.String())
	meta, ok := got.Metadata.(models.CardTransferMetadata)
	require.True(t, ok, "metadata decodes to its typed variant")
	assert.Equal(t, "**** 9999", meta.ReceiverCardMasked)

	detail, err := svc.GetDetail(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "**** 9999", detail.(*models.CardTransferDetail).ReceiverCardMasked)

	movements, err := svc.ListMovements(ctx, txn.Id)
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	fees, err := svc.ListFeeRevenueForTransaction(ctx, txn.Id)
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, "0.5", fees[0].Amount.String())

	reloaded, err := svc.GetAccount(ctx, card.Ref())
	require.NoError(t, err)
	assert.Equal(t, "49.5", reloaded.Balance.String())
	assert.Equal(t, int64(2), reloaded.Version)
}

func TestLedgerTxRollbackDiscardsEverything(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	card := createAccount(t, svc, models.AccountKindCard, "alice", "4000000000000001", models.CurrencyAED, "100")

	tx, err := svc.BeginTx(ctx)
	require.NoError(t, err)
	locked, err := tx.LockAndLoad(ctx, card.Ref())
	require.NoError(t, err)
	locked.Balance = decimal.Zero
	require.NoError(t, tx.SaveAccount(ctx, locked))
	txn := &models.Transaction{
		Type: models.TxTypeCardTransfer, Status: models.StatusCompleted, SenderId: "alice",
		CounterpartyKind: models.CounterpartyInternal, Source: card.Ref(), Currency: "AED", CreditedCurrency: "AED",
	}
	require.NoError(t, tx.InsertTransaction(ctx, txn))
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback(), "second rollback is a no-op")

	_, err = svc.GetTransaction(ctx, txn.Id)
	assert.True(t, errors.Is(err, store.ErrTransactionNotFound))

	reloaded, err := svc.GetAccount(ctx, card.Ref())
	require.NoError(t, err)
	assert.Equal(t, "100", reloaded.Balance.String())
}

func TestSaveAccountRejectsStaleVersion(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	card := createAccount(t, svc, models.AccountKindCard, "alice", "4000000000000001", models.CurrencyAED, "100")

	tx, err := svc.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	stale := *card
	stale.Version = 42
	err = tx.SaveAccount(ctx, &stale)
	assert.True(t, errors.Is(err, store.ErrConcurrentModification))

	negative := *card
	negative.Balance = decimal.NewFromInt(-1)
	assert.Error(t, tx.SaveAccount(ctx, &negative))
}

func TestProfileOverrides(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()

	missing, err := svc.GetProfile(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, svc.UpsertProfile(ctx, &models.Profile{
		UserId:                "alice",
		DisplayName:           "Alice Johnson",
		CustomSettingsEnabled: true,
		Overrides: map[string]decimal.Decimal{
			"card_to_card_percent": decimal.RequireFromString("0.25"),
			"transfer_max":         decimal.NewFromInt(200),
		},
	}))

	profile, err := svc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.True(t, profile.CustomSettingsEnabled)
	assert.Equal(t, "0.25", profile.Overrides["card_to_card_percent"].String())
	assert.Equal(t, "200", profile.Overrides["transfer_max"].String())
	_, ok := profile.Overrides["withdrawal_max"]
	assert.False(t, ok, "unset override columns stay absent")
}

func TestListProfilesOrderedByName(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertProfile(ctx, &models.Profile{UserId: "u2", DisplayName: "Bob Smith"}))
	require.NoError(t, svc.UpsertProfile(ctx, &models.Profile{UserId: "u1", DisplayName: "Alice Johnson"}))

	profiles, err := svc.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "u1", profiles[0].UserId)
	assert.Equal(t, "Bob Smith", profiles[1].DisplayName)
}

func TestGlobalSettingsSeed(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()

	seed := []models.Setting{
		{Category: "fees", Key: "card_to_card_percent", Value: decimal.RequireFromString("1.0")},
		{Category: "exchange_rates", Key: "usdt_to_aed_sell", Value: decimal.RequireFromString("3.69")},
	}
	written, err := svc.SeedSettings(ctx, seed, false)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	seed[0].Value = decimal.RequireFromString("2.0")
	written, err = svc.SeedSettings(ctx, seed, false)
	require.NoError(t, err)
	assert.Equal(t, 0, written, "existing rows are kept without overwrite")

	value, ok, err := svc.GetGlobalSetting(ctx, "fees", "card_to_card_percent")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", value.String())

	_, err = svc.SeedSettings(ctx, seed, true)
	require.NoError(t, err)
	value, _, err = svc.GetGlobalSetting(ctx, "fees", "card_to_card_percent")
	require.NoError(t, err)
	assert.Equal(t, "2", value.String())

	_, ok, err = svc.GetGlobalSetting(ctx, "fees", "unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := svc.ListGlobalSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func insertTxn(t *testing.T, svc *Service, txn *models.Transaction) {
	t.Helper()
	ctx := context.Background()
	tx, err := svc.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	require.NoError(t, tx.InsertTransaction(ctx, txn))
	require.NoError(t, tx.Commit())
}

func TestSumLimitUsage(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	base := func(typ models.TransactionType, status models.TransactionStatus, amount string, at time.Time) *models.Transaction {
		return &models.Transaction{
			Type: typ, Status: status, SenderId: "alice", CounterpartyKind: models.CounterpartyExternal,
			Source: models.AccountRef{Kind: models.AccountKindCard, Id: "c1"}, Currency: "AED", CreditedCurrency: "AED",
			Amount: decimal.RequireFromString(amount), LimitAmount: decimal.RequireFromString(amount), CreatedAt: at,
		}
	}
	insertTxn(t, svc, base(models.TxTypeBankWithdrawal, models.StatusProcessing, "100", now))
	insertTxn(t, svc, base(models.TxTypeCryptoWithdrawal, models.StatusCompleted, "50", now.Add(-time.Hour)))
	insertTxn(t, svc, base(models.TxTypeBankWithdrawal, models.StatusFailed, "999", now))
	insertTxn(t, svc, base(models.TxTypeCardTransfer, models.StatusCompleted, "777", now))
	insertTxn(t, svc, base(models.TxTypeBankWithdrawal, models.StatusCompleted, "30", now.AddDate(0, 0, -2)))

	types := []models.TransactionType{models.TxTypeBankWithdrawal, models.TxTypeCryptoWithdrawal}
	statuses := []models.TransactionStatus{models.StatusCompleted, models.StatusProcessing, models.StatusPending}

	today, err := svc.SumLimitUsage(ctx, "alice", types, statuses, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "150", today.String())

	month, err := svc.SumLimitUsage(ctx, "alice", types, statuses, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "180", month.String())

	other, err := svc.SumLimitUsage(ctx, "bob", types, statuses, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}

func TestOutboxLifecycle(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()

	txn := &models.Transaction{
		Type: models.TxTypeCardTransfer, Status: models.StatusCompleted, SenderId: "alice",
		CounterpartyKind: models.CounterpartyInternal, Source: models.AccountRef{Kind: models.AccountKindCard, Id: "c1"},
		Currency: "AED", CreditedCurrency: "AED",
	}
	tx, err := svc.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertTransaction(ctx, txn))
	first := &models.OutboxEvent{TransactionId: txn.Id, EventType: "transaction.created", Payload: []byte(`{"a":1}`)}
	second := &models.OutboxEvent{TransactionId: txn.Id, EventType: "transaction.created", Payload: []byte(`{"a":2}`)}
	require.NoError(t, tx.InsertOutbox(ctx, first))
	require.NoError(t, tx.InsertOutbox(ctx, second))
	require.NoError(t, tx.Commit())

	pending, err := svc.PendingOutbox(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.Id, pending[0].Id)
	assert.Equal(t, `{"a":1}`, string(pending[0].Payload))

	require.NoError(t, svc.MarkDispatched(ctx, first.Id, time.Now().Add(-48*time.Hour)))
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.MarkDispatchFailed(ctx, second.Id, "broker unavailable"))
	}

	pending, err = svc.PendingOutbox(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, pending, "dispatched and exhausted events are skipped")

	purged, err := svc.PurgeDispatched(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestQueryFeeRevenue(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	txn := &models.Transaction{
		Type: models.TxTypeCardTransfer, Status: models.StatusCompleted, SenderId: "alice",
		CounterpartyKind: models.CounterpartyInternal, Source: models.AccountRef{Kind: models.AccountKindCard, Id: "c1"},
		Currency: "AED", CreditedCurrency: "AED",
	}
	tx, err := svc.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertTransaction(ctx, txn))
	require.NoError(t, tx.InsertFeeRevenue(ctx, []models.FeeRevenue{
		{TransactionId: txn.Id, FeeType: models.FeeTypeCardTransfer, Amount: decimal.RequireFromString("0.50"), Currency: "AED", UserId: "alice", CreatedAt: day},
		{TransactionId: txn.Id, FeeType: models.FeeTypeExchangeSpread, Amount: decimal.RequireFromString("1.25"), Currency: "AED", UserId: "alice", CreatedAt: day.Add(time.Hour)},
		{TransactionId: txn.Id, FeeType: models.FeeTypeNetwork, Amount: decimal.RequireFromString("1"), Currency: "USDT", UserId: "bob", CreatedAt: day.AddDate(0, 0, 1)},
	}))
	require.NoError(t, tx.Commit())

	rows, total, err := svc.QueryFeeRevenue(ctx, models.RevenueFilter{Currency: "AED"}, models.Page{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, rows, 1)
	assert.Equal(t, models.FeeTypeExchangeSpread, rows[0].FeeType, "newest first")

	rows, total, err = svc.QueryFeeRevenue(ctx, models.RevenueFilter{UserId: "bob"}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "USDT", rows[0].Currency)

	inRange, err := svc.FeeRevenueInRange(ctx, day.Add(-time.Hour), day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, inRange, 2)
}
