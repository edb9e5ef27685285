package receipts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/settings"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceCard = "4000000000000001"
	bobCard   = "4000000000000002"
	aliceIban = "AE070331234567890123456"
	chainAddr = "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE"
)

type fixture struct {
	db      *database.Service
	engine  *engine.Engine
	builder *Builder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	svc, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:       database.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
		LockTimeout:  2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	resolver := settings.NewResolver(svc, svc, svc)
	return &fixture{
		db:      svc,
		engine:  engine.NewEngine(svc, svc, resolver),
		builder: NewBuilder(svc, svc, svc),
	}
}

func (f *fixture) account(t *testing.T, kind models.AccountKind, owner, key, currency, balance, institution string) *models.Account {
	t.Helper()
	acct := &models.Account{
		Kind:        kind,
		OwnerId:     owner,
		Currency:    currency,
		Balance:     decimal.RequireFromString(balance),
		Active:      true,
		NaturalKey:  key,
		HolderName:  owner + " holder",
		Institution: institution,
	}
	require.NoError(t, f.db.CreateAccount(context.Background(), acct))
	return acct
}

func (f *fixture) profile(t *testing.T, userId, name, avatar string) {
	t.Helper()
	require.NoError(t, f.db.UpsertProfile(context.Background(), &models.Profile{
		UserId:      userId,
		DisplayName: name,
		AvatarUrl:   avatar,
	}))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDirection(t *testing.T) {
	txn := &models.Transaction{SenderId: "alice", ReceiverId: "bob"}
	assert.Equal(t, models.DirectionOutbound, Direction(txn, "alice"))
	assert.Equal(t, models.DirectionInbound, Direction(txn, "bob"))

	own := &models.Transaction{SenderId: "alice", ReceiverId: "alice"}
	assert.Equal(t, models.DirectionInternal, Direction(own, "alice"))

	external := &models.Transaction{SenderId: "alice"}
	assert.Equal(t, models.DirectionOutbound, Direction(external, "alice"))
}

func TestCardTransferReceiptBothSides(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.profile(t, "alice", "Alice Johnson", "")
	f.profile(t, "bob", "Bob Smith", "https://cdn.example/bob.png")
	src := f.account(t, models.AccountKindCard, "alice", aliceCard, models.CurrencyAED, "100", "")
	f.account(t, models.AccountKindCard, "bob", bobCard, models.CurrencyAED, "0", "")

	res, err := f.engine.CardTransfer(ctx, engine.CardTransferRequest{
		UserId:             "alice",
		SourceCardId:       src.Id,
		ReceiverCardNumber: bobCard,
		Amount:             dec("50"),
	})
	require.NoError(t, err)

	sent, err := f.builder.Build(ctx, res.Transaction.Id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionOutbound, sent.Direction)
	assert.Equal(t, "**** 0002", sent.RecipientCard)
	assert.Equal(t, "**** 0001", sent.SenderAccount)
	assert.Equal(t, "Alice Johnson", sent.SenderName)
	assert.Equal(t, "https://cdn.example/bob.png", sent.RecipientAvatar)
	assert.True(t, dec("0.50").Equal(sent.Fee))
	require.NotNil(t, sent.TotalDebit)
	assert.True(t, dec("50.50").Equal(*sent.TotalDebit))
	assert.Nil(t, sent.ExchangeRate)
	require.NotNil(t, sent.Breakdown)
	assert.Equal(t, models.BreakdownFlatFee, sent.Breakdown.Kind)
	assert.True(t, dec("50.50").Equal(sent.Breakdown.FlatFee.TotalDebit))

	received, err := f.builder.Build(ctx, res.Transaction.Id, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionInbound, received.Direction)
	assert.True(t, dec("50").Equal(received.Amount))
	assert.True(t, received.Fee.IsZero())
	assert.Nil(t, received.TotalDebit)
	assert.Nil(t, received.Breakdown)
	assert.Equal(t, "Alice Johnson", received.SenderName)
}

func TestReceiptHiddenFromStrangers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	src := f.account(t, models.AccountKindCard, "alice", aliceCard, models.CurrencyAED, "100", "")
	f.account(t, models.AccountKindCard, "bob", bobCard, models.CurrencyAED, "0", "")

	res, err := f.engine.CardTransfer(ctx, engine.CardTransferRequest{
		UserId: "alice", SourceCardId: src.Id, ReceiverCardNumber: bobCard, Amount: dec("10"),
	})
	require.NoError(t, err)

	_, err = f.builder.Build(ctx, res.Transaction.Id, "mallory")
	assert.True(t, errors.Is(err, ledgererr.ErrNotFound))

	_, err = f.builder.Build(ctx, "no-such-transaction", "alice")
	assert.True(t, errors.Is(err, ledgererr.ErrNotFound))
}

func TestExternalCryptoTransferReceipt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	card := f.account(t, models.AccountKindCard, "alice", aliceCard, models.CurrencyAED, "1000", "")

	res, err := f.engine.Transfer(ctx, engine.TransferRequest{
		UserId:          "alice",
		SourceKind:      models.AccountKindCard,
		SourceId:        card.Id,
		DestinationKind: models.AccountKindCrypto,
		DestinationKey:  chainAddr,
		Token:           models.CurrencyUSDT,
		Network:         models.NetworkTRC20,
		Amount:          dec("369"),
	})
	require.NoError(t, err)

	r, err := f.builder.Build(ctx, res.Transaction.Id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, r.Status)
	assert.Equal(t, "TQn9Y...cbLSE", r.ToAddress)
	assert.Equal(t, models.NetworkTRC20, r.Network)
	assert.Empty(t, r.RecipientName)
	require.NotNil(t, r.ExchangeRate)
	assert.True(t, dec("3.69").Equal(*r.ExchangeRate))

	require.NotNil(t, r.Breakdown)
	assert.Equal(t, models.BreakdownFiatToCrypto, r.Breakdown.Kind)
	b := r.Breakdown.FiatToCrypto
	require.NotNil(t, b)
	assert.True(t, dec("369").Equal(b.AmountAed))
	assert.True(t, dec("100").Equal(b.AmountCrypto))
	assert.Equal(t, models.CurrencyUSDT, b.Token)
	assert.True(t, dec("372.69").Equal(b.TotalDebit))
}

func TestSwapReceiptIsInternal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	wallet := f.account(t, models.AccountKindCrypto, "alice", "TXyzAliceWallet0000000000001", models.CurrencyUSDT, "100", models.NetworkTRC20)
	card := f.account(t, models.AccountKindCard, "alice", aliceCard, models.CurrencyAED, "0", "")

	res, err := f.engine.Swap(ctx, engine.SwapRequest{
		UserId:   "alice",
		FromKind: models.AccountKindCrypto,
		FromId:   wallet.Id,
		ToKind:   models.AccountKindCard,
		ToId:     card.Id,
		Amount:   dec("10"),
	})
	require.NoError(t, err)

	r, err := f.builder.Build(ctx, res.Transaction.Id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionInternal, r.Direction)
	require.NotNil(t, r.Breakdown)
	assert.Equal(t, models.BreakdownCryptoToFiat, r.Breakdown.Kind)
	assert.Equal(t, models.CurrencyUSDT, r.Breakdown.CryptoToFiat.Token)
	assert.True(t, dec("36.5").Equal(r.Breakdown.CryptoToFiat.AmountAed))
}

func TestBankTopUpReceiptCarriesInstructions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.account(t, models.AccountKindBank, "alice", aliceIban, models.CurrencyAED, "0", "Emirates Business Bank")

	res, err := f.engine.InitiateBankTopUp(ctx, engine.BankTopUpRequest{UserId: "alice", Rail: models.RailSwift})
	require.NoError(t, err)

	r, err := f.builder.Build(ctx, res.Transaction.Id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Regexp(t, `^REF-`, r.Reference)
	assert.Equal(t, "AE07 **** 3456", r.RecipientIban)
	assert.Nil(t, r.TotalDebit)
	require.NotNil(t, r.Breakdown)
	assert.Equal(t, models.BreakdownTopUpInstructions, r.Breakdown.Kind)
	assert.Equal(t, aliceIban, r.Breakdown.Instructions.Iban)
	assert.Equal(t, r.Reference, r.Breakdown.Instructions.Reference)
}

func TestConfirmedTopUpReceiptShowsReceivedAmounts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.db.UpsertGlobalSetting(ctx, models.Setting{
		Category: settings.CategoryFees, Key: settings.FeeTopUpBank.Name, Value: dec("0.5"),
	}))
	f.account(t, models.AccountKindBank, "alice", aliceIban, models.CurrencyAED, "0", "Emirates Business Bank")

	res, err := f.engine.InitiateBankTopUp(ctx, engine.BankTopUpRequest{UserId: "alice", Rail: models.RailUAELocal})
	require.NoError(t, err)
	_, err = f.engine.ConfirmTopUp(ctx, engine.ConfirmTopUpRequest{
		TransactionId: res.Transaction.Id, ReceivedAmount: dec("1000"), ExternalRef: "FT-9",
	})
	require.NoError(t, err)

	r, err := f.builder.Build(ctx, res.Transaction.Id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, r.Status)
	assert.True(t, dec("1000").Equal(r.Amount), r.Amount.String())
	assert.True(t, dec("5").Equal(r.Fee), r.Fee.String())
	assert.Equal(t, "FT-9", r.ExternalRef)
}

func TestTopUpWithoutIbanLeavesRecipientIbanEmpty(t *testing.T) {
	r := &models.Receipt{}
	applyMetadata(r, models.BankTopUpMetadata{Rail: models.RailSwift, Reference: "REF-0000ABCD"})
	assert.Equal(t, "REF-0000ABCD", r.Reference)
	assert.Empty(t, r.RecipientIban)

	applyMetadata(r, models.CryptoTopUpMetadata{Network: models.NetworkTRC20})
	assert.Empty(t, r.ToAddress)
}

func TestReceiptFallsBackToLiveLookup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dst := f.account(t, models.AccountKindCard, "bob", bobCard, models.CurrencyAED, "0", "")

	// A header written without metadata or detail, as an older writer would have.
	tx, err := f.db.BeginTx(ctx)
	require.NoError(t, err)
	txn := &models.Transaction{
		Type:             models.TxTypeCardTransfer,
		Status:           models.StatusCompleted,
		SenderId:         "alice",
		ReceiverId:       "bob",
		CounterpartyKind: models.CounterpartyInternal,
		Source:           models.AccountRef{Kind: models.AccountKindCard, Id: "legacy-card"},
		Destination:      &models.AccountRef{Kind: models.AccountKindCard, Id: dst.Id},
		Amount:           dec("20"),
		Currency:         models.CurrencyAED,
		Fee:              dec("0"),
		TotalDebit:       dec("20"),
		CreditedAmount:   dec("20"),
		CreditedCurrency: models.CurrencyAED,
		LimitAmount:      dec("20"),
	}
	require.NoError(t, tx.InsertTransaction(ctx, txn))
	require.NoError(t, tx.Commit())

	r, err := f.builder.Build(ctx, txn.Id, "alice")
	require.NoError(t, err)
	assert.Equal(t, "**** 0002", r.RecipientCard)
	assert.Equal(t, "bob holder", r.RecipientName)
	assert.Empty(t, r.SenderAccount)
	assert.Empty(t, r.SenderName)
	require.NotNil(t, r.Breakdown)
	assert.Equal(t, models.BreakdownFlatFee, r.Breakdown.Kind)
}
