package formance

import (
	"context"
	"testing"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		currency string
		want     string
	}{
		{"AED", "AED/2"},
		{"USDT", "USDT/6"},
		{"USDC", "USDC/6"},
		{"UNKNOWN", "UNKNOWN/2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formanceAsset(tt.currency), tt.currency)
	}
}

func TestAccountAddress(t *testing.T) {
	assert.Equal(t, "users:card:c1", accountAddress(models.AccountKindCard, "c1"))
	assert.Equal(t, "users:crypto:w1", accountAddress(models.AccountKindCrypto, "w1"))
	assert.Equal(t, "platform:clearing:AED", accountAddress(models.AccountKindClearing, "AED"))
	assert.Equal(t, "platform:revenue:AED", accountAddress(models.AccountKindRevenue, "AED"))
}

func TestBuildPosting(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	event := models.TransactionEvent{
		EventType:     models.EventTransactionCreated,
		TransactionId: "tx-1",
		Type:          models.TxTypeCardTransfer,
		Status:        models.StatusCompleted,
		OccurredAt:    at,
		Movements: []models.EventMovement{
			{AccountKind: models.AccountKindCard, AccountId: "c1", Amount: decimal.RequireFromString("-50.50"), Currency: "AED"},
			{AccountKind: models.AccountKindCard, AccountId: "c2", Amount: decimal.RequireFromString("50"), Currency: "AED"},
			{AccountKind: models.AccountKindRevenue, AccountId: "AED", Amount: decimal.RequireFromString("0.50"), Currency: "AED"},
		},
	}

	post, ok := buildPosting(event)
	require.True(t, ok)
	require.NotNil(t, post.Reference)
	assert.Equal(t, "tx-1-created", *post.Reference)
	assert.Equal(t, at, *post.Timestamp)

	vars := post.Script.Vars
	assert.Equal(t, "AED/2", vars["asset_0"])
	assert.Equal(t, "5050", vars["amount_0"])
	assert.Equal(t, "users:card:c1", vars["account_0"])
	assert.Equal(t, "5000", vars["amount_1"])
	assert.Equal(t, "50", vars["amount_2"])
	assert.Equal(t, "platform:revenue:AED", vars["account_2"])
	assert.Equal(t, "card_transfer", vars["transaction_type"])

	assert.Contains(t, post.Script.Plain, "source = $account_0 allowing unbounded overdraft\n  destination = @platform:transit")
	assert.Contains(t, post.Script.Plain, "source = @platform:transit allowing unbounded overdraft\n  destination = $account_1")
	assert.Contains(t, post.Script.Plain, `set_tx_meta("transaction_id", $transaction_id)`)
}

func TestBuildPostingSkipsEmptyMovements(t *testing.T) {
	event := models.TransactionEvent{
		EventType:     models.EventTransactionUpdated,
		TransactionId: "tx-2",
		Movements: []models.EventMovement{
			{AccountKind: models.AccountKindCard, AccountId: "c1", Amount: decimal.Zero, Currency: "AED"},
		},
	}
	_, ok := buildPosting(event)
	assert.False(t, ok)

	event.Movements = nil
	_, ok = buildPosting(event)
	assert.False(t, ok)
}

func TestReferenceDistinguishesEventTypes(t *testing.T) {
	created := models.TransactionEvent{TransactionId: "tx-3", EventType: models.EventTransactionCreated}
	updated := models.TransactionEvent{TransactionId: "tx-3", EventType: models.EventTransactionUpdated}
	assert.Equal(t, "tx-3-created", reference(created))
	assert.Equal(t, "tx-3-updated", reference(updated))
}

func TestSmallestUnits(t *testing.T) {
	mv := models.EventMovement{Amount: decimal.RequireFromString("-10.123456"), Currency: "USDT"}
	assert.Equal(t, "10123456", smallestUnits(mv))
}

func TestNewMirrorRequiresCredentials(t *testing.T) {
	_, err := NewMirror(context.Background(), models.FormanceConfig{StackURL: "http://localhost"})
	assert.Error(t, err)
}
