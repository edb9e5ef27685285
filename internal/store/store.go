package store

import (
	"context"
	"errors"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across backend implementations.
var (
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrDetailNotFound         = errors.New("transaction detail not found")
	ErrDuplicateNaturalKey    = errors.New("natural key already registered")
)

// AccountRepository is the uniform lookup contract over cards, bank
// accounts and crypto wallets. One implementation serves all three kinds.
type AccountRepository interface {
	// FindAccount returns the account only when ownerId owns it; otherwise a NotFound error.
	FindAccount(ctx context.Context, ref models.AccountRef, ownerId string) (*models.Account, error)
	// ResolveNaturalKey returns nil, nil when no on-platform account carries the key.
	ResolveNaturalKey(ctx context.Context, kind models.AccountKind, key string) (*models.Account, error)
	GetAccount(ctx context.Context, ref models.AccountRef) (*models.Account, error)
	ListAccounts(ctx context.Context, ownerId string) ([]models.Account, error)
	CreateAccount(ctx context.Context, acct *models.Account) error
}

// SettingsStore holds the global (category, key) -> value table.
type SettingsStore interface {
	GetGlobalSetting(ctx context.Context, category, key string) (decimal.Decimal, bool, error)
	ListGlobalSettings(ctx context.Context) ([]models.Setting, error)
	UpsertGlobalSetting(ctx context.Context, setting models.Setting) error
}

// ProfileStore is the identity/profile directory the ledger reads.
type ProfileStore interface {
	// GetProfile returns nil, nil for users without a profile row.
	GetProfile(ctx context.Context, userId string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

// UsageStore answers rolling-limit queries.
type UsageStore interface {
	SumLimitUsage(ctx context.Context, userId string, types []models.TransactionType, statuses []models.TransactionStatus, since time.Time) (decimal.Decimal, error)
}

// TopUpCompletion carries the settled amounts of a deposit. Received is also
// the total debited from clearing.
type TopUpCompletion struct {
	Received    decimal.Decimal
	Fee         decimal.Decimal
	Credited    decimal.Decimal
	LimitAmount decimal.Decimal
	ExternalRef string
}

// Tx is one atomic unit of work. Nothing written through it is visible
// until Commit; Rollback after Commit is a no-op.
type Tx interface {
	// LockAndLoad takes an exclusive lock on the account row for the rest of the Tx.
	LockAndLoad(ctx context.Context, ref models.AccountRef) (*models.Account, error)
	SaveAccount(ctx context.Context, acct *models.Account) error

	LockTransaction(ctx context.Context, id string) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus, externalRef string) error
	CompleteTopUp(ctx context.Context, id string, completion TopUpCompletion) error

	InsertDetail(ctx context.Context, detail models.Detail) error
	ConfirmTopUpDetail(ctx context.Context, transactionId string, received, fee decimal.Decimal, at time.Time) error

	InsertMovements(ctx context.Context, movements []models.BalanceMovement) error
	ListMovements(ctx context.Context, transactionId string) ([]models.BalanceMovement, error)
	ListFeeRevenue(ctx context.Context, transactionId string) ([]models.FeeRevenue, error)
	InsertFeeRevenue(ctx context.Context, rows []models.FeeRevenue) error
	InsertOutbox(ctx context.Context, event *models.OutboxEvent) error

	Commit() error
	Rollback() error
}

// LedgerStore is everything the engine needs from persistence.
type LedgerStore interface {
	AccountRepository
	BeginTx(ctx context.Context) (Tx, error)
}

// TransactionReader serves read-only paths (receipts, tooling).
type TransactionReader interface {
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetDetail(ctx context.Context, tx *models.Transaction) (models.Detail, error)
	ListMovements(ctx context.Context, transactionId string) ([]models.BalanceMovement, error)
	ListFeeRevenueForTransaction(ctx context.Context, transactionId string) ([]models.FeeRevenue, error)
	ListUserTransactions(ctx context.Context, userId string, page models.Page) ([]models.Transaction, error)
}

// RevenueStore serves the revenue aggregator.
type RevenueStore interface {
	FeeRevenueInRange(ctx context.Context, from, to time.Time) ([]models.FeeRevenue, error)
	QueryFeeRevenue(ctx context.Context, filter models.RevenueFilter, page models.Page) ([]models.FeeRevenue, int, error)
}

// OutboxStore serves the dispatcher.
type OutboxStore interface {
	PendingOutbox(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id int64, at time.Time) error
	MarkDispatchFailed(ctx context.Context, id int64, reason string) error
	PurgeDispatched(ctx context.Context, before time.Time) (int64, error)
}
