package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	pg := dialect{driver: DriverPostgres}
	lite := dialect{driver: DriverSQLite}
	q := "SELECT * FROM accounts WHERE kind = ? AND id = ?"

	assert.Equal(t, "SELECT * FROM accounts WHERE kind = $1 AND id = $2", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestForUpdate(t *testing.T) {
	assert.Equal(t, "SELECT 1 FOR UPDATE", dialect{driver: DriverPostgres}.forUpdate("SELECT 1"))
	assert.Equal(t, "SELECT 1", dialect{driver: DriverSQLite}.forUpdate("SELECT 1"))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "4000000000000001", normalizeKey(models.AccountKindCard, " 4000 0000 0000 0001 "))
	assert.Equal(t, "AE070331234567890123456", normalizeKey(models.AccountKindBank, "ae07 0331 2345 6789 0123 456"))
	assert.Equal(t, "TXyzAbC", normalizeKey(models.AccountKindCrypto, "TXyzAbC"))
}

// A failed balance write must leave the unit of work rolled back.
func TestSaveAccountFailureRollsBack(t *testing.T) {
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDb.Close()

	svc := &Service{db: mockDb, dialect: dialect{driver: DriverSQLite}, now: time.Now}
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("card", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "owner_id", "currency", "balance", "active",
			"natural_key", "holder_name", "institution", "version", "created_at", "updated_at"}).
			AddRow("c1", "card", "alice", "AED", "100", true, "4000000000000001", "Alice", "", 1, time.Now(), time.Now()))
	mock.ExpectExec("UPDATE accounts").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	tx, err := svc.BeginTx(ctx)
	require.NoError(t, err)
	acct, err := tx.LockAndLoad(ctx, models.AccountRef{Kind: models.AccountKindCard, Id: "c1"})
	require.NoError(t, err)
	acct.Balance = acct.Balance.Sub(decimal.NewFromInt(10))

	err = tx.SaveAccount(ctx, acct)
	assert.Error(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
