package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreateAccount(ctx context.Context, acct *models.Account) error {
	if !acct.Kind.Valid() {
		return fmt.Errorf("invalid account kind %q", acct.Kind)
	}
	if acct.NaturalKey == "" {
		return fmt.Errorf("account natural key cannot be empty")
	}
	if acct.Id == "" {
		acct.Id = uuid.New().String()
	}
	now := s.now()
	acct.CreatedAt, acct.UpdatedAt, acct.Version = now, now, 1

	_, err := s.exec(ctx, s.db, queryInsertAccount,
		acct.Id, string(acct.Kind), acct.OwnerId, acct.Currency, acct.Balance.String(), acct.Active,
		normalizeKey(acct.Kind, acct.NaturalKey), acct.HolderName, acct.Institution, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s", store.ErrDuplicateNaturalKey, acct.Kind, acct.NaturalKey)
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	zap.L().Info("Account created",
		zap.String("account_id", acct.Id),
		zap.String("kind", string(acct.Kind)),
		zap.String("owner_id", acct.OwnerId))
	return nil
}

func (s *Service) GetAccount(ctx context.Context, ref models.AccountRef) (*models.Account, error) {
	acct, err := scanAccount(s.queryRow(ctx, s.db, queryGetAccount, string(ref.Kind), ref.Id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledgererr.NotFound("%s account %s not found", ref.Kind, ref.Id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", ref, err)
	}
	return acct, nil
}

// FindAccount is owner-scoped: an account owned by someone else is
// indistinguishable from a missing one.
func (s *Service) FindAccount(ctx context.Context, ref models.AccountRef, ownerId string) (*models.Account, error) {
	acct, err := s.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	if acct.OwnerId != ownerId || !acct.Active {
		return nil, ledgererr.NotFound("%s account %s not found", ref.Kind, ref.Id)
	}
	return acct, nil
}

func (s *Service) ResolveNaturalKey(ctx context.Context, kind models.AccountKind, key string) (*models.Account, error) {
	acct, err := scanAccount(s.queryRow(ctx, s.db, queryGetAccountByNaturalKey, string(kind), normalizeKey(kind, key)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s key: %w", kind, err)
	}
	return acct, nil
}

func (s *Service) ListAccounts(ctx context.Context, ownerId string) ([]models.Account, error) {
	rows, err := s.query(ctx, s.db, queryListAccounts, ownerId)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *acct)
	}
	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var acct models.Account
	var kind, balance string
	if err := row.Scan(&acct.Id, &kind, &acct.OwnerId, &acct.Currency, &balance, &acct.Active,
		&acct.NaturalKey, &acct.HolderName, &acct.Institution, &acct.Version, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return nil, err
	}
	acct.Kind = models.AccountKind(kind)

	var err error
	acct.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balance, err)
	}
	return &acct, nil
}

func normalizeKey(kind models.AccountKind, key string) string {
	return models.NormalizeKey(kind, key)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
