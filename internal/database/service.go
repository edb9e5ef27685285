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
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: *Service must satisfy every store contract.
var (
	_ store.LedgerStore       = (*Service)(nil)
	_ store.TransactionReader = (*Service)(nil)
	_ store.RevenueStore      = (*Service)(nil)
	_ store.OutboxStore       = (*Service)(nil)
	_ store.SettingsStore     = (*Service)(nil)
	_ store.ProfileStore      = (*Service)(nil)
	_ store.UsageStore        = (*Service)(nil)
)

type Service struct {
	db          *sql.DB
	dialect     dialect
	lockTimeout time.Duration
	now         func() time.Time
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	if cfg.Driver != DriverSQLite && cfg.Driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if cfg.Driver == DriverSQLite && cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.Driver == DriverPostgres && cfg.Url == "" {
		return nil, fmt.Errorf("database url cannot be empty for driver %s", cfg.Driver)
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}

	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{
		db:          db,
		dialect:     dialect{driver: cfg.Driver},
		lockTimeout: cfg.LockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	if cfg.CreateDummyUsers {
		if err := service.createDummyUsers(ctx); err != nil {
			zap.L().Error("Failed to create dummy users", zap.Error(err))
		}
	} else {
		zap.L().Info("Skipping dummy user creation (CREATE_DUMMY_USERS=false)")
	}

	zap.L().Info("Database service initialized successfully", zap.String("driver", cfg.Driver))
	return service, nil
}

func open(cfg models.DatabaseConfig) (*sql.DB, error) {
	if cfg.Driver == DriverPostgres {
		zap.L().Info("Opening Postgres database")
		return sql.Open(DriverPostgres, cfg.Url)
	}

	// _txlock=immediate takes the write lock at BEGIN, which serializes
	// writers; _busy_timeout bounds how long a writer waits for it.
	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_txlock=immediate&_busy_timeout=%d",
		cfg.Path, cfg.LockTimeout.Milliseconds())
	return sql.Open(DriverSQLite, dsn)
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// SetClock overrides the timestamp source. Tests use it to pin created_at.
func (s *Service) SetClock(now func() time.Time) {
	s.now = func() time.Time { return now().UTC() }
}

func (s *Service) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

func (s *Service) createDummyUsers(ctx context.Context) error {
	for _, seed := range dummyUsers() {
		if err := s.UpsertProfile(ctx, &seed.profile); err != nil {
			return err
		}
		for i := range seed.accounts {
			acct := seed.accounts[i]
			acct.OwnerId = seed.profile.UserId
			if err := s.CreateAccount(ctx, &acct); err != nil {
				zap.L().Error("Failed to insert dummy account",
					zap.String("user_id", seed.profile.UserId),
					zap.String("kind", string(acct.Kind)),
					zap.Error(err))
				continue
			}
		}
		zap.L().Info("Dummy user created",
			zap.String("id", seed.profile.UserId),
			zap.String("name", seed.profile.DisplayName))
	}
	return nil
}

func (s *Service) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Service) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Service) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
