package database

import "fmt"

// schemaStatements returns the DDL in dependency order. Money columns are
// TEXT and parsed with decimal.NewFromString on read.
func schemaStatements(d dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			custom_settings_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			transfer_min TEXT,
			transfer_max TEXT,
			daily_transfer_limit TEXT,
			monthly_transfer_limit TEXT,
			withdrawal_min TEXT,
			withdrawal_max TEXT,
			daily_withdrawal_limit TEXT,
			monthly_withdrawal_limit TEXT,
			card_to_card_percent TEXT,
			bank_transfer_percent TEXT,
			network_fee_percent TEXT,
			currency_conversion_percent TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			currency TEXT NOT NULL,
			balance TEXT NOT NULL DEFAULT '0',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			natural_key TEXT NOT NULL,
			holder_name TEXT NOT NULL DEFAULT '',
			institution TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (kind, natural_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id, kind)`,

		`CREATE TABLE IF NOT EXISTS admin_settings (
			category TEXT NOT NULL,
			setting_key TEXT NOT NULL,
			value TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (category, setting_key)
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			receiver_id TEXT,
			counterparty TEXT NOT NULL,
			source_kind TEXT NOT NULL,
			source_id TEXT NOT NULL,
			destination_kind TEXT,
			destination_id TEXT,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			fee TEXT NOT NULL,
			total_debit TEXT NOT NULL,
			credited_amount TEXT NOT NULL,
			credited_currency TEXT NOT NULL,
			exchange_rate TEXT,
			limit_amount TEXT NOT NULL,
			external_ref TEXT NOT NULL DEFAULT '',
			related_id TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS card_transfer_details (
			transaction_id TEXT PRIMARY KEY REFERENCES transactions(id),
			source_kind TEXT NOT NULL,
			receiver_card_masked TEXT NOT NULL DEFAULT '',
			receiver_name TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS withdrawal_details (
			transaction_id TEXT PRIMARY KEY REFERENCES transactions(id),
			destination TEXT NOT NULL,
			iban TEXT NOT NULL DEFAULT '',
			beneficiary_name TEXT NOT NULL DEFAULT '',
			bank_name TEXT NOT NULL DEFAULT '',
			rail TEXT NOT NULL DEFAULT '',
			token TEXT NOT NULL DEFAULT '',
			network TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			network_fee TEXT NOT NULL DEFAULT '0',
			provider_reference TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS topup_details (
			transaction_id TEXT PRIMARY KEY REFERENCES transactions(id),
			rail TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			bank_name TEXT NOT NULL DEFAULT '',
			iban TEXT NOT NULL DEFAULT '',
			beneficiary_name TEXT NOT NULL DEFAULT '',
			token TEXT NOT NULL DEFAULT '',
			network TEXT NOT NULL DEFAULT '',
			deposit_address TEXT NOT NULL DEFAULT '',
			qr_payload TEXT NOT NULL DEFAULT '',
			min_amount TEXT NOT NULL DEFAULT '0',
			expected_amount TEXT NOT NULL DEFAULT '0',
			received_amount TEXT,
			fee TEXT,
			confirmed_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS swap_details (
			transaction_id TEXT PRIMARY KEY REFERENCES transactions(id),
			from_kind TEXT NOT NULL,
			from_currency TEXT NOT NULL,
			to_kind TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			side TEXT NOT NULL DEFAULT '',
			rate TEXT,
			mid_rate TEXT,
			spread TEXT NOT NULL DEFAULT '0'
		)`,

		`CREATE TABLE IF NOT EXISTS reversal_details (
			transaction_id TEXT PRIMARY KEY REFERENCES transactions(id),
			original_transaction_id TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT ''
		)`,

		// Append-only ledger lines
		`CREATE TABLE IF NOT EXISTS balance_movements (
			id TEXT PRIMARY KEY,
			transaction_id TEXT NOT NULL REFERENCES transactions(id),
			account_kind TEXT NOT NULL,
			account_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			direction TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_transaction ON balance_movements(transaction_id)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_account ON balance_movements(account_kind, account_id)`,

		`CREATE TABLE IF NOT EXISTS fee_revenue (
			id TEXT PRIMARY KEY,
			transaction_id TEXT NOT NULL REFERENCES transactions(id),
			fee_type TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fee_revenue_created ON fee_revenue(created_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ledger_outbox (
			id %s,
			transaction_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			dispatched_at TIMESTAMP
		)`, d.autoIncrementKey()),
		`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON ledger_outbox(dispatched_at, id)`,
	}
}
