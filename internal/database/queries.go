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

const (
	// Account queries
	accountColumns = `id, kind, owner_id, currency, balance, active, natural_key, holder_name, institution, version, created_at, updated_at`

	queryInsertAccount = `
		INSERT INTO accounts (id, kind, owner_id, currency, balance, active, natural_key, holder_name, institution, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`

	queryGetAccount = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE kind = ? AND id = ?`

	queryGetAccountByNaturalKey = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE kind = ? AND natural_key = ? AND active = TRUE`

	queryListAccounts = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = ?
		ORDER BY kind, created_at`

	queryUpdateAccountBalance = `
		UPDATE accounts
		SET balance = ?, version = version + 1, updated_at = ?
		WHERE kind = ? AND id = ? AND version = ?`

	// Settings queries
	queryGetGlobalSetting = `
		SELECT value FROM admin_settings WHERE category = ? AND setting_key = ?`

	queryListGlobalSettings = `
		SELECT category, setting_key, value, description, updated_at
		FROM admin_settings
		ORDER BY category, setting_key`

	queryUpsertGlobalSetting = `
		INSERT INTO admin_settings (category, setting_key, value, description, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (category, setting_key) DO UPDATE
		SET value = excluded.value, description = excluded.description, updated_at = excluded.updated_at`

	// Profile queries
	profileOverrideColumns = `transfer_min, transfer_max, daily_transfer_limit, monthly_transfer_limit,
		withdrawal_min, withdrawal_max, daily_withdrawal_limit, monthly_withdrawal_limit,
		card_to_card_percent, bank_transfer_percent, network_fee_percent, currency_conversion_percent`

	queryGetProfile = `
		SELECT user_id, display_name, avatar_url, custom_settings_enabled, ` + profileOverrideColumns + `
		FROM profiles
		WHERE user_id = ?`

	queryListProfileIds = `
		SELECT user_id FROM profiles ORDER BY display_name, user_id`

	queryUpsertProfile = `
		INSERT INTO profiles (user_id, display_name, avatar_url, custom_settings_enabled, ` + profileOverrideColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			custom_settings_enabled = excluded.custom_settings_enabled,
			transfer_min = excluded.transfer_min,
			transfer_max = excluded.transfer_max,
			daily_transfer_limit = excluded.daily_transfer_limit,
			monthly_transfer_limit = excluded.monthly_transfer_limit,
			withdrawal_min = excluded.withdrawal_min,
			withdrawal_max = excluded.withdrawal_max,
			daily_withdrawal_limit = excluded.daily_withdrawal_limit,
			monthly_withdrawal_limit = excluded.monthly_withdrawal_limit,
			card_to_card_percent = excluded.card_to_card_percent,
			bank_transfer_percent = excluded.bank_transfer_percent,
			network_fee_percent = excluded.network_fee_percent,
			currency_conversion_percent = excluded.currency_conversion_percent,
			updated_at = excluded.updated_at`

	// Transaction queries. IN lists are appended at call time.
	queryLimitUsage = `
		SELECT limit_amount
		FROM transactions
		WHERE sender_id = ? AND created_at >= ?`

	transactionColumns = `id, type, status, sender_id, receiver_id, counterparty, source_kind, source_id,
		destination_kind, destination_id, amount, currency, fee, total_debit, credited_amount, credited_currency,
		exchange_rate, limit_amount, external_ref, related_id, metadata, created_at, updated_at`

	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransaction = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryListUserTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	queryUpdateTransactionStatus = `
		UPDATE transactions
		SET status = ?, external_ref = CASE WHEN ? = '' THEN external_ref ELSE ? END, updated_at = ?
		WHERE id = ?`

	queryCompleteTopUp = `
		UPDATE transactions
		SET status = ?, amount = ?, fee = ?, total_debit = ?, credited_amount = ?, limit_amount = ?,
			external_ref = CASE WHEN ? = '' THEN external_ref ELSE ? END, updated_at = ?
		WHERE id = ?`

	// Detail queries
	queryInsertCardTransferDetail = `
		INSERT INTO card_transfer_details (transaction_id, source_kind, receiver_card_masked, receiver_name)
		VALUES (?, ?, ?, ?)`

	queryGetCardTransferDetail = `
		SELECT transaction_id, source_kind, receiver_card_masked, receiver_name
		FROM card_transfer_details WHERE transaction_id = ?`

	queryInsertWithdrawalDetail = `
		INSERT INTO withdrawal_details (transaction_id, destination, iban, beneficiary_name, bank_name, rail,
			token, network, address, network_fee, provider_reference)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetWithdrawalDetail = `
		SELECT transaction_id, destination, iban, beneficiary_name, bank_name, rail,
			token, network, address, network_fee, provider_reference
		FROM withdrawal_details WHERE transaction_id = ?`

	queryInsertTopUpDetail = `
		INSERT INTO topup_details (transaction_id, rail, reference, bank_name, iban, beneficiary_name,
			token, network, deposit_address, qr_payload, min_amount, expected_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTopUpDetail = `
		SELECT transaction_id, rail, reference, bank_name, iban, beneficiary_name,
			token, network, deposit_address, qr_payload, min_amount, expected_amount,
			received_amount, fee, confirmed_at
		FROM topup_details WHERE transaction_id = ?`

	queryConfirmTopUpDetail = `
		UPDATE topup_details
		SET received_amount = ?, fee = ?, confirmed_at = ?
		WHERE transaction_id = ? AND confirmed_at IS NULL`

	queryInsertSwapDetail = `
		INSERT INTO swap_details (transaction_id, from_kind, from_currency, to_kind, to_currency, side, rate, mid_rate, spread)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetSwapDetail = `
		SELECT transaction_id, from_kind, from_currency, to_kind, to_currency, side, rate, mid_rate, spread
		FROM swap_details WHERE transaction_id = ?`

	queryInsertReversalDetail = `
		INSERT INTO reversal_details (transaction_id, original_transaction_id, reason)
		VALUES (?, ?, ?)`

	queryGetReversalDetail = `
		SELECT transaction_id, original_transaction_id, reason
		FROM reversal_details WHERE transaction_id = ?`

	// Ledger line queries
	queryInsertMovement = `
		INSERT INTO balance_movements (id, transaction_id, account_kind, account_id, amount, currency, direction, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryListMovements = `
		SELECT id, transaction_id, account_kind, account_id, amount, currency, direction, created_at
		FROM balance_movements
		WHERE transaction_id = ?
		ORDER BY created_at, id`

	queryInsertFeeRevenue = `
		INSERT INTO fee_revenue (id, transaction_id, fee_type, amount, currency, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	feeRevenueColumns = `id, transaction_id, fee_type, amount, currency, user_id, created_at`

	queryFeeRevenueForTransaction = `
		SELECT ` + feeRevenueColumns + `
		FROM fee_revenue
		WHERE transaction_id = ?
		ORDER BY created_at, id`

	queryFeeRevenueInRange = `
		SELECT ` + feeRevenueColumns + `
		FROM fee_revenue
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at, id`

	// Outbox queries
	queryInsertOutbox = `
		INSERT INTO ledger_outbox (transaction_id, event_type, payload, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	queryPendingOutbox = `
		SELECT id, transaction_id, event_type, payload, attempts, last_error, created_at
		FROM ledger_outbox
		WHERE dispatched_at IS NULL AND attempts < ?
		ORDER BY id
		LIMIT ?`

	queryMarkDispatched = `
		UPDATE ledger_outbox SET dispatched_at = ? WHERE id = ?`

	queryMarkDispatchFailed = `
		UPDATE ledger_outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`

	queryPurgeDispatched = `
		DELETE FROM ledger_outbox WHERE dispatched_at IS NOT NULL AND dispatched_at < ?`
)
