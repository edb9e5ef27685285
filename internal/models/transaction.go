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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of operations the engine records.
type TransactionType string

const (
	TxTypeCardTransfer     TransactionType = "card_transfer"
	TxTypeBankTransfer     TransactionType = "bank_transfer"
	TxTypeCryptoTransfer   TransactionType = "crypto_transfer"
	TxTypeBankWithdrawal   TransactionType = "bank_withdrawal"
	TxTypeCryptoWithdrawal TransactionType = "crypto_withdrawal"
	TxTypeBankTopUp        TransactionType = "bank_topup"
	TxTypeCryptoTopUp      TransactionType = "crypto_topup"
	TxTypeInternalTransfer TransactionType = "internal_transfer"
	TxTypeReversal         TransactionType = "reversal"
)

// TransactionStatus follows pending -> processing -> completed|failed.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
)

func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction is the immutable header written once per operation.
// Only Status, ExternalRef and UpdatedAt change afterwards.
type Transaction struct {
	Id               string            `db:"id"`
	Type             TransactionType   `db:"type"`
	Status           TransactionStatus `db:"status"`
	SenderId         string            `db:"sender_id"`
	ReceiverId       string            `db:"receiver_id"` // empty for external counterparties
	CounterpartyKind CounterpartyKind  `db:"counterparty"`
	Source           AccountRef
	Destination      *AccountRef

	Amount           decimal.Decimal  `db:"amount"`
	Currency         string           `db:"currency"`
	Fee              decimal.Decimal  `db:"fee"`
	TotalDebit       decimal.Decimal  `db:"total_debit"`
	CreditedAmount   decimal.Decimal  `db:"credited_amount"`
	CreditedCurrency string           `db:"credited_currency"`
	ExchangeRate     *decimal.Decimal `db:"exchange_rate"`

	// LimitAmount is the AED equivalent counted toward rolling limits.
	LimitAmount decimal.Decimal `db:"limit_amount"`

	ExternalRef string   `db:"external_ref"`
	RelatedId   string   `db:"related_id"` // original transaction for reversals
	Metadata    Metadata `db:"metadata"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (t *Transaction) IsExternal() bool {
	return t.CounterpartyKind == CounterpartyExternal
}

// MovementDirection marks which side of the ledger a movement sits on.
type MovementDirection string

const (
	Debit  MovementDirection = "debit"
	Credit MovementDirection = "credit"
)

// BalanceMovement is one append-only ledger line.
type BalanceMovement struct {
	Id            string            `db:"id"`
	TransactionId string            `db:"transaction_id"`
	AccountKind   AccountKind       `db:"account_kind"`
	AccountId     string            `db:"account_id"`
	Amount        decimal.Decimal   `db:"amount"` // signed
	Currency      string            `db:"currency"`
	Direction     MovementDirection `db:"direction"`
	CreatedAt     time.Time         `db:"created_at"`
}

// FeeType attributes one FeeRevenue row.
type FeeType string

const (
	FeeTypeCardTransfer   FeeType = "card_transfer_fee"
	FeeTypeBankTransfer   FeeType = "bank_transfer_fee"
	FeeTypeNetwork        FeeType = "network_fee"
	FeeTypeConversion     FeeType = "conversion_fee"
	FeeTypeTopUp          FeeType = "topup_fee"
	FeeTypeExchangeSpread FeeType = "exchange_spread"
)

// FeeRevenue is append-only company income attributed to a transaction.
type FeeRevenue struct {
	Id            string          `db:"id"`
	TransactionId string          `db:"transaction_id"`
	FeeType       FeeType         `db:"fee_type"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	UserId        string          `db:"user_id"`
	CreatedAt     time.Time       `db:"created_at"`
}

// OutboxEvent is written with the transaction and relayed after commit.
type OutboxEvent struct {
	Id            int64      `db:"id"`
	TransactionId string     `db:"transaction_id"`
	EventType     string     `db:"event_type"`
	Payload       []byte     `db:"payload"`
	Attempts      int        `db:"attempts"`
	LastError     string     `db:"last_error"`
	CreatedAt     time.Time  `db:"created_at"`
	DispatchedAt  *time.Time `db:"dispatched_at"`
}
