package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Detail is the type-specific record stored one-to-one with a transaction.
type Detail interface {
	DetailTransactionId() string
}

// CardTransferDetail backs card_transfer transactions.
type CardTransferDetail struct {
	TransactionId      string      `db:"transaction_id"`
	SourceKind         AccountKind `db:"source_kind"`
	ReceiverCardMasked string      `db:"receiver_card_masked"`
	ReceiverName       string      `db:"receiver_name"`
}

func (d *CardTransferDetail) DetailTransactionId() string { return d.TransactionId }

// WithdrawalDestination says which rail a withdrawal leaves on.
type WithdrawalDestination string

const (
	DestinationBank   WithdrawalDestination = "bank"
	DestinationCrypto WithdrawalDestination = "crypto"
)

// WithdrawalDetail backs bank/crypto withdrawals and transfers to IBANs or chain addresses.
type WithdrawalDetail struct {
	TransactionId     string                `db:"transaction_id"`
	Destination       WithdrawalDestination `db:"destination"`
	Iban              string                `db:"iban"`
	BeneficiaryName   string                `db:"beneficiary_name"`
	BankName          string                `db:"bank_name"`
	Rail              string                `db:"rail"`
	Token             string                `db:"token"`
	Network           string                `db:"network"`
	Address           string                `db:"address"`
	NetworkFee        decimal.Decimal       `db:"network_fee"`
	ProviderReference string                `db:"provider_reference"`
}

func (d *WithdrawalDetail) DetailTransactionId() string { return d.TransactionId }

// Bank top-up rails and crypto deposit parameters.
const (
	RailUAELocal = "UAE_LOCAL_AED"
	RailSwift    = "SWIFT_INTL"
	RailCrypto   = "CRYPTO"

	NetworkTRC20 = "TRC20"
	NetworkERC20 = "ERC20"
	NetworkBEP20 = "BEP20"
	NetworkSOL   = "SOL"
)

// TopUpDetail backs bank_topup and crypto_topup transactions.
type TopUpDetail struct {
	TransactionId   string          `db:"transaction_id"`
	Rail            string          `db:"rail"`
	Reference       string          `db:"reference"`
	BankName        string          `db:"bank_name"`
	Iban            string          `db:"iban"`
	BeneficiaryName string          `db:"beneficiary_name"`
	Token           string          `db:"token"`
	Network         string          `db:"network"`
	DepositAddress  string          `db:"deposit_address"`
	QrPayload       string          `db:"qr_payload"`
	MinAmount       decimal.Decimal `db:"min_amount"`
	ExpectedAmount  decimal.Decimal `db:"expected_amount"`

	// Filled in when settlement confirms the deposit.
	ReceivedAmount *decimal.Decimal `db:"received_amount"`
	Fee            *decimal.Decimal `db:"fee"`
	ConfirmedAt    *time.Time       `db:"confirmed_at"`
}

func (d *TopUpDetail) DetailTransactionId() string { return d.TransactionId }

// SwapDetail backs internal_transfer transactions between a user's own accounts.
type SwapDetail struct {
	TransactionId string           `db:"transaction_id"`
	FromKind      AccountKind      `db:"from_kind"`
	FromCurrency  string           `db:"from_currency"`
	ToKind        AccountKind      `db:"to_kind"`
	ToCurrency    string           `db:"to_currency"`
	Side          PricingSide      `db:"side"`
	Rate          *decimal.Decimal `db:"rate"`
	MidRate       *decimal.Decimal `db:"mid_rate"`
	Spread        decimal.Decimal  `db:"spread"`
}

func (d *SwapDetail) DetailTransactionId() string { return d.TransactionId }

// ReversalDetail links a reversal to the transaction it compensates.
type ReversalDetail struct {
	TransactionId         string `db:"transaction_id"`
	OriginalTransactionId string `db:"original_transaction_id"`
	Reason                string `db:"reason"`
}

func (d *ReversalDetail) DetailTransactionId() string { return d.TransactionId }
