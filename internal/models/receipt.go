package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptDirection is computed relative to the viewer.
type ReceiptDirection string

const (
	DirectionInternal ReceiptDirection = "internal"
	DirectionInbound  ReceiptDirection = "inbound"
	DirectionOutbound ReceiptDirection = "outbound"
)

// Receipt is the viewer-aware view of a past transaction. Pointer and
// omitempty fields are absent when the underlying record does not carry them.
type Receipt struct {
	TransactionId string            `json:"transaction_id"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	Direction     ReceiptDirection  `json:"direction"`
	CreatedAt     time.Time         `json:"created_at"`

	// Legacy flat fields.
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	Fee             decimal.Decimal  `json:"fee"`
	TotalDebit      *decimal.Decimal `json:"total_debit,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"exchange_rate,omitempty"`
	SenderName      string           `json:"sender_name,omitempty"`
	SenderAccount   string           `json:"sender_account,omitempty"`
	RecipientName   string           `json:"recipient_name,omitempty"`
	RecipientAvatar string           `json:"recipient_avatar,omitempty"`
	RecipientCard   string           `json:"recipient_card,omitempty"`
	RecipientIban   string           `json:"recipient_iban,omitempty"`
	ToAddress       string           `json:"to_address,omitempty"`
	Network         string           `json:"network,omitempty"`
	Reference       string           `json:"reference,omitempty"`
	ExternalRef     string           `json:"external_ref,omitempty"`

	Breakdown *ReceiptBreakdown `json:"breakdown,omitempty"`
}

// BreakdownKind selects the structured receipt shape.
type BreakdownKind string

const (
	BreakdownFiatToCrypto      BreakdownKind = "fiat_to_crypto"
	BreakdownCryptoToFiat      BreakdownKind = "crypto_to_fiat"
	BreakdownFlatFee           BreakdownKind = "flat_fee"
	BreakdownTopUpInstructions BreakdownKind = "topup_instructions"
	BreakdownCryptoDeposit     BreakdownKind = "crypto_deposit"
)

// ReceiptBreakdown is versioned per kind; new kinds add shapes without touching old ones.
type ReceiptBreakdown struct {
	Kind    BreakdownKind `json:"kind"`
	Version int           `json:"version"`

	FiatToCrypto  *FiatToCryptoBreakdown `json:"fiat_to_crypto,omitempty"`
	CryptoToFiat  *CryptoToFiatBreakdown `json:"crypto_to_fiat,omitempty"`
	FlatFee       *FlatFeeBreakdown      `json:"flat_fee,omitempty"`
	Instructions  *BankInstructions      `json:"instructions,omitempty"`
	CryptoDeposit *CryptoDepositView     `json:"crypto_deposit,omitempty"`
}

type FiatToCryptoBreakdown struct {
	AmountAed    decimal.Decimal `json:"amount_aed"`
	Rate         decimal.Decimal `json:"rate"`
	AmountCrypto decimal.Decimal `json:"amount_crypto"`
	Token        string          `json:"token"`
	Fee          decimal.Decimal `json:"fee"`
	TotalDebit   decimal.Decimal `json:"total_debit"`
}

type CryptoToFiatBreakdown struct {
	AmountCrypto decimal.Decimal `json:"amount_crypto"`
	Token        string          `json:"token"`
	Rate         decimal.Decimal `json:"rate"`
	AmountAed    decimal.Decimal `json:"amount_aed"`
	Fee          decimal.Decimal `json:"fee"`
	TotalDebit   decimal.Decimal `json:"total_debit"`
}

type FlatFeeBreakdown struct {
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	TotalDebit decimal.Decimal `json:"total_debit"`
	Currency   string          `json:"currency"`
}

type CryptoDepositView struct {
	Token          string           `json:"token"`
	Network        string           `json:"network"`
	DepositAddress string           `json:"deposit_address"`
	QrPayload      string           `json:"qr_payload"`
	MinAmount      decimal.Decimal  `json:"min_amount"`
	ReceivedAmount *decimal.Decimal `json:"received_amount,omitempty"`
}
