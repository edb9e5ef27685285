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
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Metadata is the display snapshot stored with a transaction. Each variant
// belongs to exactly one transaction type and carries its own version.
type Metadata interface {
	MetadataType() TransactionType
	MetadataVersion() int
}

// PricingSide names the direction of a currency conversion.
type PricingSide string

const (
	FiatToCrypto PricingSide = "fiat_to_crypto"
	CryptoToFiat PricingSide = "crypto_to_fiat"
)

// ConversionPricing is attached whenever source and destination currencies differ.
type ConversionPricing struct {
	Side           PricingSide     `json:"side"`
	Rate           decimal.Decimal `json:"rate"`
	MidRate        decimal.Decimal `json:"mid_rate"`
	SourceAmount   decimal.Decimal `json:"source_amount"`
	SourceCurrency string          `json:"source_currency"`
	TargetAmount   decimal.Decimal `json:"target_amount"`
	TargetCurrency string          `json:"target_currency"`
	Spread         decimal.Decimal `json:"spread"` // AED
}

type CardTransferMetadata struct {
	SenderName         string             `json:"sender_name,omitempty"`
	SenderAccount      string             `json:"sender_account,omitempty"`
	ReceiverName       string             `json:"receiver_name,omitempty"`
	ReceiverCardMasked string             `json:"receiver_card_masked,omitempty"`
	ReceiverAvatarUrl  string             `json:"receiver_avatar_url,omitempty"`
	Pricing            *ConversionPricing `json:"pricing,omitempty"`
}

func (CardTransferMetadata) MetadataType() TransactionType { return TxTypeCardTransfer }
func (CardTransferMetadata) MetadataVersion() int          { return 2 }

type BankTransferMetadata struct {
	SenderName      string             `json:"sender_name,omitempty"`
	SenderAccount   string             `json:"sender_account,omitempty"`
	IbanMasked      string             `json:"iban_masked,omitempty"`
	BeneficiaryName string             `json:"beneficiary_name,omitempty"`
	BankName        string             `json:"bank_name,omitempty"`
	Pricing         *ConversionPricing `json:"pricing,omitempty"`
}

func (BankTransferMetadata) MetadataType() TransactionType { return TxTypeBankTransfer }
func (BankTransferMetadata) MetadataVersion() int          { return 1 }

type CryptoTransferMetadata struct {
	SenderName         string             `json:"sender_name,omitempty"`
	SenderAccount      string             `json:"sender_account,omitempty"`
	AddressMasked      string             `json:"address_masked,omitempty"`
	Token              string             `json:"token,omitempty"`
	Network            string             `json:"network,omitempty"`
	RecipientName      string             `json:"recipient_name,omitempty"`
	RecipientAvatarUrl string             `json:"recipient_avatar_url,omitempty"`
	Pricing            *ConversionPricing `json:"pricing,omitempty"`
}

func (CryptoTransferMetadata) MetadataType() TransactionType { return TxTypeCryptoTransfer }
func (CryptoTransferMetadata) MetadataVersion() int          { return 1 }

type BankWithdrawalMetadata struct {
	SourceAccount   string `json:"source_account,omitempty"`
	IbanMasked      string `json:"iban_masked,omitempty"`
	BeneficiaryName string `json:"beneficiary_name,omitempty"`
	BankName        string `json:"bank_name,omitempty"`
}

func (BankWithdrawalMetadata) MetadataType() TransactionType { return TxTypeBankWithdrawal }
func (BankWithdrawalMetadata) MetadataVersion() int          { return 1 }

type CryptoWithdrawalMetadata struct {
	SourceAccount string             `json:"source_account,omitempty"`
	AddressMasked string             `json:"address_masked,omitempty"`
	Token         string             `json:"token,omitempty"`
	Network       string             `json:"network,omitempty"`
	RecipientName string             `json:"recipient_name,omitempty"`
	Pricing       *ConversionPricing `json:"pricing,omitempty"`
}

func (CryptoWithdrawalMetadata) MetadataType() TransactionType { return TxTypeCryptoWithdrawal }
func (CryptoWithdrawalMetadata) MetadataVersion() int          { return 1 }

// BankInstructions is the snapshot shown to the user for a bank top-up.
type BankInstructions struct {
	BankName        string `json:"bank_name"`
	Iban            string `json:"iban"`
	BeneficiaryName string `json:"beneficiary_name"`
	Reference       string `json:"reference"`
}

type BankTopUpMetadata struct {
	Rail         string           `json:"rail"`
	Reference    string           `json:"reference"`
	Instructions BankInstructions `json:"instructions"`
}

func (BankTopUpMetadata) MetadataType() TransactionType { return TxTypeBankTopUp }
func (BankTopUpMetadata) MetadataVersion() int          { return 1 }

type CryptoTopUpMetadata struct {
	Token          string          `json:"token"`
	Network        string          `json:"network"`
	DepositAddress string          `json:"deposit_address"`
	QrPayload      string          `json:"qr_payload"`
	MinAmount      decimal.Decimal `json:"min_amount"`
}

func (CryptoTopUpMetadata) MetadataType() TransactionType { return TxTypeCryptoTopUp }
func (CryptoTopUpMetadata) MetadataVersion() int          { return 1 }

type SwapMetadata struct {
	FromAccount string             `json:"from_account"`
	ToAccount   string             `json:"to_account"`
	Pricing     *ConversionPricing `json:"pricing,omitempty"`
}

func (SwapMetadata) MetadataType() TransactionType { return TxTypeInternalTransfer }
func (SwapMetadata) MetadataVersion() int          { return 1 }

type ReversalMetadata struct {
	OriginalTransactionId string `json:"original_transaction_id"`
	Reason                string `json:"reason,omitempty"`
}

func (ReversalMetadata) MetadataType() TransactionType { return TxTypeReversal }
func (ReversalMetadata) MetadataVersion() int          { return 1 }

// UnknownMetadata preserves payloads this build cannot decode.
type UnknownMetadata struct {
	Type    TransactionType
	Version int
	Raw     json.RawMessage
}

func (m UnknownMetadata) MetadataType() TransactionType { return m.Type }
func (m UnknownMetadata) MetadataVersion() int          { return m.Version }

type metadataEnvelope struct {
	Type    TransactionType `json:"type"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// EncodeMetadata serializes m inside a {type, version, data} envelope.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	if u, ok := m.(UnknownMetadata); ok {
		return json.Marshal(metadataEnvelope{Type: u.Type, Version: u.Version, Data: u.Raw})
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s metadata: %w", m.MetadataType(), err)
	}
	return json.Marshal(metadataEnvelope{Type: m.MetadataType(), Version: m.MetadataVersion(), Data: data})
}

// DecodeMetadata reverses EncodeMetadata. Unknown types or versions decode
// to UnknownMetadata rather than failing.
func DecodeMetadata(raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid metadata envelope: %w", err)
	}

	var target Metadata
	switch env.Type {
	case TxTypeCardTransfer:
		var m CardTransferMetadata
		if err := decodeVersioned(env, &m, 1, 2); err != nil {
			return unknown(env), nil
		}
		target = m
	case TxTypeBankTransfer:
		var m BankTransferMetadata
		if err := decodeVersioned(env, &m, 1); err != nil {
			return unknown(env), nil
		}
		target = m
	case TxTypeCryptoTransfer:
		var m CryptoTransferMetadata
		if err := decodeVersioned(env, &m, 1); err != nil {
			return unknown(env), nil
		}
		target = m
	case TxTypeBankWithdrawal:
		var m BankWithdrawalMetadata
		if err := decodeVersioned(env, &m, 1); err != nil {
			return unknown(env), nil
		}
		target = m
	case TxTypeCryptoWithdrawal:
		var m CryptoWithdrawalMetadata
		if err := decodeVersioned(env, &m, 1); err != nil {
			return unknown(env), nil
		}
		target = m
	case TxTypeBankTopUp:
		var m BankTopUpMetadata
		if err := decodeVersioned(env, &m, 1); err != nil {
			return unknown(env), nil
		}
		target = m
	case TxTypeCryptoTopUp:
		var m CryptoTopUpMetadata
		if err := decodeVersioned(env, &m, 1); err != nil {
			return unknown(env), nil
		}
		target = m
	case TxTypeInternalTransfer:
		var m SwapMetadata
		if err := decodeVersioned(env, &m, 1); err != nil {
			return unknown(env), nil
		}
		target = m
	case TxTypeReversal:
		var m ReversalMetadata
		if err := decodeVersioned(env, &m, 1); err != nil {
			return unknown(env), nil
		}
		target = m
	default:
		return unknown(env), nil
	}
	return target, nil
}

// Version 1 card transfers predate the avatar field; they decode into the
// same struct with the field left empty.
func decodeVersioned(env metadataEnvelope, dst any, versions ...int) error {
	supported := false
	for _, v := range versions {
		if env.Version == v {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported %s metadata version %d", env.Type, env.Version)
	}
	return json.Unmarshal(env.Data, dst)
}

func unknown(env metadataEnvelope) UnknownMetadata {
	return UnknownMetadata{Type: env.Type, Version: env.Version, Raw: env.Data}
}
