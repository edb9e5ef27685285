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
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind identifies which rail an account lives on.
type AccountKind string

const (
	AccountKindCard   AccountKind = "card"
	AccountKindBank   AccountKind = "bank"
	AccountKindCrypto AccountKind = "crypto"

	// System accounts only appear in balance movements.
	AccountKindClearing AccountKind = "clearing"
	AccountKindRevenue  AccountKind = "revenue"
)

func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindCard, AccountKindBank, AccountKindCrypto:
		return true
	}
	return false
}

// Currencies supported by the ledger.
const (
	CurrencyAED  = "AED"
	CurrencyUSDT = "USDT"
	CurrencyUSDC = "USDC"
)

var currencyPrecision = map[string]int32{
	CurrencyAED:  2,
	CurrencyUSDT: 6,
	CurrencyUSDC: 6,
}

// Precision returns the number of decimal places a currency is booked with.
func Precision(currency string) int32 {
	if p, ok := currencyPrecision[currency]; ok {
		return p
	}
	return 2
}

// IsStablecoin reports whether currency belongs to the supported stablecoin family.
func IsStablecoin(currency string) bool {
	return currency == CurrencyUSDT || currency == CurrencyUSDC
}

// AccountRef addresses one account row.
type AccountRef struct {
	Kind AccountKind
	Id   string
}

func (r AccountRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Id)
}

// Less orders refs by kind then id. Locks are always taken in this order.
func (r AccountRef) Less(o AccountRef) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.Id < o.Id
}

// ClearingRef is the system account that stands in for off-platform counterparties.
func ClearingRef(currency string) AccountRef {
	return AccountRef{Kind: AccountKindClearing, Id: currency}
}

// RevenueRef is the system account credited with explicit fees.
func RevenueRef(currency string) AccountRef {
	return AccountRef{Kind: AccountKindRevenue, Id: currency}
}

// Account is a card, bank deposit account or crypto wallet.
type Account struct {
	Id         string          `db:"id"`
	Kind       AccountKind     `db:"kind"`
	OwnerId    string          `db:"owner_id"`
	Currency   string          `db:"currency"`
	Balance    decimal.Decimal `db:"balance"`
	Active     bool            `db:"active"`
	NaturalKey string          `db:"natural_key"`

	// Card holder, beneficiary or wallet label depending on kind.
	HolderName string `db:"holder_name"`
	// Bank name for bank accounts, chain network for crypto wallets.
	Institution string `db:"institution"`

	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (a *Account) Ref() AccountRef {
	return AccountRef{Kind: a.Kind, Id: a.Id}
}

// Counterparty is the receiving side of a transaction: an on-platform account or an external party.
type Counterparty struct {
	// Account is nil for external counterparties.
	Account *Account
	// Identifier is the natural key the caller addressed (card number, IBAN, address).
	Identifier string
}

func InternalCounterparty(acct *Account) Counterparty {
	return Counterparty{Account: acct, Identifier: acct.NaturalKey}
}

func ExternalCounterparty(identifier string) Counterparty {
	return Counterparty{Identifier: identifier}
}

func (c Counterparty) IsExternal() bool {
	return c.Account == nil
}

// CounterpartyKind is persisted alongside the transaction header.
type CounterpartyKind string

const (
	CounterpartyInternal CounterpartyKind = "internal"
	CounterpartyExternal CounterpartyKind = "external"
)

func (c Counterparty) Kind() CounterpartyKind {
	if c.IsExternal() {
		return CounterpartyExternal
	}
	return CounterpartyInternal
}

// Profile is the slice of the identity directory the ledger reads.
type Profile struct {
	UserId                string `db:"user_id"`
	DisplayName           string `db:"display_name"`
	AvatarUrl             string `db:"avatar_url"`
	CustomSettingsEnabled bool   `db:"custom_settings_enabled"`

	// Per-user overrides; nil means not overridden.
	Overrides map[string]decimal.Decimal
}
