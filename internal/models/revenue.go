package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueSummary rolls up FeeRevenue rows for a date range.
type RevenueSummary struct {
	From   time.Time
	To     time.Time
	Totals map[string]decimal.Decimal             // currency -> amount
	ByType map[FeeType]map[string]decimal.Decimal // fee type -> currency -> amount
	ByDay  []RevenueDay
}

// RevenueDay is one calendar day of revenue in one currency.
type RevenueDay struct {
	Day      string // YYYY-MM-DD
	Currency string
	Amount   decimal.Decimal
}

// RevenueFilter narrows Detail results; zero fields are ignored.
type RevenueFilter struct {
	From     time.Time
	To       time.Time
	FeeType  FeeType
	Currency string
	UserId   string
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

// RevenuePage is one page of raw FeeRevenue rows plus the filtered total.
type RevenuePage struct {
	Rows  []FeeRevenue
	Total int
}
