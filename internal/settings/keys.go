package settings

import (
	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	CategoryExchangeRates = "exchange_rates"
	CategoryFees          = "fees"
	CategoryLimits        = "limits"
)

// Key names one global setting and its hardcoded fallback.
type Key struct {
	Category string
	Name     string
	Default  decimal.Decimal
}

func key(category, name, def string) Key {
	return Key{Category: category, Name: name, Default: decimal.RequireFromString(def)}
}

var (
	RateBuy  = key(CategoryExchangeRates, "usdt_to_aed_buy", "3.65")
	RateSell = key(CategoryExchangeRates, "usdt_to_aed_sell", "3.69")
	RateMid  = key(CategoryExchangeRates, "usdt_to_aed_mid", "3.6725")

	// Fee percentages: 1.0 means 1%.
	FeeCardToCard         = key(CategoryFees, "card_to_card_percent", "1.0")
	FeeBankTransfer       = key(CategoryFees, "bank_transfer_percent", "1.0")
	FeeTopUpBank          = key(CategoryFees, "top_up_bank_percent", "0")
	FeeTopUpCryptoFlat    = key(CategoryFees, "top_up_crypto_flat", "0")
	FeeNetworkPercent     = key(CategoryFees, "network_fee_percent", "0")
	FeeNetworkFlat        = key(CategoryFees, "network_fee_flat", "1.00")
	FeeCurrencyConversion = key(CategoryFees, "currency_conversion_percent", "0")

	TransferMin            = key(CategoryLimits, "transfer_min", "1")
	TransferMax            = key(CategoryLimits, "transfer_max", "50000")
	WithdrawalMin          = key(CategoryLimits, "withdrawal_min", "10")
	WithdrawalMax          = key(CategoryLimits, "withdrawal_max", "50000")
	TopUpBankMin           = key(CategoryLimits, "top_up_bank_min", "1")
	TopUpBankMax           = key(CategoryLimits, "top_up_bank_max", "100000")
	TopUpCryptoMin         = key(CategoryLimits, "top_up_crypto_min", "10")
	TopUpCryptoMax         = key(CategoryLimits, "top_up_crypto_max", "100000")
	DailyTransferLimit     = key(CategoryLimits, "daily_transfer_limit", "100000")
	DailyWithdrawalLimit   = key(CategoryLimits, "daily_withdrawal_limit", "50000")
	DailyTopUpLimit        = key(CategoryLimits, "daily_top_up_limit", "100000")
	MonthlyTransferLimit   = key(CategoryLimits, "monthly_transfer_limit", "1000000")
	MonthlyWithdrawalLimit = key(CategoryLimits, "monthly_withdrawal_limit", "500000")
	MonthlyTopUpLimit      = key(CategoryLimits, "monthly_top_up_limit", "1000000")
)

// AllKeys is the full catalogue, in seed order.
var AllKeys = []Key{
	RateBuy, RateSell, RateMid,
	FeeCardToCard, FeeBankTransfer, FeeTopUpBank, FeeTopUpCryptoFlat, FeeNetworkPercent, FeeNetworkFlat, FeeCurrencyConversion,
	TransferMin, TransferMax, WithdrawalMin, WithdrawalMax, TopUpBankMin, TopUpBankMax, TopUpCryptoMin, TopUpCryptoMax,
	DailyTransferLimit, DailyWithdrawalLimit, DailyTopUpLimit, MonthlyTransferLimit, MonthlyWithdrawalLimit, MonthlyTopUpLimit,
}

// overrideFields maps a global key to the profile column that can override it.
var overrideFields = map[string]string{
	CategoryLimits + "." + TransferMin.Name:            "transfer_min",
	CategoryLimits + "." + TransferMax.Name:            "transfer_max",
	CategoryLimits + "." + DailyTransferLimit.Name:     "daily_transfer_limit",
	CategoryLimits + "." + MonthlyTransferLimit.Name:   "monthly_transfer_limit",
	CategoryLimits + "." + WithdrawalMin.Name:          "withdrawal_min",
	CategoryLimits + "." + WithdrawalMax.Name:          "withdrawal_max",
	CategoryLimits + "." + DailyWithdrawalLimit.Name:   "daily_withdrawal_limit",
	CategoryLimits + "." + MonthlyWithdrawalLimit.Name: "monthly_withdrawal_limit",
	CategoryFees + "." + FeeCardToCard.Name:            "card_to_card_percent",
	CategoryFees + "." + FeeBankTransfer.Name:          "bank_transfer_percent",
	CategoryFees + "." + FeeNetworkPercent.Name:        "network_fee_percent",
	CategoryFees + "." + FeeCurrencyConversion.Name:    "currency_conversion_percent",
}

// OperationClass groups transaction types that share rolling limits.
type OperationClass string

const (
	ClassTransfer   OperationClass = "transfer"
	ClassWithdrawal OperationClass = "withdrawal"
	ClassTopUp      OperationClass = "topUp"
	// ClassCryptoTopUp shares the top-up windows but bounds amounts in token units.
	ClassCryptoTopUp OperationClass = "cryptoTopUp"
)

type classLimits struct {
	label   string
	types   []models.TransactionType
	min     Key
	max     Key
	daily   Key
	monthly Key
}

var limitClasses = map[OperationClass]classLimits{
	ClassTransfer: {
		label: "transfer",
		types: []models.TransactionType{
			models.TxTypeCardTransfer, models.TxTypeBankTransfer, models.TxTypeCryptoTransfer, models.TxTypeInternalTransfer,
		},
		min:     TransferMin,
		max:     TransferMax,
		daily:   DailyTransferLimit,
		monthly: MonthlyTransferLimit,
	},
	ClassWithdrawal: {
		label:   "withdrawal",
		types:   []models.TransactionType{models.TxTypeBankWithdrawal, models.TxTypeCryptoWithdrawal},
		min:     WithdrawalMin,
		max:     WithdrawalMax,
		daily:   DailyWithdrawalLimit,
		monthly: MonthlyWithdrawalLimit,
	},
	ClassTopUp: {
		label:   "top-up",
		types:   []models.TransactionType{models.TxTypeBankTopUp, models.TxTypeCryptoTopUp},
		min:     TopUpBankMin,
		max:     TopUpBankMax,
		daily:   DailyTopUpLimit,
		monthly: MonthlyTopUpLimit,
	},
	ClassCryptoTopUp: {
		label:   "top-up",
		types:   []models.TransactionType{models.TxTypeBankTopUp, models.TxTypeCryptoTopUp},
		min:     TopUpCryptoMin,
		max:     TopUpCryptoMax,
		daily:   DailyTopUpLimit,
		monthly: MonthlyTopUpLimit,
	},
}

// countedStatuses are the statuses that consume limit headroom.
var countedStatuses = []models.TransactionStatus{models.StatusCompleted, models.StatusProcessing, models.StatusPending}

// TypesForClass exposes which transaction types count toward class.
func TypesForClass(class OperationClass) []models.TransactionType {
	return limitClasses[class].types
}
