package engine

import (
	"regexp"
	"strings"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"

	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"
)

type CardTransferRequest struct {
	UserId             string `validate:"required"`
	SourceCardId       string `validate:"required"`
	ReceiverCardNumber string `validate:"required"`
	Amount             decimal.Decimal
}

// TransferRequest sends from any own account to a natural key of any kind.
type TransferRequest struct {
	UserId          string             `validate:"required"`
	SourceKind      models.AccountKind `validate:"required,oneof=card bank crypto"`
	SourceId        string             `validate:"required"`
	DestinationKind models.AccountKind `validate:"required,oneof=card bank crypto"`
	DestinationKey  string             `validate:"required"`
	Amount          decimal.Decimal

	// Used when the destination is off-platform.
	BeneficiaryName string
	BankName        string
	Token           string `validate:"omitempty,oneof=USDT USDC"`
	Network         string `validate:"omitempty,oneof=TRC20 ERC20 BEP20 SOL"`
}

type BankWithdrawalRequest struct {
	UserId          string             `validate:"required"`
	SourceKind      models.AccountKind `validate:"required,oneof=card bank"`
	SourceId        string             `validate:"required"`
	Iban            string             `validate:"required"`
	BeneficiaryName string             `validate:"required"`
	BankName        string
	Amount          decimal.Decimal // AED
}

type CryptoWithdrawalRequest struct {
	UserId     string             `validate:"required"`
	SourceKind models.AccountKind `validate:"required,oneof=crypto card"`
	SourceId   string             `validate:"required"`
	Token      string             `validate:"required,oneof=USDT USDC"`
	Network    string             `validate:"required,oneof=TRC20 ERC20 BEP20 SOL"`
	Address    string             `validate:"required"`
	Amount     decimal.Decimal    // in Token
}

type BankTopUpRequest struct {
	UserId string `validate:"required"`
	Rail   string `validate:"required,oneof=UAE_LOCAL_AED SWIFT_INTL"`
	// BankAccountId defaults to the user's first active bank account.
	BankAccountId  string
	ExpectedAmount decimal.Decimal // optional, AED
}

type CryptoTopUpRequest struct {
	UserId         string          `validate:"required"`
	Token          string          `validate:"required,oneof=USDT USDC"`
	Network        string          `validate:"required,oneof=TRC20 ERC20 BEP20 SOL"`
	ExpectedAmount decimal.Decimal // optional, in Token
}

type SwapRequest struct {
	UserId   string             `validate:"required"`
	FromKind models.AccountKind `validate:"required,oneof=card bank crypto"`
	FromId   string             `validate:"required"`
	ToKind   models.AccountKind `validate:"required,oneof=card bank crypto"`
	ToId     string             `validate:"required"`
	Amount   decimal.Decimal    // in the source currency
}

// ConfirmTopUpRequest is the settlement callback for a received deposit.
type ConfirmTopUpRequest struct {
	TransactionId  string `validate:"required"`
	ReceivedAmount decimal.Decimal
	ExternalRef    string `validate:"required"`
}

// SettleRequest is the settlement callback for an outbound transaction.
type SettleRequest struct {
	TransactionId string                   `validate:"required"`
	Outcome       models.TransactionStatus `validate:"required,oneof=completed failed"`
	ExternalRef   string
	Reason        string
}

var (
	cardNumberPattern = regexp.MustCompile(`^[0-9]{12,19}$`)
	ibanPattern       = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
	addressPattern    = regexp.MustCompile(`^[A-Za-z0-9]{20,128}$`)
)

const uaeIbanLength = 23

// checkStruct runs the struct tags and maps failures to ValidationError.
func (e *Engine) checkStruct(req any) error {
	if err := e.validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return ledgererr.Validation("invalid %s: failed %s validation", fe.Field(), fe.Tag())
		}
		return ledgererr.Validation("invalid request: %v", err)
	}
	return nil
}

// checkAmount requires a positive amount expressible in currency's precision.
func checkAmount(amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() {
		return ledgererr.Validation("amount must be positive, got %s", amount)
	}
	prec := models.Precision(currency)
	if !amount.Equal(amount.Round(prec)) {
		return ledgererr.Validation("amount %s has more than %d decimal places for %s", amount, prec, currency)
	}
	return nil
}

func checkCardNumber(number string) error {
	if !cardNumberPattern.MatchString(models.NormalizeKey(models.AccountKindCard, number)) {
		return ledgererr.Validation("invalid card number")
	}
	return nil
}

// checkIban validates shape; UAE IBANs must be exactly 23 characters.
func checkIban(iban string) error {
	iban = models.NormalizeKey(models.AccountKindBank, iban)
	if strings.HasPrefix(iban, "AE") && len(iban) != uaeIbanLength {
		return ledgererr.Validation("UAE IBAN must be %d characters, got %d", uaeIbanLength, len(iban))
	}
	if !ibanPattern.MatchString(iban) {
		return ledgererr.Validation("invalid IBAN format")
	}
	return nil
}

func checkAddress(address string) error {
	if !addressPattern.MatchString(strings.TrimSpace(address)) {
		return ledgererr.Validation("invalid wallet address")
	}
	return nil
}

// checkNaturalKey validates a destination key for its kind.
func checkNaturalKey(kind models.AccountKind, key string) error {
	switch kind {
	case models.AccountKindCard:
		return checkCardNumber(key)
	case models.AccountKindBank:
		return checkIban(key)
	case models.AccountKindCrypto:
		return checkAddress(key)
	}
	return ledgererr.Validation("unsupported destination kind %q", kind)
}

// currencyOf is the booking currency for an account kind; crypto wallets carry their own.
func currencyOf(kind models.AccountKind, token string) string {
	if kind == models.AccountKindCrypto {
		if token == "" {
			return models.CurrencyUSDT
		}
		return token
	}
	return models.CurrencyAED
}
