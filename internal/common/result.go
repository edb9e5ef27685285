package common

import (
	"fmt"
	"os"

	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ParseAmount reads a decimal amount flag. An empty string is zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ledgererr.Validation("invalid amount %q", raw)
	}
	return amount, nil
}

// PrintResult shows the committed transaction and its ledger lines.
func PrintResult(title string, res *engine.Result) {
	PrintHeader(title, DefaultWidth)
	PrintTransaction(res.Transaction)

	if len(res.Movements) > 0 {
		fmt.Println("\n  Movements:")
		for i, m := range res.Movements {
			fmt.Printf("  %s %-8s %-38s %20s\n",
				BoxPrefix(i == len(res.Movements)-1), m.AccountKind, m.AccountId, FormatMoney(m.Amount, m.Currency))
		}
	}
	if len(res.Fees) > 0 {
		fmt.Println("\n  Revenue:")
		for i, f := range res.Fees {
			fmt.Printf("  %s %-20s %20s\n", BoxPrefix(i == len(res.Fees)-1), f.FeeType, FormatMoney(f.Amount, f.Currency))
		}
	}
	if res.Reversal != nil {
		fmt.Println()
		PrintSuccess("Reversal %s refunded %s", res.Reversal.Transaction.Id,
			FormatMoney(res.Reversal.Transaction.Amount, res.Reversal.Transaction.Currency))
	}
	PrintSeparator("=", DefaultWidth)
}

func PrintTransaction(txn *models.Transaction) {
	PrintField("Transaction", txn.Id)
	PrintField("Type", string(txn.Type))
	PrintField("Status", FormatStatus(txn.Status))
	PrintField("Amount", FormatMoney(txn.Amount, txn.Currency))
	if !txn.Fee.IsZero() {
		PrintField("Fee", FormatMoney(txn.Fee, txn.Currency))
	}
	if txn.TotalDebit.IsPositive() {
		PrintField("Total debit", FormatMoney(txn.TotalDebit, txn.Currency))
	}
	if txn.CreditedCurrency != "" && !txn.CreditedAmount.IsZero() {
		PrintField("Credited", FormatMoney(txn.CreditedAmount, txn.CreditedCurrency))
	}
	if txn.ExchangeRate != nil {
		PrintField("Rate", txn.ExchangeRate.String())
	}
	PrintField("External ref", txn.ExternalRef)
	PrintField("Related", txn.RelatedId)
}

// Exit reports err with its ledger error kind and exits non-zero.
func Exit(msg string, err error) {
	PrintFailure("%s: %v", msg, err)
	zap.L().Error(msg,
		zap.String("kind", ledgererr.KindOf(err).String()),
		zap.Int("status", ledgererr.StatusCode(err)),
		zap.Error(err))
	_ = zap.L().Sync()
	os.Exit(1)
}
