package common

import (
	"fmt"
	"strings"

	"wallet-ledger-go/internal/models"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	mutedColor   = color.New(color.FgHiBlack)
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	titleColor.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

func PrintSuccess(format string, args ...any) {
	successColor.Printf("✓ "+format+"\n", args...)
}

func PrintFailure(format string, args ...any) {
	failureColor.Printf("✗ "+format+"\n", args...)
}

// PrintField prints an aligned "label: value" line; empty values are skipped.
func PrintField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("  %s %s\n", mutedColor.Sprintf("%-20s", label+":"), value)
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// FormatMoney renders amount at the currency's precision, e.g. "50.50 AED".
func FormatMoney(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", amount.StringFixed(models.Precision(currency)), currency)
}

// FormatStatus colours a transaction status for terminal output.
func FormatStatus(status models.TransactionStatus) string {
	switch status {
	case models.StatusCompleted:
		return successColor.Sprint(status)
	case models.StatusFailed:
		return failureColor.Sprint(status)
	default:
		return color.YellowString(string(status))
	}
}
