package common

import (
	"fmt"

	"wallet-ledger-go/internal/models"
)

// PrintReceipt renders a viewer-relative receipt, including its breakdown.
func PrintReceipt(r *models.Receipt) {
	PrintHeader(fmt.Sprintf("RECEIPT (%s)", r.Direction), DefaultWidth)
	PrintField("Transaction", r.TransactionId)
	PrintField("Type", string(r.Type))
	PrintField("Status", FormatStatus(r.Status))
	PrintField("Date", r.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	PrintField("Amount", FormatMoney(r.Amount, r.Currency))
	if !r.Fee.IsZero() {
		PrintField("Fee", FormatMoney(r.Fee, r.Currency))
	}
	if r.TotalDebit != nil {
		PrintField("Total debit", FormatMoney(*r.TotalDebit, r.Currency))
	}
	if r.ExchangeRate != nil {
		PrintField("Rate", r.ExchangeRate.String())
	}
	PrintField("From", r.SenderName)
	PrintField("From account", r.SenderAccount)
	PrintField("To", r.RecipientName)
	PrintField("To card", r.RecipientCard)
	PrintField("To IBAN", r.RecipientIban)
	PrintField("To address", r.ToAddress)
	PrintField("Network", r.Network)
	PrintField("Reference", r.Reference)
	PrintField("External ref", r.ExternalRef)

	if r.Breakdown != nil {
		fmt.Println()
		printBreakdown(r.Breakdown)
	}
	PrintSeparator("=", DefaultWidth)
}

func printBreakdown(b *models.ReceiptBreakdown) {
	titleColor.Printf("  %s (v%d)\n", b.Kind, b.Version)
	switch {
	case b.FiatToCrypto != nil:
		v := b.FiatToCrypto
		PrintField("You pay", FormatMoney(v.AmountAed, models.CurrencyAED))
		PrintField("Rate", v.Rate.String())
		PrintField("You get", FormatMoney(v.AmountCrypto, v.Token))
		PrintField("Fee", FormatMoney(v.Fee, models.CurrencyAED))
		PrintField("Total debit", FormatMoney(v.TotalDebit, models.CurrencyAED))
	case b.CryptoToFiat != nil:
		v := b.CryptoToFiat
		PrintField("You pay", FormatMoney(v.AmountCrypto, v.Token))
		PrintField("Rate", v.Rate.String())
		PrintField("You get", FormatMoney(v.AmountAed, models.CurrencyAED))
		PrintField("Fee", FormatMoney(v.Fee, v.Token))
		PrintField("Total debit", FormatMoney(v.TotalDebit, v.Token))
	case b.FlatFee != nil:
		v := b.FlatFee
		PrintField("Amount", FormatMoney(v.Amount, v.Currency))
		PrintField("Fee", FormatMoney(v.Fee, v.Currency))
		PrintField("Total debit", FormatMoney(v.TotalDebit, v.Currency))
	case b.Instructions != nil:
		v := b.Instructions
		PrintField("Bank", v.BankName)
		PrintField("IBAN", v.Iban)
		PrintField("Beneficiary", v.BeneficiaryName)
		PrintField("Reference", v.Reference)
	case b.CryptoDeposit != nil:
		v := b.CryptoDeposit
		PrintField("Token", v.Token)
		PrintField("Network", v.Network)
		PrintField("Address", v.DepositAddress)
		PrintField("QR payload", v.QrPayload)
		PrintField("Minimum", FormatMoney(v.MinAmount, v.Token))
		if v.ReceivedAmount != nil {
			PrintField("Received", FormatMoney(*v.ReceivedAmount, v.Token))
		}
	}
}
