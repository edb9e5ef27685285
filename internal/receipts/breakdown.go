package receipts

import (
	"wallet-ledger-go/internal/models"
)

// Breakdown versions. Bump a kind's version when its shape changes and keep
// the old shape decodable.
const (
	fiatToCryptoVersion  = 1
	cryptoToFiatVersion  = 1
	flatFeeVersion       = 1
	instructionsVersion  = 1
	cryptoDepositVersion = 1
)

// breakdown picks the structured shape for txn. It returns nil when the
// stored records do not carry enough to build one.
func breakdown(txn *models.Transaction, detail models.Detail) *models.ReceiptBreakdown {
	switch md := txn.Metadata.(type) {
	case models.BankTopUpMetadata:
		instr := md.Instructions
		return &models.ReceiptBreakdown{
			Kind:         models.BreakdownTopUpInstructions,
			Version:      instructionsVersion,
			Instructions: &instr,
		}
	case models.CryptoTopUpMetadata:
		view := &models.CryptoDepositView{
			Token:          md.Token,
			Network:        md.Network,
			DepositAddress: md.DepositAddress,
			QrPayload:      md.QrPayload,
			MinAmount:      md.MinAmount,
		}
		if d, ok := detail.(*models.TopUpDetail); ok {
			view.ReceivedAmount = d.ReceivedAmount
		}
		return &models.ReceiptBreakdown{
			Kind:          models.BreakdownCryptoDeposit,
			Version:       cryptoDepositVersion,
			CryptoDeposit: view,
		}
	}

	if isTopUp(txn.Type) {
		if d, ok := detail.(*models.TopUpDetail); ok {
			return topUpFromDetail(d)
		}
		return nil
	}

	if p := pricingOf(txn.Metadata); p != nil {
		switch p.Side {
		case models.FiatToCrypto:
			return &models.ReceiptBreakdown{
				Kind:    models.BreakdownFiatToCrypto,
				Version: fiatToCryptoVersion,
				FiatToCrypto: &models.FiatToCryptoBreakdown{
					AmountAed:    p.SourceAmount,
					Rate:         p.Rate,
					AmountCrypto: p.TargetAmount,
					Token:        p.TargetCurrency,
					Fee:          txn.Fee,
					TotalDebit:   txn.TotalDebit,
				},
			}
		case models.CryptoToFiat:
			return &models.ReceiptBreakdown{
				Kind:    models.BreakdownCryptoToFiat,
				Version: cryptoToFiatVersion,
				CryptoToFiat: &models.CryptoToFiatBreakdown{
					AmountCrypto: p.SourceAmount,
					Token:        p.SourceCurrency,
					Rate:         p.Rate,
					AmountAed:    p.TargetAmount,
					Fee:          txn.Fee,
					TotalDebit:   txn.TotalDebit,
				},
			}
		}
	}

	if txn.TotalDebit.IsZero() && txn.Type != models.TxTypeReversal {
		return nil
	}
	return &models.ReceiptBreakdown{
		Kind:    models.BreakdownFlatFee,
		Version: flatFeeVersion,
		FlatFee: &models.FlatFeeBreakdown{
			Amount:     txn.Amount,
			Fee:        txn.Fee,
			TotalDebit: txn.TotalDebit,
			Currency:   txn.Currency,
		},
	}
}

// topUpFromDetail covers top-ups whose metadata snapshot is missing or
// from a version this build does not decode.
func topUpFromDetail(d *models.TopUpDetail) *models.ReceiptBreakdown {
	if d.Rail == models.RailCrypto {
		return &models.ReceiptBreakdown{
			Kind:    models.BreakdownCryptoDeposit,
			Version: cryptoDepositVersion,
			CryptoDeposit: &models.CryptoDepositView{
				Token:          d.Token,
				Network:        d.Network,
				DepositAddress: d.DepositAddress,
				QrPayload:      d.QrPayload,
				MinAmount:      d.MinAmount,
				ReceivedAmount: d.ReceivedAmount,
			},
		}
	}
	return &models.ReceiptBreakdown{
		Kind:    models.BreakdownTopUpInstructions,
		Version: instructionsVersion,
		Instructions: &models.BankInstructions{
			BankName:        d.BankName,
			Iban:            d.Iban,
			BeneficiaryName: d.BeneficiaryName,
			Reference:       d.Reference,
		},
	}
}

func pricingOf(md models.Metadata) *models.ConversionPricing {
	switch m := md.(type) {
	case models.CardTransferMetadata:
		return m.Pricing
	case models.BankTransferMetadata:
		return m.Pricing
	case models.CryptoTransferMetadata:
		return m.Pricing
	case models.CryptoWithdrawalMetadata:
		return m.Pricing
	case models.SwapMetadata:
		return m.Pricing
	}
	return nil
}
