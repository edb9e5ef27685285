package engine

import (
	"context"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/settings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentFee is amount * pct / 100, rounded to the currency's precision.
func percentFee(amount, pct decimal.Decimal, currency string) decimal.Decimal {
	if pct.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(pct).Div(hundred).Round(models.Precision(currency))
}

// conversion is one fiat/stablecoin leg priced at the asymmetric rates.
type conversion struct {
	side   models.PricingSide
	from   string
	to     string
	rate   decimal.Decimal
	mid    decimal.Decimal
	target decimal.Decimal
	// spread is the income against the mid rate, in AED, never negative.
	spread decimal.Decimal
}

// convert prices amount from one currency into another. It returns nil when
// no conversion is needed. Fiat to crypto divides by the sell rate, crypto
// to fiat multiplies by the buy rate, so a round trip loses the spread.
func convert(amount decimal.Decimal, from, to string, rates settings.Rates) (*conversion, error) {
	if from == to {
		return nil, nil
	}
	switch {
	case from == models.CurrencyAED && models.IsStablecoin(to):
		target := amount.DivRound(rates.Sell, models.Precision(to))
		spread := amount.Sub(target.Mul(rates.Mid)).Round(models.Precision(models.CurrencyAED))
		return &conversion{
			side:   models.FiatToCrypto,
			from:   from,
			to:     to,
			rate:   rates.Sell,
			mid:    rates.Mid,
			target: target,
			spread: decimal.Max(spread, decimal.Zero),
		}, nil
	case models.IsStablecoin(from) && to == models.CurrencyAED:
		target := amount.Mul(rates.Buy).Round(models.Precision(to))
		spread := amount.Mul(rates.Mid).Sub(target).Round(models.Precision(models.CurrencyAED))
		return &conversion{
			side:   models.CryptoToFiat,
			from:   from,
			to:     to,
			rate:   rates.Buy,
			mid:    rates.Mid,
			target: target,
			spread: decimal.Max(spread, decimal.Zero),
		}, nil
	}
	return nil, ledgererr.InvalidOperation("conversion from %s to %s is not supported", from, to)
}

// rateFor returns the conversion rate or nil.
func rateFor(c *conversion) *decimal.Decimal {
	if c == nil {
		return nil
	}
	return ptr(c.rate)
}

// aedEquivalent values amount in AED for limit accounting. Stablecoins are
// valued at the mid rate.
func aedEquivalent(amount decimal.Decimal, currency string, rates settings.Rates) decimal.Decimal {
	if currency == models.CurrencyAED {
		return amount
	}
	return amount.Mul(rates.Mid).Round(models.Precision(models.CurrencyAED))
}

func needsRates(currencies ...string) bool {
	for _, c := range currencies {
		if models.IsStablecoin(c) {
			return true
		}
	}
	return false
}

// loadRates reads the rate triple only when a stablecoin is involved.
func (e *Engine) loadRates(ctx context.Context, currencies ...string) (settings.Rates, error) {
	if !needsRates(currencies...) {
		return settings.Rates{}, nil
	}
	return e.settings.Rates(ctx)
}

// fiatForCrypto prices a fixed stablecoin target paid from AED at the sell
// rate. It returns the AED principal and the matching conversion.
func fiatForCrypto(target decimal.Decimal, token string, rates settings.Rates) (decimal.Decimal, *conversion) {
	aed := target.Mul(rates.Sell).Round(models.Precision(models.CurrencyAED))
	spread := aed.Sub(target.Mul(rates.Mid)).Round(models.Precision(models.CurrencyAED))
	return aed, &conversion{
		side:   models.FiatToCrypto,
		from:   models.CurrencyAED,
		to:     token,
		rate:   rates.Sell,
		mid:    rates.Mid,
		target: target,
		spread: decimal.Max(spread, decimal.Zero),
	}
}
