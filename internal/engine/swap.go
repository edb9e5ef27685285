package engine

import (
	"context"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/settings"
)

// Swap moves value between two accounts of the same user, converting when
// their currencies differ. Swaps are always internal and complete at once.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (res *Result, err error) {
	started := time.Now()
	defer func() { e.observe("swap", started, res, err) }()

	if err := e.checkStruct(req); err != nil {
		return nil, err
	}
	from, err := e.findSource(ctx, models.AccountRef{Kind: req.FromKind, Id: req.FromId}, req.UserId)
	if err != nil {
		return nil, err
	}
	to, err := e.store.FindAccount(ctx, models.AccountRef{Kind: req.ToKind, Id: req.ToId}, req.UserId)
	if err != nil {
		return nil, systemError("failed to load destination account", err)
	}
	if !to.Active {
		return nil, ledgererr.InvalidOperation("%s account %s is inactive", to.Kind, to.Id)
	}
	if from.Ref() == to.Ref() {
		return nil, ledgererr.InvalidOperation("cannot swap an account with itself")
	}
	if err := checkAmount(req.Amount, from.Currency); err != nil {
		return nil, err
	}

	rates, err := e.loadRates(ctx, from.Currency, to.Currency)
	if err != nil {
		return nil, err
	}
	conv, err := convert(req.Amount, from.Currency, to.Currency, rates)
	if err != nil {
		return nil, err
	}

	var charges []charge
	if conv != nil {
		pct, err := e.settings.Value(ctx, settings.FeeCurrencyConversion, req.UserId)
		if err != nil {
			return nil, err
		}
		charges = append(charges, charge{feeType: models.FeeTypeConversion, amount: percentFee(req.Amount, pct, from.Currency)})
	}
	if from.Kind == models.AccountKindCrypto {
		flat, err := e.settings.Value(ctx, settings.FeeNetworkFlat, req.UserId)
		if err != nil {
			return nil, err
		}
		charges = append(charges, charge{feeType: models.FeeTypeNetwork, amount: flat.Round(models.Precision(from.Currency))})
	}

	detail := &models.SwapDetail{
		FromKind:     from.Kind,
		FromCurrency: from.Currency,
		ToKind:       to.Kind,
		ToCurrency:   to.Currency,
	}
	if conv != nil {
		detail.Side = conv.side
		detail.Rate = ptr(conv.rate)
		detail.MidRate = ptr(conv.mid)
		detail.Spread = conv.spread
	}

	return e.book(ctx, outbound{
		txType:  models.TxTypeInternalTransfer,
		class:   settings.ClassTransfer,
		userId:  req.UserId,
		source:  from,
		dest:    models.InternalCounterparty(to),
		amount:  req.Amount,
		charges: charges,
		conv:    conv,
		rates:   rates,
		metadata: models.SwapMetadata{
			FromAccount: models.MaskKey(from.Kind, from.NaturalKey),
			ToAccount:   models.MaskKey(to.Kind, to.NaturalKey),
			Pricing:     pricingSnapshot(conv, req.Amount, from.Currency),
		},
		detail: func(id string) models.Detail {
			d := *detail
			d.TransactionId = id
			return &d
		},
	})
}
