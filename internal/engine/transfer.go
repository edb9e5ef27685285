package engine

import (
	"context"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/settings"

	"github.com/shopspring/decimal"
)

// charge is one explicit fee in the source currency.
type charge struct {
	feeType models.FeeType
	amount  decimal.Decimal
}

func totalFee(charges []charge) decimal.Decimal {
	total := decimal.Zero
	for _, c := range charges {
		total = total.Add(c.amount)
	}
	return total
}

// outbound is a priced debit of source toward dest, ready for limit checks and booking.
type outbound struct {
	txType   models.TransactionType
	class    settings.OperationClass
	userId   string
	source   *models.Account
	dest     models.Counterparty
	amount   decimal.Decimal // source currency
	charges  []charge
	conv     *conversion
	rates    settings.Rates
	metadata models.Metadata
	detail   func(transactionId string) models.Detail
}

// book checks limits, pre-checks the balance and commits o. Internal
// destinations complete immediately; external ones wait for settlement.
func (e *Engine) book(ctx context.Context, o outbound) (*Result, error) {
	srcCcy := o.source.Currency
	limitAmount := aedEquivalent(o.amount, srcCcy, o.rates)
	if err := e.settings.CheckLimits(ctx, o.userId, limitAmount, o.class); err != nil {
		return nil, err
	}

	fee := totalFee(o.charges)
	credited, creditedCcy := o.amount, srcCcy
	if o.conv != nil {
		credited, creditedCcy = o.conv.target, o.conv.to
	}

	txn := &models.Transaction{
		Type:             o.txType,
		Status:           models.StatusProcessing,
		SenderId:         o.userId,
		CounterpartyKind: o.dest.Kind(),
		Source:           o.source.Ref(),
		Amount:           o.amount,
		Currency:         srcCcy,
		Fee:              fee,
		TotalDebit:       o.amount.Add(fee),
		CreditedAmount:   credited,
		CreditedCurrency: creditedCcy,
		ExchangeRate:     rateFor(o.conv),
		LimitAmount:      limitAmount,
		Metadata:         o.metadata,
	}
	destRef := models.ClearingRef(creditedCcy)
	if !o.dest.IsExternal() {
		txn.Status = models.StatusCompleted
		txn.ReceiverId = o.dest.Account.OwnerId
		destRef = o.dest.Account.Ref()
		txn.Destination = ptr(destRef)
	}

	if err := precheckBalance(o.source, txn.TotalDebit, txn); err != nil {
		return nil, err
	}

	p := &posting{txn: txn, detail: o.detail}
	p.debit(o.source.Ref(), txn.TotalDebit, srcCcy)
	for _, c := range o.charges {
		if c.amount.IsPositive() {
			p.credit(models.RevenueRef(srcCcy), c.amount, srcCcy)
			p.fee(c.feeType, c.amount, srcCcy)
		}
	}
	if o.conv != nil {
		p.credit(models.ClearingRef(srcCcy), o.amount, srcCcy)
		p.debit(models.ClearingRef(creditedCcy), credited, creditedCcy)
		p.fee(models.FeeTypeExchangeSpread, o.conv.spread, models.CurrencyAED)
	}
	p.credit(destRef, credited, creditedCcy)

	return e.commit(ctx, p)
}

// sourceFee resolves the explicit fee charged on the source account's rail.
func (e *Engine) sourceFee(ctx context.Context, source *models.Account, amount decimal.Decimal, userId string) (decimal.Decimal, models.FeeType, error) {
	switch source.Kind {
	case models.AccountKindCard:
		pct, err := e.settings.Value(ctx, settings.FeeCardToCard, userId)
		if err != nil {
			return decimal.Zero, "", err
		}
		return percentFee(amount, pct, source.Currency), models.FeeTypeCardTransfer, nil
	case models.AccountKindBank:
		pct, err := e.settings.Value(ctx, settings.FeeBankTransfer, userId)
		if err != nil {
			return decimal.Zero, "", err
		}
		return percentFee(amount, pct, source.Currency), models.FeeTypeBankTransfer, nil
	case models.AccountKindCrypto:
		fee, err := e.networkFee(ctx, amount, source.Currency, userId)
		return fee, models.FeeTypeNetwork, err
	}
	return decimal.Zero, "", ledgererr.InvalidOperation("unsupported source kind %q", source.Kind)
}

// networkFee is network_fee_flat + amount * network_fee_percent, in the token.
func (e *Engine) networkFee(ctx context.Context, amount decimal.Decimal, token, userId string) (decimal.Decimal, error) {
	flat, err := e.settings.Value(ctx, settings.FeeNetworkFlat, userId)
	if err != nil {
		return decimal.Zero, err
	}
	pct, err := e.settings.Value(ctx, settings.FeeNetworkPercent, userId)
	if err != nil {
		return decimal.Zero, err
	}
	return flat.Add(percentFee(amount, pct, token)).Round(models.Precision(token)), nil
}

// CardTransfer sends AED from one of the user's cards to a card number.
func (e *Engine) CardTransfer(ctx context.Context, req CardTransferRequest) (res *Result, err error) {
	started := time.Now()
	defer func() { e.observe("card_transfer", started, res, err) }()

	if err := e.checkStruct(req); err != nil {
		return nil, err
	}
	return e.transfer(ctx, TransferRequest{
		UserId:          req.UserId,
		SourceKind:      models.AccountKindCard,
		SourceId:        req.SourceCardId,
		DestinationKind: models.AccountKindCard,
		DestinationKey:  req.ReceiverCardNumber,
		Amount:          req.Amount,
	})
}

// Transfer sends from any of the user's accounts to a card number, IBAN or
// chain address, converting between AED and the stablecoin when the rails differ.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (res *Result, err error) {
	started := time.Now()
	defer func() { e.observe("transfer", started, res, err) }()

	if err := e.checkStruct(req); err != nil {
		return nil, err
	}
	return e.transfer(ctx, req)
}

func (e *Engine) transfer(ctx context.Context, req TransferRequest) (*Result, error) {
	if err := checkNaturalKey(req.DestinationKind, req.DestinationKey); err != nil {
		return nil, err
	}
	source, err := e.findSource(ctx, models.AccountRef{Kind: req.SourceKind, Id: req.SourceId}, req.UserId)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(req.Amount, source.Currency); err != nil {
		return nil, err
	}

	dest, err := e.resolveDestination(ctx, req.DestinationKind, req.DestinationKey)
	if err != nil {
		return nil, err
	}
	if !dest.IsExternal() && dest.Account.Ref() == source.Ref() {
		return nil, ledgererr.InvalidOperation("cannot transfer to the same account")
	}

	destCcy, network, err := transferTarget(req, source, dest)
	if err != nil {
		return nil, err
	}

	rates, err := e.loadRates(ctx, source.Currency, destCcy)
	if err != nil {
		return nil, err
	}
	conv, err := convert(req.Amount, source.Currency, destCcy, rates)
	if err != nil {
		return nil, err
	}
	fee, feeType, err := e.sourceFee(ctx, source, req.Amount, req.UserId)
	if err != nil {
		return nil, err
	}

	sender, err := e.profile(ctx, req.UserId)
	if err != nil {
		return nil, err
	}
	var receiver *models.Profile
	if !dest.IsExternal() {
		if receiver, err = e.profile(ctx, dest.Account.OwnerId); err != nil {
			return nil, err
		}
	}

	pricing := pricingSnapshot(conv, req.Amount, source.Currency)
	senderAccount := models.MaskKey(source.Kind, source.NaturalKey)
	destKey := dest.Identifier

	o := outbound{
		class:   settings.ClassTransfer,
		userId:  req.UserId,
		source:  source,
		dest:    dest,
		amount:  req.Amount,
		charges: []charge{{feeType: feeType, amount: fee}},
		conv:    conv,
		rates:   rates,
	}

	switch req.DestinationKind {
	case models.AccountKindCard:
		receiverName := receiverDisplayName(dest, receiver, "")
		o.txType = models.TxTypeCardTransfer
		o.metadata = models.CardTransferMetadata{
			SenderName:         displayName(sender),
			SenderAccount:      senderAccount,
			ReceiverName:       receiverName,
			ReceiverCardMasked: models.MaskCard(destKey),
			ReceiverAvatarUrl:  avatarUrl(receiver),
			Pricing:            pricing,
		}
		o.detail = func(id string) models.Detail {
			return &models.CardTransferDetail{
				TransactionId:      id,
				SourceKind:         source.Kind,
				ReceiverCardMasked: models.MaskCard(destKey),
				ReceiverName:       receiverName,
			}
		}
	case models.AccountKindBank:
		beneficiary := receiverDisplayName(dest, receiver, req.BeneficiaryName)
		if dest.IsExternal() && beneficiary == "" {
			return nil, ledgererr.Validation("beneficiary name is required for external IBAN transfers")
		}
		bankName := req.BankName
		if !dest.IsExternal() {
			bankName = dest.Account.Institution
		}
		o.txType = models.TxTypeBankTransfer
		o.metadata = models.BankTransferMetadata{
			SenderName:      displayName(sender),
			SenderAccount:   senderAccount,
			IbanMasked:      models.MaskIban(destKey),
			BeneficiaryName: beneficiary,
			BankName:        bankName,
			Pricing:         pricing,
		}
		o.detail = func(id string) models.Detail {
			return &models.WithdrawalDetail{
				TransactionId:   id,
				Destination:     models.DestinationBank,
				Iban:            destKey,
				BeneficiaryName: beneficiary,
				BankName:        bankName,
				Rail:            ibanRail(destKey),
			}
		}
	case models.AccountKindCrypto:
		recipient := receiverDisplayName(dest, receiver, "")
		networkFee := decimal.Zero
		if source.Kind == models.AccountKindCrypto {
			networkFee = fee
		}
		o.txType = models.TxTypeCryptoTransfer
		o.metadata = models.CryptoTransferMetadata{
			SenderName:         displayName(sender),
			SenderAccount:      senderAccount,
			AddressMasked:      models.MaskAddress(destKey),
			Token:              destCcy,
			Network:            network,
			RecipientName:      recipient,
			RecipientAvatarUrl: avatarUrl(receiver),
			Pricing:            pricing,
		}
		o.detail = func(id string) models.Detail {
			return &models.WithdrawalDetail{
				TransactionId: id,
				Destination:   models.DestinationCrypto,
				Rail:          models.RailCrypto,
				Token:         destCcy,
				Network:       network,
				Address:       destKey,
				NetworkFee:    networkFee,
			}
		}
	}

	return e.book(ctx, o)
}

// transferTarget works out the destination currency and, for chain
// destinations, the network the transfer travels on.
func transferTarget(req TransferRequest, source *models.Account, dest models.Counterparty) (string, string, error) {
	if !dest.IsExternal() {
		network := ""
		if dest.Account.Kind == models.AccountKindCrypto {
			network = dest.Account.Institution
		}
		return dest.Account.Currency, network, nil
	}
	if req.DestinationKind != models.AccountKindCrypto {
		return models.CurrencyAED, "", nil
	}

	token, network := req.Token, req.Network
	if source.Kind == models.AccountKindCrypto {
		if token != "" && token != source.Currency {
			return "", "", ledgererr.InvalidOperation("cannot send %s from a %s wallet", token, source.Currency)
		}
		token = source.Currency
		if network == "" {
			network = source.Institution
		}
	}
	if token == "" {
		token = models.CurrencyUSDT
	}
	if network == "" {
		return "", "", ledgererr.Validation("network is required for external crypto transfers")
	}
	return token, network, nil
}

// receiverDisplayName prefers the on-platform holder, then the profile, then
// what the caller supplied.
func receiverDisplayName(dest models.Counterparty, receiver *models.Profile, supplied string) string {
	if !dest.IsExternal() {
		if dest.Account.HolderName != "" {
			return dest.Account.HolderName
		}
		if name := displayName(receiver); name != "" {
			return name
		}
	}
	return supplied
}

// ibanRail picks the domestic rail for UAE IBANs and SWIFT otherwise.
func ibanRail(iban string) string {
	if len(iban) >= 2 && iban[:2] == "AE" {
		return models.RailUAELocal
	}
	return models.RailSwift
}
