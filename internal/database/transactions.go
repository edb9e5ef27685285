package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func (s *Service) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	txn, err := scanTransaction(s.queryRow(ctx, s.db, queryGetTransaction, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return txn, nil
}

func (s *Service) ListUserTransactions(ctx context.Context, userId string, page models.Page) ([]models.Transaction, error) {
	if page.Limit <= 0 {
		page.Limit = 50
	}
	rows, err := s.query(ctx, s.db, queryListUserTransactions, userId, userId, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *txn)
	}
	return out, rows.Err()
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	var txType, status, counterparty, sourceKind string
	var amount, fee, totalDebit, credited, limitAmount string
	var receiverId, destKind, destId, rate, metadata sql.NullString

	if err := row.Scan(&txn.Id, &txType, &status, &txn.SenderId, &receiverId, &counterparty,
		&sourceKind, &txn.Source.Id, &destKind, &destId,
		&amount, &txn.Currency, &fee, &totalDebit, &credited, &txn.CreditedCurrency,
		&rate, &limitAmount, &txn.ExternalRef, &txn.RelatedId, &metadata, &txn.CreatedAt, &txn.UpdatedAt); err != nil {
		return nil, err
	}

	txn.Type = models.TransactionType(txType)
	txn.Status = models.TransactionStatus(status)
	txn.CounterpartyKind = models.CounterpartyKind(counterparty)
	txn.Source.Kind = models.AccountKind(sourceKind)
	txn.ReceiverId = receiverId.String
	if destKind.Valid && destId.Valid {
		txn.Destination = &models.AccountRef{Kind: models.AccountKind(destKind.String), Id: destId.String}
	}

	var err error
	parse := func(field, raw string) decimal.Decimal {
		if err != nil {
			return decimal.Zero
		}
		var d decimal.Decimal
		d, err = decimal.NewFromString(raw)
		if err != nil {
			err = fmt.Errorf("failed to parse %s '%s': %w", field, raw, err)
		}
		return d
	}
	txn.Amount = parse("amount", amount)
	txn.Fee = parse("fee", fee)
	txn.TotalDebit = parse("total_debit", totalDebit)
	txn.CreditedAmount = parse("credited_amount", credited)
	txn.LimitAmount = parse("limit_amount", limitAmount)
	if rate.Valid {
		r := parse("exchange_rate", rate.String)
		txn.ExchangeRate = &r
	}
	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		txn.Metadata, err = models.DecodeMetadata([]byte(metadata.String))
		if err != nil {
			return nil, err
		}
	}
	return &txn, nil
}

// GetDetail loads the detail record matching the transaction's family.
func (s *Service) GetDetail(ctx context.Context, txn *models.Transaction) (models.Detail, error) {
	var detail models.Detail
	var err error

	switch txn.Type {
	case models.TxTypeCardTransfer:
		var d models.CardTransferDetail
		var sourceKind string
		err = s.queryRow(ctx, s.db, queryGetCardTransferDetail, txn.Id).
			Scan(&d.TransactionId, &sourceKind, &d.ReceiverCardMasked, &d.ReceiverName)
		d.SourceKind = models.AccountKind(sourceKind)
		detail = &d
	case models.TxTypeBankTransfer, models.TxTypeCryptoTransfer, models.TxTypeBankWithdrawal, models.TxTypeCryptoWithdrawal:
		detail, err = s.getWithdrawalDetail(ctx, txn.Id)
	case models.TxTypeBankTopUp, models.TxTypeCryptoTopUp:
		detail, err = s.getTopUpDetail(ctx, txn.Id)
	case models.TxTypeInternalTransfer:
		detail, err = s.getSwapDetail(ctx, txn.Id)
	case models.TxTypeReversal:
		var d models.ReversalDetail
		err = s.queryRow(ctx, s.db, queryGetReversalDetail, txn.Id).
			Scan(&d.TransactionId, &d.OriginalTransactionId, &d.Reason)
		detail = &d
	default:
		return nil, fmt.Errorf("%w: no detail family for type %s", store.ErrDetailNotFound, txn.Type)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrDetailNotFound, txn.Id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load detail for %s: %w", txn.Id, err)
	}
	return detail, nil
}

func (s *Service) getWithdrawalDetail(ctx context.Context, id string) (*models.WithdrawalDetail, error) {
	var d models.WithdrawalDetail
	var destination, networkFee string
	err := s.queryRow(ctx, s.db, queryGetWithdrawalDetail, id).Scan(&d.TransactionId, &destination,
		&d.Iban, &d.BeneficiaryName, &d.BankName, &d.Rail, &d.Token, &d.Network, &d.Address, &networkFee, &d.ProviderReference)
	if err != nil {
		return nil, err
	}
	d.Destination = models.WithdrawalDestination(destination)
	if d.NetworkFee, err = decimal.NewFromString(networkFee); err != nil {
		return nil, fmt.Errorf("failed to parse network fee '%s': %w", networkFee, err)
	}
	return &d, nil
}

func (s *Service) getTopUpDetail(ctx context.Context, id string) (*models.TopUpDetail, error) {
	var d models.TopUpDetail
	var minAmount, expected string
	var received, fee sql.NullString
	var confirmedAt sql.NullTime
	err := s.queryRow(ctx, s.db, queryGetTopUpDetail, id).Scan(&d.TransactionId, &d.Rail, &d.Reference,
		&d.BankName, &d.Iban, &d.BeneficiaryName, &d.Token, &d.Network, &d.DepositAddress, &d.QrPayload,
		&minAmount, &expected, &received, &fee, &confirmedAt)
	if err != nil {
		return nil, err
	}
	if d.MinAmount, err = decimal.NewFromString(minAmount); err != nil {
		return nil, fmt.Errorf("failed to parse min amount '%s': %w", minAmount, err)
	}
	if d.ExpectedAmount, err = decimal.NewFromString(expected); err != nil {
		return nil, fmt.Errorf("failed to parse expected amount '%s': %w", expected, err)
	}
	if d.ReceivedAmount, err = parseNullableDecimal(received); err != nil {
		return nil, err
	}
	if d.Fee, err = parseNullableDecimal(fee); err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		at := confirmedAt.Time
		d.ConfirmedAt = &at
	}
	return &d, nil
}

func (s *Service) getSwapDetail(ctx context.Context, id string) (*models.SwapDetail, error) {
	var d models.SwapDetail
	var fromKind, toKind, side, spread string
	var rate, mid sql.NullString
	err := s.queryRow(ctx, s.db, queryGetSwapDetail, id).Scan(&d.TransactionId, &fromKind, &d.FromCurrency,
		&toKind, &d.ToCurrency, &side, &rate, &mid, &spread)
	if err != nil {
		return nil, err
	}
	d.FromKind, d.ToKind, d.Side = models.AccountKind(fromKind), models.AccountKind(toKind), models.PricingSide(side)
	if d.Rate, err = parseNullableDecimal(rate); err != nil {
		return nil, err
	}
	if d.MidRate, err = parseNullableDecimal(mid); err != nil {
		return nil, err
	}
	if d.Spread, err = decimal.NewFromString(spread); err != nil {
		return nil, fmt.Errorf("failed to parse spread '%s': %w", spread, err)
	}
	return &d, nil
}

func (s *Service) ListMovements(ctx context.Context, transactionId string) ([]models.BalanceMovement, error) {
	return s.listMovements(ctx, s.db, transactionId)
}

func (s *Service) listMovements(ctx context.Context, q querier, transactionId string) ([]models.BalanceMovement, error) {
	rows, err := s.query(ctx, q, queryListMovements, transactionId)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var out []models.BalanceMovement
	for rows.Next() {
		var m models.BalanceMovement
		var kind, amount, direction string
		if err := rows.Scan(&m.Id, &m.TransactionId, &kind, &m.AccountId, &amount, &m.Currency, &direction, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		m.AccountKind, m.Direction = models.AccountKind(kind), models.MovementDirection(direction)
		if m.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse movement amount '%s': %w", amount, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Service) ListFeeRevenueForTransaction(ctx context.Context, transactionId string) ([]models.FeeRevenue, error) {
	return s.listFeeRevenue(ctx, s.db, transactionId)
}

func (s *Service) listFeeRevenue(ctx context.Context, q querier, transactionId string) ([]models.FeeRevenue, error) {
	rows, err := s.query(ctx, q, queryFeeRevenueForTransaction, transactionId)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee revenue: %w", err)
	}
	defer rows.Close()
	return scanFeeRevenueRows(rows)
}

func parseNullableDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse decimal '%s': %w", v.String, err)
	}
	return &d, nil
}
