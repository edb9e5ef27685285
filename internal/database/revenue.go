package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// FeeRevenueInRange returns rows with from <= created_at < to.
func (s *Service) FeeRevenueInRange(ctx context.Context, from, to time.Time) ([]models.FeeRevenue, error) {
	rows, err := s.query(ctx, s.db, queryFeeRevenueInRange, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query fee revenue: %w", err)
	}
	defer rows.Close()
	return scanFeeRevenueRows(rows)
}

// QueryFeeRevenue returns one page of filtered rows plus the filtered total.
func (s *Service) QueryFeeRevenue(ctx context.Context, filter models.RevenueFilter, page models.Page) ([]models.FeeRevenue, int, error) {
	var where []string
	var args []any
	if !filter.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, filter.To.UTC())
	}
	if filter.FeeType != "" {
		where = append(where, "fee_type = ?")
		args = append(args, string(filter.FeeType))
	}
	if filter.Currency != "" {
		where = append(where, "currency = ?")
		args = append(args, filter.Currency)
	}
	if filter.UserId != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserId)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.queryRow(ctx, s.db, "SELECT COUNT(*) FROM fee_revenue"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count fee revenue: %w", err)
	}

	if page.Limit <= 0 {
		page.Limit = 100
	}
	query := "SELECT " + feeRevenueColumns + " FROM fee_revenue" + clause + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	rows, err := s.query(ctx, s.db, query, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query fee revenue page: %w", err)
	}
	defer rows.Close()

	out, err := scanFeeRevenueRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanFeeRevenueRows(rows *sql.Rows) ([]models.FeeRevenue, error) {
	var out []models.FeeRevenue
	for rows.Next() {
		var r models.FeeRevenue
		var feeType, amount string
		if err := rows.Scan(&r.Id, &r.TransactionId, &feeType, &amount, &r.Currency, &r.UserId, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fee revenue: %w", err)
		}
		r.FeeType = models.FeeType(feeType)
		var err error
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse fee amount '%s': %w", amount, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
