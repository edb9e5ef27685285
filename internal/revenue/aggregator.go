// Package revenue rolls up booked fee and exchange-spread income. It only
// reads fee_revenue rows and never touches balances.
package revenue

import (
	"context"
	"sort"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

const maxPageSize = 500

type Aggregator struct {
	store store.RevenueStore
	loc   *time.Location
}

// NewAggregator buckets days in loc; nil means UTC.
func NewAggregator(s store.RevenueStore, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{store: s, loc: loc}
}

// Summary totals revenue with from <= created_at < to, per currency, per
// fee type and per calendar day. Reversal rows are negative and net out.
func (a *Aggregator) Summary(ctx context.Context, from, to time.Time) (*models.RevenueSummary, error) {
	if !from.Before(to) {
		return nil, ledgererr.Validation("revenue range start %s must be before end %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	rows, err := a.store.FeeRevenueInRange(ctx, from, to)
	if err != nil {
		return nil, ledgererr.System("failed to load fee revenue", err)
	}

	summary := &models.RevenueSummary{
		From:   from,
		To:     to,
		Totals: make(map[string]decimal.Decimal),
		ByType: make(map[models.FeeType]map[string]decimal.Decimal),
	}
	type dayKey struct{ day, currency string }
	days := make(map[dayKey]decimal.Decimal)

	for _, r := range rows {
		summary.Totals[r.Currency] = summary.Totals[r.Currency].Add(r.Amount)

		byCcy, ok := summary.ByType[r.FeeType]
		if !ok {
			byCcy = make(map[string]decimal.Decimal)
			summary.ByType[r.FeeType] = byCcy
		}
		byCcy[r.Currency] = byCcy[r.Currency].Add(r.Amount)

		k := dayKey{day: r.CreatedAt.In(a.loc).Format("2006-01-02"), currency: r.Currency}
		days[k] = days[k].Add(r.Amount)
	}

	for k, amount := range days {
		summary.ByDay = append(summary.ByDay, models.RevenueDay{Day: k.day, Currency: k.currency, Amount: amount})
	}
	sort.Slice(summary.ByDay, func(i, j int) bool {
		if summary.ByDay[i].Day != summary.ByDay[j].Day {
			return summary.ByDay[i].Day < summary.ByDay[j].Day
		}
		return summary.ByDay[i].Currency < summary.ByDay[j].Currency
	})
	return summary, nil
}

// Detail returns one page of raw rows for audit drill-down, newest first.
func (a *Aggregator) Detail(ctx context.Context, filter models.RevenueFilter, page models.Page) (*models.RevenuePage, error) {
	if page.Limit < 0 || page.Offset < 0 {
		return nil, ledgererr.Validation("page limit and offset cannot be negative")
	}
	if page.Limit == 0 || page.Limit > maxPageSize {
		page.Limit = maxPageSize
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, ledgererr.Validation("revenue range start must be before end")
	}

	rows, total, err := a.store.QueryFeeRevenue(ctx, filter, page)
	if err != nil {
		return nil, ledgererr.System("failed to query fee revenue", err)
	}
	return &models.RevenuePage{Rows: rows, Total: total}, nil
}

// DayRange returns [start of from's day, start of the day after to) in loc.
func DayRange(from, to time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	f := from.In(loc)
	t := to.In(loc)
	start := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc)
	end := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return start, end
}
