package revenue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows      []models.FeeRevenue
	err       error
	lastPage  models.Page
	lastQuery models.RevenueFilter
}

func (f *fakeStore) FeeRevenueInRange(_ context.Context, from, to time.Time) ([]models.FeeRevenue, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.FeeRevenue
	for _, r := range f.rows {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) QueryFeeRevenue(_ context.Context, filter models.RevenueFilter, page models.Page) ([]models.FeeRevenue, int, error) {
	f.lastQuery, f.lastPage = filter, page
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.rows, len(f.rows), nil
}

func row(feeType models.FeeType, amount, currency string, at time.Time) models.FeeRevenue {
	return models.FeeRevenue{
		Id:        fmt.Sprintf("%s-%d", feeType, at.UnixNano()),
		FeeType:   feeType,
		Amount:    decimal.RequireFromString(amount),
		Currency:  currency,
		UserId:    "alice",
		CreatedAt: at,
	}
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestSummaryGroupsByTypeAndDay(t *testing.T) {
	day1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	fs := &fakeStore{rows: []models.FeeRevenue{
		row(models.FeeTypeCardTransfer, "0.50", models.CurrencyAED, day1),
		row(models.FeeTypeCardTransfer, "1.25", models.CurrencyAED, day1.Add(time.Hour)),
		row(models.FeeTypeExchangeSpread, "1.75", models.CurrencyAED, day2),
		row(models.FeeTypeNetwork, "1.000000", models.CurrencyUSDT, day2),
		// Outside the range.
		row(models.FeeTypeCardTransfer, "99", models.CurrencyAED, day2.AddDate(0, 0, 5)),
	}}
	agg := NewAggregator(fs, time.UTC)

	summary, err := agg.Summary(context.Background(), day1.Truncate(24*time.Hour), day2.AddDate(0, 0, 1))
	require.NoError(t, err)

	assertDecimal(t, "3.50", summary.Totals[models.CurrencyAED])
	assertDecimal(t, "1", summary.Totals[models.CurrencyUSDT])
	assertDecimal(t, "1.75", summary.ByType[models.FeeTypeCardTransfer][models.CurrencyAED])
	assertDecimal(t, "1.75", summary.ByType[models.FeeTypeExchangeSpread][models.CurrencyAED])
	assertDecimal(t, "1", summary.ByType[models.FeeTypeNetwork][models.CurrencyUSDT])

	require.Len(t, summary.ByDay, 3)
	assert.Equal(t, "2025-03-01", summary.ByDay[0].Day)
	assertDecimal(t, "1.75", summary.ByDay[0].Amount)
	assert.Equal(t, "2025-03-02", summary.ByDay[1].Day)
	assert.Equal(t, models.CurrencyAED, summary.ByDay[1].Currency)
	assert.Equal(t, models.CurrencyUSDT, summary.ByDay[2].Currency)
}

func TestSummaryNetsReversals(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fs := &fakeStore{rows: []models.FeeRevenue{
		row(models.FeeTypeBankTransfer, "2.00", models.CurrencyAED, at),
		row(models.FeeTypeBankTransfer, "-2.00", models.CurrencyAED, at.Add(time.Minute)),
	}}
	summary, err := NewAggregator(fs, nil).Summary(context.Background(), at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, summary.Totals[models.CurrencyAED].IsZero())
}

func TestSummaryBucketsDaysInZone(t *testing.T) {
	dubai := time.FixedZone("GST", 4*3600)
	// 22:00 UTC on March 1 is already March 2 in Dubai.
	at := time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)
	fs := &fakeStore{rows: []models.FeeRevenue{row(models.FeeTypeCardTransfer, "1", models.CurrencyAED, at)}}

	summary, err := NewAggregator(fs, dubai).Summary(context.Background(), at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, summary.ByDay, 1)
	assert.Equal(t, "2025-03-02", summary.ByDay[0].Day)
}

func TestSummaryValidatesRange(t *testing.T) {
	now := time.Now()
	_, err := NewAggregator(&fakeStore{}, nil).Summary(context.Background(), now, now)
	assert.True(t, errors.Is(err, ledgererr.ErrValidation))
}

func TestSummaryStoreFailureIsSystem(t *testing.T) {
	now := time.Now()
	_, err := NewAggregator(&fakeStore{err: errors.New("disk gone")}, nil).Summary(context.Background(), now.Add(-time.Hour), now)
	assert.Equal(t, ledgererr.KindSystem, ledgererr.KindOf(err))
}

func TestDetailClampsPage(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fs := &fakeStore{rows: []models.FeeRevenue{row(models.FeeTypeTopUp, "5", models.CurrencyAED, at)}}
	agg := NewAggregator(fs, nil)

	page, err := agg.Detail(context.Background(), models.RevenueFilter{FeeType: models.FeeTypeTopUp}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Len(t, page.Rows, 1)
	assert.Equal(t, maxPageSize, fs.lastPage.Limit)
	assert.Equal(t, models.FeeTypeTopUp, fs.lastQuery.FeeType)

	_, err = agg.Detail(context.Background(), models.RevenueFilter{}, models.Page{Limit: 10000, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, fs.lastPage.Limit)
	assert.Equal(t, 20, fs.lastPage.Offset)

	_, err = agg.Detail(context.Background(), models.RevenueFilter{}, models.Page{Offset: -1})
	assert.True(t, errors.Is(err, ledgererr.ErrValidation))

	_, err = agg.Detail(context.Background(), models.RevenueFilter{From: at, To: at}, models.Page{})
	assert.True(t, errors.Is(err, ledgererr.ErrValidation))
}

func TestDayRange(t *testing.T) {
	from := time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC)
	to := time.Date(2025, 3, 3, 1, 0, 0, 0, time.UTC)
	start, end := DayRange(from, to, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), end)
}
