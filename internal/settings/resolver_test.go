package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSettings struct {
	mu    sync.Mutex
	rows  map[string]decimal.Decimal
	reads int
}

func (f *fakeSettings) GetGlobalSetting(_ context.Context, category, key string) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	v, ok := f.rows[category+"."+key]
	return v, ok, nil
}

func (f *fakeSettings) ListGlobalSettings(context.Context) ([]models.Setting, error) {
	return nil, nil
}

func (f *fakeSettings) UpsertGlobalSetting(_ context.Context, s models.Setting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.Category+"."+s.Key] = s.Value
	return nil
}

type fakeProfiles map[string]*models.Profile

func (f fakeProfiles) GetProfile(_ context.Context, userId string) (*models.Profile, error) {
	return f[userId], nil
}

func (f fakeProfiles) UpsertProfile(_ context.Context, p *models.Profile) error {
	f[p.UserId] = p
	return nil
}

// fakeUsage returns daily for windows starting today and monthly otherwise.
type fakeUsage struct {
	today   time.Time
	daily   decimal.Decimal
	monthly decimal.Decimal
	err     error
}

func (f *fakeUsage) SumLimitUsage(_ context.Context, _ string, _ []models.TransactionType, _ []models.TransactionStatus, since time.Time) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	if since.Equal(f.today) {
		return f.daily, nil
	}
	return f.monthly, nil
}

type fakeCache struct {
	entries map[string]CachedValue
	failGet bool
}

func (f *fakeCache) Get(_ context.Context, key string) (*CachedValue, error) {
	if f.failGet {
		return nil, errors.New("connection refused")
	}
	if cv, ok := f.entries[key]; ok {
		return &cv, nil
	}
	return nil, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value CachedValue, _ time.Duration) error {
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.entries, k)
	}
	return nil
}

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestResolver(t *testing.T, rows map[string]string, profiles fakeProfiles, usage *fakeUsage, opts ...Option) (*Resolver, *fakeSettings) {
	t.Helper()
	fs := &fakeSettings{rows: make(map[string]decimal.Decimal)}
	for k, v := range rows {
		fs.rows[k] = decimal.RequireFromString(v)
	}
	if profiles == nil {
		profiles = fakeProfiles{}
	}
	if usage == nil {
		usage = &fakeUsage{}
	}
	usage.today = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewResolver(fs, profiles, usage, opts...), fs
}

func TestGetResolutionOrder(t *testing.T) {
	ctx := context.Background()
	profiles := fakeProfiles{
		"opted-in": {
			UserId:                "opted-in",
			CustomSettingsEnabled: true,
			Overrides:             map[string]decimal.Decimal{"card_to_card_percent": decimal.RequireFromString("0.25")},
		},
		"opted-out": {
			UserId:    "opted-out",
			Overrides: map[string]decimal.Decimal{"card_to_card_percent": decimal.RequireFromString("0.25")},
		},
	}
	r, _ := newTestResolver(t, map[string]string{"fees.card_to_card_percent": "0.75"}, profiles, nil)

	v, err := r.Value(ctx, FeeCardToCard, "opted-in")
	require.NoError(t, err)
	assert.Equal(t, "0.25", v.String())

	v, err = r.Value(ctx, FeeCardToCard, "opted-out")
	require.NoError(t, err)
	assert.Equal(t, "0.75", v.String())

	v, err = r.Value(ctx, FeeCardToCard, "")
	require.NoError(t, err)
	assert.Equal(t, "0.75", v.String())

	// No global row: hardcoded default.
	v, err = r.Value(ctx, FeeBankTransfer, "opted-in")
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("1.0")))
}

func TestGetIgnoresUnmappedOverride(t *testing.T) {
	profiles := fakeProfiles{
		"u1": {
			UserId:                "u1",
			CustomSettingsEnabled: true,
			Overrides:             map[string]decimal.Decimal{"top_up_bank_percent": decimal.NewFromInt(9)},
		},
	}
	r, _ := newTestResolver(t, nil, profiles, nil)

	v, err := r.Value(context.Background(), FeeTopUpBank, "u1")
	require.NoError(t, err)
	assert.True(t, v.IsZero())
}

func TestCheckLimitsBoundaries(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver(t, map[string]string{
		"limits.transfer_min": "10",
		"limits.transfer_max": "500",
	}, nil, nil)

	tests := []struct {
		name   string
		amount string
		ok     bool
	}{
		{"at minimum", "10", true},
		{"below minimum", "9.99", false},
		{"at maximum", "500", true},
		{"above maximum", "500.01", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.CheckLimits(ctx, "u1", decimal.RequireFromString(tt.amount), ClassTransfer)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ledgererr.ErrLimitExceeded))
		})
	}
}

func TestCheckLimitsDailyWindow(t *testing.T) {
	ctx := context.Background()
	usage := &fakeUsage{daily: decimal.NewFromInt(49900), monthly: decimal.NewFromInt(49900)}
	r, _ := newTestResolver(t, nil, nil, usage)

	assert.NoError(t, r.CheckLimits(ctx, "u1", decimal.NewFromInt(100), ClassWithdrawal))

	err := r.CheckLimits(ctx, "u1", decimal.RequireFromString("100.01"), ClassWithdrawal)
	require.Error(t, err)
	assert.Equal(t, ledgererr.KindLimitExceeded, ledgererr.KindOf(err))
	assert.Equal(t, "daily withdrawal limit exceeded: limit 50000.00 AED, remaining 100.00 AED", err.Error())
}

func TestCheckLimitsMonthlyWindow(t *testing.T) {
	usage := &fakeUsage{daily: decimal.Zero, monthly: decimal.NewFromInt(999000)}
	r, _ := newTestResolver(t, nil, nil, usage)

	err := r.CheckLimits(context.Background(), "u1", decimal.NewFromInt(2000), ClassTransfer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monthly transfer limit exceeded")
	assert.Contains(t, err.Error(), "remaining 1000.00 AED")
}

func TestCheckLimitsUserOverride(t *testing.T) {
	profiles := fakeProfiles{
		"vip": {
			UserId:                "vip",
			CustomSettingsEnabled: true,
			Overrides:             map[string]decimal.Decimal{"withdrawal_max": decimal.NewFromInt(200000), "daily_withdrawal_limit": decimal.NewFromInt(300000)},
		},
	}
	r, _ := newTestResolver(t, nil, profiles, nil)

	assert.NoError(t, r.CheckLimits(context.Background(), "vip", decimal.NewFromInt(150000), ClassWithdrawal))
	assert.Error(t, r.CheckLimits(context.Background(), "regular", decimal.NewFromInt(150000), ClassWithdrawal))
}

func TestCheckLimitsUsageFailureIsSystem(t *testing.T) {
	usage := &fakeUsage{err: errors.New("database is locked")}
	r, _ := newTestResolver(t, nil, nil, usage)

	err := r.CheckLimits(context.Background(), "u1", decimal.NewFromInt(20), ClassTransfer)
	require.Error(t, err)
	assert.Equal(t, ledgererr.KindSystem, ledgererr.KindOf(err))
}

func TestCryptoTopUpBoundsUseTokenUnits(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver(t, map[string]string{
		"limits.top_up_crypto_min": "15",
		"limits.top_up_crypto_max": "500",
		"limits.top_up_bank_max":   "100000",
	}, nil, nil)

	assert.NoError(t, r.CheckBounds(ctx, "u1", decimal.NewFromInt(500), models.CurrencyUSDT, ClassCryptoTopUp))

	err := r.CheckBounds(ctx, "u1", decimal.NewFromInt(501), models.CurrencyUSDT, ClassCryptoTopUp)
	require.Error(t, err)
	assert.Equal(t, "amount 501.00 USDT exceeds the maximum top-up amount of 500.00 USDT", err.Error())

	err = r.CheckBounds(ctx, "u1", decimal.NewFromInt(10), models.CurrencyUSDT, ClassCryptoTopUp)
	assert.True(t, errors.Is(err, ledgererr.ErrLimitExceeded))

	// Bank bounds are untouched by the crypto maximum.
	assert.NoError(t, r.CheckBounds(ctx, "u1", decimal.NewFromInt(501), models.CurrencyAED, ClassTopUp))
}

func TestCheckWindowsDiscountsReservedHeadroom(t *testing.T) {
	ctx := context.Background()
	usage := &fakeUsage{daily: decimal.NewFromInt(1000), monthly: decimal.NewFromInt(1000)}
	r, _ := newTestResolver(t, map[string]string{"limits.daily_top_up_limit": "1500"}, nil, usage)

	assert.Error(t, r.CheckWindows(ctx, "u1", decimal.NewFromInt(1200), decimal.Zero, ClassCryptoTopUp))
	assert.NoError(t, r.CheckWindows(ctx, "u1", decimal.NewFromInt(1200), decimal.NewFromInt(1000), ClassCryptoTopUp))
	assert.Error(t, r.CheckWindows(ctx, "u1", decimal.NewFromInt(1600), decimal.NewFromInt(1000), ClassTopUp))
}

func TestCheckLimitsUsesConfiguredZone(t *testing.T) {
	dubai := time.FixedZone("GST", 4*3600)
	// 22:00 UTC on the 14th is already the 15th in Dubai.
	late := time.Date(2025, 3, 14, 22, 0, 0, 0, time.UTC)
	usage := &fakeUsage{daily: decimal.NewFromInt(49990)}
	fs := &fakeSettings{rows: map[string]decimal.Decimal{}}
	r := NewResolver(fs, fakeProfiles{}, usage, WithLocation(dubai), WithClock(func() time.Time { return late }))

	usage.today = time.Date(2025, 3, 15, 0, 0, 0, 0, dubai)
	assert.Error(t, r.CheckLimits(context.Background(), "u1", decimal.NewFromInt(20), ClassWithdrawal))

	usage.today = time.Date(2025, 3, 14, 0, 0, 0, 0, dubai)
	assert.NoError(t, r.CheckLimits(context.Background(), "u1", decimal.NewFromInt(20), ClassWithdrawal))
}

func TestRates(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{"exchange_rates.usdt_to_aed_sell": "3.70"}, nil, nil)

	rates, err := r.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.65", rates.Buy.String())
	assert.Equal(t, "3.7", rates.Sell.String())
	assert.Equal(t, "3.6725", rates.Mid.String())

	bad, _ := newTestResolver(t, map[string]string{"exchange_rates.usdt_to_aed_buy": "0"}, nil, nil)
	_, err = bad.Rates(context.Background())
	assert.Equal(t, ledgererr.KindSystem, ledgererr.KindOf(err))
}

func TestCacheServesGlobalReads(t *testing.T) {
	ctx := context.Background()
	cache := &fakeCache{entries: map[string]CachedValue{}}
	r, fs := newTestResolver(t, map[string]string{"fees.network_fee_flat": "2.5"}, nil, nil, WithCache(cache, time.Minute))

	for i := 0; i < 3; i++ {
		v, err := r.Value(ctx, FeeNetworkFlat, "")
		require.NoError(t, err)
		assert.Equal(t, "2.5", v.String())
	}
	assert.Equal(t, 1, fs.reads)
	assert.Equal(t, CachedValue{Value: "2.5", Found: true}, cache.entries["fees.network_fee_flat"])

	// Absence is cached too.
	_, err := r.Value(ctx, FeeTopUpCryptoFlat, "")
	require.NoError(t, err)
	assert.Equal(t, CachedValue{Found: false}, cache.entries["fees.top_up_crypto_flat"])
}

func TestCacheInvalidatedOnUpdate(t *testing.T) {
	ctx := context.Background()
	cache := &fakeCache{entries: map[string]CachedValue{}}
	r, _ := newTestResolver(t, map[string]string{"fees.network_fee_flat": "2.5"}, nil, nil, WithCache(cache, time.Minute))

	_, err := r.Value(ctx, FeeNetworkFlat, "")
	require.NoError(t, err)

	require.NoError(t, r.UpdateGlobal(ctx, models.Setting{Category: CategoryFees, Key: "network_fee_flat", Value: decimal.NewFromInt(3)}))
	v, err := r.Value(ctx, FeeNetworkFlat, "")
	require.NoError(t, err)
	assert.Equal(t, "3", v.String())
}

func TestCacheFailureFallsBackToStore(t *testing.T) {
	cache := &fakeCache{entries: map[string]CachedValue{}, failGet: true}
	r, _ := newTestResolver(t, map[string]string{"fees.network_fee_flat": "2.5"}, nil, nil, WithCache(cache, time.Minute))

	v, err := r.Value(context.Background(), FeeNetworkFlat, "")
	require.NoError(t, err)
	assert.Equal(t, "2.5", v.String())
}
