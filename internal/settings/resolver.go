/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package settings resolves effective fees, limits and exchange rates.
// Resolution order is per-user override (when the profile opts in), then the
// global row, then the hardcoded default.
package settings

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger-go/internal/ledgererr"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultCacheTtl = 5 * time.Minute

// Rates is the configured USDT/AED rate triple.
type Rates struct {
	Buy  decimal.Decimal // crypto -> fiat
	Sell decimal.Decimal // fiat -> crypto
	Mid  decimal.Decimal // reference for spread revenue
}

type Resolver struct {
	settings store.SettingsStore
	profiles store.ProfileStore
	usage    store.UsageStore

	cache    Cache
	cacheTtl time.Duration
	group    singleflight.Group

	loc *time.Location
	now func() time.Time
}

type Option func(*Resolver)

// WithCache fronts global reads with c. Failures of c fall back to the store.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = c
		if ttl > 0 {
			r.cacheTtl = ttl
		}
	}
}

// WithLocation sets the zone that defines "today" and "this month" for limits.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

func NewResolver(settings store.SettingsStore, profiles store.ProfileStore, usage store.UsageStore, opts ...Option) *Resolver {
	r := &Resolver{
		settings: settings,
		profiles: profiles,
		usage:    usage,
		cacheTtl: defaultCacheTtl,
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the effective value for (category, key). userId may be empty.
func (r *Resolver) Get(ctx context.Context, category, key string, def decimal.Decimal, userId string) (decimal.Decimal, error) {
	if userId != "" {
		if field, ok := overrideFields[category+"."+key]; ok {
			profile, err := r.profiles.GetProfile(ctx, userId)
			if err != nil {
				return decimal.Zero, ledgererr.System("failed to load profile", err)
			}
			if profile != nil && profile.CustomSettingsEnabled {
				if v, ok := profile.Overrides[field]; ok {
					return v, nil
				}
			}
		}
	}

	cv, err := r.global(ctx, category, key)
	if err != nil {
		return decimal.Zero, ledgererr.System(fmt.Sprintf("failed to read setting %s.%s", category, key), err)
	}
	if !cv.Found {
		return def, nil
	}
	v, err := decimal.NewFromString(cv.Value)
	if err != nil {
		return decimal.Zero, ledgererr.System(fmt.Sprintf("invalid value for setting %s.%s", category, key), err)
	}
	return v, nil
}

// Value is Get with the key's own default.
func (r *Resolver) Value(ctx context.Context, k Key, userId string) (decimal.Decimal, error) {
	return r.Get(ctx, k.Category, k.Name, k.Default, userId)
}

func (r *Resolver) global(ctx context.Context, category, key string) (CachedValue, error) {
	cacheKey := category + "." + key
	if r.cache != nil {
		cv, err := r.cache.Get(ctx, cacheKey)
		if err != nil {
			zap.L().Warn("Settings cache unavailable, reading store", zap.String("key", cacheKey), zap.Error(err))
		} else if cv != nil {
			return *cv, nil
		}
	}

	v, err, _ := r.group.Do(cacheKey, func() (any, error) {
		value, found, err := r.settings.GetGlobalSetting(ctx, category, key)
		if err != nil {
			return CachedValue{}, err
		}
		cv := CachedValue{Found: found}
		if found {
			cv.Value = value.String()
		}
		if r.cache != nil {
			if err := r.cache.Set(ctx, cacheKey, cv, r.cacheTtl); err != nil {
				zap.L().Warn("Failed to populate settings cache", zap.String("key", cacheKey), zap.Error(err))
			}
		}
		return cv, nil
	})
	if err != nil {
		return CachedValue{}, err
	}
	return v.(CachedValue), nil
}

// UpdateGlobal writes a global row and drops its cache entry.
func (r *Resolver) UpdateGlobal(ctx context.Context, setting models.Setting) error {
	if err := r.settings.UpsertGlobalSetting(ctx, setting); err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.Delete(ctx, setting.Category+"."+setting.Key); err != nil {
			zap.L().Warn("Failed to invalidate settings cache", zap.String("key", setting.Category+"."+setting.Key), zap.Error(err))
		}
	}
	return nil
}

// Rates resolves the global buy/sell/mid triple. Rates are never per-user.
func (r *Resolver) Rates(ctx context.Context) (Rates, error) {
	var rates Rates
	var err error
	if rates.Buy, err = r.Value(ctx, RateBuy, ""); err != nil {
		return Rates{}, err
	}
	if rates.Sell, err = r.Value(ctx, RateSell, ""); err != nil {
		return Rates{}, err
	}
	if rates.Mid, err = r.Value(ctx, RateMid, ""); err != nil {
		return Rates{}, err
	}
	if !rates.Buy.IsPositive() || !rates.Sell.IsPositive() || !rates.Mid.IsPositive() {
		return Rates{}, ledgererr.System("exchange rates must be positive",
			fmt.Errorf("buy=%s sell=%s mid=%s", rates.Buy, rates.Sell, rates.Mid))
	}
	return rates, nil
}

// CheckLimits validates amount (AED equivalent) against the class's
// per-operation bounds and rolling daily/monthly caps. It takes no lock: two
// concurrent requests can both pass before either commits.
func (r *Resolver) CheckLimits(ctx context.Context, userId string, amount decimal.Decimal, class OperationClass) error {
	if err := r.CheckBounds(ctx, userId, amount, models.CurrencyAED, class); err != nil {
		return err
	}
	return r.CheckWindows(ctx, userId, amount, decimal.Zero, class)
}

// CheckBounds rejects an amount outside the class min/max. The bounds are
// denominated in currency, so crypto top-ups compare token units.
func (r *Resolver) CheckBounds(ctx context.Context, userId string, amount decimal.Decimal, currency string, class OperationClass) error {
	cl, ok := limitClasses[class]
	if !ok {
		return ledgererr.System("unknown operation class", fmt.Errorf("class %q", class))
	}

	lower, err := r.Value(ctx, cl.min, userId)
	if err != nil {
		return err
	}
	upper, err := r.Value(ctx, cl.max, userId)
	if err != nil {
		return err
	}
	if amount.LessThan(lower) {
		return ledgererr.LimitExceeded("amount %s %s is below the minimum %s amount of %s %s",
			amount.StringFixed(2), currency, cl.label, lower.StringFixed(2), currency)
	}
	if amount.GreaterThan(upper) {
		return ledgererr.LimitExceeded("amount %s %s exceeds the maximum %s amount of %s %s",
			amount.StringFixed(2), currency, cl.label, upper.StringFixed(2), currency)
	}
	return nil
}

// CheckWindows rejects an AED amount that would overrun the daily or monthly
// limit of class. reserved is headroom the same operation already holds, e.g.
// the expected amount of the pending top-up being confirmed.
func (r *Resolver) CheckWindows(ctx context.Context, userId string, amount, reserved decimal.Decimal, class OperationClass) error {
	cl, ok := limitClasses[class]
	if !ok {
		return ledgererr.System("unknown operation class", fmt.Errorf("class %q", class))
	}

	now := r.now().In(r.loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)

	if err := r.checkWindow(ctx, userId, amount, reserved, cl, "daily", cl.daily, startOfDay); err != nil {
		return err
	}
	return r.checkWindow(ctx, userId, amount, reserved, cl, "monthly", cl.monthly, startOfMonth)
}

func (r *Resolver) checkWindow(ctx context.Context, userId string, amount, reserved decimal.Decimal, cl classLimits, window string, limitKey Key, since time.Time) error {
	limit, err := r.Value(ctx, limitKey, userId)
	if err != nil {
		return err
	}
	used, err := r.usage.SumLimitUsage(ctx, userId, cl.types, countedStatuses, since)
	if err != nil {
		return ledgererr.System("failed to sum limit usage", err)
	}
	used = decimal.Max(used.Sub(reserved), decimal.Zero)
	if used.Add(amount).GreaterThan(limit) {
		remaining := decimal.Max(limit.Sub(used), decimal.Zero)
		zap.L().Warn("Limit check rejected",
			zap.String("user_id", userId),
			zap.String("window", window),
			zap.String("class", cl.label),
			zap.String("amount", amount.String()),
			zap.String("used", used.String()),
			zap.String("limit", limit.String()))
		return ledgererr.LimitExceeded("%s %s limit exceeded: limit %s AED, remaining %s AED",
			window, cl.label, limit.StringFixed(2), remaining.StringFixed(2))
	}
	return nil
}
