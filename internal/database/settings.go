package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// ProfileOverrideFields lists the per-user override columns in
// profileOverrideColumns order.
var ProfileOverrideFields = []string{
	"transfer_min",
	"transfer_max",
	"daily_transfer_limit",
	"monthly_transfer_limit",
	"withdrawal_min",
	"withdrawal_max",
	"daily_withdrawal_limit",
	"monthly_withdrawal_limit",
	"card_to_card_percent",
	"bank_transfer_percent",
	"network_fee_percent",
	"currency_conversion_percent",
}

func (s *Service) GetGlobalSetting(ctx context.Context, category, key string) (decimal.Decimal, bool, error) {
	var raw string
	err := s.queryRow(ctx, s.db, queryGetGlobalSetting, category, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get setting %s.%s: %w", category, key, err)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse setting %s.%s '%s': %w", category, key, raw, err)
	}
	return value, true, nil
}

func (s *Service) ListGlobalSettings(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.query(ctx, s.db, queryListGlobalSettings)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var st models.Setting
		if err := rows.Scan(&st.Category, &st.Key, &st.RawValue, &st.Description, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		if st.Value, err = decimal.NewFromString(st.RawValue); err != nil {
			return nil, fmt.Errorf("failed to parse setting %s.%s: %w", st.Category, st.Key, err)
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

func (s *Service) UpsertGlobalSetting(ctx context.Context, setting models.Setting) error {
	if setting.Category == "" || setting.Key == "" {
		return fmt.Errorf("setting category and key are required")
	}
	_, err := s.exec(ctx, s.db, queryUpsertGlobalSetting,
		setting.Category, setting.Key, setting.Value.String(), setting.Description, s.now())
	if err != nil {
		return fmt.Errorf("failed to upsert setting %s.%s: %w", setting.Category, setting.Key, err)
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userId string) (*models.Profile, error) {
	profile := &models.Profile{Overrides: make(map[string]decimal.Decimal)}
	overrides := make([]sql.NullString, len(ProfileOverrideFields))

	dest := []any{&profile.UserId, &profile.DisplayName, &profile.AvatarUrl, &profile.CustomSettingsEnabled}
	for i := range overrides {
		dest = append(dest, &overrides[i])
	}

	err := s.queryRow(ctx, s.db, queryGetProfile, userId).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", userId, err)
	}

	for i, field := range ProfileOverrideFields {
		if !overrides[i].Valid || overrides[i].String == "" {
			continue
		}
		value, err := decimal.NewFromString(overrides[i].String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse override %s for %s: %w", field, userId, err)
		}
		profile.Overrides[field] = value
	}
	return profile, nil
}

// ListProfiles returns every profile ordered by display name.
func (s *Service) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.query(ctx, s.db, queryListProfileIds)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan profile id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	profiles := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles, nil
}

func (s *Service) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	if profile.UserId == "" {
		return fmt.Errorf("profile user id cannot be empty")
	}
	now := s.now()
	args := []any{profile.UserId, profile.DisplayName, profile.AvatarUrl, profile.CustomSettingsEnabled}
	for _, field := range ProfileOverrideFields {
		if value, ok := profile.Overrides[field]; ok {
			args = append(args, value.String())
		} else {
			args = append(args, nil)
		}
	}
	args = append(args, now, now)

	if _, err := s.exec(ctx, s.db, queryUpsertProfile, args...); err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", profile.UserId, err)
	}
	return nil
}

// SumLimitUsage totals limit_amount for the user's transactions of the given
// types and statuses created at or after since.
func (s *Service) SumLimitUsage(ctx context.Context, userId string, types []models.TransactionType, statuses []models.TransactionStatus, since time.Time) (decimal.Decimal, error) {
	if len(types) == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}

	query := queryLimitUsage +
		" AND type IN (" + placeholders(len(types)) + ")" +
		" AND status IN (" + placeholders(len(statuses)) + ")"
	args := []any{userId, since.UTC()}
	for _, t := range types {
		args = append(args, string(t))
	}
	for _, st := range statuses {
		args = append(args, string(st))
	}

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query limit usage: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan limit usage: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse limit amount '%s': %w", raw, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}
