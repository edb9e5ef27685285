package database

import (
	"context"
	"fmt"
	"strings"

	"wallet-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SeedSettings writes global settings. Existing rows are kept unless overwrite is set.
func (s *Service) SeedSettings(ctx context.Context, settings []models.Setting, overwrite bool) (int, error) {
	written := 0
	for _, st := range settings {
		if !overwrite {
			_, exists, err := s.GetGlobalSetting(ctx, st.Category, st.Key)
			if err != nil {
				return written, err
			}
			if exists {
				continue
			}
		}
		if err := s.UpsertGlobalSetting(ctx, st); err != nil {
			return written, err
		}
		written++
	}
	zap.L().Info("Settings seeded", zap.Int("written", written), zap.Int("total", len(settings)))
	return written, nil
}

type dummyUser struct {
	profile  models.Profile
	accounts []models.Account
}

func dummyUsers() []dummyUser {
	names := []string{"Alice Johnson", "Bob Smith", "Carol Williams"}
	users := make([]dummyUser, 0, len(names))
	for i, name := range names {
		userId := uuid.New().String()
		users = append(users, dummyUser{
			profile: models.Profile{UserId: userId, DisplayName: name},
			accounts: []models.Account{
				{
					Kind:       models.AccountKindCard,
					Currency:   models.CurrencyAED,
					Balance:    decimal.NewFromInt(1000),
					Active:     true,
					NaturalKey: fmt.Sprintf("400000000000%04d", i+1),
					HolderName: name,
				},
				{
					Kind:        models.AccountKindBank,
					Currency:    models.CurrencyAED,
					Balance:     decimal.NewFromInt(5000),
					Active:      true,
					NaturalKey:  fmt.Sprintf("AE07033123456789012%04d", i+1),
					HolderName:  name,
					Institution: "Emirates Business Bank",
				},
				{
					Kind:        models.AccountKindCrypto,
					Currency:    models.CurrencyUSDT,
					Balance:     decimal.NewFromInt(250),
					Active:      true,
					NaturalKey:  "TXyz" + strings.ReplaceAll(uuid.New().String(), "-", "")[:30],
					HolderName:  name,
					Institution: models.NetworkTRC20,
				},
			},
		})
	}
	return users
}
