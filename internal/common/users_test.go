package common

import (
	"context"
	"testing"

	"wallet-ledger-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDirectory struct {
	profiles []models.Profile
	accounts map[string][]models.Account
}

func (f *fakeDirectory) GetProfile(_ context.Context, userId string) (*models.Profile, error) {
	for i := range f.profiles {
		if f.profiles[i].UserId == userId {
			return &f.profiles[i], nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) ListProfiles(context.Context) ([]models.Profile, error) {
	return f.profiles, nil
}

func (f *fakeDirectory) ListAccounts(_ context.Context, ownerId string) ([]models.Account, error) {
	return f.accounts[ownerId], nil
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{
		profiles: []models.Profile{
			{UserId: "u1", DisplayName: "Alice Johnson"},
			{UserId: "u2", DisplayName: "Bob Smith"},
		},
		accounts: map[string][]models.Account{
			"u1": {
				{Id: "c1", Kind: models.AccountKindCard, OwnerId: "u1"},
				{Id: "c2", Kind: models.AccountKindCard, OwnerId: "u1"},
				{Id: "b1", Kind: models.AccountKindBank, OwnerId: "u1"},
			},
		},
	}
}

func TestInitializeUsers(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory()

	all, err := InitializeUsers(ctx, dir, "", zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byId, err := InitializeUsers(ctx, dir, "u2", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, byId, 1)
	assert.Equal(t, "Bob Smith", byId[0].Name)

	byName, err := InitializeUsers(ctx, dir, "alice johnson", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Len(t, byName[0].Accounts, 3)

	_, err = InitializeUsers(ctx, dir, "mallory", zap.NewNop())
	assert.Error(t, err)
}

func TestFindAccount(t *testing.T) {
	dir := newDirectory()
	user := UserInfo{Id: "u1", Name: "Alice Johnson", Accounts: dir.accounts["u1"]}

	bank, err := FindAccount(user, models.AccountKindBank, "")
	require.NoError(t, err)
	assert.Equal(t, "b1", bank.Id)

	_, err = FindAccount(user, models.AccountKindCard, "")
	assert.ErrorContains(t, err, "pass an account id")

	card, err := FindAccount(user, models.AccountKindCard, "c2")
	require.NoError(t, err)
	assert.Equal(t, "c2", card.Id)

	_, err = FindAccount(user, models.AccountKindCrypto, "")
	assert.ErrorContains(t, err, "no crypto account")
}
