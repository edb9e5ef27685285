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

package common

import (
	"context"
	"fmt"
	"strings"

	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

// Directory is the slice of the store the CLIs use to find users.
type Directory interface {
	GetProfile(ctx context.Context, userId string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	ListAccounts(ctx context.Context, ownerId string) ([]models.Account, error)
}

// UserInfo represents a user and their accounts for command-line utilities
type UserInfo struct {
	Id       string
	Name     string
	Accounts []models.Account
}

// InitializeUsers retrieves users based on an optional filter, matched
// against the user id first and then case-insensitively against the
// display name. An empty filter returns all users.
func InitializeUsers(ctx context.Context, dir Directory, filter string, logger *zap.Logger) ([]UserInfo, error) {
	var profiles []models.Profile

	if filter != "" {
		logger.Info("Looking up user", zap.String("filter", filter))
		p, err := findProfile(ctx, dir, filter)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	} else {
		all, err := dir.ListProfiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		profiles = all
	}

	users := make([]UserInfo, 0, len(profiles))
	for _, p := range profiles {
		accounts, err := dir.ListAccounts(ctx, p.UserId)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts for %s: %w", p.UserId, err)
		}
		users = append(users, UserInfo{Id: p.UserId, Name: p.DisplayName, Accounts: accounts})
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func findProfile(ctx context.Context, dir Directory, filter string) (*models.Profile, error) {
	p, err := dir.GetProfile(ctx, filter)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	all, err := dir.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	for i := range all {
		if strings.EqualFold(all[i].DisplayName, filter) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("user not found: %s", filter)
}

// FindAccount picks the user's account of kind, optionally matching id.
// With an empty id the user must hold exactly one account of that kind.
func FindAccount(user UserInfo, kind models.AccountKind, id string) (*models.Account, error) {
	var matches []models.Account
	for _, a := range user.Accounts {
		if a.Kind != kind {
			continue
		}
		if id != "" && a.Id != id {
			continue
		}
		matches = append(matches, a)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s has no %s account%s", user.Name, kind, idSuffix(id))
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%s has %d %s accounts; pass an account id", user.Name, len(matches), kind)
	}
}

func idSuffix(id string) string {
	if id == "" {
		return ""
	}
	return " " + id
}
