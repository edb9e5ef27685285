package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Setting is one global (category, key) -> value row.
type Setting struct {
	Category    string          `db:"category" yaml:"category"`
	Key         string          `db:"key" yaml:"key"`
	Value       decimal.Decimal `db:"value" yaml:"-"`
	RawValue    string          `db:"-" yaml:"value"`
	Description string          `db:"description" yaml:"description"`
	UpdatedAt   time.Time       `db:"updated_at" yaml:"-"`
}

// SettingsFile is the YAML seed for global settings.
type SettingsFile struct {
	Settings []Setting `yaml:"settings"`
}
