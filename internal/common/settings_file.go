package common

import (
	"fmt"
	"os"
	"path/filepath"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// LoadSettingsFile reads the YAML seed of global settings.
func LoadSettingsFile(settingsFile string) ([]models.Setting, error) {
	var settingsPath string
	if filepath.IsAbs(settingsFile) {
		settingsPath = settingsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		settingsPath = filepath.Join(wd, settingsFile)
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", settingsFile, err)
	}
	return ParseSettings(data, settingsFile)
}

// ParseSettings validates and decodes a settings seed document.
func ParseSettings(data []byte, source string) ([]models.Setting, error) {
	var file models.SettingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", source, err)
	}

	for i := range file.Settings {
		st := &file.Settings[i]
		if st.Category == "" {
			return nil, fmt.Errorf("setting at index %d missing category", i)
		}
		if st.Key == "" {
			return nil, fmt.Errorf("setting at index %d missing key", i)
		}
		value, err := decimal.NewFromString(st.RawValue)
		if err != nil {
			return nil, fmt.Errorf("setting %s.%s has invalid value %q: %w", st.Category, st.Key, st.RawValue, err)
		}
		if value.IsNegative() {
			return nil, fmt.Errorf("setting %s.%s cannot be negative", st.Category, st.Key)
		}
		st.Value = value
	}

	return file.Settings, nil
}
