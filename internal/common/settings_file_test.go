package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettings(t *testing.T) {
	doc := []byte(`
settings:
  - category: fees
    key: card_to_card_percent
    value: "1.0"
    description: Card to card transfer fee
  - category: exchange_rates
    key: usdt_to_aed_sell
    value: "3.69"
`)
	settings, err := ParseSettings(doc, "inline")
	require.NoError(t, err)
	require.Len(t, settings, 2)

	assert.Equal(t, "fees", settings[0].Category)
	assert.Equal(t, "card_to_card_percent", settings[0].Key)
	assert.Equal(t, "1", settings[0].Value.String())
	assert.Equal(t, "3.69", settings[1].Value.String())
}

func TestParseSettingsRejectsBadRows(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing category", "settings:\n  - key: a\n    value: \"1\"\n"},
		{"missing key", "settings:\n  - category: fees\n    value: \"1\"\n"},
		{"not a number", "settings:\n  - category: fees\n    key: a\n    value: abc\n"},
		{"negative", "settings:\n  - category: fees\n    key: a\n    value: \"-1\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettings([]byte(tt.doc), "inline")
			assert.Error(t, err)
		})
	}
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settings:\n  - category: limits\n    key: transfer_max\n    value: \"50000\"\n"), 0o600))

	settings, err := LoadSettingsFile(path)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "50000", settings[0].Value.String())

	_, err = LoadSettingsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
