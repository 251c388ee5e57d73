package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxPolicyRateForPrecedence(t *testing.T) {
	holder := NewStaticTaxPolicyHolder(TaxPolicy{
		DefaultRate: 20,
		Families:    map[string]float64{"Alimentation Générale": 5.5},
	})

	assert.True(t, holder.RateFor("", decimal.NullDecimal{}).Equal(decimal.RequireFromString("20")))
	assert.True(t, holder.RateFor("alimentation generale", decimal.NullDecimal{}).Equal(decimal.RequireFromString("5.5")))

	override := decimal.NewNullDecimal(decimal.RequireFromString("10"))
	assert.True(t, holder.RateFor("alimentation generale", override).Equal(decimal.RequireFromString("10")))
}

func TestNewTaxPolicyHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("tax:\n  defaultRate: 20\n  families:\n    livres: 5.5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tax.yml"), content, 0o600))

	holder, err := NewTaxPolicyHolder(Config{Billing: BillingConfig{TaxConfigPath: dir}})
	require.NoError(t, err)

	assert.True(t, holder.RateFor("Livres", decimal.NullDecimal{}).Equal(decimal.RequireFromString("5.5")))
}

func TestValidateTaxPolicyRejectsOutOfRange(t *testing.T) {
	err := validateTaxPolicy(TaxPolicy{DefaultRate: 120})
	assert.Error(t, err)

	err = validateTaxPolicy(TaxPolicy{DefaultRate: 20, Families: map[string]float64{"x": -1}})
	assert.Error(t, err)
}
