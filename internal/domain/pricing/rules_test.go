package pricing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
)

const rulesYAML = `
tariffs:
  EU: 1.20
  asia: "0.90"
volume:
  - min_items: 3
    rate: 0.05
  - min_items: 20
    rate: "0.25"
dates:
  - type: flash
    kind: priority
    rate: 0.40
    dates: ["2026-02-02"]
  - type: spring
    kind: seasonal
    rate: 0.10
    dates: ["2026-03-21"]
    categories: [HOME, toys]
`

func TestParseRuleSet(t *testing.T) {
	rs, err := ParseRuleSet([]byte(rulesYAML))
	require.NoError(t, err)

	assert.Equal(t, "1.2", rs.Tariff(customer.LocationEU).String())
	assert.Equal(t, "0.9", rs.Tariff(customer.LocationASIA).String())
	assert.Equal(t, "1", rs.Tariff(customer.LocationUS).String())

	// Volume rules are evaluated highest threshold first whatever the file order.
	v, ok := rs.volumeRule(25)
	require.True(t, ok)
	assert.Equal(t, 20, v.MinItems)
	v, ok = rs.volumeRule(3)
	require.True(t, ok)
	assert.Equal(t, 3, v.MinItems)
	_, ok = rs.volumeRule(2)
	assert.False(t, ok)

	e := NewEngine(rs)
	q, err := e.Price(customer.LocationUS, []Item{item("p", "10", product.CategoryToys, 1)},
		time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, q.Breakdown.AppliedDiscount)
	assert.Equal(t, DiscountType("spring"), q.Breakdown.AppliedDiscount.Type)
	assertMoney(t, "9.00", q.Breakdown.FinalPrice)
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesYAML), 0o600))

	rs, err := LoadRuleSet(path)
	require.NoError(t, err)
	assert.Equal(t, "1.2", rs.Tariff(customer.LocationEU).String())

	_, err = LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewRuleSet_Invalid(t *testing.T) {
	rate := money.MustParseRate("0.1")
	tests := []struct {
		name    string
		tariffs map[customer.LocationCode]money.Rate
		volume  []VolumeRule
		dates   []DateRule
	}{
		{
			name:    "ZeroTariff",
			tariffs: map[customer.LocationCode]money.Rate{customer.LocationEU: money.MustParseRate("0")},
		},
		{
			name:   "ZeroMinItems",
			volume: []VolumeRule{{MinItems: 0, Rate: rate}},
		},
		{
			name:   "RateAboveOne",
			volume: []VolumeRule{{MinItems: 1, Rate: money.MustParseRate("1.5")}},
		},
		{
			name:  "UnknownKind",
			dates: []DateRule{{Type: "x", Kind: "weekly", Rate: rate}},
		},
		{
			name:  "BadDate",
			dates: []DateRule{{Type: "x", Kind: KindPriority, Rate: rate, Dates: []string{"2025-13-01"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleSet(tt.tariffs, tt.volume, tt.dates)
			var ruleErr *InvalidRuleError
			require.ErrorAs(t, err, &ruleErr)
		})
	}
}

func TestParseRuleSet_UnknownCategory(t *testing.T) {
	_, err := ParseRuleSet([]byte(`
dates:
  - type: x
    kind: seasonal
    rate: "0.1"
    categories: [GARDEN]
`))
	require.Error(t, err)
}

func TestDefaultRuleSet(t *testing.T) {
	rs := DefaultRuleSet()
	assert.Equal(t, "1.15", rs.Tariff(customer.LocationEU).String())
	assert.Equal(t, "0.95", rs.Tariff(customer.LocationASIA).String())
	require.Len(t, rs.dates, 2)
	assert.Len(t, rs.dates[1].dates, 14)
	assert.True(t, rs.dates[1].covers(product.CategoryClothing))
	assert.False(t, rs.dates[1].covers(product.CategoryBooks))
	assert.True(t, rs.dates[0].covers(product.CategoryBooks))
}
