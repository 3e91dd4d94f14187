package pricing

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
)

// DiscountType names the promotion an applied discount came from.
type DiscountType string

const (
	DiscountVolume      DiscountType = "volume"
	DiscountBlackFriday DiscountType = "black_friday"
	DiscountHoliday     DiscountType = "holiday"
)

// DateRuleKind decides precedence between date rules active on the same day.
type DateRuleKind string

const (
	// KindPriority rules discount the whole order and win over seasonal rules.
	KindPriority DateRuleKind = "priority"
	// KindSeasonal rules discount only lines in their eligible categories.
	KindSeasonal DateRuleKind = "seasonal"
)

// VolumeRule discounts an order whose total quantity reaches MinItems.
type VolumeRule struct {
	MinItems    int
	Rate        money.Rate
	Description string
}

// DateRule discounts orders priced on one of Dates (YYYY-MM-DD). An empty
// Categories list makes every category eligible.
type DateRule struct {
	Type        DiscountType
	Kind        DateRuleKind
	Rate        money.Rate
	Dates       []string
	Categories  []product.Category
	Description string
}

// dateRule is a DateRule indexed for lookups.
type dateRule struct {
	DateRule
	dates      map[string]struct{}
	categories map[product.Category]struct{}
}

func (r *dateRule) activeOn(day string) bool {
	_, ok := r.dates[day]
	return ok
}

func (r *dateRule) covers(c product.Category) bool {
	if len(r.categories) == 0 {
		return true
	}
	_, ok := r.categories[c]
	return ok
}

// RuleSet is an immutable catalog of tariff and discount rules. It is safe
// for concurrent use.
type RuleSet struct {
	tariffs map[customer.LocationCode]money.Rate
	volume  []VolumeRule
	dates   []*dateRule
}

// InvalidRuleError reports a rule that cannot be used for pricing.
type InvalidRuleError struct {
	Rule   string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid pricing rule %s: %s", e.Rule, e.Reason)
}

// NewRuleSet validates and copies the given rules. Volume rules are kept in
// descending order of MinItems regardless of input order.
func NewRuleSet(tariffs map[customer.LocationCode]money.Rate, volume []VolumeRule, dates []DateRule) (*RuleSet, error) {
	rs := &RuleSet{
		tariffs: make(map[customer.LocationCode]money.Rate, len(tariffs)),
		volume:  slices.Clone(volume),
		dates:   make([]*dateRule, 0, len(dates)),
	}

	for loc, m := range tariffs {
		if m.IsNegative() || m.IsZero() {
			return nil, &InvalidRuleError{Rule: "tariff " + string(loc), Reason: "multiplier must be > 0"}
		}
		rs.tariffs[loc] = m
	}

	for _, v := range rs.volume {
		name := fmt.Sprintf("volume >=%d", v.MinItems)
		if v.MinItems < 1 {
			return nil, &InvalidRuleError{Rule: name, Reason: "min items must be >= 1"}
		}
		if err := validateRate(name, v.Rate); err != nil {
			return nil, err
		}
	}
	slices.SortStableFunc(rs.volume, func(a, b VolumeRule) int {
		return cmp.Compare(b.MinItems, a.MinItems)
	})

	for _, d := range dates {
		name := "date " + string(d.Type)
		if d.Kind != KindPriority && d.Kind != KindSeasonal {
			return nil, &InvalidRuleError{Rule: name, Reason: fmt.Sprintf("unknown kind %q", d.Kind)}
		}
		if err := validateRate(name, d.Rate); err != nil {
			return nil, err
		}
		r := &dateRule{
			DateRule:   d,
			dates:      make(map[string]struct{}, len(d.Dates)),
			categories: make(map[product.Category]struct{}, len(d.Categories)),
		}
		for _, day := range d.Dates {
			t, err := time.Parse(time.DateOnly, day)
			if err != nil {
				return nil, &InvalidRuleError{Rule: name, Reason: fmt.Sprintf("bad date %q", day)}
			}
			r.dates[t.Format(time.DateOnly)] = struct{}{}
		}
		for _, c := range d.Categories {
			r.categories[c] = struct{}{}
		}
		rs.dates = append(rs.dates, r)
	}

	return rs, nil
}

// MustRuleSet is like NewRuleSet but panics on invalid rules.
func MustRuleSet(tariffs map[customer.LocationCode]money.Rate, volume []VolumeRule, dates []DateRule) *RuleSet {
	rs, err := NewRuleSet(tariffs, volume, dates)
	if err != nil {
		panic(err)
	}
	return rs
}

func validateRate(rule string, r money.Rate) error {
	if r.IsNegative() || r.GreaterThan(money.One) {
		return &InvalidRuleError{Rule: rule, Reason: "rate must be within [0, 1]"}
	}
	return nil
}

// Tariff returns the multiplier for loc, or the neutral multiplier when the
// location has no rule.
func (rs *RuleSet) Tariff(loc customer.LocationCode) money.Rate {
	if m, ok := rs.tariffs[loc]; ok {
		return m
	}
	return money.One
}

// volumeRule returns the rule with the highest threshold met by qty.
func (rs *RuleSet) volumeRule(qty int) (VolumeRule, bool) {
	for _, v := range rs.volume {
		if qty >= v.MinItems {
			return v, true
		}
	}
	return VolumeRule{}, false
}

// DefaultRuleSet returns the built-in promotion calendar.
func DefaultRuleSet() *RuleSet {
	return MustRuleSet(
		map[customer.LocationCode]money.Rate{
			customer.LocationEU:   money.MustParseRate("1.15"),
			customer.LocationASIA: money.MustParseRate("0.95"),
		},
		[]VolumeRule{
			{MinItems: 50, Rate: money.MustParseRate("0.30"), Description: "30% off 50 or more units"},
			{MinItems: 10, Rate: money.MustParseRate("0.20"), Description: "20% off 10 or more units"},
			{MinItems: 5, Rate: money.MustParseRate("0.10"), Description: "10% off 5 or more units"},
		},
		[]DateRule{
			{
				Type:        DiscountBlackFriday,
				Kind:        KindPriority,
				Rate:        money.MustParseRate("0.25"),
				Dates:       []string{"2025-11-29"},
				Description: "Black Friday: 25% off all products",
			},
			{
				Type: DiscountHoliday,
				Kind: KindSeasonal,
				Rate: money.MustParseRate("0.15"),
				Dates: []string{
					"2025-01-01", "2025-01-06", "2025-04-20", "2025-04-21",
					"2025-05-01", "2025-05-03", "2025-06-08", "2025-06-19",
					"2025-08-15", "2025-11-01", "2025-11-11", "2025-12-24",
					"2025-12-25", "2025-12-26",
				},
				Categories:  []product.Category{product.CategoryElectronics, product.CategoryClothing},
				Description: "Holiday sales: 15% off selected categories",
			},
		},
	)
}
