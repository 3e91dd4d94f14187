package pricing

import (
	"os"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
)

// rulesFile is the YAML layout of a rule set. Rates are decoded as strings
// so they never pass through binary floating point.
type rulesFile struct {
	Tariffs map[string]string `yaml:"tariffs"`
	Volume  []struct {
		MinItems    int    `yaml:"min_items"`
		Rate        string `yaml:"rate"`
		Description string `yaml:"description"`
	} `yaml:"volume"`
	Dates []struct {
		Type        string   `yaml:"type"`
		Kind        string   `yaml:"kind"`
		Rate        string   `yaml:"rate"`
		Dates       []string `yaml:"dates"`
		Categories  []string `yaml:"categories"`
		Description string   `yaml:"description"`
	} `yaml:"dates"`
}

// LoadRuleSet reads a rule set from a YAML file.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read rules")
	}
	rs, err := ParseRuleSet(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return rs, nil
}

// ParseRuleSet decodes a YAML rule set.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}

	tariffs := make(map[customer.LocationCode]money.Rate, len(f.Tariffs))
	for code, v := range f.Tariffs {
		loc := customer.ParseLocation(code)
		r, err := money.ParseRate(v)
		if err != nil {
			return nil, errors.Wrapf(err, "tariff %s", loc)
		}
		tariffs[loc] = r
	}

	volume := make([]VolumeRule, 0, len(f.Volume))
	for _, v := range f.Volume {
		r, err := money.ParseRate(v.Rate)
		if err != nil {
			return nil, errors.Wrapf(err, "volume rule %d", v.MinItems)
		}
		volume = append(volume, VolumeRule{MinItems: v.MinItems, Rate: r, Description: v.Description})
	}

	dates := make([]DateRule, 0, len(f.Dates))
	for _, d := range f.Dates {
		r, err := money.ParseRate(d.Rate)
		if err != nil {
			return nil, errors.Wrapf(err, "date rule %s", d.Type)
		}
		categories := make([]product.Category, 0, len(d.Categories))
		for _, c := range d.Categories {
			cat, ok := product.ParseCategory(c)
			if !ok {
				return nil, errors.Errorf("date rule %s: unknown category %q", d.Type, c)
			}
			categories = append(categories, cat)
		}
		dates = append(dates, DateRule{
			Type:        DiscountType(d.Type),
			Kind:        DateRuleKind(d.Kind),
			Rate:        r,
			Dates:       d.Dates,
			Categories:  categories,
			Description: d.Description,
		})
	}

	return NewRuleSet(tariffs, volume, dates)
}
