// Package pricing computes order price breakdowns from location tariffs,
// volume discounts and calendar promotions. The engine is a pure function of
// its inputs and is safe for concurrent use.
package pricing

import (
	"fmt"
	"time"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
)

// Item is a product and the quantity ordered.
type Item struct {
	Product  product.Product
	Quantity int
}

// Line is a priced item.
type Line struct {
	ProductID      string
	Category       product.Category
	Quantity       int
	UnitBasePrice  money.Money
	UnitFinalPrice money.Money
}

// AppliedDiscount describes the single discount chosen for an order.
type AppliedDiscount struct {
	Type DiscountType
	Rate money.Rate
}

// Breakdown is the order-level result of pricing.
type Breakdown struct {
	BasePrice          money.Money
	LocationTariffRate money.Rate
	AppliedDiscount    *AppliedDiscount
	DiscountAmount     money.Money
	FinalPrice         money.Money
}

// Quote is the full pricing result, lines in request order.
type Quote struct {
	Lines     []Line
	Breakdown Breakdown
}

// InvalidQuantityError reports a non-positive line quantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

// Engine prices orders against a rule set.
type Engine struct {
	rules *RuleSet
}

// NewEngine returns an engine using rules, or the default rules when nil.
func NewEngine(rules *RuleSet) *Engine {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Engine{rules: rules}
}

// Rules returns the rule set the engine prices with.
func (e *Engine) Rules() *RuleSet { return e.rules }

// candidate is one discount family's offer for an order.
type candidate struct {
	discount AppliedDiscount
	amount   money.Money
	eligible func(product.Category) bool
}

func allCategories(product.Category) bool { return true }

// Price computes the breakdown for items bought by a customer in loc on the
// calendar day of date.
func (e *Engine) Price(loc customer.LocationCode, items []Item, date time.Time) (Quote, error) {
	tariff := e.rules.Tariff(loc)
	q := Quote{
		Lines: make([]Line, 0, len(items)),
		Breakdown: Breakdown{
			BasePrice:          money.Zero,
			LocationTariffRate: tariff,
			DiscountAmount:     money.Zero,
			FinalPrice:         money.Zero,
		},
	}

	var (
		base     = money.Zero
		totalQty int
	)
	for _, it := range items {
		if it.Quantity <= 0 {
			return Quote{}, &InvalidQuantityError{ProductID: it.Product.ID, Quantity: it.Quantity}
		}
		unit := it.Product.Price.Mul(tariff).Round()
		q.Lines = append(q.Lines, Line{
			ProductID:      it.Product.ID,
			Category:       it.Product.Category,
			Quantity:       it.Quantity,
			UnitBasePrice:  unit,
			UnitFinalPrice: unit,
		})
		base = base.Add(unit.Times(it.Quantity).Round()).Round()
		totalQty += it.Quantity
	}
	if len(q.Lines) == 0 {
		return q, nil
	}
	q.Breakdown.BasePrice = base

	best := pick(
		e.volumeCandidate(base, totalQty),
		e.dateCandidate(base, q.Lines, date),
	)
	if best == nil {
		q.Breakdown.FinalPrice = base
		return q, nil
	}

	discount := money.Zero
	keep := best.discount.Rate.Complement()
	for i := range q.Lines {
		l := &q.Lines[i]
		if !best.eligible(l.Category) {
			continue
		}
		l.UnitFinalPrice = l.UnitBasePrice.Mul(keep).Round()
		discount = discount.Add(l.UnitBasePrice.Sub(l.UnitFinalPrice).Times(l.Quantity)).Round()
	}

	applied := best.discount
	q.Breakdown.AppliedDiscount = &applied
	q.Breakdown.DiscountAmount = discount
	q.Breakdown.FinalPrice = base.Sub(discount)
	return q, nil
}

// pick folds candidates to the one with the strictly greatest amount; earlier
// candidates win ties.
func pick(candidates ...*candidate) *candidate {
	var best *candidate
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if best == nil || c.amount.GreaterThan(best.amount) {
			best = c
		}
	}
	return best
}

func (e *Engine) volumeCandidate(base money.Money, totalQty int) *candidate {
	v, ok := e.rules.volumeRule(totalQty)
	if !ok {
		return nil
	}
	return &candidate{
		discount: AppliedDiscount{Type: DiscountVolume, Rate: v.Rate},
		amount:   base.Mul(v.Rate).Round(),
		eligible: allCategories,
	}
}

func (e *Engine) dateCandidate(base money.Money, lines []Line, date time.Time) *candidate {
	day := date.Format(time.DateOnly)

	for _, r := range e.rules.dates {
		if r.Kind != KindPriority || !r.activeOn(day) {
			continue
		}
		return &candidate{
			discount: AppliedDiscount{Type: r.Type, Rate: r.Rate},
			amount:   base.Mul(r.Rate).Round(),
			eligible: allCategories,
		}
	}

	for _, r := range e.rules.dates {
		if r.Kind != KindSeasonal || !r.activeOn(day) {
			continue
		}
		var (
			amount  = money.Zero
			matched bool
		)
		for _, l := range lines {
			if !r.covers(l.Category) {
				continue
			}
			matched = true
			unit := l.UnitBasePrice.Mul(r.Rate).Round()
			amount = amount.Add(unit.Times(l.Quantity)).Round()
		}
		if !matched {
			continue
		}
		return &candidate{
			discount: AppliedDiscount{Type: r.Type, Rate: r.Rate},
			amount:   amount,
			eligible: r.covers,
		}
	}

	return nil
}
