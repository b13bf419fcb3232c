// Package pricing computes checkout totals from frozen snapshot items. It performs no I/O.
package pricing

import (
	"errors"
	"sort"
	"strings"

	"toko-checkout/internal/models"

	"github.com/shopspring/decimal"
)

// ErrUnknownTier is returned when a delivery tier has no shipping rate.
var ErrUnknownTier = errors.New("unknown delivery tier")

// DeliveryOption is the shipping cost and estimated transit time of a tier.
type DeliveryOption struct {
	Tier         models.DeliveryTier `json:"tier"`
	Cost         int64               `json:"cost"`
	EstimateDays int                 `json:"estimate_days"`
}

// TaxRule applies Rate to destinations in State.
type TaxRule struct {
	State string
	Rate  decimal.Decimal
}

// Quote is the priced breakdown of a checkout.
type Quote struct {
	Subtotal     int64               `json:"subtotal"`
	Tax          int64               `json:"tax"`
	Shipping     int64               `json:"shipping"`
	Total        int64               `json:"total"`
	TaxRate      decimal.Decimal     `json:"tax_rate"`
	DeliveryType models.DeliveryTier `json:"delivery_type"`
	EstimateDays int                 `json:"estimate_days"`
}

// Engine prices snapshots with a delivery table and a regional tax table.
type Engine struct {
	delivery    map[models.DeliveryTier]DeliveryOption
	taxRules    []TaxRule
	defaultRate decimal.Decimal
}

// DefaultDeliveryOptions are the tiers offered by the store.
func DefaultDeliveryOptions() []DeliveryOption {
	return []DeliveryOption{
		{Tier: models.DeliveryNormal, Cost: 50, EstimateDays: 5},
		{Tier: models.DeliverySpeed, Cost: 120, EstimateDays: 2},
		{Tier: models.DeliveryExpress, Cost: 250, EstimateDays: 1},
	}
}

// DefaultTaxRules holds the in-state rate. Everything else pays the default rate.
func DefaultTaxRules() []TaxRule {
	return []TaxRule{
		{State: "TN", Rate: decimal.RequireFromString("0.05")},
	}
}

// NewEngine creates an Engine with the store's delivery and tax tables.
func NewEngine() *Engine {
	return NewEngineWith(DefaultDeliveryOptions(), DefaultTaxRules(), decimal.RequireFromString("0.12"))
}

// NewEngineWith creates an Engine from explicit tables.
func NewEngineWith(options []DeliveryOption, rules []TaxRule, defaultRate decimal.Decimal) *Engine {
	delivery := make(map[models.DeliveryTier]DeliveryOption, len(options))
	for _, o := range options {
		delivery[o.Tier] = o
	}
	normalized := make([]TaxRule, len(rules))
	for i, r := range rules {
		normalized[i] = TaxRule{State: strings.ToUpper(strings.TrimSpace(r.State)), Rate: r.Rate}
	}
	return &Engine{delivery: delivery, taxRules: normalized, defaultRate: defaultRate}
}

// Delivery returns the option for tier.
func (e *Engine) Delivery(tier models.DeliveryTier) (DeliveryOption, error) {
	o, ok := e.delivery[tier]
	if !ok {
		return DeliveryOption{}, ErrUnknownTier
	}
	return o, nil
}

// Options lists every configured tier, cheapest first.
func (e *Engine) Options() []DeliveryOption {
	out := make([]DeliveryOption, 0, len(e.delivery))
	for _, o := range e.delivery {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out
}

// TaxRate returns the rate that applies to the destination.
func (e *Engine) TaxRate(addr models.Address) decimal.Decimal {
	state := strings.ToUpper(strings.TrimSpace(addr.State))
	for _, r := range e.taxRules {
		if r.State == state {
			return r.Rate
		}
	}
	return e.defaultRate
}

// Price computes the full breakdown. Identical inputs always yield identical quotes.
func (e *Engine) Price(items []models.SnapshotItem, tier models.DeliveryTier, addr models.Address) (Quote, error) {
	option, err := e.Delivery(tier)
	if err != nil {
		return Quote{}, err
	}

	subtotal := Subtotal(items)
	rate := e.TaxRate(addr)
	// Round rounds half away from zero.
	tax := decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()

	return Quote{
		Subtotal:     subtotal,
		Tax:          tax,
		Shipping:     option.Cost,
		Total:        subtotal + tax + option.Cost,
		TaxRate:      rate,
		DeliveryType: option.Tier,
		EstimateDays: option.EstimateDays,
	}, nil
}

// Subtotal sums price times quantity over items.
func Subtotal(items []models.SnapshotItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Price * int64(it.Quantity)
	}
	return sum
}
