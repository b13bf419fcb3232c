package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// DeliveryTier is a shipping speed offered at checkout.
type DeliveryTier string

const (
	DeliveryNormal  DeliveryTier = "NORMAL"
	DeliverySpeed   DeliveryTier = "SPEED"
	DeliveryExpress DeliveryTier = "EXPRESS"
)

// ParseDeliveryTier resolves a tier name case-insensitively.
func ParseDeliveryTier(s string) (DeliveryTier, bool) {
	switch t := DeliveryTier(strings.ToUpper(strings.TrimSpace(s))); t {
	case DeliveryNormal, DeliverySpeed, DeliveryExpress:
		return t, true
	}
	return "", false
}

// DeliveryTiers is the set of tiers a product can ship with.
type DeliveryTiers []DeliveryTier

// OrDefault returns the tiers, or NORMAL alone when none are configured.
func (d DeliveryTiers) OrDefault() DeliveryTiers {
	if len(d) == 0 {
		return DeliveryTiers{DeliveryNormal}
	}
	return d
}

// Contains reports whether tier is offered.
func (d DeliveryTiers) Contains(tier DeliveryTier) bool {
	for _, t := range d.OrDefault() {
		if t == tier {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (d DeliveryTiers) Value() (driver.Value, error) {
	b, err := json.Marshal(d.OrDefault())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *DeliveryTiers) Scan(src interface{}) error {
	return scanJSON(src, d)
}
