package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultCountry is applied when an address arrives without a country code.
const DefaultCountry = "IN"

// Address is a postal address captured during checkout. It is stored as a JSON column.
type Address struct {
	FullName     string `json:"full_name" validate:"required,min=2"`
	Phone        string `json:"phone" validate:"required,min=6"`
	AddressLine1 string `json:"address_line1" validate:"required,min=5"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Country      string `json:"country" validate:"required,len=2"`
}

// UnmarshalJSON accepts "zip" as an alias for "postal_code".
func (a *Address) UnmarshalJSON(data []byte) error {
	type plain Address
	var raw struct {
		plain
		Zip string `json:"zip"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Address(raw.plain)
	if a.PostalCode == "" {
		a.PostalCode = raw.Zip
	}
	return nil
}

// Normalize trims every field and fills in the default country.
func (a Address) Normalize() Address {
	out := Address{
		FullName:     strings.TrimSpace(a.FullName),
		Phone:        strings.TrimSpace(a.Phone),
		AddressLine1: strings.TrimSpace(a.AddressLine1),
		AddressLine2: strings.TrimSpace(a.AddressLine2),
		City:         strings.TrimSpace(a.City),
		State:        strings.TrimSpace(a.State),
		PostalCode:   strings.TrimSpace(a.PostalCode),
		Country:      strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	if out.Country == "" {
		out.Country = DefaultCountry
	}
	return out
}

// IsZero reports whether no address has been captured.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Value implements driver.Valuer. A zero address is stored as NULL.
func (a Address) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// scanJSON decodes a JSON text column into dst. NULL leaves dst untouched.
func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
