package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Locale is a supported content language.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleJA Locale = "ja"
	LocaleZH Locale = "zh"
)

// OrDefault falls back to English for unrecognized locales.
func (l Locale) OrDefault() Locale {
	switch l {
	case LocaleEN, LocaleJA, LocaleZH:
		return l
	}
	return LocaleEN
}

// City is a supported clinic city.
type City string

const (
	CitySeoul City = "seoul"
	CityBusan City = "busan"
	CityJeju  City = "jeju"
)

// LocalizedString holds per-locale text, stored as a jsonb column.
type LocalizedString struct {
	EN string `json:"en"`
	JA string `json:"ja"`
	ZH string `json:"zh"`
}

// In returns the text for the locale, falling back to English.
func (s LocalizedString) In(locale Locale) string {
	switch locale.OrDefault() {
	case LocaleJA:
		if s.JA != "" {
			return s.JA
		}
	case LocaleZH:
		if s.ZH != "" {
			return s.ZH
		}
	}
	return s.EN
}

func (s LocalizedString) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *LocalizedString) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// Currency is a supported budget currency.
type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyUSD Currency = "USD"
	CurrencyJPY Currency = "JPY"
	CurrencyCNY Currency = "CNY"
)

// Budget is an optional price range attached to a booking request.
type Budget struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency Currency `json:"currency"`
}

func (b Budget) Value() (driver.Value, error) {
	if b.Currency == "" {
		b.Currency = CurrencyKRW
	}
	return json.Marshal(b)
}

func (b *Budget) Scan(src interface{}) error {
	if src == nil {
		*b = Budget{Currency: CurrencyKRW}
		return nil
	}
	if err := scanJSON(src, b); err != nil {
		return err
	}
	if b.Currency == "" {
		b.Currency = CurrencyKRW
	}
	return nil
}

// StringSlice is a jsonb-backed string list (photos, languages, tags).
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		s = StringSlice{}
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(src interface{}) error {
	if src == nil {
		*s = StringSlice{}
		return nil
	}
	return scanJSON(src, s)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
