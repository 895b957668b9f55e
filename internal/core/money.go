// Package core provides the expense record and its boundary rules.
//
// This file contains amount parsing and formatting. Amounts are stored as
// floating point values (REAL column); parsing only normalises the input.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a decimal string to a positive amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted, as is
// a leading currency symbol left over from formatted input. Signs, thousands
// separators and zero are rejected.
//
// Examples:
//
//	ParseAmount("25.50")  -> 25.5, nil
//	ParseAmount("25,50")  -> 25.5, nil
//	ParseAmount("$30")    -> 30, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.Is(unicode.Sc, r) || unicode.IsSpace(r)
	})
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if err := validateAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// FormatAmount renders an amount with two decimals and its currency code,
// e.g. "25.50 USD".
func FormatAmount(v float64, currency string) string {
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
	if currency == "" {
		return s
	}
	return s + " " + strings.ToUpper(currency)
}
