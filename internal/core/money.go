// Package core provides number parsing and display formatting.
//
// Amounts are kept as raw float64 values everywhere in the ledger and are
// only turned into text here, at render or export time.
package core

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrNotANumber is returned when user input cannot be read as a finite number.
var ErrNotANumber = errors.New("not a number")

// ParseNumber reads a user-entered number. Thousands separators (",") and
// surrounding whitespace are accepted, so "1,500.50" parses as 1500.5.
//
// Examples:
//
//	ParseNumber("12")       -> 12, nil
//	ParseNumber("1,234.5")  -> 1234.5, nil
//	ParseNumber("-5")       -> -5, nil (range checks belong to the ledger)
//	ParseNumber("abc")      -> 0, ErrNotANumber
//	ParseNumber("1,2,3")    -> 0, ErrNotANumber
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		var ok bool
		if s, ok = ungroup(s); !ok {
			return 0, ErrNotANumber
		}
	}
	if s == "" {
		return 0, ErrNotANumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0, ErrNotANumber
	}
	return v, nil
}

// ungroup removes thousands separators from the integer part. Commas are
// only valid between groups of three digits, the first group holding one to
// three.
func ungroup(s string) (string, bool) {
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if strings.Contains(frac, ",") {
		return "", false
	}
	groups := strings.Split(intPart, ",")
	for i, g := range groups {
		if (i == 0 && (len(g) < 1 || len(g) > 3)) || (i > 0 && len(g) != 3) {
			return "", false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return "", false
			}
		}
	}
	out := sign + strings.Join(groups, "")
	if hasFrac {
		out += "." + frac
	}
	return out, true
}

// ParseOptionalNumber is ParseNumber with blank input mapped to nil.
func ParseOptionalNumber(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := ParseNumber(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FormatAmount renders a total with two decimals and grouped thousands,
// e.g. 18000 -> "18,000.00".
func FormatAmount(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// FormatQuantity renders a quantity with grouped thousands and at most three
// decimals, dropping trailing zeros: 1234 -> "1,234", 2.5 -> "2.5".
func FormatQuantity(v float64) string {
	s := humanize.FormatFloat("#,###.###", v)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// FormatQuantityColumn renders a quantity for the ledger table with grouped
// thousands and two or three decimals: 12 -> "12.00", 0.125 -> "0.125".
func FormatQuantityColumn(v float64) string {
	s := humanize.FormatFloat("#,###.###", v)
	return strings.TrimSuffix(s, "0")
}

// FormatNumber renders a raw number in its shortest exact form, e.g. 2.5 -> "2.5".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
