package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyMarkers = []string{"US$", "COP", "$", "€"}

// ParseAmount parses a monetary amount written with Latin American or English
// separators: "$1,500.00", "1.500,00", "203.343,81", "1.500" (thousands) or "1500,5".
//
// When both separators appear the rightmost one is the decimal separator. A separator
// kind that repeats is a thousands separator. A single separator followed by exactly
// three digits is a thousands separator, otherwise it is decimal.
func ParseAmount(s string) (decimal.Decimal, bool) {
	canonical, ok := canonicalAmount(s)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// canonicalAmount rewrites an amount in dot-decimal form without grouping, keeping the
// number of decimal digits written.
func canonicalAmount(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, marker := range currencyMarkers {
		s = strings.TrimPrefix(s, marker)
		s = strings.TrimSpace(s)
	}

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = strings.TrimSpace(s[1:])
	}
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return "", false
		}
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	var intPart, fracPart, thousands string
	switch {
	case dots == 0 && commas == 0:
		intPart = s
	case dots > 0 && commas > 0:
		lastDot := strings.LastIndex(s, ".")
		lastComma := strings.LastIndex(s, ",")
		decimalSep, groupSep := ".", ","
		if lastComma > lastDot {
			decimalSep, groupSep = ",", "."
		}
		if strings.Count(s, decimalSep) != 1 {
			return "", false
		}
		idx := strings.LastIndex(s, decimalSep)
		intPart, fracPart = s[:idx], s[idx+1:]
		thousands = groupSep
	default:
		sep := "."
		if commas > 0 {
			sep = ","
		}
		idx := strings.LastIndex(s, sep)
		after := s[idx+1:]
		before := s[:idx]
		switch {
		case strings.Count(s, sep) > 1:
			intPart = s
			thousands = sep
		case len(after) == 3 && len(before) >= 1 && len(before) <= 3 && before != "0":
			intPart = s
			thousands = sep
		default:
			intPart, fracPart = before, after
		}
	}

	if thousands != "" {
		grouped, ok := ungroup(intPart, thousands)
		if !ok {
			return "", false
		}
		intPart = grouped
	}
	if intPart == "" {
		intPart = "0"
	}
	if strings.ContainsAny(intPart, ".,") || strings.ContainsAny(fracPart, ".,") {
		return "", false
	}
	if fracPart == "" {
		return sign + intPart, true
	}
	return sign + intPart + "." + fracPart, true
}

// ungroup removes well-formed thousands grouping: a leading group of one to three
// digits followed by groups of exactly three.
func ungroup(s, sep string) (string, bool) {
	groups := strings.Split(s, sep)
	if len(groups) == 1 {
		return s, true
	}
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}
