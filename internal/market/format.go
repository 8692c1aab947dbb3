package market

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Price renders a unit price with six decimals and no grouping, e.g. $0.001230.
func Price(v *float64) string {
	if v == nil {
		return Unknown
	}
	return "$" + decimal.NewFromFloat(*v).StringFixed(6)
}

// USD renders an amount with thousands separators and two decimals, e.g. $12,345.68.
func USD(v *float64) string {
	if v == nil {
		return Unknown
	}
	return "$" + Grouped(decimal.NewFromFloat(*v), 2)
}

// Percent renders a percentage with two decimals.
func Percent(v *float64) string {
	if v == nil {
		return Unknown
	}
	return decimal.NewFromFloat(*v).StringFixed(2) + "%"
}

// Grouped renders d rounded to places with comma thousands separators.
func Grouped(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}

// Created renders an ISO creation time as "2006-01-02 15:04:05 UTC". Values
// that do not parse are returned as-is; empty values render as Unknown.
func Created(s string) string {
	if s == "" {
		return Unknown
	}
	if !strings.Contains(s, "T") {
		return s
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
}

// CreatedDate returns the date part of an ISO creation time.
func CreatedDate(s string) string {
	if len(s) < 10 {
		return orUnknown(s)
	}
	return s[:10]
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
