// Package norm parses Norwegian-formatted amounts, dates, and page text.
package norm

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var currencyToken = regexp.MustCompile(`(?i)kr\.?|nok`)

// ParseAmount converts a raw amount into NOK. Strings may carry currency
// tokens, grouping spaces (including non-breaking spaces), and a decimal
// comma. Nil, empty, and unparseable input all yield 0.
func ParseAmount(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		return ParseAmount(v.String())
	case *string:
		if v == nil {
			return 0
		}
		return ParseAmount(*v)
	case string:
		d, ok := ParseDecimal(v)
		if !ok {
			return 0
		}
		return d.InexactFloat64()
	default:
		return 0
	}
}

// ParseDecimal parses a Norwegian amount string exactly. The boolean is
// false when nothing numeric remains after cleanup.
func ParseDecimal(raw string) (decimal.Decimal, bool) {
	s := currencyToken.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSuffix(s, ",-")
	s = strings.TrimSuffix(s, ".-")
	s = strings.Replace(s, ",", ".", 1)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatCurrency renders v the way Norwegian statements print it: "1 234,56 kr".
func FormatCurrency(v float64) string {
	fixed := decimal.NewFromFloat(finite(v)).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "," + frac + " kr"
}

// Round2 rounds to whole øre.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(finite(v)).Round(2).InexactFloat64()
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
