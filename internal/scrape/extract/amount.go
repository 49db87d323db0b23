package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a displayed amount into minor units. Both the Romanian
// format ("1.234,56 lei") and the plain format ("1234.56") are accepted.
func ParseAmount(s string) (int64, error) {
	var b strings.Builder
	negative := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == ',', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = true
		}
	}
	raw := b.String()
	if raw == "" {
		return 0, fmt.Errorf("no amount in %q", s)
	}

	intPart, fracPart := raw, ""
	if i := strings.LastIndexByte(raw, ','); i >= 0 {
		// decimal comma, dots group thousands
		intPart = strings.ReplaceAll(raw[:i], ".", "")
		fracPart = raw[i+1:]
	} else if i := strings.LastIndexByte(raw, '.'); i >= 0 && strings.Count(raw, ".") == 1 && len(raw)-i-1 <= 2 {
		intPart, fracPart = raw[:i], raw[i+1:]
	} else {
		intPart = strings.ReplaceAll(raw, ".", "")
	}

	if strings.ContainsAny(intPart, ",.") || strings.ContainsAny(fracPart, ",.") || len(fracPart) > 2 {
		return 0, fmt.Errorf("ambiguous amount %q", s)
	}
	if intPart == "" {
		intPart = "0"
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	cents, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}

	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("amount %q does not fit in minor units", s)
	}

	amount := units*100 + cents
	if negative {
		amount = -amount
	}
	return amount, nil
}
