package extract

import (
	"strconv"
	"strings"
)

// ParseAmount parses a captured Swedish amount string into öre.
//
// Captures arrive with embedded spaces or dots as thousands separators
// and a comma as the decimal separator ("1 234,00", "1.234,50", "950").
// Everything but digits and the decimal comma is stripped before parsing.
// An amount without a decimal part is whole kronor.
func ParseAmount(raw string) (*Amount, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}

	var digits strings.Builder
	decimal := ""
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ',':
			// Decimal separator: at most two digits follow.
			rest := onlyDigits(string(runes[i+1:]))
			if len(rest) > 2 {
				rest = rest[:2]
			}
			decimal = rest
			i = len(runes)
		case r == ' ' || r == '.' || r == '\u00a0':
			// thousands separator
		default:
			// Trailing currency text ("kr", "SEK") ends the number.
			if digits.Len() > 0 {
				i = len(runes)
			}
		}
	}

	whole := digits.String()
	if whole == "" {
		return nil, false
	}

	kronor, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return nil, false
	}

	ore := kronor * 100
	if decimal != "" {
		for len(decimal) < 2 {
			decimal += "0"
		}
		d, err := strconv.ParseInt(decimal, 10, 64)
		if err != nil {
			return nil, false
		}
		ore += d
	}

	return &Amount{Ore: ore, Raw: raw}, true
}

func onlyDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		} else {
			break
		}
	}
	return b.String()
}
