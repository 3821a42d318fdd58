package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/zatekoja/storeassist/pkg/config"
)

// FormatPrice renders a raw store price the way the storefront displays it,
// using the configured symbol, position, decimals and separators.
// An empty price yields "" and a price without any digits is returned as is.
func FormatPrice(raw string, currency config.CurrencyConfig) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	value, ok := parseDecimal(raw)
	if !ok {
		return raw
	}

	amount := formatNumber(value, currency.Decimals, currency.DecimalSeparator, currency.ThousandSeparator)

	switch currency.Position {
	case "right":
		return amount + currency.Symbol
	case "left_space":
		return currency.Symbol + " " + amount
	case "right_space":
		return amount + " " + currency.Symbol
	default:
		return currency.Symbol + amount
	}
}

// PriceMagnitude extracts the numeric value of a formatted price by keeping
// only digits and dots and reading the longest numeric prefix. Strings with no
// number in them yield 0.
func PriceMagnitude(formatted string) float64 {
	var b strings.Builder
	for _, r := range formatted {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	stripped := b.String()

	end := 0
	dot := false
	for end < len(stripped) {
		c := stripped[end]
		if c == '.' {
			if dot {
				break
			}
			dot = true
		}
		end++
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(stripped[:end], "."), 64)
	if err != nil {
		return 0
	}
	return value
}

func parseDecimal(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func formatNumber(value float64, decimals int, decimalSep, thousandSep string) string {
	if decimals < 0 {
		decimals = 0
	}
	negative := value < 0
	fixed := strconv.FormatFloat(math.Abs(value), 'f', decimals, 64)

	intPart, fracPart := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	var grouped strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteString(thousandSep)
		}
		grouped.WriteRune(c)
	}

	out := grouped.String()
	if fracPart != "" {
		out += decimalSep + fracPart
	}
	if negative {
		out = "-" + out
	}
	return out
}
