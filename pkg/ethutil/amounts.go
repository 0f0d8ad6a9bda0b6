// Package ethutil provides exact conversions between human readable token
// amounts and their on-chain base-unit representation.
package ethutil

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ParseUnits scales a decimal amount string to base units as an exact integer.
// "1.5" with 6 decimals becomes 1500000. The conversion never goes through
// floating point, so there is no drift at the wire level.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("negative amount: %s", amount)
	}

	whole := amount
	frac := ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
		if whole == "" && frac == "" {
			return nil, fmt.Errorf("malformed amount: %s", amount)
		}
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("malformed amount: %s", amount)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	// whole*10^decimals + frac padded to decimals digits
	scaled, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", int(decimals)-len(frac)), 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount: %s", amount)
	}
	return scaled, nil
}

// FormatUnits renders a base-unit amount as a decimal string, trimming
// trailing zeros from the fractional part.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	s := amount.String()
	if decimals == 0 {
		return s
	}
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	split := len(s) - int(decimals)
	whole, frac := s[:split], s[split:]
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// FormatTokenAmount renders a base-unit amount for display, truncated to at
// most four decimal places.
func FormatTokenAmount(amount *big.Int, decimals uint8) string {
	s := FormatUnits(amount, decimals)
	i := strings.IndexByte(s, '.')
	if i < 0 || len(s)-i-1 <= 4 {
		return s
	}
	return strings.TrimRight(strings.TrimRight(s[:i+5], "0"), ".")
}

// FloatString renders a float64 as its shortest exact decimal representation,
// suitable as input to ParseUnits. Intent amounts arrive as JSON numbers.
func FloatString(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
