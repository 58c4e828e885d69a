package payment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Currencies whose minor unit is not 1/100.
var minorUnitExceptions = map[string]int{
	"BHD": 3,
	"IQD": 3,
	"JOD": 3,
	"KWD": 3,
	"LYD": 3,
	"OMR": 3,
	"TND": 3,
	"JPY": 0,
	"KRW": 0,
	"CLP": 0,
	"VND": 0,
}

// MinorUnits returns the number of decimal places used by currency.
func MinorUnits(currency string) int {
	if n, ok := minorUnitExceptions[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return n
	}
	return 2
}

// FormatAmount renders an amount in minor units as a major-unit decimal string ("50.00").
func FormatAmount(amount int64, currency string) string {
	exp := MinorUnits(currency)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if exp == 0 {
		return sign + strconv.FormatInt(amount, 10)
	}
	scale := int64(math.Pow10(exp))
	return fmt.Sprintf("%s%d.%0*d", sign, amount/scale, exp, amount%scale)
}

// ParseAmount converts a major-unit decimal string into minor units of currency.
func ParseAmount(value, currency string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("payment: empty amount")
	}
	negative := strings.HasPrefix(value, "-")
	value = strings.TrimPrefix(value, "-")

	exp := MinorUnits(currency)
	whole, frac, _ := strings.Cut(value, ".")
	if !isDigits(whole) || !isDigits(frac) || whole+frac == "" {
		return 0, fmt.Errorf("payment: invalid amount %q", value)
	}
	if len(frac) > exp {
		if strings.Trim(frac[exp:], "0") != "" {
			return 0, fmt.Errorf("payment: amount %q has more than %d decimals", value, exp)
		}
		frac = frac[:exp]
	}
	frac += strings.Repeat("0", exp-len(frac))

	if whole == "" {
		whole = "0"
	}
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("payment: invalid amount %q: %w", value, err)
	}
	if negative {
		n = -n
	}
	return n, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ToMajor converts minor units to a float in major units, for SDKs that take floats.
func ToMajor(amount int64, currency string) float64 {
	return float64(amount) / math.Pow10(MinorUnits(currency))
}

// FromMajor converts a float in major units to minor units, rounding half away from zero.
func FromMajor(amount float64, currency string) int64 {
	return int64(math.Round(amount * math.Pow10(MinorUnits(currency))))
}

// ParseCurrencies splits a comma separated list of currency codes ("usd, SAR").
func ParseCurrencies(value string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
