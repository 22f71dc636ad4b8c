package amount

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Normalize resolves the --amount / --amount-decimal pair into base units.
// Exactly one of the two must be set.
func Normalize(baseUnits, decimal string, decimals int) (*big.Int, error) {
	if baseUnits != "" && decimal != "" {
		return nil, clierr.New(clierr.CodeUsage, "use either --amount or --amount-decimal, not both")
	}
	if baseUnits == "" && decimal == "" {
		return nil, clierr.New(clierr.CodeUsage, "amount is required")
	}
	if decimals < 0 {
		return nil, clierr.New(clierr.CodeUsage, "decimals must be >= 0")
	}

	if baseUnits != "" {
		n, ok := new(big.Int).SetString(baseUnits, 10)
		if !ok || n.Sign() < 0 {
			return nil, clierr.New(clierr.CodeUsage, "--amount must be a non-negative integer string")
		}
		return n, nil
	}

	if !decimalPattern.MatchString(decimal) {
		return nil, clierr.New(clierr.CodeUsage, "--amount-decimal must be in decimal form like 1.23")
	}
	return decimalToBaseUnits(decimal, decimals)
}

// FormatDecimal renders base units as a trimmed decimal string.
func FormatDecimal(baseUnits *big.Int, decimals int) string {
	if baseUnits == nil {
		return "0"
	}
	s := baseUnits.String()
	if decimals == 0 {
		return s
	}
	if len(s) <= decimals {
		pad := strings.Repeat("0", decimals-len(s)+1)
		s = pad + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// Info bundles both renderings of an amount for envelope output.
func Info(baseUnits *big.Int, decimals int) model.AmountInfo {
	if baseUnits == nil {
		baseUnits = new(big.Int)
	}
	return model.AmountInfo{
		AmountBaseUnits: baseUnits.String(),
		AmountDecimal:   FormatDecimal(baseUnits, decimals),
		Decimals:        decimals,
	}
}

func decimalToBaseUnits(decimal string, decimals int) (*big.Int, error) {
	parts := strings.SplitN(decimal, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}

	combined := intPart + fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined = strings.TrimLeft(combined, "0")
	if combined == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, "invalid decimal amount")
	}
	return n, nil
}
