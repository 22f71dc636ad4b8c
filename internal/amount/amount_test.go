package amount

import (
	"math/big"
	"testing"
)

func TestNormalizeDecimalInput(t *testing.T) {
	cases := []struct {
		name     string
		decimal  string
		decimals int
		want     string
	}{
		{name: "whole", decimal: "5", decimals: 18, want: "5000000000000000000"},
		{name: "fraction", decimal: "1.5", decimals: 18, want: "1500000000000000000"},
		{name: "zero", decimal: "0", decimals: 18, want: "0"},
		{name: "small", decimal: "0.000000000000000001", decimals: 18, want: "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize("", tc.decimal, tc.decimals)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if got.String() != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestNormalizeRejectsBoth(t *testing.T) {
	if _, err := Normalize("1", "1", 18); err == nil {
		t.Fatal("expected error for both amount forms")
	}
}

func TestNormalizeRejectsExcessPrecision(t *testing.T) {
	if _, err := Normalize("", "1.123", 2); err == nil {
		t.Fatal("expected error for excess precision")
	}
}

func TestFormatDecimalTrimsZeros(t *testing.T) {
	n, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := FormatDecimal(n, 18); got != "1.5" {
		t.Fatalf("got %s", got)
	}
	if got := FormatDecimal(big.NewInt(42), 0); got != "42" {
		t.Fatalf("got %s", got)
	}
	if got := FormatDecimal(big.NewInt(1), 18); got != "0.000000000000000001" {
		t.Fatalf("got %s", got)
	}
}
