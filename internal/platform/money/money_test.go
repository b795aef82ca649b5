package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.NewFromInt(240), "₹240.00"},
		{decimal.RequireFromString("49.5"), "₹49.50"},
		{decimal.RequireFromString("1234.5"), "₹1,234.50"},
		{decimal.Zero, "₹0.00"},
	}
	for _, tc := range cases {
		if got := Format(tc.in); got != tc.want {
			t.Fatalf("Format(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCode(t *testing.T) {
	if Code() != "INR" {
		t.Fatalf("expected INR, got %q", Code())
	}
}
