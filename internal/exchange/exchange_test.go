package exchange

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/domain"
)

func date(t *testing.T, s string) civil.Date {
	t.Helper()

	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestConvertAt(t *testing.T) {
	rates := NewFixedRates()
	rates.SetRate("EUR", "USD", date(t, "2024-01-01"), decimal.RequireFromString("1.10"))
	rates.SetRate("EUR", "USD", date(t, "2024-02-01"), decimal.RequireFromString("1.25"))

	tests := []struct {
		name   string
		amount string
		from   string
		to     string
		at     string
		want   string
	}{
		{name: "same currency is identity", amount: "42", from: "USD", to: "USD", at: "2024-01-15", want: "42"},
		{name: "rate on its effective date", amount: "100", from: "EUR", to: "USD", at: "2024-01-01", want: "110"},
		{name: "most recent rate before date", amount: "100", from: "EUR", to: "USD", at: "2024-01-20", want: "110"},
		{name: "newer rate takes over", amount: "100", from: "EUR", to: "USD", at: "2024-03-01", want: "125"},
		{name: "reverse rate is derived", amount: "110", from: "USD", to: "EUR", at: "2024-01-15", want: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rates.ConvertAt(context.Background(), decimal.RequireFromString(tt.amount), tt.from, tt.to, date(t, tt.at))
			if err != nil {
				t.Fatalf("ConvertAt: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ConvertAt = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseFixedRates(t *testing.T) {
	rates, err := ParseFixedRates("EUR/USD=1.10, GBP/USD=1.27")
	if err != nil {
		t.Fatalf("ParseFixedRates: %v", err)
	}

	// Parsed rates apply to arbitrarily old entry dates.
	got, err := rates.ConvertAt(context.Background(), decimal.NewFromInt(100), "EUR", "USD", date(t, "1999-01-01"))
	if err != nil {
		t.Fatalf("ConvertAt: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("110")) {
		t.Errorf("ConvertAt = %s, want 110", got)
	}
	if _, err := rates.ConvertAt(context.Background(), decimal.NewFromInt(1), "GBP", "USD", date(t, "2024-01-01")); err != nil {
		t.Errorf("ConvertAt GBP/USD: %v", err)
	}

	empty, err := ParseFixedRates("")
	if err != nil {
		t.Fatalf("ParseFixedRates empty: %v", err)
	}
	if _, err := empty.ConvertAt(context.Background(), decimal.NewFromInt(1), "EUR", "USD", date(t, "2024-01-01")); err == nil {
		t.Error("expected empty table to reject cross-currency conversion")
	}

	for _, bad := range []string{"EURUSD=1.10", "EUR/USD", "EUR/USD=abc"} {
		if _, err := ParseFixedRates(bad); err == nil {
			t.Errorf("ParseFixedRates(%q): expected error", bad)
		}
	}
}

func TestConvertAtNoRate(t *testing.T) {
	rates := NewFixedRates()
	rates.SetRate("EUR", "USD", date(t, "2024-02-01"), decimal.RequireFromString("1.25"))

	tests := []struct {
		name string
		from string
		to   string
		at   string
	}{
		{name: "unknown pair", from: "GBP", to: "USD", at: "2024-03-01"},
		{name: "date before first rate", from: "EUR", to: "USD", at: "2024-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rates.ConvertAt(context.Background(), decimal.NewFromInt(1), tt.from, tt.to, date(t, tt.at))

			var conversionErr *domain.ConversionError
			if !errors.As(err, &conversionErr) {
				t.Fatalf("expected ConversionError, got %v", err)
			}
			if !errors.Is(err, ErrNoRate) {
				t.Errorf("expected wrapped ErrNoRate, got %v", err)
			}
		})
	}
}
