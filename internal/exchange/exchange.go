// Package exchange is the historical currency-conversion contract the
// balance synchronizer depends on. The rate data source itself is external;
// this package defines the port and ships a fixed-table implementation for
// single-instance mode and tests.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/domain"
)

// ErrNoRate means no rate is known for the currency pair at or before the
// requested date.
var ErrNoRate = errors.New("no exchange rate available")

// RateService converts an amount between currencies at the rate effective on
// a historical date.
type RateService interface {
	// ConvertAt converts amount from one currency to another using the rate
	// effective at date. Converting a currency to itself is the identity and
	// never fails. A failed lookup returns a *domain.ConversionError.
	ConvertAt(ctx context.Context, amount decimal.Decimal, from, to string, date civil.Date) (decimal.Decimal, error)
}

type datedRate struct {
	date civil.Date
	rate decimal.Decimal
}

// FixedRates is a RateService backed by an in-memory rate table. Each
// currency pair holds dated rates; a conversion uses the most recent rate at
// or before the requested date. Reverse rates are derived when only one
// direction was set.
type FixedRates struct {
	mu    sync.RWMutex
	rates map[string][]datedRate // "EUR/USD" -> rates sorted by date ascending
}

// NewFixedRates creates an empty rate table.
func NewFixedRates() *FixedRates {
	return &FixedRates{rates: make(map[string][]datedRate)}
}

// ParseFixedRates builds a rate table from a comma-separated spec like
// "EUR/USD=1.10,GBP/USD=1.27". Parsed rates are effective from the beginning
// of time, so they apply to every historical entry date.
func ParseFixedRates(spec string) (*FixedRates, error) {
	f := NewFixedRates()
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("rate %q: want FROM/TO=rate", pair)
		}
		from, to, ok := strings.Cut(strings.TrimSpace(name), "/")
		if !ok {
			return nil, fmt.Errorf("rate %q: want FROM/TO=rate", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("rate %q: %w", pair, err)
		}
		f.SetRate(strings.TrimSpace(from), strings.TrimSpace(to), civil.Date{}, rate)
	}
	return f, nil
}

// SetRate records the rate from one currency to another effective at date.
func (f *FixedRates) SetRate(from, to string, date civil.Date, rate decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := from + "/" + to
	f.rates[key] = append(f.rates[key], datedRate{date: date, rate: rate})
	sort.Slice(f.rates[key], func(i, j int) bool {
		return f.rates[key][i].date.Before(f.rates[key][j].date)
	})
}

// ConvertAt implements RateService.
func (f *FixedRates) ConvertAt(ctx context.Context, amount decimal.Decimal, from, to string, date civil.Date) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if rate, ok := f.lookup(from+"/"+to, date); ok {
		return amount.Mul(rate), nil
	}
	if rate, ok := f.lookup(to+"/"+from, date); ok && !rate.IsZero() {
		return amount.Div(rate), nil
	}

	return decimal.Decimal{}, &domain.ConversionError{From: from, To: to, Date: date, Err: ErrNoRate}
}

// lookup returns the most recent rate for key at or before date.
func (f *FixedRates) lookup(key string, date civil.Date) (decimal.Decimal, bool) {
	rates := f.rates[key]
	for i := len(rates) - 1; i >= 0; i-- {
		if !rates[i].date.After(date) {
			return rates[i].rate, true
		}
	}
	return decimal.Decimal{}, false
}

var _ RateService = (*FixedRates)(nil)
