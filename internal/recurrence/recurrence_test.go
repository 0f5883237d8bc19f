package recurrence

import (
	"testing"

	"cloud.google.com/go/civil"

	"github.com/akozlov/cashfolio/internal/domain"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNext(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		frequency domain.Frequency
		want      string
		wantOK    bool
	}{
		{
			name:      "daily advances one day",
			reference: "2024-03-15",
			frequency: domain.FrequencyDaily,
			want:      "2024-03-16",
			wantOK:    true,
		},
		{
			name:      "daily across month boundary",
			reference: "2024-01-31",
			frequency: domain.FrequencyDaily,
			want:      "2024-02-01",
			wantOK:    true,
		},
		{
			name:      "weekly advances seven days",
			reference: "2024-03-15",
			frequency: domain.FrequencyWeekly,
			want:      "2024-03-22",
			wantOK:    true,
		},
		{
			name:      "monthly keeps day of month",
			reference: "2024-03-15",
			frequency: domain.FrequencyMonthly,
			want:      "2024-04-15",
			wantOK:    true,
		},
		{
			name:      "monthly clamps to leap-year february",
			reference: "2024-01-31",
			frequency: domain.FrequencyMonthly,
			want:      "2024-02-29",
			wantOK:    true,
		},
		{
			name:      "monthly clamps to non-leap february",
			reference: "2023-01-31",
			frequency: domain.FrequencyMonthly,
			want:      "2023-02-28",
			wantOK:    true,
		},
		{
			name:      "monthly clamps 31st to 30-day month",
			reference: "2024-03-31",
			frequency: domain.FrequencyMonthly,
			want:      "2024-04-30",
			wantOK:    true,
		},
		{
			name:      "monthly across year boundary",
			reference: "2023-12-31",
			frequency: domain.FrequencyMonthly,
			want:      "2024-01-31",
			wantOK:    true,
		},
		{
			name:      "quarterly advances three months",
			reference: "2024-01-15",
			frequency: domain.FrequencyQuarterly,
			want:      "2024-04-15",
			wantOK:    true,
		},
		{
			name:      "quarterly clamps nov 30 from aug 31",
			reference: "2024-08-31",
			frequency: domain.FrequencyQuarterly,
			want:      "2024-11-30",
			wantOK:    true,
		},
		{
			name:      "yearly advances one year",
			reference: "2024-06-01",
			frequency: domain.FrequencyYearly,
			want:      "2025-06-01",
			wantOK:    true,
		},
		{
			name:      "yearly clamps leap day",
			reference: "2024-02-29",
			frequency: domain.FrequencyYearly,
			want:      "2025-02-28",
			wantOK:    true,
		},
		{
			name:      "none never recurs",
			reference: "2024-03-15",
			frequency: domain.FrequencyNone,
			wantOK:    false,
		},
		{
			name:      "unknown frequency never recurs",
			reference: "2024-03-15",
			frequency: domain.Frequency("FORTNIGHTLY"),
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(date(tt.reference), tt.frequency)
			if ok != tt.wantOK {
				t.Fatalf("Next(%s, %s) ok = %v, want %v", tt.reference, tt.frequency, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got != date(tt.want) {
				t.Errorf("Next(%s, %s) = %s, want %s", tt.reference, tt.frequency, got, tt.want)
			}
			if !got.After(date(tt.reference)) {
				t.Errorf("Next(%s, %s) = %s is not strictly after its input", tt.reference, tt.frequency, got)
			}
		})
	}
}

func TestNextAlwaysAdvances(t *testing.T) {
	// Walk a monthly schedule across several clamped months and make sure
	// the cursor never stalls. A 31st start exercises every clamp case in
	// sequence: Feb, Apr, Jun, Sep, Nov.
	cur := date("2024-01-31")
	for i := 0; i < 24; i++ {
		next, ok := Next(cur, domain.FrequencyMonthly)
		if !ok {
			t.Fatalf("monthly Next returned no result at %s", cur)
		}
		if !next.After(cur) {
			t.Fatalf("monthly Next did not advance: %s -> %s", cur, next)
		}
		cur = next
	}
}
