package cashflow

import (
	"context"
	"errors"
	"testing"

	"github.com/akozlov/cashfolio/internal/domain"
)

func TestCreateTemplateValidation(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, "USD")

	end := mustDate(t, "2023-12-01")

	tests := []struct {
		name      string
		in        CreateTemplateInput
		wantField string
	}{
		{
			name: "end date before start date",
			in: CreateTemplateInput{
				AccountID: account.ID,
				Amount:    dec("10"),
				Currency:  "USD",
				Direction: domain.Outflow,
				Frequency: domain.FrequencyMonthly,
				StartDate: mustDate(t, "2024-01-01"),
				EndDate:   &end,
			},
			wantField: "endDate",
		},
		{
			name: "unknown frequency",
			in: CreateTemplateInput{
				AccountID: account.ID,
				Amount:    dec("10"),
				Currency:  "USD",
				Direction: domain.Outflow,
				Frequency: domain.Frequency("FORTNIGHTLY"),
				StartDate: mustDate(t, "2024-01-01"),
			},
			wantField: "frequency",
		},
		{
			name: "unknown time zone",
			in: CreateTemplateInput{
				AccountID: account.ID,
				Amount:    dec("10"),
				Currency:  "USD",
				Direction: domain.Outflow,
				Frequency: domain.FrequencyMonthly,
				StartDate: mustDate(t, "2024-01-01"),
				Timezone:  "Mars/Olympus_Mons",
			},
			wantField: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateTemplate(context.Background(), testUser, tt.in)

			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", validationErr.Field, tt.wantField)
			}
		})
	}
}

func TestCreateTemplateDefaultsToUTC(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, "USD")

	template := f.createTemplate(t, account.ID, CreateTemplateInput{
		Frequency: domain.FrequencyMonthly,
		StartDate: mustDate(t, "2024-01-01"),
	})

	if template.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", template.Timezone)
	}
}

func TestUpdateTemplateClearEndDate(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, "USD")

	end := mustDate(t, "2024-06-01")
	template := f.createTemplate(t, account.ID, CreateTemplateInput{
		Frequency: domain.FrequencyMonthly,
		StartDate: mustDate(t, "2024-01-01"),
		EndDate:   &end,
	})

	updated, err := f.svc.UpdateTemplate(context.Background(), template.ID, testUser, UpdateTemplateInput{
		ClearEndDate: true,
	})
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if updated.EndDate != nil {
		t.Errorf("end date = %v, want nil", updated.EndDate)
	}
}

func TestDeleteTemplateKeepsMaterializedEntries(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, "USD")

	template := f.createTemplate(t, account.ID, CreateTemplateInput{
		Frequency: domain.FrequencyMonthly,
		StartDate: mustDate(t, "2024-01-01"),
	})

	if err := f.svc.MaterializeDue(context.Background(), mustTime(t, "2024-02-15T00:00:00Z")); err != nil {
		t.Fatalf("MaterializeDue: %v", err)
	}

	if err := f.svc.DeleteTemplate(context.Background(), template.ID, testUser); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}

	// Entries and their balance effects outlive the schedule that created them.
	if got := len(f.templateEntries(t, template.ID)); got != 2 {
		t.Errorf("entries after template delete = %d, want 2", got)
	}
	if got := f.accountBalance(t, account.ID); !got.Equal(dec("-200")) {
		t.Errorf("balance = %s, want -200", got)
	}
}
