package cashflow

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/akozlov/cashfolio/internal/domain"
)

func TestGetCashDetailsConvertsIntoBase(t *testing.T) {
	f := newFixture(t)

	usd := f.createAccount(t, "USD")
	eur, err := f.svc.CreateAccount(context.Background(), testUser, CreateAccountInput{
		Name:     "Euro account",
		Currency: "EUR",
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	f.rates.SetRate("EUR", "USD", mustDate(t, "2020-01-01"), dec("1.10"))

	if _, err := f.svc.CreateEntry(context.Background(), testUser, CreateEntryInput{
		AccountID: usd.ID,
		Amount:    dec("100"),
		Currency:  "USD",
		Direction: domain.Inflow,
		Date:      mustDate(t, "2024-01-10"),
	}); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if _, err := f.svc.CreateEntry(context.Background(), testUser, CreateEntryInput{
		AccountID: eur.ID,
		Amount:    dec("200"),
		Currency:  "EUR",
		Direction: domain.Outflow,
		Date:      mustDate(t, "2024-01-20"),
	}); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	details, err := f.svc.GetCashDetails(context.Background(), testUser, "USD", CashDetailsOptions{})
	if err != nil {
		t.Fatalf("GetCashDetails: %v", err)
	}

	// USD balance 100, EUR balance -200 at 1.10 = -220.
	if !details.TotalInBase.Equal(dec("-120")) {
		t.Errorf("total = %s, want -120", details.TotalInBase)
	}
	if len(details.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(details.Entries))
	}
	if got := details.Entries[1].SignedAmountInBase; !got.Equal(dec("-220")) {
		t.Errorf("EUR entry in base = %s, want -220", got)
	}
	if details.BaseCurrency != "USD" {
		t.Errorf("base currency = %q, want USD", details.BaseCurrency)
	}
}

func TestGetCashDetailsExcludedAccounts(t *testing.T) {
	f := newFixture(t)

	visible := f.createAccount(t, "USD")
	if _, err := f.svc.CreateAccount(context.Background(), testUser, CreateAccountInput{
		Name:           "Hidden",
		Currency:       "USD",
		InitialBalance: dec("500"),
		IsExcluded:     true,
	}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	details, err := f.svc.GetCashDetails(context.Background(), testUser, "USD", CashDetailsOptions{})
	if err != nil {
		t.Fatalf("GetCashDetails: %v", err)
	}
	if len(details.Accounts) != 1 || details.Accounts[0].ID != visible.ID {
		t.Fatalf("expected only the visible account")
	}
	if !details.TotalInBase.IsZero() {
		t.Errorf("total = %s, want 0", details.TotalInBase)
	}

	withExcluded, err := f.svc.GetCashDetails(context.Background(), testUser, "USD", CashDetailsOptions{
		WithExcludedAccounts: true,
	})
	if err != nil {
		t.Fatalf("GetCashDetails: %v", err)
	}
	if len(withExcluded.Accounts) != 2 {
		t.Errorf("accounts = %d, want 2", len(withExcluded.Accounts))
	}
	if !withExcluded.TotalInBase.Equal(dec("500")) {
		t.Errorf("total = %s, want 500", withExcluded.TotalInBase)
	}
}

func TestCreateAccountRecordsInitialBalanceHistory(t *testing.T) {
	f := newFixture(t)

	account, err := f.svc.CreateAccount(context.Background(), testUser, CreateAccountInput{
		Name:           "Seeded",
		Currency:       "USD",
		InitialBalance: dec("250"),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if !account.Balance.Equal(dec("250")) {
		t.Errorf("balance = %s, want 250", account.Balance)
	}

	history, err := f.store.BalanceHistory(context.Background(), account.ID, testUser)
	if err != nil {
		t.Fatalf("BalanceHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history records = %d, want 1", len(history))
	}
	if !history[0].Value.Equal(dec("250")) {
		t.Errorf("history value = %s, want 250", history[0].Value)
	}
	if today := civil.DateOf(time.Now().UTC()); history[0].Date != today {
		t.Errorf("history date = %s, want %s", history[0].Date, today)
	}
}
