package cashflow

import (
	"context"
	"sync"
	"testing"

	"github.com/akozlov/cashfolio/internal/domain"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	var km keyedMutex

	const workers = 8
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("t1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestKeyedMutexForgetEvicts(t *testing.T) {
	var km keyedMutex

	km.lock("t1")()
	km.lock("t2")()
	if got := len(km.locks); got != 2 {
		t.Fatalf("locks = %d, want 2", got)
	}

	km.forget("t1")
	if got := len(km.locks); got != 1 {
		t.Errorf("locks after forget = %d, want 1", got)
	}
	if _, ok := km.locks["t2"]; !ok {
		t.Error("forget removed the wrong key")
	}

	// A forgotten key can be locked again.
	km.lock("t1")()
}

func TestDeleteTemplateReleasesLock(t *testing.T) {
	f := newFixture(t)
	account := f.createAccount(t, "USD")

	template := f.createTemplate(t, account.ID, CreateTemplateInput{
		Frequency: domain.FrequencyMonthly,
		StartDate: mustDate(t, "2024-01-01"),
	})
	if err := f.svc.MaterializeDue(context.Background(), mustTime(t, "2024-01-15T00:00:00Z")); err != nil {
		t.Fatalf("MaterializeDue: %v", err)
	}

	if err := f.svc.DeleteTemplate(context.Background(), template.ID, testUser); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}

	f.svc.locks.mu.Lock()
	_, held := f.svc.locks.locks[template.ID]
	f.svc.locks.mu.Unlock()
	if held {
		t.Error("template mutex still tracked after delete")
	}
}
