// Package inmemory is a map-backed ledger store. It is safe for concurrent
// use and upholds the same contracts as the postgres store, including the
// (template, occurrence date) uniqueness rejection. Data is lost on restart;
// it serves tests and single-instance development mode.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/domain"
	"github.com/akozlov/cashfolio/internal/ledger"
)

// Store implements ledger.Store in memory.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]*domain.Entry
	templates map[string]*domain.Template
	accounts  map[string]*domain.Account
	balances  map[string]map[civil.Date]*domain.BalanceRecord

	// occurrences indexes materialized entries by template id and date so
	// the uniqueness check does not scan the whole ledger.
	occurrences map[string]map[civil.Date]string // template id -> date -> entry id
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		entries:     make(map[string]*domain.Entry),
		templates:   make(map[string]*domain.Template),
		accounts:    make(map[string]*domain.Account),
		balances:    make(map[string]map[civil.Date]*domain.BalanceRecord),
		occurrences: make(map[string]map[civil.Date]string),
	}
}

// --- entries ---

func (s *Store) CreateEntry(ctx context.Context, entry *domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if entry.TemplateID != "" {
		dates, ok := s.occurrences[entry.TemplateID]
		if !ok {
			dates = make(map[civil.Date]string)
			s.occurrences[entry.TemplateID] = dates
		}
		if _, exists := dates[entry.Date]; exists {
			return domain.ErrDuplicateOccurrence
		}
		dates[entry.Date] = entry.ID
	}

	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id, userID string) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok || entry.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (s *Store) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Entry
	for _, entry := range s.entries {
		if !matchesEntry(entry, filter) {
			continue
		}
		cp := *entry
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func matchesEntry(entry *domain.Entry, filter ledger.EntryFilter) bool {
	if filter.UserID != "" && entry.UserID != filter.UserID {
		return false
	}
	if filter.TemplateID != "" && entry.TemplateID != filter.TemplateID {
		return false
	}
	if len(filter.AccountIDs) > 0 && !contains(filter.AccountIDs, entry.AccountID) {
		return false
	}
	if len(filter.Categories) > 0 && !contains(filter.Categories, entry.Category) {
		return false
	}
	if len(filter.Directions) > 0 {
		found := false
		for _, d := range filter.Directions {
			if entry.Direction == d {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.DateFrom != nil && entry.Date.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && entry.Date.After(*filter.DateTo) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func (s *Store) OccurrenceExists(ctx context.Context, templateID string, date civil.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates, ok := s.occurrences[templateID]
	if !ok {
		return false, nil
	}
	_, exists := dates[date]
	return exists, nil
}

func (s *Store) UpdateEntry(ctx context.Context, entry *domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[entry.ID]
	if !ok {
		return domain.ErrNotFound
	}

	// Keep the occurrence index consistent when the template link or the
	// date moved. The collision check runs before the old slot is released,
	// so a rejected update leaves the index untouched.
	if existing.TemplateID != entry.TemplateID || existing.Date != entry.Date {
		if entry.TemplateID != "" {
			if id, exists := s.occurrences[entry.TemplateID][entry.Date]; exists && id != entry.ID {
				return domain.ErrDuplicateOccurrence
			}
		}
		if existing.TemplateID != "" {
			delete(s.occurrences[existing.TemplateID], existing.Date)
		}
		if entry.TemplateID != "" {
			dates, ok := s.occurrences[entry.TemplateID]
			if !ok {
				dates = make(map[civil.Date]string)
				s.occurrences[entry.TemplateID] = dates
			}
			dates[entry.Date] = entry.ID
		}
	}

	entry.UpdatedAt = time.Now()
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || entry.UserID != userID {
		return domain.ErrNotFound
	}
	if entry.TemplateID != "" {
		delete(s.occurrences[entry.TemplateID], entry.Date)
	}
	delete(s.entries, id)
	return nil
}

// --- templates ---

func (s *Store) CreateTemplate(ctx context.Context, template *domain.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if template.ID == "" {
		template.ID = uuid.New().String()
	}
	if template.CreatedAt.IsZero() {
		template.CreatedAt = time.Now()
	}
	cp := copyTemplate(template)
	s.templates[template.ID] = cp
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, id, userID string) (*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	template, ok := s.templates[id]
	if !ok || template.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return copyTemplate(template), nil
}

func (s *Store) ListTemplates(ctx context.Context, filter ledger.TemplateFilter) ([]*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Template
	for _, template := range s.templates {
		if filter.UserID != "" && template.UserID != filter.UserID {
			continue
		}
		if len(filter.AccountIDs) > 0 && !contains(filter.AccountIDs, template.AccountID) {
			continue
		}
		result = append(result, copyTemplate(template))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartDate != result[j].StartDate {
			return result[i].StartDate.Before(result[j].StartDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) ListCandidateTemplates(ctx context.Context, asOf civil.Date) ([]*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Over-approximate the window by a day in each direction; a template's
	// own time zone can shift its local date relative to asOf. The
	// materializer applies the exact bounds.
	lower := asOf.AddDays(-1)
	upper := asOf.AddDays(1)

	var result []*domain.Template
	for _, template := range s.templates {
		if template.StartDate.After(upper) {
			continue
		}
		if template.EndDate != nil && template.EndDate.Before(lower) {
			continue
		}
		result = append(result, copyTemplate(template))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, template *domain.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[template.ID]; !ok {
		return domain.ErrNotFound
	}
	template.UpdatedAt = time.Now()
	s.templates[template.ID] = copyTemplate(template)
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, ok := s.templates[id]
	if !ok || template.UserID != userID {
		return domain.ErrNotFound
	}
	// Materialized entries survive template deletion; only the schedule and
	// its occurrence index go away.
	delete(s.templates, id)
	delete(s.occurrences, id)
	return nil
}

func (s *Store) SetWatermark(ctx context.Context, templateID string, date civil.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, ok := s.templates[templateID]
	if !ok {
		return domain.ErrNotFound
	}
	if template.LastMaterializedAt != nil && !date.After(*template.LastMaterializedAt) {
		return nil
	}
	d := date
	template.LastMaterializedAt = &d
	template.UpdatedAt = time.Now()
	return nil
}

// --- accounts ---

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id, userID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok || account.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string, withExcluded bool) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Account
	for _, account := range s.accounts {
		if account.UserID != userID {
			continue
		}
		if !withExcluded && account.IsExcluded {
			continue
		}
		cp := *account
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) UpdateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok || existing.UserID != account.UserID {
		return domain.ErrNotFound
	}
	account.UpdatedAt = time.Now()
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || account.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.accounts, id)
	delete(s.balances, id)
	return nil
}

// --- balances ---

func (s *Store) ApplyBalanceDelta(ctx context.Context, accountID, userID string, date civil.Date, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok || account.UserID != userID {
		return decimal.Decimal{}, domain.ErrNotFound
	}

	account.Balance = account.Balance.Add(delta)
	account.UpdatedAt = time.Now()

	history, ok := s.balances[accountID]
	if !ok {
		history = make(map[civil.Date]*domain.BalanceRecord)
		s.balances[accountID] = history
	}
	if record, exists := history[date]; exists {
		record.Value = record.Value.Add(delta)
		record.UpdatedAt = time.Now()
	} else {
		history[date] = &domain.BalanceRecord{
			AccountID: accountID,
			UserID:    userID,
			Date:      date,
			Value:     account.Balance,
			UpdatedAt: time.Now(),
		}
	}

	return account.Balance, nil
}

func (s *Store) BalanceHistory(ctx context.Context, accountID, userID string) ([]*domain.BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok || account.UserID != userID {
		return nil, domain.ErrNotFound
	}

	var result []*domain.BalanceRecord
	for _, record := range s.balances[accountID] {
		cp := *record
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func copyTemplate(t *domain.Template) *domain.Template {
	cp := *t
	if t.EndDate != nil {
		d := *t.EndDate
		cp.EndDate = &d
	}
	if t.LastMaterializedAt != nil {
		d := *t.LastMaterializedAt
		cp.LastMaterializedAt = &d
	}
	return &cp
}

// Ensure Store implements the full ledger surface.
var _ ledger.Store = (*Store)(nil)
