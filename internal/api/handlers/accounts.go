package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/api/middleware"
	"github.com/akozlov/cashfolio/internal/cashflow"
	"github.com/akozlov/cashfolio/internal/domain"
)

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	svc *cashflow.Service
	log zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(svc *cashflow.Service, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{svc: svc, log: log}
}

type accountResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Currency   string `json:"currency"`
	Balance    string `json:"balance"`
	IsExcluded bool   `json:"is_excluded"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		Name:       a.Name,
		Currency:   a.Currency,
		Balance:    a.Balance.String(),
		IsExcluded: a.IsExcluded,
	}
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req struct {
		Name           string  `json:"name"`
		Currency       string  `json:"currency"`
		InitialBalance *string `json:"initial_balance"`
		IsExcluded     bool    `json:"is_excluded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := cashflow.CreateAccountInput{
		Name:       req.Name,
		Currency:   req.Currency,
		IsExcluded: req.IsExcluded,
	}
	if req.InitialBalance != nil {
		balance, err := decimal.NewFromString(*req.InitialBalance)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid initial_balance")
			return
		}
		in.InitialBalance = balance
	}

	account, err := h.svc.CreateAccount(r.Context(), userID, in)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create account")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toAccountResponse(account))
}

// List handles GET /api/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	withExcluded := r.URL.Query().Get("with_excluded") == "true"

	accounts, err := h.svc.ListAccounts(r.Context(), userID, withExcluded)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	responses := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, toAccountResponse(account))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": responses,
		"count":    len(responses),
	})
}

// Get handles GET /api/accounts/{id}
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	account, err := h.svc.GetAccount(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

// Update handles PUT /api/accounts/{id}
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req struct {
		Name       *string `json:"name"`
		IsExcluded *bool   `json:"is_excluded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.svc.UpdateAccount(r.Context(), chi.URLParam(r, "id"), userID, cashflow.UpdateAccountInput{
		Name:       req.Name,
		IsExcluded: req.IsExcluded,
	})
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

// Delete handles DELETE /api/accounts/{id}
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.svc.DeleteAccount(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}

// CashDetails handles GET /api/accounts/cash-details?currency=USD
func (h *AccountsHandler) CashDetails(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	baseCurrency := r.URL.Query().Get("currency")
	if baseCurrency == "" {
		baseCurrency = "USD"
	}

	details, err := h.svc.GetCashDetails(r.Context(), userID, baseCurrency, cashflow.CashDetailsOptions{
		AccountIDs:           r.URL.Query()["account_id"],
		Categories:           r.URL.Query()["category"],
		WithExcludedAccounts: r.URL.Query().Get("with_excluded") == "true",
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build cash details")
		middleware.WriteDomainError(w, err)
		return
	}

	accounts := make([]accountResponse, 0, len(details.Accounts))
	for _, account := range details.Accounts {
		accounts = append(accounts, toAccountResponse(account))
	}
	entries := make([]map[string]interface{}, 0, len(details.Entries))
	for _, entry := range details.Entries {
		entries = append(entries, map[string]interface{}{
			"entry":                 toEntryResponse(entry.Entry),
			"amount_in_base":        entry.AmountInBase.String(),
			"signed_amount_in_base": entry.SignedAmountInBase.String(),
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"base_currency": details.BaseCurrency,
		"total_in_base": details.TotalInBase.String(),
		"accounts":      accounts,
		"entries":       entries,
	})
}
