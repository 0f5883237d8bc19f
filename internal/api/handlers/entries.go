// Package handlers exposes the cashflow service over HTTP. Request bodies
// carry amounts as strings to avoid float precision loss and dates as
// ISO 8601 calendar dates.
package handlers

import (
	"encoding/json"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/api/middleware"
	"github.com/akozlov/cashfolio/internal/cashflow"
	"github.com/akozlov/cashfolio/internal/domain"
	"github.com/akozlov/cashfolio/internal/ledger"
)

// EntriesHandler handles cash-flow entry endpoints.
type EntriesHandler struct {
	svc *cashflow.Service
	log zerolog.Logger
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(svc *cashflow.Service, log zerolog.Logger) *EntriesHandler {
	return &EntriesHandler{svc: svc, log: log}
}

type entryRequest struct {
	AccountID   string  `json:"account_id"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Direction   string  `json:"direction"`
	Date        string  `json:"date"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	TemplateID  *string `json:"template_id"`
}

type entryResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Direction   string `json:"direction"`
	Date        string `json:"date"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	TemplateID  string `json:"template_id,omitempty"`
}

func toEntryResponse(e *domain.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		AccountID:   e.AccountID,
		Amount:      e.Amount.String(),
		Currency:    e.Currency,
		Direction:   string(e.Direction),
		Date:        e.Date.String(),
		Category:    e.Category,
		Description: e.Description,
		TemplateID:  e.TemplateID,
	}
}

// Create handles POST /api/entries
func (h *EntriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	date, err := civil.ParseDate(req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	in := cashflow.CreateEntryInput{
		AccountID: req.AccountID,
		Amount:    amount,
		Currency:  req.Currency,
		Direction: domain.Direction(req.Direction),
		Date:      date,
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.TemplateID != nil {
		in.TemplateID = *req.TemplateID
	}

	entry, err := h.svc.CreateEntry(r.Context(), userID, in)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create entry")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, toEntryResponse(entry))
}

// List handles GET /api/entries
func (h *EntriesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	filter := ledger.EntryFilter{UserID: userID}
	q := r.URL.Query()
	if ids := q["account_id"]; len(ids) > 0 {
		filter.AccountIDs = ids
	}
	if categories := q["category"]; len(categories) > 0 {
		filter.Categories = categories
	}
	if templateID := q.Get("template_id"); templateID != "" {
		filter.TemplateID = templateID
	}
	if from := q.Get("date_from"); from != "" {
		d, err := civil.ParseDate(from)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date_from")
			return
		}
		filter.DateFrom = &d
	}
	if to := q.Get("date_to"); to != "" {
		d, err := civil.ParseDate(to)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date_to")
			return
		}
		filter.DateTo = &d
	}

	entries, err := h.svc.ListEntries(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list entries")
		middleware.WriteDomainError(w, err)
		return
	}

	responses := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, toEntryResponse(entry))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": responses,
		"count":   len(responses),
	})
}

// Get handles GET /api/entries/{id}
func (h *EntriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	entry, err := h.svc.GetEntry(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toEntryResponse(entry))
}

// Update handles PUT /api/entries/{id}
func (h *EntriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req struct {
		AccountID   *string `json:"account_id"`
		Amount      *string `json:"amount"`
		Currency    *string `json:"currency"`
		Direction   *string `json:"direction"`
		Date        *string `json:"date"`
		Category    *string `json:"category"`
		Description *string `json:"description"`
		TemplateID  *string `json:"template_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := cashflow.UpdateEntryInput{
		AccountID:   req.AccountID,
		Category:    req.Category,
		Description: req.Description,
		TemplateID:  req.TemplateID,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
			return
		}
		in.Amount = &amount
	}
	if req.Currency != nil {
		in.Currency = req.Currency
	}
	if req.Direction != nil {
		d := domain.Direction(*req.Direction)
		in.Direction = &d
	}
	if req.Date != nil {
		date, err := civil.ParseDate(*req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		in.Date = &date
	}

	entry, err := h.svc.UpdateEntry(r.Context(), chi.URLParam(r, "id"), userID, in)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to update entry")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toEntryResponse(entry))
}

// Delete handles DELETE /api/entries/{id}
func (h *EntriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.svc.DeleteEntry(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}
