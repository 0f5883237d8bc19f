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

// TemplatesHandler handles recurrence template endpoints.
type TemplatesHandler struct {
	svc *cashflow.Service
	log zerolog.Logger
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(svc *cashflow.Service, log zerolog.Logger) *TemplatesHandler {
	return &TemplatesHandler{svc: svc, log: log}
}

type templateResponse struct {
	ID                 string `json:"id"`
	AccountID          string `json:"account_id"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	Direction          string `json:"direction"`
	Frequency          string `json:"frequency"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date,omitempty"`
	Timezone           string `json:"timezone"`
	Category           string `json:"category,omitempty"`
	Description        string `json:"description,omitempty"`
	LastMaterializedAt string `json:"last_materialized_at,omitempty"`
}

func toTemplateResponse(t *domain.Template) templateResponse {
	resp := templateResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Amount:      t.Amount.String(),
		Currency:    t.Currency,
		Direction:   string(t.Direction),
		Frequency:   string(t.Frequency),
		StartDate:   t.StartDate.String(),
		Timezone:    t.Timezone,
		Category:    t.Category,
		Description: t.Description,
	}
	if t.EndDate != nil {
		resp.EndDate = t.EndDate.String()
	}
	if t.LastMaterializedAt != nil {
		resp.LastMaterializedAt = t.LastMaterializedAt.String()
	}
	return resp
}

// Create handles POST /api/templates
func (h *TemplatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req struct {
		AccountID   string  `json:"account_id"`
		Amount      string  `json:"amount"`
		Currency    string  `json:"currency"`
		Direction   string  `json:"direction"`
		Frequency   string  `json:"frequency"`
		StartDate   string  `json:"start_date"`
		EndDate     *string `json:"end_date"`
		Timezone    *string `json:"timezone"`
		Category    *string `json:"category"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	startDate, err := civil.ParseDate(req.StartDate)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD")
		return
	}

	in := cashflow.CreateTemplateInput{
		AccountID: req.AccountID,
		Amount:    amount,
		Currency:  req.Currency,
		Direction: domain.Direction(req.Direction),
		Frequency: domain.Frequency(req.Frequency),
		StartDate: startDate,
	}
	if req.EndDate != nil {
		endDate, err := civil.ParseDate(*req.EndDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD")
			return
		}
		in.EndDate = &endDate
	}
	if req.Timezone != nil {
		in.Timezone = *req.Timezone
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if req.Description != nil {
		in.Description = *req.Description
	}

	template, err := h.svc.CreateTemplate(r.Context(), userID, in)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create template")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toTemplateResponse(template))
}

// List handles GET /api/templates
func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	templates, err := h.svc.ListTemplates(r.Context(), ledger.TemplateFilter{
		UserID:     userID,
		AccountIDs: r.URL.Query()["account_id"],
	})
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	responses := make([]templateResponse, 0, len(templates))
	for _, template := range templates {
		responses = append(responses, toTemplateResponse(template))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"templates": responses,
		"count":     len(responses),
	})
}

// Get handles GET /api/templates/{id}
func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	template, err := h.svc.GetTemplate(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toTemplateResponse(template))
}

// Update handles PUT /api/templates/{id}
func (h *TemplatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req struct {
		AccountID   *string `json:"account_id"`
		Amount      *string `json:"amount"`
		Currency    *string `json:"currency"`
		Direction   *string `json:"direction"`
		Frequency   *string `json:"frequency"`
		StartDate   *string `json:"start_date"`
		EndDate     *string `json:"end_date"` // empty string clears the end date
		Timezone    *string `json:"timezone"`
		Category    *string `json:"category"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := cashflow.UpdateTemplateInput{
		AccountID:   req.AccountID,
		Timezone:    req.Timezone,
		Category:    req.Category,
		Description: req.Description,
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
	if req.Frequency != nil {
		f := domain.Frequency(*req.Frequency)
		in.Frequency = &f
	}
	if req.StartDate != nil {
		startDate, err := civil.ParseDate(*req.StartDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD")
			return
		}
		in.StartDate = &startDate
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			in.ClearEndDate = true
		} else {
			endDate, err := civil.ParseDate(*req.EndDate)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD")
				return
			}
			in.EndDate = &endDate
		}
	}

	template, err := h.svc.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), userID, in)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to update template")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toTemplateResponse(template))
}

// Delete handles DELETE /api/templates/{id}
func (h *TemplatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.svc.DeleteTemplate(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}
