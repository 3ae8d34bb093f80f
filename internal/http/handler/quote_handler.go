package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/render"
	"github.com/byggkalk/quotation-api/internal/service"
)

type QuoteHandler struct {
	quoteService    *service.QuoteService
	workflowService *service.WorkflowService
	renderer        render.Renderer
	logger          *zap.Logger
}

func NewQuoteHandler(quoteService *service.QuoteService, workflowService *service.WorkflowService, renderer render.Renderer, logger *zap.Logger) *QuoteHandler {
	return &QuoteHandler{
		quoteService:    quoteService,
		workflowService: workflowService,
		renderer:        renderer,
		logger:          logger,
	}
}

// Create godoc
// @Summary Create quote
// @Description Creates a draft quote. Line totals and quote totals are computed server-side from the submitted quantities, unit prices, tax rate and discount.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body domain.CreateQuoteRequest true "Quote data"
// @Success 201 {object} domain.QuoteDTO
// @Failure 400 {object} domain.ErrorResponse "Invalid request body"
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Failure 422 {object} domain.ErrorResponse "Negative quantity, price, tax rate or discount"
// @Router /quotes [post]
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	quote, err := h.quoteService.CreateQuote(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create quote", zap.Error(err))
		handleServiceError(w, err, "Failed to create quote")
		return
	}

	w.Header().Set("Location", "/quotes/"+quote.ID.String())
	respondJSON(w, http.StatusCreated, quote)
}

// GenerateFromElements godoc
// @Summary Generate a quote from selected project elements
// @Description Builds a draft quote from the selected elements. Descriptions are synthesized from type, materials and dimensions; unit prices come from element estimates; non-numeric quantities fall back to one.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body domain.GenerateQuoteRequest true "Element selection and quote parameters"
// @Success 201 {object} domain.QuoteDTO
// @Failure 400 {object} domain.ErrorResponse "Element outside the project or invalid request"
// @Failure 404 {object} domain.ErrorResponse "Project or element not found"
// @Failure 422 {object} domain.ErrorResponse "Negative tax rate or discount"
// @Router /projects/{id}/quotes/generate [post]
func (h *QuoteHandler) GenerateFromElements(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID: must be a valid UUID")
		return
	}

	var req domain.GenerateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	quote, err := h.workflowService.GenerateQuoteFromElements(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to generate quote", zap.Error(err), zap.String("project_id", id.String()))
		handleServiceError(w, err, "Failed to generate quote")
		return
	}

	w.Header().Set("Location", "/quotes/"+quote.ID.String())
	respondJSON(w, http.StatusCreated, quote)
}

// List godoc
// @Summary List quotes
// @Tags Quotes
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param pageSize query int false "Page size (default 20, max 100)"
// @Param projectId query string false "Filter by project"
// @Param status query string false "Filter by status" Enums(draft, sent, accepted, declined)
// @Success 200 {object} map[string]interface{} "Paginated quote list"
// @Router /quotes [get]
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var projectID *uuid.UUID
	if pid := r.URL.Query().Get("projectId"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid projectId: must be a valid UUID")
			return
		}
		projectID = &id
	}

	var status *domain.QuoteStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.QuoteStatus(s)
		if !st.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		status = &st
	}

	quotes, total, err := h.quoteService.ListQuotes(r.Context(), page, pageSize, projectID, status)
	if err != nil {
		h.logger.Error("failed to list quotes", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list quotes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":     quotes,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// GetByID godoc
// @Summary Get quote
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Router /quotes/{id} [get]
func (h *QuoteHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	quote, err := h.quoteService.GetQuote(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get quote", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to get quote")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// Update godoc
// @Summary Update quote
// @Description Patches quote fields. Tax rate and discount can only change while the quote is in draft; other quotes respond with 409.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.UpdateQuoteRequest true "Fields to update"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Failure 409 {object} domain.ErrorResponse "Quote has advanced past draft"
// @Failure 422 {object} domain.ErrorResponse "Negative tax rate or discount"
// @Router /quotes/{id} [put]
func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	var req domain.UpdateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	quote, err := h.quoteService.UpdateQuote(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update quote", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to update quote")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// Delete godoc
// @Summary Delete a draft quote
// @Description Only draft quotes can be deleted. Sent and decided quotes respond with 409.
// @Tags Quotes
// @Param id path string true "Quote ID"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Failure 409 {object} domain.ErrorResponse "Quote has advanced past draft"
// @Router /quotes/{id} [delete]
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	if err := h.quoteService.DeleteQuote(r.Context(), id); err != nil {
		h.logger.Error("failed to delete quote", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to delete quote")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// UpdateItems godoc
// @Summary Replace quote items
// @Description Replaces the full line item list of a draft quote and recomputes totals.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.UpdateQuoteItemsRequest true "New line items"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Failure 409 {object} domain.ErrorResponse "Quote has advanced past draft"
// @Failure 422 {object} domain.ErrorResponse "Negative quantity or price"
// @Router /quotes/{id}/items [put]
func (h *QuoteHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	var req domain.UpdateQuoteItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	quote, err := h.quoteService.UpdateItems(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update quote items", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to update quote items")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// AddItems godoc
// @Summary Append quote items
// @Description Appends line items to a draft quote and recomputes totals.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.UpdateQuoteItemsRequest true "Items to append"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Failure 409 {object} domain.ErrorResponse "Quote has advanced past draft"
// @Failure 422 {object} domain.ErrorResponse "Negative quantity or price"
// @Router /quotes/{id}/items [post]
func (h *QuoteHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	var req domain.UpdateQuoteItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	quote, err := h.quoteService.AddItems(r.Context(), id, req.Items)
	if err != nil {
		h.logger.Error("failed to add quote items", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to add quote items")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// RemoveItem godoc
// @Summary Remove a quote item
// @Description Removes one line item from a draft quote, repositions the remaining items and recomputes totals.
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Param itemId path string true "Quote item ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse "Quote or item not found"
// @Failure 409 {object} domain.ErrorResponse "Quote has advanced past draft"
// @Router /quotes/{id}/items/{itemId} [delete]
func (h *QuoteHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID: must be a valid UUID")
		return
	}

	quote, err := h.quoteService.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		h.logger.Error("failed to remove quote item", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to remove quote item")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// Send godoc
// @Summary Send quote to client
// @Description Transitions a draft quote to sent, stamps the sent time and defaults the expiry to thirty days out when none was set.
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Failure 409 {object} domain.ErrorResponse "Quote not in draft status"
// @Router /quotes/{id}/send [post]
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	quote, err := h.quoteService.SendQuote(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to send quote", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to send quote")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// Accept godoc
// @Summary Accept quote
// @Description Transitions a sent quote to accepted and stamps the decision time.
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Failure 409 {object} domain.ErrorResponse "Quote not in sent status"
// @Router /quotes/{id}/accept [post]
func (h *QuoteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	quote, err := h.quoteService.AcceptQuote(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to accept quote", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to accept quote")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// Decline godoc
// @Summary Decline quote
// @Description Transitions a sent quote to declined and stamps the decision time.
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Failure 409 {object} domain.ErrorResponse "Quote not in sent status"
// @Router /quotes/{id}/decline [post]
func (h *QuoteHandler) Decline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	quote, err := h.quoteService.DeclineQuote(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to decline quote", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to decline quote")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// AdvanceStatus godoc
// @Summary Advance quote status
// @Description Applies a requested lifecycle transition. Only draft to sent and sent to accepted or declined are permitted; anything else responds with 409.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.AdvanceQuoteStatusRequest true "Target status"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Failure 409 {object} domain.ErrorResponse "Transition not permitted"
// @Router /quotes/{id}/status [post]
func (h *QuoteHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	var req domain.AdvanceQuoteStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	quote, err := h.workflowService.AdvanceQuoteStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to advance quote status", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to advance quote status")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// Activities godoc
// @Summary List quote activity log
// @Description Returns the append-only activity log of the quote, newest first.
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {array} domain.QuoteActivityDTO
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Router /quotes/{id}/activities [get]
func (h *QuoteHandler) Activities(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	activities, err := h.quoteService.ListActivities(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list quote activities", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to list quote activities")
		return
	}

	respondJSON(w, http.StatusOK, activities)
}

// Export godoc
// @Summary Export quote snapshot
// @Description Renders a client-deliverable snapshot of the quote with its computed totals.
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 "Rendered quote snapshot"
// @Failure 404 {object} domain.ErrorResponse "Quote not found"
// @Router /quotes/{id}/export [get]
func (h *QuoteHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	quote, err := h.quoteService.GetQuote(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get quote for export", zap.Error(err), zap.String("quote_id", id.String()))
		handleServiceError(w, err, "Failed to export quote")
		return
	}

	data, contentType, err := h.renderer.RenderQuote(r.Context(), quote)
	if err != nil {
		h.logger.Error("failed to render quote", zap.Error(err), zap.String("quote_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to export quote")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
