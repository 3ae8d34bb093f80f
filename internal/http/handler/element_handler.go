package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/service"
)

type ElementHandler struct {
	elementService *service.ElementService
	logger         *zap.Logger
}

func NewElementHandler(elementService *service.ElementService, logger *zap.Logger) *ElementHandler {
	return &ElementHandler{
		elementService: elementService,
		logger:         logger,
	}
}

// elementFilterFromQuery builds the element filter from query parameters
func elementFilterFromQuery(r *http.Request) domain.ElementFilter {
	q := r.URL.Query()
	return domain.ElementFilter{
		Type:       q.Get("type"),
		Materials:  q.Get("materials"),
		SearchTerm: q.Get("search"),
	}
}

// ListByProject godoc
// @Summary List elements of a project
// @Description Lists the aggregated elements of a project across all its analyzed documents. Type and materials filters match exactly; search matches a case-insensitive substring over type, materials, dimensions and notes.
// @Tags Elements
// @Produce json
// @Param id path string true "Project ID"
// @Param type query string false "Exact element type"
// @Param materials query string false "Exact materials value"
// @Param search query string false "Case-insensitive substring search"
// @Success 200 {array} domain.ElementDTO
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Router /projects/{id}/elements [get]
func (h *ElementHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID: must be a valid UUID")
		return
	}

	elements, err := h.elementService.ListByProject(r.Context(), id, elementFilterFromQuery(r))
	if err != nil {
		h.logger.Error("failed to list elements", zap.Error(err), zap.String("project_id", id.String()))
		handleServiceError(w, err, "Failed to list elements")
		return
	}

	respondJSON(w, http.StatusOK, elements)
}

// Group godoc
// @Summary Group project elements
// @Description Groups the project's elements by type, materials or source document. Elements with an empty grouping value land in the Unknown group. Group keys are sorted lexicographically.
// @Tags Elements
// @Produce json
// @Param id path string true "Project ID"
// @Param by query string true "Grouping key" Enums(type, materials, sourceDocumentId)
// @Param type query string false "Exact element type filter"
// @Param materials query string false "Exact materials filter"
// @Param search query string false "Case-insensitive substring search"
// @Success 200 {array} domain.ElementGroupDTO
// @Failure 400 {object} domain.ErrorResponse "Invalid grouping key"
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Router /projects/{id}/elements/groups [get]
func (h *ElementHandler) Group(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID: must be a valid UUID")
		return
	}

	key := domain.ElementGroupKey(r.URL.Query().Get("by"))
	if !key.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Invalid grouping key: must be one of type, materials, sourceDocumentId")
		return
	}

	groups, err := h.elementService.GroupByProject(r.Context(), id, elementFilterFromQuery(r), key)
	if err != nil {
		h.logger.Error("failed to group elements", zap.Error(err), zap.String("project_id", id.String()))
		handleServiceError(w, err, "Failed to group elements")
		return
	}

	respondJSON(w, http.StatusOK, groups)
}

// Statistics godoc
// @Summary Element statistics for a project
// @Description Returns element counts per type and materials plus the summed estimated price. Counts are ordered most frequent first.
// @Tags Elements
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} domain.ElementStatisticsDTO
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Router /projects/{id}/elements/statistics [get]
func (h *ElementHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID: must be a valid UUID")
		return
	}

	stats, err := h.elementService.Statistics(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to compute element statistics", zap.Error(err), zap.String("project_id", id.String()))
		handleServiceError(w, err, "Failed to compute element statistics")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Types godoc
// @Summary Distinct element types in a project
// @Tags Elements
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {array} string
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Router /projects/{id}/elements/types [get]
func (h *ElementHandler) Types(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID: must be a valid UUID")
		return
	}

	types, err := h.elementService.DistinctTypes(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list element types", zap.Error(err), zap.String("project_id", id.String()))
		handleServiceError(w, err, "Failed to list element types")
		return
	}

	respondJSON(w, http.StatusOK, types)
}

// ListByDocument godoc
// @Summary List elements extracted from a document
// @Tags Elements
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {array} domain.ElementDTO
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Router /documents/{id}/elements [get]
func (h *ElementHandler) ListByDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID: must be a valid UUID")
		return
	}

	elements, err := h.elementService.ListByDocument(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list document elements", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err, "Failed to list document elements")
		return
	}

	respondJSON(w, http.StatusOK, elements)
}

// Update godoc
// @Summary Update an element
// @Description Patches element fields. The estimated price must not be negative.
// @Tags Elements
// @Accept json
// @Produce json
// @Param id path string true "Element ID"
// @Param request body domain.UpdateElementRequest true "Fields to update"
// @Success 200 {object} domain.ElementDTO
// @Failure 404 {object} domain.ErrorResponse "Element not found"
// @Failure 422 {object} domain.ErrorResponse "Negative estimated price"
// @Router /elements/{id} [put]
func (h *ElementHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid element ID: must be a valid UUID")
		return
	}

	var req domain.UpdateElementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	element, err := h.elementService.UpdateElement(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update element", zap.Error(err), zap.String("element_id", id.String()))
		handleServiceError(w, err, "Failed to update element")
		return
	}

	respondJSON(w, http.StatusOK, element)
}

// Delete godoc
// @Summary Delete an element
// @Tags Elements
// @Param id path string true "Element ID"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse "Element not found"
// @Router /elements/{id} [delete]
func (h *ElementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid element ID: must be a valid UUID")
		return
	}

	if err := h.elementService.DeleteElement(r.Context(), id); err != nil {
		h.logger.Error("failed to delete element", zap.Error(err), zap.String("element_id", id.String()))
		handleServiceError(w, err, "Failed to delete element")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
