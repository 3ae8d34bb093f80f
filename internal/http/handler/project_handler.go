package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/service"
)

type ProjectHandler struct {
	projectService    *service.ProjectService
	estimationService *service.EstimationService
	logger            *zap.Logger
}

func NewProjectHandler(projectService *service.ProjectService, estimationService *service.EstimationService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService:    projectService,
		estimationService: estimationService,
		logger:            logger,
	}
}

// Create godoc
// @Summary Create project
// @Description Creates a construction project. New projects start in planning status unless another status is given.
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body domain.CreateProjectRequest true "Project data"
// @Success 201 {object} domain.ProjectDTO
// @Failure 400 {object} domain.ErrorResponse "Invalid request body"
// @Router /projects [post]
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	project, err := h.projectService.CreateProject(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create project", zap.Error(err))
		handleServiceError(w, err, "Failed to create project")
		return
	}

	w.Header().Set("Location", "/projects/"+project.ID.String())
	respondJSON(w, http.StatusCreated, project)
}

// List godoc
// @Summary List projects
// @Tags Projects
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param pageSize query int false "Page size (default 20, max 100)"
// @Param status query string false "Filter by status" Enums(planning, active, on_hold, completed, cancelled)
// @Success 200 {object} map[string]interface{} "Paginated project list"
// @Router /projects [get]
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var status *domain.ProjectStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.ProjectStatus(s)
		if !st.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		status = &st
	}

	projects, total, err := h.projectService.ListProjects(r.Context(), page, pageSize, status)
	if err != nil {
		h.logger.Error("failed to list projects", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":     projects,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// GetByID godoc
// @Summary Get project with details
// @Description Returns the project together with its documents and quotes.
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} domain.ProjectWithDetailsDTO
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID: must be a valid UUID")
		return
	}

	project, err := h.projectService.GetProjectWithDetails(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get project", zap.Error(err), zap.String("project_id", id.String()))
		handleServiceError(w, err, "Failed to get project")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// Update godoc
// @Summary Update project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body domain.UpdateProjectRequest true "Fields to update"
// @Success 200 {object} domain.ProjectDTO
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID: must be a valid UUID")
		return
	}

	var req domain.UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	project, err := h.projectService.UpdateProject(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update project", zap.Error(err), zap.String("project_id", id.String()))
		handleServiceError(w, err, "Failed to update project")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// Delete godoc
// @Summary Delete project
// @Tags Projects
// @Param id path string true "Project ID"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID: must be a valid UUID")
		return
	}

	if err := h.projectService.DeleteProject(r.Context(), id); err != nil {
		h.logger.Error("failed to delete project", zap.Error(err), zap.String("project_id", id.String()))
		handleServiceError(w, err, "Failed to delete project")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// Estimate godoc
// @Summary Generate project cost estimate
// @Description Prices the elements of the project's analyzed documents with overhead and profit markups and records the total on the project. The body is optional and may override the default percentages.
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body domain.GenerateEstimateRequest false "Markup overrides"
// @Success 200 {object} domain.ProjectEstimateDTO
// @Failure 400 {object} domain.ErrorResponse "No analyzed documents or no elements"
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Failure 422 {object} domain.ErrorResponse "Negative markup percentage"
// @Router /projects/{id}/estimate [post]
func (h *ProjectHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID: must be a valid UUID")
		return
	}

	// Body is optional; an empty body means default markups.
	var req domain.GenerateEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	estimate, err := h.estimationService.GenerateProjectEstimate(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to generate project estimate", zap.Error(err), zap.String("project_id", id.String()))
		handleServiceError(w, err, "Failed to generate project estimate")
		return
	}

	respondJSON(w, http.StatusOK, estimate)
}

// parsePagination reads page and pageSize query parameters with sane bounds
func parsePagination(r *http.Request) (int, int) {
	page := 1
	pageSize := 20

	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= 100 {
			pageSize = parsed
		}
	}
	return page, pageSize
}
