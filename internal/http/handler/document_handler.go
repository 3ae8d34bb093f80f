package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/service"
)

type DocumentHandler struct {
	documentService *service.DocumentService
	workflowService *service.WorkflowService
	maxUploadMB     int64
	logger          *zap.Logger
}

func NewDocumentHandler(documentService *service.DocumentService, workflowService *service.WorkflowService, maxUploadMB int64, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		workflowService: workflowService,
		maxUploadMB:     maxUploadMB,
		logger:          logger,
	}
}

// Upload godoc
// @Summary Upload a plan document and start analysis
// @Description Stores the uploaded file, registers the document and dispatches analysis. The returned document is already in pending status; the analysis outcome is recorded asynchronously.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document to upload"
// @Param projectId formData string false "Project to attach the document to"
// @Success 202 {object} domain.DocumentDTO "Document accepted for analysis"
// @Failure 400 {object} domain.ErrorResponse "Invalid upload"
// @Failure 404 {object} domain.ErrorResponse "Project not found"
// @Router /documents/upload [post]
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxUploadMB * 1024 * 1024); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	var projectID *uuid.UUID
	if pid := r.FormValue("projectId"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid projectId: must be a valid UUID")
			return
		}
		projectID = &id
	}

	document, err := h.workflowService.UploadAndAnalyze(r.Context(), projectID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.logger.Error("failed to upload document", zap.Error(err))
		handleServiceError(w, err, "Failed to upload document")
		return
	}

	w.Header().Set("Location", "/documents/"+document.ID.String())
	respondJSON(w, http.StatusAccepted, document)
}

// List godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param pageSize query int false "Page size (default 20, max 100)"
// @Param projectId query string false "Filter by project"
// @Param status query string false "Filter by status" Enums(not_analyzed, pending, analyzed, failed)
// @Success 200 {object} map[string]interface{} "Paginated document list"
// @Router /documents [get]
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
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

	var status *domain.DocumentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.DocumentStatus(s)
		if !st.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		status = &st
	}

	documents, total, err := h.documentService.ListDocuments(r.Context(), page, pageSize, projectID, status)
	if err != nil {
		h.logger.Error("failed to list documents", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":     documents,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// GetByID godoc
// @Summary Get document
// @Description Returns the document with its analysis status, specifications, recommendations and element count.
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.DocumentDTO
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID: must be a valid UUID")
		return
	}

	document, err := h.documentService.GetDocument(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get document", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err, "Failed to get document")
		return
	}

	respondJSON(w, http.StatusOK, document)
}

// Download godoc
// @Summary Download the stored document bytes
// @Tags Documents
// @Produce application/octet-stream
// @Param id path string true "Document ID"
// @Success 200
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID: must be a valid UUID")
		return
	}

	reader, filename, err := h.workflowService.DownloadDocument(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to download document", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err, "Failed to download document")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.Header().Set("Content-Type", "application/octet-stream")

	_, _ = io.Copy(w, reader)
}

// Retry godoc
// @Summary Retry analysis for a failed document
// @Description Moves a failed document back to pending and dispatches analysis again. Pass replace=true to discard earlier element batches when the new result arrives; by default the new batch is appended.
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Param replace query bool false "Discard earlier element batches on completion"
// @Success 202 {object} domain.DocumentDTO "Document back in pending status"
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Failure 409 {object} domain.ErrorResponse "Document not in a retryable status"
// @Router /documents/{id}/retry [post]
func (h *DocumentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID: must be a valid UUID")
		return
	}

	replace := r.URL.Query().Get("replace") == "true"

	document, err := h.workflowService.RetryAnalysis(r.Context(), id, replace)
	if err != nil {
		h.logger.Error("failed to retry analysis", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err, "Failed to retry analysis")
		return
	}

	respondJSON(w, http.StatusAccepted, document)
}

// CompleteAnalysis godoc
// @Summary Record a completed analysis result
// @Description Callback for the analysis collaborator. Transitions a pending document to analyzed and stores the extracted elements, specifications and recommendations. An empty element list is a valid result.
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.CompleteAnalysisRequest true "Analysis result"
// @Success 200 {object} domain.DocumentDTO
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Failure 409 {object} domain.ErrorResponse "Document not in pending status"
// @Router /documents/{id}/analysis/complete [post]
func (h *DocumentHandler) CompleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID: must be a valid UUID")
		return
	}

	var req domain.CompleteAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	document, err := h.documentService.CompleteAnalysis(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to complete analysis", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err, "Failed to complete analysis")
		return
	}

	respondJSON(w, http.StatusOK, document)
}

// FailAnalysis godoc
// @Summary Record an analysis failure
// @Description Callback for the analysis collaborator. Transitions a pending document to failed with the given reason. Reporting the same reason again for an already failed document is a no-op.
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.FailAnalysisRequest true "Failure reason"
// @Success 200 {object} domain.DocumentDTO
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Failure 409 {object} domain.ErrorResponse "Document not in pending status"
// @Router /documents/{id}/analysis/fail [post]
func (h *DocumentHandler) FailAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID: must be a valid UUID")
		return
	}

	var req domain.FailAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	document, err := h.documentService.FailAnalysis(r.Context(), id, req.Reason)
	if err != nil {
		h.logger.Error("failed to record analysis failure", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err, "Failed to record analysis failure")
		return
	}

	respondJSON(w, http.StatusOK, document)
}
