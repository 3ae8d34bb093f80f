package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/analysis"
	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/repository"
	"github.com/byggkalk/quotation-api/internal/storage"
)

// WorkflowService composes the document state machine, the element
// pool and the quote lifecycle into the operations external callers
// use: upload-and-analyze, quote generation from selected elements,
// and status advancement.
type WorkflowService struct {
	documentService *DocumentService
	quoteService    *QuoteService
	elementRepo     *repository.ElementRepository
	projectRepo     *repository.ProjectRepository
	storage         storage.Storage
	analyzer        analysis.Analyzer
	logger          *zap.Logger
}

func NewWorkflowService(
	documentService *DocumentService,
	quoteService *QuoteService,
	elementRepo *repository.ElementRepository,
	projectRepo *repository.ProjectRepository,
	store storage.Storage,
	analyzer analysis.Analyzer,
	logger *zap.Logger,
) *WorkflowService {
	return &WorkflowService{
		documentService: documentService,
		quoteService:    quoteService,
		elementRepo:     elementRepo,
		projectRepo:     projectRepo,
		storage:         store,
		analyzer:        analyzer,
		logger:          logger,
	}
}

// UploadAndAnalyze stores the uploaded bytes, registers the document
// and immediately starts analysis. The analysis collaborator runs
// asynchronously; its outcome is recorded on the document when it
// arrives. The returned document is already pending.
func (s *WorkflowService) UploadAndAnalyze(ctx context.Context, projectID *uuid.UUID, filename, contentType string, data io.Reader) (*domain.DocumentDTO, error) {
	if projectID != nil {
		if _, err := s.projectRepo.GetByID(ctx, *projectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, fmt.Errorf("failed to get project: %w", err)
		}
	}

	locator, size, err := s.storage.Upload(ctx, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	document := &domain.Document{
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		StoragePath: locator,
		ProjectID:   projectID,
	}
	if _, err := s.documentService.CreateDocument(ctx, document); err != nil {
		return nil, err
	}

	dto, err := s.documentService.StartAnalysis(ctx, document.ID)
	if err != nil {
		return nil, err
	}

	s.dispatchAnalysis(ctx, document.ID, locator, filename, contentType, false)
	return dto, nil
}

// RetryAnalysis re-runs analysis for a failed document. By default a
// fresh element batch is appended next to earlier ones; replace
// discards them when the new result arrives.
func (s *WorkflowService) RetryAnalysis(ctx context.Context, documentID uuid.UUID, replace bool) (*domain.DocumentDTO, error) {
	dto, err := s.documentService.StartAnalysis(ctx, documentID)
	if err != nil {
		return nil, err
	}

	document, err := s.documentService.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	s.dispatchAnalysis(ctx, documentID, document.StoragePath, document.Filename, document.ContentType, replace)
	return dto, nil
}

// dispatchAnalysis invokes the collaborator in the background. The
// request context's cancellation is detached: once the outcome has
// been applied to the document, cancelling the originating request is
// a no-op.
func (s *WorkflowService) dispatchAnalysis(ctx context.Context, documentID uuid.UUID, locator, filename, contentType string, replace bool) {
	runCtx := context.WithoutCancel(ctx)
	go s.runAnalysis(runCtx, documentID, locator, filename, contentType, replace)
}

func (s *WorkflowService) runAnalysis(ctx context.Context, documentID uuid.UUID, locator, filename, contentType string, replace bool) {
	if s.analyzer == nil {
		s.recordFailure(ctx, documentID, "analysis service is not configured")
		return
	}

	result, err := s.analyzer.Analyze(ctx, locator, filename, contentType)
	if err != nil {
		var failure *analysis.Failure
		if errors.As(err, &failure) {
			s.recordFailure(ctx, documentID, failure.Reason)
		} else {
			s.logger.Error("analysis collaborator unreachable",
				zap.String("documentID", documentID.String()),
				zap.Error(err))
			s.recordFailure(ctx, documentID, err.Error())
		}
		return
	}

	if _, err := s.documentService.CompleteAnalysis(ctx, documentID, &domain.CompleteAnalysisRequest{
		Elements:        result.Elements,
		Specifications:  result.Specifications,
		Recommendations: result.Recommendations,
		ReplaceElements: replace,
	}); err != nil {
		// Usually a lost race with another completion or failure.
		s.logger.Warn("could not record analysis result",
			zap.String("documentID", documentID.String()),
			zap.Error(err))
	}
}

func (s *WorkflowService) recordFailure(ctx context.Context, documentID uuid.UUID, reason string) {
	if _, err := s.documentService.FailAnalysis(ctx, documentID, reason); err != nil {
		s.logger.Warn("could not record analysis failure",
			zap.String("documentID", documentID.String()),
			zap.String("reason", reason),
			zap.Error(err))
	}
}

// DownloadDocument streams the stored bytes of a document together
// with its original filename
func (s *WorkflowService) DownloadDocument(ctx context.Context, documentID uuid.UUID) (io.ReadCloser, string, error) {
	document, err := s.documentService.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDocumentNotFound
		}
		return nil, "", fmt.Errorf("failed to get document: %w", err)
	}

	reader, err := s.storage.Download(ctx, document.StoragePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open stored document: %w", err)
	}
	return reader, document.Filename, nil
}

// GenerateQuoteFromElements builds a draft quote from selected project
// elements. Descriptions are synthesized from type, materials and
// dimensions; unit prices come from element estimates with a zero
// fallback; quantities fall back to one when not numeric. Pricing runs
// once to seed the derived totals.
func (s *WorkflowService) GenerateQuoteFromElements(ctx context.Context, projectID uuid.UUID, req *domain.GenerateQuoteRequest) (*domain.QuoteDTO, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	elements, err := s.elementRepo.GetByIDs(ctx, req.ElementIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load elements: %w", err)
	}
	if len(elements) != len(req.ElementIDs) {
		return nil, fmt.Errorf("%w: one or more selected elements do not exist", ErrElementNotFound)
	}
	for _, element := range elements {
		if element.ProjectID == nil || *element.ProjectID != projectID {
			return nil, fmt.Errorf("%w: element %s does not belong to the project", ErrInvalidInput, element.ID)
		}
	}

	items := make([]domain.QuoteItemInput, len(elements))
	for i, element := range elements {
		element := element
		items[i] = domain.QuoteItemInput{
			ElementID:   &element.ID,
			Description: elementDescription(&element),
			Quantity:    element.QuantityValue(),
			UnitPrice:   element.UnitEstimate(),
		}
	}

	return s.quoteService.CreateQuote(ctx, &domain.CreateQuoteRequest{
		Title:           req.Title,
		ClientName:      req.ClientName,
		ProjectID:       &projectID,
		TaxRate:         req.TaxRate,
		DiscountPercent: req.DiscountPercent,
		Notes:           req.Notes,
		Items:           items,
	})
}

// AdvanceQuoteStatus validates and applies a requested lifecycle
// transition
func (s *WorkflowService) AdvanceQuoteStatus(ctx context.Context, quoteID uuid.UUID, target domain.QuoteStatus) (*domain.QuoteDTO, error) {
	return s.quoteService.AdvanceStatus(ctx, quoteID, target)
}

func elementDescription(element *domain.Element) string {
	typ := element.Type
	if typ == "" {
		typ = "Element"
	}
	materials := element.Materials
	if materials == "" {
		materials = "No material"
	}
	dimensions := element.Dimensions
	if dimensions == "" {
		dimensions = "No dimensions"
	}
	return fmt.Sprintf("%s - %s - %s", typ, materials, dimensions)
}
