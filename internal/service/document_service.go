package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/mapper"
	"github.com/byggkalk/quotation-api/internal/repository"
)

// DocumentService governs a document's journey through analysis
// states: not_analyzed -> pending -> analyzed | failed, with retry
// from failed back to pending. All transitions are checked and applied
// in a single conditional update so concurrent callers cannot both
// succeed.
type DocumentService struct {
	documentRepo *repository.DocumentRepository
	elementRepo  *repository.ElementRepository
	logger       *zap.Logger
}

func NewDocumentService(documentRepo *repository.DocumentRepository, elementRepo *repository.ElementRepository, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		elementRepo:  elementRepo,
		logger:       logger,
	}
}

// GetDocument returns a document with its specifications and element count
func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*domain.DocumentDTO, error) {
	document, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	count, err := s.documentRepo.CountElements(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count elements: %w", err)
	}

	dto := mapper.ToDocumentDTO(document, count)
	return &dto, nil
}

// ListDocuments returns documents filtered by project and status
func (s *DocumentService) ListDocuments(ctx context.Context, page, pageSize int, projectID *uuid.UUID, status *domain.DocumentStatus) ([]domain.DocumentDTO, int64, error) {
	documents, total, err := s.documentRepo.List(ctx, page, pageSize, projectID, status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}

	dtos := make([]domain.DocumentDTO, len(documents))
	for i, document := range documents {
		count, err := s.documentRepo.CountElements(ctx, document.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count elements: %w", err)
		}
		dtos[i] = mapper.ToDocumentDTO(&document, count)
	}

	return dtos, total, nil
}

// CreateDocument registers an uploaded document in not_analyzed state.
// The storage path is an opaque locator produced by the storage layer.
func (s *DocumentService) CreateDocument(ctx context.Context, document *domain.Document) (*domain.DocumentDTO, error) {
	document.Status = domain.DocumentStatusNotAnalyzed
	if err := s.documentRepo.Create(ctx, document); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.Info("document created",
		zap.String("documentID", document.ID.String()),
		zap.String("filename", document.Filename))

	dto := mapper.ToDocumentDTO(document, 0)
	return &dto, nil
}

// StartAnalysis moves a document to pending. Valid only from
// not_analyzed or failed; a retry clears the previous failure reason.
func (s *DocumentService) StartAnalysis(ctx context.Context, id uuid.UUID) (*domain.DocumentDTO, error) {
	applied, err := s.documentRepo.TransitionStatus(ctx, id,
		domain.DocumentTransitionSources(domain.DocumentStatusPending),
		domain.DocumentStatusPending,
		map[string]interface{}{"failure_reason": ""})
	if err != nil {
		return nil, fmt.Errorf("failed to start analysis: %w", err)
	}
	if !applied {
		return nil, s.transitionFailure(ctx, id, domain.DocumentStatusPending)
	}

	s.logger.Info("document analysis started", zap.String("documentID", id.String()))
	return s.GetDocument(ctx, id)
}

// CompleteAnalysis moves a pending document to analyzed, records the
// analysis timestamp and publishes the produced elements to the
// project's element pool. An empty element batch is a valid result.
// Prior batches are kept unless the result requests replacement.
func (s *DocumentService) CompleteAnalysis(ctx context.Context, id uuid.UUID, result *domain.CompleteAnalysisRequest) (*domain.DocumentDTO, error) {
	document, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	elements := make([]domain.Element, len(result.Elements))
	for i, input := range result.Elements {
		elements[i] = domain.Element{
			ProjectID:      document.ProjectID,
			Type:           input.Type,
			Dimensions:     input.Dimensions,
			Materials:      input.Materials,
			Quantity:       input.Quantity,
			Notes:          input.Notes,
			EstimatedPrice: input.EstimatedPrice,
		}
	}

	specifications := make([]domain.DocumentSpecification, len(result.Specifications))
	for i, input := range result.Specifications {
		category := input.Category
		if category == "" {
			category = domain.SpecificationCategoryGeneral
		}
		specifications[i] = domain.DocumentSpecification{
			Category: category,
			Key:      input.Key,
			Value:    input.Value,
		}
	}

	applied, err := s.documentRepo.SaveAnalysisResult(ctx, id, time.Now(),
		elements, specifications, result.Recommendations, result.ReplaceElements)
	if err != nil {
		return nil, fmt.Errorf("failed to save analysis result: %w", err)
	}
	if !applied {
		return nil, s.transitionFailure(ctx, id, domain.DocumentStatusAnalyzed)
	}

	s.logger.Info("document analysis completed",
		zap.String("documentID", id.String()),
		zap.Int("elements", len(elements)),
		zap.Bool("replaced", result.ReplaceElements))

	return s.GetDocument(ctx, id)
}

// FailAnalysis moves a pending document to failed with the given
// reason. Re-failing an already failed document with the same reason
// is an idempotent no-op.
func (s *DocumentService) FailAnalysis(ctx context.Context, id uuid.UUID, reason string) (*domain.DocumentDTO, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: failure reason is required", ErrInvalidInput)
	}

	applied, err := s.documentRepo.TransitionStatus(ctx, id,
		domain.DocumentTransitionSources(domain.DocumentStatusFailed),
		domain.DocumentStatusFailed,
		map[string]interface{}{"failure_reason": reason})
	if err != nil {
		return nil, fmt.Errorf("failed to fail analysis: %w", err)
	}
	if !applied {
		document, getErr := s.documentRepo.GetByID(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, gorm.ErrRecordNotFound) {
				return nil, ErrDocumentNotFound
			}
			return nil, fmt.Errorf("failed to get document: %w", getErr)
		}
		// Re-fail with an identical reason is tolerated.
		if document.Status == domain.DocumentStatusFailed && document.FailureReason == reason {
			return s.GetDocument(ctx, id)
		}
		return nil, fmt.Errorf("%w: cannot fail analysis from status %s", ErrInvalidStateTransition, document.Status)
	}

	s.logger.Info("document analysis failed",
		zap.String("documentID", id.String()),
		zap.String("reason", reason))

	return s.GetDocument(ctx, id)
}

// transitionFailure distinguishes a missing document from an invalid
// source status after a conditional update matched no rows.
func (s *DocumentService) transitionFailure(ctx context.Context, id uuid.UUID, target domain.DocumentStatus) error {
	document, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to get document: %w", err)
	}
	return fmt.Errorf("%w: cannot move document from %s to %s", ErrInvalidStateTransition, document.Status, target)
}
