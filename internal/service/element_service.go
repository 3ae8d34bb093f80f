package service

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/mapper"
	"github.com/byggkalk/quotation-api/internal/repository"
)

// ElementService aggregates construction elements across a project's
// documents and serves the grouping and filtering queries used by the
// quoting flow.
type ElementService struct {
	elementRepo  *repository.ElementRepository
	documentRepo *repository.DocumentRepository
	projectRepo  *repository.ProjectRepository
	logger       *zap.Logger
}

func NewElementService(elementRepo *repository.ElementRepository, documentRepo *repository.DocumentRepository, projectRepo *repository.ProjectRepository, logger *zap.Logger) *ElementService {
	return &ElementService{
		elementRepo:  elementRepo,
		documentRepo: documentRepo,
		projectRepo:  projectRepo,
		logger:       logger,
	}
}

// AddElements appends a batch to the owning document's project pool.
// No de-duplication happens; repeated elements are legitimate.
func (s *ElementService) AddElements(ctx context.Context, documentID uuid.UUID, elements []domain.Element) error {
	document, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	for i := range elements {
		elements[i].DocumentID = documentID
		elements[i].ProjectID = document.ProjectID
	}

	if err := s.elementRepo.CreateBatch(ctx, elements); err != nil {
		return fmt.Errorf("failed to add elements: %w", err)
	}

	s.logger.Info("elements added",
		zap.String("documentID", documentID.String()),
		zap.Int("count", len(elements)))
	return nil
}

// Query returns the project's filtered element pool as a lazy,
// restartable sequence in insertion order. Each range over the
// sequence re-runs the underlying query; iteration errors are
// delivered through the callback passed at construction.
func (s *ElementService) Query(ctx context.Context, projectID uuid.UUID, filter domain.ElementFilter, onError func(error)) iter.Seq[domain.Element] {
	return func(yield func(domain.Element) bool) {
		elements, err := s.elementRepo.ListByProject(ctx, projectID, filter)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to query elements: %w", err))
			}
			return
		}
		for _, element := range elements {
			if !yield(element) {
				return
			}
		}
	}
}

// ListByProject returns the filtered element pool as DTOs
func (s *ElementService) ListByProject(ctx context.Context, projectID uuid.UUID, filter domain.ElementFilter) ([]domain.ElementDTO, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	elements, err := s.elementRepo.ListByProject(ctx, projectID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	return mapper.ToElementDTOs(elements), nil
}

// ListByDocument returns a document's elements in insertion order
func (s *ElementService) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.ElementDTO, error) {
	if _, err := s.documentRepo.GetByID(ctx, documentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	elements, err := s.elementRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	return mapper.ToElementDTOs(elements), nil
}

// GroupByProject partitions the project's filtered pool by the chosen
// attribute, with groups sorted lexicographically
func (s *ElementService) GroupByProject(ctx context.Context, projectID uuid.UUID, filter domain.ElementFilter, key domain.ElementGroupKey) ([]domain.ElementGroupDTO, error) {
	if !key.IsValid() {
		return nil, fmt.Errorf("%w: unknown group key %q", ErrInvalidInput, key)
	}
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	elements, err := s.elementRepo.ListByProject(ctx, projectID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	return mapper.ToElementGroupDTOs(domain.GroupElements(elements, key)), nil
}

// Statistics summarizes the project's element pool
func (s *ElementService) Statistics(ctx context.Context, projectID uuid.UUID) (*domain.ElementStatisticsDTO, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	elements, err := s.elementRepo.ListByProject(ctx, projectID, domain.ElementFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}

	dto := mapper.ToElementStatisticsDTO(domain.ComputeElementStatistics(elements))
	return &dto, nil
}

// DistinctTypes lists the distinct element types within a project
func (s *ElementService) DistinctTypes(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	types, err := s.elementRepo.DistinctTypes(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list element types: %w", err)
	}
	return types, nil
}

// UpdateElement applies user edits to the free-form fields. Edits are
// allowed independently of the owning document's analysis state.
func (s *ElementService) UpdateElement(ctx context.Context, id uuid.UUID, req *domain.UpdateElementRequest) (*domain.ElementDTO, error) {
	element, err := s.elementRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElementNotFound
		}
		return nil, fmt.Errorf("failed to get element: %w", err)
	}

	if req.Type != nil {
		element.Type = *req.Type
	}
	if req.Dimensions != nil {
		element.Dimensions = *req.Dimensions
	}
	if req.Materials != nil {
		element.Materials = *req.Materials
	}
	if req.Quantity != nil {
		element.Quantity = *req.Quantity
	}
	if req.Notes != nil {
		element.Notes = *req.Notes
	}
	if req.EstimatedPrice != nil {
		if req.EstimatedPrice.IsNegative() {
			return nil, fmt.Errorf("%w: estimated price cannot be negative", ErrInvalidQuoteParameters)
		}
		element.EstimatedPrice = req.EstimatedPrice
	}

	if err := s.elementRepo.Update(ctx, element); err != nil {
		return nil, fmt.Errorf("failed to update element: %w", err)
	}

	dto := mapper.ToElementDTO(element)
	return &dto, nil
}

// DeleteElement removes an element from the pool
func (s *ElementService) DeleteElement(ctx context.Context, id uuid.UUID) error {
	if _, err := s.elementRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrElementNotFound
		}
		return fmt.Errorf("failed to get element: %w", err)
	}
	if err := s.elementRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete element: %w", err)
	}
	return nil
}

func (s *ElementService) ensureProject(ctx context.Context, projectID uuid.UUID) error {
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to get project: %w", err)
	}
	return nil
}
