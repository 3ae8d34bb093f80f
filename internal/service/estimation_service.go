package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/mapper"
	"github.com/byggkalk/quotation-api/internal/repository"
)

// Default markups applied to the direct cost of an estimate.
var (
	defaultOverheadPercent = decimal.NewFromInt(10)
	defaultProfitPercent   = decimal.NewFromInt(15)
)

// EstimationService turns a project's analyzed element pool into a
// cost estimate: per-element costs with overhead and profit markups,
// broken down by element type and by source document. The resulting
// total is persisted on the project.
type EstimationService struct {
	projectRepo  *repository.ProjectRepository
	documentRepo *repository.DocumentRepository
	elementRepo  *repository.ElementRepository
	logger       *zap.Logger
}

func NewEstimationService(
	projectRepo *repository.ProjectRepository,
	documentRepo *repository.DocumentRepository,
	elementRepo *repository.ElementRepository,
	logger *zap.Logger,
) *EstimationService {
	return &EstimationService{
		projectRepo:  projectRepo,
		documentRepo: documentRepo,
		elementRepo:  elementRepo,
		logger:       logger,
	}
}

// GenerateProjectEstimate computes an estimate over the elements of
// the project's analyzed documents and records the total on the
// project. Elements whose document has gone back to pending are left
// out; the estimate only reflects completed analysis runs.
func (s *EstimationService) GenerateProjectEstimate(ctx context.Context, projectID uuid.UUID, req *domain.GenerateEstimateRequest) (*domain.ProjectEstimateDTO, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	overheadPercent := defaultOverheadPercent
	profitPercent := defaultProfitPercent
	if req != nil {
		if req.OverheadPercent != nil {
			overheadPercent = *req.OverheadPercent
		}
		if req.ProfitPercent != nil {
			profitPercent = *req.ProfitPercent
		}
	}
	if overheadPercent.IsNegative() || profitPercent.IsNegative() {
		return nil, fmt.Errorf("%w: overhead and profit percentages cannot be negative", ErrInvalidQuoteParameters)
	}

	documents, err := s.documentRepo.ListAnalyzedByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyzed documents: %w", err)
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: project has no analyzed documents", ErrInvalidInput)
	}

	filenames := make(map[uuid.UUID]string, len(documents))
	for _, document := range documents {
		filenames[document.ID] = document.Filename
	}

	pool, err := s.elementRepo.ListByProject(ctx, projectID, domain.ElementFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load project elements: %w", err)
	}

	elements := make([]domain.Element, 0, len(pool))
	for _, element := range pool {
		if _, ok := filenames[element.DocumentID]; ok {
			elements = append(elements, element)
		}
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: analyzed documents produced no elements", ErrInvalidInput)
	}

	estimate := domain.ComputeProjectEstimate(elements, overheadPercent, profitPercent)

	total := estimate.TotalCost
	project.TotalEstimate = &total
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to record project estimate: %w", err)
	}

	s.logger.Info("project estimate generated",
		zap.String("projectID", projectID.String()),
		zap.Int("elementCount", estimate.ElementCount),
		zap.String("total", total.StringFixed(2)))

	dto := mapper.ToProjectEstimateDTO(projectID, estimate, filenames, time.Now())
	return &dto, nil
}
