package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/mapper"
	"github.com/byggkalk/quotation-api/internal/repository"
)

// ProjectService manages construction projects, the containers for
// documents, elements and quotes.
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	logger      *zap.Logger
}

func NewProjectService(projectRepo *repository.ProjectRepository, logger *zap.Logger) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, logger: logger}
}

func (s *ProjectService) CreateProject(ctx context.Context, req *domain.CreateProjectRequest) (*domain.ProjectDTO, error) {
	status := req.Status
	if status == "" {
		status = domain.ProjectStatusPlanning
	}

	project := &domain.Project{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Status:      status,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Info("project created",
		zap.String("projectID", project.ID.String()),
		zap.String("name", project.Name))

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*domain.ProjectDTO, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

// GetProjectWithDetails returns the project together with its
// documents and quotes
func (s *ProjectService) GetProjectWithDetails(ctx context.Context, id uuid.UUID) (*domain.ProjectWithDetailsDTO, error) {
	project, err := s.projectRepo.GetWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	dto := mapper.ToProjectWithDetailsDTO(project)
	return &dto, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, page, pageSize int, status *domain.ProjectStatus) ([]domain.ProjectDTO, int64, error) {
	projects, total, err := s.projectRepo.List(ctx, page, pageSize, status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	dtos := make([]domain.ProjectDTO, len(projects))
	for i, project := range projects {
		dtos[i] = mapper.ToProjectDTO(&project)
	}
	return dtos, total, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, id uuid.UUID, req *domain.UpdateProjectRequest) (*domain.ProjectDTO, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Address != nil {
		project.Address = *req.Address
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, fmt.Errorf("%w: invalid project status %q", ErrInvalidInput, *req.Status)
		}
		project.Status = *req.Status
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

func (s *ProjectService) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if _, err := s.projectRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to get project: %w", err)
	}
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.Info("project deleted", zap.String("projectID", id.String()))
	return nil
}
