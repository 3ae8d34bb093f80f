package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/service"
)

func TestProjectService_CreateProject(t *testing.T) {
	h := newServiceHarness(t)

	t.Run("defaults to planning", func(t *testing.T) {
		dto, err := h.projectService.CreateProject(context.Background(), &domain.CreateProjectRequest{
			Name:    "Harbor Terminal",
			Address: "Kaigata 3, Bergen",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ProjectStatusPlanning, dto.Status)
		assert.Equal(t, "Harbor Terminal", dto.Name)
		assert.NotEqual(t, uuid.Nil, dto.ID)
	})

	t.Run("explicit status", func(t *testing.T) {
		dto, err := h.projectService.CreateProject(context.Background(), &domain.CreateProjectRequest{
			Name:   "Hillside Cabins",
			Status: domain.ProjectStatusActive,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ProjectStatusActive, dto.Status)
	})
}

func TestProjectService_GetProjectWithDetails(t *testing.T) {
	h := newServiceHarness(t)
	project := h.createProject(t, "Apartment Refit")
	h.createDocument(t, &project.ID)

	_, err := h.quoteService.CreateQuote(context.Background(), &domain.CreateQuoteRequest{
		Title:     "Refit offer",
		ProjectID: &project.ID,
	})
	require.NoError(t, err)

	dto, err := h.projectService.GetProjectWithDetails(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Len(t, dto.Documents, 1)
	assert.Len(t, dto.Quotes, 1)

	t.Run("not found", func(t *testing.T) {
		_, err := h.projectService.GetProjectWithDetails(context.Background(), uuid.New())
		assert.ErrorIs(t, err, service.ErrProjectNotFound)
	})
}

func TestProjectService_ListProjects(t *testing.T) {
	h := newServiceHarness(t)
	h.createProject(t, "Alpha Site")
	h.createProject(t, "Beta Site")

	planning, err := h.projectService.CreateProject(context.Background(), &domain.CreateProjectRequest{Name: "Gamma Site"})
	require.NoError(t, err)

	t.Run("all", func(t *testing.T) {
		projects, total, err := h.projectService.ListProjects(context.Background(), 1, 10, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, projects, 3)
	})

	t.Run("filtered by status", func(t *testing.T) {
		status := domain.ProjectStatusPlanning
		projects, total, err := h.projectService.ListProjects(context.Background(), 1, 10, &status)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, projects, 1)
		assert.Equal(t, planning.ID, projects[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		projects, total, err := h.projectService.ListProjects(context.Background(), 2, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, projects, 1)
	})
}

func TestProjectService_UpdateProject(t *testing.T) {
	h := newServiceHarness(t)
	project := h.createProject(t, "Old Name")

	t.Run("partial update", func(t *testing.T) {
		status := domain.ProjectStatusCompleted
		dto, err := h.projectService.UpdateProject(context.Background(), project.ID, &domain.UpdateProjectRequest{
			Name:   strPtr("New Name"),
			Status: &status,
		})
		require.NoError(t, err)
		assert.Equal(t, "New Name", dto.Name)
		assert.Equal(t, domain.ProjectStatusCompleted, dto.Status)
	})

	t.Run("invalid status", func(t *testing.T) {
		status := domain.ProjectStatus("archived")
		_, err := h.projectService.UpdateProject(context.Background(), project.ID, &domain.UpdateProjectRequest{
			Status: &status,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := h.projectService.UpdateProject(context.Background(), uuid.New(), &domain.UpdateProjectRequest{})
		assert.ErrorIs(t, err, service.ErrProjectNotFound)
	})
}

func TestProjectService_DeleteProject(t *testing.T) {
	h := newServiceHarness(t)
	project := h.createProject(t, "Short-lived")

	require.NoError(t, h.projectService.DeleteProject(context.Background(), project.ID))

	_, err := h.projectService.GetProject(context.Background(), project.ID)
	assert.ErrorIs(t, err, service.ErrProjectNotFound)

	t.Run("not found", func(t *testing.T) {
		err := h.projectService.DeleteProject(context.Background(), uuid.New())
		assert.ErrorIs(t, err, service.ErrProjectNotFound)
	})
}
