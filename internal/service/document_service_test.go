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

func TestDocumentService_CreateDocument(t *testing.T) {
	h := newServiceHarness(t)
	project := h.createProject(t, "Office Building")

	document := h.createDocument(t, &project.ID)

	found, err := h.documentService.GetDocument(context.Background(), document.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusNotAnalyzed, found.Status)
	assert.Equal(t, "floorplan.pdf", found.Filename)
	assert.Equal(t, 0, found.ElementCount)
	assert.Nil(t, found.AnalyzedAt)
}

func TestDocumentService_GetDocument_NotFound(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.documentService.GetDocument(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDocumentService_StartAnalysis(t *testing.T) {
	h := newServiceHarness(t)
	document := h.createDocument(t, nil)

	t.Run("from not_analyzed", func(t *testing.T) {
		dto, err := h.documentService.StartAnalysis(context.Background(), document.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentStatusPending, dto.Status)
	})

	t.Run("already pending", func(t *testing.T) {
		_, err := h.documentService.StartAnalysis(context.Background(), document.ID)
		assert.ErrorIs(t, err, service.ErrInvalidStateTransition)
	})

	t.Run("missing document", func(t *testing.T) {
		_, err := h.documentService.StartAnalysis(context.Background(), uuid.New())
		assert.ErrorIs(t, err, service.ErrDocumentNotFound)
	})
}

func TestDocumentService_CompleteAnalysis(t *testing.T) {
	h := newServiceHarness(t)
	project := h.createProject(t, "Cabin Extension")
	document := h.createDocument(t, &project.ID)

	_, err := h.documentService.StartAnalysis(context.Background(), document.ID)
	require.NoError(t, err)

	result := &domain.CompleteAnalysisRequest{
		Elements: []domain.AnalyzedElementInput{
			{Type: "wall", Dimensions: "4m x 2.4m", Materials: "concrete", Quantity: "3", EstimatedPrice: decPtr("1500.00")},
			{Type: "window", Dimensions: "120x120", Materials: "wood", Quantity: "6"},
		},
		Specifications: []domain.AnalyzedSpecificationInput{
			{Key: "insulation", Value: "200mm mineral wool"},
			{Category: domain.SpecificationCategoryStructural, Key: "load class", Value: "B"},
		},
		Recommendations: []string{"verify window count on site"},
	}

	dto, err := h.documentService.CompleteAnalysis(context.Background(), document.ID, result)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusAnalyzed, dto.Status)
	require.NotNil(t, dto.AnalyzedAt)
	assert.Equal(t, 2, dto.ElementCount)
	assert.Equal(t, []string{"verify window count on site"}, dto.Recommendations)
	require.Len(t, dto.Specifications, 2)

	// A spec row without a category lands in the general bucket.
	categories := map[string]domain.SpecificationCategory{}
	for _, spec := range dto.Specifications {
		categories[spec.Key] = spec.Category
	}
	assert.Equal(t, domain.SpecificationCategoryGeneral, categories["insulation"])
	assert.Equal(t, domain.SpecificationCategoryStructural, categories["load class"])

	// Produced elements join the project's pool.
	elements, err := h.elementRepo.ListByProject(context.Background(), project.ID, domain.ElementFilter{})
	require.NoError(t, err)
	assert.Len(t, elements, 2)

	t.Run("already analyzed", func(t *testing.T) {
		_, err := h.documentService.CompleteAnalysis(context.Background(), document.ID, result)
		assert.ErrorIs(t, err, service.ErrInvalidStateTransition)
	})
}

func TestDocumentService_CompleteAnalysis_EmptyResult(t *testing.T) {
	h := newServiceHarness(t)
	document := h.createDocument(t, nil)

	_, err := h.documentService.StartAnalysis(context.Background(), document.ID)
	require.NoError(t, err)

	// A drawing with nothing to extract is still a successful analysis.
	dto, err := h.documentService.CompleteAnalysis(context.Background(), document.ID, &domain.CompleteAnalysisRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusAnalyzed, dto.Status)
	assert.Equal(t, 0, dto.ElementCount)
	assert.NotNil(t, dto.AnalyzedAt)
}

func TestDocumentService_CompleteAnalysis_ReplaceElements(t *testing.T) {
	h := newServiceHarness(t)
	project := h.createProject(t, "Warehouse")
	document := h.createDocument(t, &project.ID)

	_, err := h.documentService.StartAnalysis(context.Background(), document.ID)
	require.NoError(t, err)
	_, err = h.documentService.CompleteAnalysis(context.Background(), document.ID, &domain.CompleteAnalysisRequest{
		Elements: []domain.AnalyzedElementInput{{Type: "beam"}, {Type: "beam"}},
	})
	require.NoError(t, err)

	// Second result delivery for the same document, e.g. a corrected
	// callback after an operator reset.
	require.NoError(t, h.db.Model(&domain.Document{}).
		Where("id = ?", document.ID).
		Update("status", domain.DocumentStatusPending).Error)

	t.Run("append keeps earlier batch", func(t *testing.T) {
		dto, err := h.documentService.CompleteAnalysis(context.Background(), document.ID, &domain.CompleteAnalysisRequest{
			Elements: []domain.AnalyzedElementInput{{Type: "column"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, dto.ElementCount)
	})

	t.Run("replace discards earlier batches", func(t *testing.T) {
		require.NoError(t, h.db.Model(&domain.Document{}).
			Where("id = ?", document.ID).
			Update("status", domain.DocumentStatusPending).Error)

		dto, err := h.documentService.CompleteAnalysis(context.Background(), document.ID, &domain.CompleteAnalysisRequest{
			Elements:        []domain.AnalyzedElementInput{{Type: "truss"}},
			ReplaceElements: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, dto.ElementCount)

		elements, err := h.elementRepo.ListByDocument(context.Background(), document.ID)
		require.NoError(t, err)
		require.Len(t, elements, 1)
		assert.Equal(t, "truss", elements[0].Type)
	})
}

func TestDocumentService_FailAnalysis(t *testing.T) {
	h := newServiceHarness(t)
	document := h.createDocument(t, nil)

	_, err := h.documentService.StartAnalysis(context.Background(), document.ID)
	require.NoError(t, err)

	t.Run("requires a reason", func(t *testing.T) {
		_, err := h.documentService.FailAnalysis(context.Background(), document.ID, "")
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("from pending", func(t *testing.T) {
		dto, err := h.documentService.FailAnalysis(context.Background(), document.ID, "scan too blurry")
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentStatusFailed, dto.Status)
		assert.Equal(t, "scan too blurry", dto.FailureReason)
	})

	t.Run("same reason again is a no-op", func(t *testing.T) {
		dto, err := h.documentService.FailAnalysis(context.Background(), document.ID, "scan too blurry")
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentStatusFailed, dto.Status)
	})

	t.Run("different reason is rejected", func(t *testing.T) {
		_, err := h.documentService.FailAnalysis(context.Background(), document.ID, "unsupported format")
		assert.ErrorIs(t, err, service.ErrInvalidStateTransition)
	})
}

func TestDocumentService_RetryAfterFailure(t *testing.T) {
	h := newServiceHarness(t)
	document := h.createDocument(t, nil)

	_, err := h.documentService.StartAnalysis(context.Background(), document.ID)
	require.NoError(t, err)
	_, err = h.documentService.FailAnalysis(context.Background(), document.ID, "timeout")
	require.NoError(t, err)

	dto, err := h.documentService.StartAnalysis(context.Background(), document.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPending, dto.Status)
	assert.Empty(t, dto.FailureReason)
}
