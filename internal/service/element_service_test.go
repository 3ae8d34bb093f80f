package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/service"
)

type elementHarness struct {
	*serviceHarness
	elementService *service.ElementService
	project        *domain.Project
	document       *domain.Document
}

func newElementHarness(t *testing.T) *elementHarness {
	t.Helper()

	h := newServiceHarness(t)
	project := h.createProject(t, "Terrace House")
	document := h.createDocument(t, &project.ID)

	eh := &elementHarness{
		serviceHarness: h,
		elementService: service.NewElementService(h.elementRepo, h.documentRepo, h.projectRepo, zap.NewNop()),
		project:        project,
		document:       document,
	}

	require.NoError(t, eh.elementService.AddElements(context.Background(), document.ID, []domain.Element{
		{Type: "wall", Materials: "concrete", Dimensions: "4m x 2.4m", EstimatedPrice: decPtr("1500.00")},
		{Type: "wall", Materials: "wood", Notes: "load bearing"},
		{Type: "window", Materials: "wood", EstimatedPrice: decPtr("350.50")},
		{Materials: "steel"},
	}))
	return eh
}

func TestElementService_AddElements(t *testing.T) {
	h := newElementHarness(t)

	// AddElements stamps the owning document and its project.
	elements, err := h.elementService.ListByDocument(context.Background(), h.document.ID)
	require.NoError(t, err)
	require.Len(t, elements, 4)
	for _, element := range elements {
		assert.Equal(t, h.document.ID, element.DocumentID)
		require.NotNil(t, element.ProjectID)
		assert.Equal(t, h.project.ID, *element.ProjectID)
	}

	t.Run("unknown document", func(t *testing.T) {
		err := h.elementService.AddElements(context.Background(), uuid.New(), []domain.Element{{Type: "door"}})
		assert.ErrorIs(t, err, service.ErrDocumentNotFound)
	})
}

func TestElementService_ListByProject(t *testing.T) {
	h := newElementHarness(t)

	t.Run("unfiltered", func(t *testing.T) {
		elements, err := h.elementService.ListByProject(context.Background(), h.project.ID, domain.ElementFilter{})
		require.NoError(t, err)
		assert.Len(t, elements, 4)
	})

	t.Run("by type", func(t *testing.T) {
		elements, err := h.elementService.ListByProject(context.Background(), h.project.ID, domain.ElementFilter{Type: "wall"})
		require.NoError(t, err)
		assert.Len(t, elements, 2)
	})

	t.Run("type and materials combine", func(t *testing.T) {
		elements, err := h.elementService.ListByProject(context.Background(), h.project.ID, domain.ElementFilter{Type: "wall", Materials: "wood"})
		require.NoError(t, err)
		require.Len(t, elements, 1)
		assert.Equal(t, "load bearing", elements[0].Notes)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		elements, err := h.elementService.ListByProject(context.Background(), h.project.ID, domain.ElementFilter{SearchTerm: "BEARING"})
		require.NoError(t, err)
		assert.Len(t, elements, 1)
	})

	t.Run("search treats wildcard characters literally", func(t *testing.T) {
		require.NoError(t, h.elementService.AddElements(context.Background(), h.document.ID, []domain.Element{
			{Type: "beam", Notes: "abc panel"},
			{Type: "beam", Notes: "a_c panel"},
			{Type: "slab", Materials: "50% recycled concrete"},
		}))

		elements, err := h.elementService.ListByProject(context.Background(), h.project.ID, domain.ElementFilter{SearchTerm: "a_c"})
		require.NoError(t, err)
		require.Len(t, elements, 1)
		assert.Equal(t, "a_c panel", elements[0].Notes)

		elements, err = h.elementService.ListByProject(context.Background(), h.project.ID, domain.ElementFilter{SearchTerm: "50%"})
		require.NoError(t, err)
		require.Len(t, elements, 1)
		assert.Equal(t, "slab", elements[0].Type)
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := h.elementService.ListByProject(context.Background(), uuid.New(), domain.ElementFilter{})
		assert.ErrorIs(t, err, service.ErrProjectNotFound)
	})
}

func TestElementService_Query(t *testing.T) {
	h := newElementHarness(t)

	onError := func(err error) { t.Fatalf("unexpected query error: %v", err) }
	seq := h.elementService.Query(context.Background(), h.project.ID, domain.ElementFilter{Type: "wall"}, onError)

	t.Run("lazy iteration with early stop", func(t *testing.T) {
		seen := 0
		for range seq {
			seen++
			break
		}
		assert.Equal(t, 1, seen)
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		seen := 0
		for element := range seq {
			assert.Equal(t, "wall", element.Type)
			seen++
		}
		assert.Equal(t, 2, seen)
	})
}

func TestElementService_GroupByProject(t *testing.T) {
	h := newElementHarness(t)

	t.Run("by type with unknown bucket", func(t *testing.T) {
		groups, err := h.elementService.GroupByProject(context.Background(), h.project.ID, domain.ElementFilter{}, domain.ElementGroupByType)
		require.NoError(t, err)
		require.Len(t, groups, 3)
		// Lexicographic group order.
		assert.Equal(t, domain.UnknownGroupKey, groups[0].Key)
		assert.Equal(t, "wall", groups[1].Key)
		assert.Equal(t, "window", groups[2].Key)
		assert.Len(t, groups[1].Elements, 2)
	})

	t.Run("unknown group key", func(t *testing.T) {
		_, err := h.elementService.GroupByProject(context.Background(), h.project.ID, domain.ElementFilter{}, "color")
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestElementService_Statistics(t *testing.T) {
	h := newElementHarness(t)

	stats, err := h.elementService.Statistics(context.Background(), h.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalCount)
	assert.Equal(t, "1850.50", stats.TotalEstimatedPrice)
	require.NotEmpty(t, stats.TypeCounts)
	assert.Equal(t, domain.KeyCount{Key: "wall", Count: 2}, stats.TypeCounts[0])
	require.NotEmpty(t, stats.MaterialCounts)
	assert.Equal(t, domain.KeyCount{Key: "wood", Count: 2}, stats.MaterialCounts[0])
}

func TestElementService_DistinctTypes(t *testing.T) {
	h := newElementHarness(t)

	types, err := h.elementService.DistinctTypes(context.Background(), h.project.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"wall", "window"}, types)
}

func TestElementService_UpdateElement(t *testing.T) {
	h := newElementHarness(t)

	elements, err := h.elementService.ListByDocument(context.Background(), h.document.ID)
	require.NoError(t, err)
	target := elements[0]

	t.Run("partial update", func(t *testing.T) {
		updated, err := h.elementService.UpdateElement(context.Background(), target.ID, &domain.UpdateElementRequest{
			Quantity:       strPtr("12"),
			EstimatedPrice: decPtr("1750.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, "12", updated.Quantity)
		require.NotNil(t, updated.EstimatedPrice)
		assert.Equal(t, "1750.00", *updated.EstimatedPrice)
		// Untouched fields survive.
		assert.Equal(t, target.Type, updated.Type)
	})

	t.Run("negative estimate rejected", func(t *testing.T) {
		_, err := h.elementService.UpdateElement(context.Background(), target.ID, &domain.UpdateElementRequest{
			EstimatedPrice: decPtr("-10"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidQuoteParameters)
	})

	t.Run("unknown element", func(t *testing.T) {
		_, err := h.elementService.UpdateElement(context.Background(), uuid.New(), &domain.UpdateElementRequest{})
		assert.ErrorIs(t, err, service.ErrElementNotFound)
	})
}

func TestElementService_DeleteElement(t *testing.T) {
	h := newElementHarness(t)

	elements, err := h.elementService.ListByDocument(context.Background(), h.document.ID)
	require.NoError(t, err)

	require.NoError(t, h.elementService.DeleteElement(context.Background(), elements[0].ID))

	remaining, err := h.elementService.ListByDocument(context.Background(), h.document.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)

	t.Run("unknown element", func(t *testing.T) {
		err := h.elementService.DeleteElement(context.Background(), uuid.New())
		assert.ErrorIs(t, err, service.ErrElementNotFound)
	})
}
