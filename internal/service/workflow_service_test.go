package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/byggkalk/quotation-api/internal/analysis"
	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/service"
)

// fakeStorage keeps uploaded documents in memory.
type fakeStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: map[string][]byte{}}
}

func (s *fakeStorage) Upload(ctx context.Context, filename, contentType string, data io.Reader) (string, int64, error) {
	content, err := io.ReadAll(data)
	if err != nil {
		return "", 0, err
	}
	locator := "mem/" + uuid.NewString()
	s.mu.Lock()
	s.files[locator] = content
	s.mu.Unlock()
	return locator, int64(len(content)), nil
}

func (s *fakeStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	s.mu.Lock()
	content, ok := s.files[storagePath]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", storagePath)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, storagePath string) error {
	s.mu.Lock()
	delete(s.files, storagePath)
	s.mu.Unlock()
	return nil
}

// fakeAnalyzer returns a canned outcome and counts invocations.
type fakeAnalyzer struct {
	mu     sync.Mutex
	result *analysis.Result
	err    error
	calls  int
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, locator, filename, contentType string) (*analysis.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func (a *fakeAnalyzer) set(result *analysis.Result, err error) {
	a.mu.Lock()
	a.result = result
	a.err = err
	a.mu.Unlock()
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type workflowHarness struct {
	*serviceHarness
	storage         *fakeStorage
	analyzer        *fakeAnalyzer
	workflowService *service.WorkflowService
}

func newWorkflowHarness(t *testing.T) *workflowHarness {
	t.Helper()

	h := newServiceHarness(t)
	store := newFakeStorage()
	analyzer := &fakeAnalyzer{}

	return &workflowHarness{
		serviceHarness: h,
		storage:        store,
		analyzer:       analyzer,
		workflowService: service.NewWorkflowService(
			h.documentService,
			h.quoteService,
			h.elementRepo,
			h.projectRepo,
			store,
			analyzer,
			zap.NewNop(),
		),
	}
}

// waitForStatus polls until the background analysis outcome lands on
// the document.
func waitForStatus(t *testing.T, h *workflowHarness, documentID uuid.UUID, status domain.DocumentStatus) *domain.DocumentDTO {
	t.Helper()

	var dto *domain.DocumentDTO
	require.Eventually(t, func() bool {
		found, err := h.documentService.GetDocument(context.Background(), documentID)
		if err != nil {
			return false
		}
		dto = found
		return found.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return dto
}

func TestWorkflowService_UploadAndAnalyze(t *testing.T) {
	h := newWorkflowHarness(t)
	project := h.createProject(t, "School Renovation")

	h.analyzer.set(&analysis.Result{
		Elements: []domain.AnalyzedElementInput{
			{Type: "door", Materials: "oak", Quantity: "8", EstimatedPrice: decPtr("4200.00")},
			{Type: "wall", Materials: "gypsum"},
		},
		Recommendations: []string{"check fire rating on doors"},
	}, nil)

	dto, err := h.workflowService.UploadAndAnalyze(context.Background(), &project.ID,
		"plans.pdf", "application/pdf", strings.NewReader("%PDF-1.7 drawing bytes"))
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPending, dto.Status)
	assert.Equal(t, int64(len("%PDF-1.7 drawing bytes")), dto.Size)

	analyzed := waitForStatus(t, h, dto.ID, domain.DocumentStatusAnalyzed)
	assert.Equal(t, 2, analyzed.ElementCount)
	assert.Equal(t, []string{"check fire rating on doors"}, analyzed.Recommendations)
	assert.Equal(t, 1, h.analyzer.callCount())

	// Extracted elements belong to the uploading project.
	elements, err := h.elementRepo.ListByProject(context.Background(), project.ID, domain.ElementFilter{})
	require.NoError(t, err)
	assert.Len(t, elements, 2)
}

func TestWorkflowService_UploadAndAnalyze_Failure(t *testing.T) {
	h := newWorkflowHarness(t)

	h.analyzer.set(nil, &analysis.Failure{Reason: "drawing resolution too low"})

	dto, err := h.workflowService.UploadAndAnalyze(context.Background(), nil,
		"blurry.pdf", "application/pdf", strings.NewReader("bytes"))
	require.NoError(t, err)

	failed := waitForStatus(t, h, dto.ID, domain.DocumentStatusFailed)
	assert.Equal(t, "drawing resolution too low", failed.FailureReason)
}

func TestWorkflowService_UploadAndAnalyze_NoAnalyzer(t *testing.T) {
	h := newServiceHarness(t)
	wf := &workflowHarness{
		serviceHarness: h,
		storage:        newFakeStorage(),
	}
	wf.workflowService = service.NewWorkflowService(
		h.documentService, h.quoteService, h.elementRepo, h.projectRepo,
		wf.storage, nil, zap.NewNop(),
	)

	dto, err := wf.workflowService.UploadAndAnalyze(context.Background(), nil,
		"plans.pdf", "application/pdf", strings.NewReader("bytes"))
	require.NoError(t, err)

	failed := waitForStatus(t, wf, dto.ID, domain.DocumentStatusFailed)
	assert.Equal(t, "analysis service is not configured", failed.FailureReason)
}

func TestWorkflowService_UploadAndAnalyze_UnknownProject(t *testing.T) {
	h := newWorkflowHarness(t)

	missing := uuid.New()
	_, err := h.workflowService.UploadAndAnalyze(context.Background(), &missing,
		"plans.pdf", "application/pdf", strings.NewReader("bytes"))
	assert.ErrorIs(t, err, service.ErrProjectNotFound)
}

func TestWorkflowService_RetryAnalysis(t *testing.T) {
	h := newWorkflowHarness(t)

	h.analyzer.set(nil, errors.New("connection refused"))

	dto, err := h.workflowService.UploadAndAnalyze(context.Background(), nil,
		"plans.pdf", "application/pdf", strings.NewReader("bytes"))
	require.NoError(t, err)

	// Transport errors are recorded as failures so the document never
	// sticks in pending.
	failed := waitForStatus(t, h, dto.ID, domain.DocumentStatusFailed)
	assert.Equal(t, "connection refused", failed.FailureReason)

	h.analyzer.set(&analysis.Result{
		Elements: []domain.AnalyzedElementInput{{Type: "stair"}},
	}, nil)

	retried, err := h.workflowService.RetryAnalysis(context.Background(), dto.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPending, retried.Status)

	analyzed := waitForStatus(t, h, dto.ID, domain.DocumentStatusAnalyzed)
	assert.Equal(t, 1, analyzed.ElementCount)
	assert.Empty(t, analyzed.FailureReason)
}

func TestWorkflowService_DownloadDocument(t *testing.T) {
	h := newWorkflowHarness(t)
	h.analyzer.set(&analysis.Result{}, nil)

	content := "%PDF-1.7 original bytes"
	dto, err := h.workflowService.UploadAndAnalyze(context.Background(), nil,
		"site-plan.pdf", "application/pdf", strings.NewReader(content))
	require.NoError(t, err)

	reader, filename, err := h.workflowService.DownloadDocument(context.Background(), dto.ID)
	require.NoError(t, err)
	defer reader.Close()

	downloaded, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, string(downloaded))
	assert.Equal(t, "site-plan.pdf", filename)

	t.Run("missing document", func(t *testing.T) {
		_, _, err := h.workflowService.DownloadDocument(context.Background(), uuid.New())
		assert.ErrorIs(t, err, service.ErrDocumentNotFound)
	})
}

func TestWorkflowService_GenerateQuoteFromElements(t *testing.T) {
	h := newWorkflowHarness(t)
	project := h.createProject(t, "Residential Block")
	document := h.createDocument(t, &project.ID)

	elements := []domain.Element{
		{
			DocumentID:     document.ID,
			ProjectID:      &project.ID,
			Type:           "wall",
			Materials:      "concrete",
			Dimensions:     "4m x 2.4m",
			Quantity:       "3",
			EstimatedPrice: decPtr("1500.00"),
		},
		{
			DocumentID: document.ID,
			ProjectID:  &project.ID,
			Quantity:   "ca. 12",
		},
	}
	require.NoError(t, h.elementRepo.CreateBatch(context.Background(), elements))

	dto, err := h.workflowService.GenerateQuoteFromElements(context.Background(), project.ID, &domain.GenerateQuoteRequest{
		Title:      "Shell construction",
		ClientName: "Berg Eiendom",
		ElementIDs: []uuid.UUID{elements[0].ID, elements[1].ID},
		TaxRate:    dec("25"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.QuoteStatusDraft, dto.Status)
	require.NotNil(t, dto.ProjectID)
	assert.Equal(t, project.ID, *dto.ProjectID)
	require.Len(t, dto.Items, 2)

	descriptions := map[string]domain.QuoteItemDTO{}
	for _, item := range dto.Items {
		descriptions[item.Description] = item
	}

	priced, ok := descriptions["wall - concrete - 4m x 2.4m"]
	require.True(t, ok)
	assert.Equal(t, "3", priced.Quantity)
	assert.Equal(t, "1500.00", priced.UnitPrice)
	assert.Equal(t, "4500.00", priced.LineTotal)
	require.NotNil(t, priced.ElementID)
	assert.Equal(t, elements[0].ID, *priced.ElementID)

	// Non-numeric quantity falls back to one, missing estimate to zero.
	fallback, ok := descriptions["Element - No material - No dimensions"]
	require.True(t, ok)
	assert.Equal(t, "1", fallback.Quantity)
	assert.Equal(t, "0.00", fallback.UnitPrice)

	assert.Equal(t, "4500.00", dto.Subtotal)
	assert.Equal(t, "1125.00", dto.TaxAmount)
	assert.Equal(t, "5625.00", dto.Total)
}

func TestWorkflowService_GenerateQuoteFromElements_Invalid(t *testing.T) {
	h := newWorkflowHarness(t)
	project := h.createProject(t, "Residential Block")
	other := h.createProject(t, "Unrelated Site")
	document := h.createDocument(t, &other.ID)

	foreign := []domain.Element{{DocumentID: document.ID, ProjectID: &other.ID, Type: "beam"}}
	require.NoError(t, h.elementRepo.CreateBatch(context.Background(), foreign))

	t.Run("unknown project", func(t *testing.T) {
		_, err := h.workflowService.GenerateQuoteFromElements(context.Background(), uuid.New(), &domain.GenerateQuoteRequest{
			Title:      "Quote",
			ElementIDs: []uuid.UUID{foreign[0].ID},
		})
		assert.ErrorIs(t, err, service.ErrProjectNotFound)
	})

	t.Run("unknown element", func(t *testing.T) {
		_, err := h.workflowService.GenerateQuoteFromElements(context.Background(), project.ID, &domain.GenerateQuoteRequest{
			Title:      "Quote",
			ElementIDs: []uuid.UUID{uuid.New()},
		})
		assert.ErrorIs(t, err, service.ErrElementNotFound)
	})

	t.Run("element from another project", func(t *testing.T) {
		_, err := h.workflowService.GenerateQuoteFromElements(context.Background(), project.ID, &domain.GenerateQuoteRequest{
			Title:      "Quote",
			ElementIDs: []uuid.UUID{foreign[0].ID},
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestWorkflowService_AdvanceQuoteStatus(t *testing.T) {
	h := newWorkflowHarness(t)
	dto := createDraftQuote(t, h.serviceHarness)

	sent, err := h.workflowService.AdvanceQuoteStatus(context.Background(), dto.ID, domain.QuoteStatusSent)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusSent, sent.Status)

	_, err = h.workflowService.AdvanceQuoteStatus(context.Background(), dto.ID, domain.QuoteStatusSent)
	assert.ErrorIs(t, err, service.ErrInvalidStateTransition)
}
