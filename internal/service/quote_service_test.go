package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/service"
)

func createDraftQuote(t *testing.T, h *serviceHarness) *domain.QuoteDTO {
	t.Helper()

	dto, err := h.quoteService.CreateQuote(context.Background(), &domain.CreateQuoteRequest{
		Title:           "Foundation work",
		ClientName:      "Hansen Bygg",
		TaxRate:         dec("25"),
		DiscountPercent: dec("10"),
		Items: []domain.QuoteItemInput{
			{Description: "Excavation", Quantity: dec("1"), UnitPrice: dec("12000.00")},
			{Description: "Concrete slab", Quantity: dec("40"), UnitPrice: dec("350.00")},
		},
	})
	require.NoError(t, err)
	return dto
}

func TestQuoteService_CreateQuote(t *testing.T) {
	h := newServiceHarness(t)

	dto := createDraftQuote(t, h)

	assert.Equal(t, domain.QuoteStatusDraft, dto.Status)
	assert.Equal(t, "26000.00", dto.Subtotal)
	assert.Equal(t, "6500.00", dto.TaxAmount)
	assert.Equal(t, "2600.00", dto.DiscountAmount)
	assert.Equal(t, "29900.00", dto.Total)
	require.Len(t, dto.Items, 2)
	assert.Equal(t, 0, dto.Items[0].Position)
	assert.Equal(t, 1, dto.Items[1].Position)
	assert.Equal(t, "12000.00", dto.Items[0].LineTotal)
	assert.Equal(t, "14000.00", dto.Items[1].LineTotal)

	activities, err := h.quoteService.ListActivities(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, domain.QuoteActivityCreated, activities[0].Action)
}

func TestQuoteService_CreateQuote_Invalid(t *testing.T) {
	h := newServiceHarness(t)

	t.Run("negative unit price", func(t *testing.T) {
		_, err := h.quoteService.CreateQuote(context.Background(), &domain.CreateQuoteRequest{
			Title: "Bad quote",
			Items: []domain.QuoteItemInput{{Description: "Digging", Quantity: dec("1"), UnitPrice: dec("-5")}},
		})
		assert.ErrorIs(t, err, service.ErrInvalidQuoteParameters)
	})

	t.Run("negative tax rate", func(t *testing.T) {
		_, err := h.quoteService.CreateQuote(context.Background(), &domain.CreateQuoteRequest{
			Title:   "Bad quote",
			TaxRate: dec("-1"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidQuoteParameters)
	})

	t.Run("missing item description", func(t *testing.T) {
		_, err := h.quoteService.CreateQuote(context.Background(), &domain.CreateQuoteRequest{
			Title: "Bad quote",
			Items: []domain.QuoteItemInput{{Quantity: dec("1"), UnitPrice: dec("5")}},
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown project", func(t *testing.T) {
		missing := uuid.New()
		_, err := h.quoteService.CreateQuote(context.Background(), &domain.CreateQuoteRequest{
			Title:     "Orphan quote",
			ProjectID: &missing,
		})
		assert.ErrorIs(t, err, service.ErrProjectNotFound)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestQuoteService_UpdateItems(t *testing.T) {
	h := newServiceHarness(t)
	dto := createDraftQuote(t, h)

	updated, err := h.quoteService.UpdateItems(context.Background(), dto.ID, &domain.UpdateQuoteItemsRequest{
		Items: []domain.QuoteItemInput{
			{Description: "Excavation and drainage", Quantity: dec("1"), UnitPrice: dec("18000.00")},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "18000.00", updated.Subtotal)
	assert.Equal(t, "4500.00", updated.TaxAmount)
	assert.Equal(t, "1800.00", updated.DiscountAmount)
	assert.Equal(t, "20700.00", updated.Total)
}

func TestQuoteService_AddAndRemoveItems(t *testing.T) {
	h := newServiceHarness(t)
	dto := createDraftQuote(t, h)

	withAdded, err := h.quoteService.AddItems(context.Background(), dto.ID, []domain.QuoteItemInput{
		{Description: "Rebar", Quantity: dec("200"), UnitPrice: dec("25.00")},
	})
	require.NoError(t, err)
	require.Len(t, withAdded.Items, 3)
	assert.Equal(t, 2, withAdded.Items[2].Position)
	assert.Equal(t, "31000.00", withAdded.Subtotal)

	t.Run("remove reindexes positions", func(t *testing.T) {
		removed, err := h.quoteService.RemoveItem(context.Background(), dto.ID, withAdded.Items[0].ID)
		require.NoError(t, err)
		require.Len(t, removed.Items, 2)
		assert.Equal(t, 0, removed.Items[0].Position)
		assert.Equal(t, 1, removed.Items[1].Position)
		assert.Equal(t, "19000.00", removed.Subtotal)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := h.quoteService.RemoveItem(context.Background(), dto.ID, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestQuoteService_SendQuote(t *testing.T) {
	h := newServiceHarness(t)

	t.Run("defaults expiry to thirty days", func(t *testing.T) {
		dto := createDraftQuote(t, h)

		sent, err := h.quoteService.SendQuote(context.Background(), dto.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStatusSent, sent.Status)
		require.NotNil(t, sent.SentAt)
		require.NotNil(t, sent.ExpiresAt)

		expiresAt, err := time.Parse(time.RFC3339, *sent.ExpiresAt)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), expiresAt, time.Minute)

		_, err = h.quoteService.SendQuote(context.Background(), dto.ID)
		assert.ErrorIs(t, err, service.ErrInvalidStateTransition)
	})

	t.Run("keeps explicit expiry", func(t *testing.T) {
		created, err := h.quoteService.CreateQuote(context.Background(), &domain.CreateQuoteRequest{
			Title:     "Quote with deadline",
			ExpiresAt: strPtr("2027-03-01"),
		})
		require.NoError(t, err)

		sent, err := h.quoteService.SendQuote(context.Background(), created.ID)
		require.NoError(t, err)
		require.NotNil(t, sent.ExpiresAt)

		expiresAt, err := time.Parse(time.RFC3339, *sent.ExpiresAt)
		require.NoError(t, err)
		assert.Equal(t, 2027, expiresAt.Year())
		assert.Equal(t, time.March, expiresAt.Month())
	})
}

func TestQuoteService_LockedAfterSend(t *testing.T) {
	h := newServiceHarness(t)
	dto := createDraftQuote(t, h)

	sent, err := h.quoteService.SendQuote(context.Background(), dto.ID)
	require.NoError(t, err)

	items := []domain.QuoteItemInput{{Description: "Late addition", Quantity: dec("1"), UnitPrice: dec("99.00")}}

	t.Run("item mutations rejected", func(t *testing.T) {
		_, err := h.quoteService.UpdateItems(context.Background(), dto.ID, &domain.UpdateQuoteItemsRequest{Items: items})
		assert.ErrorIs(t, err, service.ErrQuoteLocked)

		_, err = h.quoteService.AddItems(context.Background(), dto.ID, items)
		assert.ErrorIs(t, err, service.ErrQuoteLocked)

		_, err = h.quoteService.RemoveItem(context.Background(), dto.ID, sent.Items[0].ID)
		assert.ErrorIs(t, err, service.ErrQuoteLocked)
	})

	t.Run("rate changes rejected", func(t *testing.T) {
		_, err := h.quoteService.UpdateQuote(context.Background(), dto.ID, &domain.UpdateQuoteRequest{
			TaxRate: decPtr("15"),
		})
		assert.ErrorIs(t, err, service.ErrQuoteLocked)
	})

	t.Run("header edits still allowed", func(t *testing.T) {
		updated, err := h.quoteService.UpdateQuote(context.Background(), dto.ID, &domain.UpdateQuoteRequest{
			Notes: strPtr("Client asked for a call before deciding"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Client asked for a call before deciding", updated.Notes)
	})

	t.Run("totals unchanged", func(t *testing.T) {
		unchanged, err := h.quoteService.GetQuote(context.Background(), dto.ID)
		require.NoError(t, err)
		assert.Equal(t, sent.Total, unchanged.Total)
		assert.Len(t, unchanged.Items, len(sent.Items))
	})
}

func TestQuoteService_AcceptAndDecline(t *testing.T) {
	h := newServiceHarness(t)

	t.Run("accept from sent", func(t *testing.T) {
		dto := createDraftQuote(t, h)
		_, err := h.quoteService.SendQuote(context.Background(), dto.ID)
		require.NoError(t, err)

		accepted, err := h.quoteService.AcceptQuote(context.Background(), dto.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStatusAccepted, accepted.Status)
		assert.NotNil(t, accepted.DecidedAt)

		// Terminal statuses admit no further decisions.
		_, err = h.quoteService.DeclineQuote(context.Background(), dto.ID)
		assert.ErrorIs(t, err, service.ErrInvalidStateTransition)
	})

	t.Run("decline from sent", func(t *testing.T) {
		dto := createDraftQuote(t, h)
		_, err := h.quoteService.SendQuote(context.Background(), dto.ID)
		require.NoError(t, err)

		declined, err := h.quoteService.DeclineQuote(context.Background(), dto.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStatusDeclined, declined.Status)
	})

	t.Run("accept from draft rejected", func(t *testing.T) {
		dto := createDraftQuote(t, h)
		_, err := h.quoteService.AcceptQuote(context.Background(), dto.ID)
		assert.ErrorIs(t, err, service.ErrInvalidStateTransition)
	})
}

func TestQuoteService_AdvanceStatus(t *testing.T) {
	h := newServiceHarness(t)
	dto := createDraftQuote(t, h)

	t.Run("unknown status", func(t *testing.T) {
		_, err := h.quoteService.AdvanceStatus(context.Background(), dto.ID, "archived")
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("no transition back to draft", func(t *testing.T) {
		_, err := h.quoteService.AdvanceStatus(context.Background(), dto.ID, domain.QuoteStatusDraft)
		assert.ErrorIs(t, err, service.ErrInvalidStateTransition)
	})

	t.Run("delegates to lifecycle methods", func(t *testing.T) {
		sent, err := h.quoteService.AdvanceStatus(context.Background(), dto.ID, domain.QuoteStatusSent)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStatusSent, sent.Status)
	})
}

func TestQuoteService_DeleteQuote(t *testing.T) {
	h := newServiceHarness(t)

	t.Run("draft deletes", func(t *testing.T) {
		dto := createDraftQuote(t, h)
		require.NoError(t, h.quoteService.DeleteQuote(context.Background(), dto.ID))

		_, err := h.quoteService.GetQuote(context.Background(), dto.ID)
		assert.ErrorIs(t, err, service.ErrQuoteNotFound)
	})

	t.Run("sent is locked", func(t *testing.T) {
		dto := createDraftQuote(t, h)
		_, err := h.quoteService.SendQuote(context.Background(), dto.ID)
		require.NoError(t, err)

		err = h.quoteService.DeleteQuote(context.Background(), dto.ID)
		assert.ErrorIs(t, err, service.ErrQuoteLocked)
	})

	t.Run("missing quote", func(t *testing.T) {
		err := h.quoteService.DeleteQuote(context.Background(), uuid.New())
		assert.ErrorIs(t, err, service.ErrQuoteNotFound)
	})
}

func TestQuoteService_SweepExpired(t *testing.T) {
	h := newServiceHarness(t)

	past := time.Now().Add(-48 * time.Hour)
	expired := &domain.Quote{
		Title:     "Stale offer",
		Status:    domain.QuoteStatusSent,
		ExpiresAt: &past,
	}
	require.NoError(t, h.quoteRepo.Create(context.Background(), expired))

	future := time.Now().Add(72 * time.Hour)
	current := &domain.Quote{
		Title:     "Fresh offer",
		Status:    domain.QuoteStatusSent,
		ExpiresAt: &future,
	}
	require.NoError(t, h.quoteRepo.Create(context.Background(), current))

	marked, err := h.quoteService.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	// Expiry is advisory. The quote stays sent and decidable.
	dto, err := h.quoteService.GetQuote(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusSent, dto.Status)

	activities, err := h.quoteService.ListActivities(context.Background(), expired.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, domain.QuoteActivityExpired, activities[0].Action)
	assert.Equal(t, "system", activities[0].ActorName)

	t.Run("second sweep is a no-op", func(t *testing.T) {
		marked, err := h.quoteService.SweepExpired(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, marked)
	})

	t.Run("expired quote can still be accepted", func(t *testing.T) {
		accepted, err := h.quoteService.AcceptQuote(context.Background(), expired.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStatusAccepted, accepted.Status)
	})
}
