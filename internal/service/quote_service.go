package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/auth"
	"github.com/byggkalk/quotation-api/internal/domain"
	"github.com/byggkalk/quotation-api/internal/mapper"
	"github.com/byggkalk/quotation-api/internal/pricing"
	"github.com/byggkalk/quotation-api/internal/repository"
)

// Quotes sent without an explicit expiry date default to this window.
const defaultExpiryDays = 30

// QuoteService manages quote lifecycle and line items. Line items are
// mutable only while the quote is a draft; every item or rate mutation
// recomputes the derived totals in the same transaction.
type QuoteService struct {
	quoteRepo    *repository.QuoteRepository
	activityRepo *repository.QuoteActivityRepository
	projectRepo  *repository.ProjectRepository
	logger       *zap.Logger
}

func NewQuoteService(quoteRepo *repository.QuoteRepository, activityRepo *repository.QuoteActivityRepository, projectRepo *repository.ProjectRepository, logger *zap.Logger) *QuoteService {
	return &QuoteService{
		quoteRepo:    quoteRepo,
		activityRepo: activityRepo,
		projectRepo:  projectRepo,
		logger:       logger,
	}
}

// CreateQuote creates a draft quote and seeds its derived totals
func (s *QuoteService) CreateQuote(ctx context.Context, req *domain.CreateQuoteRequest) (*domain.QuoteDTO, error) {
	if req.ProjectID != nil {
		if _, err := s.projectRepo.GetByID(ctx, *req.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, fmt.Errorf("failed to get project: %w", err)
		}
	}

	items, err := buildQuoteItems(req.Items)
	if err != nil {
		return nil, err
	}

	expiresAt, err := parseExpiry(req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	quote := &domain.Quote{
		Title:           req.Title,
		ClientName:      req.ClientName,
		ProjectID:       req.ProjectID,
		Status:          domain.QuoteStatusDraft,
		TaxRate:         req.TaxRate,
		DiscountPercent: req.DiscountPercent,
		Notes:           req.Notes,
		ExpiresAt:       expiresAt,
		Items:           items,
	}

	if err := pricing.Apply(quote); err != nil {
		return nil, err
	}

	if err := s.quoteRepo.Create(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	s.logActivity(ctx, quote.ID, domain.QuoteActivityCreated,
		fmt.Sprintf("Quote '%s' created with %d line items", quote.Title, len(quote.Items)))

	return s.GetQuote(ctx, quote.ID)
}

// GetQuote returns a quote with its items and activity log
func (s *QuoteService) GetQuote(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	dto := mapper.ToQuoteDTO(quote)
	return &dto, nil
}

// ListQuotes returns quotes filtered by project and status
func (s *QuoteService) ListQuotes(ctx context.Context, page, pageSize int, projectID *uuid.UUID, status *domain.QuoteStatus) ([]domain.QuoteDTO, int64, error) {
	quotes, total, err := s.quoteRepo.List(ctx, page, pageSize, projectID, status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}

	dtos := make([]domain.QuoteDTO, len(quotes))
	for i, quote := range quotes {
		dtos[i] = mapper.ToQuoteDTO(&quote)
	}
	return dtos, total, nil
}

// UpdateQuote edits quote header fields. Tax rate and discount affect
// pricing and are therefore locked once the quote leaves draft; the
// derived totals are recomputed atomically with the rate change.
func (s *QuoteService) UpdateQuote(ctx context.Context, id uuid.UUID, req *domain.UpdateQuoteRequest) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	pricingChange := req.TaxRate != nil || req.DiscountPercent != nil
	if pricingChange && quote.Status != domain.QuoteStatusDraft {
		return nil, ErrQuoteLocked
	}

	if req.Title != nil {
		quote.Title = *req.Title
	}
	if req.ClientName != nil {
		quote.ClientName = *req.ClientName
	}
	if req.Notes != nil {
		quote.Notes = *req.Notes
	}
	if req.ExpiresAt != nil {
		expiresAt, err := parseExpiry(req.ExpiresAt)
		if err != nil {
			return nil, err
		}
		quote.ExpiresAt = expiresAt
	}
	if req.TaxRate != nil {
		quote.TaxRate = *req.TaxRate
	}
	if req.DiscountPercent != nil {
		quote.DiscountPercent = *req.DiscountPercent
	}

	if pricingChange {
		if err := pricing.Apply(quote); err != nil {
			return nil, err
		}
		applied, err := s.quoteRepo.ReplaceItems(ctx, quote)
		if err != nil {
			return nil, fmt.Errorf("failed to update quote: %w", err)
		}
		if !applied {
			return nil, ErrQuoteLocked
		}
	} else {
		if err := s.quoteRepo.Update(ctx, quote); err != nil {
			return nil, fmt.Errorf("failed to update quote: %w", err)
		}
	}

	return s.GetQuote(ctx, id)
}

// UpdateItems replaces the quote's line items. Valid only while the
// quote is a draft; totals are recomputed in the same transaction.
func (s *QuoteService) UpdateItems(ctx context.Context, id uuid.UUID, req *domain.UpdateQuoteItemsRequest) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	if quote.Status != domain.QuoteStatusDraft {
		return nil, ErrQuoteLocked
	}

	items, err := buildQuoteItems(req.Items)
	if err != nil {
		return nil, err
	}

	quote.Items = items
	if err := pricing.Apply(quote); err != nil {
		return nil, err
	}

	applied, err := s.quoteRepo.ReplaceItems(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("failed to replace items: %w", err)
	}
	if !applied {
		return nil, ErrQuoteLocked
	}

	s.logActivity(ctx, id, domain.QuoteActivityItemsChanged,
		fmt.Sprintf("Line items replaced (%d items, total %s)", len(items), quote.Total.StringFixed(2)))

	return s.GetQuote(ctx, id)
}

// AddItems appends line items to a draft quote
func (s *QuoteService) AddItems(ctx context.Context, id uuid.UUID, inputs []domain.QuoteItemInput) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	if quote.Status != domain.QuoteStatusDraft {
		return nil, ErrQuoteLocked
	}

	added, err := buildQuoteItems(inputs)
	if err != nil {
		return nil, err
	}
	for i := range added {
		added[i].Position = len(quote.Items) + i
	}

	quote.Items = append(quote.Items, added...)
	if err := pricing.Apply(quote); err != nil {
		return nil, err
	}

	applied, err := s.quoteRepo.ReplaceItems(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("failed to add items: %w", err)
	}
	if !applied {
		return nil, ErrQuoteLocked
	}

	s.logActivity(ctx, id, domain.QuoteActivityItemsChanged,
		fmt.Sprintf("%d line items added (total %s)", len(added), quote.Total.StringFixed(2)))

	return s.GetQuote(ctx, id)
}

// RemoveItem deletes one line item from a draft quote
func (s *QuoteService) RemoveItem(ctx context.Context, id, itemID uuid.UUID) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	if quote.Status != domain.QuoteStatusDraft {
		return nil, ErrQuoteLocked
	}

	remaining := make([]domain.QuoteItem, 0, len(quote.Items))
	found := false
	for _, item := range quote.Items {
		if item.ID == itemID {
			found = true
			continue
		}
		// Cleared IDs let the replace insert fresh rows.
		item.ID = uuid.Nil
		item.Position = len(remaining)
		remaining = append(remaining, item)
	}
	if !found {
		return nil, fmt.Errorf("%w: line item not found", ErrNotFound)
	}

	quote.Items = remaining
	if err := pricing.Apply(quote); err != nil {
		return nil, err
	}

	applied, err := s.quoteRepo.ReplaceItems(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("failed to remove item: %w", err)
	}
	if !applied {
		return nil, ErrQuoteLocked
	}

	s.logActivity(ctx, id, domain.QuoteActivityItemsChanged,
		fmt.Sprintf("Line item removed (total %s)", quote.Total.StringFixed(2)))

	return s.GetQuote(ctx, id)
}

// SendQuote transitions a draft quote to sent and freezes its line
// items. The expiry date defaults to 30 days after sending when unset.
func (s *QuoteService) SendQuote(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{"sent_at": now}
	if quote.ExpiresAt == nil {
		updates["expires_at"] = now.AddDate(0, 0, defaultExpiryDays)
	}

	applied, err := s.quoteRepo.TransitionStatus(ctx, id,
		domain.QuoteTransitionSources(domain.QuoteStatusSent),
		domain.QuoteStatusSent, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to send quote: %w", err)
	}
	if !applied {
		return nil, s.transitionFailure(ctx, id, domain.QuoteStatusSent)
	}

	s.logActivity(ctx, id, domain.QuoteActivitySent,
		fmt.Sprintf("Quote '%s' sent to client", quote.Title))

	return s.GetQuote(ctx, id)
}

// AcceptQuote records the client's acceptance. Valid only from sent.
func (s *QuoteService) AcceptQuote(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	return s.decide(ctx, id, domain.QuoteStatusAccepted, domain.QuoteActivityAccepted, "Quote accepted by client")
}

// DeclineQuote records the client's decline. Valid only from sent.
func (s *QuoteService) DeclineQuote(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	return s.decide(ctx, id, domain.QuoteStatusDeclined, domain.QuoteActivityDeclined, "Quote declined by client")
}

func (s *QuoteService) decide(ctx context.Context, id uuid.UUID, target domain.QuoteStatus, action domain.QuoteActivityAction, description string) (*domain.QuoteDTO, error) {
	applied, err := s.quoteRepo.TransitionStatus(ctx, id,
		domain.QuoteTransitionSources(target),
		target, map[string]interface{}{"decided_at": time.Now()})
	if err != nil {
		return nil, fmt.Errorf("failed to update quote status: %w", err)
	}
	if !applied {
		return nil, s.transitionFailure(ctx, id, target)
	}

	s.logActivity(ctx, id, action, description)
	return s.GetQuote(ctx, id)
}

// AdvanceStatus validates the requested transition against the state
// table before delegating to the dedicated lifecycle method.
func (s *QuoteService) AdvanceStatus(ctx context.Context, id uuid.UUID, target domain.QuoteStatus) (*domain.QuoteDTO, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, target)
	}

	switch target {
	case domain.QuoteStatusSent:
		return s.SendQuote(ctx, id)
	case domain.QuoteStatusAccepted:
		return s.AcceptQuote(ctx, id)
	case domain.QuoteStatusDeclined:
		return s.DeclineQuote(ctx, id)
	default:
		// No transition leads back to draft.
		return nil, fmt.Errorf("%w: no transition to status %s", ErrInvalidStateTransition, target)
	}
}

// DeleteQuote removes a quote. Permitted only while still a draft.
func (s *QuoteService) DeleteQuote(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.quoteRepo.DeleteDraft(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	if deleted {
		s.logger.Info("quote deleted", zap.String("quoteID", id.String()))
		return nil
	}

	exists, err := s.quoteRepo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check quote: %w", err)
	}
	if !exists {
		return ErrQuoteNotFound
	}
	return ErrQuoteLocked
}

// ListActivities returns the quote's activity log, newest first
func (s *QuoteService) ListActivities(ctx context.Context, id uuid.UUID) ([]domain.QuoteActivityDTO, error) {
	exists, err := s.quoteRepo.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check quote: %w", err)
	}
	if !exists {
		return nil, ErrQuoteNotFound
	}

	activities, err := s.activityRepo.ListByQuote(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	dtos := make([]domain.QuoteActivityDTO, len(activities))
	for i, activity := range activities {
		dtos[i] = mapper.ToQuoteActivityDTO(&activity)
	}
	return dtos, nil
}

// SweepExpired appends an expiry activity to sent quotes whose expiry
// date has passed. Expiry does not change status: accepted and
// declined remain the only terminal decisions, and the client may
// still answer an expired quote.
func (s *QuoteService) SweepExpired(ctx context.Context) (int, error) {
	quotes, err := s.quoteRepo.ListExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired quotes: %w", err)
	}

	marked := 0
	for _, quote := range quotes {
		activities, err := s.activityRepo.ListByQuote(ctx, quote.ID)
		if err != nil {
			return marked, fmt.Errorf("failed to list activities: %w", err)
		}
		alreadyMarked := false
		for _, activity := range activities {
			if activity.Action == domain.QuoteActivityExpired {
				alreadyMarked = true
				break
			}
		}
		if alreadyMarked {
			continue
		}

		s.logActivity(ctx, quote.ID, domain.QuoteActivityExpired,
			fmt.Sprintf("Quote '%s' passed its expiry date without a client decision", quote.Title))
		s.logger.Info("quote expired",
			zap.String("quoteID", quote.ID.String()),
			zap.Timep("expiresAt", quote.ExpiresAt))
		marked++
	}
	return marked, nil
}

func (s *QuoteService) logActivity(ctx context.Context, quoteID uuid.UUID, action domain.QuoteActivityAction, description string) {
	activity := &domain.QuoteActivity{
		QuoteID:     quoteID,
		Action:      action,
		Description: description,
		ActorName:   auth.ActorName(ctx),
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to log quote activity",
			zap.String("quoteID", quoteID.String()),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (s *QuoteService) transitionFailure(ctx context.Context, id uuid.UUID, target domain.QuoteStatus) error {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuoteNotFound
		}
		return fmt.Errorf("failed to get quote: %w", err)
	}
	return fmt.Errorf("%w: cannot move quote from %s to %s", ErrInvalidStateTransition, quote.Status, target)
}

// buildQuoteItems validates inputs and converts them to line items
// with sequential positions. Rejection happens before any mutation.
func buildQuoteItems(inputs []domain.QuoteItemInput) ([]domain.QuoteItem, error) {
	items := make([]domain.QuoteItem, len(inputs))
	for i, input := range inputs {
		if input.Description == "" {
			return nil, fmt.Errorf("%w: line item description is required", ErrInvalidInput)
		}
		if input.Quantity.IsNegative() || input.UnitPrice.IsNegative() {
			return nil, ErrInvalidQuoteParameters
		}
		items[i] = domain.QuoteItem{
			ElementID:   input.ElementID,
			Description: input.Description,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			Position:    i,
		}
	}
	return items, nil
}

// parseExpiry accepts an RFC 3339 timestamp or a plain date
func parseExpiry(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, *value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expiry date %q", ErrInvalidInput, *value)
	}
	return &t, nil
}
