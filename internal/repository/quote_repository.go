package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/domain"
)

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	var quote domain.Quote
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ?", id).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *QuoteRepository) Update(ctx context.Context, quote *domain.Quote) error {
	return r.db.WithContext(ctx).Save(quote).Error
}

func (r *QuoteRepository) List(ctx context.Context, page, pageSize int, projectID *uuid.UUID, status *domain.QuoteStatus) ([]domain.Quote, int64, error) {
	var quotes []domain.Quote
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})

	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&quotes).Error

	return quotes, total, err
}

// ListExpired returns sent quotes whose expiry date has passed.
func (r *QuoteRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.Quote, error) {
	var quotes []domain.Quote
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", domain.QuoteStatusSent, now).
		Order("expires_at ASC").
		Find(&quotes).Error
	return quotes, err
}

// TransitionStatus applies a lifecycle change as a single conditional
// update and reports false when the quote was not in one of the given
// source statuses.
func (r *QuoteRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.QuoteStatus, to domain.QuoteStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReplaceItems swaps the quote's line items and writes the recomputed
// derived totals in one transaction. The quote must carry its new
// items and totals already; only draft quotes are touched, reported
// via the boolean.
func (r *QuoteRepository) ReplaceItems(ctx context.Context, quote *domain.Quote) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Quote{}).
			Where("id = ? AND status = ?", quote.ID, domain.QuoteStatusDraft).
			Updates(map[string]interface{}{
				"subtotal":         quote.Subtotal,
				"tax_amount":       quote.TaxAmount,
				"discount_amount":  quote.DiscountAmount,
				"total":            quote.Total,
				"tax_rate":         quote.TaxRate,
				"discount_percent": quote.DiscountPercent,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if err := tx.Where("quote_id = ?", quote.ID).Delete(&domain.QuoteItem{}).Error; err != nil {
			return err
		}
		if len(quote.Items) > 0 {
			for i := range quote.Items {
				quote.Items[i].QuoteID = quote.ID
			}
			if err := tx.Create(&quote.Items).Error; err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	return applied, err
}

// DeleteDraft removes a quote only while it is still a draft and
// reports whether a row was deleted.
func (r *QuoteRepository) DeleteDraft(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, domain.QuoteStatusDraft).
		Delete(&domain.Quote{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *QuoteRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Quote{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
