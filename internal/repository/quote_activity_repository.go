package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/domain"
)

type QuoteActivityRepository struct {
	db *gorm.DB
}

func NewQuoteActivityRepository(db *gorm.DB) *QuoteActivityRepository {
	return &QuoteActivityRepository{db: db}
}

func (r *QuoteActivityRepository) Create(ctx context.Context, activity *domain.QuoteActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *QuoteActivityRepository) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.QuoteActivity, error) {
	var activities []domain.QuoteActivity
	err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("created_at DESC").
		Find(&activities).Error
	return activities, err
}
