package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/domain"
)

func toStringArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, document *domain.Document) error {
	return r.db.WithContext(ctx).Create(document).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var document domain.Document
	err := r.db.WithContext(ctx).
		Preload("Specifications").
		Where("id = ?", id).
		First(&document).Error
	if err != nil {
		return nil, err
	}
	return &document, nil
}

func (r *DocumentRepository) GetWithElements(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var document domain.Document
	err := r.db.WithContext(ctx).
		Preload("Elements", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Specifications").
		Where("id = ?", id).
		First(&document).Error
	if err != nil {
		return nil, err
	}
	return &document, nil
}

func (r *DocumentRepository) Update(ctx context.Context, document *domain.Document) error {
	return r.db.WithContext(ctx).Save(document).Error
}

func (r *DocumentRepository) List(ctx context.Context, page, pageSize int, projectID *uuid.UUID, status *domain.DocumentStatus) ([]domain.Document, int64, error) {
	var documents []domain.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Document{})

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
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&documents).Error

	return documents, total, err
}

// ListAnalyzedByProject returns all of a project's analyzed documents,
// unpaged; estimation walks the full set.
func (r *DocumentRepository) ListAnalyzedByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Document, error) {
	var documents []domain.Document
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, domain.DocumentStatusAnalyzed).
		Order("created_at ASC").
		Find(&documents).Error
	return documents, err
}

func (r *DocumentRepository) CountElements(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Element{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return int(count), err
}

// TransitionStatus applies a status change as a single conditional
// update. It reports false when the document was not in one of the
// given source statuses, so a transition can never succeed from a
// state that was valid only momentarily.
func (r *DocumentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.DocumentStatus, to domain.DocumentStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SaveAnalysisResult atomically moves a pending document to analyzed
// and persists the produced elements, specifications and
// recommendations. When replace is set, element batches from earlier
// analysis runs are removed in the same transaction. Reports false
// without side effects when the document was not pending.
func (r *DocumentRepository) SaveAnalysisResult(ctx context.Context, id uuid.UUID, analyzedAt time.Time, elements []domain.Element, specifications []domain.DocumentSpecification, recommendations []string, replace bool) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Document{}).
			Where("id = ? AND status = ?", id, domain.DocumentStatusPending).
			Updates(map[string]interface{}{
				"status":          domain.DocumentStatusAnalyzed,
				"analyzed_at":     analyzedAt,
				"failure_reason":  "",
				"recommendations": toStringArray(recommendations),
				"updated_at":      time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if replace {
			if err := tx.Where("document_id = ?", id).Delete(&domain.Element{}).Error; err != nil {
				return err
			}
		}
		// Specification rows are always replaced; they describe the
		// document as a whole, not one analysis batch.
		if err := tx.Where("document_id = ?", id).Delete(&domain.DocumentSpecification{}).Error; err != nil {
			return err
		}

		if len(elements) > 0 {
			for i := range elements {
				elements[i].DocumentID = id
			}
			if err := tx.Create(&elements).Error; err != nil {
				return err
			}
		}
		if len(specifications) > 0 {
			for i := range specifications {
				specifications[i].DocumentID = id
			}
			if err := tx.Create(&specifications).Error; err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	return applied, err
}
