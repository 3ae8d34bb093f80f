package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/domain"
)

type ElementRepository struct {
	db *gorm.DB
}

func NewElementRepository(db *gorm.DB) *ElementRepository {
	return &ElementRepository{db: db}
}

// likeEscaper neutralizes LIKE metacharacters so a search term is
// always a literal substring match.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *ElementRepository) CreateBatch(ctx context.Context, elements []domain.Element) error {
	if len(elements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&elements).Error
}

func (r *ElementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Element, error) {
	var element domain.Element
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&element).Error
	if err != nil {
		return nil, err
	}
	return &element, nil
}

func (r *ElementRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Element, error) {
	var elements []domain.Element
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&elements).Error
	return elements, err
}

func (r *ElementRepository) Update(ctx context.Context, element *domain.Element) error {
	return r.db.WithContext(ctx).Save(element).Error
}

func (r *ElementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Element{}, "id = ?", id).Error
}

func (r *ElementRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Element, error) {
	var elements []domain.Element
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&elements).Error
	return elements, err
}

// ListByProject returns the project's element pool filtered by the
// given predicate, in insertion order. Type and materials match
// exactly; the search term matches case-insensitively across type,
// materials, dimensions and notes.
func (r *ElementRepository) ListByProject(ctx context.Context, projectID uuid.UUID, filter domain.ElementFilter) ([]domain.Element, error) {
	var elements []domain.Element

	query := r.db.WithContext(ctx).Where("project_id = ?", projectID)

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Materials != "" {
		query = query.Where("materials = ?", filter.Materials)
	}
	if filter.SearchTerm != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(filter.SearchTerm)) + "%"
		query = query.Where(
			`LOWER(type) LIKE ? ESCAPE '\' OR LOWER(materials) LIKE ? ESCAPE '\' OR LOWER(dimensions) LIKE ? ESCAPE '\' OR LOWER(notes) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern,
		)
	}

	err := query.Order("created_at ASC").Find(&elements).Error
	return elements, err
}

func (r *ElementRepository) DistinctTypes(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).Model(&domain.Element{}).
		Where("project_id = ? AND type <> ''", projectID).
		Distinct().
		Order("type ASC").
		Pluck("type", &types).Error
	return types, err
}
