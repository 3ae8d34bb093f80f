package mapper

import (
	"time"

	"github.com/google/uuid"

	"github.com/byggkalk/quotation-api/internal/domain"
)

const isoFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(isoFormat)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToProjectDTO converts Project to ProjectDTO
func ToProjectDTO(project *domain.Project) domain.ProjectDTO {
	dto := domain.ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Address:     project.Address,
		Status:      project.Status,
		CreatedAt:   formatTime(project.CreatedAt),
		UpdatedAt:   formatTime(project.UpdatedAt),
	}

	if project.TotalEstimate != nil {
		estimate := project.TotalEstimate.StringFixed(2)
		dto.TotalEstimate = &estimate
	}

	return dto
}

// ToProjectWithDetailsDTO converts Project with its documents and quotes
func ToProjectWithDetailsDTO(project *domain.Project) domain.ProjectWithDetailsDTO {
	documents := make([]domain.DocumentDTO, len(project.Documents))
	for i, doc := range project.Documents {
		documents[i] = ToDocumentDTO(&doc, len(doc.Elements))
	}

	quotes := make([]domain.QuoteDTO, len(project.Quotes))
	for i, quote := range project.Quotes {
		quotes[i] = ToQuoteDTO(&quote)
	}

	return domain.ProjectWithDetailsDTO{
		ProjectDTO: ToProjectDTO(project),
		Documents:  documents,
		Quotes:     quotes,
	}
}

// ToDocumentDTO converts Document to DocumentDTO. The element count is
// passed in because list endpoints avoid loading full element batches.
func ToDocumentDTO(document *domain.Document, elementCount int) domain.DocumentDTO {
	specifications := make([]domain.SpecificationDTO, len(document.Specifications))
	for i, spec := range document.Specifications {
		specifications[i] = ToSpecificationDTO(&spec)
	}

	return domain.DocumentDTO{
		ID:              document.ID,
		Filename:        document.Filename,
		ContentType:     document.ContentType,
		Size:            document.Size,
		ProjectID:       document.ProjectID,
		Status:          document.Status,
		AnalyzedAt:      formatTimePtr(document.AnalyzedAt),
		FailureReason:   document.FailureReason,
		Recommendations: document.Recommendations,
		Specifications:  specifications,
		ElementCount:    elementCount,
		CreatedAt:       formatTime(document.CreatedAt),
		UpdatedAt:       formatTime(document.UpdatedAt),
	}
}

// ToSpecificationDTO converts DocumentSpecification to SpecificationDTO
func ToSpecificationDTO(spec *domain.DocumentSpecification) domain.SpecificationDTO {
	return domain.SpecificationDTO{
		ID:       spec.ID,
		Category: spec.Category,
		Key:      spec.Key,
		Value:    spec.Value,
	}
}

// ToElementDTO converts Element to ElementDTO
func ToElementDTO(element *domain.Element) domain.ElementDTO {
	dto := domain.ElementDTO{
		ID:         element.ID,
		DocumentID: element.DocumentID,
		ProjectID:  element.ProjectID,
		Type:       element.Type,
		Dimensions: element.Dimensions,
		Materials:  element.Materials,
		Quantity:   element.Quantity,
		Notes:      element.Notes,
		CreatedAt:  formatTime(element.CreatedAt),
		UpdatedAt:  formatTime(element.UpdatedAt),
	}

	if element.EstimatedPrice != nil {
		price := element.EstimatedPrice.StringFixed(2)
		dto.EstimatedPrice = &price
	}

	return dto
}

// ToElementDTOs converts a slice of elements
func ToElementDTOs(elements []domain.Element) []domain.ElementDTO {
	dtos := make([]domain.ElementDTO, len(elements))
	for i, element := range elements {
		dtos[i] = ToElementDTO(&element)
	}
	return dtos
}

// ToElementGroupDTOs converts grouped elements
func ToElementGroupDTOs(groups []domain.ElementGroup) []domain.ElementGroupDTO {
	dtos := make([]domain.ElementGroupDTO, len(groups))
	for i, group := range groups {
		dtos[i] = domain.ElementGroupDTO{
			Key:      group.Key,
			Elements: ToElementDTOs(group.Elements),
		}
	}
	return dtos
}

// ToElementStatisticsDTO converts ElementStatistics to its DTO
func ToElementStatisticsDTO(stats domain.ElementStatistics) domain.ElementStatisticsDTO {
	return domain.ElementStatisticsDTO{
		TotalCount:          stats.TotalCount,
		TypeCounts:          stats.TypeCounts,
		MaterialCounts:      stats.MaterialCounts,
		TotalEstimatedPrice: stats.TotalEstimatedPrice.StringFixed(2),
	}
}

// ToQuoteDTO converts Quote to QuoteDTO
func ToQuoteDTO(quote *domain.Quote) domain.QuoteDTO {
	items := make([]domain.QuoteItemDTO, len(quote.Items))
	for i, item := range quote.Items {
		items[i] = ToQuoteItemDTO(&item)
	}

	activities := make([]domain.QuoteActivityDTO, len(quote.Activities))
	for i, activity := range quote.Activities {
		activities[i] = ToQuoteActivityDTO(&activity)
	}

	return domain.QuoteDTO{
		ID:              quote.ID,
		Title:           quote.Title,
		ClientName:      quote.ClientName,
		ProjectID:       quote.ProjectID,
		Status:          quote.Status,
		TaxRate:         quote.TaxRate.StringFixed(2),
		DiscountPercent: quote.DiscountPercent.StringFixed(2),
		Subtotal:        quote.Subtotal.StringFixed(2),
		TaxAmount:       quote.TaxAmount.StringFixed(2),
		DiscountAmount:  quote.DiscountAmount.StringFixed(2),
		Total:           quote.Total.StringFixed(2),
		Notes:           quote.Notes,
		SentAt:          formatTimePtr(quote.SentAt),
		DecidedAt:       formatTimePtr(quote.DecidedAt),
		ExpiresAt:       formatTimePtr(quote.ExpiresAt),
		Items:           items,
		Activities:      activities,
		CreatedAt:       formatTime(quote.CreatedAt),
		UpdatedAt:       formatTime(quote.UpdatedAt),
	}
}

// ToQuoteItemDTO converts QuoteItem to QuoteItemDTO
func ToQuoteItemDTO(item *domain.QuoteItem) domain.QuoteItemDTO {
	return domain.QuoteItemDTO{
		ID:          item.ID,
		ElementID:   item.ElementID,
		Description: item.Description,
		Quantity:    item.Quantity.String(),
		UnitPrice:   item.UnitPrice.StringFixed(2),
		LineTotal:   item.LineTotal.StringFixed(2),
		Position:    item.Position,
	}
}

// ToProjectEstimateDTO converts a computed estimate to its DTO. The
// filename map resolves document breakdown lines to their filenames.
func ToProjectEstimateDTO(projectID uuid.UUID, estimate domain.ProjectEstimate, filenames map[uuid.UUID]string, generatedAt time.Time) domain.ProjectEstimateDTO {
	byType := make([]domain.EstimateLineDTO, len(estimate.ByElementType))
	for i, line := range estimate.ByElementType {
		byType[i] = domain.EstimateLineDTO{
			Key:  line.Key,
			Cost: line.Cost.StringFixed(2),
		}
	}

	byDocument := make([]domain.DocumentEstimateLineDTO, len(estimate.ByDocument))
	for i, line := range estimate.ByDocument {
		byDocument[i] = domain.DocumentEstimateLineDTO{
			DocumentID: line.DocumentID,
			Filename:   filenames[line.DocumentID],
			Cost:       line.Cost.StringFixed(2),
		}
	}

	return domain.ProjectEstimateDTO{
		ProjectID:       projectID,
		ElementCount:    estimate.ElementCount,
		DirectCost:      estimate.DirectCost.StringFixed(2),
		OverheadPercent: estimate.OverheadPercent.StringFixed(2),
		OverheadCost:    estimate.OverheadCost.StringFixed(2),
		ProfitPercent:   estimate.ProfitPercent.StringFixed(2),
		ProfitAmount:    estimate.ProfitAmount.StringFixed(2),
		TotalCost:       estimate.TotalCost.StringFixed(2),
		ByElementType:   byType,
		ByDocument:      byDocument,
		GeneratedAt:     formatTime(generatedAt),
	}
}

// ToQuoteActivityDTO converts QuoteActivity to QuoteActivityDTO
func ToQuoteActivityDTO(activity *domain.QuoteActivity) domain.QuoteActivityDTO {
	return domain.QuoteActivityDTO{
		ID:          activity.ID,
		QuoteID:     activity.QuoteID,
		Action:      activity.Action,
		Description: activity.Description,
		ActorName:   activity.ActorName,
		CreatedAt:   formatTime(activity.CreatedAt),
	}
}
