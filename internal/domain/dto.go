package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for API responses. Timestamps are ISO 8601 strings; monetary
// values are fixed two-decimal strings to keep clients currency-safe.

type ProjectDTO struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Address       string        `json:"address,omitempty"`
	Status        ProjectStatus `json:"status"`
	TotalEstimate *string       `json:"totalEstimate,omitempty"`
	CreatedAt     string        `json:"createdAt"` // ISO 8601
	UpdatedAt     string        `json:"updatedAt"` // ISO 8601
}

// ProjectWithDetailsDTO includes project data with owned entities
type ProjectWithDetailsDTO struct {
	ProjectDTO
	Documents []DocumentDTO `json:"documents,omitempty"`
	Quotes    []QuoteDTO    `json:"quotes,omitempty"`
}

type DocumentDTO struct {
	ID              uuid.UUID          `json:"id"`
	Filename        string             `json:"filename"`
	ContentType     string             `json:"contentType"`
	Size            int64              `json:"size"`
	ProjectID       *uuid.UUID         `json:"projectId,omitempty"`
	Status          DocumentStatus     `json:"status"`
	AnalyzedAt      *string            `json:"analyzedAt,omitempty"`
	FailureReason   string             `json:"failureReason,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
	Specifications  []SpecificationDTO `json:"specifications,omitempty"`
	ElementCount    int                `json:"elementCount"`
	CreatedAt       string             `json:"createdAt"`
	UpdatedAt       string             `json:"updatedAt"`
}

type SpecificationDTO struct {
	ID       uuid.UUID             `json:"id"`
	Category SpecificationCategory `json:"category"`
	Key      string                `json:"key"`
	Value    string                `json:"value,omitempty"`
}

type ElementDTO struct {
	ID             uuid.UUID  `json:"id"`
	DocumentID     uuid.UUID  `json:"documentId"`
	ProjectID      *uuid.UUID `json:"projectId,omitempty"`
	Type           string     `json:"type,omitempty"`
	Dimensions     string     `json:"dimensions,omitempty"`
	Materials      string     `json:"materials,omitempty"`
	Quantity       string     `json:"quantity,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	EstimatedPrice *string    `json:"estimatedPrice,omitempty"`
	CreatedAt      string     `json:"createdAt"`
	UpdatedAt      string     `json:"updatedAt"`
}

// ElementGroupDTO is one bucket of a grouped element listing
type ElementGroupDTO struct {
	Key      string       `json:"key"`
	Elements []ElementDTO `json:"elements"`
}

// ElementStatisticsDTO summarizes a project's element pool
type ElementStatisticsDTO struct {
	TotalCount          int        `json:"totalCount"`
	TypeCounts          []KeyCount `json:"typeCounts"`
	MaterialCounts      []KeyCount `json:"materialCounts"`
	TotalEstimatedPrice string     `json:"totalEstimatedPrice"`
}

type QuoteDTO struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	ClientName      string             `json:"clientName,omitempty"`
	ProjectID       *uuid.UUID         `json:"projectId,omitempty"`
	Status          QuoteStatus        `json:"status"`
	TaxRate         string             `json:"taxRate"`
	DiscountPercent string             `json:"discountPercent"`
	Subtotal        string             `json:"subtotal"`
	TaxAmount       string             `json:"taxAmount"`
	DiscountAmount  string             `json:"discountAmount"`
	Total           string             `json:"total"`
	Notes           string             `json:"notes,omitempty"`
	SentAt          *string            `json:"sentAt,omitempty"`
	DecidedAt       *string            `json:"decidedAt,omitempty"`
	ExpiresAt       *string            `json:"expiresAt,omitempty"`
	Items           []QuoteItemDTO     `json:"items"`
	Activities      []QuoteActivityDTO `json:"activities,omitempty"`
	CreatedAt       string             `json:"createdAt"`
	UpdatedAt       string             `json:"updatedAt"`
}

type QuoteItemDTO struct {
	ID          uuid.UUID  `json:"id"`
	ElementID   *uuid.UUID `json:"elementId,omitempty"`
	Description string     `json:"description"`
	Quantity    string     `json:"quantity"`
	UnitPrice   string     `json:"unitPrice"`
	LineTotal   string     `json:"lineTotal"`
	Position    int        `json:"position"`
}

type QuoteActivityDTO struct {
	ID          uuid.UUID           `json:"id"`
	QuoteID     uuid.UUID           `json:"quoteId"`
	Action      QuoteActivityAction `json:"action"`
	Description string              `json:"description,omitempty"`
	ActorName   string              `json:"actorName,omitempty"`
	CreatedAt   string              `json:"createdAt"`
}

// ProjectEstimateDTO is a cost estimate computed over the elements of
// a project's analyzed documents
type ProjectEstimateDTO struct {
	ProjectID       uuid.UUID                 `json:"projectId"`
	ElementCount    int                       `json:"elementCount"`
	DirectCost      string                    `json:"directCost"`
	OverheadPercent string                    `json:"overheadPercent"`
	OverheadCost    string                    `json:"overheadCost"`
	ProfitPercent   string                    `json:"profitPercent"`
	ProfitAmount    string                    `json:"profitAmount"`
	TotalCost       string                    `json:"totalCost"`
	ByElementType   []EstimateLineDTO         `json:"byElementType"`
	ByDocument      []DocumentEstimateLineDTO `json:"byDocument"`
	GeneratedAt     string                    `json:"generatedAt"`
}

// EstimateLineDTO is one element-type line of an estimate breakdown
type EstimateLineDTO struct {
	Key  string `json:"key"`
	Cost string `json:"cost"`
}

// DocumentEstimateLineDTO is one source-document line of an estimate
// breakdown
type DocumentEstimateLineDTO struct {
	DocumentID uuid.UUID `json:"documentId"`
	Filename   string    `json:"filename,omitempty"`
	Cost       string    `json:"cost"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Request DTOs. Monetary and percentage inputs use decimal.Decimal so
// clients may send numbers or strings; range checks happen in the
// service layer before any mutation is applied.

type CreateProjectRequest struct {
	Name        string        `json:"name" validate:"required,max=200"`
	Description string        `json:"description,omitempty"`
	Address     string        `json:"address,omitempty" validate:"max=500"`
	Status      ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
}

type UpdateProjectRequest struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string        `json:"description,omitempty"`
	Address     *string        `json:"address,omitempty" validate:"omitempty,max=500"`
	Status      *ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
}

type UpdateElementRequest struct {
	Type           *string          `json:"type,omitempty" validate:"omitempty,max=100"`
	Dimensions     *string          `json:"dimensions,omitempty" validate:"omitempty,max=255"`
	Materials      *string          `json:"materials,omitempty" validate:"omitempty,max=255"`
	Quantity       *string          `json:"quantity,omitempty" validate:"omitempty,max=100"`
	Notes          *string          `json:"notes,omitempty"`
	EstimatedPrice *decimal.Decimal `json:"estimatedPrice,omitempty"`
}

type CreateQuoteRequest struct {
	Title           string           `json:"title" validate:"required,max=200"`
	ClientName      string           `json:"clientName,omitempty" validate:"max=200"`
	ProjectID       *uuid.UUID       `json:"projectId,omitempty"`
	TaxRate         decimal.Decimal  `json:"taxRate"`
	DiscountPercent decimal.Decimal  `json:"discountPercent"`
	Notes           string           `json:"notes,omitempty"`
	ExpiresAt       *string          `json:"expiresAt,omitempty"`
	Items           []QuoteItemInput `json:"items,omitempty" validate:"dive"`
}

type UpdateQuoteRequest struct {
	Title           *string          `json:"title,omitempty" validate:"omitempty,max=200"`
	ClientName      *string          `json:"clientName,omitempty" validate:"omitempty,max=200"`
	TaxRate         *decimal.Decimal `json:"taxRate,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	ExpiresAt       *string          `json:"expiresAt,omitempty"`
}

// QuoteItemInput is one requested line item
type QuoteItemInput struct {
	ElementID   *uuid.UUID      `json:"elementId,omitempty"`
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type UpdateQuoteItemsRequest struct {
	Items []QuoteItemInput `json:"items" validate:"required,dive"`
}

type AdvanceQuoteStatusRequest struct {
	Status QuoteStatus `json:"status" validate:"required,oneof=draft sent accepted declined"`
}

type GenerateQuoteRequest struct {
	Title           string          `json:"title" validate:"required,max=200"`
	ClientName      string          `json:"clientName,omitempty" validate:"max=200"`
	ElementIDs      []uuid.UUID     `json:"elementIds" validate:"required,min=1"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Notes           string          `json:"notes,omitempty"`
}

// GenerateEstimateRequest optionally overrides the default overhead
// and profit percentages of a project estimate
type GenerateEstimateRequest struct {
	OverheadPercent *decimal.Decimal `json:"overheadPercent,omitempty"`
	ProfitPercent   *decimal.Decimal `json:"profitPercent,omitempty"`
}

// CompleteAnalysisRequest carries an analysis result delivered by the
// analysis collaborator's callback
type CompleteAnalysisRequest struct {
	Elements        []AnalyzedElementInput       `json:"elements"`
	Specifications  []AnalyzedSpecificationInput `json:"specifications,omitempty"`
	Recommendations []string                     `json:"recommendations,omitempty"`
	ReplaceElements bool                         `json:"replaceElements,omitempty"`
}

type AnalyzedElementInput struct {
	Type           string           `json:"type,omitempty" validate:"max=100"`
	Dimensions     string           `json:"dimensions,omitempty" validate:"max=255"`
	Materials      string           `json:"materials,omitempty" validate:"max=255"`
	Quantity       string           `json:"quantity,omitempty" validate:"max=100"`
	Notes          string           `json:"notes,omitempty"`
	EstimatedPrice *decimal.Decimal `json:"estimatedPrice,omitempty"`
}

type AnalyzedSpecificationInput struct {
	Category SpecificationCategory `json:"category,omitempty"`
	Key      string                `json:"key" validate:"required,max=200"`
	Value    string                `json:"value,omitempty"`
}

// FailAnalysisRequest records an analysis failure reported externally
type FailAnalysisRequest struct {
	Reason string `json:"reason" validate:"required"`
}
