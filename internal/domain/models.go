package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the database does not provide a
// server-side default (the sqlite driver used in tests does not).
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ProjectStatus represents the status of a construction project
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// IsValid checks if the ProjectStatus is a valid enum value
func (ps ProjectStatus) IsValid() bool {
	switch ps {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// Project represents a construction project owning documents and quotes.
// TotalEstimate is written when a cost estimate is generated from the
// project's analyzed documents; nil until the first run.
type Project struct {
	BaseModel
	Name          string           `gorm:"type:varchar(200);not null;index"`
	Description   string           `gorm:"type:text"`
	Address       string           `gorm:"type:varchar(500)"`
	Status        ProjectStatus    `gorm:"type:varchar(50);not null;default:'planning';index"`
	TotalEstimate *decimal.Decimal `gorm:"type:numeric(12,2);column:total_estimate"`
	Documents     []Document       `gorm:"foreignKey:ProjectID"`
	Quotes        []Quote          `gorm:"foreignKey:ProjectID"`
}

// DocumentStatus represents the analysis status of a plan document
type DocumentStatus string

const (
	DocumentStatusNotAnalyzed DocumentStatus = "not_analyzed"
	DocumentStatusPending     DocumentStatus = "pending"
	DocumentStatusAnalyzed    DocumentStatus = "analyzed"
	DocumentStatusFailed      DocumentStatus = "failed"
)

// IsValid checks if the DocumentStatus is a valid enum value
func (ds DocumentStatus) IsValid() bool {
	switch ds {
	case DocumentStatusNotAnalyzed, DocumentStatusPending,
		DocumentStatusAnalyzed, DocumentStatusFailed:
		return true
	}
	return false
}

// documentTransitions is the allowed status transition table.
// A retry from failed goes back through pending.
var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusNotAnalyzed: {DocumentStatusPending},
	DocumentStatusPending:     {DocumentStatusAnalyzed, DocumentStatusFailed},
	DocumentStatusFailed:      {DocumentStatusPending},
	DocumentStatusAnalyzed:    {},
}

// CanTransitionTo reports whether the transition ds -> target is allowed.
func (ds DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	for _, allowed := range documentTransitions[ds] {
		if allowed == target {
			return true
		}
	}
	return false
}

// DocumentTransitionSources returns the statuses a document may be in
// for a transition to target to succeed.
func DocumentTransitionSources(target DocumentStatus) []DocumentStatus {
	var sources []DocumentStatus
	for from, targets := range documentTransitions {
		for _, t := range targets {
			if t == target {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// Document represents an uploaded plan document
type Document struct {
	BaseModel
	Filename        string                  `gorm:"type:varchar(255);not null"`
	ContentType     string                  `gorm:"type:varchar(100);not null;column:content_type"`
	Size            int64                   `gorm:"not null;default:0"`
	StoragePath     string                  `gorm:"type:varchar(500);not null;column:storage_path"`
	ProjectID       *uuid.UUID              `gorm:"type:uuid;column:project_id;index"`
	Project         *Project                `gorm:"foreignKey:ProjectID"`
	Status          DocumentStatus          `gorm:"type:varchar(50);not null;default:'not_analyzed';index"`
	AnalyzedAt      *time.Time              `gorm:"column:analyzed_at"`
	FailureReason   string                  `gorm:"type:text;column:failure_reason"`
	Recommendations pq.StringArray          `gorm:"type:text[]"`
	Elements        []Element               `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	Specifications  []DocumentSpecification `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

// Element represents one construction item detected in a document.
// Most attributes are free-form strings because the analysis service
// extracts them from unstructured drawings.
type Element struct {
	BaseModel
	DocumentID     uuid.UUID        `gorm:"type:uuid;not null;column:document_id;index"`
	Document       *Document        `gorm:"foreignKey:DocumentID"`
	ProjectID      *uuid.UUID       `gorm:"type:uuid;column:project_id;index"`
	Type           string           `gorm:"type:varchar(100);index"`
	Dimensions     string           `gorm:"type:varchar(255)"`
	Materials      string           `gorm:"type:varchar(255)"`
	Quantity       string           `gorm:"type:varchar(100)"`
	Notes          string           `gorm:"type:text"`
	EstimatedPrice *decimal.Decimal `gorm:"type:numeric(12,2);column:estimated_price"`
}

// SpecificationCategory groups specification rows extracted from a document
type SpecificationCategory string

const (
	SpecificationCategoryGeneral    SpecificationCategory = "general"
	SpecificationCategoryStructural SpecificationCategory = "structural"
	SpecificationCategoryElectrical SpecificationCategory = "electrical"
	SpecificationCategoryPlumbing   SpecificationCategory = "plumbing"
	SpecificationCategoryFinish     SpecificationCategory = "finish"
)

// DocumentSpecification represents one key/value requirement extracted
// from an analyzed document
type DocumentSpecification struct {
	BaseModel
	DocumentID uuid.UUID             `gorm:"type:uuid;not null;column:document_id;index"`
	Category   SpecificationCategory `gorm:"type:varchar(50);not null;default:'general'"`
	Key        string                `gorm:"type:varchar(200);not null"`
	Value      string                `gorm:"type:text"`
}

// QuoteStatus represents the lifecycle status of a quotation
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
)

// IsValid checks if the QuoteStatus is a valid enum value
func (qs QuoteStatus) IsValid() bool {
	switch qs {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusDeclined:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (qs QuoteStatus) IsTerminal() bool {
	return qs == QuoteStatusAccepted || qs == QuoteStatusDeclined
}

var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusDraft:    {QuoteStatusSent},
	QuoteStatusSent:     {QuoteStatusAccepted, QuoteStatusDeclined},
	QuoteStatusAccepted: {},
	QuoteStatusDeclined: {},
}

// CanTransitionTo reports whether the transition qs -> target is allowed.
func (qs QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	for _, allowed := range quoteTransitions[qs] {
		if allowed == target {
			return true
		}
	}
	return false
}

// QuoteTransitionSources returns the statuses a quote may be in for a
// transition to target to succeed.
func QuoteTransitionSources(target QuoteStatus) []QuoteStatus {
	var sources []QuoteStatus
	for from, targets := range quoteTransitions {
		for _, t := range targets {
			if t == target {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// Quote represents a priced proposal built from project elements.
// Subtotal, TaxAmount, DiscountAmount and Total are derived fields,
// written only by the pricing engine in the same transaction as the
// mutation that invalidated them.
type Quote struct {
	BaseModel
	Title           string          `gorm:"type:varchar(200);not null"`
	ClientName      string          `gorm:"type:varchar(200);column:client_name"`
	ProjectID       *uuid.UUID      `gorm:"type:uuid;column:project_id;index"`
	Project         *Project        `gorm:"foreignKey:ProjectID"`
	Status          QuoteStatus     `gorm:"type:varchar(50);not null;default:'draft';index"`
	TaxRate         decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0;column:tax_rate"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0;column:discount_percent"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TaxAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0;column:tax_amount"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0;column:discount_amount"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Notes           string          `gorm:"type:text"`
	SentAt          *time.Time      `gorm:"column:sent_at"`
	DecidedAt       *time.Time      `gorm:"column:decided_at"`
	ExpiresAt       *time.Time      `gorm:"column:expires_at"`
	Items           []QuoteItem     `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	Activities      []QuoteActivity `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
}

// QuoteItem represents one priced row within a quote.
// LineTotal is always quantity times unit price rounded to two
// decimals, recomputed by the pricing engine on every mutation.
type QuoteItem struct {
	BaseModel
	QuoteID     uuid.UUID       `gorm:"type:uuid;not null;column:quote_id;index"`
	Quote       *Quote          `gorm:"foreignKey:QuoteID"`
	ElementID   *uuid.UUID      `gorm:"type:uuid;column:element_id"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:1"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0;column:unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0;column:line_total"`
	Position    int             `gorm:"not null;default:0"`
}

// QuoteActivityAction identifies what happened to a quote
type QuoteActivityAction string

const (
	QuoteActivityCreated      QuoteActivityAction = "created"
	QuoteActivityItemsChanged QuoteActivityAction = "items_changed"
	QuoteActivitySent         QuoteActivityAction = "sent"
	QuoteActivityAccepted     QuoteActivityAction = "accepted"
	QuoteActivityDeclined     QuoteActivityAction = "declined"
	QuoteActivityExpired      QuoteActivityAction = "expired"
	QuoteActivityDeleted      QuoteActivityAction = "deleted"
)

// QuoteActivity is an append-only log entry for a quote lifecycle event
type QuoteActivity struct {
	BaseModel
	QuoteID     uuid.UUID           `gorm:"type:uuid;not null;column:quote_id;index"`
	Action      QuoteActivityAction `gorm:"type:varchar(50);not null"`
	Description string              `gorm:"type:text"`
	ActorName   string              `gorm:"type:varchar(200);column:actor_name"`
}
