package service

import (
	"errors"
	"fmt"

	"github.com/byggkalk/quotation-api/internal/pricing"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidStateTransition is returned when an operation requests a
	// transition not permitted from the entity's current status
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrQuoteLocked is returned when a mutation is attempted on a quote
	// that has advanced past draft
	ErrQuoteLocked = errors.New("quote is locked")

	// ErrInvalidQuoteParameters is returned for negative or malformed
	// tax, discount, quantity or price values. Aliased to the pricing
	// engine's sentinel so errors.Is matches across both layers.
	ErrInvalidQuoteParameters = pricing.ErrInvalidParameters

	// ErrAnalysisFailure is returned when the analysis collaborator
	// reported a failure that could not be recorded on the document
	ErrAnalysisFailure = errors.New("analysis failure")

	// ErrProjectNotFound is returned when a project is not found
	ErrProjectNotFound = fmt.Errorf("project %w", ErrNotFound)

	// ErrDocumentNotFound is returned when a document is not found
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrNotFound)

	// ErrElementNotFound is returned when an element is not found
	ErrElementNotFound = fmt.Errorf("element %w", ErrNotFound)

	// ErrQuoteNotFound is returned when a quote is not found
	ErrQuoteNotFound = fmt.Errorf("quote %w", ErrNotFound)
)
