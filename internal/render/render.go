// Package render produces client-deliverable representations of
// finalized quotes. Rendering consumes the quote's derived totals as
// read-only input; the delivery document format itself (PDF, HTML) is
// owned by an external service consuming these snapshots.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/byggkalk/quotation-api/internal/domain"
)

// Renderer turns a quote into an export payload
type Renderer interface {
	RenderQuote(ctx context.Context, quote *domain.QuoteDTO) ([]byte, string, error)
}

// Snapshot is the export envelope around a quote
type Snapshot struct {
	GeneratedAt string          `json:"generatedAt"`
	Quote       domain.QuoteDTO `json:"quote"`
}

// JSONRenderer renders quotes as indented JSON snapshots
type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// RenderQuote returns the snapshot bytes and their content type
func (r *JSONRenderer) RenderQuote(ctx context.Context, quote *domain.QuoteDTO) ([]byte, string, error) {
	snapshot := Snapshot{
		GeneratedAt: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Quote:       *quote,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to render quote: %w", err)
	}
	return data, "application/json", nil
}
