// Package analysis defines the document analysis collaborator. The
// actual analysis (element extraction from construction drawings) runs
// in an external service; the engine invokes it once per analysis
// start and records the outcome on the document.
package analysis

import (
	"context"

	"github.com/byggkalk/quotation-api/internal/domain"
)

// Result is a successful analysis outcome for one document.
type Result struct {
	Elements        []domain.AnalyzedElementInput       `json:"elements"`
	Specifications  []domain.AnalyzedSpecificationInput `json:"specifications,omitempty"`
	Recommendations []string                            `json:"recommendations,omitempty"`
}

// Failure reports that the collaborator analyzed the document and
// could not produce a result. It is an expected outcome, recorded into
// document state rather than treated as an infrastructure error.
type Failure struct {
	Reason string `json:"reason"`
}

func (f *Failure) Error() string {
	return "analysis failed: " + f.Reason
}

// Analyzer is the external analysis collaborator. Analyze blocks until
// the service responds or ctx is cancelled; transport errors are
// returned as ordinary errors, analysis rejections as *Failure.
type Analyzer interface {
	Analyze(ctx context.Context, locator, filename, contentType string) (*Result, error)
}
