// Package llm holds the contract for model-based report extraction: the
// prompt, the JSON schema the model must follow, and the normalization that
// turns a model response into a Report.
package llm

import (
	"context"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
)

// Extractor produces a Report from report text using a language model.
// The raw model content is returned alongside for diagnostics.
type Extractor interface {
	Extract(ctx context.Context, text string) (*models.Report, []byte, error)
}
