package ml

import (
	"context"
	"fmt"
	"log"

	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/models"
)

// Analyzer runs the scan pipeline: prompt, one model call, envelope
// extraction, normalization and decoding. It holds no per-request state and
// is safe for concurrent use.
type Analyzer struct {
	model Model
	debug bool
}

// NewAnalyzer creates an analyzer over a loaded model
func NewAnalyzer(model Model, debug bool) *Analyzer {
	return &Analyzer{model: model, debug: debug}
}

// Scan produces the sustainability report for one product image
func (a *Analyzer) Scan(ctx context.Context, req models.ScanRequest) (*models.ProductDetails, error) {
	if len(req.ImageData) == 0 {
		return nil, fmt.Errorf("%w: image data cannot be empty", ErrInvalidInput)
	}

	mimeType := PickMIME(req.MimeType, "", req.ImageData)
	prompt := BuildAnalysisPrompt(req.Prompt)

	answer, err := a.model.Generate(ctx, req.ImageData, mimeType, prompt)
	if err != nil {
		log.Printf("Error calling %s model: %v", a.model.Name(), err)
		return nil, fmt.Errorf("failed to analyze product: %w", err)
	}
	a.debugf("Extracted answer text (%d chars)", len(answer))

	canonical := NormalizeAnswer(answer)
	a.debugf("Final cleaned JSON response before final parsing: >>>%s<<<", canonical)

	details, err := DecodeProductDetails(canonical)
	if err != nil {
		log.Printf("Error parsing JSON from cleaned %s response: %v", a.model.Name(), err)
		a.debugf("Cleaned response was: %q", canonical)
		return nil, fmt.Errorf("failed to analyze product: %w", err)
	}

	if fields := details.OutOfRange(); len(fields) > 0 {
		log.Printf("Model returned out-of-range values for %v; passing through unchanged", fields)
	}
	return details, nil
}

func (a *Analyzer) debugf(format string, args ...any) {
	if a.debug {
		log.Printf(format, args...)
	}
}
