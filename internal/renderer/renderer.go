// Package renderer composes the receipt pipeline: document model, layout
// and serialization, plus a raster preview of the same layout.
package renderer

import (
	"errors"
	"fmt"

	"github.com/luxstay/receipt-engine/internal/layout"
	"github.com/luxstay/receipt-engine/internal/pdf"
	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
)

// ErrNoDocument is returned when Render or Preview is called with a nil document
var ErrNoDocument = errors.New("no document to render")

// Renderer converts receipt documents to PDF files
type Renderer struct {
	cfg  layout.Config
	opts pdf.Options
}

// Result is a rendered receipt together with the layout it was built from
type Result struct {
	PDF  []byte
	Plan *layout.Plan
}

// New creates a renderer using the given page geometry and serializer options
func New(cfg layout.Config, opts pdf.Options) *Renderer {
	return &Renderer{cfg: cfg, opts: opts}
}

// Config returns the layout configuration used by the renderer
func (r *Renderer) Config() layout.Config {
	return r.cfg
}

// Render lays out doc and serializes it. Truncated layouts are not an
// error; callers can check Result.Plan.Truncated.
func (r *Renderer) Render(doc *receiptdoc.Document) (*Result, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}

	plan := layout.Layout(doc, r.cfg)

	data, err := pdf.Serialize(plan, r.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize receipt: %w", err)
	}

	return &Result{PDF: data, Plan: plan}, nil
}
