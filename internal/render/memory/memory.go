// Package memory provides an in-memory report renderer used in tests and as
// the default when no spreadsheet credentials are configured.
package memory

import (
	"context"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/render"
)

type rendered struct {
	Report core.ReportData
	Title  string
}

type Renderer struct {
	mu    sync.Mutex
	items []rendered
}

var _ render.ReportRenderer = (*Renderer)(nil)

func New() *Renderer {
	return &Renderer{}
}

// Render records the report. Safe for concurrent use.
func (r *Renderer) Render(_ context.Context, report core.ReportData, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, rendered{Report: report, Title: title})
	return nil
}

// Rendered returns a copy of everything rendered so far.
func (r *Renderer) Rendered() []core.ReportData {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.ReportData, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it.Report)
	}
	return out
}

// LastTitle returns the title of the most recent render, or "".
func (r *Renderer) LastTitle() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return ""
	}
	return r.items[len(r.items)-1].Title
}
