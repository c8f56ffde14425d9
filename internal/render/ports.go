// Package render defines the outbound port for report renderers.
package render

import (
	"context"

	"bilancio/internal/core"
)

// ReportRenderer consumes a complete ReportData and materializes it
// somewhere (a spreadsheet, a test buffer). Renderers must treat the report
// as read-only.
type ReportRenderer interface {
	Render(ctx context.Context, report core.ReportData, title string) error
}
