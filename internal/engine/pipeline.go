package engine

import (
	"time"

	"bilancio/internal/core"
)

// Pipeline wires the four stages together for one client. Construction
// validates configuration; Run is pure and may be called concurrently for
// different record sets.
type Pipeline struct {
	normalizer  *Normalizer
	categorizer *Categorizer
	now         func() time.Time
}

// NewPipeline builds a pipeline from normalizer configuration and an ordered
// rule set. Rule configuration errors surface here, before any data is seen.
func NewPipeline(cfg NormalizerConfig, rules core.RuleSet) (*Pipeline, error) {
	cat, err := NewCategorizer(rules)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		normalizer:  NewNormalizer(cfg),
		categorizer: cat,
		now:         time.Now,
	}, nil
}

// Run executes normalize -> categorize -> aggregate -> build for one client.
// It always returns either a complete, internally consistent ReportData
// (possibly empty, possibly alongside skipped-row diagnostics) or an error.
func (p *Pipeline) Run(client string, records []core.RawRecord) (core.ReportData, []SkippedRow, error) {
	txs, skipped := p.normalizer.Normalize(records)
	txs = p.categorizer.Categorize(txs)
	monthly, yearly := Aggregate(txs)

	report, err := BuildReport(client, p.now().UTC(), txs, monthly, yearly, len(skipped))
	if err != nil {
		return core.ReportData{}, skipped, err
	}
	return report, skipped, nil
}
