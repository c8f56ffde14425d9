package engine

import (
	"fmt"

	"bilancio/internal/core"
)

// Categorizer assigns a category to each transaction using an ordered rule
// set. The rule set is validated once at construction and immutable for the
// lifetime of the categorizer.
type Categorizer struct {
	rules core.RuleSet
}

// NewCategorizer validates the rule set and returns a categorizer. A rule
// configuration error is fatal before any transaction is processed.
func NewCategorizer(rules core.RuleSet) (*Categorizer, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return &Categorizer{rules: rules}, nil
}

// Categorize sets Category on every transaction in place and returns the
// slice. The first matching rule in priority order wins; transactions
// matching no rule receive the Uncategorized label. Deterministic: the same
// rules and descriptions always produce the same assignment.
func (c *Categorizer) Categorize(txs []core.Transaction) []core.Transaction {
	for i := range txs {
		txs[i].Category = c.rules.Match(txs[i].Description)
	}
	return txs
}
