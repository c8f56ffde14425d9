package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel is the reserved category assigned to transactions that
// match no rule. It is a real, reportable category, not an error state.
const UncategorizedLabel = "Uncategorized"

type (
	// RawRecord is one untyped input row: column name -> string value.
	// Produced by the ingest layer, consumed once by the normalizer.
	RawRecord map[string]string

	// Transaction is the canonical unit flowing through the pipeline.
	// Negative amounts are expenses, positive amounts are revenue.
	Transaction struct {
		Date        time.Time
		Description string
		Amount      decimal.Decimal
		Category    string // empty until categorization
		SourceRow   string // opaque reference to the originating input row
	}

	// Rule maps a set of keywords to a category label. Matching is
	// case-insensitive substring containment against the description.
	Rule struct {
		Category string   `json:"category"`
		Keywords []string `json:"keywords"`
	}

	// RuleSet is an ordered rule list. Order is priority: the first
	// matching rule wins and later rules are not consulted.
	RuleSet []Rule
)

var (
	ErrMalformedDate            = errors.New("malformed date")
	ErrMalformedAmount          = errors.New("malformed amount")
	ErrInvalidRuleConfig        = errors.New("invalid rule configuration")
	ErrAggregationInconsistency = errors.New("aggregation inconsistency")
)

// Validate checks the rule set once at load time. Duplicate categories are
// permitted (priority order from the configuration source is preserved), but
// empty category labels and empty keyword lists are rejected.
func (rs RuleSet) Validate() error {
	for _, r := range rs {
		if strings.TrimSpace(r.Category) == "" {
			return ErrInvalidRuleConfig
		}
		if len(r.Keywords) == 0 {
			return ErrInvalidRuleConfig
		}
		for _, kw := range r.Keywords {
			if strings.TrimSpace(kw) == "" {
				return ErrInvalidRuleConfig
			}
		}
	}
	return nil
}

// Match returns the category for the given description, or
// UncategorizedLabel if no rule matches.
func (rs RuleSet) Match(description string) string {
	desc := strings.ToLower(description)
	for _, r := range rs {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, strings.ToLower(kw)) {
				return r.Category
			}
		}
	}
	return UncategorizedLabel
}
