// Package engine implements the report pipeline: normalization of raw
// transaction rows, rule-based categorization, time-bucketed aggregation and
// report assembly. The pipeline is pure and synchronous; each run holds only
// data local to that call, so callers may process clients concurrently.
package engine

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// ColumnMapping lists candidate source columns per canonical field.
// Candidates are tried in order; the first non-empty value wins.
type ColumnMapping struct {
	Date        []string `json:"date"`
	Description []string `json:"description"`
	Amount      []string `json:"amount"`
}

// DefaultColumnMapping returns the documented default column names.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Date:        []string{"Date"},
		Description: []string{"Description", "Memo"},
		Amount:      []string{"Amount", "Cost"},
	}
}

// DefaultDateFormats are tried in order during date parsing.
var DefaultDateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
}

// NormalizerConfig configures column mapping, accepted date formats and the
// sign convention of the source file.
type NormalizerConfig struct {
	Columns     ColumnMapping
	DateFormats []string

	// InvertSign flips the sign of every parsed amount. Set it for exports
	// that record expenses as positive magnitudes; the engine convention is
	// negative = expense, positive = revenue.
	InvertSign bool
}

// SkippedRow records one rejected input row and the reason.
type SkippedRow struct {
	Row string
	Err error
}

// Normalizer converts heterogeneous raw rows into canonical transactions.
type Normalizer struct {
	cfg NormalizerConfig
}

// NewNormalizer creates a normalizer, filling in defaults for any unset
// column candidates or date formats.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	def := DefaultColumnMapping()
	if len(cfg.Columns.Date) == 0 {
		cfg.Columns.Date = def.Date
	}
	if len(cfg.Columns.Description) == 0 {
		cfg.Columns.Description = def.Description
	}
	if len(cfg.Columns.Amount) == 0 {
		cfg.Columns.Amount = def.Amount
	}
	if len(cfg.DateFormats) == 0 {
		cfg.DateFormats = DefaultDateFormats
	}
	return &Normalizer{cfg: cfg}
}

// Normalize converts records into transactions, preserving input order.
// Malformed rows never abort the run: each is skipped and reported in the
// returned diagnostics with its row reference and reason.
func (n *Normalizer) Normalize(records []core.RawRecord) ([]core.Transaction, []SkippedRow) {
	txs := make([]core.Transaction, 0, len(records))
	var skipped []SkippedRow

	for i, rec := range records {
		ref := fmt.Sprintf("row %d", i+1)
		tx, err := n.normalizeOne(rec, ref)
		if err != nil {
			skipped = append(skipped, SkippedRow{Row: ref, Err: err})
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped
}

func (n *Normalizer) normalizeOne(rec core.RawRecord, ref string) (core.Transaction, error) {
	rawDate := firstNonEmpty(rec, n.cfg.Columns.Date)
	date, err := n.parseDate(rawDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%s %q: %w", ref, rawDate, err)
	}

	rawAmount := firstNonEmpty(rec, n.cfg.Columns.Amount)
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%s %q: %w", ref, rawAmount, err)
	}
	if n.cfg.InvertSign {
		amount = amount.Neg()
	}

	return core.Transaction{
		Date:        date,
		Description: firstNonEmpty(rec, n.cfg.Columns.Description),
		Amount:      amount,
		SourceRow:   ref,
	}, nil
}

func (n *Normalizer) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, core.ErrMalformedDate
	}
	for _, layout := range n.cfg.DateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, core.ErrMalformedDate
}

// parseAmount strips currency symbols and grouping separators and parses the
// remainder as an exact decimal. Both "1,234.56" and "1.234,56" styles are
// accepted; a single comma with one or two trailing digits is treated as a
// decimal comma ("12,34"), otherwise commas are grouping separators.
// Parenthesized values are negative, accounting style.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, core.ErrMalformedAmount
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '+', r == '-':
			b.WriteRune(r)
		case r == '$' || r == '€' || r == '£' || r == '¥' || unicode.IsSpace(r):
			// currency symbols and spacing are noise
		default:
			return decimal.Decimal{}, core.ErrMalformedAmount
		}
	}
	s = b.String()

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			// 1.234,56 style: dots group, comma is the decimal separator
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// 1,234.56 style: commas group
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-comma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, core.ErrMalformedAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

func firstNonEmpty(rec core.RawRecord, columns []string) string {
	for _, col := range columns {
		if v := strings.TrimSpace(rec[col]); v != "" {
			return v
		}
	}
	return ""
}
