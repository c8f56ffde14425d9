package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func newTestPipeline(t *testing.T, rules core.RuleSet) *Pipeline {
	t.Helper()
	p, err := NewPipeline(NormalizerConfig{}, rules)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return p
}

// Worked scenario: two Coffee Shop expenses and one client payment across
// January and February 2024, a single "coffee" -> Dining rule.
func TestPipelineScenario(t *testing.T) {
	p := newTestPipeline(t, core.RuleSet{{Category: "Dining", Keywords: []string{"coffee"}}})

	records := []core.RawRecord{
		{"Date": "2024-01-05", "Description": "Coffee Shop", "Amount": "-4.50"},
		{"Date": "2024-01-10", "Description": "Client Payment", "Amount": "2000.00"},
		{"Date": "2024-02-01", "Description": "Coffee Shop", "Amount": "-5.00"},
	}
	report, skipped, err := p.Run("acme", records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skips: %v", skipped)
	}

	if len(report.Monthly) != 2 {
		t.Fatalf("got %d monthly buckets, want 2", len(report.Monthly))
	}

	jan := report.Monthly[0]
	if jan.Bucket != (core.Bucket{Year: 2024, Month: 1}) {
		t.Fatalf("first bucket = %v", jan.Bucket)
	}
	assertDecimal(t, "Jan Dining", jan.Totals["Dining"], "-4.50")
	assertDecimal(t, "Jan Uncategorized", jan.Totals[core.UncategorizedLabel], "2000.00")
	assertDecimal(t, "Jan revenue", jan.KPI.Revenue, "2000")
	assertDecimal(t, "Jan expense", jan.KPI.Expense, "4.50")
	assertDecimal(t, "Jan net", jan.KPI.Net, "1995.50")

	feb := report.Monthly[1]
	assertDecimal(t, "Feb Dining", feb.Totals["Dining"], "-5.00")
	assertDecimal(t, "Feb revenue", feb.KPI.Revenue, "0")
	assertDecimal(t, "Feb expense", feb.KPI.Expense, "5.00")
	assertDecimal(t, "Feb net", feb.KPI.Net, "-5.00")

	if len(report.Yearly) != 1 {
		t.Fatalf("got %d yearly buckets, want 1", len(report.Yearly))
	}
	year := report.Yearly[0]
	assertDecimal(t, "2024 Dining", year.Totals["Dining"], "-9.50")
	assertDecimal(t, "2024 Uncategorized", year.Totals[core.UncategorizedLabel], "2000.00")
	assertDecimal(t, "2024 revenue", year.KPI.Revenue, "2000")
	assertDecimal(t, "2024 expense", year.KPI.Expense, "9.50")
	assertDecimal(t, "2024 net", year.KPI.Net, "1990.50")
}

func TestPipelineIdempotence(t *testing.T) {
	p := newTestPipeline(t, core.RuleSet{{Category: "Dining", Keywords: []string{"coffee"}}})
	records := []core.RawRecord{
		{"Date": "2024-01-05", "Description": "Coffee Shop", "Amount": "-4.50"},
		{"Date": "2024-01-10", "Description": "Client Payment", "Amount": "2000.00"},
	}

	first, _, err := p.Run("acme", records)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := p.Run("acme", records)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical input must yield identical ReportData")
	}
}

func TestPipelineMalformedRowResilience(t *testing.T) {
	p := newTestPipeline(t, core.RuleSet{{Category: "Dining", Keywords: []string{"coffee"}}})
	records := []core.RawRecord{
		{"Date": "2024-01-05", "Description": "Coffee Shop", "Amount": "-4.50"},
		{"Date": "bogus", "Description": "Broken", "Amount": "1.00"},
	}
	report, skipped, err := p.Run("acme", records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(skipped) != 1 {
		t.Fatalf("got %d skipped, want 1", len(skipped))
	}
	if report.SkippedRows != 1 {
		t.Errorf("SkippedRows = %d, want 1", report.SkippedRows)
	}
	if len(report.Transactions) != 1 {
		t.Errorf("Transactions = %d, want 1", len(report.Transactions))
	}
}

func TestPipelineRejectsBadRulesBeforeProcessing(t *testing.T) {
	_, err := NewPipeline(NormalizerConfig{}, core.RuleSet{{Category: "", Keywords: []string{"x"}}})
	if !errors.Is(err, core.ErrInvalidRuleConfig) {
		t.Fatalf("err = %v, want ErrInvalidRuleConfig", err)
	}
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}
