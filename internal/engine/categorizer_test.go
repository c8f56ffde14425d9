package engine

import (
	"errors"
	"testing"

	"bilancio/internal/core"
)

func TestNewCategorizerRejectsBadConfig(t *testing.T) {
	_, err := NewCategorizer(core.RuleSet{{Category: "", Keywords: []string{"x"}}})
	if !errors.Is(err, core.ErrInvalidRuleConfig) {
		t.Fatalf("err = %v, want ErrInvalidRuleConfig", err)
	}
}

func TestCategorize(t *testing.T) {
	cat, err := NewCategorizer(core.RuleSet{
		{Category: "Dining", Keywords: []string{"coffee"}},
		{Category: "Software", Keywords: []string{"github", "coffee script"}},
	})
	if err != nil {
		t.Fatalf("NewCategorizer: %v", err)
	}

	txs := cat.Categorize([]core.Transaction{
		{Description: "Coffee Shop"},
		{Description: "GitHub Inc"},
		{Description: "Coffee Script License"}, // overlaps both; first rule wins
		{Description: "Hardware store"},
	})

	want := []string{"Dining", "Software", "Dining", core.UncategorizedLabel}
	for i, w := range want {
		if txs[i].Category != w {
			t.Errorf("txs[%d].Category = %q, want %q", i, txs[i].Category, w)
		}
	}
}

func TestCategorizeEmptyRuleSet(t *testing.T) {
	cat, err := NewCategorizer(nil)
	if err != nil {
		t.Fatalf("empty rule set must be valid: %v", err)
	}
	txs := cat.Categorize([]core.Transaction{{Description: "anything at all"}})
	if txs[0].Category != core.UncategorizedLabel {
		t.Errorf("Category = %q, want %q", txs[0].Category, core.UncategorizedLabel)
	}
}

func TestCategorizeOrderSensitivity(t *testing.T) {
	// Reordering two non-overlapping rules never changes output; reordering
	// two overlapping rules changes which one wins.
	a := core.Rule{Category: "A", Keywords: []string{"alpha"}}
	b := core.Rule{Category: "B", Keywords: []string{"beta"}}
	overlapping := core.Rule{Category: "C", Keywords: []string{"alp"}}

	t.Run("non-overlapping rules are order-independent", func(t *testing.T) {
		for _, rs := range []core.RuleSet{{a, b}, {b, a}} {
			cat, err := NewCategorizer(rs)
			if err != nil {
				t.Fatal(err)
			}
			txs := cat.Categorize([]core.Transaction{{Description: "alpha one"}})
			if txs[0].Category != "A" {
				t.Errorf("rules %v: Category = %q, want A", rs, txs[0].Category)
			}
		}
	})

	t.Run("overlapping rules follow priority order", func(t *testing.T) {
		first, _ := NewCategorizer(core.RuleSet{a, overlapping})
		second, _ := NewCategorizer(core.RuleSet{overlapping, a})

		txs := first.Categorize([]core.Transaction{{Description: "alpha one"}})
		if txs[0].Category != "A" {
			t.Errorf("Category = %q, want A", txs[0].Category)
		}
		txs = second.Categorize([]core.Transaction{{Description: "alpha one"}})
		if txs[0].Category != "C" {
			t.Errorf("Category = %q, want C after reorder", txs[0].Category)
		}
	})
}
