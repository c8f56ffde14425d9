package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Bucket identifies one aggregation period. Month is 1-12 for monthly
	// buckets and 0 for the yearly roll-up.
	Bucket struct {
		Year  int
		Month int
	}

	// KPISet holds the derived scalars for one bucket. Net is always
	// recomputed as Revenue minus Expense, never stored independently.
	KPISet struct {
		Revenue decimal.Decimal
		Expense decimal.Decimal
		Net     decimal.Decimal
	}

	// BucketSummary is one bucket with its per-category totals and KPIs.
	// Totals are sparse: categories without transactions are absent.
	BucketSummary struct {
		Bucket Bucket
		Totals map[string]decimal.Decimal
		KPI    KPISet
	}

	// ReportData is the engine's complete, immutable output for one client
	// run. Renderers receive it by value and must not mutate it.
	ReportData struct {
		Client       string
		GeneratedAt  time.Time
		SkippedRows  int
		Monthly      []BucketSummary
		Yearly       []BucketSummary
		Transactions []Transaction
	}
)

// Before reports whether b sorts chronologically before other.
// Yearly buckets (Month 0) sort before that year's monthly buckets.
func (b Bucket) Before(other Bucket) bool {
	if b.Year != other.Year {
		return b.Year < other.Year
	}
	return b.Month < other.Month
}

// IsYearly reports whether the bucket is a yearly roll-up.
func (b Bucket) IsYearly() bool {
	return b.Month == 0
}

func (b Bucket) String() string {
	if b.IsYearly() {
		return fmt.Sprintf("%04d", b.Year)
	}
	return fmt.Sprintf("%04d-%02d", b.Year, b.Month)
}

// Sum returns the sum of all category totals in the bucket.
func (s BucketSummary) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s.Totals {
		total = total.Add(v)
	}
	return total
}
