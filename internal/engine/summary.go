package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// consistencyTolerance bounds the allowed difference between a bucket's
// category-total sum and its revenue-minus-expense figure. With decimal
// sums the two are exact; the tolerance only guards the comparison itself.
var consistencyTolerance = decimal.New(1, -9)

// BuildReport assembles the final immutable ReportData from the aggregator
// output, the categorized transaction list and run metadata. It performs no
// computation beyond assembly and a closure self-check: every bucket's
// category totals must sum to its net KPI. A failed check signals a defect
// in the aggregator, not bad input, and is surfaced loudly.
func BuildReport(client string, generatedAt time.Time, txs []core.Transaction,
	monthly, yearly []core.BucketSummary, skippedRows int) (core.ReportData, error) {

	for _, view := range [][]core.BucketSummary{monthly, yearly} {
		for _, s := range view {
			diff := s.Sum().Sub(s.KPI.Net).Abs()
			if diff.Cmp(consistencyTolerance) > 0 {
				return core.ReportData{}, fmt.Errorf(
					"bucket %s: totals sum %s != net %s: %w",
					s.Bucket, s.Sum(), s.KPI.Net, core.ErrAggregationInconsistency)
			}
		}
	}

	return core.ReportData{
		Client:       client,
		GeneratedAt:  generatedAt,
		SkippedRows:  skippedRows,
		Monthly:      monthly,
		Yearly:       yearly,
		Transactions: txs,
	}, nil
}
