package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

type bucketAcc struct {
	totals  map[string]decimal.Decimal
	revenue decimal.Decimal
	expense decimal.Decimal // accumulated as a negative sum, reported positive
}

// Aggregate rolls categorized transactions up into monthly and yearly bucket
// summaries. Both views are computed independently from the full transaction
// set with exact decimal sums; the yearly view is never derived by adding up
// monthly summaries. Buckets come back strictly ascending, months 1-12
// within a year regardless of input order. Zero transactions yield empty
// slices.
func Aggregate(txs []core.Transaction) (monthly, yearly []core.BucketSummary) {
	monthlyAcc := make(map[core.Bucket]*bucketAcc)
	yearlyAcc := make(map[core.Bucket]*bucketAcc)

	for _, tx := range txs {
		y, m, _ := tx.Date.Date()
		accumulate(monthlyAcc, core.Bucket{Year: y, Month: int(m)}, tx)
		accumulate(yearlyAcc, core.Bucket{Year: y}, tx)
	}

	return summaries(monthlyAcc), summaries(yearlyAcc)
}

func accumulate(accs map[core.Bucket]*bucketAcc, b core.Bucket, tx core.Transaction) {
	acc := accs[b]
	if acc == nil {
		acc = &bucketAcc{totals: make(map[string]decimal.Decimal)}
		accs[b] = acc
	}
	acc.totals[tx.Category] = acc.totals[tx.Category].Add(tx.Amount)
	switch tx.Amount.Sign() {
	case 1:
		acc.revenue = acc.revenue.Add(tx.Amount)
	case -1:
		acc.expense = acc.expense.Add(tx.Amount)
	}
	// zero amounts count toward category totals only
}

func summaries(accs map[core.Bucket]*bucketAcc) []core.BucketSummary {
	out := make([]core.BucketSummary, 0, len(accs))
	for b, acc := range accs {
		expense := acc.expense.Neg()
		out = append(out, core.BucketSummary{
			Bucket: b,
			Totals: acc.totals,
			KPI: core.KPISet{
				Revenue: acc.revenue,
				Expense: expense,
				Net:     acc.revenue.Sub(expense),
			},
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Bucket.Before(out[j].Bucket)
	})
	return out
}
