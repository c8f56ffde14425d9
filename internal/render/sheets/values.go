package sheets

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Value assembly is kept separate from the API client so the layout logic
// stays testable without network access. Money is emitted with two decimal
// places; styling is the spreadsheet's concern.

// overviewValues builds the main tab: the report title, an expense breakdown
// across the whole period, and one monthly performance table per year.
func overviewValues(report core.ReportData, title string) [][]interface{} {
	values := [][]interface{}{
		{title},
		{},
		{"Category", "Total"},
	}
	for _, e := range expenseBreakdown(report) {
		values = append(values, []interface{}{e.category, e.total.StringFixed(2)})
	}

	for _, year := range report.Yearly {
		values = append(values,
			[]interface{}{},
			[]interface{}{year.Bucket.String() + " Financial Performance"},
			[]interface{}{"Month", "Revenue", "Expense", "Net"})
		for _, m := range report.Monthly {
			if m.Bucket.Year != year.Bucket.Year {
				continue
			}
			values = append(values, []interface{}{
				monthName(m.Bucket.Month),
				m.KPI.Revenue.StringFixed(2),
				m.KPI.Expense.StringFixed(2),
				m.KPI.Net.StringFixed(2),
			})
		}
		values = append(values, []interface{}{
			"Total",
			year.KPI.Revenue.StringFixed(2),
			year.KPI.Expense.StringFixed(2),
			year.KPI.Net.StringFixed(2),
		})
	}
	return values
}

// chartDataValues builds the year-over-year matrix: one row per calendar
// month, one column per year, cells holding the month's net amount.
func chartDataValues(report core.ReportData) [][]interface{} {
	years := make([]int, 0, len(report.Yearly))
	for _, y := range report.Yearly {
		years = append(years, y.Bucket.Year)
	}
	sort.Ints(years)

	net := make(map[core.Bucket]decimal.Decimal, len(report.Monthly))
	for _, m := range report.Monthly {
		net[m.Bucket] = m.KPI.Net
	}

	header := []interface{}{"Month"}
	for _, y := range years {
		header = append(header, y)
	}
	values := [][]interface{}{header}

	for month := 1; month <= 12; month++ {
		row := []interface{}{monthName(month)}
		for _, y := range years {
			row = append(row, net[core.Bucket{Year: y, Month: month}].StringFixed(2))
		}
		values = append(values, row)
	}
	return values
}

// transactionValues builds the raw drill-down tab.
func transactionValues(report core.ReportData) [][]interface{} {
	values := [][]interface{}{
		{"Date", "Description", "Amount", "Category", "Source Row"},
	}
	for _, t := range report.Transactions {
		values = append(values, []interface{}{
			t.Date.Format("2006-01-02"),
			t.Description,
			t.Amount.StringFixed(2),
			t.Category,
			t.SourceRow,
		})
	}
	return values
}

type categoryTotal struct {
	category string
	total    decimal.Decimal
}

// expenseBreakdown sums each category across the yearly buckets and keeps
// the net-negative ones, largest expense first.
func expenseBreakdown(report core.ReportData) []categoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, y := range report.Yearly {
		for category, total := range y.Totals {
			sums[category] = sums[category].Add(total)
		}
	}

	var out []categoryTotal
	for category, total := range sums {
		if total.Sign() < 0 {
			out = append(out, categoryTotal{category: category, total: total})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].total.Equal(out[j].total) {
			return out[i].total.LessThan(out[j].total)
		}
		return out[i].category < out[j].category
	})
	return out
}

func monthName(month int) string {
	return time.Month(month).String()[:3]
}
