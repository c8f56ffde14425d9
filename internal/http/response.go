package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/storage"
)

// JSON views decouple the API surface from the domain types. Amounts are
// rendered as two-decimal strings so clients never round them through
// floats.

type clientsResponse struct {
	Clients []clientView `json:"clients"`
}

type clientView struct {
	Client      string `json:"client"`
	Title       string `json:"title"`
	GeneratedAt string `json:"generated_at"`
	SkippedRows int    `json:"skipped_rows"`
}

func newClientView(run storage.ClientRun) clientView {
	return clientView{
		Client:      run.Client,
		Title:       run.Title,
		GeneratedAt: run.GeneratedAt.UTC().Format(time.RFC3339),
		SkippedRows: run.SkippedRows,
	}
}

type reportView struct {
	Client       string            `json:"client"`
	GeneratedAt  string            `json:"generated_at"`
	SkippedRows  int               `json:"skipped_rows"`
	Monthly      []bucketView      `json:"monthly"`
	Yearly       []bucketView      `json:"yearly"`
	Transactions []transactionView `json:"transactions"`
}

type bucketView struct {
	Bucket string            `json:"bucket"`
	Totals map[string]string `json:"totals"`
	KPI    kpiView           `json:"kpi"`
}

type kpiView struct {
	Revenue string `json:"revenue"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

type transactionView struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

func newReportView(report core.ReportData) reportView {
	view := reportView{
		Client:       report.Client,
		GeneratedAt:  report.GeneratedAt.UTC().Format(time.RFC3339),
		SkippedRows:  report.SkippedRows,
		Monthly:      make([]bucketView, 0, len(report.Monthly)),
		Yearly:       make([]bucketView, 0, len(report.Yearly)),
		Transactions: make([]transactionView, 0, len(report.Transactions)),
	}
	for _, s := range report.Monthly {
		view.Monthly = append(view.Monthly, newBucketView(s))
	}
	for _, s := range report.Yearly {
		view.Yearly = append(view.Yearly, newBucketView(s))
	}
	for _, tx := range report.Transactions {
		view.Transactions = append(view.Transactions, transactionView{
			Date:        tx.Date.Format("2006-01-02"),
			Description: tx.Description,
			Amount:      tx.Amount.StringFixed(2),
			Category:    tx.Category,
		})
	}
	return view
}

func newBucketView(s core.BucketSummary) bucketView {
	totals := make(map[string]string, len(s.Totals))
	for category, amount := range s.Totals {
		totals[category] = amount.StringFixed(2)
	}
	return bucketView{
		Bucket: s.Bucket.String(),
		Totals: totals,
		KPI: kpiView{
			Revenue: s.KPI.Revenue.StringFixed(2),
			Expense: s.KPI.Expense.StringFixed(2),
			Net:     s.KPI.Net.StringFixed(2),
		},
	}
}

type metricsResponse struct {
	Requests      requestStats   `json:"requests"`
	RateLimit     rateLimitStats `json:"rate_limit"`
	Security      securityStats  `json:"security"`
	CachedReports cacheStats     `json:"cached_reports"`
}

type requestStats struct {
	Total                int64 `json:"total"`
	AverageResponseMicro int64 `json:"average_response_micros"`
}

func newRequestStats(m trace.Metrics) requestStats {
	return requestStats{
		Total:                m.TotalRequests,
		AverageResponseMicro: m.AverageResponseTime,
	}
}

type rateLimitStats struct {
	TotalHits   int64 `json:"total_hits"`
	ClientCount int64 `json:"client_count"`
}

func newRateLimitStats(m ratelimit.Metrics) rateLimitStats {
	return rateLimitStats{TotalHits: m.TotalHits, ClientCount: m.ClientCount}
}

type securityStats struct {
	SuspiciousRequests int64 `json:"suspicious_requests"`
	InvalidIPAttempts  int64 `json:"invalid_ip_attempts"`
}

func newSecurityStats(m security.DetectionMetrics) securityStats {
	return securityStats{
		SuspiciousRequests: m.SuspiciousRequests,
		InvalidIPAttempts:  m.InvalidIPAttempts,
	}
}

type cacheStats struct {
	Entries int `json:"entries"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
