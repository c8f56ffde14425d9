package http

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

const clientsCacheKey = "clients"

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListClients(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleClients lists clients with a stored report run.
func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	runs, ok := s.clientsCache.Get(clientsCacheKey)
	if !ok {
		var err error
		runs, err = s.store.ListClients(r.Context())
		if err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list clients",
				applog.FieldError, err)
			writeError(w, http.StatusInternalServerError, "failed to list clients")
			return
		}
		s.clientsCache.Set(clientsCacheKey, runs)
	}

	clients := make([]clientView, 0, len(runs))
	for _, run := range runs {
		clients = append(clients, newClientView(run))
	}
	writeJSON(w, http.StatusOK, clientsResponse{Clients: clients})
}

// handleReport returns one client's stored report, optionally narrowed to a
// year or a single month via ?year= and ?month= query parameters.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	client := r.PathValue("client")

	year, month, err := parseBucketFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, ok := s.reportCache.Get(client)
	if !ok {
		report, err = s.store.GetReport(r.Context(), client)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no report for client "+client)
			return
		}
		if err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load report",
				applog.FieldClient, client,
				applog.FieldError, err)
			writeError(w, http.StatusInternalServerError, "failed to load report")
			return
		}
		s.reportCache.Set(client, report)
	}

	writeJSON(w, http.StatusOK, newReportView(filterReport(report, year, month)))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metricsResponse{
		Requests:  newRequestStats(s.tracer.GetMetrics()),
		RateLimit: newRateLimitStats(s.limiter.GetMetrics()),
		Security:  newSecurityStats(s.detector.GetMetrics()),
		CachedReports: cacheStats{
			Entries: s.reportCache.Size(),
		},
	})
}

// parseBucketFilter reads the optional year and month query parameters. A
// month without a year is rejected.
func parseBucketFilter(r *http.Request) (year, month int, err error) {
	q := r.URL.Query()

	if v := q.Get("year"); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil || year < 1 {
			return 0, 0, errors.New("invalid year parameter")
		}
	}
	if v := q.Get("month"); v != "" {
		month, err = strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return 0, 0, errors.New("invalid month parameter")
		}
		if year == 0 {
			return 0, 0, errors.New("month parameter requires year")
		}
	}
	return year, month, nil
}

// filterReport narrows a report to the requested buckets. With year == 0 the
// report passes through unchanged; with month == 0 all months of the year are
// kept alongside the yearly roll-up.
func filterReport(report core.ReportData, year, month int) core.ReportData {
	if year == 0 {
		return report
	}

	var monthly []core.BucketSummary
	for _, s := range report.Monthly {
		if s.Bucket.Year != year {
			continue
		}
		if month != 0 && s.Bucket.Month != month {
			continue
		}
		monthly = append(monthly, s)
	}

	var yearly []core.BucketSummary
	if month == 0 {
		for _, s := range report.Yearly {
			if s.Bucket.Year == year {
				yearly = append(yearly, s)
			}
		}
	}

	var txs []core.Transaction
	for _, tx := range report.Transactions {
		if tx.Date.Year() != year {
			continue
		}
		if month != 0 && int(tx.Date.Month()) != month {
			continue
		}
		txs = append(txs, tx)
	}

	filtered := report
	filtered.Monthly = monthly
	filtered.Yearly = yearly
	filtered.Transactions = txs
	return filtered
}
