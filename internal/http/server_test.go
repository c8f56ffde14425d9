package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type fakeStore struct {
	runs    []storage.ClientRun
	reports map[string]core.ReportData

	listCalls int
}

func (f *fakeStore) ListClients(ctx context.Context) ([]storage.ClientRun, error) {
	f.listCalls++
	return f.runs, nil
}

func (f *fakeStore) GetReport(ctx context.Context, client string) (core.ReportData, error) {
	report, ok := f.reports[client]
	if !ok {
		return core.ReportData{}, fmt.Errorf("report for %s: %w", client, sql.ErrNoRows)
	}
	return report, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bucketSummary(year, month int, net string) core.BucketSummary {
	return core.BucketSummary{
		Bucket: core.Bucket{Year: year, Month: month},
		Totals: map[string]decimal.Decimal{"Dining": dec(net)},
		KPI:    core.KPISet{Net: dec(net)},
	}
}

func testReport() core.ReportData {
	return core.ReportData{
		Client:      "acme",
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		SkippedRows: 1,
		Monthly: []core.BucketSummary{
			bucketSummary(2023, 12, "-8.00"),
			bucketSummary(2024, 1, "-4.50"),
			bucketSummary(2024, 2, "-5.00"),
		},
		Yearly: []core.BucketSummary{
			bucketSummary(2023, 0, "-8.00"),
			bucketSummary(2024, 0, "-9.50"),
		},
		Transactions: []core.Transaction{
			{
				Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				Description: "Coffee Shop",
				Amount:      dec("-4.50"),
				Category:    "Dining",
			},
			{
				Date:        time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC),
				Description: "Pizza Place",
				Amount:      dec("-8.00"),
				Category:    "Dining",
			},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()
	store := &fakeStore{
		runs: []storage.ClientRun{
			{Client: "acme", Title: "Acme Financial Report", GeneratedAt: time.Now(), SkippedRows: 1},
		},
		reports: map[string]core.ReportData{"acme": testReport()},
	}
	srv := NewServer(":0", store)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doGet(t, srv, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}
	if rec := doGet(t, srv, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d", rec.Code)
	}
}

func TestListClients(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/clients")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp clientsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Clients) != 1 || resp.Clients[0].Client != "acme" {
		t.Errorf("clients = %+v", resp.Clients)
	}
}

func TestGetReport(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/reports/acme")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp reportView
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Client != "acme" {
		t.Errorf("client = %q", resp.Client)
	}
	if len(resp.Monthly) != 3 || len(resp.Yearly) != 2 {
		t.Errorf("buckets = %d monthly, %d yearly", len(resp.Monthly), len(resp.Yearly))
	}
	if resp.Monthly[1].Bucket != "2024-01" {
		t.Errorf("bucket label = %q", resp.Monthly[1].Bucket)
	}
	if resp.Monthly[1].KPI.Net != "-4.50" {
		t.Errorf("net = %q", resp.Monthly[1].KPI.Net)
	}
	if resp.Monthly[1].Totals["Dining"] != "-4.50" {
		t.Errorf("Dining total = %q", resp.Monthly[1].Totals["Dining"])
	}
	if resp.Transactions[0].Amount != "-4.50" {
		t.Errorf("amount = %q, want two decimal places", resp.Transactions[0].Amount)
	}
}

func TestGetReportUnknownClient(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/reports/ghost")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetReportYearFilter(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/reports/acme?year=2024")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp reportView
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Monthly) != 2 {
		t.Errorf("monthly buckets = %d, want 2", len(resp.Monthly))
	}
	if len(resp.Yearly) != 1 || resp.Yearly[0].Bucket != "2024" {
		t.Errorf("yearly = %+v", resp.Yearly)
	}
	if len(resp.Transactions) != 1 {
		t.Errorf("transactions = %d, want 1", len(resp.Transactions))
	}
}

func TestGetReportMonthFilter(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/reports/acme?year=2024&month=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp reportView
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Monthly) != 1 || resp.Monthly[0].Bucket != "2024-01" {
		t.Errorf("monthly = %+v", resp.Monthly)
	}
	if len(resp.Yearly) != 0 {
		t.Errorf("yearly must be empty for a month filter, got %+v", resp.Yearly)
	}
}

func TestGetReportBadFilter(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{
		"/api/reports/acme?year=abc",
		"/api/reports/acme?year=2024&month=13",
		"/api/reports/acme?month=3",
	} {
		if rec := doGet(t, srv, path); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, rec.Code)
		}
	}
}

func TestReportCaching(t *testing.T) {
	srv, store := newTestServer(t)

	doGet(t, srv, "/api/clients")
	doGet(t, srv, "/api/clients")
	if store.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1 (second hit served from cache)", store.listCalls)
	}

	srv.InvalidateClient("acme")
	doGet(t, srv, "/api/clients")
	if store.listCalls != 2 {
		t.Errorf("listCalls = %d after invalidation, want 2", store.listCalls)
	}
}

func TestSuspiciousRequestCounted(t *testing.T) {
	srv, _ := newTestServer(t)

	doGet(t, srv, "/api/reports/..%2F..%2Fetc%2Fpasswd")

	rec := doGet(t, srv, "/api/metrics")
	var resp metricsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Security.SuspiciousRequests < 1 {
		t.Errorf("suspicious_requests = %d, want >= 1", resp.Security.SuspiciousRequests)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp metricsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
