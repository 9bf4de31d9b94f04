package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/vaultmind/internal/advisor"
	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/api/handlers"
	"github.com/dvloznov/vaultmind/internal/api/middleware"
	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/generator"
	"github.com/dvloznov/vaultmind/internal/jobs"
	"github.com/dvloznov/vaultmind/internal/jobs/inmemory"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/dvloznov/vaultmind/internal/scenario"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)

type stubAdvisor struct{}

func (stubAdvisor) Advise(ctx context.Context, s advisor.Summary) (string, error) {
	return "Track your subscriptions.", nil
}

type testServer struct {
	handler  http.Handler
	store    *ledger.Store
	jobStore *inmemory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	clock := func() time.Time { return testNow }

	store := ledger.NewStore(filepath.Join(t.TempDir(), "ledger.csv"), ledger.WithLocation(time.UTC))
	cache := ledger.NewCache(store, time.Minute)

	gen, err := generator.New(generator.StreamCatalog(), generator.WithSeed(1), generator.WithClock(clock))
	require.NoError(t, err)
	injector := scenario.NewInjector(gen, store, log)
	engine := alerts.NewEngine(alerts.DefaultConfig())

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(8, jobStore, inmemory.WithWorkers(1))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queue.Start(ctx, advisor.JobHandler(cache, engine, stubAdvisor{}, clock, log)))
	t.Cleanup(func() {
		cancel()
		_ = queue.Close()
	})

	h := NewRouter(Handlers{
		Transactions: handlers.NewTransactionsHandler(cache, store, time.UTC, clock, log),
		Alerts:       handlers.NewAlertsHandler(cache, engine, clock, log),
		Scenarios:    handlers.NewScenariosHandler(injector, cache, log),
		Jobs:         handlers.NewJobsHandler(queue, jobStore, log),
	}, log)

	return &testServer{handler: h, store: store, jobStore: jobStore}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestCreateTransaction(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{
		"date":           "2024-06-10",
		"merchant":       "Amazon",
		"category":       "Shopping",
		"amount":         1500,
		"payment_method": "Credit Card",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.Transaction
	decode(t, rec, &created)
	assert.Equal(t, "Amazon", created.Merchant)
	assert.Equal(t, "1500", created.Amount.String())
	assert.Equal(t, "48500", created.AccountBalance.String())
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), created.Timestamp.UTC())

	// The cache is invalidated, so the new row is visible immediately.
	rec = s.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Transaction
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Amazon", list[0].Merchant)
}

func TestCreateTransaction_DefaultsDateToToday(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{
		"merchant":        "Dominos",
		"category":        "Food",
		"amount":          "350.50",
		"account_balance": 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.Transaction
	decode(t, rec, &created)
	assert.Equal(t, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), created.Timestamp.UTC())
	assert.Equal(t, "1000", created.AccountBalance.String())
}

func TestCreateTransaction_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		wantErr string
	}{
		{"malformed json", `{"merchant":`, "Invalid request body"},
		{"missing amount", map[string]interface{}{"merchant": "A", "category": "B"}, "amount"},
		{"empty merchant", map[string]interface{}{"merchant": " ", "category": "B", "amount": 1}, "merchant"},
		{"empty category", map[string]interface{}{"merchant": "A", "amount": 1}, "category"},
		{"negative amount", map[string]interface{}{"merchant": "A", "category": "B", "amount": -5}, "amount"},
		{"negative balance", map[string]interface{}{"merchant": "A", "category": "B", "amount": 5, "account_balance": -1}, "account_balance"},
		{"bad date", map[string]interface{}{"merchant": "A", "category": "B", "amount": 5, "date": "12/06/2024"}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(t, http.MethodPost, "/api/transactions", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			var body map[string]string
			decode(t, rec, &body)
			assert.Contains(t, body["error"], tt.wantErr)
			assert.Equal(t, rec.Header().Get(middleware.RequestIDHeader), body["request_id"])
			assert.NotEmpty(t, body["request_id"])

			l, err := s.store.Load(context.Background())
			require.NoError(t, err)
			assert.Empty(t, l, "nothing may be appended on invalid input")
		})
	}
}

func TestListTransactions_DateFilter(t *testing.T) {
	s := newTestServer(t)
	for _, d := range []string{"2024-06-01", "2024-06-05", "2024-06-09"} {
		rec := s.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{
			"date": d, "merchant": "Uber", "category": "Transport", "amount": 200,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/transactions?start_date=2024-06-02&end_date=2024-06-09", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Transaction
	decode(t, rec, &list)
	require.Len(t, list, 2)
	assert.Equal(t, 5, list[0].Timestamp.Day())
	assert.Equal(t, 9, list[1].Timestamp.Day())

	rec = s.do(t, http.MethodGet, "/api/transactions?start_date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type alertsResponse struct {
	Alerts []alerts.Alert `json:"alerts"`
	Count  int            `json:"count"`
	Status string         `json:"status"`
}

func TestAlerts_ClearThenAttention(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alerts":[]`)
	var empty alertsResponse
	decode(t, rec, &empty)
	assert.Equal(t, alerts.StatusClear, empty.Status)

	rec = s.do(t, http.MethodPost, "/api/scenarios/duplicate-subscription", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got alertsResponse
	decode(t, rec, &got)
	assert.Equal(t, alerts.StatusAttention, got.Status)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, alerts.KindDuplicateSubscription, got.Alerts[0].Kind)
	assert.Equal(t, "Netflix", got.Alerts[0].Merchant)
	assert.Equal(t, "2024-06-12", got.Alerts[0].Day)
}

func TestScenarios(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), scenario.SpendingSpikeName)

	rec = s.do(t, http.MethodPost, "/api/scenarios/spending-spike", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Count        int                  `json:"count"`
		Transactions []domain.Transaction `json:"transactions"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "25000", body.Transactions[0].Amount.String())

	rec = s.do(t, http.MethodPost, "/api/scenarios/meteor", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/scenarios/spending-spike", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/summary", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/duplicate-subscription", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary advisor.Summary
	decode(t, rec, &summary)
	assert.Equal(t, "998", summary.TotalSpend.String())
	assert.Equal(t, 2, summary.Transactions)
	assert.Len(t, summary.Alerts, 1)
}

func TestAdviceJobLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/spending-spike", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/advice", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	decode(t, rec, &accepted)
	jobID := accepted["job_id"]
	require.NotEmpty(t, jobID)
	assert.Equal(t, string(jobs.JobStatusPending), accepted["status"])

	var job jobs.AdviceJob
	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/api/jobs/"+jobID, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		job = jobs.AdviceJob{}
		decode(t, rec, &job)
		return job.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Track your subscriptions.", job.Advice)

	rec = s.do(t, http.MethodGet, "/api/jobs?status=completed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	rec = s.do(t, http.MethodGet, "/api/jobs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdviceJob_EmptyLedgerFails(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/advice", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	decode(t, rec, &accepted)

	require.Eventually(t, func() bool {
		job, err := s.jobStore.GetJob(context.Background(), accepted["job_id"])
		return err == nil && job.Status == jobs.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_Plumbing(t *testing.T) {
	s := newTestServer(t)

	t.Run("health", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "healthy")
	})

	t.Run("method not allowed", func(t *testing.T) {
		for _, path := range []string{"/api/alerts", "/api/summary", "/api/jobs"} {
			rec := s.do(t, http.MethodDelete, path, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
		}
		rec := s.do(t, http.MethodGet, "/api/advice", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("request id is generated", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/health", nil)
		_, err := uuid.Parse(rec.Header().Get(middleware.RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("request id is propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(middleware.RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("cors preflight", func(t *testing.T) {
		rec := s.do(t, http.MethodOptions, "/api/transactions", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
