// Package api assembles the dashboard HTTP API.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/vaultmind/internal/api/handlers"
	"github.com/dvloznov/vaultmind/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers served by NewRouter.
type Handlers struct {
	Transactions *handlers.TransactionsHandler
	Alerts       *handlers.AlertsHandler
	Scenarios    *handlers.ScenariosHandler
	Jobs         *handlers.JobsHandler
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Transactions.ListTransactions(w, r)
		case http.MethodPost:
			h.Transactions.CreateTransaction(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/api/alerts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Alerts.ListAlerts(w, r)
		} else {
			methodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Alerts.Summary(w, r)
		} else {
			methodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/api/scenarios", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Scenarios.ListScenarios(w, r)
		} else {
			methodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/api/scenarios/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/api/scenarios/")
		if name == "" {
			middleware.WriteError(w, r, http.StatusBadRequest, "Scenario name is required")
			return
		}
		h.Scenarios.InjectScenario(w, r, name)
	})

	mux.HandleFunc("/api/advice", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Jobs.EnqueueAdvice(w, r)
		} else {
			methodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Jobs.ListJobs(w, r)
		} else {
			methodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r)
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, r, http.StatusBadRequest, "Job ID is required")
			return
		}
		h.Jobs.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.CORS,
	)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}
