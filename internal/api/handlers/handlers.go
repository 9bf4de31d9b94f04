package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/vaultmind/internal/advisor"
	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/api/middleware"
	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/dvloznov/vaultmind/internal/scenario"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerReader serves ledger snapshots and can be told that the backing
// file changed. *ledger.Cache satisfies it.
type LedgerReader interface {
	ledger.Loader
	Invalidate()
}

// ScenarioInjector appends a named scenario. *scenario.Injector satisfies it.
type ScenarioInjector interface {
	Inject(ctx context.Context, name string) ([]domain.Transaction, error)
}

// Clock returns the current instant.
type Clock func() time.Time

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	reader LedgerReader
	store  ledger.Appender
	loc    *time.Location
	now    Clock
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler. Dates without a
// zone are interpreted in loc.
func NewTransactionsHandler(reader LedgerReader, store ledger.Appender, loc *time.Location, now Clock, log zerolog.Logger) *TransactionsHandler {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &TransactionsHandler{reader: reader, store: store, loc: loc, now: now, log: log}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	var start, end time.Time
	var err error
	if s := query.Get("start_date"); s != "" {
		if start, err = time.ParseInLocation(time.DateOnly, s, h.loc); err != nil {
			middleware.WriteError(w, r, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	}
	if s := query.Get("end_date"); s != "" {
		if end, err = time.ParseInLocation(time.DateOnly, s, h.loc); err != nil {
			middleware.WriteError(w, r, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		end = end.AddDate(0, 0, 1)
	}

	l, err := h.reader.Load(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load ledger")
		middleware.WriteError(w, r, http.StatusInternalServerError, "Failed to load transactions")
		return
	}

	out := make(domain.Ledger, 0, len(l))
	for _, tx := range l {
		if !start.IsZero() && tx.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !tx.Timestamp.Before(end) {
			continue
		}
		out = append(out, tx)
	}

	// Return array directly for frontend compatibility
	middleware.WriteJSON(w, http.StatusOK, out)
}

// createTransactionRequest is the manual-entry body. Pointers mark optional
// fields.
type createTransactionRequest struct {
	Date           string           `json:"date"`
	Merchant       string           `json:"merchant"`
	Category       string           `json:"category"`
	Amount         *decimal.Decimal `json:"amount"`
	PaymentMethod  string           `json:"payment_method"`
	AccountBalance *decimal.Decimal `json:"account_balance"`
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount == nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid amount: is required")
		return
	}

	ts, err := ledger.ParseEntryDate(req.Date, h.now(), h.loc)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid date: "+err.Error())
		return
	}

	tx := domain.Transaction{
		Timestamp:     ts,
		Merchant:      strings.TrimSpace(req.Merchant),
		Category:      strings.TrimSpace(req.Category),
		Amount:        *req.Amount,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
	}
	if req.AccountBalance != nil {
		tx.AccountBalance = *req.AccountBalance
	} else {
		current, err := h.reader.Load(ctx)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to load ledger")
			middleware.WriteError(w, r, http.StatusInternalServerError, "Failed to load transactions")
			return
		}
		tx.AccountBalance = current.SuggestedBalance(tx.Amount)
	}

	if err := tx.Validate(); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Append(ctx, tx); err != nil {
		h.log.Error().Err(err).Msg("Failed to append transaction")
		middleware.WriteError(w, r, http.StatusInternalServerError, "Failed to save transaction")
		return
	}
	h.reader.Invalidate()

	h.log.Info().
		Str("merchant", tx.Merchant).
		Str("category", tx.Category).
		Str("amount", tx.Amount.String()).
		Msg("Transaction added")

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// AlertsHandler handles alert evaluation.
type AlertsHandler struct {
	reader ledger.Loader
	engine *alerts.Engine
	now    Clock
	log    zerolog.Logger
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(reader ledger.Loader, engine *alerts.Engine, now Clock, log zerolog.Logger) *AlertsHandler {
	if now == nil {
		now = time.Now
	}
	return &AlertsHandler{reader: reader, engine: engine, now: now, log: log}
}

// ListAlerts handles GET /api/alerts
func (h *AlertsHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	l, err := h.reader.Load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load ledger")
		middleware.WriteError(w, r, http.StatusInternalServerError, "Failed to evaluate alerts")
		return
	}

	found := h.engine.Evaluate(l, h.now())
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": found,
		"count":  len(found),
		"status": alerts.Status(found),
	})
}

// Summary handles GET /api/summary
func (h *AlertsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	l, err := h.reader.Load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load ledger")
		middleware.WriteError(w, r, http.StatusInternalServerError, "Failed to summarise transactions")
		return
	}

	summary, err := advisor.Summarize(l, h.engine.Evaluate(l, h.now()))
	if errors.Is(err, advisor.ErrEmptyLedger) {
		middleware.WriteError(w, r, http.StatusUnprocessableEntity, "Please add some transactions first")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarise ledger")
		middleware.WriteError(w, r, http.StatusInternalServerError, "Failed to summarise transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summary)
}

// ScenariosHandler handles scenario injection.
type ScenariosHandler struct {
	injector ScenarioInjector
	reader   LedgerReader
	log      zerolog.Logger
}

// NewScenariosHandler creates a new scenarios handler.
func NewScenariosHandler(injector ScenarioInjector, reader LedgerReader, log zerolog.Logger) *ScenariosHandler {
	return &ScenariosHandler{injector: injector, reader: reader, log: log}
}

// ListScenarios handles GET /api/scenarios
func (h *ScenariosHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": scenario.Names(),
	})
}

// InjectScenario handles POST /api/scenarios/{name}
func (h *ScenariosHandler) InjectScenario(w http.ResponseWriter, r *http.Request, name string) {
	rows, err := h.injector.Inject(r.Context(), name)
	if len(rows) > 0 {
		h.reader.Invalidate()
	}

	var verr *domain.ValidationError
	switch {
	case errors.Is(err, scenario.ErrUnknownScenario):
		middleware.WriteError(w, r, http.StatusNotFound, "Unknown scenario: "+name)
		return
	case errors.As(err, &verr):
		middleware.WriteError(w, r, http.StatusBadRequest, verr.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Str("scenario", name).Msg("Failed to inject scenario")
		middleware.WriteError(w, r, http.StatusInternalServerError, "Failed to inject scenario")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"scenario":     name,
		"transactions": rows,
		"count":        len(rows),
	})
}
