package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"famledger/internal/core"
	"famledger/internal/cycle"
	"famledger/internal/ledger"
	"famledger/internal/log"
	"famledger/internal/pricing"
	"famledger/internal/recurring"
	"famledger/internal/services"
)

// Service ports the handlers depend on. The services package provides them.
type (
	LedgerViews interface {
		CurrentCycle(ctx context.Context, accountID string, at time.Time) (cycle.Window, error)
		Summary(ctx context.Context, accountID string, at time.Time) (services.CycleSummary, error)
		MonthTotals(ctx context.Context, accountID string, year int, month time.Month) (ledger.StatusTotals, error)
		ChildSpending(ctx context.Context, accountID, childID string, at time.Time) (ledger.ChildSummary, error)
	}

	Checkout interface {
		Plans(ctx context.Context) ([]services.PlanOffer, error)
		Quote(ctx context.Context, req services.QuoteRequest) (pricing.Quote, error)
		Confirm(ctx context.Context, req services.QuoteRequest) (services.Confirmation, error)
	}

	Templates interface {
		EditTemplate(ctx context.Context, templateID string, edit recurring.TemplateEdit) (core.Expense, error)
		DeleteTemplate(ctx context.Context, templateID string, at time.Time) (int64, error)
	}

	Exporter interface {
		Export(ctx context.Context, accountID string, at time.Time) (string, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// SharedChildID selects the rows not assigned to any child.
const SharedChildID = "shared"

// Handler serves the JSON API.
type Handler struct {
	ledger    LedgerViews
	checkout  Checkout
	templates Templates
	exporter  Exporter // nil when no spreadsheet is configured
	db        Pinger
	logger    *log.Logger
	now       func() time.Time
	started   time.Time
}

// Deps groups the collaborators of a Handler.
type Deps struct {
	Ledger    LedgerViews
	Checkout  Checkout
	Templates Templates
	Exporter  Exporter
	DB        Pinger
	Logger    *log.Logger
	Now       func() time.Time
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = log.New(log.Config{Component: log.ComponentHTTP})
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Handler{
		ledger:    d.Ledger,
		checkout:  d.Checkout,
		templates: d.Templates,
		exporter:  d.Exporter,
		db:        d.DB,
		logger:    d.Logger.WithComponent(log.ComponentHTTP),
		now:       d.Now,
		started:   d.Now(),
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.now().Format(time.RFC3339),
		"uptime":    h.now().Sub(h.started).Round(time.Second).String(),
	})
}

// Ready checks the database with a short timeout.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"database": "not_configured"}
	status, httpStatus := "ready", http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["database"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}
	if h.exporter != nil {
		checks["sheets"] = "configured"
	}
	writeJSON(w, httpStatus, map[string]any{"status": status, "checks": checks})
}

// =============================================================================
// LEDGER VIEWS
// =============================================================================

func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r, h.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	win, err := h.ledger.CurrentCycle(r.Context(), chi.URLParam(r, "accountID"), at)
	if err != nil {
		h.writeServiceError(w, r, "failed to compute cycle", err)
		return
	}
	writeJSON(w, http.StatusOK, win)
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r, h.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	summary, err := h.ledger.Summary(r.Context(), chi.URLParam(r, "accountID"), at)
	if err != nil {
		h.writeServiceError(w, r, "failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// MonthTotalsResponse is the calendar-month view. It is not a billing cycle.
type MonthTotalsResponse struct {
	Year    int                 `json:"year"`
	Month   int                 `json:"month"`
	Totals  ledger.StatusTotals `json:"totals"`
	Settled core.Money          `json:"settled"`
}

func (h *Handler) GetMonthTotals(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(chi.URLParam(r, "year"), chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return
	}
	totals, err := h.ledger.MonthTotals(r.Context(), chi.URLParam(r, "accountID"), year, month)
	if err != nil {
		h.writeServiceError(w, r, "failed to compute month totals", err)
		return
	}
	writeJSON(w, http.StatusOK, MonthTotalsResponse{
		Year:    year,
		Month:   int(month),
		Totals:  totals,
		Settled: totals.Settled(),
	})
}

func (h *Handler) GetChildSpending(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r, h.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	childID := chi.URLParam(r, "childID")
	if childID == SharedChildID {
		childID = ""
	}
	summary, err := h.ledger.ChildSpending(r.Context(), chi.URLParam(r, "accountID"), childID, at)
	if err != nil {
		h.writeServiceError(w, r, "failed to summarize child spending", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ExportCycle(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export not configured", nil)
		return
	}
	at, err := parseAt(r, h.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	ref, err := h.exporter.Export(r.Context(), chi.URLParam(r, "accountID"), at)
	if err != nil {
		h.writeServiceError(w, r, "failed to export cycle report", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"rowRef": ref})
}

// =============================================================================
// PRICING
// =============================================================================

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.checkout.Plans(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "failed to list plans", err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req services.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	quote, err := h.checkout.Quote(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "failed to price plan", err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req services.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	if strings.TrimSpace(req.AccountID) == "" {
		writeError(w, http.StatusBadRequest, "accountId is required", nil)
		return
	}
	confirmation, err := h.checkout.Confirm(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "failed to confirm purchase", err)
		return
	}
	writeJSON(w, http.StatusOK, confirmation)
}

// =============================================================================
// RECURRING TEMPLATES
// =============================================================================

// TemplateEditRequest carries the fields to change. Absent fields are kept.
type TemplateEditRequest struct {
	Description *string `json:"description"`
	Amount      *string `json:"amount"`
	Frequency   *string `json:"frequency"`
	ChildID     *string `json:"childId"`
	HasEndDate  *bool   `json:"hasEndDate"`
	EndDate     *string `json:"endDate"`
}

func (req TemplateEditRequest) toEdit() (recurring.TemplateEdit, error) {
	edit := recurring.TemplateEdit{
		Description: req.Description,
		ChildID:     req.ChildID,
		HasEndDate:  req.HasEndDate,
	}
	if req.Amount != nil {
		m, err := core.ParseMoney(*req.Amount)
		if err != nil {
			return edit, err
		}
		edit.Amount = &m
	}
	if req.Frequency != nil {
		f, err := core.ParseFrequency(*req.Frequency)
		if err != nil {
			return edit, err
		}
		edit.Frequency = &f
	}
	if req.EndDate != nil {
		d, err := core.ParseDate(*req.EndDate)
		if err != nil {
			return edit, core.ErrMissingEndDate
		}
		edit.EndDate = &d
	}
	return edit, nil
}

func (h *Handler) EditTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateEditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	edit, err := req.toEdit()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid template edit", err)
		return
	}
	tmpl, err := h.templates.EditTemplate(r.Context(), chi.URLParam(r, "templateID"), edit)
	if err != nil {
		h.writeServiceError(w, r, "failed to update template", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          tmpl.ID,
		"description": tmpl.Description,
		"amount":      tmpl.Amount,
		"frequency":   tmpl.Frequency,
		"childId":     tmpl.ChildID,
		"hasEndDate":  tmpl.HasEndDate,
		"endDate":     tmpl.EndDate.String(),
	})
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")
	unlinked, err := h.templates.DeleteTemplate(r.Context(), templateID, h.now())
	if err != nil {
		h.writeServiceError(w, r, "failed to delete template", err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring template deleted",
		log.FieldTemplateID, templateID, "unlinked", unlinked)
	writeJSON(w, http.StatusOK, map[string]any{"templateId": templateID, "unlinked": unlinked})
}
