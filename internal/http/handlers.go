package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

// indexPage is the data passed to index.html.
type indexPage struct {
	Expenses   []core.Expense
	Columns    []column
	Sort       SortOrder
	Form       ExpenseForm
	Types      []core.ExpenseType
	Currencies []string
	DarkMode   bool
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the store answers a list query.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{"templates": "ok", "storage": "ok"}
	status, code := "ready", http.StatusOK

	if _, err := s.svc.ListExpenses(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		checks["storage"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}
	if s.listCache != nil {
		body["cache"] = s.listCache.Stats()
	}
	writeJSON(w, code, body)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := s.listExpenses(ctx)
	if err != nil {
		s.serverError(w, r, "Failed to list expenses", applog.OpList, err)
		return
	}

	order := parseSortOrder(r)
	s.render(w, r, http.StatusOK, "index.html", indexPage{
		Expenses:   sortExpenses(items, order),
		Columns:    tableColumns,
		Sort:       order,
		Form:       NewExpenseForm(s.opts.Now()),
		Types:      core.ExpenseTypes,
		Currencies: Currencies,
		DarkMode:   s.opts.DarkMode,
	})
}

// render executes a template into a buffer first so a failing template
// never produces a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	html, err := s.renderString(name, data)
	if err != nil {
		s.serverError(w, r, "Template render failed", applog.OpRender, err)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(html).Write(w)
}

func (s *Server) renderString(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// serverError logs err and answers with a generic 500.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg, op string, err error) {
	applog.NewStructuredLogger(s.logger).LogError(r.Context(), msg, err, applog.ComponentHTTP, op, nil)
	InternalServerError("Internal error, please retry").Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
