package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/middleware/security"
	"expenses/internal/services"
	"expenses/internal/storage"
)

const rowTemplate = "expense_row"

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.ReceiptMaxBytes+multipartOverhead)

	form, err := ParseExpenseForm(r, s.opts.ReceiptMaxBytes, s.opts.Now())
	if err != nil {
		s.writeError(w, r, applog.OpParse, err)
		return
	}
	exp, err := form.Expense()
	if err != nil {
		s.writeError(w, r, applog.OpParse, err)
		return
	}

	saved, err := s.svc.CreateExpense(r.Context(), exp)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	s.invalidate()

	ctx := r.Context()
	applog.NewStructuredLogger(s.logger).LogExpenseCreated(ctx,
		saved.ID, saved.Date, saved.ExpenseType, saved.Amount, saved.Currency)

	if wantsJSON(r) {
		NewHTMXResponse().
			Status(http.StatusCreated).
			Header("Location", fmt.Sprintf("/expenses/%d", saved.ID)).
			BodyJSON(toJSON(saved)).
			Write(w)
		return
	}

	row, err := s.renderString(rowTemplate, saved)
	if err != nil {
		s.serverError(w, r, "Template render failed", applog.OpRender, err)
		return
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerExpenseCreated(saved.ID).
		Notify(NotifySuccess, fmt.Sprintf("Expense #%d saved", saved.ID)).
		BodyHTML(row).
		Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	exp, err := s.svc.GetExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	NewHTMXResponse().BodyJSON(toJSON(exp)).Write(w)
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	exp, err := s.svc.GetExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	if !exp.HasReceipt() {
		NotFoundError("No receipt attached").Write(w)
		return
	}

	h := w.Header()
	security.SandboxUpload(h)
	h.Set("Content-Type", receiptContentType(exp.Receipt))
	h.Set("Content-Length", strconv.Itoa(len(exp.Receipt)))
	h.Set("Content-Disposition", fmt.Sprintf(`inline; filename="receipt-%d"`, id))
	h.Set("Cache-Control", "private, no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Receipt)
}

// receiptContentType sniffs the blob. Markup is downgraded to plain text so
// an uploaded page is never rendered as HTML.
func receiptContentType(b []byte) string {
	ct := http.DetectContentType(b)
	if strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "text/xml") {
		return "text/plain; charset=utf-8"
	}
	return ct
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, multipartOverhead)

	patch, err := ParsePatch(r)
	if err != nil {
		s.writeError(w, r, applog.OpParse, err)
		return
	}

	ctx := r.Context()
	if err := s.svc.UpdateExpense(ctx, id, patch); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.invalidate()

	// An empty patch is a no-op but still needs an existing id to render.
	exp, err := s.svc.GetExpense(ctx, id)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	if !patch.Empty() {
		applog.NewStructuredLogger(s.logger).LogMutation(ctx, applog.OpUpdate, id, 1)
	}

	b := NewHTMXResponse().TriggerExpenseUpdated(id)
	if wantsJSON(r) {
		b.BodyJSON(toJSON(exp)).Write(w)
		return
	}
	row, err := s.renderString(rowTemplate, exp)
	if err != nil {
		s.serverError(w, r, "Template render failed", applog.OpRender, err)
		return
	}
	b.BodyHTML(row).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}

	ctx := r.Context()
	if err := s.svc.DeleteExpense(ctx, id); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	s.invalidate()
	applog.NewStructuredLogger(s.logger).LogMutation(ctx, applog.OpDelete, id, 1)

	// htmx swaps the row with the empty body, removing it.
	NewHTMXResponse().
		TriggerExpenseDeleted(id).
		Notify(NotifySuccess, fmt.Sprintf("Expense #%d deleted", id)).
		Write(w)
}

func (s *Server) handleEraseAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := s.svc.EraseAll(ctx)
	if err != nil {
		s.writeError(w, r, applog.OpErase, err)
		return
	}
	s.invalidate()
	applog.NewStructuredLogger(s.logger).LogMutation(ctx, applog.OpErase, 0, n)

	b := NewHTMXResponse().
		TriggerExpensesErased(n).
		Notify(NotifySuccess, fmt.Sprintf("%d expenses erased", n))
	if wantsJSON(r) {
		b.BodyJSON(map[string]int64{"erased": n})
	}
	b.Write(w)
}

// writeError maps service and parsing errors to status codes. Anything not
// recognised is logged and reported as a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError("Expense not found").Write(w)
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, errBadInput),
		errors.Is(err, core.ErrUnknownField):
		ctx := r.Context()
		applog.FromContext(ctx).WithComponent(applog.ComponentHTTP).WarnContext(ctx, "Rejected expense input",
			applog.FieldOperation, op,
			applog.FieldError, err)
		UnprocessableEntityError(userMessage(err)).Write(w)
	default:
		s.serverError(w, r, "Expense operation failed", op, err)
	}
}

// userMessage strips the internal wrapping prefixes from validation errors.
func userMessage(err error) string {
	for _, sentinel := range []error{
		errReceiptTooLarge,
		core.ErrInvalidDate,
		core.ErrInvalidExpenseType,
		core.ErrInvalidAmount,
		core.ErrInvalidCurrency,
		core.ErrInvalidEmail,
		core.ErrFieldTooLong,
		core.ErrUnknownField,
		core.ErrInvalidValue,
	} {
		if errors.Is(err, sentinel) {
			return "Invalid data: " + innermost(err, sentinel)
		}
	}
	return "Invalid data"
}

// innermost returns the message of the deepest layer wrapping sentinel,
// which keeps its detail but drops outer prefixes.
func innermost(err, sentinel error) string {
	for {
		var next error
		joined := false
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			next = u.Unwrap()
		case interface{ Unwrap() []error }:
			joined = true
			for _, e := range u.Unwrap() {
				if errors.Is(e, sentinel) {
					next = e
					break
				}
			}
		}
		if next == nil {
			return err.Error()
		}
		if next == sentinel {
			if joined {
				return sentinel.Error()
			}
			return err.Error()
		}
		err = next
	}
}
