// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// the capture form state object, receipt uploads and partial update bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"expenses/internal/core"
)

// errBadInput marks request data that could not be turned into an expense.
// Handlers answer it with 422 like service validation errors.
var errBadInput = errors.New("bad input")

// errReceiptTooLarge is returned when an uploaded receipt exceeds the limit.
var errReceiptTooLarge = errors.New("receipt too large")

func badInput(err error) error {
	return fmt.Errorf("%w: %w", errBadInput, err)
}

// multipartOverhead leaves room for the text fields sent next to a receipt.
const multipartOverhead = 1 << 20

// Capture form defaults.
const (
	defaultExpenseType = core.Transportation
	defaultCurrency    = "USD"
)

// Currencies offered by the capture form.
var Currencies = []string{"USD", "EUR", "GBP"}

// ExpenseForm holds the raw values of one capture form submission. It is
// built per request and converted to a core.Expense once complete.
type ExpenseForm struct {
	Date        string
	ExpenseType string
	Amount      string
	Currency    string
	Category    string
	Location    string
	Email       string
	Status      string
	Notes       string
	Receipt     []byte
}

// NewExpenseForm returns a form pre-filled with the capture defaults for the
// given day.
func NewExpenseForm(today time.Time) ExpenseForm {
	return ExpenseForm{
		Date:        today.Format(core.DateLayout),
		ExpenseType: string(defaultExpenseType),
		Amount:      "0.00",
		Currency:    defaultCurrency,
	}
}

// ParseExpenseForm reads a urlencoded or multipart submission. Missing
// required values fall back to the capture defaults, except the amount.
func ParseExpenseForm(r *http.Request, maxReceipt int64, today time.Time) (ExpenseForm, error) {
	form := NewExpenseForm(today)
	form.Amount = ""

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxReceipt + multipartOverhead); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return form, badInput(errReceiptTooLarge)
			}
			return form, badInput(fmt.Errorf("malformed multipart body: %w", err))
		}
		receipt, err := readReceipt(r, maxReceipt)
		if err != nil {
			return form, err
		}
		form.Receipt = receipt
	} else if err := r.ParseForm(); err != nil {
		return form, badInput(fmt.Errorf("malformed form body: %w", err))
	}

	set := func(dst *string, key string) {
		if v := sanitizeInput(r.PostForm.Get(key)); v != "" {
			*dst = v
		}
	}
	set(&form.Date, string(core.FieldDate))
	set(&form.ExpenseType, string(core.FieldExpenseType))
	set(&form.Amount, string(core.FieldAmount))
	set(&form.Currency, string(core.FieldCurrency))
	set(&form.Category, string(core.FieldCategory))
	set(&form.Location, string(core.FieldLocation))
	set(&form.Email, string(core.FieldEmail))
	set(&form.Status, string(core.FieldReimbursementStatus))
	set(&form.Notes, string(core.FieldAdditionalNotes))

	return form, nil
}

func readReceipt(r *http.Request, maxReceipt int64) ([]byte, error) {
	file, _, err := r.FormFile(string(core.FieldReceipt))
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badInput(fmt.Errorf("read receipt: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReceipt+1))
	if err != nil {
		return nil, badInput(fmt.Errorf("read receipt: %w", err))
	}
	if int64(len(data)) > maxReceipt {
		return nil, badInput(errReceiptTooLarge)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// Expense converts the form to a record. Value checks beyond the amount
// syntax are left to the service.
func (f ExpenseForm) Expense() (core.Expense, error) {
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.Expense{}, badInput(fmt.Errorf("%w: %q", err, f.Amount))
	}
	return core.Expense{
		Date:                f.Date,
		ExpenseType:         f.ExpenseType,
		Category:            f.Category,
		Amount:              amount,
		Currency:            f.Currency,
		Location:            f.Location,
		Receipt:             f.Receipt,
		Email:               f.Email,
		ReimbursementStatus: f.Status,
		AdditionalNotes:     f.Notes,
	}, nil
}

// ParsePatch builds a core.Patch from a form or JSON body. Only keys present
// in the body end up in the patch. An empty receipt value clears the
// receipt; uploading a new one is only possible on create.
func ParsePatch(r *http.Request) (core.Patch, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, badInput(fmt.Errorf("malformed body: %w", err))
	}

	patch := core.Patch{}
	for _, key := range p.Keys() {
		field, err := core.ParseField(key)
		if err != nil {
			return nil, badInput(err)
		}
		value := p.Get(key)
		switch field {
		case core.FieldAmount:
			amount, err := core.ParseAmount(value)
			if err != nil {
				return nil, badInput(fmt.Errorf("%w: %q", err, value))
			}
			patch[field] = amount
		case core.FieldReceipt:
			if value != "" {
				return nil, badInput(errors.New("receipt can only be cleared on update"))
			}
			patch[field] = nil
		default:
			patch[field] = value
		}
	}
	return patch, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Keys returns the keys present in the body, sorted.
func (p *RequestBodyParser) Keys() []string {
	var keys []string
	if p.jsonData != nil {
		for k := range p.jsonData {
			keys = append(keys, k)
		}
	}
	for k := range p.formData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// wantsJSON reports whether the caller asked for a JSON answer rather than
// an HTML partial.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") &&
		r.Header.Get("HX-Request") == ""
}
