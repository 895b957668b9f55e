// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing HTMX responses:
// HX-Trigger events for the expenses page plus HTML or JSON bodies.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"
)

// Events dispatched by the expenses page through HX-Trigger.
const (
	eventExpenseCreated   = "expense:created"
	eventExpenseUpdated   = "expense:updated"
	eventExpenseDeleted   = "expense:deleted"
	eventExpensesErased   = "expenses:erased"
	eventShowNotification = "show-notification"
)

// NotificationLevel selects the style and lifetime of a toast.
type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
)

var notificationLifetime = map[NotificationLevel]time.Duration{
	NotifySuccess: 3 * time.Second,
	NotifyError:   5 * time.Second,
}

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	status int
	events map[string]any
	header http.Header
	body   []byte
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		events: make(map[string]any),
		header: make(http.Header),
	}
}

// Status sets the HTTP status code for the response.
func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger adds a named event with its detail payload to HX-Trigger.
func (b *HTMXResponseBuilder) Trigger(name string, detail any) *HTMXResponseBuilder {
	b.events[name] = detail
	return b
}

// TriggerExpenseCreated tells the page which row was appended so it can
// close the dialog and scroll the row into view.
func (b *HTMXResponseBuilder) TriggerExpenseCreated(id int64) *HTMXResponseBuilder {
	return b.Trigger(eventExpenseCreated, map[string]int64{"id": id})
}

func (b *HTMXResponseBuilder) TriggerExpenseUpdated(id int64) *HTMXResponseBuilder {
	return b.Trigger(eventExpenseUpdated, map[string]int64{"id": id})
}

func (b *HTMXResponseBuilder) TriggerExpenseDeleted(id int64) *HTMXResponseBuilder {
	return b.Trigger(eventExpenseDeleted, map[string]int64{"id": id})
}

func (b *HTMXResponseBuilder) TriggerExpensesErased(count int64) *HTMXResponseBuilder {
	return b.Trigger(eventExpensesErased, map[string]int64{"count": count})
}

// Notify shows a toast on the page. Only one notification fits in a
// response; a later call replaces the earlier one.
func (b *HTMXResponseBuilder) Notify(level NotificationLevel, message string) *HTMXResponseBuilder {
	return b.Trigger(eventShowNotification, map[string]any{
		"type":     string(level),
		"message":  message,
		"duration": notificationLifetime[level].Milliseconds(),
	})
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// BodyHTML sets an HTML fragment as the body.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = []byte(html)
	return b
}

// BodyJSON encodes v as the body. Encoding failures turn the response into
// a 500.
func (b *HTMXResponseBuilder) BodyJSON(v any) *HTMXResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.status = http.StatusInternalServerError
		b.header.Set("Content-Type", "text/plain; charset=utf-8")
		b.body = []byte("encoding error")
		return b
	}
	b.header.Set("Content-Type", "application/json")
	b.body = data
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	if len(b.events) > 0 {
		if payload, err := json.Marshal(b.events); err == nil {
			h.Set("HX-Trigger", string(payload))
		}
	}

	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders message as an escaped alert fragment. The page
// script reads its text into the dialog or a toast.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<p class="error" role="alert">` + template.HTMLEscapeString(message) + `</p>`)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}
