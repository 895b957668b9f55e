// Package security sets response security headers and resolves client IPs
// behind local reverse proxies.
package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Policy is the set of security headers applied to every response.
type Policy struct {
	// CSP directives, joined with "; ".
	CSP []string
	// HSTS is only sent over TLS; zero disables it.
	HSTS time.Duration
	// Fixed holds the remaining headers verbatim.
	Fixed map[string]string
}

// DefaultPolicy returns the headers used by the expenses UI. htmx is loaded
// from unpkg; receipts are served from the same origin.
func DefaultPolicy() Policy {
	return Policy{
		CSP: []string{
			"default-src 'self'",
			"script-src 'self' https://unpkg.com",
			"style-src 'self' 'unsafe-inline'",
			"img-src 'self' data: blob:",
			"connect-src 'self'",
			"object-src 'none'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		},
		HSTS: 365 * 24 * time.Hour,
		Fixed: map[string]string{
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
	}
}

// Headers returns middleware applying p before the handler runs, so handlers
// can still override single headers.
func Headers(p Policy) func(http.Handler) http.Handler {
	csp := strings.Join(p.CSP, "; ")
	hsts := ""
	if p.HSTS > 0 {
		hsts = "max-age=" + strconv.FormatInt(int64(p.HSTS/time.Second), 10) + "; includeSubDomains"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range p.Fixed {
				h.Set(k, v)
			}
			if csp != "" {
				h.Set("Content-Security-Policy", csp)
			}
			if r.TLS != nil && hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SandboxUpload locks down a response that carries user uploaded bytes: the
// content runs in a sandbox without scripts and can only show itself.
func SandboxUpload(h http.Header) {
	h.Set("Content-Security-Policy", "sandbox; default-src 'none'; img-src 'self' data:; style-src 'unsafe-inline'")
	h.Set("X-Content-Type-Options", "nosniff")
}

// CacheStatic adds public caching headers for embedded assets.
func CacheStatic(maxAge time.Duration) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
