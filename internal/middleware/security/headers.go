package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig lists the response headers applied to every page.
type HeadersConfig struct {
	CSP               []string
	HSTSMaxAge        int
	FrameOptions      string
	ReferrerPolicy    string
	PermissionsPolicy string
	// NoStore marks report responses as uncacheable by shared caches.
	NoStore bool
}

// DefaultHeadersConfig allows only same-origin assets. The pages carry no
// scripts.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: []string{
			"default-src 'self'",
			"script-src 'none'",
			"style-src 'self'",
			"img-src 'self' data:",
			"object-src 'none'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		},
		HSTSMaxAge:        31536000,
		FrameOptions:      "DENY",
		ReferrerPolicy:    "same-origin",
		PermissionsPolicy: "geolocation=(), microphone=(), camera=(), payment=()",
		NoStore:           true,
	}
}

type HeadersMiddleware struct {
	set http.Header
	// hsts is only sent over TLS.
	hsts string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{set: http.Header{}}
	h.set.Set("X-Content-Type-Options", "nosniff")
	if config.FrameOptions != "" {
		h.set.Set("X-Frame-Options", config.FrameOptions)
	}
	if len(config.CSP) > 0 {
		h.set.Set("Content-Security-Policy", strings.Join(config.CSP, "; "))
	}
	if config.ReferrerPolicy != "" {
		h.set.Set("Referrer-Policy", config.ReferrerPolicy)
	}
	if config.PermissionsPolicy != "" {
		h.set.Set("Permissions-Policy", config.PermissionsPolicy)
	}
	if config.NoStore {
		h.set.Set("Cache-Control", "no-store")
	}
	if config.HSTSMaxAge > 0 {
		h.hsts = fmt.Sprintf("max-age=%d; includeSubDomains", config.HSTSMaxAge)
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for k, v := range h.set {
			headers[k] = v
		}
		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware replaces the page cache policy for embedded assets.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
