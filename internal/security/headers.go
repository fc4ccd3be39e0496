package security

import (
	"net/http"
	"strconv"
)

// DefaultContentSecurityPolicy forbids every resource type. The API only
// returns JSON, so nothing it serves should ever be rendered as a document.
const DefaultContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// Headers configures the security headers attached to storefront API responses.
type Headers struct {
	Enable                bool
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	// ContentSecurityPolicy overrides DefaultContentSecurityPolicy when set.
	ContentSecurityPolicy string
}

func (h Headers) hsts() string {
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 31536000
	}
	value := "max-age=" + strconv.Itoa(maxAge)
	if h.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

// Middleware attaches the security headers to each response. Responses carry
// per-session page state, so they are never cached. HSTS is only sent over TLS.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	csp := h.ContentSecurityPolicy
	if csp == "" {
		csp = DefaultContentSecurityPolicy
	}
	hsts := h.hsts()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "same-origin")
		headers.Set("Content-Security-Policy", csp)
		headers.Set("Cache-Control", "no-store")
		headers.Add("Vary", "Cookie")
		if h.EnableHSTS && r.TLS != nil {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}
