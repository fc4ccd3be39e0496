package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// Default names shared with the checkout backend.
const (
	DefaultCSRFCookie = "csrftoken"
	DefaultCSRFHeader = "X-CSRFToken"
)

// CSRF protects cookie-based flows using the double-submit technique. The
// same cookie is forwarded to the checkout backend by the submitter.
type CSRF struct {
	CookieName string
	Header     string
	// Issue mints a readable token cookie on safe requests that carry none.
	Issue    bool
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func (c CSRF) cookieName() string {
	if name := strings.TrimSpace(c.CookieName); name != "" {
		return name
	}
	return DefaultCSRFCookie
}

func (c CSRF) headerName() string {
	if name := strings.TrimSpace(c.Header); name != "" {
		return name
	}
	return DefaultCSRFHeader
}

// TokenFromRequest returns the CSRF cookie value carried by r, if any.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if strings.TrimSpace(cookieName) == "" {
		cookieName = DefaultCSRFCookie
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

// Middleware enforces that unsafe requests send a header matching the cookie.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	cookieName := c.cookieName()
	headerName := c.headerName()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			if c.Issue && TokenFromRequest(r, cookieName) == "" {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    strings.ReplaceAll(uuid.NewString(), "-", ""),
					Path:     "/",
					Domain:   c.Domain,
					Secure:   c.Secure,
					SameSite: c.SameSite,
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		if token == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_MISSING", "missing csrf token", nil)
			return
		}
		cookie := TokenFromRequest(r, cookieName)
		if cookie == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_MISSING", "missing csrf cookie", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cookie)) != 1 {
			common.JSONError(w, http.StatusForbidden, "CSRF_INVALID", "invalid csrf token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
