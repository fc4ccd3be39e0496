// Package session issues the anonymous storefront session cookie and carries
// the session id on the request context.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieName is used when Middleware.CookieName is empty.
const DefaultCookieName = "toko_session"

type sessionKey struct{}

// WithID stores the session id on the context.
func WithID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey{}, id)
}

// ID extracts the session id from context.
func ID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Middleware resolves the session cookie, minting a new one for first visits.
type Middleware struct {
	CookieName string
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration
}

func (m Middleware) cookieName() string {
	if strings.TrimSpace(m.CookieName) == "" {
		return DefaultCookieName
	}
	return m.CookieName
}

// Handler attaches the session id to every request.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(m.cookieName()); err == nil {
			if parsed, err := uuid.Parse(strings.TrimSpace(c.Value)); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			cookie := &http.Cookie{
				Name:     m.cookieName(),
				Value:    id,
				Path:     "/",
				Domain:   m.Domain,
				HttpOnly: true,
				Secure:   m.Secure,
				SameSite: m.SameSite,
			}
			if m.MaxAge > 0 {
				cookie.MaxAge = int(m.MaxAge / time.Second)
			}
			http.SetCookie(w, cookie)
		}
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}
