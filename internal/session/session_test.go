package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/session"
)

func capture(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seen string
	h := session.Middleware{}.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := session.ID(r.Context())
		require.True(t, ok)
		seen = id
	}))
	return h, &seen
}

func TestMiddlewareMintsCookie(t *testing.T) {
	h, seen := capture(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, session.DefaultCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, cookies[0].Value, *seen)
	_, err := uuid.Parse(*seen)
	require.NoError(t, err)
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	h, seen := capture(t)
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: id})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, id, *seen)
	require.Empty(t, rec.Result().Cookies())
}

func TestMiddlewareReplacesGarbageCookie(t *testing.T) {
	h, seen := capture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "../../etc"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotEqual(t, "../../etc", *seen)
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestIDMissing(t *testing.T) {
	_, ok := session.ID(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.False(t, ok)
}
