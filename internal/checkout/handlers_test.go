package checkout_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/checkout"
	"github.com/noah-isme/toko-storefront/internal/session"
)

type onePage struct{ c *checkout.Controller }

func (p *onePage) WithCheckout(ctx context.Context, _ string, fn func(context.Context, *checkout.Controller) error) error {
	return fn(ctx, p.c)
}

func do(t *testing.T, h http.HandlerFunc, method, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, "/api/v1/checkout", strings.NewReader(body))
	req = req.WithContext(session.WithID(req.Context(), "s1"))
	rec := httptest.NewRecorder()
	h(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestHandlerFlow(t *testing.T) {
	h := &checkout.Handler{Pages: &onePage{c: checkout.NewController(3, nil)}}

	rec, _ := do(t, h.UpdateForm, http.MethodPut, `{"nombre":"Ana","tipo_envio":"domicilio"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h.SelectShipping, http.MethodPut, `{"tipo_envio":"teleport"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	do(t, h.Next, http.MethodPost, "")
	rec, out := do(t, h.Next, http.MethodPost, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := out["data"].(map[string]any)
	require.EqualValues(t, 3, data["current_step"])
	require.Equal(t, "domicilio", data["tipo_envio"])
	final := data["final_summary"].(map[string]any)
	require.Equal(t, "Ana", final["nombre"])
}

func TestHandlerRequiresSession(t *testing.T) {
	h := &checkout.Handler{Pages: &onePage{c: checkout.NewController(3, nil)}}
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/checkout", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
