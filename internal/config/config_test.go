package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/require"
)

func fromMap(t *testing.T, values map[string]string) (*Config, error) {
	t.Helper()
	k := koanf.New(".")
	for key, v := range values {
		require.NoError(t, k.Set(key, v))
	}
	return parse(k)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := fromMap(t, map[string]string{
		"CHECKOUT_BACKEND_URL": "http://backend.local/",
		"CART_TTL":             "",
		"WIZARD_STEPS":         "",
	})
	require.NoError(t, err)
	require.Equal(t, "http://backend.local", cfg.CheckoutBackendURL)
	require.Equal(t, "http://backend.local/api/shopcart/checkout", cfg.CheckoutURL())
	require.Equal(t, "carrito_demo", cfg.CartStorageKey)
	require.Equal(t, 24*time.Hour, cfg.CartTTL)
	require.Equal(t, 3, cfg.WizardSteps)
	require.Equal(t, 15*time.Second, cfg.CheckoutTimeout)
	require.Equal(t, "X-CSRFToken", cfg.CSRFHeaderName)
	require.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
	require.False(t, cfg.CookieSecure)
	require.Nil(t, cfg.CORSAllowedOrigins)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestParseOverrides(t *testing.T) {
	cfg, err := fromMap(t, map[string]string{
		"CHECKOUT_BACKEND_URL":   "https://tienda.example",
		"CHECKOUT_ENDPOINT_PATH": "orders/checkout",
		"CORS_ALLOWED_ORIGINS":   " https://a.example, ,https://b.example",
		"COOKIE_SECURE":          "yes",
		"COOKIE_SAMESITE":        "Strict",
		"CART_TTL":               "bogus",
		"PORT":                   ":9090",
	})
	require.NoError(t, err)
	require.Equal(t, "https://tienda.example/orders/checkout", cfg.CheckoutURL())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.True(t, cfg.CookieSecure)
	require.Equal(t, http.SameSiteStrictMode, cfg.CookieSameSite)
	require.Equal(t, 24*time.Hour, cfg.CartTTL)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestParseRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing backend":  {},
		"relative backend": {"CHECKOUT_BACKEND_URL": "backend.local"},
		"zero steps": {
			"CHECKOUT_BACKEND_URL": "http://backend.local",
			"WIZARD_STEPS":         "0",
		},
		"bad redis url": {
			"CHECKOUT_BACKEND_URL": "http://backend.local",
			"REDIS_URL":            "not a url",
		},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fromMap(t, values)
			require.Error(t, err)
			require.Contains(t, err.Error(), "config:")
		})
	}
}
