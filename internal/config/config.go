// Package config loads the storefront settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds storefront configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string `validate:"required"`
	RedisURL           string `validate:"omitempty,url"`
	CORSAllowedOrigins []string

	CartStorageKey string        `validate:"required"`
	CartTTL        time.Duration `validate:"gt=0"`
	CatalogFile    string
	WizardSteps    int `validate:"min=1"`

	CheckoutBackendURL   string        `validate:"required,http_url"`
	CheckoutEndpointPath string        `validate:"startswith=/"`
	CheckoutTimeout      time.Duration `validate:"gt=0"`
	CheckoutSuccessURL   string        `validate:"required"`
	IdempotencyTTL       time.Duration `validate:"gt=0"`
	SubmitRateLimit      string        `validate:"required"`

	SessionCookieName string `validate:"required"`
	CSRFCookieName    string `validate:"required"`
	CSRFHeaderName    string `validate:"required"`
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return parse(k)
}

// parse applies defaults to the keys present in k and validates the result.
func parse(k *koanf.Koanf) (*Config, error) {
	str := func(key, fallback string) string {
		if v := strings.TrimSpace(k.String(key)); v != "" {
			return v
		}
		return fallback
	}
	dur := func(key, fallback string) time.Duration {
		d, err := time.ParseDuration(str(key, fallback))
		if err != nil {
			d, _ = time.ParseDuration(fallback)
		}
		return d
	}
	steps := 3
	if k.Exists("WIZARD_STEPS") && strings.TrimSpace(k.String("WIZARD_STEPS")) != "" {
		steps = k.Int("WIZARD_STEPS")
	}

	cfg := &Config{
		AppEnv:             str("APP_ENV", "development"),
		Port:               str("PORT", "8080"),
		RedisURL:           str("REDIS_URL", ""),
		CORSAllowedOrigins: splitList(k.String("CORS_ALLOWED_ORIGINS")),

		CartStorageKey: str("CART_STORAGE_KEY", "carrito_demo"),
		CartTTL:        dur("CART_TTL", "24h"),
		CatalogFile:    str("CATALOG_FILE", ""),
		WizardSteps:    steps,

		CheckoutBackendURL:   strings.TrimRight(str("CHECKOUT_BACKEND_URL", ""), "/"),
		CheckoutEndpointPath: "/" + strings.TrimLeft(str("CHECKOUT_ENDPOINT_PATH", "/api/shopcart/checkout"), "/"),
		CheckoutTimeout:      dur("CHECKOUT_TIMEOUT", "15s"),
		CheckoutSuccessURL:   str("CHECKOUT_SUCCESS_URL", "/pedidos/pago_exitoso/"),
		IdempotencyTTL:       dur("IDEMPOTENCY_TTL", "10m"),
		SubmitRateLimit:      str("SUBMIT_RATE_LIMIT", "5-M"),

		SessionCookieName: str("SESSION_COOKIE_NAME", "toko_session"),
		CSRFCookieName:    str("CSRF_COOKIE_NAME", "csrftoken"),
		CSRFHeaderName:    str("CSRF_HEADER_NAME", "X-CSRFToken"),
		CookieDomain:      str("COOKIE_DOMAIN", ""),
		CookieSecure:      isTruthy(k.String("COOKIE_SECURE")),
		CookieSameSite:    sameSite(k.String("COOKIE_SAMESITE")),
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, describe(err)
	}
	return cfg, nil
}

// describe names the offending environment settings.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s fails %s", fe.Field(), rule))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	return ":" + strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
}

// CheckoutURL is the absolute URL orders are submitted to.
func (c *Config) CheckoutURL() string {
	return c.CheckoutBackendURL + c.CheckoutEndpointPath
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// sameSite defaults to Lax, which still sends the session cookie on the
// top-level navigation to the success page.
func sameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
