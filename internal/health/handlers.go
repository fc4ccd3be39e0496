// Package health serves the liveness and readiness checks of the storefront.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/toko-storefront/internal/resilience"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the readiness flag. Shutdown sets it to false so load
// balancers drain the instance before the listener closes.
func SetReady(v bool) {
	ready.Store(v)
}

// Checker represents dependencies that can be pinged for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, timeout time.Duration) error

// PingRedis implements Checker.
func (f CheckerFunc) PingRedis(ctx context.Context, timeout time.Duration) error {
	return f(ctx, timeout)
}

// BreakerStats is implemented by *resilience.Breaker.
type BreakerStats interface {
	Stats() resilience.Stats
}

// Handler exposes HTTP handlers for health endpoints. A nil Checker means the
// storefront runs without Redis.
type Handler struct {
	Checker      Checker
	RedisTimeout time.Duration
	// Breakers are reported by target. An open breaker does not fail
	// readiness: pages still render and only checkout submits are refused.
	Breakers []BreakerStats
}

// Report is the readiness document.
type Report struct {
	Server   string            `json:"server"`
	Redis    string            `json:"redis"`
	Breakers map[string]string `json:"breakers,omitempty"`
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready answers 200 when the instance serves traffic and Redis, if
// configured, answers a ping. Otherwise it answers 503.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	rep := Report{Server: "ok", Redis: "disabled"}
	healthy := true
	if !ready.Load() {
		rep.Server = "draining"
		healthy = false
	}
	if h.Checker != nil {
		rep.Redis = "ok"
		if err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); err != nil {
			rep.Redis = err.Error()
			healthy = false
		}
	}
	for _, b := range h.Breakers {
		if rep.Breakers == nil {
			rep.Breakers = make(map[string]string, len(h.Breakers))
		}
		s := b.Stats()
		rep.Breakers[s.Target] = s.State.String()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
