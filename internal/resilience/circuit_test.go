package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/resilience"
)

func TestBreakerTransitions(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.5, 50*time.Millisecond)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")
	require.Equal(t, resilience.Open, breaker.State())

	time.Sleep(60 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "breaker should move to half-open after cool off")
	require.False(t, breaker.Allow(ctx), "only one trial request while half-open")
	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
	require.True(t, breaker.Allow(ctx), "breaker should close after a successful trial")
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	breaker := resilience.NewBreaker(1, 0.5, 10*time.Millisecond)
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.Eventually(t, func() bool { return breaker.Allow(ctx) }, 200*time.Millisecond, 5*time.Millisecond)
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx))
}

func TestBreakerWindowForgetsOldOutcomes(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.75, time.Minute).WithTarget("checkout_backend")
	ctx := context.Background()

	for _, ok := range []bool{false, true, true, true, false} {
		breaker.Report(ctx, ok)
	}
	stats := breaker.Stats()
	require.Equal(t, "checkout_backend", stats.Target)
	require.Equal(t, resilience.Closed, stats.State)
	require.Equal(t, 4, stats.Observed)
	require.Equal(t, 1, stats.Failures)

	breaker.Report(ctx, false)
	breaker.Report(ctx, false)
	stats = breaker.Stats()
	require.Equal(t, resilience.Open, stats.State)
	require.Zero(t, stats.Observed)
	require.False(t, stats.RetryAt.IsZero())
}
