package storefront

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/checkout"
	"github.com/noah-isme/toko-storefront/internal/events"
	"github.com/noah-isme/toko-storefront/internal/lock"
	"github.com/noah-isme/toko-storefront/internal/productcard"
	"github.com/noah-isme/toko-storefront/internal/shipping"
	"github.com/noah-isme/toko-storefront/internal/submit"
)

func newRegistry(t *testing.T, backend cart.Backend) *Registry {
	t.Helper()
	cat, err := catalog.New([]catalog.Product{
		{ID: "a", Nombre: "Remera", Precio: "10000"},
		{ID: "b", Nombre: "Gorra", Precio: "2500,50"},
	})
	require.NoError(t, err)
	bus := &events.Bus{}
	lines := CatalogLines{Catalog: cat}
	return &Registry{
		Bus:   bus,
		Cart:  &cart.Service{Store: &cart.Store{Backend: backend, Bus: bus}},
		Lines: lines.Lines,
		Steps: 3,
	}
}

func TestPageSeesCartWrites(t *testing.T) {
	reg := newRegistry(t, cart.NewMemoryBackend())
	ctx := context.Background()

	require.NoError(t, reg.WithBoard(ctx, "s1", func(ctx context.Context, b *productcard.Board) error {
		_, err := b.Add(ctx, "a")
		if err != nil {
			return err
		}
		return b.Confirm(ctx)
	}))
	require.Equal(t, 2, reg.Bus.Subscribers(events.TopicCartUpdated, "s1"))

	require.NoError(t, reg.WithCheckout(ctx, "s1", func(_ context.Context, c *checkout.Controller) error {
		require.Len(t, c.Cart(), 1)
		require.Equal(t, "$10.000,00", c.Summary().SubtotalText)
		return nil
	}))

	require.NoError(t, reg.Run(ctx, "s1", func(ctx context.Context) error {
		return reg.Cart.Clear(ctx, "s1")
	}))
	require.NoError(t, reg.WithBoard(ctx, "s1", func(_ context.Context, b *productcard.Board) error {
		v, err := b.View("a")
		require.NoError(t, err)
		require.True(t, v.AddVisible)
		return nil
	}))
}

func TestPageStartsFromStoredCart(t *testing.T) {
	backend := cart.NewMemoryBackend()
	reg := newRegistry(t, backend)
	ctx := context.Background()
	require.NoError(t, reg.Cart.Store.Write(ctx, "s1", cart.Cart{{ID: "b", Nombre: "Gorra", Precio: "2500,50", Cantidad: 2}}))

	require.NoError(t, reg.WithBoard(ctx, "s1", func(_ context.Context, b *productcard.Board) error {
		v, err := b.View("b")
		require.NoError(t, err)
		require.Equal(t, productcard.IdleInCart, v.State)
		require.Equal(t, 2, v.InCart)
		return nil
	}))
}

func TestBeginSubmitGuard(t *testing.T) {
	reg := newRegistry(t, cart.NewMemoryBackend())
	ctx := context.Background()

	require.NoError(t, reg.WithCheckout(ctx, "s1", func(_ context.Context, c *checkout.Controller) error {
		c.UpdateForm(checkout.Form{Nombre: " Ana "})
		c.SelectShipping(shipping.RetiroSucursal)
		return nil
	}))

	draft, err := reg.BeginSubmit(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "Ana", draft.Form.Nombre)
	require.Equal(t, shipping.RetiroSucursal, draft.Option)

	_, err = reg.BeginSubmit(ctx, "s1")
	require.ErrorIs(t, err, submit.ErrSubmitInFlight)

	reg.EndSubmit("s1")
	_, err = reg.BeginSubmit(ctx, "s1")
	require.NoError(t, err)
	reg.EndSubmit("s1")
	reg.EndSubmit("s1")
}

func TestSubmitLeaseAcrossReplicas(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := &lock.Locker{R: client, Prefix: "checkout_submit:"}

	backend := cart.NewMemoryBackend()
	first := newRegistry(t, backend)
	first.Locker = locker
	second := newRegistry(t, backend)
	second.Locker = locker
	ctx := context.Background()

	_, err = first.BeginSubmit(ctx, "s1")
	require.NoError(t, err)
	_, err = second.BeginSubmit(ctx, "s1")
	require.True(t, errors.Is(err, submit.ErrSubmitInFlight))

	first.EndSubmit("s1")
	_, err = second.BeginSubmit(ctx, "s1")
	require.NoError(t, err)
	second.EndSubmit("s1")
	require.False(t, mr.Exists("checkout_submit:s1"))
}

func TestSweepEvictsIdlePages(t *testing.T) {
	reg := newRegistry(t, cart.NewMemoryBackend())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }
	reg.IdleTTL = time.Hour
	ctx := context.Background()

	require.NoError(t, reg.Run(ctx, "s1", func(context.Context) error { return nil }))
	_, err := reg.BeginSubmit(ctx, "s2")
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	now = now.Add(2 * time.Hour)
	require.Equal(t, 1, reg.Sweep())
	require.Equal(t, 1, reg.Len())
	require.Zero(t, reg.Bus.Subscribers(events.TopicCartUpdated, "s1"))

	reg.EndSubmit("s2")
	now = now.Add(2 * time.Hour)
	require.Equal(t, 1, reg.Sweep())
	require.Zero(t, reg.Len())
}

func TestCatalogLinesLookup(t *testing.T) {
	cat, err := catalog.New([]catalog.Product{{ID: "a", Nombre: "Remera", Precio: "100", Talle: "M"}})
	require.NoError(t, err)
	lines := CatalogLines{Catalog: cat}

	it, err := lines.LineFor("a")
	require.NoError(t, err)
	require.Equal(t, cart.Item{ID: "a", Nombre: "Remera", Precio: "100", Talle: "M"}, it)

	_, err = lines.LineFor("zzz")
	require.ErrorIs(t, err, cart.ErrUnknownProduct)
}

func TestSharedRegistryReconcilesReusedPage(t *testing.T) {
	backend := cart.NewMemoryBackend()
	replicaA := newRegistry(t, backend)
	replicaB := newRegistry(t, backend)
	ctx := context.Background()

	cartLen := func(reg *Registry) int {
		n := -1
		require.NoError(t, reg.WithCheckout(ctx, "s1", func(_ context.Context, c *checkout.Controller) error {
			n = len(c.Cart())
			return nil
		}))
		return n
	}
	require.Zero(t, cartLen(replicaA))

	// a write on another replica never reaches this replica's bus
	_, err := replicaB.Cart.SetQuantity(ctx, "s1", cart.Item{ID: "a", Nombre: "Remera", Precio: "10000"}, 2)
	require.NoError(t, err)
	require.Zero(t, cartLen(replicaA))

	replicaA.Shared = true
	require.Equal(t, 1, cartLen(replicaA))
	require.NoError(t, replicaA.WithBoard(ctx, "s1", func(_ context.Context, b *productcard.Board) error {
		v, err := b.View("a")
		require.NoError(t, err)
		require.Equal(t, 2, v.InCart)
		return nil
	}))
	require.NoError(t, replicaA.WithCheckout(ctx, "s1", func(_ context.Context, c *checkout.Controller) error {
		require.Equal(t, "$20.000,00", c.Summary().SubtotalText)
		return nil
	}))

	require.NoError(t, replicaB.Cart.Clear(ctx, "s1"))
	require.Zero(t, cartLen(replicaA))
}
