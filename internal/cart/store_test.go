package cart_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/events"
)

func newRedisStore(t *testing.T, bus *events.Bus) (*cart.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &cart.Store{Backend: cart.RedisBackend{Client: client, TTL: time.Hour}, Bus: bus}, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t, nil)
	ctx := context.Background()

	empty, err := store.Read(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, empty)

	c := cart.Cart{{ID: "1", Nombre: "Remera", Precio: "100", Cantidad: 2, Talle: "M"}}
	require.NoError(t, store.Write(ctx, "s1", c))
	require.True(t, mr.Exists("carrito_demo:s1"))
	require.Greater(t, mr.TTL("carrito_demo:s1"), time.Duration(0))

	got, err := store.Read(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, c, got)

	other, err := store.Read(ctx, "s2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestStoreMalformedBlobReadsEmpty(t *testing.T) {
	store, mr := newRedisStore(t, nil)
	require.NoError(t, mr.Set("carrito_demo:s1", "{not json"))

	got, err := store.Read(context.Background(), "s1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStoreWriteBroadcastsSnapshot(t *testing.T) {
	bus := &events.Bus{}
	store := &cart.Store{Backend: cart.NewMemoryBackend(), Bus: bus}

	var seen []cart.Cart
	bus.Subscribe(events.TopicCartUpdated, "s1", func(_ context.Context, ev events.Event) error {
		seen = append(seen, ev.Payload.(cart.Updated).Carrito)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "s1", cart.Cart{{ID: "1", Cantidad: 1}}))
	require.NoError(t, store.Clear(ctx, "s1"))
	require.NoError(t, store.Write(ctx, "s2", cart.Cart{{ID: "9", Cantidad: 1}}))

	require.Len(t, seen, 2)
	require.Equal(t, cart.Cart{{ID: "1", Cantidad: 1}}, seen[0])
	require.Empty(t, seen[1])
}

func TestServiceSetQuantity(t *testing.T) {
	store := &cart.Store{Backend: cart.NewMemoryBackend(), Key: "k"}
	svc := &cart.Service{Store: store}
	ctx := context.Background()

	c, err := svc.SetQuantity(ctx, "s", cart.Item{ID: "1", Nombre: "A", Precio: "10"}, 2)
	require.NoError(t, err)
	require.Len(t, c, 1)

	c, err = svc.SetQuantity(ctx, "s", cart.Item{ID: "1"}, 4)
	require.NoError(t, err)
	require.Equal(t, 4, c[0].Cantidad)
	require.Equal(t, "A", c[0].Nombre)

	c, err = svc.SetQuantity(ctx, "s", cart.Item{ID: "1"}, 0)
	require.NoError(t, err)
	require.Empty(t, c)

	_, err = svc.SetQuantity(ctx, "s", cart.Item{ID: " "}, 1)
	require.ErrorIs(t, err, cart.ErrInvalidInput)

	stored, err := svc.Get(ctx, "s")
	require.NoError(t, err)
	require.Empty(t, stored)
}
