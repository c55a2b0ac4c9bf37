package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"appgateway/pkg/shopify"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	exp := time.Unix(1800000000, 0).UTC()
	s := &shopify.Session{
		ID:          shopify.OnlineSessionID("my-shop.myshopify.com", "42"),
		Shop:        "my-shop.myshopify.com",
		IsOnline:    true,
		Scope:       "read_products",
		AccessToken: "tok",
		ExpiresAt:   &exp,
		UserID:      "42",
	}
	require.NoError(t, store.Store(ctx, s))

	got, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s, got)

	missing, err := store.Load(ctx, "offline_other.myshopify.com")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRedisStore_FindByShopAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	offline := &shopify.Session{
		ID:          shopify.OfflineSessionID("my-shop.myshopify.com"),
		Shop:        "my-shop.myshopify.com",
		AccessToken: "tok1",
	}
	online := &shopify.Session{
		ID:          shopify.OnlineSessionID("my-shop.myshopify.com", "42"),
		Shop:        "my-shop.myshopify.com",
		IsOnline:    true,
		AccessToken: "tok2",
		UserID:      "42",
	}
	require.NoError(t, store.Store(ctx, offline))
	require.NoError(t, store.Store(ctx, online))

	found, err := store.FindByShop(ctx, "my-shop.myshopify.com")
	require.NoError(t, err)
	require.Len(t, found, 2)

	require.NoError(t, store.Delete(ctx, offline.ID))
	found, err = store.FindByShop(ctx, "my-shop.myshopify.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, online.ID, found[0].ID)
}

func TestRedisStore_StoreIsUpsert(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	id := shopify.OfflineSessionID("my-shop.myshopify.com")
	first := &shopify.Session{ID: id, Shop: "my-shop.myshopify.com", AccessToken: "old"}
	second := &shopify.Session{ID: id, Shop: "my-shop.myshopify.com", AccessToken: "new"}

	require.NoError(t, store.Store(ctx, first))
	require.NoError(t, store.Store(ctx, second))

	got, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "new", got.AccessToken)

	found, err := store.FindByShop(ctx, "my-shop.myshopify.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
}
