package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"appgateway/pkg/shopify"
)

func TestMemoryStore_CopiesOnStoreAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := &shopify.Session{
		ID:          shopify.OfflineSessionID("my-shop.myshopify.com"),
		Shop:        "my-shop.myshopify.com",
		AccessToken: "tok",
	}
	require.NoError(t, store.Store(ctx, s))

	// Mutating the original must not leak into the stored copy.
	s.AccessToken = "mutated"

	got, err := store.Load(ctx, shopify.OfflineSessionID("my-shop.myshopify.com"))
	require.NoError(t, err)
	require.Equal(t, "tok", got.AccessToken)

	// Mutating a loaded session must not affect later loads either.
	got.AccessToken = "mutated-again"
	again, err := store.Load(ctx, got.ID)
	require.NoError(t, err)
	require.Equal(t, "tok", again.AccessToken)
}

func TestMemoryStore_FindByShopSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, s := range []*shopify.Session{
		{ID: shopify.OnlineSessionID("my-shop.myshopify.com", "9"), Shop: "my-shop.myshopify.com", IsOnline: true},
		{ID: shopify.OfflineSessionID("my-shop.myshopify.com"), Shop: "my-shop.myshopify.com"},
		{ID: shopify.OfflineSessionID("other.myshopify.com"), Shop: "other.myshopify.com"},
	} {
		require.NoError(t, store.Store(ctx, s))
	}

	found, err := store.FindByShop(ctx, "my-shop.myshopify.com")
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "my-shop.myshopify.com_9", found[0].ID)
	require.Equal(t, "offline_my-shop.myshopify.com", found[1].ID)
}

func TestMemoryStore_DeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Delete(ctx, "offline_nobody.myshopify.com"))

	got, err := store.Load(ctx, "offline_nobody.myshopify.com")
	require.NoError(t, err)
	require.Nil(t, got)
}
