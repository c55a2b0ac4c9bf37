// Package session stores OAuth sessions keyed by their deterministic id.
package session

import (
	"context"

	"appgateway/pkg/shopify"
)

// Store is the session storage the gateway reads and writes through. A
// missing session is (nil, nil), not an error. Store must behave as an
// upsert: concurrent OAuth callbacks for the same shop race to write the same
// derived id and last-write-wins is the expected resolution.
type Store interface {
	Load(ctx context.Context, id string) (*shopify.Session, error)
	Store(ctx context.Context, s *shopify.Session) error
	Delete(ctx context.Context, id string) error
	FindByShop(ctx context.Context, shop string) ([]*shopify.Session, error)
}
