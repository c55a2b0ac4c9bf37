package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appgateway/pkg/shopify"
)

// PostgresStore keeps sessions in a `sessions` table (see migrations/).
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (r *PostgresStore) Load(ctx context.Context, id string) (*shopify.Session, error) {
	const q = `
SELECT id, shop, is_online, scope, access_token, expires_at, COALESCE(user_id,'')
FROM sessions
WHERE id = $1
`
	s := &shopify.Session{}
	err := r.db.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.Shop, &s.IsOnline, &s.Scope, &s.AccessToken, &s.ExpiresAt, &s.UserID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresStore) Store(ctx context.Context, s *shopify.Session) error {
	const q = `
INSERT INTO sessions (id, shop, is_online, scope, access_token, expires_at, user_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  shop = EXCLUDED.shop,
  is_online = EXCLUDED.is_online,
  scope = EXCLUDED.scope,
  access_token = EXCLUDED.access_token,
  expires_at = EXCLUDED.expires_at,
  user_id = EXCLUDED.user_id,
  updated_at = NOW()
`
	_, err := r.db.Exec(ctx, q, s.ID, s.Shop, s.IsOnline, s.Scope, s.AccessToken, s.ExpiresAt, s.UserID)
	return err
}

func (r *PostgresStore) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM sessions WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *PostgresStore) FindByShop(ctx context.Context, shop string) ([]*shopify.Session, error) {
	const q = `
SELECT id, shop, is_online, scope, access_token, expires_at, COALESCE(user_id,'')
FROM sessions
WHERE shop = $1
ORDER BY id
`
	rows, err := r.db.Query(ctx, q, shop)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*shopify.Session
	for rows.Next() {
		s := &shopify.Session{}
		if err := rows.Scan(&s.ID, &s.Shop, &s.IsOnline, &s.Scope, &s.AccessToken, &s.ExpiresAt, &s.UserID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
