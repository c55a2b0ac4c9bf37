package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"appgateway/pkg/shopify"
)

const (
	sessionKeyPrefix = "session:"
	shopIndexPrefix  = "shop_sessions:"
)

// RedisStore keeps sessions as JSON values with a per-shop index set, so
// FindByShop stays O(sessions-of-shop).
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (r *RedisStore) Load(ctx context.Context, id string) (*shopify.Session, error) {
	b, err := r.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s := &shopify.Session{}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *RedisStore) Store(ctx context.Context, s *shopify.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+s.ID, b, 0)
	pipe.SAdd(ctx, shopIndexPrefix+s.Shop, s.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.Load(ctx, id)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+id)
	if s != nil {
		pipe.SRem(ctx, shopIndexPrefix+s.Shop, id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FindByShop(ctx context.Context, shop string) ([]*shopify.Session, error) {
	ids, err := r.rdb.SMembers(ctx, shopIndexPrefix+shop).Result()
	if err != nil {
		return nil, err
	}

	var out []*shopify.Session
	for _, id := range ids {
		s, err := r.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if s == nil {
			// Index entry outlived the value; drop it.
			_ = r.rdb.SRem(ctx, shopIndexPrefix+shop, id).Err()
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
