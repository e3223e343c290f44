// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-gorm/caches/v4"
	"github.com/redis/go-redis/v9"
)

// redisCacher implements caches.Cacher (gorm's query-cache plugin
// interface) over the same Redis instance pkg/admission already leases
// sessions against, so standing up the caching layer doesn't introduce a
// second stateful dependency. Session bookkeeping reads (Get/Claim) are
// read-mostly between writes, making them a reasonable fit for gorm's
// query cache.
type redisCacher struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCachesPlugin returns a gorm plugin caching query results in rdb.
// Pass the result to (*gorm.DB).Use.
func NewCachesPlugin(rdb *redis.Client, ttl time.Duration) *caches.Caches {
	return &caches.Caches{Conf: &caches.Config{Cacher: &redisCacher{rdb: rdb, ttl: ttl}}}
}

func (c *redisCacher) Get(ctx context.Context, key string, q *caches.Query[any]) (*caches.Query[any], error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, nil // cache miss, including redis.Nil, is not an error to gorm
	}
	if err := json.Unmarshal(raw, q); err != nil {
		return nil, nil
	}
	return q, nil
}

func (c *redisCacher) Store(ctx context.Context, key string, val *caches.Query[any]) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

func (c *redisCacher) Invalidate(ctx context.Context) error {
	return nil // session rows change per-id; rely on per-key TTL over a global flush
}
