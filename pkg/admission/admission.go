// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package admission implements the scheduler's admission control:
// capability satisfiability checks and a distributed max_sessions counter
// shared by every scheduler process, backed by Redis with crash-recovery
// via TTL'd leases.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrAtCapacity is returned by TryAdmit when max_sessions has been reached.
var ErrAtCapacity = errors.New("admission: at max_sessions capacity")

// Controller bounds the number of concurrently running sessions across the
// fleet, the way RTPPortAllocator bounds concurrently leased RTP ports:
// each admitted session claims a slot keyed by its own id with a TTL, so a
// scheduler process that crashes without releasing its slots doesn't
// permanently shrink capacity — the lease simply expires.
type Controller struct {
	rdb         *redis.Client
	instanceID  string
	maxSessions int
	leaseTTL    time.Duration
	keyPrefix   string
}

// NewController constructs a Controller. instanceID is recorded on the
// Controller but is not part of any Redis key or value: leases are keyed by
// session id alone, and a crashed process's leases expire after their TTL.
func NewController(rdb *redis.Client, instanceID string, maxSessions int, leaseTTL time.Duration) *Controller {
	if leaseTTL <= 0 {
		leaseTTL = 5 * time.Minute
	}
	return &Controller{
		rdb:         rdb,
		instanceID:  instanceID,
		maxSessions: maxSessions,
		leaseTTL:    leaseTTL,
		keyPrefix:   "streamrt:admission:{sessions}:",
	}
}

func (c *Controller) countKey() string { return c.keyPrefix + "count" }

func (c *Controller) leaseKey(sessionID string) string {
	return fmt.Sprintf("%slease:%s", c.keyPrefix, sessionID)
}

// admitScript atomically checks current active-lease count against
// max_sessions and, if there's room, creates the session's lease key with a
// TTL — all in one round trip so concurrent TryAdmit calls from different
// scheduler processes can't both slip past the limit.
const admitScript = `
local prefix = KEYS[1]
local sessionKey = KEYS[2]
local maxSessions = tonumber(ARGV[1])
local ttlSeconds = tonumber(ARGV[2])

local pattern = prefix .. "lease:*"
local cursor = "0"
local count = 0
repeat
	local res = redis.call("SCAN", cursor, "MATCH", pattern, "COUNT", 1000)
	cursor = res[1]
	count = count + #res[2]
until cursor == "0"

if count >= maxSessions then
	return 0
end

redis.call("SET", sessionKey, "1", "EX", ttlSeconds)
return 1
`

// TryAdmit attempts to claim one of max_sessions slots for sessionID.
// Returns ErrAtCapacity if the fleet is already at capacity.
func (c *Controller) TryAdmit(ctx context.Context, sessionID string) error {
	res, err := c.rdb.Eval(ctx, admitScript, []string{c.keyPrefix, c.leaseKey(sessionID)},
		c.maxSessions, int(c.leaseTTL.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("admission: redis eval: %w", err)
	}
	admitted, _ := res.(int64)
	if admitted == 0 {
		return ErrAtCapacity
	}
	return nil
}

// Renew extends sessionID's lease TTL — called periodically by a long-lived
// session so it doesn't expire out from under an active pipeline.
func (c *Controller) Renew(ctx context.Context, sessionID string) error {
	ok, err := c.rdb.Expire(ctx, c.leaseKey(sessionID), c.leaseTTL).Result()
	if err != nil {
		return fmt.Errorf("admission: renew: %w", err)
	}
	if !ok {
		return fmt.Errorf("admission: no active lease for session %q", sessionID)
	}
	return nil
}

// Release frees sessionID's slot immediately, for the graceful-shutdown
// path (crash recovery instead relies on the TTL expiring).
func (c *Controller) Release(ctx context.Context, sessionID string) error {
	if err := c.rdb.Del(ctx, c.leaseKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("admission: release: %w", err)
	}
	return nil
}

// ActiveCount returns the current number of unexpired leases, for health
// and capacity introspection.
func (c *Controller) ActiveCount(ctx context.Context) (int, error) {
	var cursor uint64
	var count int
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.keyPrefix+"lease:*", 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("admission: scan: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count, nil
}
