package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"worldroom/models"
)

// StateCache keeps the shared part of a room snapshot in Redis. Entries are
// keyed by a per-room version that Invalidate bumps, so a snapshot built
// before a mutation can never be served after it. A nil *StateCache is a
// valid no-op cache.
type StateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateCache(client *redis.Client, ttl time.Duration) *StateCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &StateCache{client: client, ttl: ttl}
}

func versionKey(code string) string { return "room_state:" + strings.ToUpper(code) + ":version" }

func stateKey(code string, version int64) string {
	return fmt.Sprintf("room_state:%s:%d", strings.ToUpper(code), version)
}

func (c *StateCache) version(ctx context.Context, code string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(code)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// Get returns the cached snapshot, if any, and the version a fresh snapshot
// should be stored under.
func (c *StateCache) Get(ctx context.Context, code string) (*models.RoomState, int64, bool) {
	if c == nil {
		return nil, 0, false
	}
	version, err := c.version(ctx, code)
	if err != nil {
		logrus.WithField("room_code", code).WithError(err).Warn("Failed to read room state version")
		return nil, -1, false
	}
	data, err := c.client.Get(ctx, stateKey(code, version)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.WithField("room_code", code).WithError(err).Warn("Failed to read cached room state")
		}
		return nil, version, false
	}
	var state models.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		logrus.WithField("room_code", code).WithError(err).Warn("Discarding malformed cached room state")
		return nil, version, false
	}
	return &state, version, true
}

// Set stores state under version. Negative versions are ignored.
func (c *StateCache) Set(ctx context.Context, code string, version int64, state *models.RoomState) {
	if c == nil || version < 0 {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		logrus.WithField("room_code", code).WithError(err).Error("Failed to marshal room state")
		return
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, stateKey(code, version), data, c.ttl)
	pipe.Expire(ctx, versionKey(code), c.ttl+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithField("room_code", code).WithError(err).Warn("Failed to cache room state")
	}
}

func (c *StateCache) Invalidate(ctx context.Context, code string) {
	if c == nil {
		return
	}
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, versionKey(code))
	pipe.Expire(ctx, versionKey(code), c.ttl+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithField("room_code", code).WithError(err).Warn("Failed to invalidate room state")
	}
}
