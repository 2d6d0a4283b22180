package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"warehouse-assistant/internal/nlp/entity"
	"warehouse-assistant/internal/nlp/intent"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "warehouse:session:"

// RedisStore keeps sessions as JSON values whose TTL is refreshed on every
// update, so Redis does the eviction.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store. The client stays owned by the
// caller.
func NewRedisStore(client redis.Cmdable, ttl time.Duration, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, ttl: ttl, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Context, bool, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", ErrStore, sessionID, err)
	}

	var c Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false, fmt.Errorf("%w: decode %s: %v", ErrStore, sessionID, err)
	}
	return &c, true, nil
}

func (s *RedisStore) Update(ctx context.Context, sessionID, userID string, in intent.Intent, entities []entity.Entity) (*Context, error) {
	now := s.now()

	c, ok, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		c = &Context{SessionID: sessionID, CreatedAt: now}
	}
	c.apply(userID, in, entities, now)

	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", ErrStore, sessionID, err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("%w: set %s: %v", ErrStore, sessionID, err)
	}
	return c, nil
}

func (s *RedisStore) Close() error {
	return nil
}
