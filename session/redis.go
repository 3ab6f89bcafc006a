package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentloop/core"
)

const redisKeyPrefix = "agentloop:session:"

// RedisOptions configures a Redis session.
type RedisOptions struct {
	// TTL refreshes the key expiry on every write. Zero means no expiry.
	TTL time.Duration
}

// Redis is a Session implementation backed by a Redis list, one list per
// session id. It suits deployments where several processes share history.
type Redis struct {
	client    redis.UniversalClient
	sessionID string
	ttl       time.Duration
}

var _ Session = (*Redis)(nil)

// NewRedis constructs a session on top of an existing Redis client. The
// caller keeps ownership of the client.
func NewRedis(client redis.UniversalClient, sessionID string, optFns ...func(o *RedisOptions)) *Redis {
	opts := RedisOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Redis{
		client:    client,
		sessionID: sessionID,
		ttl:       opts.TTL,
	}
}

func (s *Redis) key() string {
	return redisKeyPrefix + s.sessionID
}

// GetItems implements Session.
func (s *Redis) GetItems(ctx context.Context, limit int) ([]core.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := s.client.LRange(ctx, s.key(), start, -1).Result()
	if err != nil {
		return nil, core.NewSessionError(err)
	}

	items := make([]core.Message, 0, len(raw))

	for _, data := range raw {
		var msg core.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil, core.NewSerializationError(err)
		}
		items = append(items, msg)
	}

	return items, nil
}

// AddItems implements Session.
func (s *Redis) AddItems(ctx context.Context, items []core.Message) error {
	if len(items) == 0 {
		return nil
	}

	values := make([]any, 0, len(items))

	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return core.NewSerializationError(err)
		}
		values = append(values, string(data))
	}

	if err := s.client.RPush(ctx, s.key(), values...).Err(); err != nil {
		return core.NewSessionError(err)
	}

	if s.ttl > 0 {
		if err := s.client.Expire(ctx, s.key(), s.ttl).Err(); err != nil {
			return core.NewSessionError(err)
		}
	}

	return nil
}

// PopItem implements Session.
func (s *Redis) PopItem(ctx context.Context) (*core.Message, error) {
	data, err := s.client.RPop(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, core.NewSessionError(err)
	}

	var msg core.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, core.NewSerializationError(err)
	}

	return &msg, nil
}

// Clear implements Session.
func (s *Redis) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return core.NewSessionError(err)
	}

	return nil
}
