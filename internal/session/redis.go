package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"med-assistant/internal/conversation"
)

const (
	// Key prefix for session metadata and turn lists
	sessionKeyPrefix = "session:"
	turnsKeySuffix   = ":turns"
)

// RedisStore keeps each session as a metadata key plus a list of JSON turns, both expiring together.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(addr, password string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func metaKey(id uuid.UUID) string  { return sessionKeyPrefix + id.String() }
func turnsKey(id uuid.UUID) string { return sessionKeyPrefix + id.String() + turnsKeySuffix }

func (s *RedisStore) Create(ctx context.Context) (Session, error) {
	id := uuid.New()
	now := time.Now().UTC()
	if err := s.client.Set(ctx, metaKey(id), now.Format(time.RFC3339Nano), s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return Session{ID: id, CreatedAt: now, Log: conversation.NewLog(nil)}, nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	created, err := s.client.Get(ctx, metaKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}

	raw, err := s.client.LRange(ctx, turnsKey(id), 0, -1).Result()
	if err != nil {
		return Session{}, fmt.Errorf("list turns: %w", err)
	}
	turns := make([]conversation.Turn, 0, len(raw))
	for _, item := range raw {
		var t conversation.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return Session{}, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return Session{ID: id, CreatedAt: createdAt, Log: conversation.NewLog(turns)}, nil
}

func (s *RedisStore) Append(ctx context.Context, id uuid.UUID, turns ...conversation.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	n, err := s.client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	values := make([]any, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	// MULTI/EXEC so a pair of turns never lands half-written.
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, turnsKey(id), values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, turnsKey(id), s.ttl)
			pipe.Expire(ctx, metaKey(id), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append turns: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.client.Del(ctx, metaKey(id), turnsKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
