package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xhad/escrito/internal/models"
)

type RedisConfig struct {
	URL    string
	Prefix string
	// TTL expires idle sessions; zero keeps them forever.
	TTL time.Duration
}

// RedisStore keeps document text under <prefix>doc:<session> and the edit
// history as a JSON list under <prefix>history:<session>.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisWithClient(client, config), nil
}

func NewRedisWithClient(client *redis.Client, config RedisConfig) *RedisStore {
	if config.Prefix == "" {
		config.Prefix = "escrito:"
	}
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

func (s *RedisStore) docKey(sessionID string) string {
	return s.prefix + "doc:" + sessionID
}

func (s *RedisStore) historyKey(sessionID string) string {
	return s.prefix + "history:" + sessionID
}

func (s *RedisStore) LoadDocumentText(ctx context.Context, sessionID string) (string, error) {
	text, err := s.client.Get(ctx, s.docKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	return text, nil
}

func (s *RedisStore) SaveDocumentText(ctx context.Context, sessionID, text string) error {
	if err := s.client.Set(ctx, s.docKey(sessionID), text, s.ttl).Err(); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if s.ttl > 0 {
		// keep the history alive as long as the text
		if err := s.client.Expire(ctx, s.historyKey(sessionID), s.ttl).Err(); err != nil {
			return fmt.Errorf("refresh history ttl: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) AppendHistory(ctx context.Context, sessionID string, entries []models.EditCommand) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal history entry: %w", err)
		}
		values = append(values, data)
	}

	key := s.historyKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadHistory(ctx context.Context, sessionID string) ([]models.EditCommand, error) {
	raw, err := s.client.LRange(ctx, s.historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	history := make([]models.EditCommand, 0, len(raw))
	for _, item := range raw {
		var e models.EditCommand
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		history = append(history, e)
	}
	return history, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
