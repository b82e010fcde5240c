// Package store holds the DocumentStore backends: PostgreSQL, Redis and an
// in-process map.
package store

import (
	"context"
	"fmt"

	"github.com/xhad/escrito/internal/types"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Store is what every backend provides.
type Store interface {
	types.DocumentStore
	types.HistoryStore
	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	Backend  string
	Postgres PostgresConfig
	Redis    RedisConfig
}

// Open connects the configured backend. An empty backend means memory.
func Open(ctx context.Context, config Config) (Store, error) {
	switch config.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendPostgres:
		s, err := NewPostgres(ctx, config.Postgres)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		s, err := NewRedis(ctx, config.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", config.Backend)
}
