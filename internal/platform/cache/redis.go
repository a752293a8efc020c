package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Options addresses the Redis instance shared by token revocation and the
// job queue.
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Queue returns the same connection settings for asynq clients and workers.
func (o Options) Queue() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB, PoolSize: o.PoolSize}
}

// New dials Redis and fails fast when the server does not answer a ping.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		PoolSize:    opts.PoolSize,
		DialTimeout: pingTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
