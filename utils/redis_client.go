package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions carries the connection settings for the shared client.
type RedisOptions struct {
	Address    string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
}

// NewRedisClient creates a pooled Redis client and verifies the
// connection before handing it out.
func NewRedisClient(opts RedisOptions) (*redis.Client, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}

	client := redis.NewClient(&redis.Options{
		Addr:       opts.Address,
		Password:   opts.Password,
		DB:         opts.DB,
		PoolSize:   opts.PoolSize,
		MaxRetries: opts.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Address, err)
	}
	return client, nil
}
