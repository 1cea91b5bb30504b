package redis

import (
	"context"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type ConnectionInfo struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

type Client = goredis.Client

// NewRedisConnection opens and pings a connection. Everything the service
// keeps in redis is ephemeral (intent handles, status caches), so the pool
// is kept small and timeouts short.
func NewRedisConnection(info ConnectionInfo) (*Client, error) {
	if info.DialTimeout == 0 {
		info.DialTimeout = 10 * time.Second
	}
	if info.Timeout == 0 {
		info.Timeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         info.Addr,
		Password:     info.Password,
		DB:           info.DB,
		MaxRetries:   info.MaxRetries,
		DialTimeout:  info.DialTimeout,
		ReadTimeout:  info.Timeout,
		WriteTimeout: info.Timeout,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), info.DialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func Close(c *Client) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}
}
