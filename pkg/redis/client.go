package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/twscan/pkg/config"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
)

// Client is the shared Redis connection behind the bar cache, the latest
// report mirror and the cross-process retrieval limit. A disabled Client is
// valid and turns every consumer into a passthrough.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb  *redis.Client
	addr string
}

// New connects when REDIS_ENABLED is true and returns a disabled Client otherwise
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	addr := net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: connection failed: %w", addr, err)
	}

	return &Client{rdb: rdb, addr: addr}, nil
}

// Close closes the connection; no-op when disabled
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled reports whether a connection exists
func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Addr is host:port, empty when disabled
func (c *Client) Addr() string {
	return c.addr
}

// Redis returns the underlying client (nil when disabled)
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Ping checks the connection (always nil when disabled)
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}
