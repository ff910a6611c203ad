package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-blog/pkg/blog"
)

// DefaultKey is the hash holding cached tag facets, one field per limit.
const DefaultKey = "blog:facets:tags"

// FacetCache implements blog.FacetCache on a Redis hash
type FacetCache struct {
	cli *redis.Client
	key string
	ttl time.Duration
}

// Config options for the Redis facet cache
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // default 5m
	Key      string        // default DefaultKey
}

// New connects to Redis and returns a facet cache
func New(cfg Config) *FacetCache {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg)
}

// NewWithClient wraps an existing client
func NewWithClient(cli *redis.Client, cfg Config) *FacetCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	return &FacetCache{cli: cli, key: cfg.Key, ttl: cfg.TTL}
}

var _ blog.FacetCache = (*FacetCache)(nil)

func (c *FacetCache) GetTagCounts(ctx context.Context, limit int) ([]blog.TagCount, bool, error) {
	raw, err := c.cli.HGet(ctx, c.key, strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read tag facet: %w", err)
	}

	var counts []blog.TagCount
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, false, fmt.Errorf("decode tag facet: %w", err)
	}
	return counts, true, nil
}

func (c *FacetCache) SetTagCounts(ctx context.Context, limit int, counts []blog.TagCount) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode tag facet: %w", err)
	}
	_, err = c.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.key, strconv.Itoa(limit), raw)
		pipe.Expire(ctx, c.key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write tag facet: %w", err)
	}
	return nil
}

func (c *FacetCache) Invalidate(ctx context.Context) error {
	if err := c.cli.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("invalidate tag facet: %w", err)
	}
	return nil
}

// Ping checks the connection
func (c *FacetCache) Ping(ctx context.Context) error {
	return c.cli.Ping(ctx).Err()
}

// Close closes the underlying client
func (c *FacetCache) Close() error {
	return c.cli.Close()
}
