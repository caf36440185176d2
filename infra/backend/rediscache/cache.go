// Package rediscache puts a Redis read-through cache in front of a schedule
// backend. Every assignment request invalidates the tenant's cached
// snapshots, whatever its result, and bumps a per-tenant generation so a
// fetch that started before the request never writes its result back.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/dispatchboard/core/logger"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/schedule"
)

// Config of the snapshot cache.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttl_seconds"`
	Prefix     string `json:"prefix"`
}

func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.TTLSeconds == 0 {
		c.TTLSeconds = 30
	}
	if c.Prefix == "" {
		c.Prefix = "dispatchboard"
	}
}

func (c Config) Validate() error {
	if c.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must be >= 0")
	}
	if c.DB < 0 {
		return fmt.Errorf("cache.db must be >= 0")
	}
	return nil
}

// NewClient opens a go-redis client for cfg.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Cache implements schedule.Backend.
type Cache struct {
	next   schedule.Backend
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	log    logger.Logger
}

func New(next schedule.Backend, rdb redis.UniversalClient, cfg Config, log logger.Logger) (*Cache, error) {
	if next == nil || rdb == nil {
		return nil, fmt.Errorf("rediscache: backend and client required")
	}
	if log == nil {
		return nil, fmt.Errorf("rediscache: logger required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Cache{
		next:   next,
		rdb:    rdb,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
		prefix: cfg.Prefix,
		log:    log,
	}, nil
}

func (c *Cache) snapshotKey(tenant string, r model.DateRange) string {
	return fmt.Sprintf("%s:%s:schedule:%s:%s", c.prefix, tenant, r.From, r.To)
}

func (c *Cache) indexKey(tenant string) string {
	return fmt.Sprintf("%s:%s:schedule-keys", c.prefix, tenant)
}

func (c *Cache) genKey(tenant string) string {
	return fmt.Sprintf("%s:%s:schedule-gen", c.prefix, tenant)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// generation reads the tenant's mutation counter; a missing key is 0.
func (c *Cache) generation(ctx context.Context, rdb getter, tenant string) (int64, error) {
	n, err := rdb.Get(ctx, c.genKey(tenant)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// FetchSchedule serves r from Redis when present. Redis failures fall back to
// the backend.
func (c *Cache) FetchSchedule(ctx context.Context, tenant string, r model.DateRange) (model.Snapshot, error) {
	key := c.snapshotKey(tenant, r)
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap model.Snapshot
		if uerr := json.Unmarshal(data, &snap); uerr == nil {
			c.log.Debugf("cache hit %s", key)
			return snap, nil
		} else {
			c.log.Warnf("drop corrupt cache entry %s: %v", key, uerr)
		}
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warnf("cache get %s: %v", key, err)
	}

	gen, genErr := c.generation(ctx, c.rdb, tenant)
	snap, err := c.next.FetchSchedule(ctx, tenant, r)
	if err != nil {
		return snap, err
	}
	if c.ttl > 0 && genErr == nil {
		c.store(ctx, tenant, key, gen, snap)
	}
	return snap, nil
}

var errGenerationMoved = errors.New("assignment since fetch start")

// store writes snap only while the tenant generation still equals gen.
func (c *Cache) store(ctx context.Context, tenant, key string, gen int64, snap model.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.log.Warnf("encode snapshot: %v", err)
		return
	}
	idx := c.indexKey(tenant)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := c.generation(ctx, tx, tenant)
		if err != nil {
			return err
		}
		if cur != gen {
			return errGenerationMoved
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, c.ttl)
			p.SAdd(ctx, idx, key)
			p.Expire(ctx, idx, 2*c.ttl)
			return nil
		})
		return err
	}, c.genKey(tenant))
	switch {
	case err == nil:
	case errors.Is(err, errGenerationMoved), errors.Is(err, redis.TxFailedErr):
		c.log.Debugf("skip cache set %s: %v", key, err)
	default:
		c.log.Warnf("cache set %s: %v", key, err)
	}
}

// SetAssignment forwards to the backend, then bumps the tenant generation and
// drops every cached snapshot of tenant.
func (c *Cache) SetAssignment(ctx context.Context, tenant, workOrderID, technicianID string) error {
	err := c.next.SetAssignment(ctx, tenant, workOrderID, technicianID)
	ictx := context.WithoutCancel(ctx)
	if gerr := c.rdb.Incr(ictx, c.genKey(tenant)).Err(); gerr != nil {
		c.log.Warnf("cache generation %s: %v", tenant, gerr)
	}
	if ierr := c.Invalidate(ictx, tenant); ierr != nil {
		c.log.Warnf("cache invalidate %s: %v", tenant, ierr)
	}
	return err
}

// Invalidate removes all cached snapshots of tenant.
func (c *Cache) Invalidate(ctx context.Context, tenant string) error {
	idx := c.indexKey(tenant)
	keys, err := c.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return err
	}
	return c.rdb.Del(ctx, append(keys, idx)...).Err()
}
