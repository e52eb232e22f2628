package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSnapshotMiss is returned when no snapshot is stored under a key
	ErrSnapshotMiss = errors.New("cart snapshot miss")

	// ErrCorruptSnapshot is returned when cached lines break the cart invariants
	ErrCorruptSnapshot = errors.New("corrupt cart snapshot")
)

// SnapshotCache keeps the last server-confirmed lines for offline starts
type SnapshotCache interface {
	Load(ctx context.Context, key string) ([]Line, error)
	Save(ctx context.Context, key string, lines []Line) error
}

const snapshotKeyPrefix = "cart:snapshot:"

type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

func (c *RedisSnapshotCache) Load(ctx context.Context, key string) ([]Line, error) {
	raw, err := c.client.Get(ctx, snapshotKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrSnapshotMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart snapshot: %w", err)
	}

	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart snapshot: %w", err)
	}
	if lines == nil {
		lines = []Line{}
	}
	return lines, nil
}

func (c *RedisSnapshotCache) Save(ctx context.Context, key string, lines []Line) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cart snapshot: %w", err)
	}
	return nil
}

func (s *Store) loadSnapshot() []Line {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.requestTimeout)
	defer cancel()

	lines, err := s.opts.cache.Load(ctx, s.opts.cacheKey)
	if err == nil {
		err = validateLines(lines)
	}
	if err != nil {
		if !errors.Is(err, ErrSnapshotMiss) {
			s.log.Warn("Failed to load cart snapshot", logger.Fields{
				"key":   s.opts.cacheKey,
				"error": err.Error(),
			})
		}
		return nil
	}
	return lines
}

// saveSnapshot writes snap unless a newer version has already been written
func (s *Store) saveSnapshot(snap Snapshot) {
	if s.opts.cache == nil {
		return
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if snap.Version <= s.savedVersion {
		s.log.Debug("Skipping stale cart snapshot", logger.Fields{
			"version":       snap.Version,
			"saved_version": s.savedVersion,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.requestTimeout)
	defer cancel()

	if err := s.opts.cache.Save(ctx, s.opts.cacheKey, snap.Lines); err != nil {
		s.log.Warn("Failed to save cart snapshot", logger.Fields{
			"key":   s.opts.cacheKey,
			"error": err.Error(),
		})
		return
	}
	s.savedVersion = snap.Version
}
