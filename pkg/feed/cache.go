package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/raykavin/chartdesk/pkg/logger"
)

// Cache keeps fetched quotes in buntdb for a fixed time to live.
type Cache struct {
	log  logger.Logger
	db   *buntdb.DB
	ttl  time.Duration
	next Provider
}

// NewCache wraps next with a cache stored at path; ":memory:" keeps it in memory.
func NewCache(path string, ttl time.Duration, next Provider, log logger.Logger) (*Cache, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	return &Cache{log: log, db: db, ttl: ttl, next: next}, nil
}

// Fetch serves a cached quote or asks the wrapped provider and stores the answer.
func (c *Cache) Fetch(ctx context.Context, q Query) (Quote, error) {
	key := q.Key()

	quote, ok, err := c.get(key)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("dropping unreadable cache entry")
	}
	if ok {
		c.log.WithField("key", key).Debug("quote cache hit")
		return quote, nil
	}

	quote, err = c.next.Fetch(ctx, q)
	if err != nil {
		return Quote{}, err
	}

	if err := c.set(key, quote); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("failed to cache quote")
	}
	return quote, nil
}

func (c *Cache) get(key string) (Quote, bool, error) {
	var content string
	err := c.db.View(func(tx *buntdb.Tx) error {
		var err error
		content, err = tx.Get(key)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return Quote{}, false, nil
	}
	if err != nil {
		return Quote{}, false, err
	}

	var quote Quote
	if err := json.Unmarshal([]byte(content), &quote); err != nil {
		return Quote{}, false, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	return quote, true, nil
}

func (c *Cache) set(key string, quote Quote) error {
	content, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	return c.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(content), &buntdb.SetOptions{Expires: true, TTL: c.ttl})
		return err
	})
}

// Invalidate drops one cached query.
func (c *Cache) Invalidate(q Query) error {
	err := c.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(q.Key())
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil
	}
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
