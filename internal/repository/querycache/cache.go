// Package querycache caches compiled query expressions and ordered
// result id lists in a key-value store.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/metarepo/internal/db"
	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/search/dictionary"
	"github.com/kailas-cloud/metarepo/internal/domain/search/query"
)

// store is the consumer interface for the caches (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache reads and writes the two search caches. All failures degrade
// to misses: a broken cache slows searches down, it never fails them.
type Cache struct {
	store      store
	keyPrefix  string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates the search cache accessor.
// cacheTotal is a counter vec with labels "cache" and "result", passed
// explicitly.
func New(s store, keyPrefix string, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{store: s, keyPrefix: keyPrefix, cacheTotal: cacheTotal, logger: logger}
}

func (c *Cache) inc(cache, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(cache, result).Inc()
	}
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:12])
}

func (c *Cache) exprKey(dict dictionary.Dictionary, raw string, prefix bool) string {
	flag := "plain"
	if prefix {
		flag = "prefix"
	}
	return c.keyPrefix + "expr:" + dict.String() + ":" + flag + ":" + shortHash(raw)
}

func (c *Cache) freshnessKey(appID int64, kind domain.Kind, exprHash, orderKey string) string {
	return fmt.Sprintf("%sfresh:%d:%s:%s:%s",
		c.keyPrefix, appID, kind, exprHash, shortHash(orderKey))
}

func (c *Cache) idsKey(appID int64, kind domain.Kind, exprHash, orderKey string, ts int64) string {
	return fmt.Sprintf("%sids:%d:%s:%s:%s:%d",
		c.keyPrefix, appID, kind, exprHash, shortHash(orderKey), ts)
}

// GetExpression returns a previously compiled expression for raw query
// text under a dictionary. Compilation results never change for the
// same input, so these entries carry no TTL.
func (c *Cache) GetExpression(ctx context.Context, dict dictionary.Dictionary, raw string, prefix bool) (query.Expression, bool) {
	key := c.exprKey(dict, raw, prefix)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached expression", zap.String("key", key), zap.Error(err))
		}
		c.inc("expression", "miss")
		return query.Expression{}, false
	}
	c.inc("expression", "hit")
	return query.Parse(dict, string(data)), true
}

// PutExpression stores a compiled expression.
func (c *Cache) PutExpression(ctx context.Context, raw string, expr *query.Expression) {
	key := c.exprKey(expr.Dictionary(), raw, expr.Prefix())
	if err := c.store.Set(ctx, key, []byte(expr.String())); err != nil {
		c.logger.Warn("Failed to cache expression", zap.String("key", key), zap.Error(err))
	}
}

// FreshTimestamp returns the generation timestamp of the live cached
// result set for a search identity, if one exists.
func (c *Cache) FreshTimestamp(ctx context.Context, appID int64, kind domain.Kind, exprHash, orderKey string) (int64, bool) {
	key := c.freshnessKey(appID, kind, exprHash, orderKey)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get result freshness", zap.String("key", key), zap.Error(err))
		}
		return 0, false
	}
	ts, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		c.logger.Warn("Malformed result freshness", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return ts, true
}

// IDs returns the ordered id list generated at a given timestamp.
func (c *Cache) IDs(ctx context.Context, appID int64, kind domain.Kind, exprHash, orderKey string, ts int64) ([]int64, bool) {
	key := c.idsKey(appID, kind, exprHash, orderKey, ts)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached result ids", zap.String("key", key), zap.Error(err))
		}
		c.inc("results", "miss")
		return nil, false
	}
	ids, err := bytesToIDs(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached result ids", zap.String("key", key), zap.Error(err))
		c.inc("results", "miss")
		return nil, false
	}
	c.inc("results", "hit")
	return ids, true
}

// StoreIDs stores an ordered id list generated at ts and marks it as
// the live result set for its search identity. Both entries expire
// after window; the id list lingers slightly longer so a reader holding
// a just-expired timestamp still resolves.
func (c *Cache) StoreIDs(ctx context.Context, appID int64, kind domain.Kind, exprHash, orderKey string, ts int64, ids []int64, window time.Duration) {
	idsKey := c.idsKey(appID, kind, exprHash, orderKey, ts)
	if err := c.store.SetWithTTL(ctx, idsKey, idsToBytes(ids), window+time.Minute); err != nil {
		c.logger.Warn("Failed to cache result ids", zap.String("key", idsKey), zap.Error(err))
		return
	}
	freshKey := c.freshnessKey(appID, kind, exprHash, orderKey)
	val := []byte(strconv.FormatInt(ts, 10))
	if err := c.store.SetWithTTL(ctx, freshKey, val, window); err != nil {
		c.logger.Warn("Failed to cache result freshness", zap.String("key", freshKey), zap.Error(err))
	}
}

func idsToBytes(ids []int64) []byte {
	buf := make([]byte, len(ids)*8)
	for i, id := range ids {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(id))
	}
	return buf
}

func bytesToIDs(data []byte) ([]int64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("invalid id list data: len=%d (not multiple of 8)", len(data))
	}
	ids := make([]int64, len(data)/8)
	for i := range ids {
		ids[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return ids, nil
}
