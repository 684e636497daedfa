package bitsvg

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheCapacity is the number of masks remembered when no capacity is configured.
const DefaultCacheCapacity = 128

// CacheStats is a snapshot of the TraceCache counters.
type CacheStats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	StoreHits   uint64 `json:"store_hits"`
	StoreErrors uint64 `json:"store_errors"`
	Len         int    `json:"len"`
	Capacity    int    `json:"capacity"`
}

// TraceCache memoizes the polylines a Tracer produces for a mask.
// Entries are keyed by a SHA-256 digest of the mask size and pixels and
// evicted least recently used first. Concurrent first requests for the same
// mask share a single trace.
//
// The polylines returned are shared between callers and must not be modified.
//
// TraceCache is safe for concurrent use.
type TraceCache struct {
	tracer   Tracer
	store    Store
	entries  *lru.Cache[string, []Polyline]
	group    singleflight.Group
	capacity int

	hits        atomic.Uint64
	misses      atomic.Uint64
	storeHits   atomic.Uint64
	storeErrors atomic.Uint64
}

// NewTraceCache creates a cache in front of tracer. A capacity below one
// selects DefaultCacheCapacity. store may be nil.
func NewTraceCache(tracer Tracer, capacity int, store Store) (*TraceCache, error) {
	if tracer == nil {
		return nil, errors.New("trace cache needs a tracer")
	}
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	entries, err := lru.New[string, []Polyline](capacity)
	if err != nil {
		return nil, errors.Wrap(err, "creating trace cache")
	}
	return &TraceCache{
		tracer:   tracer,
		store:    store,
		entries:  entries,
		capacity: capacity,
	}, nil
}

// Trace returns the polylines of m, tracing it only if neither the memory
// cache nor the backing store knows the mask. Store failures are logged and
// otherwise ignored.
func (c *TraceCache) Trace(ctx context.Context, m *Mask) ([]Polyline, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	key := MaskKey(m)

	if pls, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return pls, nil
	}

	// Only the caller that runs the closure can miss; the others share its result.
	miss := false
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent call may have filled the entry since our lookup.
		if pls, ok := c.entries.Get(key); ok {
			return pls, nil
		}
		miss = true
		c.misses.Add(1)

		if pls, ok := c.load(ctx, key); ok {
			c.entries.Add(key, pls)
			return pls, nil
		}

		pls, err := c.tracer.Trace(m)
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, pls)
		c.save(ctx, key, pls)
		return pls, nil
	})
	if err != nil {
		return nil, err
	}
	if !miss {
		c.hits.Add(1)
	}
	return v.([]Polyline), nil
}

func (c *TraceCache) load(ctx context.Context, key string) ([]Polyline, bool) {
	if c.store == nil {
		return nil, false
	}
	pls, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.storeFailed("read", key, err)
		return nil, false
	}
	if ok {
		c.storeHits.Add(1)
	}
	return pls, ok
}

func (c *TraceCache) save(ctx context.Context, key string, pls []Polyline) {
	if c.store == nil {
		return
	}
	if err := c.store.Put(ctx, key, pls); err != nil {
		c.storeFailed("write", key, err)
	}
}

func (c *TraceCache) storeFailed(op, key string, err error) {
	c.storeErrors.Add(1)
	Logger().Warn("trace store unavailable, using memory only",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(wrapStoreError(err)),
	)
}

// Stats returns a snapshot of the cache counters.
func (c *TraceCache) Stats() CacheStats {
	return CacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		StoreHits:   c.storeHits.Load(),
		StoreErrors: c.storeErrors.Load(),
		Len:         c.entries.Len(),
		Capacity:    c.capacity,
	}
}

// Purge drops every in-memory entry. The backing store is left untouched.
func (c *TraceCache) Purge() {
	c.entries.Purge()
}

// MaskKey returns the hex SHA-256 digest of the mask dimensions and pixels.
func MaskKey(m *Mask) string {
	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[:8], uint64(m.Width))
	binary.LittleEndian.PutUint64(hdr[8:], uint64(m.Height))

	h := sha256.New()
	h.Write(hdr[:])
	h.Write(m.Pix)
	return hex.EncodeToString(h.Sum(nil))
}
