// Package readings keeps a bounded chronological window of full samples that
// serves as a local fallback for range queries.
package readings

import (
	"sync"
	"time"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/ringbuffer"
)

// DefaultCapacity is the number of samples retained
const DefaultCapacity = 500

type Cache struct {
	mu  sync.RWMutex
	buf *ringbuffer.Ring[models.Sample]
}

func NewCache(capacity int) *Cache {
	return &Cache{buf: ringbuffer.New[models.Sample](capacity, ringbuffer.OldestFirst)}
}

// Append adds a sample at the tail. Samples are not re-sorted, an out of
// order push stays where it landed.
func (c *Cache) Append(s models.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Push(s)
}

// Replace swaps the contents for a chronological batch, keeping its newest
// entries when it is larger than the cache.
func (c *Cache) Replace(samples []models.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Reset()
	if over := len(samples) - c.buf.Cap(); over > 0 {
		samples = samples[over:]
	}
	for _, s := range samples {
		c.buf.Push(s)
	}
}

// QueryRange returns, in cache order, the value of key for every sample
// stamped at or after since that carries it. The result is empty, not nil,
// when nothing matches.
func (c *Cache) QueryRange(key models.SensorKey, since time.Time) []models.Point {
	c.mu.RLock()
	samples := c.buf.Slice()
	c.mu.RUnlock()

	points := make([]models.Point, 0)
	for _, s := range samples {
		if s.Timestamp.Before(since) {
			continue
		}
		v, ok := s.Value(key)
		if !ok {
			continue
		}
		points = append(points, models.Point{Timestamp: s.Timestamp, Value: v, Time: s.Time})
	}
	return points
}

// Snapshot returns every cached sample, oldest first
func (c *Cache) Snapshot() []models.Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buf.Slice()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buf.Len()
}
