package pool

import (
	"errors"
	"io"
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// HandleCache keeps open handles keyed by K and closes the least recently
// used one once more than limit are open. A limit <= 0 means unbounded, which
// lets a stream spanning many volumes exhaust file descriptors.
//
// HandleCache is not safe for concurrent use.
type HandleCache[K comparable, H io.Closer] struct {
	lru      *simplelru.LRU[K, H]
	limit    int
	evicting bool
	onEvict  func(K)
	pending  []error
}

func NewHandleCache[K comparable, H io.Closer](limit int, onEvict func(K)) (*HandleCache[K, H], error) {
	size := limit
	if size <= 0 {
		size = math.MaxInt
	}
	c := &HandleCache[K, H]{limit: limit, onEvict: onEvict}
	lru, err := simplelru.NewLRU[K, H](size, c.release)
	if err != nil {
		return nil, err
	}
	c.lru = lru
	return c, nil
}

// release runs for every handle leaving the cache, whether it was pushed out
// by Put or dropped through Release/Close.
func (c *HandleCache[K, H]) release(key K, h H) {
	if err := h.Close(); err != nil {
		c.pending = append(c.pending, err)
	}
	if c.evicting && c.onEvict != nil {
		c.onEvict(key)
	}
}

func (c *HandleCache[K, H]) takePending() error {
	err := errors.Join(c.pending...)
	c.pending = nil
	return err
}

func (c *HandleCache[K, H]) Limit() int { return c.limit }

func (c *HandleCache[K, H]) Len() int { return c.lru.Len() }

// Get returns the handle for key and marks it most recently used.
func (c *HandleCache[K, H]) Get(key K) (H, bool) {
	return c.lru.Get(key)
}

// Put adds h under key. If that pushes the cache over its limit the least
// recently used handle is closed and its close error returned.
func (c *HandleCache[K, H]) Put(key K, h H) error {
	c.evicting = true
	c.lru.Add(key, h)
	c.evicting = false
	return c.takePending()
}

// MakeRoom closes the least recently used handle if the cache is full, so
// that opening the next handle never exceeds the limit.
func (c *HandleCache[K, H]) MakeRoom() error {
	if c.limit <= 0 || c.lru.Len() < c.limit {
		return nil
	}
	c.evicting = true
	c.lru.RemoveOldest()
	c.evicting = false
	return c.takePending()
}

// Release closes and forgets the handle for key, if any.
func (c *HandleCache[K, H]) Release(key K) error {
	c.lru.Remove(key)
	return c.takePending()
}

// Each visits open handles from least to most recently used without
// changing their order.
func (c *HandleCache[K, H]) Each(fn func(K, H) error) error {
	var errs []error
	for _, key := range c.lru.Keys() {
		h, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if err := fn(key, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every handle.
func (c *HandleCache[K, H]) Close() error {
	c.lru.Purge()
	return c.takePending()
}
