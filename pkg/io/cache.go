package io

import (
	"fmt"
	"sync"

	. "github.com/weberc2/assoofs/pkg/types"
)

// CachingDevice is a write-through LRU block cache. Writes go to the inner
// device first and are only cached once they succeed, so a read always
// observes the last successful write.
type CachingDevice struct {
	inner BlockDevice
	cache *Cache
	mutex sync.Mutex
}

func NewCachingDevice(inner BlockDevice, capacity int) *CachingDevice {
	return &CachingDevice{inner: inner, cache: NewCache(capacity)}
}

func (d *CachingDevice) ReadBlock(b Block, p *[BlockSize]byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.cache.Get(b, p) {
		return nil
	}
	if err := d.inner.ReadBlock(b, p); err != nil {
		return fmt.Errorf("reading through cache: %w", err)
	}
	d.cache.Push(b, p)
	return nil
}

func (d *CachingDevice) WriteBlock(b Block, p *[BlockSize]byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.inner.WriteBlock(b, p); err != nil {
		// drop any stale copy; the device state is unknown now
		d.cache.Remove(b)
		return fmt.Errorf("writing through cache: %w", err)
	}
	d.cache.Push(b, p)
	return nil
}

// Cache is a fixed-capacity LRU of block contents.
type Cache struct {
	head      *entry
	tail      *entry
	lookup    map[Block]*entry
	allocator allocator
}

func NewCache(capacity int) *Cache {
	return &Cache{
		lookup:    make(map[Block]*entry),
		allocator: newAllocator(capacity),
	}
}

func (c *Cache) Len() int { return len(c.lookup) }

func (c *Cache) Get(b Block, out *[BlockSize]byte) bool {
	e, exists := c.lookup[b]
	if !exists {
		return false
	}

	c.unlink(e)
	c.pushFront(e)
	*out = e.value
	return true
}

func (c *Cache) Remove(b Block) bool {
	e, exists := c.lookup[b]
	if !exists {
		return false
	}
	delete(c.lookup, b)
	c.unlink(e)
	e.value = [BlockSize]byte{}
	c.allocator.free(e)
	return true
}

// Push caches a copy of `p` for block `b`, evicting the least recently used
// block if the cache is full. Returns whether an eviction happened.
func (c *Cache) Push(b Block, p *[BlockSize]byte) (evicted bool) {
	if e, exists := c.lookup[b]; exists {
		c.unlink(e)
		c.pushFront(e)
		e.value = *p
		return false
	}

	e := c.allocator.alloc()
	if e == nil {
		// NB: a zero-capacity cache has no tail to evict; it caches nothing.
		if c.tail == nil {
			return false
		}
		e = c.tail
		c.unlink(e)
		delete(c.lookup, e.block)
		evicted = true
	}

	e.block = b
	e.value = *p
	c.lookup[b] = e
	c.pushFront(e)
	return
}

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *Cache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

type entry struct {
	prev  *entry
	next  *entry
	block Block
	value [BlockSize]byte
}

// allocator implements a simple allocation pool that can grow up to a fixed
// capacity. Freed entries are reused before the pool grows.
type allocator struct {
	length int
	pool   []entry
	freed  []*entry
}

func newAllocator(capacity int) allocator {
	return allocator{pool: make([]entry, capacity)}
}

func (a *allocator) alloc() *entry {
	if n := len(a.freed); n > 0 {
		e := a.freed[n-1]
		a.freed = a.freed[:n-1]
		return e
	}
	if a.length >= len(a.pool) {
		return nil
	}
	ret := &a.pool[a.length]
	a.length++
	return ret
}

func (a *allocator) free(e *entry) {
	a.freed = append(a.freed, e)
}
