package cache

import (
	"container/list"
	"image"
	"math"
	"runtime/debug"
	"sync"
)

// DefaultMemoryBudget is used when no runtime memory limit is set
const DefaultMemoryBudget int64 = 512 << 20

// DefaultFraction is the share of the memory budget given to the image cache
const DefaultFraction = 0.25

// Images is an in-memory image cache bounded by the decoded size of its entries.
// Least recently used entries are evicted first. Images is safe for concurrent use.
type Images struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	ll       *list.List
	items    map[string]*list.Element
	onEvict  func(key string, size int64)
}

type entry struct {
	key  string
	img  image.Image
	size int64
}

// ImagesOption configures an image cache
type ImagesOption func(*Images)

// WithEvictCallback registers a function called for every evicted entry
func WithEvictCallback(f func(key string, size int64)) ImagesOption {
	return func(c *Images) {
		c.onEvict = f
	}
}

// NewImages returns an image cache holding at most capacity bytes of decoded images
func NewImages(capacity int64, opts ...ImagesOption) *Images {
	if capacity < 0 {
		capacity = 0
	}

	c := &Images{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the image for key and marks it as most recently used
func (c *Images) Get(key string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}

	c.ll.MoveToFront(el)
	return el.Value.(*entry).img, true
}

// Contains reports whether key is cached without affecting recency
func (c *Images) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Put stores img under key unless key is already cached, in which case the existing
// entry is kept. It reports whether img was stored. Images larger than the whole
// capacity are never stored.
func (c *Images) Put(key string, img image.Image) bool {
	if img == nil {
		return false
	}

	size := SizeOf(img)

	c.mu.Lock()
	if _, ok := c.items[key]; ok || size > c.capacity {
		c.mu.Unlock()
		return false
	}

	c.items[key] = c.ll.PushFront(&entry{key: key, img: img, size: size})
	c.size += size

	var evicted []*entry
	for c.size > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}

		e := c.ll.Remove(oldest).(*entry)
		delete(c.items, e.key)
		c.size -= e.size
		evicted = append(evicted, e)
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, e := range evicted {
			c.onEvict(e.key, e.size)
		}
	}

	return true
}

// Purge removes every entry, reporting each to the evict callback
func (c *Images) Purge() {
	c.mu.Lock()
	var evicted []*entry
	for el := c.ll.Front(); el != nil; el = el.Next() {
		evicted = append(evicted, el.Value.(*entry))
	}
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.size = 0
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, e := range evicted {
			c.onEvict(e.key, e.size)
		}
	}
}

// Len returns the number of cached images
func (c *Images) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Size returns the total decoded size of the cached images in bytes
func (c *Images) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the maximum total size in bytes
func (c *Images) Capacity() int64 {
	return c.capacity
}

// SizeOf returns the decoded byte footprint of img
func SizeOf(img image.Image) int64 {
	switch i := img.(type) {
	case *image.NRGBA:
		return int64(len(i.Pix))
	case *image.RGBA:
		return int64(len(i.Pix))
	case *image.NRGBA64:
		return int64(len(i.Pix))
	case *image.RGBA64:
		return int64(len(i.Pix))
	case *image.Gray:
		return int64(len(i.Pix))
	case *image.Gray16:
		return int64(len(i.Pix))
	case *image.Alpha:
		return int64(len(i.Pix))
	case *image.CMYK:
		return int64(len(i.Pix))
	case *image.Paletted:
		return int64(len(i.Pix) + 4*len(i.Palette))
	case *image.YCbCr:
		return int64(len(i.Y) + len(i.Cb) + len(i.Cr))
	case *image.NYCbCrA:
		return int64(len(i.Y) + len(i.Cb) + len(i.Cr) + len(i.A))
	}

	b := img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 4
}

// Capacity returns fraction of budget, in bytes
func Capacity(budget int64, fraction float64) int64 {
	if budget <= 0 || fraction <= 0 {
		return 0
	}

	if fraction > 1 {
		fraction = 1
	}

	return int64(float64(budget) * fraction)
}

// MemoryBudget returns the runtime soft memory limit if one is set, otherwise DefaultMemoryBudget
func MemoryBudget() int64 {
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit != math.MaxInt64 {
		return limit
	}

	return DefaultMemoryBudget
}
