package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/ibooker/imgloader/internal/cache"
)

// DefaultMaxBytes bounds a Provider created with a zero size
const DefaultMaxBytes int64 = 64 << 20

// Provider is an in-process shared cache for compressed images, for loaders that share one process.
// Once full, the oldest entries are dropped first.
type Provider struct {
	mutex    sync.Mutex
	maxBytes int64
	size     int64
	order    *list.List
	cache    map[string]*list.Element
}

type item struct {
	key  string
	data []byte
}

// New returns a new Provider holding at most maxBytes of data
func New(maxBytes int64) *Provider {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Provider{
		maxBytes: maxBytes,
		order:    list.New(),
		cache:    make(map[string]*list.Element),
	}
}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	el, exists := p.cache[key]
	if !exists {
		return nil, cache.ErrNotFound
	}

	return el.Value.(*item).data, nil
}

// Set adds an object to the cache, replacing any previous value for key
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	size := int64(len(data))
	if size > p.maxBytes {
		return nil
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if el, exists := p.cache[key]; exists {
		p.size -= int64(len(el.Value.(*item).data))
		p.order.Remove(el)
	}

	p.cache[key] = p.order.PushBack(&item{key: key, data: data})
	p.size += size

	for p.size > p.maxBytes {
		oldest := p.order.Remove(p.order.Front()).(*item)
		delete(p.cache, oldest.key)
		p.size -= int64(len(oldest.data))
	}

	return nil
}

// Size returns the number of bytes held
func (p *Provider) Size() int64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.size
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}
