package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/ibooker/imgloader/internal/cache"
)

// Provider is a mock shared cache. Keys "error" and "seterror" fail reads and writes respectively.
type Provider struct {
	mu   sync.Mutex
	data map[string][]byte
	Sets int
}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	if key == "error" {
		return nil, fmt.Errorf("error")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	data, ok := p.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}

	return data, nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	if key == "seterror" {
		return fmt.Errorf("seterror")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data == nil {
		p.data = make(map[string][]byte)
	}
	p.data[key] = data
	p.Sets++

	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}
