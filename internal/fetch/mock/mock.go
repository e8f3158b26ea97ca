package mock

import (
	"context"
	"sync"

	"github.com/ibooker/imgloader/internal/fetch"
)

// Fetcher serves fixed responses per URL and counts fetches.
// URLs without a response fail with fetch.ErrNotFound.
type Fetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errors    map[string]error
	calls     map[string]int

	// Gate, if set, blocks every fetch until it is closed or the context is done
	Gate chan struct{}
}

// New returns an empty Fetcher
func New() *Fetcher {
	return &Fetcher{
		responses: make(map[string][]byte),
		errors:    make(map[string]error),
		calls:     make(map[string]int),
	}
}

// Respond makes fetches of url return data
func (f *Fetcher) Respond(url string, data []byte) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = data
	return f
}

// Fail makes fetches of url return err
func (f *Fetcher) Fail(url string, err error) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[url] = err
	return f
}

// Calls returns how often url was fetched
func (f *Fetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// Fetch returns the configured response for url
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls[url]++
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.errors[url]; ok {
		return nil, err
	}

	data, ok := f.responses[url]
	if !ok {
		return nil, fetch.ErrNotFound
	}

	return data, nil
}
