package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Fetcher retrieves the raw bytes behind an image URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Errors
var (
	ErrNotFound          = errors.New("image does not exist")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrTooLarge          = errors.New("image exceeds the maximum size")
)

// Mux dispatches fetches to a Fetcher by URL scheme
type Mux struct {
	fetchers map[string]Fetcher
}

// NewMux returns an empty Mux
func NewMux() *Mux {
	return &Mux{
		fetchers: make(map[string]Fetcher),
	}
}

// Handle registers f for the given schemes
func (m *Mux) Handle(f Fetcher, schemes ...string) *Mux {
	for _, scheme := range schemes {
		m.fetchers[strings.ToLower(scheme)] = f
	}
	return m
}

// Fetch fetches rawURL with the fetcher registered for its scheme
func (m *Mux) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	f, ok := m.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	return f.Fetch(ctx, rawURL)
}
