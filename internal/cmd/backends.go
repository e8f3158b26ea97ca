package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ibooker/imgloader/internal/cache"
	"github.com/ibooker/imgloader/internal/cache/memory"
	"github.com/ibooker/imgloader/internal/cache/redis"
	"github.com/ibooker/imgloader/internal/fetch"
	"github.com/ibooker/imgloader/internal/fetch/file"
	"github.com/ibooker/imgloader/internal/fetch/remote"
	"github.com/ibooker/imgloader/internal/fetch/spaces"
	"github.com/ibooker/imgloader/internal/tracing"
)

// Backends selects the fetchers and shared cache of a binary
type Backends struct {
	FetchTimeout  time.Duration
	FetchMaxBytes int64

	// FileRoot enables file:// URLs below the given directory
	FileRoot string

	// Spaces enables s3:// URLs
	SpacesEndpoint  string
	SpacesRegion    string
	SpacesAccessKey string
	SpacesSecretKey string
	SpacesPathStyle bool

	// Cache is "none", "memory" or "redis"
	Cache             string
	CacheMemoryBytes  int64
	CacheRedisAddress string
	CacheRedisPool    int
	CacheTTL          time.Duration
}

// Fetcher returns a fetcher for http and https URLs, plus file and s3 URLs if configured
func (b *Backends) Fetcher(tracer *tracing.Tracer) (fetch.Fetcher, error) {
	mux := fetch.NewMux().Handle(remote.New(tracer, b.FetchTimeout, b.FetchMaxBytes), "http", "https")

	if b.FileRoot != "" {
		f, err := file.New(b.FileRoot)
		if err != nil {
			return nil, fmt.Errorf("error initializing file fetcher: %w", err)
		}
		mux.Handle(f, "file")
	}

	if b.SpacesRegion != "" {
		s, err := spaces.New(b.SpacesEndpoint, b.SpacesRegion, b.SpacesAccessKey, b.SpacesSecretKey, b.SpacesPathStyle)
		if err != nil {
			return nil, fmt.Errorf("error initializing spaces fetcher: %w", err)
		}
		mux.Handle(s, "s3")
	}

	return mux, nil
}

// SharedCache returns the configured shared cache, nil for none
func (b *Backends) SharedCache(ctx context.Context, tracer *tracing.Tracer) (cache.Provider, error) {
	switch b.Cache {
	case "", "none":
		return nil, nil
	case "memory":
		return memory.New(b.CacheMemoryBytes), nil
	case "redis":
		return redis.New(ctx, tracer, b.CacheRedisAddress, b.CacheRedisPool, b.CacheTTL)
	default:
		return nil, fmt.Errorf("invalid cache backend %q", b.Cache)
	}
}
