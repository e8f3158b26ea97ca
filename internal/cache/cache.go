package cache

import (
	"context"
	"errors"

	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/tracing"
	"golang.org/x/sync/singleflight"
)

// Provider is an interface for getting and setting encoded images shared between loaders
type Provider interface {
	Get(ctx context.Context, key string) (data []byte, err error)
	Set(ctx context.Context, key string, data []byte) (err error)
	Shutdown()
}

// LoaderFunc produces the data for a cache miss
type LoaderFunc func(ctx context.Context) (data []byte, err error)

// Auto is a cache that automatically attempts to load objects if they don't exist.
// Provider is optional; without one Auto only collapses concurrent loads of the same key.
type Auto struct {
	Tracer      *tracing.Tracer
	Provider    Provider
	Log         *logger.Logger
	lookupGroup singleflight.Group
}

// Get returns an object from the cache if it exists, otherwise it loads it into the cache and returns it.
// The load runs detached from ctx so one caller giving up does not fail the others waiting on it;
// ctx only bounds how long this caller waits.
func (a *Auto) Get(ctx context.Context, key string, load LoaderFunc) (data []byte, err error) {
	ctx, span := a.Tracer.Start(ctx, "cache.Auto.Get")
	defer span.End()

	if a.Provider != nil {
		data, err = a.Provider.Get(ctx, key)
		if err == nil {
			return data, nil
		}

		// An unavailable shared cache degrades to loading
		if err != ErrNotFound {
			a.Log.Warnw("error reading from shared cache", "key", key, "error", err)
		}
	}

	// Use singleflight to avoid concurrent loads
	result := a.lookupGroup.DoChan(key, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)

		data, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		if a.Provider != nil {
			if err := a.Provider.Set(loadCtx, key, data); err != nil {
				a.Log.Warnw("error writing to shared cache", "key", key, "error", err)
			}
		}

		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}

		data, _ = res.Val.([]byte)
		return data, nil
	}
}

// Errors
var (
	ErrNotFound = errors.New("not found in cache")
)
