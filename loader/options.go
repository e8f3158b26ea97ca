package loader

import (
	"time"

	"github.com/ibooker/imgloader/internal/cache"
	"github.com/ibooker/imgloader/internal/fetch"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/raster"
	"github.com/ibooker/imgloader/internal/tracing"
)

// Option configures a Loader at construction time
type Option func(*options)

type options struct {
	log          *logger.Logger
	tracer       *tracing.Tracer
	fetcher      fetch.Fetcher
	codec        raster.Codec
	shared       cache.Provider
	memoryBudget int64
	fraction     float64
	fetchTimeout time.Duration
	maxWorkers   int
	idleTimeout  time.Duration
}

// WithLogger sets the logger, the default discards everything
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithTracer sets the tracer, the default records nothing
func WithTracer(tracer *tracing.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithFetcher replaces the network capability. The default fetches http and https URLs.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithCodec replaces the codec capability
func WithCodec(c raster.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithSharedCache stores pressed images in a cache shared with other loaders, such as redis.
// The loader does not shut the provider down.
func WithSharedCache(p cache.Provider) Option {
	return func(o *options) {
		o.shared = p
	}
}

// WithMemoryBudget sets the memory budget the image cache is sized from.
// The default is the runtime memory limit if one is set, otherwise 512 MiB.
func WithMemoryBudget(bytes int64) Option {
	return func(o *options) {
		o.memoryBudget = bytes
	}
}

// WithCacheFraction sets the share of the memory budget given to the image cache, default 0.25
func WithCacheFraction(fraction float64) Option {
	return func(o *options) {
		o.fraction = fraction
	}
}

// WithFetchTimeout bounds each fetch, decode and compress run, default 30s
func WithFetchTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = timeout
	}
}

// WithMaxWorkers caps the worker pool. By default it grows with the number of loads in flight.
func WithMaxWorkers(n int) Option {
	return func(o *options) {
		o.maxWorkers = n
	}
}

// WithIdleTimeout sets how long an idle worker is kept, default one minute
func WithIdleTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}
