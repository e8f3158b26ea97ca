// Package loader loads remote images into sinks through a bounded in-memory cache.
//
// A Loader is configured with fluent calls and then asked to Load a URL into a Sink.
// Cache hits are delivered immediately on the calling goroutine. Misses show the
// placeholder, run on a worker pool and are delivered on the loader's delivery
// goroutine, so asynchronous results never reach a sink concurrently.
package loader

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ibooker/imgloader/internal/cache"
	"github.com/ibooker/imgloader/internal/dispatch"
	"github.com/ibooker/imgloader/internal/fetch"
	"github.com/ibooker/imgloader/internal/fetch/remote"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/metrics"
	"github.com/ibooker/imgloader/internal/pipeline"
	"github.com/ibooker/imgloader/internal/raster"
	"github.com/ibooker/imgloader/internal/raster/codec"
	"github.com/ibooker/imgloader/internal/task"
	"github.com/ibooker/imgloader/internal/tracing"
)

// Sink receives placeholder, final and error images
type Sink = raster.Sink

// Detacher is implemented by sinks that can go away while a load is in flight
type Detacher = raster.Detacher

// ErrorListener is called on the delivery goroutine when a load fails
type ErrorListener func(sink Sink, url string, circle bool, message string)

// Format is the format images are re-encoded in before caching
type Format = raster.OutputFormat

// Output formats
const (
	PNG  = raster.PNG
	JPEG = raster.JPEG
	WebP = raster.WebP
)

// TintMode selects how the tint colour is applied
type TintMode = raster.TintMode

// Tint modes
const (
	TintSrcIn    = raster.TintSrcIn
	TintMultiply = raster.TintMultiply
)

// Loader loads images into sinks. A Loader is safe for concurrent use.
type Loader struct {
	log    *logger.Logger
	tracer *tracing.Tracer

	config   atomic.Pointer[raster.Config]
	listener atomic.Pointer[ErrorListener]

	images     *cache.Images
	pipeline   *pipeline.Pipeline
	registry   *task.Registry
	dispatcher *dispatch.Dispatcher

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New returns a Loader and starts its delivery goroutine. Call Close when done with it.
func New(opts ...Option) *Loader {
	o := &options{
		fraction: cache.DefaultFraction,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.log == nil {
		o.log = logger.Nop()
	}

	if o.tracer == nil {
		o.tracer = tracing.Noop(o.log)
	}

	if o.fetcher == nil {
		o.fetcher = fetch.NewMux().Handle(remote.New(o.tracer, o.fetchTimeout, remote.DefaultMaxBytes), "http", "https")
	}

	if o.codec == nil {
		o.codec = codec.New()
	}

	if o.memoryBudget <= 0 {
		o.memoryBudget = cache.MemoryBudget()
	}

	ctx, cancel := context.WithCancel(context.Background())

	l := &Loader{
		log:        o.log,
		tracer:     o.tracer,
		dispatcher: dispatch.New(o.log),
		cancel:     cancel,
	}

	l.config.Store(raster.DefaultConfig())
	l.images = cache.NewImages(cache.Capacity(o.memoryBudget, o.fraction), cache.WithEvictCallback(func(key string, size int64) {
		metrics.CacheEvicted(size)
	}))
	l.pipeline = pipeline.New(o.log, o.tracer, o.fetcher, o.codec, o.shared, o.fetchTimeout)
	l.registry = task.New(ctx, o.log, o.maxWorkers, o.idleTimeout, l.run)

	go l.dispatcher.Run()

	o.log.Debugw("created image loader",
		"cache-capacity", l.images.Capacity(),
		"max-workers", o.maxWorkers,
	)

	return l
}

// Config returns the configuration new loads are made with
func (l *Loader) Config() *raster.Config {
	return l.config.Load()
}

// Cached reports whether url is in the image cache
func (l *Loader) Cached(url string) bool {
	return l.images.Contains(url)
}

// CacheLen returns the number of cached images
func (l *Loader) CacheLen() int {
	return l.images.Len()
}

// CacheSize returns the decoded size of the cached images in bytes
func (l *Loader) CacheSize() int64 {
	return l.images.Size()
}

// CacheCapacity returns the capacity of the image cache in bytes
func (l *Loader) CacheCapacity() int64 {
	return l.images.Capacity()
}

// InFlight returns the number of loads that have not yet been delivered or cancelled
func (l *Loader) InFlight() int {
	return l.registry.Len()
}

// Alive reports whether the loader still delivers results
func (l *Loader) Alive() bool {
	return l.dispatcher.Alive()
}

// Do runs fn on the delivery goroutine and waits for it.
// Sinks that must only be touched from one goroutine can issue their loads through Do.
// Called from a sink or the error listener, fn runs immediately.
func (l *Loader) Do(fn func()) bool {
	return l.dispatcher.Do(fn)
}

// Flush waits until every result posted for delivery so far has been delivered.
// Called from a sink or the error listener it returns immediately.
func (l *Loader) Flush() {
	l.dispatcher.Flush()
}

// Close cancels every load, drops pending deliveries and waits for the workers to stop.
// Loads stopped by StopListImageLoad can no longer be resumed.
func (l *Loader) Close() {
	l.closeOnce.Do(func() {
		l.dispatcher.Close()
		l.registry.Shutdown()
		l.cancel()
		l.registry.Wait()
		l.images.Purge()
	})
}
