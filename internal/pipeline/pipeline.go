package pipeline

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/ibooker/imgloader/internal/cache"
	"github.com/ibooker/imgloader/internal/fetch"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/metrics"
	"github.com/ibooker/imgloader/internal/raster"
	"github.com/ibooker/imgloader/internal/tracing"
	"github.com/twmb/murmur3"
)

// DefaultTimeout bounds a single fetch, decode and compress run
const DefaultTimeout = 30 * time.Second

// Pipeline fetches, decodes and compresses images
type Pipeline struct {
	fetcher fetch.Fetcher
	codec   raster.Codec
	auto    *cache.Auto
	tracer  *tracing.Tracer
	log     *logger.Logger
	timeout time.Duration
}

// New returns a Pipeline. shared may be nil; when set, compressed images are shared through it.
func New(log *logger.Logger, tracer *tracing.Tracer, fetcher fetch.Fetcher, codec raster.Codec, shared cache.Provider, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Pipeline{
		fetcher: fetcher,
		codec:   codec,
		auto: &cache.Auto{
			Tracer:   tracer,
			Provider: shared,
			Log:      log,
		},
		tracer:  tracer,
		log:     log,
		timeout: timeout,
	}
}

// Key returns the shared cache key for url compressed with cfg
func Key(url string, cfg *raster.Config) string {
	sum := murmur3.StringSum64(fmt.Sprintf("%s|%s|%d", url, cfg.Format, cfg.Quality))
	return strconv.FormatUint(sum, 16)
}

// Run fetches url, decodes it, and round-trips it through the configured format and quality.
// The returned image has no display transforms applied.
func (p *Pipeline) Run(ctx context.Context, url string, cfg *raster.Config) (image.Image, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	pressed, err := p.auto.Get(ctx, Key(url, cfg), func(ctx context.Context) ([]byte, error) {
		return p.press(ctx, url, cfg)
	})
	if err != nil {
		return nil, err
	}

	img, err := p.decode(ctx, "redecode", url, pressed)
	if err != nil {
		return nil, &Error{Kind: KindCompress, URL: url, Err: err}
	}

	return img, nil
}

// press produces the compressed bytes for url
func (p *Pipeline) press(ctx context.Context, url string, cfg *raster.Config) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := p.fetch(ctx, url)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: url, Err: err}
	}

	img, err := p.decode(ctx, "decode", url, data)
	if err != nil {
		return nil, &Error{Kind: KindDecode, URL: url, Err: err}
	}

	pressed, err := p.encode(ctx, url, img, cfg)
	if err != nil {
		return nil, &Error{Kind: KindCompress, URL: url, Err: err}
	}

	return pressed, nil
}

func (p *Pipeline) fetch(ctx context.Context, url string) (data []byte, err error) {
	ctx, span := p.tracer.StartStage(ctx, "fetch", url)
	start := time.Now()
	defer func() {
		metrics.ObserveStage("fetch", start, err)
		tracing.EndStage(span, err)
	}()

	return p.fetcher.Fetch(ctx, url)
}

func (p *Pipeline) decode(ctx context.Context, stage, url string, data []byte) (img image.Image, err error) {
	_, span := p.tracer.StartStage(ctx, stage, url)
	start := time.Now()
	defer func() {
		metrics.ObserveStage(stage, start, err)
		tracing.EndStage(span, err)
	}()

	img, err = p.codec.Decode(data)
	if err == nil && img == nil {
		err = ErrNoImage
	}

	return img, err
}

func (p *Pipeline) encode(ctx context.Context, url string, img image.Image, cfg *raster.Config) (data []byte, err error) {
	_, span := p.tracer.StartStage(ctx, "encode", url)
	start := time.Now()
	defer func() {
		metrics.ObserveStage("encode", start, err)
		tracing.EndStage(span, err)
	}()

	return p.codec.Encode(img, cfg.Format, cfg.Quality)
}
