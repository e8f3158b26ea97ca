package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ibooker/imgloader/internal/cmd"
	"github.com/ibooker/imgloader/internal/download"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/raster"
	"github.com/ibooker/imgloader/internal/raster/codec"
	"github.com/ibooker/imgloader/internal/tracing"
	"github.com/ibooker/imgloader/loader"

	"github.com/jamiealquiza/envy"
	"github.com/joho/godotenv"
	"github.com/twmb/murmur3"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Comandline flags
var (
	loglevel = zap.LevelFlag("log-level", zap.WarnLevel, "log level (default \"warn\") (debug, info, warn, error, dpanic, panic, fatal)")
	outDir   = flag.String("out", ".", "directory to write the loaded images to")
	circle   = flag.Bool("circle", false, "mask the images to a circle")
	profile  = flag.String("profile", "", "path to a YAML loader profile")
	timeout  = flag.Duration("timeout", 2*time.Minute, "time to wait for all images")
	repeat   = flag.Bool("repeat", false, "load every URL a second time, from the cache")
	direct   = flag.Bool("direct", false, "download and decode without the cache, transforms or placeholders")

	backends = &cmd.Backends{}
)

func init() {
	flag.DurationVar(&backends.FetchTimeout, "fetch-timeout", 0, "timeout for loading a single image (default 30s)")
	flag.StringVar(&backends.FileRoot, "file-root", "", "allow file:// URLs below this directory")
	flag.StringVar(&backends.Cache, "cache", "none", "shared cache for compressed images (none, memory, redis)")
	flag.Int64Var(&backends.CacheMemoryBytes, "cache-memory-bytes", 0, "size of the memory shared cache (default 64MiB)")
	flag.StringVar(&backends.CacheRedisAddress, "cache-redis-address", "127.0.0.1:6379", "redis address")
	flag.IntVar(&backends.CacheRedisPool, "cache-redis-pool-size", 4, "redis connection pool size")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] url...\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	// Load a .env file if there is one
	_ = godotenv.Load()

	// Parse environment variables
	envy.Parse("IMGLOADER")

	// Parse commandline flags
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := logger.New(*loglevel)
	defer log.Sync()

	maxprocs.Set(maxprocs.Logger(log.Debugf))

	if err := run(log, flag.Args()); err != nil {
		errColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger, urls []string) error {
	ctx, stop := cmd.InterruptContext(context.Background())
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	tracer := tracing.Noop(log)

	fetcher, err := backends.Fetcher(tracer)
	if err != nil {
		return err
	}

	imageCodec := codec.New()

	if *direct {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return err
		}

		return downloadAll(ctx, download.New(log, tracer, fetcher, imageCodec), imageCodec, urls)
	}

	opts := []loader.Option{
		loader.WithLogger(log),
		loader.WithTracer(tracer),
		loader.WithFetcher(fetcher),
		loader.WithFetchTimeout(backends.FetchTimeout),
	}

	shared, err := backends.SharedCache(ctx, tracer)
	if err != nil {
		return err
	}
	if shared != nil {
		defer shared.Shutdown()
		opts = append(opts, loader.WithSharedCache(shared))
	}

	l := loader.New(opts...)
	defer l.Close()

	if *profile != "" {
		p, err := cmd.LoadProfile(*profile)
		if err != nil {
			return err
		}

		if err := p.Apply(l, imageCodec); err != nil {
			return err
		}
	}

	l.SetImageLoadErrorListener(func(sink loader.Sink, url string, circle bool, message string) {
		if s, ok := sink.(*fileSink); ok {
			s.fail(message)
		}
	})

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rounds := 1
	if *repeat {
		rounds = 2
	}

	for round := 0; round < rounds; round++ {
		if err := loadAll(ctx, l, imageCodec, urls, round); err != nil {
			return err
		}
	}

	log.Infow("done",
		"cached", l.CacheLen(),
		"cache-bytes", l.CacheSize(),
		"cache-capacity", l.CacheCapacity(),
	)

	return nil
}

func loadAll(ctx context.Context, l *loader.Loader, imageCodec *codec.Standard, urls []string, round int) error {
	sinks := make([]*fileSink, len(urls))
	for i, url := range urls {
		sinks[i] = newFileSink(url, outputPath(url, round), imageCodec, l.Config)
		l.Load(sinks[i], url, *circle)
	}

	return waitAll(ctx, sinks, func() { l.StopListImageLoad() })
}

// waitAll waits for every sink to finish, calling stop on timeout or interrupt
func waitAll(ctx context.Context, sinks []*fileSink, stop func()) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range sinks {
		s := s
		g.Go(func() error {
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("stopped waiting for %s: %w", s.url, ctx.Err())
			}
		})
	}

	if err := g.Wait(); err != nil {
		if stop != nil {
			stop()
		}
		return err
	}

	failed := 0
	for _, s := range sinks {
		if s.err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed to load", failed, len(sinks))
	}

	return nil
}

// downloadAll fetches every url once with d and writes the decoded images
// in the default output format
func downloadAll(ctx context.Context, d *download.Downloader, imageCodec *codec.Standard, urls []string) error {
	defer d.Destroy()

	defaults := func() *raster.Config { return raster.DefaultConfig() }
	sinks := make([]*fileSink, len(urls))
	for i, url := range urls {
		s := newFileSink(url, outputPath(url, 0), imageCodec, defaults)
		sinks[i] = s

		d.Download(url, func(img image.Image, err error) {
			if err != nil {
				s.fail(err.Error())
				return
			}
			s.ShowImage(img)
		})
	}

	return waitAll(ctx, sinks, nil)
}

// outputPath names the output file after a hash of the url, without extension
func outputPath(url string, round int) string {
	name := strconv.FormatUint(murmur3.StringSum64(url), 16)
	if round > 0 {
		name = fmt.Sprintf("%s-%d", name, round)
	}
	return filepath.Join(*outDir, name)
}
