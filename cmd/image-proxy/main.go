package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/ibooker/imgloader/internal/cmd"
	"github.com/ibooker/imgloader/internal/health"
	"github.com/ibooker/imgloader/internal/hmac"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/metrics"
	"github.com/ibooker/imgloader/internal/proxyapi"
	"github.com/ibooker/imgloader/internal/raster/codec"
	"github.com/ibooker/imgloader/internal/tracing"
	"github.com/ibooker/imgloader/loader"

	"github.com/jamiealquiza/envy"
	"github.com/joho/godotenv"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// Comandline flags
var (
	// Global
	listen        = flag.String("listen", ":8080", "listen address")
	metricsListen = flag.String("metrics-listen", "127.0.0.1:8082", "metrics listen address")
	loglevel      = zap.LevelFlag("log-level", zap.InfoLevel, "log level (default \"info\") (debug, info, warn, error, dpanic, panic, fatal)")
	logFile       = flag.String("log-file", "", "also write logs to this file, rotated at 100MB")
	tracingOTLP   = flag.Bool("tracing", false, "export traces over OTLP/gRPC, configured through the OTEL_EXPORTER_OTLP_* environment variables")

	// Loader
	profile       = flag.String("profile", "", "path to a YAML loader profile")
	memoryBudget  = flag.Int64("memory-budget", 0, "memory budget in bytes the image cache is sized from (default: runtime memory limit or 512MiB)")
	cacheFraction = flag.Float64("cache-fraction", 0.25, "share of the memory budget used for the image cache")
	maxWorkers    = flag.Int("max-workers", 0, "maximum number of concurrent loads, 0 for no limit")

	// HMAC
	hmacKey = flag.String("hmac-key", "", "hmac key required on image requests, empty to allow unsigned requests")

	backends = &cmd.Backends{}
)

func init() {
	flag.DurationVar(&backends.FetchTimeout, "fetch-timeout", 0, "timeout for loading a single image (default 30s)")
	flag.Int64Var(&backends.FetchMaxBytes, "fetch-max-bytes", 0, "maximum size of a fetched image (default 32MiB)")
	flag.StringVar(&backends.FileRoot, "file-root", "", "serve file:// URLs from this directory")
	flag.StringVar(&backends.SpacesEndpoint, "spaces-endpoint", "", "s3 compatible endpoint for s3:// URLs, empty for aws")
	flag.StringVar(&backends.SpacesRegion, "spaces-region", "", "region for s3:// URLs, empty to disable them")
	flag.StringVar(&backends.SpacesAccessKey, "spaces-access-key", "", "access key for s3:// URLs")
	flag.StringVar(&backends.SpacesSecretKey, "spaces-secret-key", "", "secret key for s3:// URLs")
	flag.BoolVar(&backends.SpacesPathStyle, "spaces-path-style", false, "use path style s3 addressing")
	flag.StringVar(&backends.Cache, "cache", "none", "shared cache for compressed images (none, memory, redis)")
	flag.Int64Var(&backends.CacheMemoryBytes, "cache-memory-bytes", 0, "size of the memory shared cache (default 64MiB)")
	flag.StringVar(&backends.CacheRedisAddress, "cache-redis-address", "127.0.0.1:6379", "redis address")
	flag.IntVar(&backends.CacheRedisPool, "cache-redis-pool-size", 10, "redis connection pool size")
	flag.DurationVar(&backends.CacheTTL, "cache-ttl", 0, "expiry of shared cache entries, 0 to never expire")
}

func main() {
	// Load a .env file if there is one
	_ = godotenv.Load()

	// Parse environment variables
	envy.Parse("PROXY")

	// Parse commandline flags
	flag.Parse()

	// Initialize the logger
	var logOpts []logger.Option
	if *logFile != "" {
		logOpts = append(logOpts, logger.WithFile(*logFile, 100, 3))
	}
	log := logger.New(*loglevel, logOpts...)
	defer log.Sync()

	// Set GOMAXPROCS
	maxprocs.Set(maxprocs.Logger(log.Infof))

	// Set up context for shutting down
	shutdownCtx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	// Initialize tracing
	tracer := tracing.Noop(log)
	if *tracingOTLP {
		var err error
		tracer, err = tracing.New(shutdownCtx, log, "image-proxy")
		if err != nil {
			log.Fatalf("error initializing tracing: %s", err)
		}
	}
	defer tracer.Shutdown(context.Background())

	// Initialize the fetchers and shared cache
	fetcher, err := backends.Fetcher(tracer)
	if err != nil {
		log.Fatalf("error initializing fetchers: %s", err)
	}

	shared, err := backends.SharedCache(shutdownCtx, tracer)
	if err != nil {
		log.Fatalf("error initializing cache: %s", err)
	}
	if shared != nil {
		defer shared.Shutdown()
	}

	// Initialize the loader
	imageCodec := codec.New()
	opts := []loader.Option{
		loader.WithLogger(log),
		loader.WithTracer(tracer),
		loader.WithFetcher(fetcher),
		loader.WithCodec(imageCodec),
		loader.WithMemoryBudget(*memoryBudget),
		loader.WithCacheFraction(*cacheFraction),
		loader.WithFetchTimeout(backends.FetchTimeout),
		loader.WithMaxWorkers(*maxWorkers),
	}
	if shared != nil {
		opts = append(opts, loader.WithSharedCache(shared))
	}

	l := loader.New(opts...)
	defer l.Close()

	if *profile != "" {
		p, err := cmd.LoadProfile(*profile)
		if err != nil {
			log.Fatalf("error loading profile: %s", err)
		}

		if err := p.Apply(l, imageCodec); err != nil {
			log.Fatalf("error applying profile: %s", err)
		}
	}

	// Initialize and start the health checker
	checkerCtx, checkerCancel := context.WithCancel(context.Background())
	defer checkerCancel()

	checker := &health.Checker{
		Ctx:    checkerCtx,
		Cache:  shared,
		Loader: l,
		Log:    log,
	}
	go checker.Run()

	// Start the metrics http server
	go metrics.Serve(shutdownCtx, log, nil, *metricsListen)

	// Start and listen on http
	api := proxyapi.New(l, imageCodec, checker, log, tracer, cmd.HandlerTimeout, &hmac.Signer{
		Key: []byte(*hmacKey),
	})
	server := &http.Server{
		Addr:         *listen,
		Handler:      api.Router(),
		ReadTimeout:  cmd.ReadTimeout,
		WriteTimeout: cmd.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Infof("shutting down the http server: %s", err)
			shutdown()
		}
	}()

	log.Infof("http server listening on %s", *listen)

	// Wait for shutdown or error
	err = cmd.WaitForInterrupt(shutdownCtx)
	log.Infof("shutting down: %s", err)

	// Shut down http server
	serverCtx, serverCancel := context.WithTimeout(context.Background(), cmd.WriteTimeout)
	defer serverCancel()
	if err := server.Shutdown(serverCtx); err != nil {
		log.Warnf("error shutting down: %s", err)
	}
}
