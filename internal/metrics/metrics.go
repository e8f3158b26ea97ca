package metrics

import (
	"context"
	"net/http"
	"net/http/pprof"

	"github.com/ibooker/imgloader/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Serve starts an http server for metrics and healthchecks, and blocks until ctx is done.
// health may be nil.
func Serve(ctx context.Context, log *logger.Logger, health http.Handler, listenAddress string) {
	router := http.NewServeMux()
	router.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
	if health != nil {
		router.Handle("/health", health)
	}

	router.HandleFunc("/debug/pprof/", pprof.Index)
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)

	server := &http.Server{
		Addr:    listenAddress,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Infof("shutting down the metrics http server: %s", err)
		}
	}()

	log.Infof("metrics http server listening on %s", listenAddress)

	<-ctx.Done()

	if err := server.Close(); err != nil {
		log.Warnf("error shutting down metrics http server: %s", err)
	}
}
