package handler

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/ibooker/imgloader/internal/metrics"
)

// Metrics is a handler that records request durations per route
func Metrics(h http.Handler, routeMatcher RouteMatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeMatcher.Match(r)

		metrics.RequestStarted()
		defer metrics.RequestFinished()

		respMetrics := httpsnoop.CaptureMetricsFn(w, func(ww http.ResponseWriter) {
			h.ServeHTTP(ww, r)
		})

		metrics.ObserveRequest(route, respMetrics.Code, respMetrics.Duration)
	})
}
