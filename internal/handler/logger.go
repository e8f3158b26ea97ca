package handler

import (
	"fmt"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/ibooker/imgloader/internal/logger"
)

// Logger is a handler that logs completed requests
func Logger(log *logger.Logger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respMetrics := httpsnoop.CaptureMetricsFn(w, func(ww http.ResponseWriter) {
			h.ServeHTTP(ww, r)
		})

		logFields := LogFields(r,
			"http-method", r.Method,
			"remote-addr", r.RemoteAddr,
			"user-agent", r.UserAgent(),
			"uri", r.URL.String(),
			"status-code", respMetrics.Code,
			"bytes", respMetrics.Written,
			"elapsed", fmt.Sprintf("%.9fs", respMetrics.Duration.Seconds()),
		)

		if respMetrics.Code >= 500 {
			log.Errorw("Request completed", logFields...)
			return
		}

		log.Debugw("Request completed", logFields...)
	})
}

// LogFields prefixes keysAndValues with the request id of r
func LogFields(r *http.Request, keysAndValues ...interface{}) []interface{} {
	return append([]interface{}{"request-id", GetReqID(r.Context())}, keysAndValues...)
}
