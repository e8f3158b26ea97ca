package handler

import (
	"net/http"
	"runtime/debug"

	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/tracing"
)

// Recovery turns a panicking request into a 500 response, written like any other handler error.
// The request id header set earlier in the chain lets clients report the failure.
func Recovery(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}

			// net/http aborts the response itself
			if err == http.ErrAbortHandler {
				panic(err)
			}

			traceID, spanID := tracing.TraceInfo(r.Context())
			log.Errorw("panic handling request", LogFields(r,
				"error", err,
				"trace-id", traceID,
				"span-id", spanID,
				"stacktrace", string(debug.Stack()),
			)...)

			Handler(func(http.ResponseWriter, *http.Request) *Error {
				return InternalServerError()
			}).ServeHTTP(w, r)
		}()

		next.ServeHTTP(w, r)
	})
}
