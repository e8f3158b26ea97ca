package proxyapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ibooker/imgloader/internal/handler"
	"github.com/ibooker/imgloader/internal/health"
	"github.com/ibooker/imgloader/internal/hmac"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/raster"
	"github.com/ibooker/imgloader/internal/tracing"
	"github.com/ibooker/imgloader/loader"
)

// API serves images loaded through a Loader over http
type API struct {
	Loader         *loader.Loader
	Codec          raster.Codec
	HealthChecker  *health.Checker
	Log            *logger.Logger
	Tracer         *tracing.Tracer
	HandlerTimeout time.Duration
	// HMAC, if it has a key, is required on every image request
	HMAC *hmac.Signer
}

// New returns an API and routes the loader's failures to the requests waiting for them
func New(l *loader.Loader, codec raster.Codec, checker *health.Checker, log *logger.Logger, tracer *tracing.Tracer, handlerTimeout time.Duration, h *hmac.Signer) *API {
	l.SetImageLoadErrorListener(func(sink loader.Sink, url string, circle bool, message string) {
		if s, ok := sink.(*responseSink); ok {
			s.fail(message)
		}
	})

	return &API{
		Loader:         l,
		Codec:          codec,
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		HandlerTimeout: handlerTimeout,
		HMAC:           h,
	}
}

// Utility methods for logging
func (a *API) logError(r *http.Request, message string, err error) {
	a.Log.Errorw(message, handler.LogFields(r, "error", err)...)
}

// Router returns a http router
func (a *API) Router() http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = handler.Handler(a.notFoundHandler)

	if a.HealthChecker != nil {
		router.Handle("/health", handler.Health(a.HealthChecker)).Methods("GET", "HEAD").Name("health")
	}

	// Query parameters:
	// ?url={url} - Image to load, http(s), file or s3 depending on the configured fetchers
	// ?circle - Mask the image to a circle
	// ?hmac - signature of the url and circle parameters
	router.Handle("/image", handler.Handler(a.imageHandler)).Methods("GET").Name("image")

	routeMatcher := &handler.MuxRouteMatcher{Router: router}

	// Set up handlers for adding a request id, handling panics, request logging, setting CORS headers, tracing, metrics and handler execution timeout
	return handler.AddRequestID(
		handler.Recovery(a.Log,
			handler.Logger(a.Log,
				handler.CORS([]string{sourceHeader},
					handler.Tracer(a.Tracer,
						handler.Metrics(
							http.TimeoutHandler(router, a.HandlerTimeout, "Something went wrong. Timed out."),
							routeMatcher,
						),
						routeMatcher,
					),
				),
			),
		),
	)
}

// Handle not found errors
var notFoundError = &handler.Error{
	Message: "page not found",
	Code:    http.StatusNotFound,
}

func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return notFoundError
}
