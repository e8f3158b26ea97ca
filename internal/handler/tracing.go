package handler

import (
	"net/http"

	"github.com/ibooker/imgloader/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts a span named after the route for every request, tagged with the request id.
// Requests for /health are not traced.
func Tracer(tracer *tracing.Tracer, h http.Handler, routeMatcher RouteMatcher) http.Handler {
	tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetReqID(r.Context()); id != "" {
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("request.id", id))
		}

		h.ServeHTTP(w, r)
	})

	return otelhttp.NewHandler(
		tagged,
		"proxy",
		otelhttp.WithTracerProvider(tracer),
		otelhttp.WithPropagators(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + routeMatcher.Match(r)
		}),
	)
}
