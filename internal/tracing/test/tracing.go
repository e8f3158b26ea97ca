package test

import (
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/tracing"
)

// Tracer returns a no-op tracer named for tests
func Tracer(log *logger.Logger) *tracing.Tracer {
	tracer := tracing.Noop(log)
	tracer.ServiceName = "test"
	return tracer
}
