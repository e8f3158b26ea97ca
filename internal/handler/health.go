package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ibooker/imgloader/internal/health"
)

// Health serves the last health check status as JSON.
// An unhealthy status is answered with 503 Service Unavailable. HEAD requests get no body.
func Health(healthChecker *health.Checker) Handler {
	return func(w http.ResponseWriter, r *http.Request) *Error {
		status := healthChecker.Status()

		body, err := json.Marshal(status)
		if err != nil {
			return InternalServerError()
		}
		body = append(body, '\n')

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))

		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)

		if r.Method != http.MethodHead {
			w.Write(body)
		}

		return nil
	}
}
