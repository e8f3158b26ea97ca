package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ibooker/imgloader/internal/handler"
	"github.com/ibooker/imgloader/internal/health"
	"github.com/ibooker/imgloader/internal/logger"
)

type deliverer bool

func (d deliverer) Alive() bool {
	return bool(d)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		Name         string
		Method       string
		Alive        bool
		ExpectedCode int
		ExpectedBody string
	}{
		{"healthy", "GET", true, http.StatusOK, "{\"healthy\":true,\"loader\":\"healthy\"}\n"},
		{"closed loader", "GET", false, http.StatusServiceUnavailable, "{\"healthy\":false,\"loader\":\"unhealthy\"}\n"},
		{"head", "HEAD", true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			checker := &health.Checker{Ctx: ctx, Loader: deliverer(tt.Alive), Log: logger.Nop()}
			checker.Run()

			w := httptest.NewRecorder()
			handler.Health(checker).ServeHTTP(w, httptest.NewRequest(tt.Method, "/health", nil))

			if w.Code != tt.ExpectedCode {
				t.Errorf("wrong status code %d", w.Code)
			}

			if w.Body.String() != tt.ExpectedBody {
				t.Errorf("wrong body %q", w.Body.String())
			}

			if w.Header().Get("Cache-Control") != "no-store" {
				t.Errorf("wrong cache control %q", w.Header().Get("Cache-Control"))
			}
		})
	}
}
