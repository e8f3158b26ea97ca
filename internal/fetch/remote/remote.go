package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ibooker/imgloader/internal/fetch"
	"github.com/ibooker/imgloader/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Defaults
const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 32 << 20
)

// Provider fetches images with a single HTTP GET
type Provider struct {
	client   *http.Client
	maxBytes int64
}

// New returns a new Provider. A zero timeout or maxBytes selects the default.
func New(tracer *tracing.Tracer, timeout time.Duration, maxBytes int64) *Provider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Provider{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithTracerProvider(tracer)),
		},
		maxBytes: maxBytes,
	}
}

// Fetch returns the response body for a GET request to url
func (p *Provider) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fetch.ErrNotFound
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code %d", res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, p.maxBytes+1))
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > p.maxBytes {
		return nil, fetch.ErrTooLarge
	}

	return data, nil
}
