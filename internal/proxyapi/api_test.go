package proxyapi_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fetchMock "github.com/ibooker/imgloader/internal/fetch/mock"
	"github.com/ibooker/imgloader/internal/health"
	"github.com/ibooker/imgloader/internal/hmac"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/params"
	"github.com/ibooker/imgloader/internal/proxyapi"
	"github.com/ibooker/imgloader/internal/raster/codec"
	"github.com/ibooker/imgloader/internal/tracing/test"
	"github.com/ibooker/imgloader/loader"
	"go.uber.org/zap"
)

const imageURL = "http://x/img.png"

func testImage(t *testing.T) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			img.SetNRGBA(x, y, color.NRGBA{10, 20, 30, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func setup(t *testing.T, key string) http.Handler {
	t.Helper()

	log := logger.New(zap.FatalLevel)
	tracer := test.Tracer(log)

	fetcher := fetchMock.New().
		Respond(imageURL, testImage(t)).
		Fail("http://x/down.png", errors.New("connection refused"))

	l := loader.New(loader.WithFetcher(fetcher), loader.WithLogger(log), loader.WithTracer(tracer))
	t.Cleanup(l.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	checker := &health.Checker{Ctx: ctx, Loader: l, Log: log}
	checker.Run()

	api := proxyapi.New(l, codec.New(), checker, log, tracer, time.Minute, &hmac.Signer{Key: []byte(key)})
	return api.Router()
}

func imageQuery(rawURL string, circle bool) string {
	p := &params.Params{URL: rawURL, Circle: circle}
	return "/image" + p.Encode()
}

func TestAPI(t *testing.T) {
	router := setup(t, "")

	tests := []struct {
		Name             string
		URL              string
		ExpectedStatus   int
		ExpectedResponse string
	}{
		{"missing url", "/image", http.StatusBadRequest, "missing url parameter\n"},
		{"relative url", "/image?url=img.png", http.StatusBadRequest, "invalid url parameter\n"},
		{"upstream failure", imageQuery("http://x/down.png", false), http.StatusBadGateway, ""},
		{"not found", "/asdf", http.StatusNotFound, "page not found\n"},
		{"health", "/health", http.StatusOK, "{\"healthy\":true,\"loader\":\"healthy\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.URL, nil))

			if w.Code != tt.ExpectedStatus {
				t.Errorf("wrong status code %d", w.Code)
			}

			if tt.ExpectedResponse != "" && w.Body.String() != tt.ExpectedResponse {
				t.Errorf("wrong response %q", w.Body.String())
			}
		})
	}
}

func TestImage(t *testing.T) {
	router := setup(t, "")

	for _, circle := range []bool{false, true} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", imageQuery(imageURL, circle), nil))

		if w.Code != http.StatusOK {
			t.Fatalf("wrong status code %d: %s", w.Code, w.Body.String())
		}

		if ct := w.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("wrong content type %s", ct)
		}

		if src := w.Header().Get("Image-Source"); src != imageURL {
			t.Errorf("wrong source header %s", src)
		}

		img, err := png.Decode(w.Body)
		if err != nil {
			t.Fatal(err)
		}

		_, _, _, a := img.At(0, 0).RGBA()
		if circle && a != 0 {
			t.Error("circle image has an opaque corner")
		}
		if !circle && a == 0 {
			t.Error("rectangular image has a transparent corner")
		}
	}
}

func TestETag(t *testing.T) {
	router := setup(t, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", imageQuery(imageURL, false), nil))

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no etag")
	}

	req := httptest.NewRequest("GET", imageQuery(imageURL, false), nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Errorf("wrong status code %d", w.Code)
	}
}

func TestHMAC(t *testing.T) {
	h := &hmac.Signer{Key: []byte("secret")}
	router := setup(t, "secret")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", imageQuery(imageURL, false), nil))
	if w.Code != http.StatusBadRequest || w.Body.String() != "Invalid parameters\n" {
		t.Errorf("unsigned request: %d %q", w.Code, w.Body.String())
	}

	signed := "/image" + (&params.Params{URL: imageURL}).Sign(h)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", signed, nil))
	if w.Code != http.StatusOK {
		t.Errorf("signed request: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", signed+"x", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("tampered request: %d", w.Code)
	}

	// The signature covers the circle flag
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", signed+"&circle", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("request with an unsigned circle flag: %d", w.Code)
	}
}

