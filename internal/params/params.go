package params

import (
	"errors"
	"net/http"
	"net/url"
)

// Errors
var (
	ErrMissingURL = errors.New("missing url parameter")
	ErrInvalidURL = errors.New("invalid url parameter")
)

// Params contains the parameters of an image proxy request
type Params struct {
	URL    string
	Circle bool
}

// GetParams parses and validates the query parameters of r
func GetParams(r *http.Request) (*Params, error) {
	query := r.URL.Query()

	raw := query.Get("url")
	if raw == "" {
		return nil, ErrMissingURL
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || (u.Host == "" && u.Path == "") {
		return nil, ErrInvalidURL
	}

	_, circle := query["circle"]

	return &Params{
		URL:    raw,
		Circle: circle,
	}, nil
}
