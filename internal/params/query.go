package params

import (
	"net/url"
	"strings"
)

// Encode returns the query string requesting p, including the leading "?".
// The circle flag is written as "&circle" without a value.
func (p *Params) Encode() string {
	return p.encode("")
}

func (p *Params) encode(mac string) string {
	var buf strings.Builder

	buf.WriteString("?url=")
	buf.WriteString(url.QueryEscape(p.URL))

	if p.Circle {
		buf.WriteString("&circle")
	}

	// Raw urlsafe base64 needs no escaping
	if mac != "" {
		buf.WriteString("&hmac=")
		buf.WriteString(mac)
	}

	return buf.String()
}
