package params

import (
	"net/http"
	"strconv"

	"github.com/ibooker/imgloader/internal/hmac"
)

// signed returns the values of p covered by the signature
func (p *Params) signed() []string {
	return []string{p.URL, strconv.FormatBool(p.Circle)}
}

// Sign returns the query string requesting p, signed with s
func (p *Params) Sign(s *hmac.Signer) string {
	return p.encode(s.Sign(p.signed()...))
}

// ValidateSignature reports whether the hmac query parameter of r signs p.
// Query parameters other than the ones in Params are not covered.
func ValidateSignature(s *hmac.Signer, r *http.Request, p *Params) bool {
	return s.Verify(r.URL.Query().Get("hmac"), p.signed()...)
}
