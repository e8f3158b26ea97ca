// Package hmac signs the fields of proxy requests with a shared key
package hmac

import (
	cryptoHMAC "crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
)

// Signer signs and verifies request fields
type Signer struct {
	Key []byte
}

// Enabled reports whether requests have to be signed
func (s *Signer) Enabled() bool {
	return s != nil && len(s.Key) > 0
}

// Sign returns the HMAC-SHA256 of fields, encoded as urlsafe base64
func (s *Signer) Sign(fields ...string) string {
	mac := cryptoHMAC.New(sha256.New, s.Key)

	// Every field is length prefixed, so ("ab", "c") and ("a", "bc") sign differently
	var size [binary.MaxVarintLen64]byte
	for _, field := range fields {
		mac.Write(size[:binary.PutUvarint(size[:], uint64(len(field)))])
		mac.Write([]byte(field))
	}

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether mac is the signature of fields
func (s *Signer) Verify(mac string, fields ...string) bool {
	return cryptoHMAC.Equal([]byte(mac), []byte(s.Sign(fields...)))
}
