package binanceus

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer signs request payloads for SIGNED endpoints.
type Signer struct {
	key    string
	secret string
}

// NewSigner creates a Signer for the given API key pair.
func NewSigner(key, secret string) *Signer {
	return &Signer{key: key, secret: secret}
}

// APIKey returns the key sent in the X-MBX-APIKEY header.
func (s *Signer) APIKey() string {
	return s.key
}

// Sign returns the hex HMAC-SHA256 of payload. The payload must be the exact
// encoded query or form body that goes on the wire.
func (s *Signer) Sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (s *Signer) String() string {
	redact := func(v string) string {
		if len(v) <= 4 {
			return "****"
		}
		return v[:4] + "****"
	}
	return fmt.Sprintf("Signer{key=%s, secret=%s}", redact(s.key), redact(s.secret))
}
