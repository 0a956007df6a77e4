package signal

import (
	"encoding/hex"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// fingerprintHeaders is the header subset folded into the fingerprint.
// Chosen to be stable across requests from the same client but cheap to
// collect. Credential carriers are deliberately excluded.
var fingerprintHeaders = []string{
	"User-Agent",
	"Accept-Language",
	"Accept-Encoding",
	"Sec-Ch-Ua",
}

// Fingerprint derives a stable client identifier from the source IP and a
// subset of identifying headers. It is a cache key, not a secret: collisions
// are acceptable but rare.
func Fingerprint(ip string, h http.Header) string {
	var b strings.Builder
	b.WriteString(ip)
	for _, name := range fingerprintHeaders {
		b.WriteByte('|')
		b.WriteString(h.Get(name))
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:12])
}
