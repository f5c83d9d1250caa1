package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pillarworks/meridian/internal/config"
)

// Header carries the hex-encoded HMAC-SHA256 of the raw request body.
const Header = "X-Signature-Hmac-Sha256"

// Verifier authenticates webhook bodies against the processor's shared
// secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(cfg config.Config) *Verifier {
	return &Verifier{secret: []byte(cfg.WebhookSecret)}
}

// Verify computes HMAC-SHA256 over the exact raw body bytes and compares it
// to the header value in constant time. It is total: a missing secret, a
// missing header, or malformed hex all yield false, never an error.
func (v *Verifier) Verify(rawBody []byte, signatureHeader string) bool {
	if len(v.secret) == 0 {
		return false
	}
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" {
		return false
	}

	provided, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return hmac.Equal(provided, mac.Sum(nil))
}
