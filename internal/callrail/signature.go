package callrail

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the provider-computed HMAC over the raw body.
const SignatureHeader = "X-CallRail-Signature"

// Verifier checks webhook bodies against the account's signing key.
type Verifier struct {
	secret string
}

// NewVerifier builds a verifier for the given shared secret. An empty secret
// is permitted at construction but causes every verification to fail.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: strings.TrimSpace(secret)}
}

// Verify reports whether signature is a valid hex HMAC-SHA256 of body under
// the shared secret. A missing secret or missing signature fails closed.
func (v *Verifier) Verify(body []byte, signature string) bool {
	if v == nil || v.secret == "" {
		return false
	}
	provided := strings.ToLower(strings.TrimSpace(signature))
	provided = strings.TrimPrefix(provided, "sha256=")
	if provided == "" {
		return false
	}
	providedSig, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(v.secret))
	_, _ = mac.Write(body)
	return hmac.Equal(mac.Sum(nil), providedSig)
}

// Sign computes the signature Verify expects. Used by the importer's tests
// and by local tooling that replays captured webhooks.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
