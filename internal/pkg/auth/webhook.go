package auth

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// WebhookVerifier checks the gateway's HMAC-SHA512 signature computed over
// the raw webhook body. The body must be verified before any parsing.
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier builds a verifier sharing the gateway secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Sign returns the hex signature for body. Used by tests and the simulator.
func (v *WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha512.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Valid reports whether signature matches body.
func (v *WebhookVerifier) Valid(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(body)), []byte(signature))
}
