package auth

import "testing"

func TestWebhookVerifierValid(t *testing.T) {
	verifier := NewWebhookVerifier("shared-secret")
	body := []byte(`{"event":"charge.success","data":{"reference":"PM-1"}}`)
	sig := verifier.Sign(body)

	if !verifier.Valid(body, sig) {
		t.Fatal("expected valid signature")
	}
	if verifier.Valid([]byte(`tampered`), sig) {
		t.Fatal("expected tampered body to fail")
	}
	if verifier.Valid(body, "") {
		t.Fatal("expected empty signature to fail")
	}
	other := NewWebhookVerifier("different-secret")
	if other.Valid(body, sig) {
		t.Fatal("expected signature from another secret to fail")
	}
}

func TestWebhookVerifierSignatureIsOverRawBytes(t *testing.T) {
	verifier := NewWebhookVerifier("shared-secret")
	// Equivalent JSON with different whitespace must produce a different
	// signature: verification happens over the raw body, not a re-serialized
	// object.
	a := []byte(`{"event":"charge.success"}`)
	b := []byte(`{ "event": "charge.success" }`)
	if verifier.Sign(a) == verifier.Sign(b) {
		t.Fatal("expected raw-byte signatures to differ")
	}
}
