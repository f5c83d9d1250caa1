package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/pillarworks/meridian/internal/config"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v := NewVerifier(config.Config{WebhookSecret: "whsec_test"})
	body := []byte(`{"type":"subscription_payment","data":{"id":"evt_1"}}`)

	if !v.Verify(body, sign("whsec_test", body)) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	v := NewVerifier(config.Config{WebhookSecret: "whsec_test"})
	body := []byte(`{"type":"subscription_payment","data":{"id":"evt_1"}}`)
	header := sign("whsec_test", body)

	tampered := []byte(`{"type":"subscription_payment","data":{"id":"evt_2"}}`)
	if v.Verify(tampered, header) {
		t.Fatal("expected tampered body to fail verification")
	}
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	v := NewVerifier(config.Config{WebhookSecret: "whsec_test"})
	if v.Verify([]byte("{}"), "") {
		t.Fatal("expected missing header to fail verification")
	}
}

func TestVerifyRejectsMalformedHex(t *testing.T) {
	v := NewVerifier(config.Config{WebhookSecret: "whsec_test"})
	if v.Verify([]byte("{}"), "not-hex!") {
		t.Fatal("expected malformed hex to fail verification")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewVerifier(config.Config{WebhookSecret: "whsec_test"})
	body := []byte("{}")
	if v.Verify(body, sign("whsec_other", body)) {
		t.Fatal("expected signature from a different secret to fail")
	}
}

func TestVerifyRejectsMissingSecret(t *testing.T) {
	v := NewVerifier(config.Config{})
	body := []byte("{}")
	if v.Verify(body, sign("", body)) {
		t.Fatal("expected verification to fail with no configured secret")
	}
}
