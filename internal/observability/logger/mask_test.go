package logger

import (
	"net/http"
	"testing"
)

func TestMaskSignature(t *testing.T) {
	got := MaskSignature("a1b2c3d4e5f6")
	want := "****e5f6"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := MaskSignature(""); got != "" {
		t.Fatalf("empty signature: got %q", got)
	}
}

func TestMaskHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Signature-Hmac-Sha256", "deadbeef1234")
	headers.Set("Content-Type", "application/json")

	masked := MaskHeaders(headers)
	if masked["X-Signature-Hmac-Sha256"] != "****1234" {
		t.Fatalf("signature header: got %q", masked["X-Signature-Hmac-Sha256"])
	}
	if masked["Content-Type"] != "application/json" {
		t.Fatalf("plain header must pass through, got %q", masked["Content-Type"])
	}
}

func TestMaskFields(t *testing.T) {
	input := map[string]any{
		"signature": "abc12345",
		"event_id":  "evt_1",
		"nested": map[string]any{
			"api_key": "key_12345678",
		},
	}
	masked := MaskFields(input)
	if masked["signature"] != "****2345" {
		t.Fatalf("expected masked signature, got %v", masked["signature"])
	}
	if masked["event_id"] != "evt_1" {
		t.Fatalf("plain field must pass through, got %v", masked["event_id"])
	}
	nested, ok := masked["nested"].(map[string]any)
	if !ok {
		t.Fatal("expected nested map")
	}
	if nested["api_key"] != "****5678" {
		t.Fatalf("expected masked api_key, got %v", nested["api_key"])
	}

	// Input must not be mutated.
	if input["signature"] != "abc12345" {
		t.Fatalf("input mutated: %v", input["signature"])
	}
}
