package inbound

import (
	"context"
	"testing"
)

func signedWebhookRequest(secret string, body []byte) Request {
	return Request{
		Platform: "x",
		Surface:  SurfaceWebhook,
		Headers: map[string]string{
			"X-Hub-Signature-256": "sha256=" + SignPayload(secret, body),
			"X-Delivery-Id":       "delivery-1",
		},
		Body: body,
	}
}

func TestHMACVerifierAcceptsValidSignature(t *testing.T) {
	verifier := NewHMACVerifier(map[string]string{"x": "webhook-secret"})

	req := signedWebhookRequest("webhook-secret", []byte(`{"event":"like"}`))
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected valid signature accepted, got %v", err)
	}
}

func TestHMACVerifierRejectsTamperedBody(t *testing.T) {
	verifier := NewHMACVerifier(map[string]string{"x": "webhook-secret"})

	req := signedWebhookRequest("webhook-secret", []byte(`{"event":"like"}`))
	req.Body = []byte(`{"event":"like","count":9000}`)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatal("expected tampered body rejected")
	}
}

func TestHMACVerifierRejectsWrongSecret(t *testing.T) {
	verifier := NewHMACVerifier(map[string]string{"x": "webhook-secret"})

	req := signedWebhookRequest("other-secret", []byte(`{"event":"like"}`))
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatal("expected mismatched secret rejected")
	}
}

func TestHMACVerifierRequiresConfiguredPlatform(t *testing.T) {
	verifier := NewHMACVerifier(map[string]string{"x": "webhook-secret"})

	req := signedWebhookRequest("webhook-secret", []byte(`{}`))
	req.Platform = "linkedin"
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatal("expected unconfigured platform rejected")
	}
}

func TestHMACVerifierRequiresSignatureHeader(t *testing.T) {
	verifier := NewHMACVerifier(map[string]string{"x": "webhook-secret"})

	req := Request{Platform: "x", Surface: SurfaceWebhook, Body: []byte(`{}`)}
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatal("expected missing signature rejected")
	}
}

func TestHMACVerifierSkipsOAuthCallbacks(t *testing.T) {
	verifier := NewHMACVerifier(map[string]string{"x": "webhook-secret"})

	req := Request{Platform: "x", Surface: SurfaceOAuthCallback}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected oauth callback to pass through, got %v", err)
	}
}
