package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/goliatone/go-broadcast/inbound"
)

func hexSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func base64Signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHeaderHMACVerifierHexWithPrefix(t *testing.T) {
	body := []byte(`{"post_id":"post-1"}`)
	verifier := HeaderHMACVerifier{
		Header:   "X-Hub-Signature-256",
		Prefix:   "sha256=",
		Secret:   "meta-secret",
		Encoding: "hex",
	}

	req := inbound.Request{
		Platform: "facebook",
		Headers:  map[string]string{"X-Hub-Signature-256": "sha256=" + hexSignature("meta-secret", body)},
		Body:     body,
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected valid signature accepted, got %v", err)
	}

	req.Body = []byte(`{"post_id":"post-2"}`)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatal("expected tampered body rejected")
	}
}

func TestHeaderHMACVerifierBase64(t *testing.T) {
	body := []byte(`{"post_id":"post-1"}`)
	verifier := HeaderHMACVerifier{
		Header:   "X-Twitter-Webhooks-Signature",
		Prefix:   "sha256=",
		Secret:   "x-secret",
		Encoding: "base64",
	}

	req := inbound.Request{
		Platform: "x",
		Headers: map[string]string{
			"X-Twitter-Webhooks-Signature": "sha256=" + base64Signature("x-secret", body),
		},
		Body: body,
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected valid signature accepted, got %v", err)
	}

	req.Headers["X-Twitter-Webhooks-Signature"] = "sha256=!!!not-base64"
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatal("expected undecodable signature rejected")
	}
}

func TestHeaderHMACVerifierRequiresHeaderAndSecret(t *testing.T) {
	verifier := HeaderHMACVerifier{Header: "X-Li-Signature", Secret: "secret"}
	if err := verifier.Verify(context.Background(), inbound.Request{Platform: "linkedin"}); err == nil {
		t.Fatal("expected missing header rejected")
	}

	verifier = HeaderHMACVerifier{Header: "X-Li-Signature"}
	req := inbound.Request{
		Platform: "linkedin",
		Headers:  map[string]string{"X-Li-Signature": "abc123"},
	}
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatal("expected missing secret rejected")
	}
}

func TestHeaderTokenVerifier(t *testing.T) {
	verifier := HeaderTokenVerifier{Header: "X-Verify-Token", Token: "expected"}

	req := inbound.Request{Headers: map[string]string{"X-Verify-Token": "expected"}}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected matching token accepted, got %v", err)
	}

	req.Headers["X-Verify-Token"] = "wrong"
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatal("expected mismatched token rejected")
	}
}

func TestHeaderDeliveryIDExtractorFallsThroughHeaders(t *testing.T) {
	extractor := HeaderDeliveryIDExtractor("X-Primary-Id", "X-Fallback-Id")

	req := inbound.Request{Headers: map[string]string{"X-Fallback-Id": "delivery-9"}}
	id, err := extractor(req)
	if err != nil || id != "delivery-9" {
		t.Fatalf("expected fallback header used, got %q %v", id, err)
	}

	if _, err := extractor(inbound.Request{}); err == nil {
		t.Fatal("expected missing headers rejected")
	}
}

func TestChainDeliveryIDExtractors(t *testing.T) {
	chain := ChainDeliveryIDExtractors(
		HeaderDeliveryIDExtractor("X-Primary-Id"),
		DefaultDeliveryIDExtractor,
	)

	req := inbound.Request{Metadata: map[string]any{"delivery_id": "delivery-3"}}
	id, err := chain(req)
	if err != nil || id != "delivery-3" {
		t.Fatalf("expected chained extraction, got %q %v", id, err)
	}
}

func TestPlatformWebhookTemplates(t *testing.T) {
	cases := []struct {
		name     string
		template PlatformWebhookTemplate
		platform string
	}{
		{"x", NewXWebhookTemplate("secret"), "x"},
		{"linkedin", NewLinkedInWebhookTemplate("secret"), "linkedin"},
		{"facebook", NewMetaWebhookTemplate("facebook", "secret"), "facebook"},
		{"instagram", NewMetaWebhookTemplate("Instagram", "secret"), "instagram"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.template.Platform != tc.platform {
				t.Fatalf("expected platform %q, got %q", tc.platform, tc.template.Platform)
			}
			if tc.template.Verifier == nil || tc.template.Extractor == nil {
				t.Fatalf("expected verifier and extractor configured: %#v", tc.template)
			}
		})
	}
}
