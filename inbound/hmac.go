package inbound

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	defaultSignatureHeader = "X-Hub-Signature-256"
	signaturePrefix        = "sha256="
)

// HMACVerifier checks webhook payload signatures against the secret shared
// with each platform at app registration time. OAuth callbacks pass through
// unverified; they are protected by the single-use state nonce instead.
type HMACVerifier struct {
	SignatureHeader string
	secrets         map[string]string
}

func NewHMACVerifier(secrets map[string]string) *HMACVerifier {
	normalized := make(map[string]string, len(secrets))
	for platform, secret := range secrets {
		platform = strings.TrimSpace(strings.ToLower(platform))
		secret = strings.TrimSpace(secret)
		if platform == "" || secret == "" {
			continue
		}
		normalized[platform] = secret
	}
	return &HMACVerifier{
		SignatureHeader: defaultSignatureHeader,
		secrets:         normalized,
	}
}

func (v *HMACVerifier) Verify(_ context.Context, req Request) error {
	if v == nil {
		return inboundInternal("inbound: verifier is nil", nil)
	}
	if normalizeSurface(req.Surface) == SurfaceOAuthCallback {
		return nil
	}

	secret, ok := v.secrets[strings.TrimSpace(strings.ToLower(req.Platform))]
	if !ok {
		return fmt.Errorf("inbound: no webhook secret configured for platform %q", req.Platform)
	}

	header := v.SignatureHeader
	if strings.TrimSpace(header) == "" {
		header = defaultSignatureHeader
	}
	provided := headerLookup(req.Headers, header)
	if provided == "" {
		return fmt.Errorf("inbound: missing %s header", header)
	}
	provided = strings.TrimPrefix(strings.ToLower(provided), signaturePrefix)

	expected := SignPayload(secret, req.Body)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return fmt.Errorf("inbound: signature mismatch for platform %q", req.Platform)
	}
	return nil
}

// SignPayload computes the hex HMAC-SHA256 digest platforms expect in the
// signature header, without the scheme prefix.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
