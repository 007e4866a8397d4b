package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type fakeProvider struct {
	platform string
	proofKey bool

	lastBegin    BeginAuthRequest
	lastExchange ExchangeCodeRequest

	exchangePair  *TokenPair
	refreshedPair *TokenPair
	profile       *AccountProfile

	beginErr    error
	exchangeErr error
	refreshErr  error
	revokeErr   error

	exchangeCalls int
	refreshCalls  int
	revokeCalls   int
}

func (p *fakeProvider) Platform() string {
	return p.platform
}

func (p *fakeProvider) RequiresProofKey() bool {
	return p.proofKey
}

func (p *fakeProvider) BeginAuth(_ context.Context, req BeginAuthRequest) (BeginAuthResponse, error) {
	p.lastBegin = req
	if p.beginErr != nil {
		return BeginAuthResponse{}, p.beginErr
	}
	return BeginAuthResponse{
		URL:   "https://" + p.platform + ".example/authorize?state=" + req.State,
		State: req.State,
	}, nil
}

func (p *fakeProvider) ExchangeCode(_ context.Context, req ExchangeCodeRequest) (TokenPair, error) {
	p.exchangeCalls++
	p.lastExchange = req
	if p.exchangeErr != nil {
		return TokenPair{}, p.exchangeErr
	}
	if p.exchangePair != nil {
		return *p.exchangePair, nil
	}
	expires := time.Now().UTC().Add(time.Hour)
	return TokenPair{
		AccessToken:  "access-" + req.Code,
		RefreshToken: "refresh-" + req.Code,
		TokenType:    "bearer",
		ExpiresAt:    &expires,
	}, nil
}

func (p *fakeProvider) FetchProfile(_ context.Context, accessToken string) (AccountProfile, error) {
	if strings.TrimSpace(accessToken) == "" {
		return AccountProfile{}, fmt.Errorf("%s: access token required", p.platform)
	}
	if p.profile != nil {
		return *p.profile, nil
	}
	return AccountProfile{
		AccountID:   "acct-1",
		DisplayName: "Test Account",
		Username:    "tester",
		AccountType: "business",
	}, nil
}

func (p *fakeProvider) RefreshToken(_ context.Context, refreshToken string) (TokenPair, error) {
	p.refreshCalls++
	if p.refreshErr != nil {
		return TokenPair{}, p.refreshErr
	}
	if p.refreshedPair != nil {
		return *p.refreshedPair, nil
	}
	expires := time.Now().UTC().Add(time.Hour)
	return TokenPair{
		AccessToken:  "access-refreshed-" + refreshToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresAt:    &expires,
	}, nil
}

func (p *fakeProvider) RevokeToken(context.Context, string) error {
	p.revokeCalls++
	return p.revokeErr
}

func (p *fakeProvider) TestConnection(context.Context, string) error {
	return nil
}

// testSecretProvider wraps plaintext with a marker so tests can tell the
// stored payload is not the plaintext token.
type testSecretProvider struct{}

func (testSecretProvider) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	return append([]byte("enc:"), plaintext...), nil
}

func (testSecretProvider) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if !strings.HasPrefix(string(ciphertext), "enc:") {
		return nil, fmt.Errorf("test secret provider: unexpected ciphertext")
	}
	return []byte(strings.TrimPrefix(string(ciphertext), "enc:")), nil
}

func newTestService(t interface{ Fatalf(string, ...any) }, opts ...Option) (*Service, *fakeProvider) {
	provider := &fakeProvider{platform: "pinboard"}
	registry := NewPlatformRegistry()
	if err := registry.Register(provider); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	base := []Option{
		WithRegistry(registry),
		WithOAuthStateStore(NewMemoryOAuthStateStore(time.Minute)),
		WithTokenStore(NewMemoryTokenStore()),
		WithSecretProvider(testSecretProvider{}),
	}
	svc, err := NewService(Config{}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, provider
}

func seedConnectedAccount(t interface{ Fatalf(string, ...any) }, svc *Service, provider *fakeProvider, pair TokenPair) TenantToken {
	ctx := context.Background()
	provider.exchangePair = &pair

	initResp, err := svc.InitiateOAuth(ctx, InitiateOAuthRequest{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Platform:    provider.platform,
		RedirectURI: "https://app.example/callback",
	})
	if err != nil {
		t.Fatalf("initiate oauth: %v", err)
	}
	completion, err := svc.CompleteCallback(ctx, CompleteCallbackRequest{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Platform:    provider.platform,
		Code:        "code-1",
		State:       initResp.State,
		RedirectURI: "https://app.example/callback",
	})
	if err != nil {
		t.Fatalf("complete callback: %v", err)
	}
	return completion.Token
}
