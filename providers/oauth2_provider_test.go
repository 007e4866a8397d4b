package providers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-broadcast/core"
)

// scriptedHTTPClient replays canned responses and records every request.
// When more requests arrive than scripts exist, the last script repeats.
type scriptedHTTPClient struct {
	mu       sync.Mutex
	scripts  []scriptedResponse
	requests []recordedRequest
}

type scriptedResponse struct {
	status      int
	contentType string
	body        string
	err         error
}

type recordedRequest struct {
	method string
	url    *url.URL
	header http.Header
	form   url.Values
	body   string
}

func (c *scriptedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	recorded := recordedRequest{
		method: req.Method,
		url:    req.URL,
		header: req.Header.Clone(),
	}
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		recorded.body = string(raw)
		if form, err := url.ParseQuery(recorded.body); err == nil {
			recorded.form = form
		}
	}
	c.requests = append(c.requests, recorded)

	if len(c.scripts) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	index := len(c.requests) - 1
	if index >= len(c.scripts) {
		index = len(c.scripts) - 1
	}
	script := c.scripts[index]
	if script.err != nil {
		return nil, script.err
	}
	header := http.Header{}
	if script.contentType != "" {
		header.Set("Content-Type", script.contentType)
	}
	return &http.Response{
		StatusCode: script.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(script.body)),
	}, nil
}

func (c *scriptedHTTPClient) lastRequest(t *testing.T) recordedRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		t.Fatalf("no requests recorded")
	}
	return c.requests[len(c.requests)-1]
}

func newPKCEProvider(t *testing.T, client HTTPDoer) *OAuth2Provider {
	t.Helper()
	provider, err := NewOAuth2Provider(OAuth2Config{
		Platform:      "x",
		AuthorizeURL:  "https://x.example/authorize",
		TokenURL:      "https://x.example/token",
		ProfileURL:    "https://x.example/me",
		RevokeURL:     "https://x.example/revoke",
		ClientID:      "client-1",
		ClientSecret:  "secret-1",
		UsePKCE:       true,
		DefaultScopes: []string{"tweet.read", "tweet.write"},
		HTTPClient:    client,
		Now:           func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return provider
}

func TestNewOAuth2ProviderRejectsIncompleteConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  OAuth2Config
	}{
		{"missing platform", OAuth2Config{AuthorizeURL: "a", TokenURL: "t", ClientID: "c"}},
		{"missing authorize url", OAuth2Config{Platform: "x", TokenURL: "t", ClientID: "c"}},
		{"missing token url", OAuth2Config{Platform: "x", AuthorizeURL: "a", ClientID: "c"}},
		{"missing client id", OAuth2Config{Platform: "x", AuthorizeURL: "a", TokenURL: "t"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewOAuth2Provider(tc.cfg); err == nil {
				t.Fatalf("expected config error")
			}
		})
	}
}

func TestBeginAuthBuildsAuthorizationURL(t *testing.T) {
	provider := newPKCEProvider(t, &scriptedHTTPClient{})

	resp, err := provider.BeginAuth(context.Background(), core.BeginAuthRequest{
		State:         "state-123",
		RedirectURI:   "https://app.example/callback",
		CodeChallenge: "challenge-abc",
	})
	if err != nil {
		t.Fatalf("begin auth: %v", err)
	}

	parsed, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("parse authorize url: %v", err)
	}
	query := parsed.Query()
	if query.Get("response_type") != "code" {
		t.Fatalf("expected code response type, got %q", query.Get("response_type"))
	}
	if query.Get("client_id") != "client-1" {
		t.Fatalf("unexpected client id: %q", query.Get("client_id"))
	}
	if query.Get("state") != "state-123" {
		t.Fatalf("unexpected state: %q", query.Get("state"))
	}
	if query.Get("scope") != "tweet.read tweet.write" {
		t.Fatalf("default scopes must be space joined, got %q", query.Get("scope"))
	}
	if query.Get("code_challenge") != "challenge-abc" {
		t.Fatalf("missing code challenge")
	}
	if query.Get("code_challenge_method") != "S256" {
		t.Fatalf("expected S256 challenge method, got %q", query.Get("code_challenge_method"))
	}
	if resp.State != "state-123" {
		t.Fatalf("response must echo the state")
	}
}

func TestBeginAuthRequiresChallengeWhenProofKeyEnabled(t *testing.T) {
	provider := newPKCEProvider(t, &scriptedHTTPClient{})
	_, err := provider.BeginAuth(context.Background(), core.BeginAuthRequest{
		State:       "state-123",
		RedirectURI: "https://app.example/callback",
	})
	if err == nil || !strings.Contains(err.Error(), "proof-key") {
		t.Fatalf("expected proof-key error, got %v", err)
	}
}

func TestExchangeCodeSendsVerifierAndParsesJSON(t *testing.T) {
	client := &scriptedHTTPClient{scripts: []scriptedResponse{{
		status:      http.StatusOK,
		contentType: "application/json",
		body:        `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","scope":"tweet.read tweet.write","expires_in":7200}`,
	}}}
	provider := newPKCEProvider(t, client)

	pair, err := provider.ExchangeCode(context.Background(), core.ExchangeCodeRequest{
		Code:         "code-1",
		RedirectURI:  "https://app.example/callback",
		CodeVerifier: "verifier-1",
	})
	if err != nil {
		t.Fatalf("exchange code: %v", err)
	}

	req := client.lastRequest(t)
	if req.method != http.MethodPost {
		t.Fatalf("token exchange must POST, got %s", req.method)
	}
	if got := req.form.Get("grant_type"); got != "authorization_code" {
		t.Fatalf("unexpected grant type: %q", got)
	}
	if got := req.form.Get("code_verifier"); got != "verifier-1" {
		t.Fatalf("verifier not forwarded: %q", got)
	}
	if user, pass, ok := basicAuth(req.header); !ok || user != "client-1" || pass != "secret-1" {
		t.Fatalf("expected basic auth credentials, got %q/%q ok=%v", user, pass, ok)
	}

	if pair.AccessToken != "access-1" || pair.RefreshToken != "refresh-1" {
		t.Fatalf("token pair malformed: %+v", pair)
	}
	if pair.TokenType != "Bearer" {
		t.Fatalf("token type must normalize to Bearer, got %q", pair.TokenType)
	}
	if len(pair.Scopes) != 2 || pair.Scopes[0] != "tweet.read" {
		t.Fatalf("unexpected scopes: %v", pair.Scopes)
	}
	wantExpiry := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	if pair.ExpiresAt == nil || !pair.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %s, got %v", wantExpiry, pair.ExpiresAt)
	}
}

func TestExchangeCodeRequiresVerifierWhenProofKeyEnabled(t *testing.T) {
	provider := newPKCEProvider(t, &scriptedHTTPClient{})
	_, err := provider.ExchangeCode(context.Background(), core.ExchangeCodeRequest{Code: "code-1"})
	if err == nil || !strings.Contains(err.Error(), "verifier") {
		t.Fatalf("expected verifier error, got %v", err)
	}
}

func TestFetchTokenParsesFormEncodedResponses(t *testing.T) {
	client := &scriptedHTTPClient{scripts: []scriptedResponse{{
		status:      http.StatusOK,
		contentType: "application/x-www-form-urlencoded",
		body:        "access_token=access-2&token_type=bearer&expires_in=60",
	}}}
	provider := newPKCEProvider(t, client)

	pair, err := provider.ExchangeCode(context.Background(), core.ExchangeCodeRequest{
		Code:         "code-2",
		CodeVerifier: "verifier-2",
	})
	if err != nil {
		t.Fatalf("exchange code: %v", err)
	}
	if pair.AccessToken != "access-2" {
		t.Fatalf("unexpected access token: %q", pair.AccessToken)
	}
	if pair.ExpiresAt == nil {
		t.Fatalf("expected expiry from expires_in")
	}
}

func TestFetchTokenSurfacesEndpointErrors(t *testing.T) {
	client := &scriptedHTTPClient{scripts: []scriptedResponse{{
		status:      http.StatusBadRequest,
		contentType: "application/json",
		body:        `{"error":"invalid_grant","error_description":"code expired"}`,
	}}}
	provider := newPKCEProvider(t, client)

	_, err := provider.ExchangeCode(context.Background(), core.ExchangeCodeRequest{
		Code:         "code-3",
		CodeVerifier: "verifier-3",
	})
	if err == nil || !strings.Contains(err.Error(), "invalid_grant: code expired") {
		t.Fatalf("expected decoded endpoint error, got %v", err)
	}
}

func TestRefreshTokenSendsRefreshGrant(t *testing.T) {
	client := &scriptedHTTPClient{scripts: []scriptedResponse{{
		status:      http.StatusOK,
		contentType: "application/json",
		body:        `{"access_token":"access-3","token_type":"Bearer"}`,
	}}}
	provider := newPKCEProvider(t, client)

	if _, err := provider.RefreshToken(context.Background(), "refresh-1"); err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	req := client.lastRequest(t)
	if got := req.form.Get("grant_type"); got != "refresh_token" {
		t.Fatalf("unexpected grant type: %q", got)
	}
	if got := req.form.Get("refresh_token"); got != "refresh-1" {
		t.Fatalf("refresh token not forwarded: %q", got)
	}
}

func TestFetchProfileUsesConfiguredParser(t *testing.T) {
	client := &scriptedHTTPClient{scripts: []scriptedResponse{{
		status:      http.StatusOK,
		contentType: "application/json",
		body:        `{"data":{"id":"u-1","name":"Ada","username":"ada"}}`,
	}}}
	provider, err := NewOAuth2Provider(OAuth2Config{
		Platform:     "x",
		AuthorizeURL: "https://x.example/authorize",
		TokenURL:     "https://x.example/token",
		ProfileURL:   "https://x.example/me",
		ClientID:     "client-1",
		HTTPClient:   client,
		ParseProfile: parseXProfile,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	profile, err := provider.FetchProfile(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("fetch profile: %v", err)
	}
	if profile.AccountID != "u-1" || profile.Username != "ada" {
		t.Fatalf("profile malformed: %+v", profile)
	}
	req := client.lastRequest(t)
	if got := req.header.Get("Authorization"); got != "Bearer access-1" {
		t.Fatalf("expected bearer header, got %q", got)
	}
}

func TestRevokeTokenIsLocalOnlyWithoutEndpoint(t *testing.T) {
	client := &scriptedHTTPClient{}
	provider, err := NewOAuth2Provider(OAuth2Config{
		Platform:     "facebook",
		AuthorizeURL: "https://fb.example/authorize",
		TokenURL:     "https://fb.example/token",
		ClientID:     "client-1",
		HTTPClient:   client,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if err := provider.RevokeToken(context.Background(), "access-1"); err != nil {
		t.Fatalf("revoke without endpoint must be a no-op: %v", err)
	}
	if len(client.requests) != 0 {
		t.Fatalf("no request expected without a revoke endpoint")
	}
}

func TestRevokeTokenPostsToRevokeEndpoint(t *testing.T) {
	client := &scriptedHTTPClient{scripts: []scriptedResponse{{status: http.StatusOK}}}
	provider := newPKCEProvider(t, client)

	if err := provider.RevokeToken(context.Background(), "access-1"); err != nil {
		t.Fatalf("revoke token: %v", err)
	}
	req := client.lastRequest(t)
	if req.url.String() != "https://x.example/revoke" {
		t.Fatalf("unexpected revoke url: %s", req.url)
	}
	if got := req.form.Get("token"); got != "access-1" {
		t.Fatalf("token not forwarded: %q", got)
	}
}

func TestTestConnectionFailsOnNonSuccessStatus(t *testing.T) {
	client := &scriptedHTTPClient{scripts: []scriptedResponse{{
		status: http.StatusUnauthorized,
		body:   "unauthorized",
	}}}
	provider := newPKCEProvider(t, client)

	if err := provider.TestConnection(context.Background(), "stale-token"); err == nil {
		t.Fatalf("expected connection error")
	}
}

func basicAuth(header http.Header) (string, string, bool) {
	req := &http.Request{Header: header}
	return req.BasicAuth()
}
