package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-broadcast/core"
)

// HTTPDoer lets callers inject instrumented or fake HTTP clients.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultTokenRequestTimeout = 30 * time.Second
	maxResponseBodyBytes       = 1 << 20
)

// ProfileParser maps a platform profile payload onto the account profile
// shape the credential service stores.
type ProfileParser func(body []byte) (core.AccountProfile, error)

// OAuth2Config describes one platform's authorization-code endpoints.
type OAuth2Config struct {
	Platform     string
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string
	RevokeURL    string

	ClientID     string
	ClientSecret string
	// ClientSecretInBody sends credentials as form fields instead of basic
	// auth, for platforms that reject the Authorization header.
	ClientSecretInBody bool

	// UsePKCE requires a proof-key challenge on BeginAuth and forwards the
	// verifier on code exchange.
	UsePKCE bool

	DefaultScopes []string

	// TokenTTL is the fallback lifetime applied when the token response
	// carries no expires_in hint.
	TokenTTL time.Duration

	TokenRequestTimeout time.Duration

	ParseProfile ProfileParser

	HTTPClient HTTPDoer
	Now        func() time.Time
}

// OAuth2Provider implements the platform authorization surface for any
// standard authorization-code platform. Platform-specific behavior lives in
// the config: endpoints, scopes, secret placement, and the profile parser.
type OAuth2Provider struct {
	cfg OAuth2Config
}

func NewOAuth2Provider(cfg OAuth2Config) (*OAuth2Provider, error) {
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	if cfg.Platform == "" {
		return nil, fmt.Errorf("providers: oauth2 platform is required")
	}
	if strings.TrimSpace(cfg.AuthorizeURL) == "" {
		return nil, fmt.Errorf("providers: oauth2 authorize url is required for %q", cfg.Platform)
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, fmt.Errorf("providers: oauth2 token url is required for %q", cfg.Platform)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("providers: oauth2 client id is required for %q", cfg.Platform)
	}
	if cfg.TokenRequestTimeout <= 0 {
		cfg.TokenRequestTimeout = defaultTokenRequestTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ParseProfile == nil {
		cfg.ParseProfile = parseGenericProfile
	}
	return &OAuth2Provider{cfg: cfg}, nil
}

func (p *OAuth2Provider) Platform() string { return p.cfg.Platform }

func (p *OAuth2Provider) RequiresProofKey() bool { return p.cfg.UsePKCE }

func (p *OAuth2Provider) BeginAuth(_ context.Context, req core.BeginAuthRequest) (core.BeginAuthResponse, error) {
	if strings.TrimSpace(req.RedirectURI) == "" {
		return core.BeginAuthResponse{}, fmt.Errorf("providers: redirect uri is required for %q", p.cfg.Platform)
	}
	if strings.TrimSpace(req.State) == "" {
		return core.BeginAuthResponse{}, fmt.Errorf("providers: authorization state is required for %q", p.cfg.Platform)
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = p.cfg.DefaultScopes
	}

	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", p.cfg.ClientID)
	values.Set("redirect_uri", req.RedirectURI)
	values.Set("state", req.State)
	if len(scopes) > 0 {
		values.Set("scope", strings.Join(scopes, " "))
	}
	if p.cfg.UsePKCE {
		if strings.TrimSpace(req.CodeChallenge) == "" {
			return core.BeginAuthResponse{}, fmt.Errorf("providers: platform %q requires a proof-key challenge", p.cfg.Platform)
		}
		values.Set("code_challenge", req.CodeChallenge)
		values.Set("code_challenge_method", "S256")
	}

	separator := "?"
	if strings.Contains(p.cfg.AuthorizeURL, "?") {
		separator = "&"
	}

	return core.BeginAuthResponse{
		URL:    p.cfg.AuthorizeURL + separator + values.Encode(),
		State:  req.State,
		Scopes: append([]string(nil), scopes...),
	}, nil
}

func (p *OAuth2Provider) ExchangeCode(ctx context.Context, req core.ExchangeCodeRequest) (core.TokenPair, error) {
	if strings.TrimSpace(req.Code) == "" {
		return core.TokenPair{}, fmt.Errorf("providers: authorization code is required for %q", p.cfg.Platform)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", req.Code)
	if req.RedirectURI != "" {
		form.Set("redirect_uri", req.RedirectURI)
	}
	if p.cfg.UsePKCE {
		if strings.TrimSpace(req.CodeVerifier) == "" {
			return core.TokenPair{}, fmt.Errorf("providers: platform %q requires a proof-key verifier", p.cfg.Platform)
		}
		form.Set("code_verifier", req.CodeVerifier)
	}
	return p.fetchToken(ctx, form)
}

func (p *OAuth2Provider) RefreshToken(ctx context.Context, refreshToken string) (core.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return core.TokenPair{}, fmt.Errorf("providers: refresh token is required for %q", p.cfg.Platform)
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return p.fetchToken(ctx, form)
}

func (p *OAuth2Provider) FetchProfile(ctx context.Context, accessToken string) (core.AccountProfile, error) {
	if strings.TrimSpace(p.cfg.ProfileURL) == "" {
		return core.AccountProfile{}, fmt.Errorf("providers: platform %q has no profile endpoint", p.cfg.Platform)
	}
	body, err := p.bearerGet(ctx, p.cfg.ProfileURL, accessToken)
	if err != nil {
		return core.AccountProfile{}, err
	}
	profile, err := p.cfg.ParseProfile(body)
	if err != nil {
		return core.AccountProfile{}, fmt.Errorf("providers: parse %q profile: %w", p.cfg.Platform, err)
	}
	if strings.TrimSpace(profile.AccountID) == "" {
		return core.AccountProfile{}, fmt.Errorf("providers: platform %q profile carries no account id", p.cfg.Platform)
	}
	return profile, nil
}

func (p *OAuth2Provider) RevokeToken(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(p.cfg.RevokeURL) == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", accessToken)
	if p.cfg.ClientSecretInBody {
		form.Set("client_id", p.cfg.ClientID)
		if p.cfg.ClientSecret != "" {
			form.Set("client_secret", p.cfg.ClientSecret)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.TokenRequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("providers: build %q revoke request: %w", p.cfg.Platform, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if !p.cfg.ClientSecretInBody && p.cfg.ClientSecret != "" {
		httpReq.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	}

	resp, err := p.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("providers: %q revoke request failed: %w", p.cfg.Platform, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("providers: %q revoke returned status %d: %s", p.cfg.Platform, resp.StatusCode, describeErrorBody(resp.Header.Get("Content-Type"), body))
	}
	return nil
}

func (p *OAuth2Provider) TestConnection(ctx context.Context, accessToken string) error {
	target := p.cfg.ProfileURL
	if strings.TrimSpace(target) == "" {
		target = p.cfg.AuthorizeURL
	}
	_, err := p.bearerGet(ctx, target, accessToken)
	return err
}

func (p *OAuth2Provider) fetchToken(ctx context.Context, form url.Values) (core.TokenPair, error) {
	if p.cfg.ClientSecretInBody {
		form.Set("client_id", p.cfg.ClientID)
		if p.cfg.ClientSecret != "" {
			form.Set("client_secret", p.cfg.ClientSecret)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.TokenRequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("providers: build %q token request: %w", p.cfg.Platform, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if !p.cfg.ClientSecretInBody {
		httpReq.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	}

	resp, err := p.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("providers: %q token request failed: %w", p.cfg.Platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("providers: read %q token response: %w", p.cfg.Platform, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.TokenPair{}, fmt.Errorf("providers: %q token endpoint returned status %d: %s", p.cfg.Platform, resp.StatusCode, describeErrorBody(contentType, body))
	}

	payload, err := parseTokenPayload(contentType, body)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("providers: decode %q token response: %w", p.cfg.Platform, err)
	}
	if payload.accessToken == "" {
		return core.TokenPair{}, fmt.Errorf("providers: %q token response carries no access token", p.cfg.Platform)
	}

	return core.TokenPair{
		AccessToken:  payload.accessToken,
		RefreshToken: payload.refreshToken,
		TokenType:    normalizeTokenType(payload.tokenType),
		Scopes:       parseScopeList(payload.scope),
		ExpiresAt:    p.resolveExpiresAt(payload.expiresIn),
	}, nil
}

func (p *OAuth2Provider) bearerGet(ctx context.Context, target string, accessToken string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.TokenRequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("providers: build %q request: %w", p.cfg.Platform, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("providers: %q request failed: %w", p.cfg.Platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("providers: read %q response: %w", p.cfg.Platform, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("providers: %q returned status %d: %s", p.cfg.Platform, resp.StatusCode, describeErrorBody(resp.Header.Get("Content-Type"), body))
	}
	return body, nil
}

// resolveExpiresAt prefers the endpoint's expires_in hint and falls back to
// the configured TTL. Tokens without either never expire locally.
func (p *OAuth2Provider) resolveExpiresAt(expiresIn int64) *time.Time {
	now := p.cfg.Now().UTC()
	if expiresIn > 0 {
		at := now.Add(time.Duration(expiresIn) * time.Second)
		return &at
	}
	if p.cfg.TokenTTL > 0 {
		at := now.Add(p.cfg.TokenTTL)
		return &at
	}
	return nil
}

type tokenPayload struct {
	accessToken  string
	refreshToken string
	tokenType    string
	scope        string
	expiresIn    int64
}

// parseTokenPayload accepts both JSON and form-encoded token responses;
// older platforms still emit the latter.
func parseTokenPayload(contentType string, body []byte) (tokenPayload, error) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	if mediaType == "application/x-www-form-urlencoded" || mediaType == "text/plain" {
		values, err := url.ParseQuery(strings.TrimSpace(string(body)))
		if err != nil {
			return tokenPayload{}, err
		}
		return tokenPayload{
			accessToken:  values.Get("access_token"),
			refreshToken: values.Get("refresh_token"),
			tokenType:    values.Get("token_type"),
			scope:        values.Get("scope"),
			expiresIn:    parseAnyInt64(values.Get("expires_in")),
		}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenPayload{}, err
	}
	return tokenPayload{
		accessToken:  readAnyString(decoded, "access_token"),
		refreshToken: readAnyString(decoded, "refresh_token"),
		tokenType:    readAnyString(decoded, "token_type"),
		scope:        readAnyString(decoded, "scope"),
		expiresIn:    readAnyInt64(decoded, "expires_in"),
	}, nil
}

// parseGenericProfile covers the common {"id": ..., "name": ..., "username": ...}
// shape; platforms with nested payloads supply their own parser.
func parseGenericProfile(body []byte) (core.AccountProfile, error) {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return core.AccountProfile{}, err
	}
	return core.AccountProfile{
		AccountID:   readAnyString(decoded, "id"),
		DisplayName: readAnyString(decoded, "name"),
		Username:    readAnyString(decoded, "username"),
		AccountType: readAnyString(decoded, "account_type"),
	}, nil
}

func describeErrorBody(contentType string, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "empty response body"
	}
	if strings.Contains(contentType, "json") {
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err == nil {
			code := readAnyString(decoded, "error")
			detail := readAnyString(decoded, "error_description")
			switch {
			case code != "" && detail != "":
				return code + ": " + detail
			case code != "":
				return code
			}
		}
	}
	if len(trimmed) > 256 {
		trimmed = trimmed[:256]
	}
	return trimmed
}

func normalizeTokenType(tokenType string) string {
	tokenType = strings.TrimSpace(tokenType)
	if tokenType == "" {
		return "Bearer"
	}
	if strings.EqualFold(tokenType, "bearer") {
		return "Bearer"
	}
	return tokenType
}

func parseScopeList(scope string) []string {
	fields := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func readAnyString(payload map[string]any, key string) string {
	switch value := payload[key].(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	}
	return ""
}

func readAnyInt64(payload map[string]any, key string) int64 {
	switch value := payload[key].(type) {
	case float64:
		return int64(value)
	case string:
		return parseAnyInt64(value)
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0
		}
		return parsed
	}
	return 0
}

func parseAnyInt64(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

var _ core.AuthProvider = (*OAuth2Provider)(nil)
