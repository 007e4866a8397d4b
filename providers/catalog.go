package providers

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-broadcast/core"
)

// ClientConfig carries the per-tenant application credentials for one of the
// builtin platforms.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	HTTPClient   HTTPDoer
}

// NewXProvider targets the X (Twitter) v2 OAuth surface. X mandates PKCE for
// every client, so the provider requires proof keys.
func NewXProvider(cfg ClientConfig) (*OAuth2Provider, error) {
	return NewOAuth2Provider(OAuth2Config{
		Platform:      "x",
		AuthorizeURL:  "https://x.com/i/oauth2/authorize",
		TokenURL:      "https://api.x.com/2/oauth2/token",
		ProfileURL:    "https://api.x.com/2/users/me",
		RevokeURL:     "https://api.x.com/2/oauth2/revoke",
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		UsePKCE:       true,
		DefaultScopes: []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		HTTPClient:    cfg.HTTPClient,
		ParseProfile:  parseXProfile,
	})
}

func NewLinkedInProvider(cfg ClientConfig) (*OAuth2Provider, error) {
	return NewOAuth2Provider(OAuth2Config{
		Platform:           "linkedin",
		AuthorizeURL:       "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:           "https://www.linkedin.com/oauth/v2/accessToken",
		ProfileURL:         "https://api.linkedin.com/v2/userinfo",
		RevokeURL:          "https://www.linkedin.com/oauth/v2/revoke",
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		ClientSecretInBody: true,
		DefaultScopes:      []string{"openid", "profile", "w_member_social"},
		HTTPClient:         cfg.HTTPClient,
		ParseProfile:       parseLinkedInProfile,
	})
}

// NewFacebookProvider covers Facebook pages publishing. Facebook has no
// revoke endpoint for app tokens; revocation happens through permission
// deletion, so RevokeURL stays empty and revocation is local-only.
func NewFacebookProvider(cfg ClientConfig) (*OAuth2Provider, error) {
	return NewOAuth2Provider(OAuth2Config{
		Platform:           "facebook",
		AuthorizeURL:       "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:           "https://graph.facebook.com/v19.0/oauth/access_token",
		ProfileURL:         "https://graph.facebook.com/v19.0/me?fields=id,name",
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		ClientSecretInBody: true,
		DefaultScopes:      []string{"pages_manage_posts", "pages_read_engagement"},
		HTTPClient:         cfg.HTTPClient,
	})
}

func NewInstagramProvider(cfg ClientConfig) (*OAuth2Provider, error) {
	return NewOAuth2Provider(OAuth2Config{
		Platform:           "instagram",
		AuthorizeURL:       "https://api.instagram.com/oauth/authorize",
		TokenURL:           "https://api.instagram.com/oauth/access_token",
		ProfileURL:         "https://graph.instagram.com/me?fields=id,username,account_type",
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		ClientSecretInBody: true,
		DefaultScopes:      []string{"instagram_business_basic", "instagram_business_content_publish"},
		HTTPClient:         cfg.HTTPClient,
	})
}

// RegisterBuiltins wires every builtin platform the supplied credentials
// cover into the registry. Platforms without credentials are skipped.
func RegisterBuiltins(registry core.Registry, credentials map[string]ClientConfig) error {
	builders := map[string]func(ClientConfig) (*OAuth2Provider, error){
		"x":         NewXProvider,
		"linkedin":  NewLinkedInProvider,
		"facebook":  NewFacebookProvider,
		"instagram": NewInstagramProvider,
	}
	for platform, build := range builders {
		cfg, ok := credentials[platform]
		if !ok {
			continue
		}
		provider, err := build(cfg)
		if err != nil {
			return fmt.Errorf("providers: build %q provider: %w", platform, err)
		}
		if err := registry.Register(provider); err != nil {
			return fmt.Errorf("providers: register %q provider: %w", platform, err)
		}
	}
	return nil
}

// parseXProfile unwraps the {"data": {...}} envelope the X v2 user endpoint
// returns.
func parseXProfile(body []byte) (core.AccountProfile, error) {
	var decoded struct {
		Data struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return core.AccountProfile{}, err
	}
	return core.AccountProfile{
		AccountID:   decoded.Data.ID,
		DisplayName: decoded.Data.Name,
		Username:    decoded.Data.Username,
	}, nil
}

// parseLinkedInProfile reads the OpenID userinfo shape.
func parseLinkedInProfile(body []byte) (core.AccountProfile, error) {
	var decoded struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return core.AccountProfile{}, err
	}
	return core.AccountProfile{
		AccountID:   decoded.Sub,
		DisplayName: decoded.Name,
		Username:    decoded.Email,
	}, nil
}
