package broadcast

import (
	"github.com/goliatone/go-broadcast/core"
	"github.com/goliatone/go-broadcast/providers"
)

// PlatformClientConfig carries the OAuth client credentials for one builtin
// platform integration.
type PlatformClientConfig = providers.ClientConfig

func XProvider(cfg PlatformClientConfig) (core.AuthProvider, error) {
	return providers.NewXProvider(cfg)
}

func LinkedInProvider(cfg PlatformClientConfig) (core.AuthProvider, error) {
	return providers.NewLinkedInProvider(cfg)
}

func FacebookProvider(cfg PlatformClientConfig) (core.AuthProvider, error) {
	return providers.NewFacebookProvider(cfg)
}

func InstagramProvider(cfg PlatformClientConfig) (core.AuthProvider, error) {
	return providers.NewInstagramProvider(cfg)
}

// RegisterBuiltinProviders registers every builtin platform that has client
// credentials configured; platforms without credentials are skipped.
func RegisterBuiltinProviders(registry core.Registry, credentials map[string]PlatformClientConfig) error {
	return providers.RegisterBuiltins(registry, credentials)
}
