package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type PlatformRegistry struct {
	mu        sync.RWMutex
	providers map[string]AuthProvider
}

func NewPlatformRegistry() *PlatformRegistry {
	return &PlatformRegistry{providers: make(map[string]AuthProvider)}
}

func (r *PlatformRegistry) Register(provider AuthProvider) error {
	if provider == nil {
		return fmt.Errorf("core: provider is nil")
	}
	platform := strings.TrimSpace(provider.Platform())
	if platform == "" {
		return fmt.Errorf("core: provider platform is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[platform]; exists {
		return fmt.Errorf("core: platform already registered: %s", platform)
	}
	r.providers[platform] = provider
	return nil
}

func (r *PlatformRegistry) Get(platform string) (AuthProvider, bool) {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return nil, false
	}
	r.mu.RLock()
	provider, ok := r.providers[platform]
	r.mu.RUnlock()
	return provider, ok
}

func (r *PlatformRegistry) List() []AuthProvider {
	r.mu.RLock()
	keys := make([]string, 0, len(r.providers))
	for platform := range r.providers {
		keys = append(keys, platform)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	providers := make([]AuthProvider, 0, len(keys))
	r.mu.RLock()
	for _, platform := range keys {
		providers = append(providers, r.providers[platform])
	}
	r.mu.RUnlock()
	return providers
}
