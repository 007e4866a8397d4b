package broadcast

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-broadcast/adapt"
	"github.com/goliatone/go-broadcast/core"
)

// ProviderPack bundles auth providers a downstream composition registers as
// a unit, typically one pack per vendor family.
type ProviderPack struct {
	Name      string
	Providers []core.AuthProvider
}

// OptimizationPack bundles named text optimizations a downstream composition
// contributes to the adaptation engine.
type OptimizationPack struct {
	Name          string
	Optimizations map[string]adapt.Optimization
}

type CommandQueryBundleFactory func(facade *Facade) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	providerPacks     map[string]ProviderPack
	optimizationPacks map[string]OptimizationPack
	bundles           map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		providerPacks:     map[string]ProviderPack{},
		optimizationPacks: map[string]OptimizationPack{},
		bundles:           map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterProviderPack(pack ProviderPack) error {
	if h == nil {
		return fmt.Errorf("broadcast: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("broadcast: provider pack name is required")
	}
	if len(pack.Providers) == 0 {
		return fmt.Errorf("broadcast: provider pack %q has no providers", name)
	}

	normalized := ProviderPack{
		Name:      name,
		Providers: append([]core.AuthProvider(nil), pack.Providers...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.providerPacks[name]; exists {
		return fmt.Errorf("broadcast: provider pack %q already registered", name)
	}
	h.providerPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterOptimizationPack(pack OptimizationPack) error {
	if h == nil {
		return fmt.Errorf("broadcast: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("broadcast: optimization pack name is required")
	}
	if len(pack.Optimizations) == 0 {
		return fmt.Errorf("broadcast: optimization pack %q has no optimizations", name)
	}
	for optName, fn := range pack.Optimizations {
		if strings.TrimSpace(optName) == "" {
			return fmt.Errorf("broadcast: optimization pack %q has an unnamed optimization", name)
		}
		if fn == nil {
			return fmt.Errorf("broadcast: optimization pack %q optimization %q is nil", name, optName)
		}
	}

	normalized := OptimizationPack{
		Name:          name,
		Optimizations: make(map[string]adapt.Optimization, len(pack.Optimizations)),
	}
	for optName, fn := range pack.Optimizations {
		normalized.Optimizations[optName] = fn
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.optimizationPacks[name]; exists {
		return fmt.Errorf("broadcast: optimization pack %q already registered", name)
	}
	h.optimizationPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("broadcast: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("broadcast: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("broadcast: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("broadcast: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

func (h *ExtensionHooks) ApplyProviderPacks(registry core.Registry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("broadcast: registry is required")
	}

	for _, pack := range h.ProviderPacks() {
		for _, provider := range pack.Providers {
			if provider == nil {
				return fmt.Errorf("broadcast: provider pack %q contains nil provider", pack.Name)
			}
			if err := registry.Register(provider); err != nil {
				return err
			}
		}
	}
	return nil
}

// Optimizations merges every registered pack over the engine defaults, packs
// applied in name order so later names win on collision.
func (h *ExtensionHooks) Optimizations() map[string]adapt.Optimization {
	merged := adapt.DefaultOptimizations()
	if h == nil {
		return merged
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.optimizationPacks))
	for name := range h.optimizationPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for optName, fn := range h.optimizationPacks[name].Optimizations {
			merged[optName] = fn
		}
	}
	return merged
}

func (h *ExtensionHooks) BuildCommandQueryBundles(facade *Facade) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if facade == nil {
		return nil, fmt.Errorf("broadcast: facade is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](facade)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) ProviderPacks() []ProviderPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.providerPacks))
	for name := range h.providerPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ProviderPack, 0, len(names))
	for _, name := range names {
		pack := h.providerPacks[name]
		out = append(out, ProviderPack{
			Name:      pack.Name,
			Providers: append([]core.AuthProvider(nil), pack.Providers...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
