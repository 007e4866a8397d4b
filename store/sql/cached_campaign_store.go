package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-broadcast/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const campaignCacheKeyPrefix = "go-broadcast::campaign::v1"

// CachedCampaignStore layers a read-through cache over campaign lookups.
// Executors poll campaign status between coordination steps, so the hot read
// path is Get; writes invalidate the cached row.
type CachedCampaignStore struct {
	base  core.CampaignStore
	cache repositorycache.CacheService
}

func NewCachedCampaignStore(base core.CampaignStore, cacheService repositorycache.CacheService) (*CachedCampaignStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base campaign store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: campaign cache service is required")
	}
	return &CachedCampaignStore{base: base, cache: cacheService}, nil
}

// CampaignCacheKey returns the deterministic cache key contract for campaign
// reads: go-broadcast::campaign::v1::<tenant_id>::<campaign_id> with each
// segment URL-path escaped.
func CampaignCacheKey(tenantID string, campaignID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	campaignID = strings.TrimSpace(campaignID)
	if tenantID == "" || campaignID == "" {
		return "", fmt.Errorf("sqlstore: tenant id and campaign id are required")
	}
	segments := []string{url.PathEscape(tenantID), url.PathEscape(campaignID)}
	return strings.Join(append([]string{campaignCacheKeyPrefix}, segments...), "::"), nil
}

func (s *CachedCampaignStore) Create(ctx context.Context, campaign core.Campaign) (core.Campaign, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Campaign{}, fmt.Errorf("sqlstore: cached campaign store is not configured")
	}
	created, err := s.base.Create(ctx, campaign)
	if err != nil {
		return core.Campaign{}, err
	}
	if err := s.invalidate(ctx, created.TenantID, created.ID); err != nil {
		return core.Campaign{}, err
	}
	return created, nil
}

func (s *CachedCampaignStore) Get(ctx context.Context, tenantID string, id string) (core.Campaign, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Campaign{}, fmt.Errorf("sqlstore: cached campaign store is not configured")
	}
	cacheKey, err := CampaignCacheKey(tenantID, id)
	if err != nil {
		return core.Campaign{}, err
	}
	campaign, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Campaign, error) {
		return s.base.Get(ctx, tenantID, id)
	})
	if err != nil {
		return core.Campaign{}, err
	}
	return campaign, nil
}

func (s *CachedCampaignStore) Update(ctx context.Context, campaign core.Campaign) (core.Campaign, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Campaign{}, fmt.Errorf("sqlstore: cached campaign store is not configured")
	}
	updated, err := s.base.Update(ctx, campaign)
	if err != nil {
		return core.Campaign{}, err
	}
	if err := s.invalidate(ctx, updated.TenantID, updated.ID); err != nil {
		return core.Campaign{}, err
	}
	return updated, nil
}

func (s *CachedCampaignStore) ListByTenant(ctx context.Context, tenantID string) ([]core.Campaign, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached campaign store is not configured")
	}
	return s.base.ListByTenant(ctx, tenantID)
}

func (s *CachedCampaignStore) invalidate(ctx context.Context, tenantID string, campaignID string) error {
	cacheKey, err := CampaignCacheKey(tenantID, campaignID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.CampaignStore = (*CachedCampaignStore)(nil)
