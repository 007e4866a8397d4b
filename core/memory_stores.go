package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTokenStore keeps versioned tenant tokens in process. It mirrors the
// SQL store semantics: SaveNewVersion rotates the previous active row.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string][]TenantToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: map[string][]TenantToken{}}
}

func memoryTokenKey(platform string, accountID string) string {
	return strings.TrimSpace(platform) + "::" + strings.TrimSpace(accountID)
}

func (s *MemoryTokenStore) SaveNewVersion(_ context.Context, in SaveTokenInput) (TenantToken, error) {
	if s == nil {
		return TenantToken{}, fmt.Errorf("core: token store is not configured")
	}
	if strings.TrimSpace(in.AccountID) == "" {
		return TenantToken{}, fmt.Errorf("core: account id is required")
	}
	if strings.TrimSpace(in.Platform) == "" {
		return TenantToken{}, fmt.Errorf("core: platform is required")
	}

	now := time.Now().UTC()
	key := memoryTokenKey(in.Platform, in.AccountID)

	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.tokens[key]
	nextVersion := 1
	for i := range versions {
		if versions[i].Version >= nextVersion {
			nextVersion = versions[i].Version + 1
		}
		if versions[i].Status == TokenStatusActive {
			versions[i].Status = TokenStatusRotated
			versions[i].StatusReason = "rotated"
			versions[i].UpdatedAt = now
		}
	}

	token := TenantToken{
		ID:               uuid.NewString(),
		TenantID:         strings.TrimSpace(in.TenantID),
		UserID:           strings.TrimSpace(in.UserID),
		Platform:         strings.TrimSpace(in.Platform),
		AccountID:        strings.TrimSpace(in.AccountID),
		DisplayName:      strings.TrimSpace(in.DisplayName),
		Username:         strings.TrimSpace(in.Username),
		AccountType:      strings.TrimSpace(in.AccountType),
		EncryptedPayload: append([]byte(nil), in.EncryptedPayload...),
		PayloadFormat:    strings.TrimSpace(in.PayloadFormat),
		PayloadVersion:   in.PayloadVersion,
		TokenType:        strings.TrimSpace(in.TokenType),
		Scopes:           cloneStrings(in.Scopes),
		ExpiresAt:        cloneTimePointer(in.ExpiresAt),
		Status:           TokenStatusActive,
		Version:          nextVersion,
		LastRefreshedAt:  cloneTimePointer(in.LastRefreshedAt),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.tokens[key] = append(versions, cloneTenantToken(token))
	return token, nil
}

func (s *MemoryTokenStore) GetActiveByAccount(_ context.Context, platform string, accountID string) (TenantToken, error) {
	if s == nil {
		return TenantToken{}, fmt.Errorf("core: token store is not configured")
	}
	key := memoryTokenKey(platform, accountID)

	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.tokens[key]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Status == TokenStatusActive {
			return cloneTenantToken(versions[i]), nil
		}
	}
	return TenantToken{}, fmt.Errorf("%w: %s/%s", ErrTokenNotFound, platform, accountID)
}

func (s *MemoryTokenStore) GetActiveByTenantPlatform(_ context.Context, tenantID string, platform string) (TenantToken, error) {
	if s == nil {
		return TenantToken{}, fmt.Errorf("core: token store is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	platform = strings.TrimSpace(platform)

	s.mu.Lock()
	defer s.mu.Unlock()

	var found *TenantToken
	for _, versions := range s.tokens {
		for i := len(versions) - 1; i >= 0; i-- {
			token := versions[i]
			if token.Status != TokenStatusActive {
				continue
			}
			if token.TenantID != tenantID || token.Platform != platform {
				continue
			}
			if found == nil || token.UpdatedAt.After(found.UpdatedAt) {
				cloned := cloneTenantToken(token)
				found = &cloned
			}
		}
	}
	if found == nil {
		return TenantToken{}, fmt.Errorf("%w: tenant %s has no active %s connection", ErrTokenNotFound, tenantID, platform)
	}
	return *found, nil
}

func (s *MemoryTokenStore) ListByTenant(_ context.Context, tenantID string) ([]TenantToken, error) {
	if s == nil {
		return nil, fmt.Errorf("core: token store is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []TenantToken{}
	for _, versions := range s.tokens {
		for i := len(versions) - 1; i >= 0; i-- {
			token := versions[i]
			if token.Status != TokenStatusActive || token.TenantID != tenantID {
				continue
			}
			out = append(out, cloneTenantToken(token))
			break
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out, nil
}

func (s *MemoryTokenStore) MarkInactive(_ context.Context, platform string, accountID string, status TokenStatus, reason string) error {
	if s == nil {
		return fmt.Errorf("core: token store is not configured")
	}
	if status == TokenStatusActive {
		return fmt.Errorf("core: cannot mark token active through MarkInactive")
	}
	key := memoryTokenKey(platform, accountID)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.tokens[key]
	marked := false
	for i := range versions {
		if versions[i].Status == TokenStatusActive {
			versions[i].Status = status
			versions[i].StatusReason = strings.TrimSpace(reason)
			versions[i].UpdatedAt = now
			marked = true
		}
	}
	if !marked {
		return fmt.Errorf("%w: %s/%s", ErrTokenNotFound, platform, accountID)
	}
	return nil
}

// MemoryCampaignStore is the in-process campaign store with the same
// optimistic version check the SQL store applies on update.
type MemoryCampaignStore struct {
	mu        sync.Mutex
	campaigns map[string]Campaign
}

func NewMemoryCampaignStore() *MemoryCampaignStore {
	return &MemoryCampaignStore{campaigns: map[string]Campaign{}}
}

func (s *MemoryCampaignStore) Create(_ context.Context, campaign Campaign) (Campaign, error) {
	if s == nil {
		return Campaign{}, fmt.Errorf("core: campaign store is not configured")
	}
	if err := campaign.Validate(); err != nil {
		return Campaign{}, err
	}

	now := time.Now().UTC()
	if strings.TrimSpace(campaign.ID) == "" {
		campaign.ID = uuid.NewString()
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = now
	campaign.Version = 1

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.campaigns[campaign.ID]; exists {
		return Campaign{}, fmt.Errorf("core: campaign already exists: %s", campaign.ID)
	}
	s.campaigns[campaign.ID] = cloneCampaign(campaign)
	return cloneCampaign(campaign), nil
}

func (s *MemoryCampaignStore) Get(_ context.Context, tenantID string, id string) (Campaign, error) {
	if s == nil {
		return Campaign{}, fmt.Errorf("core: campaign store is not configured")
	}
	id = strings.TrimSpace(id)

	s.mu.Lock()
	campaign, ok := s.campaigns[id]
	s.mu.Unlock()

	if !ok || (strings.TrimSpace(tenantID) != "" && campaign.TenantID != strings.TrimSpace(tenantID)) {
		return Campaign{}, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	return cloneCampaign(campaign), nil
}

func (s *MemoryCampaignStore) Update(_ context.Context, campaign Campaign) (Campaign, error) {
	if s == nil {
		return Campaign{}, fmt.Errorf("core: campaign store is not configured")
	}
	id := strings.TrimSpace(campaign.ID)
	if id == "" {
		return Campaign{}, fmt.Errorf("core: campaign id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.campaigns[id]
	if !ok {
		return Campaign{}, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	if campaign.Version != existing.Version {
		return Campaign{}, fmt.Errorf("core: campaign version mismatch for %s: have %d, want %d", id, campaign.Version, existing.Version)
	}

	campaign.Version = existing.Version + 1
	campaign.CreatedAt = existing.CreatedAt
	campaign.UpdatedAt = time.Now().UTC()
	s.campaigns[id] = cloneCampaign(campaign)
	return cloneCampaign(campaign), nil
}

func (s *MemoryCampaignStore) ListByTenant(_ context.Context, tenantID string) ([]Campaign, error) {
	if s == nil {
		return nil, fmt.Errorf("core: campaign store is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Campaign{}
	for _, campaign := range s.campaigns {
		if campaign.TenantID == tenantID {
			out = append(out, cloneCampaign(campaign))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type MemoryCoordinationEventSink struct {
	mu     sync.Mutex
	events []CoordinationEvent
}

func NewMemoryCoordinationEventSink() *MemoryCoordinationEventSink {
	return &MemoryCoordinationEventSink{}
}

func (s *MemoryCoordinationEventSink) Record(_ context.Context, event CoordinationEvent) error {
	if s == nil {
		return fmt.Errorf("core: coordination event sink is not configured")
	}
	if strings.TrimSpace(event.ID) == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.events = append(s.events, cloneCoordinationEvent(event))
	s.mu.Unlock()
	return nil
}

func (s *MemoryCoordinationEventSink) List(_ context.Context, filter ListCoordinationEventsFilter) ([]CoordinationEvent, error) {
	if s == nil {
		return nil, fmt.Errorf("core: coordination event sink is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []CoordinationEvent{}
	for _, event := range s.events {
		if filter.CampaignID != "" && event.CampaignID != filter.CampaignID {
			continue
		}
		if filter.Platform != "" && event.Platform != filter.Platform {
			continue
		}
		out = append(out, cloneCoordinationEvent(event))
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}
