package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-broadcast/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CampaignStore persists campaigns with optimistic concurrency: updates match
// on the caller's version and bump it, so a stale writer gets a conflict
// instead of silently overwriting a concurrent transition.
type CampaignStore struct {
	db   *bun.DB
	repo repository.Repository[*campaignRecord]
}

func (s *CampaignStore) Create(ctx context.Context, campaign core.Campaign) (core.Campaign, error) {
	if s == nil || s.repo == nil {
		return core.Campaign{}, fmt.Errorf("sqlstore: campaign store is not configured")
	}
	if err := campaign.Validate(); err != nil {
		return core.Campaign{}, err
	}
	if strings.TrimSpace(campaign.ID) == "" {
		campaign.ID = uuid.NewString()
	}
	campaign.Version = 1
	now := time.Now().UTC()

	record, err := newCampaignRecord(campaign, now)
	if err != nil {
		return core.Campaign{}, err
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Campaign{}, err
	}
	return created.toDomain()
}

func (s *CampaignStore) Get(ctx context.Context, tenantID string, id string) (core.Campaign, error) {
	if s == nil || s.repo == nil {
		return core.Campaign{}, fmt.Errorf("sqlstore: campaign store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", strings.TrimSpace(id)),
		repository.SelectBy("tenant_id", "=", strings.TrimSpace(tenantID)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Campaign{}, err
	}
	if len(records) == 0 {
		return core.Campaign{}, core.ErrCampaignNotFound
	}
	return records[0].toDomain()
}

func (s *CampaignStore) Update(ctx context.Context, campaign core.Campaign) (core.Campaign, error) {
	if s == nil || s.db == nil {
		return core.Campaign{}, fmt.Errorf("sqlstore: campaign store is not configured")
	}
	if err := campaign.Validate(); err != nil {
		return core.Campaign{}, err
	}
	id := strings.TrimSpace(campaign.ID)
	if id == "" {
		return core.Campaign{}, fmt.Errorf("sqlstore: campaign id is required")
	}
	now := time.Now().UTC()

	record, err := newCampaignRecord(campaign, now)
	if err != nil {
		return core.Campaign{}, err
	}
	targets, err := json.Marshal(record.TargetPlatforms)
	if err != nil {
		return core.Campaign{}, fmt.Errorf("sqlstore: encode target platforms: %w", err)
	}
	performanceTargets, err := json.Marshal(record.PerformanceTargets)
	if err != nil {
		return core.Campaign{}, fmt.Errorf("sqlstore: encode performance targets: %w", err)
	}

	result, err := s.db.NewUpdate().
		Model((*campaignRecord)(nil)).
		Set("name = ?", record.Name).
		Set("description = ?", record.Description).
		Set("base_content = ?", record.BaseContent).
		Set("target_platforms = ?", string(targets)).
		Set("adapted_content = ?", string(record.AdaptedContent)).
		Set("strategy = ?", string(record.Strategy)).
		Set("performance_targets = ?", string(performanceTargets)).
		Set("scheduled_at = ?", record.ScheduledAt).
		Set("status = ?", record.Status).
		Set("version = version + 1").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("tenant_id = ?", record.TenantID).
		Where("version = ?", campaign.Version).
		Exec(ctx)
	if err != nil {
		return core.Campaign{}, err
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return core.Campaign{}, fmt.Errorf("sqlstore: campaign %q version conflict", id)
	}

	return s.Get(ctx, campaign.TenantID, id)
}

func (s *CampaignStore) ListByTenant(ctx context.Context, tenantID string) ([]core.Campaign, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: campaign store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("tenant_id", "=", strings.TrimSpace(tenantID)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Campaign, 0, len(records))
	for _, record := range records {
		campaign, convErr := record.toDomain()
		if convErr != nil {
			return nil, convErr
		}
		out = append(out, campaign)
	}
	return out, nil
}
