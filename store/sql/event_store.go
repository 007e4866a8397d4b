package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-broadcast/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// CoordinationEventStore is the append-only execution audit trail.
type CoordinationEventStore struct {
	repo repository.Repository[*coordinationEventRecord]
}

func NewCoordinationEventStore(db *bun.DB) (*CoordinationEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*coordinationEventRecord](db, coordinationEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid coordination event repository wiring: %w", err)
		}
	}
	return &CoordinationEventStore{repo: repo}, nil
}

func (s *CoordinationEventStore) Record(ctx context.Context, event core.CoordinationEvent) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: coordination event store is not configured")
	}
	if strings.TrimSpace(event.CampaignID) == "" {
		return fmt.Errorf("sqlstore: campaign id is required")
	}
	if strings.TrimSpace(event.EventType) == "" {
		return fmt.Errorf("sqlstore: event type is required")
	}
	_, err := s.repo.Create(ctx, newCoordinationEventRecord(event, time.Now().UTC()))
	return err
}

func (s *CoordinationEventStore) List(ctx context.Context, filter core.ListCoordinationEventsFilter) ([]core.CoordinationEvent, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: coordination event store is not configured")
	}

	criteria := []repository.SelectCriteria{
		repository.OrderBy("occurred_at ASC"),
		repository.OrderBy("created_at ASC"),
	}
	if campaignID := strings.TrimSpace(filter.CampaignID); campaignID != "" {
		criteria = append(criteria, repository.SelectBy("campaign_id", "=", campaignID))
	}
	if platform := strings.TrimSpace(filter.Platform); platform != "" {
		criteria = append(criteria, repository.SelectBy("platform", "=", platform))
	}
	if filter.Limit > 0 {
		criteria = append(criteria, repository.SelectPaginate(filter.Limit, 0))
	}

	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	out := make([]core.CoordinationEvent, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var _ core.CoordinationEventSink = (*CoordinationEventStore)(nil)
