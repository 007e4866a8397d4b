package broadcast

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-broadcast/adapt"
	"github.com/goliatone/go-broadcast/core"
	"github.com/goliatone/go-broadcast/dispatch"
)

// Coordinator is the campaign lifecycle surface: it builds campaigns through
// the adaptation engine, persists them, and hands executable campaigns to the
// dispatch executor. The credential service supplies platform tokens.
type Coordinator struct {
	credentials *core.Service
	engine      *adapt.Engine
	executor    *dispatch.Executor
	campaigns   core.CampaignStore
	events      core.CoordinationEventSink
	logger      core.Logger
	now         func() time.Time
}

type CoordinatorOption func(*Coordinator)

func WithCoordinatorEngine(engine *adapt.Engine) CoordinatorOption {
	return func(c *Coordinator) { c.engine = engine }
}

func WithCoordinatorExecutor(executor *dispatch.Executor) CoordinatorOption {
	return func(c *Coordinator) { c.executor = executor }
}

func WithCoordinatorCampaignStore(store core.CampaignStore) CoordinatorOption {
	return func(c *Coordinator) { c.campaigns = store }
}

func WithCoordinatorEventSink(sink core.CoordinationEventSink) CoordinatorOption {
	return func(c *Coordinator) { c.events = sink }
}

func WithCoordinatorLogger(logger core.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logger }
}

func WithCoordinatorClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator wires a coordinator off the credential service's
// dependencies. Stores and the executor default to what the service carries;
// pass options to override any of them.
func NewCoordinator(credentials *core.Service, opts ...CoordinatorOption) (*Coordinator, error) {
	if credentials == nil {
		return nil, fmt.Errorf("broadcast: credential service is required")
	}

	coordinator := &Coordinator{
		credentials: credentials,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(coordinator)
	}

	deps := credentials.Dependencies()
	if coordinator.campaigns == nil {
		coordinator.campaigns = deps.CampaignStore
	}
	if coordinator.campaigns == nil {
		coordinator.campaigns = core.NewMemoryCampaignStore()
	}
	if coordinator.events == nil {
		coordinator.events = deps.EventSink
	}
	if coordinator.logger == nil {
		coordinator.logger = deps.Logger
	}
	coordinator.logger = glog.Ensure(coordinator.logger)

	if coordinator.engine == nil {
		coordinator.engine = adapt.NewEngine(
			adapt.WithRegistry(deps.Registry),
			adapt.WithLogger(coordinator.logger),
		)
	}
	if coordinator.executor == nil {
		executor, err := dispatch.NewExecutor(
			dispatch.WithRegistry(deps.Registry),
			dispatch.WithTokenSource(credentials),
			dispatch.WithCampaignStore(coordinator.campaigns),
			dispatch.WithEventSink(coordinator.events),
			dispatch.WithLogger(coordinator.logger),
			dispatch.WithMetricsRecorder(deps.MetricsRecorder),
		)
		if err != nil {
			return nil, err
		}
		coordinator.executor = executor
	}

	return coordinator, nil
}

func (c *Coordinator) Credentials() *core.Service {
	if c == nil {
		return nil
	}
	return c.credentials
}

// CreateCampaign adapts the base content for every target platform and
// persists the resulting draft.
func (c *Coordinator) CreateCampaign(ctx context.Context, req adapt.BuildCampaignRequest) (core.Campaign, error) {
	if c == nil {
		return core.Campaign{}, fmt.Errorf("broadcast: coordinator is nil")
	}
	campaign, err := c.engine.BuildCampaign(ctx, req)
	if err != nil {
		return core.Campaign{}, err
	}
	created, err := c.campaigns.Create(ctx, campaign)
	if err != nil {
		return core.Campaign{}, err
	}
	c.logger.Info("campaign created",
		"campaign_id", created.ID,
		"tenant_id", created.TenantID,
		"strategy", string(created.Strategy.Kind),
		"targets", len(created.TargetPlatforms))
	return created, nil
}

func (c *Coordinator) GetCampaign(ctx context.Context, tenantID string, campaignID string) (core.Campaign, error) {
	if c == nil {
		return core.Campaign{}, fmt.Errorf("broadcast: coordinator is nil")
	}
	return c.loadCampaign(ctx, tenantID, campaignID)
}

func (c *Coordinator) ListCampaigns(ctx context.Context, tenantID string) ([]core.Campaign, error) {
	if c == nil {
		return nil, fmt.Errorf("broadcast: coordinator is nil")
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, badCampaignInput("tenant id is required")
	}
	return c.campaigns.ListByTenant(ctx, tenantID)
}

// UpdateCampaignContent replaces the base content and regenerates every
// adapted variant. Terminal campaigns reject the edit.
func (c *Coordinator) UpdateCampaignContent(ctx context.Context, tenantID string, campaignID string, content string) (core.Campaign, error) {
	if c == nil {
		return core.Campaign{}, fmt.Errorf("broadcast: coordinator is nil")
	}
	campaign, err := c.loadCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return core.Campaign{}, err
	}
	readapted, err := c.engine.Readapt(ctx, campaign, content)
	if err != nil {
		return core.Campaign{}, err
	}
	updated, err := c.campaigns.Update(ctx, readapted)
	if err != nil {
		return core.Campaign{}, err
	}
	c.logger.Info("campaign content updated",
		"campaign_id", updated.ID, "tenant_id", updated.TenantID)
	return updated, nil
}

func (c *Coordinator) ScheduleCampaign(ctx context.Context, tenantID string, campaignID string, at time.Time) (core.Campaign, error) {
	if c == nil {
		return core.Campaign{}, fmt.Errorf("broadcast: coordinator is nil")
	}
	if at.IsZero() {
		return core.Campaign{}, badCampaignInput("scheduled time is required")
	}
	campaign, err := c.loadCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return core.Campaign{}, err
	}
	if err := campaign.TransitionTo(core.CampaignStatusScheduled, c.now().UTC()); err != nil {
		return core.Campaign{}, goerrors.Wrap(err, goerrors.CategoryConflict, "campaign cannot be scheduled").
			WithTextCode(core.BroadcastErrorInvalidCampaignStatus).
			WithMetadata(map[string]any{"campaign_id": campaign.ID})
	}
	scheduledAt := at.UTC()
	campaign.ScheduledAt = &scheduledAt
	return c.campaigns.Update(ctx, campaign)
}

// ExecuteCampaign runs a draft or scheduled campaign through the dispatch
// executor, which owns the status transitions from in_progress onward.
func (c *Coordinator) ExecuteCampaign(ctx context.Context, tenantID string, campaignID string) (dispatch.ExecutionResult, error) {
	if c == nil {
		return dispatch.ExecutionResult{}, fmt.Errorf("broadcast: coordinator is nil")
	}
	campaign, err := c.loadCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return dispatch.ExecutionResult{}, err
	}
	return c.executor.Execute(ctx, campaign)
}

// CancelCampaign moves a non-terminal campaign to cancelled. Cancelling an
// already cancelled campaign is a no-op; completed and failed campaigns
// reject the transition.
func (c *Coordinator) CancelCampaign(ctx context.Context, tenantID string, campaignID string, reason string) (core.Campaign, error) {
	if c == nil {
		return core.Campaign{}, fmt.Errorf("broadcast: coordinator is nil")
	}
	campaign, err := c.loadCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return core.Campaign{}, err
	}
	if campaign.Status == core.CampaignStatusCancelled {
		return campaign, nil
	}
	if err := campaign.TransitionTo(core.CampaignStatusCancelled, c.now().UTC()); err != nil {
		return core.Campaign{}, goerrors.Wrap(err, goerrors.CategoryConflict, "campaign cannot be cancelled").
			WithTextCode(core.BroadcastErrorInvalidCampaignStatus).
			WithMetadata(map[string]any{"campaign_id": campaign.ID})
	}
	updated, err := c.campaigns.Update(ctx, campaign)
	if err != nil {
		return core.Campaign{}, err
	}
	c.logger.Info("campaign cancelled",
		"campaign_id", updated.ID, "tenant_id", updated.TenantID, "reason", reason)
	return updated, nil
}

func (c *Coordinator) ListCoordinationEvents(ctx context.Context, filter core.ListCoordinationEventsFilter) ([]core.CoordinationEvent, error) {
	if c == nil {
		return nil, fmt.Errorf("broadcast: coordinator is nil")
	}
	if c.events == nil {
		return nil, goerrors.New("coordination event sink is not configured", goerrors.CategoryInternal).
			WithTextCode(core.BroadcastErrorInternal)
	}
	return c.events.List(ctx, filter)
}

func (c *Coordinator) loadCampaign(ctx context.Context, tenantID string, campaignID string) (core.Campaign, error) {
	if strings.TrimSpace(tenantID) == "" {
		return core.Campaign{}, badCampaignInput("tenant id is required")
	}
	if strings.TrimSpace(campaignID) == "" {
		return core.Campaign{}, badCampaignInput("campaign id is required")
	}
	return c.campaigns.Get(ctx, tenantID, campaignID)
}

func badCampaignInput(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode(core.BroadcastErrorBadInput)
}
