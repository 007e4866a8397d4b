package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-broadcast/core"
)

// TokenSource resolves a tenant's valid credential for a platform ahead of
// every dispatch. *core.Service satisfies it.
type TokenSource interface {
	GetValidPlatformToken(ctx context.Context, tenantID string, platform string) (core.ActiveToken, error)
}

// PublishGate is consulted around every platform publish. BeforeDispatch may
// veto the call, typically because the platform's publish budget for the
// tenant is exhausted; AfterDispatch observes the call so the gate can learn
// the budget from the response.
type PublishGate interface {
	BeforeDispatch(ctx context.Context, tenantID string, platform string) error
	AfterDispatch(ctx context.Context, tenantID string, platform string, result core.PublishResult, callErr error)
}

// Executor drives campaign execution. It is platform-agnostic: publishing,
// content analysis and post metrics are discovered per platform through the
// registry's capability interfaces.
type Executor struct {
	registry  core.Registry
	tokens    TokenSource
	campaigns core.CampaignStore
	events    core.CoordinationEventSink
	gate      PublishGate
	clock     Clock
	logger    core.Logger
	metrics   core.MetricsRecorder
}

type Option func(*Executor)

func WithRegistry(registry core.Registry) Option {
	return func(x *Executor) { x.registry = registry }
}

func WithTokenSource(tokens TokenSource) Option {
	return func(x *Executor) { x.tokens = tokens }
}

func WithCampaignStore(store core.CampaignStore) Option {
	return func(x *Executor) { x.campaigns = store }
}

func WithEventSink(sink core.CoordinationEventSink) Option {
	return func(x *Executor) { x.events = sink }
}

func WithPublishGate(gate PublishGate) Option {
	return func(x *Executor) { x.gate = gate }
}

func WithClock(clock Clock) Option {
	return func(x *Executor) { x.clock = clock }
}

func WithLogger(logger core.Logger) Option {
	return func(x *Executor) { x.logger = logger }
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(x *Executor) { x.metrics = recorder }
}

func NewExecutor(opts ...Option) (*Executor, error) {
	executor := &Executor{
		clock:   SystemClock{},
		metrics: core.NopMetricsRecorder{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(executor)
	}
	executor.logger = glog.Ensure(executor.logger)

	if executor.registry == nil {
		return nil, fmt.Errorf("dispatch: platform registry is required")
	}
	if executor.tokens == nil {
		return nil, fmt.Errorf("dispatch: token source is required")
	}
	return executor, nil
}

// TargetOutcome is the per-platform result of one dispatch attempt.
type TargetOutcome struct {
	Platform           string
	Success            bool
	PostID             string
	URL                string
	AdaptationsApplied []string
	Metrics            *core.PostMetrics
	AttemptedAt        time.Time
	Err                error
}

type ExecutionResult struct {
	CampaignID       string
	Status           core.CampaignStatus
	Success          bool
	Outcomes         map[string]TargetOutcome
	Errors           []error
	Warnings         []string
	TotalReach       int64
	TotalEngagement  int64
	PerformanceScore float64
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Execute runs a draft or scheduled campaign to completion. Per-target
// failures land in the result's error list without failing the call;
// orchestration-level failures return an error and leave the campaign
// failed. The returned result is always populated.
func (x *Executor) Execute(ctx context.Context, campaign core.Campaign) (ExecutionResult, error) {
	startedAt := x.clock.Now()
	result := ExecutionResult{
		CampaignID: campaign.ID,
		StartedAt:  startedAt,
		Outcomes:   map[string]TargetOutcome{},
	}

	if x == nil {
		return result, fmt.Errorf("dispatch: executor is nil")
	}
	if !campaign.Status.Executable() {
		wrapped := goerrors.New(
			fmt.Sprintf("campaign status %q does not allow execution", campaign.Status),
			goerrors.CategoryConflict,
		).WithTextCode(core.BroadcastErrorInvalidCampaignStatus).
			WithMetadata(map[string]any{"campaign_id": campaign.ID})
		result.Status = campaign.Status
		return result, wrapped
	}

	if err := campaign.TransitionTo(core.CampaignStatusInProgress, startedAt); err != nil {
		result.Status = campaign.Status
		return result, goerrors.Wrap(err, goerrors.CategoryConflict, "campaign cannot enter execution").
			WithTextCode(core.BroadcastErrorInvalidCampaignStatus)
	}
	campaign, persistErr := x.persistCampaign(ctx, campaign)
	if persistErr != nil {
		result.Status = campaign.Status
		return result, persistErr
	}

	run := newCampaignRun(campaign)
	var strategyErr error
	switch campaign.Strategy.Kind {
	case core.StrategySimultaneous:
		x.runSimultaneous(ctx, run)
	case core.StrategyStaggered:
		x.runStaggered(ctx, run)
	case core.StrategySequential:
		strategyErr = x.runSequential(ctx, run)
	case core.StrategyConditional:
		strategyErr = goerrors.New(
			"conditional coordination strategy is not implemented",
			goerrors.CategoryOperation,
		).WithTextCode(core.BroadcastErrorStrategyNotImplemented).
			WithMetadata(map[string]any{"campaign_id": campaign.ID})
	default:
		strategyErr = goerrors.New(
			fmt.Sprintf("unknown coordination strategy %q", campaign.Strategy.Kind),
			goerrors.CategoryBadInput,
		).WithTextCode(core.BroadcastErrorBadInput)
	}

	finishedAt := x.clock.Now()
	result.FinishedAt = finishedAt
	result.Outcomes = run.snapshotOutcomes()
	result.Errors = run.snapshotErrors()
	result.Warnings = run.snapshotWarnings()
	x.rollupPerformance(&result, len(campaign.TargetPlatforms))

	if strategyErr != nil {
		_ = campaign.TransitionTo(core.CampaignStatusFailed, finishedAt)
		campaign, _ = x.persistCampaign(ctx, campaign)
		result.Status = campaign.Status
		x.recordFinish(ctx, campaign, result, strategyErr)
		return result, strategyErr
	}

	successes := 0
	for _, outcome := range result.Outcomes {
		if outcome.Success {
			successes++
		}
	}
	if run.isCancelled() {
		// An operator may have cancelled the stored row already; prefer that
		// copy over writing a conflicting version.
		if x.campaigns != nil {
			if stored, getErr := x.campaigns.Get(ctx, campaign.TenantID, campaign.ID); getErr == nil {
				campaign = stored
			}
		}
		if campaign.Status != core.CampaignStatusCancelled {
			_ = campaign.TransitionTo(core.CampaignStatusCancelled, finishedAt)
			campaign, persistErr = x.persistCampaign(ctx, campaign)
			if persistErr != nil {
				result.Status = campaign.Status
				return result, persistErr
			}
		}
	} else {
		if successes > 0 {
			_ = campaign.TransitionTo(core.CampaignStatusCompleted, finishedAt)
		} else {
			_ = campaign.TransitionTo(core.CampaignStatusFailed, finishedAt)
		}
		campaign, persistErr = x.persistCampaign(ctx, campaign)
		if persistErr != nil {
			result.Status = campaign.Status
			return result, persistErr
		}
	}

	result.Status = campaign.Status
	result.Success = !run.isCancelled() && len(result.Errors) == 0
	x.recordFinish(ctx, campaign, result, nil)

	x.logger.Info("campaign execution finished",
		"campaign_id", campaign.ID,
		"status", string(result.Status),
		"success", result.Success,
		"targets", len(campaign.TargetPlatforms),
		"errors", len(result.Errors))
	x.metrics.IncCounter(ctx, "broadcast.execute_campaign.total", 1, map[string]string{
		"status": string(result.Status),
	})
	x.metrics.ObserveHistogram(ctx, "broadcast.execute_campaign.duration_ms",
		float64(finishedAt.Sub(startedAt).Milliseconds()), nil)

	return result, nil
}

func (x *Executor) persistCampaign(ctx context.Context, campaign core.Campaign) (core.Campaign, error) {
	if x.campaigns == nil {
		return campaign, nil
	}
	updated, err := x.campaigns.Update(ctx, campaign)
	if err != nil {
		return campaign, goerrors.Wrap(err, goerrors.CategoryOperation, "persist campaign state").
			WithTextCode(core.BroadcastErrorInternal).
			WithMetadata(map[string]any{"campaign_id": campaign.ID})
	}
	return updated, nil
}

// campaignCancelled re-reads the stored campaign so a cancellation issued
// while a staggered or sequential run is in flight stops further dispatches.
func (x *Executor) campaignCancelled(ctx context.Context, campaign core.Campaign) bool {
	if x.campaigns == nil {
		return false
	}
	stored, err := x.campaigns.Get(ctx, campaign.TenantID, campaign.ID)
	if err != nil {
		return false
	}
	return stored.Status == core.CampaignStatusCancelled
}

func (x *Executor) rollupPerformance(result *ExecutionResult, targetCount int) {
	successes := 0
	for _, outcome := range result.Outcomes {
		if outcome.Success {
			successes++
		}
		if outcome.Metrics != nil {
			result.TotalReach += outcome.Metrics.Views
			result.TotalEngagement += outcome.Metrics.Likes + outcome.Metrics.Shares + outcome.Metrics.Comments
		}
	}
	if targetCount > 0 {
		result.PerformanceScore = float64(successes) / float64(targetCount)
	}
}

func (x *Executor) recordEvent(ctx context.Context, event core.CoordinationEvent) {
	if x.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = x.clock.Now()
	}
	if err := x.events.Record(ctx, event); err != nil {
		x.logger.Debug("coordination event not recorded",
			"campaign_id", event.CampaignID, "event_type", event.EventType, "error", err.Error())
	}
}

func (x *Executor) recordFinish(ctx context.Context, campaign core.Campaign, result ExecutionResult, orchestrationErr error) {
	detail := ""
	if orchestrationErr != nil {
		detail = orchestrationErr.Error()
	}
	x.recordEvent(ctx, core.CoordinationEvent{
		CampaignID: campaign.ID,
		TenantID:   campaign.TenantID,
		EventType:  core.CoordinationEventCampaignFinished,
		Status:     string(result.Status),
		Detail:     detail,
		Metadata: map[string]any{
			"success":           result.Success,
			"performance_score": result.PerformanceScore,
			"total_reach":       result.TotalReach,
			"total_engagement":  result.TotalEngagement,
		},
	})
}

// executeOnPlatform is the per-target dispatch primitive: resolve a valid
// token, resolve the adapted variant, publish, and collect post metrics when
// the platform exposes them. Every failure is scoped to this target.
func (x *Executor) executeOnPlatform(ctx context.Context, campaign core.Campaign, platform string) TargetOutcome {
	outcome := TargetOutcome{
		Platform:    platform,
		AttemptedAt: x.clock.Now(),
	}

	adapted, ok := campaign.AdaptedContent[platform]
	if !ok {
		outcome.Err = goerrors.New(
			fmt.Sprintf("campaign has no adapted content for platform %q", platform),
			goerrors.CategoryConflict,
		).WithTextCode(core.BroadcastErrorContentNotAdapted).
			WithMetadata(map[string]any{"campaign_id": campaign.ID, "platform": platform})
		x.recordDispatchResult(ctx, campaign, outcome)
		return outcome
	}

	provider, registered := x.registry.Get(platform)
	if !registered {
		outcome.Err = goerrors.New(
			fmt.Sprintf("platform %q is not registered", platform),
			goerrors.CategoryNotFound,
		).WithTextCode(core.BroadcastErrorPlatformNotFound).
			WithMetadata(map[string]any{"platform": platform})
		x.recordDispatchResult(ctx, campaign, outcome)
		return outcome
	}
	publisher, canPublish := provider.(core.Publisher)
	if !canPublish {
		outcome.Err = goerrors.New(
			fmt.Sprintf("platform %q does not support publishing", platform),
			goerrors.CategoryOperation,
		).WithTextCode(core.BroadcastErrorPlatformExecutionFailed).
			WithMetadata(map[string]any{"platform": platform})
		x.recordDispatchResult(ctx, campaign, outcome)
		return outcome
	}

	token, err := x.tokens.GetValidPlatformToken(ctx, campaign.TenantID, platform)
	if err != nil {
		outcome.Err = goerrors.Wrap(err, goerrors.CategoryOperation,
			fmt.Sprintf("no valid credential for platform %q", platform)).
			WithTextCode(core.BroadcastErrorPlatformExecutionFailed).
			WithMetadata(map[string]any{"platform": platform})
		x.recordDispatchResult(ctx, campaign, outcome)
		return outcome
	}

	x.recordEvent(ctx, core.CoordinationEvent{
		CampaignID: campaign.ID,
		TenantID:   campaign.TenantID,
		Platform:   platform,
		EventType:  core.CoordinationEventDispatchStarted,
		Status:     "started",
	})

	if x.gate != nil {
		if gateErr := x.gate.BeforeDispatch(ctx, campaign.TenantID, platform); gateErr != nil {
			outcome.Err = goerrors.Wrap(gateErr, goerrors.CategoryRateLimit,
				fmt.Sprintf("publish to platform %q held back", platform)).
				WithTextCode(core.BroadcastErrorRateLimited).
				WithMetadata(map[string]any{"campaign_id": campaign.ID, "platform": platform})
			x.recordDispatchResult(ctx, campaign, outcome)
			return outcome
		}
	}

	published, err := publisher.Publish(ctx, core.PublishRequest{
		AccessToken: token.Pair.AccessToken,
		Text:        adapted.Text,
		Hashtags:    adapted.Hashtags,
		Mentions:    adapted.Mentions,
		MediaRefs:   adapted.MediaRefs,
		ScheduledAt: campaign.ScheduledAt,
	})
	if x.gate != nil {
		x.gate.AfterDispatch(ctx, campaign.TenantID, platform, published, err)
	}
	if err != nil {
		outcome.Err = goerrors.Wrap(err, goerrors.CategoryOperation,
			fmt.Sprintf("publish to platform %q failed", platform)).
			WithTextCode(core.BroadcastErrorPlatformExecutionFailed).
			WithMetadata(map[string]any{"campaign_id": campaign.ID, "platform": platform})
		x.recordDispatchResult(ctx, campaign, outcome)
		return outcome
	}

	outcome.Success = true
	outcome.PostID = published.PostID
	outcome.URL = published.URL
	outcome.AdaptationsApplied = append([]string(nil), adapted.AppliedOptimizations...)

	if reader, hasMetrics := provider.(core.MetricsReader); hasMetrics && strings.TrimSpace(published.PostID) != "" {
		if metrics, metricsErr := reader.PostMetrics(ctx, token.Pair.AccessToken, published.PostID); metricsErr == nil {
			outcome.Metrics = &metrics
		} else {
			x.logger.Debug("post metrics unavailable",
				"platform", platform, "post_id", published.PostID, "error", metricsErr.Error())
		}
	}

	x.recordDispatchResult(ctx, campaign, outcome)
	return outcome
}

func (x *Executor) recordDispatchResult(ctx context.Context, campaign core.Campaign, outcome TargetOutcome) {
	eventType := core.CoordinationEventDispatchSucceeded
	status := "succeeded"
	detail := ""
	if outcome.Err != nil {
		eventType = core.CoordinationEventDispatchFailed
		status = "failed"
		detail = outcome.Err.Error()
	}
	x.recordEvent(ctx, core.CoordinationEvent{
		CampaignID: campaign.ID,
		TenantID:   campaign.TenantID,
		Platform:   outcome.Platform,
		EventType:  eventType,
		Status:     status,
		Detail:     detail,
		Metadata:   map[string]any{"post_id": outcome.PostID},
	})
}
