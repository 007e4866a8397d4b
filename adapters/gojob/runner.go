package gojob

import (
	"context"
	"errors"
	"fmt"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-broadcast/core"
	"github.com/goliatone/go-broadcast/dispatch"
	broadcastsync "github.com/goliatone/go-broadcast/sync"
)

// ErrUnroutableJob marks deliveries that retrying cannot fix: unknown job
// ids, missing parameters, or a handler that is not wired. They dead-letter
// instead of requeueing.
var ErrUnroutableJob = errors.New("gojob: delivery cannot be routed")

// CampaignDispatcher executes a campaign. *broadcast.Coordinator satisfies it.
type CampaignDispatcher interface {
	ExecuteCampaign(ctx context.Context, tenantID string, campaignID string) (dispatch.ExecutionResult, error)
}

// TokenRefresher forces a credential refresh. *core.Service satisfies it.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, req core.RefreshTokenRequest) (core.ActiveToken, error)
}

// MetricsSweeper collects post metrics for a finished campaign.
// *sync.Collector satisfies it.
type MetricsSweeper interface {
	Sweep(ctx context.Context, tenantID string, campaignID string) (broadcastsync.SweepJob, error)
}

// Runner consumes queue deliveries and routes them to the broadcast services
// by job id. Transient failures nack with a policy-bounded delay; unroutable
// deliveries go straight to the dead letter queue.
type Runner struct {
	Campaigns CampaignDispatcher
	Tokens    TokenRefresher
	Sweeps    MetricsSweeper
	Policy    RetryPolicy
	Logger    core.Logger
}

func (r *Runner) Handle(ctx context.Context, delivery queue.Delivery) error {
	return r.HandleAttempt(ctx, delivery, 0)
}

// HandleAttempt processes one delivery; attempt feeds the retry policy so
// workers that track redelivery counts get bounded backoff.
func (r *Runner) HandleAttempt(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if r == nil {
		return fmt.Errorf("gojob: runner is nil")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	if msg == nil {
		return delivery.Nack(ctx, queue.NackOptions{
			DeadLetter: true,
			Reason:     "delivery carries no message",
		})
	}

	err := r.route(ctx, msg)
	if err == nil {
		return delivery.Ack(ctx)
	}

	logger := glog.Ensure(r.Logger)
	opts := queue.NackOptions{
		Delay:   r.Policy.DelayForAttempt(attempt),
		Requeue: true,
		Reason:  err.Error(),
	}
	if errors.Is(err, ErrUnroutableJob) {
		logger.Error("job dead-lettered",
			"job_id", msg.JobID,
			"error", err.Error())
		opts = queue.NackOptions{DeadLetter: true, Reason: err.Error()}
	} else {
		logger.Warn("job failed, nacking",
			"job_id", msg.JobID,
			"attempt", attempt,
			"error", err.Error())
	}
	return delivery.Nack(ctx, r.Policy.NormalizeAttempt(opts, attempt))
}

func (r *Runner) route(ctx context.Context, msg *job.ExecutionMessage) error {
	switch msg.JobID {
	case JobIDCampaignDispatch:
		if r.Campaigns == nil {
			return fmt.Errorf("%w: campaign dispatcher is not wired", ErrUnroutableJob)
		}
		tenantID, campaignID, err := tenantCampaignParams(msg)
		if err != nil {
			return err
		}
		_, err = r.Campaigns.ExecuteCampaign(ctx, tenantID, campaignID)
		return err

	case JobIDTokenRefresh:
		if r.Tokens == nil {
			return fmt.Errorf("%w: token refresher is not wired", ErrUnroutableJob)
		}
		tenantID := stringParam(msg, paramTenantID)
		platform := stringParam(msg, paramPlatform)
		accountID := stringParam(msg, paramAccountID)
		if tenantID == "" || platform == "" || accountID == "" {
			return fmt.Errorf("%w: token refresh needs tenant_id, platform and account_id", ErrUnroutableJob)
		}
		_, err := r.Tokens.RefreshToken(ctx, core.RefreshTokenRequest{
			TenantID:  tenantID,
			Platform:  platform,
			AccountID: accountID,
		})
		return err

	case JobIDMetricsSweep:
		if r.Sweeps == nil {
			return fmt.Errorf("%w: metrics sweeper is not wired", ErrUnroutableJob)
		}
		tenantID, campaignID, err := tenantCampaignParams(msg)
		if err != nil {
			return err
		}
		sweep, err := r.Sweeps.Sweep(ctx, tenantID, campaignID)
		if err != nil {
			return err
		}
		// A failed sweep returns a job record, not an error. Surface it so
		// the queue retries.
		if sweep.Status == broadcastsync.SweepStatusFailed {
			return fmt.Errorf("gojob: metrics sweep for campaign %q failed: %v",
				campaignID, sweep.Metadata["last_error"])
		}
		return nil
	}
	return fmt.Errorf("%w: unknown job id %q", ErrUnroutableJob, msg.JobID)
}

func tenantCampaignParams(msg *job.ExecutionMessage) (string, string, error) {
	tenantID := stringParam(msg, paramTenantID)
	campaignID := stringParam(msg, paramCampaignID)
	if tenantID == "" || campaignID == "" {
		return "", "", fmt.Errorf("%w: job needs tenant_id and campaign_id", ErrUnroutableJob)
	}
	return tenantID, campaignID, nil
}

// Scheduler feeds the queue. It turns due scheduled campaigns into dispatch
// messages and exposes direct enqueues for refresh and sweep work.
type Scheduler struct {
	Queue     queue.Enqueuer
	Campaigns core.CampaignStore
	Logger    core.Logger
	Now       func() time.Time
}

// EnqueueDueCampaigns scans one tenant's campaigns and enqueues a dispatch
// for every scheduled campaign whose time has arrived. Returns how many were
// enqueued.
func (s *Scheduler) EnqueueDueCampaigns(ctx context.Context, tenantID string) (int, error) {
	if s == nil || s.Queue == nil || s.Campaigns == nil {
		return 0, fmt.Errorf("gojob: scheduler requires a queue and a campaign store")
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	campaigns, err := s.Campaigns.ListByTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("gojob: list campaigns for tenant %q: %w", tenantID, err)
	}

	logger := glog.Ensure(s.Logger)
	enqueued := 0
	for _, campaign := range campaigns {
		if campaign.Status != core.CampaignStatusScheduled {
			continue
		}
		if campaign.ScheduledAt == nil || campaign.ScheduledAt.After(now) {
			continue
		}
		msg, err := NewCampaignDispatchMessage(campaign.TenantID, campaign.ID)
		if err != nil {
			return enqueued, err
		}
		if err := s.Queue.Enqueue(ctx, msg); err != nil {
			return enqueued, fmt.Errorf("gojob: enqueue campaign %q: %w", campaign.ID, err)
		}
		enqueued++
		logger.Debug("due campaign enqueued",
			"tenant_id", campaign.TenantID,
			"campaign_id", campaign.ID,
			"scheduled_at", campaign.ScheduledAt)
	}
	return enqueued, nil
}

func (s *Scheduler) EnqueueTokenRefresh(ctx context.Context, tenantID string, platform string, accountID string) error {
	if s == nil || s.Queue == nil {
		return fmt.Errorf("gojob: scheduler requires a queue")
	}
	msg, err := NewTokenRefreshMessage(tenantID, platform, accountID)
	if err != nil {
		return err
	}
	return s.Queue.Enqueue(ctx, msg)
}

func (s *Scheduler) EnqueueMetricsSweep(ctx context.Context, tenantID string, campaignID string) error {
	if s == nil || s.Queue == nil {
		return fmt.Errorf("gojob: scheduler requires a queue")
	}
	msg, err := NewMetricsSweepMessage(tenantID, campaignID)
	if err != nil {
		return err
	}
	return s.Queue.Enqueue(ctx, msg)
}

// LoggingHook mirrors worker lifecycle events into the broadcast logger.
type LoggingHook struct {
	Logger core.Logger
}

var _ worker.Hook = (*LoggingHook)(nil)

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.logger().Debug("job started",
		"job_id", hookJobID(event),
		"attempt", event.Attempt)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger().Info("job finished",
		"job_id", hookJobID(event),
		"attempt", event.Attempt,
		"duration", event.Duration)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	h.logger().Error("job failed",
		"job_id", hookJobID(event),
		"attempt", event.Attempt,
		"error", hookError(event))
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.logger().Warn("job retry scheduled",
		"job_id", hookJobID(event),
		"attempt", event.Attempt,
		"delay", event.Delay,
		"error", hookError(event))
}

func (h *LoggingHook) logger() core.Logger {
	if h == nil {
		return glog.Ensure(nil)
	}
	return glog.Ensure(h.Logger)
}

func hookJobID(event worker.Event) string {
	msg := event.Message
	if msg == nil && event.Delivery != nil {
		msg = event.Delivery.Message()
	}
	if msg == nil {
		return ""
	}
	return msg.JobID
}

func hookError(event worker.Event) string {
	if event.Err == nil {
		return ""
	}
	return event.Err.Error()
}
