package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-broadcast/core"
)

// TokenSource resolves a tenant's valid credential for a platform.
// *core.Service satisfies it.
type TokenSource interface {
	GetValidPlatformToken(ctx context.Context, tenantID string, platform string) (core.ActiveToken, error)
}

// Collector walks a completed campaign's published posts and pulls current
// metrics from every platform that exposes them.
type Collector struct {
	registry     core.Registry
	tokens       TokenSource
	campaigns    core.CampaignStore
	events       core.CoordinationEventSink
	orchestrator *Orchestrator
	logger       core.Logger
	now          func() time.Time
}

type CollectorOption func(*Collector)

func WithCollectorLogger(logger core.Logger) CollectorOption {
	return func(c *Collector) { c.logger = logger }
}

func WithCollectorClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

func NewCollector(
	registry core.Registry,
	tokens TokenSource,
	campaigns core.CampaignStore,
	events core.CoordinationEventSink,
	orchestrator *Orchestrator,
	opts ...CollectorOption,
) (*Collector, error) {
	if registry == nil {
		return nil, fmt.Errorf("sync: platform registry is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("sync: token source is required")
	}
	if campaigns == nil {
		return nil, fmt.Errorf("sync: campaign store is required")
	}
	if events == nil {
		return nil, fmt.Errorf("sync: coordination event sink is required")
	}
	if orchestrator == nil {
		return nil, fmt.Errorf("sync: orchestrator is required")
	}
	collector := &Collector{
		registry:     registry,
		tokens:       tokens,
		campaigns:    campaigns,
		events:       events,
		orchestrator: orchestrator,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(collector)
	}
	collector.logger = glog.Ensure(collector.logger)
	return collector, nil
}

type publishedPost struct {
	Platform string
	PostID   string
}

// Sweep runs one metrics pass over the campaign. Per-post failures do not
// abort the sweep; the job fails only when no post could be collected.
func (c *Collector) Sweep(ctx context.Context, tenantID string, campaignID string) (SweepJob, error) {
	if c == nil {
		return SweepJob{}, fmt.Errorf("sync: collector is nil")
	}

	campaign, err := c.campaigns.Get(ctx, tenantID, campaignID)
	if err != nil {
		return SweepJob{}, fmt.Errorf("sync: load campaign %q: %w", campaignID, err)
	}
	if campaign.Status != core.CampaignStatusCompleted {
		return SweepJob{}, fmt.Errorf(
			"sync: campaign %q is %s, only completed campaigns are swept",
			campaignID, campaign.Status,
		)
	}

	job, err := c.orchestrator.Start(ctx, tenantID, campaignID, map[string]any{
		"campaign_name": campaign.Name,
	})
	if err != nil {
		return SweepJob{}, err
	}

	posts, err := c.publishedPosts(ctx, campaignID)
	if err != nil {
		return c.orchestrator.Fail(ctx, job.ID, err, nil)
	}
	if len(posts) == 0 {
		return c.orchestrator.Complete(ctx, job.ID, "", map[string]any{"posts_swept": 0})
	}

	var sweepErrs []error
	checkpoint := ""
	collected := 0
	for _, post := range posts {
		if err := c.collectPost(ctx, campaign, post); err != nil {
			c.logger.Debug("post metrics sweep skipped",
				"campaign_id", campaignID,
				"platform", post.Platform,
				"post_id", post.PostID,
				"error", err.Error())
			sweepErrs = append(sweepErrs, err)
			continue
		}
		collected++
		checkpoint = post.PostID
		if _, err := c.orchestrator.SaveCheckpoint(ctx, job.ID, checkpoint, nil); err != nil {
			return SweepJob{}, err
		}
	}

	if collected == 0 {
		return c.orchestrator.Fail(ctx, job.ID, errors.Join(sweepErrs...), nil)
	}
	return c.orchestrator.Complete(ctx, job.ID, checkpoint, map[string]any{
		"posts_swept":  collected,
		"posts_failed": len(sweepErrs),
	})
}

func (c *Collector) publishedPosts(ctx context.Context, campaignID string) ([]publishedPost, error) {
	events, err := c.events.List(ctx, core.ListCoordinationEventsFilter{CampaignID: campaignID})
	if err != nil {
		return nil, fmt.Errorf("sync: list dispatch events: %w", err)
	}
	posts := []publishedPost{}
	seen := map[string]bool{}
	for _, event := range events {
		if event.EventType != core.CoordinationEventDispatchSucceeded || event.Metadata == nil {
			continue
		}
		postID := strings.TrimSpace(fmt.Sprint(event.Metadata["post_id"]))
		if postID == "" || postID == "<nil>" {
			continue
		}
		key := event.Platform + ":" + postID
		if seen[key] {
			continue
		}
		seen[key] = true
		posts = append(posts, publishedPost{Platform: event.Platform, PostID: postID})
	}
	return posts, nil
}

func (c *Collector) collectPost(ctx context.Context, campaign core.Campaign, post publishedPost) error {
	provider, ok := c.registry.Get(post.Platform)
	if !ok {
		return fmt.Errorf("sync: platform %q is not registered", post.Platform)
	}
	reader, ok := provider.(core.MetricsReader)
	if !ok {
		return fmt.Errorf("sync: platform %q does not expose post metrics", post.Platform)
	}

	token, err := c.tokens.GetValidPlatformToken(ctx, campaign.TenantID, post.Platform)
	if err != nil {
		return fmt.Errorf("sync: no valid credential for platform %q: %w", post.Platform, err)
	}

	metrics, err := reader.PostMetrics(ctx, token.Pair.AccessToken, post.PostID)
	if err != nil {
		return fmt.Errorf("sync: fetch metrics for post %q: %w", post.PostID, err)
	}

	return c.events.Record(ctx, core.CoordinationEvent{
		CampaignID: campaign.ID,
		TenantID:   campaign.TenantID,
		Platform:   post.Platform,
		EventType:  core.CoordinationEventEngagement,
		Status:     "swept",
		Metadata: map[string]any{
			"post_id":  post.PostID,
			"likes":    metrics.Likes,
			"shares":   metrics.Shares,
			"comments": metrics.Comments,
			"views":    metrics.Views,
			"source":   "sweep",
		},
		OccurredAt: c.now(),
	})
}
