// Package gojob runs broadcast background work on the go-job queue:
// executing due campaigns, forcing credential refreshes, and sweeping post
// metrics after a campaign finishes.
package gojob

import (
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

const (
	JobIDCampaignDispatch = "broadcast.campaign.dispatch"
	JobIDTokenRefresh     = "broadcast.token.refresh"
	JobIDMetricsSweep     = "broadcast.metrics.sweep"
)

const (
	paramTenantID   = "tenant_id"
	paramCampaignID = "campaign_id"
	paramPlatform   = "platform"
	paramAccountID  = "account_id"
)

// DedupDrop discards an enqueue whose idempotency key is already queued.
const DedupDrop = job.DeduplicationPolicy("drop")

// NewCampaignDispatchMessage builds the queue message that executes a
// campaign. The idempotency key keeps a campaign from being dispatched twice
// while a prior enqueue is still pending.
func NewCampaignDispatchMessage(tenantID string, campaignID string) (*job.ExecutionMessage, error) {
	tenantID = strings.TrimSpace(tenantID)
	campaignID = strings.TrimSpace(campaignID)
	if tenantID == "" || campaignID == "" {
		return nil, fmt.Errorf("gojob: tenant id and campaign id are required")
	}
	return &job.ExecutionMessage{
		JobID:      JobIDCampaignDispatch,
		ScriptPath: JobIDCampaignDispatch,
		Parameters: map[string]any{
			paramTenantID:   tenantID,
			paramCampaignID: campaignID,
		},
		IdempotencyKey: JobIDCampaignDispatch + ":" + tenantID + ":" + campaignID,
		DedupPolicy:    DedupDrop,
	}, nil
}

// NewTokenRefreshMessage builds the queue message that forces a credential
// refresh for one connected account.
func NewTokenRefreshMessage(tenantID string, platform string, accountID string) (*job.ExecutionMessage, error) {
	tenantID = strings.TrimSpace(tenantID)
	platform = strings.TrimSpace(platform)
	accountID = strings.TrimSpace(accountID)
	if tenantID == "" || platform == "" || accountID == "" {
		return nil, fmt.Errorf("gojob: tenant id, platform and account id are required")
	}
	return &job.ExecutionMessage{
		JobID:      JobIDTokenRefresh,
		ScriptPath: JobIDTokenRefresh,
		Parameters: map[string]any{
			paramTenantID:  tenantID,
			paramPlatform:  platform,
			paramAccountID: accountID,
		},
		IdempotencyKey: JobIDTokenRefresh + ":" + tenantID + ":" + platform + ":" + accountID,
		DedupPolicy:    DedupDrop,
	}, nil
}

// NewMetricsSweepMessage builds the queue message that collects post metrics
// for a completed campaign.
func NewMetricsSweepMessage(tenantID string, campaignID string) (*job.ExecutionMessage, error) {
	tenantID = strings.TrimSpace(tenantID)
	campaignID = strings.TrimSpace(campaignID)
	if tenantID == "" || campaignID == "" {
		return nil, fmt.Errorf("gojob: tenant id and campaign id are required")
	}
	return &job.ExecutionMessage{
		JobID:      JobIDMetricsSweep,
		ScriptPath: JobIDMetricsSweep,
		Parameters: map[string]any{
			paramTenantID:   tenantID,
			paramCampaignID: campaignID,
		},
		IdempotencyKey: JobIDMetricsSweep + ":" + tenantID + ":" + campaignID,
		DedupPolicy:    DedupDrop,
	}, nil
}

// RetryPolicy bounds queue retries so a failing job cannot loop forever.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// DelayForAttempt doubles the base delay per attempt up to MaxDelay.
func (p RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// NormalizeAttempt clamps nack options to the policy. Delays are bounded,
// dead-lettered messages never requeue, and once MaxAttempts is reached the
// message stops requeueing, dead-lettering when DeadLetterOnMax is set. A
// message always leaves with either requeue or dead-letter set.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

func stringParam(msg *job.ExecutionMessage, key string) string {
	if msg == nil || len(msg.Parameters) == 0 {
		return ""
	}
	raw, ok := msg.Parameters[key]
	if !ok {
		return ""
	}
	value, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
