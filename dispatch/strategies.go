package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-broadcast/core"
)

type attemptRecord struct {
	attempted  bool
	success    bool
	finishedAt time.Time
}

// campaignRun collects per-target state for one execution. The simultaneous
// strategy mutates it from several goroutines, so every write goes through
// the mutex.
type campaignRun struct {
	campaign core.Campaign

	mu        sync.Mutex
	outcomes  map[string]TargetOutcome
	errs      []error
	warnings  []string
	attempts  map[string]attemptRecord
	cancelled bool
}

func newCampaignRun(campaign core.Campaign) *campaignRun {
	return &campaignRun{
		campaign: campaign,
		outcomes: make(map[string]TargetOutcome, len(campaign.TargetPlatforms)),
		attempts: make(map[string]attemptRecord, len(campaign.TargetPlatforms)),
	}
}

func (r *campaignRun) record(outcome TargetOutcome, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome.Platform] = outcome
	r.attempts[outcome.Platform] = attemptRecord{
		attempted:  true,
		success:    outcome.Success,
		finishedAt: at,
	}
	if outcome.Err != nil {
		r.errs = append(r.errs, outcome.Err)
	}
}

func (r *campaignRun) warn(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.warnings {
		if existing == message {
			return
		}
	}
	r.warnings = append(r.warnings, message)
}

func (r *campaignRun) markCancelled() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

func (r *campaignRun) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

func (r *campaignRun) attempt(platform string) (attemptRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.attempts[platform]
	return record, ok
}

func (r *campaignRun) snapshotOutcomes() map[string]TargetOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]TargetOutcome, len(r.outcomes))
	for platform, outcome := range r.outcomes {
		out[platform] = outcome
	}
	return out
}

func (r *campaignRun) snapshotErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *campaignRun) snapshotWarnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// runSimultaneous dispatches every target concurrently. Outcomes are fully
// independent: one target's failure never gates another's dispatch.
func (x *Executor) runSimultaneous(ctx context.Context, run *campaignRun) {
	var wg sync.WaitGroup
	for _, platform := range run.campaign.TargetPlatforms {
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			outcome := x.executeOnPlatform(ctx, run.campaign, platform)
			run.record(outcome, x.clock.Now())
		}(platform)
	}
	wg.Wait()
}

// runStaggered dispatches targets in campaign order, sleeping for the
// platform's configured wait after each dispatch. The stored campaign status
// is re-checked before each step so a cancellation stops the run.
func (x *Executor) runStaggered(ctx context.Context, run *campaignRun) {
	targets := run.campaign.TargetPlatforms
	for i, platform := range targets {
		if ctx.Err() != nil || x.campaignCancelled(ctx, run.campaign) {
			run.markCancelled()
			return
		}

		outcome := x.executeOnPlatform(ctx, run.campaign, platform)
		run.record(outcome, x.clock.Now())

		if i == len(targets)-1 {
			return
		}
		if wait := run.campaign.Strategy.Waits[platform]; wait > 0 {
			if err := x.clock.Sleep(ctx, wait); err != nil {
				run.markCancelled()
				return
			}
		}
	}
}

// runSequential repeatedly scans unattempted targets and dispatches the ones
// whose dependencies allow it. A pass that makes no progress while nothing is
// waiting on a time_delay means the dependency graph cannot resolve, which
// fails the whole run with an execution deadlock.
func (x *Executor) runSequential(ctx context.Context, run *campaignRun) error {
	dependencies := make(map[string][]core.PlatformDependency)
	for _, dep := range run.campaign.Strategy.Dependencies {
		platform := strings.TrimSpace(dep.Platform)
		dependencies[platform] = append(dependencies[platform], dep)
	}

	remaining := make([]string, 0, len(run.campaign.TargetPlatforms))
	remaining = append(remaining, run.campaign.TargetPlatforms...)

	for len(remaining) > 0 {
		if ctx.Err() != nil || x.campaignCancelled(ctx, run.campaign) {
			run.markCancelled()
			return nil
		}

		progress := false
		var minWait time.Duration
		next := remaining[:0]

		for _, platform := range remaining {
			decision := x.evaluateDependencies(run, platform, dependencies[platform])
			switch {
			case decision.failedDependency != "":
				outcome := TargetOutcome{
					Platform:    platform,
					AttemptedAt: x.clock.Now(),
					Err: goerrors.New(
						fmt.Sprintf("platform %q skipped: dependency %q did not succeed", platform, decision.failedDependency),
						goerrors.CategoryOperation,
					).WithTextCode(core.BroadcastErrorPlatformExecutionFailed).
						WithMetadata(map[string]any{
							"platform":   platform,
							"depends_on": decision.failedDependency,
						}),
				}
				run.record(outcome, x.clock.Now())
				x.recordEvent(ctx, core.CoordinationEvent{
					CampaignID: run.campaign.ID,
					TenantID:   run.campaign.TenantID,
					Platform:   platform,
					EventType:  core.CoordinationEventDispatchSkipped,
					Status:     "skipped",
					Detail:     outcome.Err.Error(),
				})
				progress = true

			case decision.eligible:
				outcome := x.executeOnPlatform(ctx, run.campaign, platform)
				run.record(outcome, x.clock.Now())
				progress = true

			case decision.waitFor > 0:
				if minWait == 0 || decision.waitFor < minWait {
					minWait = decision.waitFor
				}
				next = append(next, platform)

			default:
				next = append(next, platform)
			}
		}
		remaining = append([]string(nil), next...)

		if len(remaining) == 0 {
			return nil
		}
		if progress {
			continue
		}
		if minWait > 0 {
			if err := x.clock.Sleep(ctx, minWait); err != nil {
				run.markCancelled()
				return nil
			}
			continue
		}

		return goerrors.New(
			fmt.Sprintf("dependency deadlock: targets %s can never become eligible", strings.Join(remaining, ", ")),
			goerrors.CategoryOperation,
		).WithTextCode(core.BroadcastErrorExecutionDeadlock).
			WithMetadata(map[string]any{"campaign_id": run.campaign.ID})
	}
	return nil
}

type dependencyDecision struct {
	eligible         bool
	failedDependency string
	waitFor          time.Duration
}

// evaluateDependencies resolves a target's gate. Condition kinds differ:
// success needs the dependency to have succeeded; engagement_threshold is
// treated like success with a recorded warning since threshold evaluation
// needs post metrics the run does not have yet; time_delay needs the
// dependency attempted and the configured minutes elapsed.
func (x *Executor) evaluateDependencies(run *campaignRun, platform string, deps []core.PlatformDependency) dependencyDecision {
	if len(deps) == 0 {
		return dependencyDecision{eligible: true}
	}

	decision := dependencyDecision{eligible: true}
	now := x.clock.Now()
	for _, dep := range deps {
		dependsOn := strings.TrimSpace(dep.DependsOn)
		record, attempted := run.attempt(dependsOn)
		if !attempted {
			decision.eligible = false
			continue
		}

		switch dep.Condition {
		case core.DependencyOnSuccess:
			if !record.success {
				return dependencyDecision{failedDependency: dependsOn}
			}
		case core.DependencyOnEngagementThreshold:
			run.warn(fmt.Sprintf(
				"engagement_threshold condition on %q evaluated as success: post metrics are not available during execution",
				platform))
			if !record.success {
				return dependencyDecision{failedDependency: dependsOn}
			}
		case core.DependencyAfterDelay:
			ready := record.finishedAt.Add(time.Duration(dep.Threshold * float64(time.Minute)))
			if now.Before(ready) {
				decision.eligible = false
				wait := ready.Sub(now)
				if decision.waitFor == 0 || wait < decision.waitFor {
					decision.waitFor = wait
				}
			}
		default:
			// No condition kind: any attempt satisfies the ordering gate.
		}
	}
	return decision
}
