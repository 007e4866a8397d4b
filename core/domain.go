package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidCampaignStatusTransition = errors.New("core: invalid campaign status transition")
	ErrInvalidStrategyKind             = errors.New("core: invalid coordination strategy kind")
	ErrInvalidDependencyCondition      = errors.New("core: invalid dependency condition")
	ErrCampaignNotFound                = errors.New("core: campaign not found")
	ErrTokenNotFound                   = errors.New("core: token not found")
)

type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "draft"
	CampaignStatusScheduled  CampaignStatus = "scheduled"
	CampaignStatusInProgress CampaignStatus = "in_progress"
	CampaignStatusCompleted  CampaignStatus = "completed"
	CampaignStatusFailed     CampaignStatus = "failed"
	CampaignStatusCancelled  CampaignStatus = "cancelled"
	CampaignStatusPaused     CampaignStatus = "paused"
)

func (s CampaignStatus) Terminal() bool {
	switch s {
	case CampaignStatusCompleted, CampaignStatusFailed, CampaignStatusCancelled:
		return true
	}
	return false
}

// Executable reports whether a campaign in this status may be handed to the
// coordination executor.
func (s CampaignStatus) Executable() bool {
	return s == CampaignStatusDraft || s == CampaignStatusScheduled
}

type PerformanceEstimate struct {
	Views          int64
	Likes          int64
	Shares         int64
	Comments       int64
	EngagementRate float64
	Confidence     float64
}

type AdaptedContent struct {
	Platform             string
	Text                 string
	Hashtags             []string
	Mentions             []string
	MediaRefs            []string
	AppliedOptimizations []string
	Rationale            string
	OptimizationScore    float64
	Estimate             PerformanceEstimate
}

type StrategyKind string

const (
	StrategySimultaneous StrategyKind = "simultaneous"
	StrategyStaggered    StrategyKind = "staggered"
	StrategySequential   StrategyKind = "sequential"
	StrategyConditional  StrategyKind = "conditional"
)

type DependencyCondition string

const (
	DependencyOnSuccess             DependencyCondition = "success"
	DependencyOnEngagementThreshold DependencyCondition = "engagement_threshold"
	DependencyAfterDelay            DependencyCondition = "time_delay"
)

// PlatformDependency gates one platform's dispatch on another's outcome.
// Threshold carries the engagement floor for engagement_threshold conditions
// and the delay in minutes for time_delay conditions.
type PlatformDependency struct {
	Platform  string
	DependsOn string
	Condition DependencyCondition
	Threshold float64
}

type TriggerCondition struct {
	Kind     string
	Value    float64
	Metadata map[string]any
}

type CoordinationStrategy struct {
	Kind StrategyKind
	// Waits holds the post-dispatch delay per platform for staggered runs.
	Waits        map[string]time.Duration
	Dependencies []PlatformDependency
	Triggers     []TriggerCondition
}

func (s CoordinationStrategy) Validate(targets []string) error {
	switch s.Kind {
	case StrategySimultaneous, StrategyStaggered, StrategySequential, StrategyConditional:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStrategyKind, s.Kind)
	}

	known := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		known[strings.TrimSpace(target)] = struct{}{}
	}

	for platform, wait := range s.Waits {
		if wait < 0 {
			return fmt.Errorf("core: negative stagger wait for platform %q", platform)
		}
		if _, ok := known[strings.TrimSpace(platform)]; !ok {
			return fmt.Errorf("core: stagger wait references unknown platform %q", platform)
		}
	}

	for _, dep := range s.Dependencies {
		platform := strings.TrimSpace(dep.Platform)
		dependsOn := strings.TrimSpace(dep.DependsOn)
		if platform == "" || dependsOn == "" {
			return fmt.Errorf("core: dependency requires platform and depends_on")
		}
		if platform == dependsOn {
			return fmt.Errorf("core: platform %q cannot depend on itself", platform)
		}
		if _, ok := known[platform]; !ok {
			return fmt.Errorf("core: dependency references unknown platform %q", platform)
		}
		if _, ok := known[dependsOn]; !ok {
			return fmt.Errorf("core: dependency references unknown platform %q", dependsOn)
		}
		switch dep.Condition {
		case DependencyOnSuccess, DependencyOnEngagementThreshold, DependencyAfterDelay:
		case "":
		default:
			return fmt.Errorf("%w: %q", ErrInvalidDependencyCondition, dep.Condition)
		}
		if dep.Threshold < 0 {
			return fmt.Errorf("core: dependency threshold must not be negative")
		}
	}
	return nil
}

type Campaign struct {
	ID                 string
	TenantID           string
	Name               string
	Description        string
	BaseContent        string
	TargetPlatforms    []string
	AdaptedContent     map[string]AdaptedContent
	Strategy           CoordinationStrategy
	PerformanceTargets map[string]float64
	ScheduledAt        *time.Time
	Status             CampaignStatus
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (c Campaign) Validate() error {
	if strings.TrimSpace(c.TenantID) == "" {
		return fmt.Errorf("core: campaign tenant id is required")
	}
	if strings.TrimSpace(c.BaseContent) == "" {
		return fmt.Errorf("core: campaign base content is required")
	}
	if len(c.TargetPlatforms) == 0 {
		return fmt.Errorf("core: campaign requires at least one target platform")
	}
	seen := make(map[string]struct{}, len(c.TargetPlatforms))
	for _, platform := range c.TargetPlatforms {
		platform = strings.TrimSpace(platform)
		if platform == "" {
			return fmt.Errorf("core: campaign target platform is empty")
		}
		if _, dup := seen[platform]; dup {
			return fmt.Errorf("core: duplicate target platform %q", platform)
		}
		seen[platform] = struct{}{}
	}
	if err := c.Strategy.Validate(c.TargetPlatforms); err != nil {
		return err
	}
	if c.Status != CampaignStatusDraft {
		if err := c.ValidateAdaptedCoverage(); err != nil {
			return err
		}
	}
	for platform, adapted := range c.AdaptedContent {
		if adapted.OptimizationScore < 0 || adapted.OptimizationScore > 1 {
			return fmt.Errorf("core: optimization score out of range for platform %q", platform)
		}
	}
	return nil
}

// ValidateAdaptedCoverage verifies adapted content exists for exactly the
// target platforms, no more and no fewer.
func (c Campaign) ValidateAdaptedCoverage() error {
	for _, platform := range c.TargetPlatforms {
		if _, ok := c.AdaptedContent[strings.TrimSpace(platform)]; !ok {
			return fmt.Errorf("core: missing adapted content for platform %q", platform)
		}
	}
	if len(c.AdaptedContent) != len(c.TargetPlatforms) {
		for platform := range c.AdaptedContent {
			if !containsString(c.TargetPlatforms, platform) {
				return fmt.Errorf("core: adapted content for non-target platform %q", platform)
			}
		}
	}
	return nil
}

func (c *Campaign) TransitionTo(status CampaignStatus, now time.Time) error {
	if c == nil {
		return nil
	}
	if c.Status == status {
		c.UpdatedAt = now
		return nil
	}
	if !campaignTransitionAllowed(c.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidCampaignStatusTransition, c.Status, status)
	}
	c.Status = status
	c.UpdatedAt = now
	return nil
}

func campaignTransitionAllowed(current, next CampaignStatus) bool {
	allowed := map[CampaignStatus]map[CampaignStatus]struct{}{
		CampaignStatusDraft: {
			CampaignStatusScheduled:  {},
			CampaignStatusInProgress: {},
			CampaignStatusPaused:     {},
			CampaignStatusCancelled:  {},
		},
		CampaignStatusScheduled: {
			CampaignStatusDraft:      {},
			CampaignStatusInProgress: {},
			CampaignStatusPaused:     {},
			CampaignStatusCancelled:  {},
		},
		CampaignStatusInProgress: {
			CampaignStatusCompleted: {},
			CampaignStatusFailed:    {},
			CampaignStatusCancelled: {},
		},
		CampaignStatusPaused: {
			CampaignStatusDraft:     {},
			CampaignStatusScheduled: {},
			CampaignStatusCancelled: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

type TokenStatus string

const (
	TokenStatusActive   TokenStatus = "active"
	TokenStatusRevoked  TokenStatus = "revoked"
	TokenStatusExpired  TokenStatus = "expired"
	TokenStatusRotated  TokenStatus = "rotated"
	TokenStatusInactive TokenStatus = "inactive"
)

// TenantToken is the stored credential for a connected platform account.
// Access and refresh tokens live inside EncryptedPayload; the plaintext is
// only materialized through the service's token codec + secret provider.
type TenantToken struct {
	ID               string
	TenantID         string
	UserID           string
	Platform         string
	AccountID        string
	DisplayName      string
	Username         string
	AccountType      string
	EncryptedPayload []byte
	PayloadFormat    string
	PayloadVersion   int
	TokenType        string
	Scopes           []string
	ExpiresAt        *time.Time
	Status           TokenStatus
	StatusReason     string
	Version          int
	LastRefreshedAt  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (t TenantToken) Active() bool {
	return t.Status == TokenStatusActive
}

type CoordinationEvent struct {
	ID         string
	CampaignID string
	TenantID   string
	Platform   string
	EventType  string
	Status     string
	Detail     string
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	CoordinationEventDispatchStarted   = "dispatch.started"
	CoordinationEventDispatchSucceeded = "dispatch.succeeded"
	CoordinationEventDispatchFailed    = "dispatch.failed"
	CoordinationEventDispatchSkipped   = "dispatch.skipped"
	CoordinationEventDispatchWarning   = "dispatch.warning"
	CoordinationEventCampaignFinished  = "campaign.finished"
	CoordinationEventEngagement        = "engagement.received"
)

func containsString(values []string, candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	for _, value := range values {
		if strings.TrimSpace(value) == candidate {
			return true
		}
	}
	return false
}

func cloneStrings(values []string) []string {
	return append([]string(nil), values...)
}

func cloneCampaign(campaign Campaign) Campaign {
	cloned := campaign
	cloned.TargetPlatforms = cloneStrings(campaign.TargetPlatforms)
	cloned.ScheduledAt = cloneTimePointer(campaign.ScheduledAt)
	if campaign.AdaptedContent != nil {
		cloned.AdaptedContent = make(map[string]AdaptedContent, len(campaign.AdaptedContent))
		for platform, adapted := range campaign.AdaptedContent {
			cloned.AdaptedContent[platform] = cloneAdaptedContent(adapted)
		}
	}
	if campaign.PerformanceTargets != nil {
		cloned.PerformanceTargets = make(map[string]float64, len(campaign.PerformanceTargets))
		for key, value := range campaign.PerformanceTargets {
			cloned.PerformanceTargets[key] = value
		}
	}
	cloned.Strategy = cloneStrategy(campaign.Strategy)
	return cloned
}

func cloneAdaptedContent(adapted AdaptedContent) AdaptedContent {
	cloned := adapted
	cloned.Hashtags = cloneStrings(adapted.Hashtags)
	cloned.Mentions = cloneStrings(adapted.Mentions)
	cloned.MediaRefs = cloneStrings(adapted.MediaRefs)
	cloned.AppliedOptimizations = cloneStrings(adapted.AppliedOptimizations)
	return cloned
}

func cloneStrategy(strategy CoordinationStrategy) CoordinationStrategy {
	cloned := strategy
	if strategy.Waits != nil {
		cloned.Waits = make(map[string]time.Duration, len(strategy.Waits))
		for platform, wait := range strategy.Waits {
			cloned.Waits[platform] = wait
		}
	}
	cloned.Dependencies = append([]PlatformDependency(nil), strategy.Dependencies...)
	if strategy.Triggers != nil {
		cloned.Triggers = make([]TriggerCondition, len(strategy.Triggers))
		for i, trigger := range strategy.Triggers {
			copied := trigger
			copied.Metadata = copyAnyMap(trigger.Metadata)
			cloned.Triggers[i] = copied
		}
	}
	return cloned
}

func cloneTenantToken(token TenantToken) TenantToken {
	cloned := token
	cloned.EncryptedPayload = append([]byte(nil), token.EncryptedPayload...)
	cloned.Scopes = cloneStrings(token.Scopes)
	cloned.ExpiresAt = cloneTimePointer(token.ExpiresAt)
	cloned.LastRefreshedAt = cloneTimePointer(token.LastRefreshedAt)
	return cloned
}

func cloneCoordinationEvent(event CoordinationEvent) CoordinationEvent {
	cloned := event
	cloned.Metadata = copyAnyMap(event.Metadata)
	return cloned
}
