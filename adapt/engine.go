package adapt

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-broadcast/core"
)

// Engine produces one adapted content variant per target platform, driven by
// the constraint table and the optional per-platform analyzer capability.
type Engine struct {
	constraints   ConstraintTable
	tone          ToneAdjuster
	optimizations map[string]Optimization
	registry      core.Registry
	logger        core.Logger
}

type Option func(*Engine)

func WithConstraintTable(table ConstraintTable) Option {
	return func(e *Engine) { e.constraints = table }
}

func WithToneAdjuster(adjuster ToneAdjuster) Option {
	return func(e *Engine) { e.tone = adjuster }
}

func WithOptimizations(registry map[string]Optimization) Option {
	return func(e *Engine) { e.optimizations = registry }
}

func WithRegistry(registry core.Registry) Option {
	return func(e *Engine) { e.registry = registry }
}

func WithLogger(logger core.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		constraints:   DefaultConstraintTable(),
		tone:          IdentityToneAdjuster{},
		optimizations: DefaultOptimizations(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(engine)
	}
	engine.logger = glog.Ensure(engine.logger)
	return engine
}

// Adapt produces an AdaptedContent per platform. A platform without a
// constraint record is a caller configuration error and fails the whole call
// before any variant is returned.
func (e *Engine) Adapt(ctx context.Context, content string, platforms []string) (map[string]core.AdaptedContent, error) {
	if e == nil {
		return nil, fmt.Errorf("adapt: engine is nil")
	}
	if strings.TrimSpace(content) == "" {
		return nil, goerrors.New("content is required", goerrors.CategoryBadInput).
			WithTextCode(core.BroadcastErrorBadInput)
	}
	if len(platforms) == 0 {
		return nil, goerrors.New("at least one target platform is required", goerrors.CategoryBadInput).
			WithTextCode(core.BroadcastErrorBadInput)
	}

	adapted := make(map[string]core.AdaptedContent, len(platforms))
	for _, platform := range platforms {
		variant, err := e.AdaptForPlatform(ctx, content, platform)
		if err != nil {
			return nil, err
		}
		adapted[strings.TrimSpace(platform)] = variant
	}
	return adapted, nil
}

// AdaptForPlatform runs the per-platform pipeline: truncate, adjust tone,
// extract hashtags and mentions, apply named optimizations, score, estimate.
func (e *Engine) AdaptForPlatform(ctx context.Context, content string, platform string) (core.AdaptedContent, error) {
	if e == nil {
		return core.AdaptedContent{}, fmt.Errorf("adapt: engine is nil")
	}
	platform = strings.TrimSpace(platform)
	constraints, ok := e.constraints.Lookup(platform)
	if !ok {
		wrapped := goerrors.New(
			fmt.Sprintf("no adaptation constraints for platform %q", platform),
			goerrors.CategoryNotFound,
		).WithTextCode(core.BroadcastErrorStrategyNotFound)
		return core.AdaptedContent{}, wrapped.WithMetadata(map[string]any{"platform": platform})
	}

	var rationale []string
	originalLength := utf8.RuneCountInString(content)

	text, truncated := truncateText(content, constraints.MaxTextLength)
	if truncated {
		rationale = append(rationale, fmt.Sprintf(
			"truncated from %d to %d characters for the %d character limit",
			originalLength, utf8.RuneCountInString(text), constraints.MaxTextLength))
	}

	if e.tone != nil && constraints.Tone != "" {
		adjusted := e.tone.Adjust(text, constraints.Tone)
		if adjusted != text {
			rationale = append(rationale, fmt.Sprintf("adjusted tone toward %s", constraints.Tone))
			text = adjusted
		}
	}

	hashtags := extractHashtags(text, constraints.HashtagLimit)
	mentions := extractMentions(text, constraints.MentionLimit)
	if len(hashtags) > 0 {
		rationale = append(rationale, fmt.Sprintf("kept %d of up to %d hashtags", len(hashtags), constraints.HashtagLimit))
	}

	text, applied := applyOptimizations(text, constraints.Optimizations, e.optimizations)
	if len(applied) > 0 {
		rationale = append(rationale, "applied "+strings.Join(applied, ", "))
	}
	if len(rationale) == 0 {
		rationale = append(rationale, "content fits platform constraints unchanged")
	}

	score := scoreAdaptation(content, text, len(hashtags), constraints)
	estimate := e.estimatePerformance(ctx, platform, text)

	e.logger.Debug("adapted content for platform",
		"platform", platform,
		"length", utf8.RuneCountInString(text),
		"score", score)

	return core.AdaptedContent{
		Platform:             platform,
		Text:                 text,
		Hashtags:             hashtags,
		Mentions:             mentions,
		AppliedOptimizations: applied,
		Rationale:            strings.Join(rationale, "; "),
		OptimizationScore:    score,
		Estimate:             estimate,
	}, nil
}

type BuildCampaignRequest struct {
	TenantID           string
	Name               string
	Description        string
	BaseContent        string
	TargetPlatforms    []string
	Strategy           core.CoordinationStrategy
	PerformanceTargets map[string]float64
	ScheduledAt        *time.Time
}

// BuildCampaign adapts the base content for every target and returns a draft
// campaign ready for scheduling or execution. The caller persists it.
func (e *Engine) BuildCampaign(ctx context.Context, req BuildCampaignRequest) (core.Campaign, error) {
	if e == nil {
		return core.Campaign{}, fmt.Errorf("adapt: engine is nil")
	}

	strategy := req.Strategy
	if strategy.Kind == "" {
		strategy.Kind = core.StrategySimultaneous
	}

	campaign := core.Campaign{
		TenantID:           strings.TrimSpace(req.TenantID),
		Name:               strings.TrimSpace(req.Name),
		Description:        strings.TrimSpace(req.Description),
		BaseContent:        req.BaseContent,
		TargetPlatforms:    normalizePlatforms(req.TargetPlatforms),
		Strategy:           strategy,
		PerformanceTargets: req.PerformanceTargets,
		ScheduledAt:        req.ScheduledAt,
		Status:             core.CampaignStatusDraft,
	}
	if err := campaign.Validate(); err != nil {
		return core.Campaign{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid campaign").
			WithTextCode(core.BroadcastErrorBadInput)
	}

	adapted, err := e.Adapt(ctx, campaign.BaseContent, campaign.TargetPlatforms)
	if err != nil {
		return core.Campaign{}, err
	}
	campaign.AdaptedContent = adapted
	return campaign, nil
}

// Readapt replaces a campaign's base content and regenerates every adapted
// variant. Terminal campaigns cannot be edited.
func (e *Engine) Readapt(ctx context.Context, campaign core.Campaign, content string) (core.Campaign, error) {
	if e == nil {
		return core.Campaign{}, fmt.Errorf("adapt: engine is nil")
	}
	if campaign.Status.Terminal() {
		wrapped := goerrors.New(
			fmt.Sprintf("campaign status %q does not allow content edits", campaign.Status),
			goerrors.CategoryConflict,
		).WithTextCode(core.BroadcastErrorInvalidCampaignStatus)
		return core.Campaign{}, wrapped.WithMetadata(map[string]any{"campaign_id": campaign.ID})
	}

	adapted, err := e.Adapt(ctx, content, campaign.TargetPlatforms)
	if err != nil {
		return core.Campaign{}, err
	}
	campaign.BaseContent = content
	campaign.AdaptedContent = adapted
	return campaign, nil
}

func normalizePlatforms(platforms []string) []string {
	out := make([]string, 0, len(platforms))
	for _, platform := range platforms {
		out = append(out, strings.TrimSpace(platform))
	}
	return out
}
