package adapt

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/goliatone/go-broadcast/core"
)

type analyzerProvider struct {
	platform    string
	analysis    core.ContentAnalysis
	analysisErr error
	calls       int
}

func (p *analyzerProvider) Platform() string { return p.platform }
func (p *analyzerProvider) RequiresProofKey() bool { return false }

func (p *analyzerProvider) BeginAuth(context.Context, core.BeginAuthRequest) (core.BeginAuthResponse, error) {
	return core.BeginAuthResponse{}, nil
}
func (p *analyzerProvider) ExchangeCode(context.Context, core.ExchangeCodeRequest) (core.TokenPair, error) {
	return core.TokenPair{}, nil
}
func (p *analyzerProvider) FetchProfile(context.Context, string) (core.AccountProfile, error) {
	return core.AccountProfile{}, nil
}
func (p *analyzerProvider) RefreshToken(context.Context, string) (core.TokenPair, error) {
	return core.TokenPair{}, nil
}
func (p *analyzerProvider) RevokeToken(context.Context, string) error { return nil }

func (p *analyzerProvider) TestConnection(context.Context, string) error { return nil }

func (p *analyzerProvider) AnalyzeContent(context.Context, string) (core.ContentAnalysis, error) {
	p.calls++
	if p.analysisErr != nil {
		return core.ContentAnalysis{}, p.analysisErr
	}
	return p.analysis, nil
}

func TestAdaptCoversEveryRequestedPlatform(t *testing.T) {
	engine := NewEngine()
	platforms := []string{"x", "linkedin", "instagram", "facebook"}

	adapted, err := engine.Adapt(context.Background(), "release week #golang", platforms)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if len(adapted) != len(platforms) {
		t.Fatalf("expected %d variants, got %d", len(platforms), len(adapted))
	}
	for _, platform := range platforms {
		variant, ok := adapted[platform]
		if !ok {
			t.Fatalf("missing variant for %s", platform)
		}
		constraints, _ := DefaultConstraintTable().Lookup(platform)
		if got := utf8.RuneCountInString(variant.Text); got > constraints.MaxTextLength {
			t.Fatalf("%s variant exceeds limit: %d", platform, got)
		}
		if variant.OptimizationScore < 0 || variant.OptimizationScore > 1 {
			t.Fatalf("%s score out of range: %f", platform, variant.OptimizationScore)
		}
	}
}

func TestAdaptTruncatesForTightLimitOnly(t *testing.T) {
	engine := NewEngine()
	input := strings.TrimSpace(strings.Repeat("crossposting the launch thread today ", 11))
	if utf8.RuneCountInString(input) <= 280 {
		t.Fatalf("test input must exceed 280 characters")
	}

	adapted, err := engine.Adapt(context.Background(), input, []string{"x", "linkedin"})
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}

	short := adapted["x"]
	if got := utf8.RuneCountInString(short.Text); got > 280 {
		t.Fatalf("x variant exceeds limit: %d", got)
	}
	if !strings.HasSuffix(short.Text, "...") {
		t.Fatalf("expected ellipsis on truncated variant")
	}
	if !strings.Contains(short.Rationale, "truncated") {
		t.Fatalf("expected truncation rationale, got %q", short.Rationale)
	}

	long := adapted["linkedin"]
	if long.Text != input {
		t.Fatalf("3000 character platform must receive the unmodified input")
	}
}

func TestAdaptUnknownPlatformFailsBeforeAnyVariant(t *testing.T) {
	engine := NewEngine()
	_, err := engine.Adapt(context.Background(), "hello", []string{"x", "nowhere"})
	if err == nil || !strings.Contains(err.Error(), "no adaptation constraints") {
		t.Fatalf("expected constraint lookup error, got %v", err)
	}
}

func TestAdaptShortContentKeepsInputAndScoresBonuses(t *testing.T) {
	engine := NewEngine()
	input := "fifty characters of plain announcement text here."
	if utf8.RuneCountInString(input) != 49 {
		t.Fatalf("fixture drifted: %d chars", utf8.RuneCountInString(input))
	}

	adapted, err := engine.Adapt(context.Background(), input, []string{"x", "linkedin"})
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	for _, platform := range []string{"x", "linkedin"} {
		variant := adapted[platform]
		if variant.Text != input {
			t.Fatalf("%s variant should equal the input, got %q", platform, variant.Text)
		}
		// Baseline 0.7 plus the within-limit bonus; no hashtags, no change.
		if variant.OptimizationScore != 0.8 {
			t.Fatalf("%s score: expected 0.80, got %.2f", platform, variant.OptimizationScore)
		}
		if variant.Estimate.Confidence != 0.7 {
			t.Fatalf("%s estimate confidence: expected default 0.7, got %.2f", platform, variant.Estimate.Confidence)
		}
	}
}

func TestAdaptHashtagAndMentionBounds(t *testing.T) {
	engine := NewEngine()
	text := "ship it #a #b #c #d #e #f #g with @u1 @u2 @u3 @u4 @u5 @u6"

	adapted, err := engine.Adapt(context.Background(), text, []string{"x"})
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	variant := adapted["x"]
	if len(variant.Hashtags) != 5 {
		t.Fatalf("expected 5 hashtags, got %v", variant.Hashtags)
	}
	if variant.Hashtags[0] != "a" || variant.Hashtags[4] != "e" {
		t.Fatalf("expected first five hashtags in order, got %v", variant.Hashtags)
	}
	if len(variant.Mentions) != 5 {
		t.Fatalf("expected 5 mentions, got %v", variant.Mentions)
	}
}

func TestAdaptUsesAnalyzerEstimateWhenAvailable(t *testing.T) {
	provider := &analyzerProvider{
		platform: "x",
		analysis: core.ContentAnalysis{
			EstimatedReach:       10000,
			EngagementPrediction: 0.05,
			Confidence:           0.9,
		},
	}
	registry := core.NewPlatformRegistry()
	if err := registry.Register(provider); err != nil {
		t.Fatalf("register provider: %v", err)
	}
	engine := NewEngine(WithRegistry(registry))

	variant, err := engine.AdaptForPlatform(context.Background(), "analyzer backed post", "x")
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected one analyzer call, got %d", provider.calls)
	}
	if variant.Estimate.Views != 10000 || variant.Estimate.Confidence != 0.9 {
		t.Fatalf("expected analyzer-derived estimate, got %+v", variant.Estimate)
	}
	if variant.Estimate.Likes == 0 {
		t.Fatalf("expected derived interaction counts, got %+v", variant.Estimate)
	}
}

func TestAdaptFallsBackToDefaultEstimateOnAnalyzerError(t *testing.T) {
	provider := &analyzerProvider{platform: "x", analysisErr: context.DeadlineExceeded}
	registry := core.NewPlatformRegistry()
	if err := registry.Register(provider); err != nil {
		t.Fatalf("register provider: %v", err)
	}
	engine := NewEngine(WithRegistry(registry))

	variant, err := engine.AdaptForPlatform(context.Background(), "post", "x")
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if variant.Estimate != defaultEstimate() {
		t.Fatalf("expected default estimate fallback, got %+v", variant.Estimate)
	}
}

func TestBuildCampaignProducesExecutableDraft(t *testing.T) {
	engine := NewEngine()
	campaign, err := engine.BuildCampaign(context.Background(), BuildCampaignRequest{
		TenantID:        "tenant-1",
		Name:            "Launch",
		BaseContent:     "launch announcement #golang",
		TargetPlatforms: []string{"x", "linkedin"},
	})
	if err != nil {
		t.Fatalf("build campaign: %v", err)
	}
	if campaign.Status != core.CampaignStatusDraft {
		t.Fatalf("expected draft status, got %s", campaign.Status)
	}
	if campaign.Strategy.Kind != core.StrategySimultaneous {
		t.Fatalf("expected default simultaneous strategy, got %s", campaign.Strategy.Kind)
	}
	if err := campaign.ValidateAdaptedCoverage(); err != nil {
		t.Fatalf("adapted coverage: %v", err)
	}
}

func TestReadaptRegeneratesVariantsAndRejectsTerminal(t *testing.T) {
	engine := NewEngine()
	campaign, err := engine.BuildCampaign(context.Background(), BuildCampaignRequest{
		TenantID:        "tenant-1",
		BaseContent:     "original copy",
		TargetPlatforms: []string{"x"},
	})
	if err != nil {
		t.Fatalf("build campaign: %v", err)
	}

	updated, err := engine.Readapt(context.Background(), campaign, "fresh copy #relaunch")
	if err != nil {
		t.Fatalf("readapt: %v", err)
	}
	if updated.BaseContent != "fresh copy #relaunch" {
		t.Fatalf("base content not replaced")
	}
	if !strings.Contains(updated.AdaptedContent["x"].Text, "fresh copy") {
		t.Fatalf("variant not regenerated: %q", updated.AdaptedContent["x"].Text)
	}

	campaign.Status = core.CampaignStatusCompleted
	if _, err := engine.Readapt(context.Background(), campaign, "too late"); err == nil {
		t.Fatalf("expected terminal campaign edit to fail")
	}
}
