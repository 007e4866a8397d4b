package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-broadcast/core"
)

// fakeClock advances instantly on Sleep so strategy timing is observable
// without real waits.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) recordedSleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakePlatform implements the auth surface plus publishing; post metrics are
// exposed only when metrics is set.
type fakePlatform struct {
	platform   string
	publishErr error
	onPublish  func()

	mu        sync.Mutex
	published []core.PublishRequest
	order     *dispatchOrder
}

func (p *fakePlatform) Platform() string       { return p.platform }
func (p *fakePlatform) RequiresProofKey() bool { return false }

func (p *fakePlatform) BeginAuth(context.Context, core.BeginAuthRequest) (core.BeginAuthResponse, error) {
	return core.BeginAuthResponse{}, nil
}

func (p *fakePlatform) ExchangeCode(context.Context, core.ExchangeCodeRequest) (core.TokenPair, error) {
	return core.TokenPair{}, nil
}

func (p *fakePlatform) FetchProfile(context.Context, string) (core.AccountProfile, error) {
	return core.AccountProfile{}, nil
}

func (p *fakePlatform) RefreshToken(context.Context, string) (core.TokenPair, error) {
	return core.TokenPair{}, nil
}

func (p *fakePlatform) RevokeToken(context.Context, string) error { return nil }

func (p *fakePlatform) TestConnection(context.Context, string) error { return nil }

func (p *fakePlatform) Publish(_ context.Context, req core.PublishRequest) (core.PublishResult, error) {
	p.mu.Lock()
	p.published = append(p.published, req)
	p.mu.Unlock()
	if p.order != nil {
		p.order.append(p.platform)
	}
	if p.onPublish != nil {
		p.onPublish()
	}
	if p.publishErr != nil {
		return core.PublishResult{}, p.publishErr
	}
	return core.PublishResult{
		PostID: "post-" + p.platform,
		URL:    "https://" + p.platform + ".example/post-" + p.platform,
	}, nil
}

func (p *fakePlatform) publishCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// metricsPlatform layers post metrics on top of the publishing fake.
type metricsPlatform struct {
	fakePlatform
	metrics core.PostMetrics
}

func (p *metricsPlatform) PostMetrics(context.Context, string, string) (core.PostMetrics, error) {
	return p.metrics, nil
}

type dispatchOrder struct {
	mu   sync.Mutex
	seen []string
}

func newDispatchOrder() *dispatchOrder {
	return &dispatchOrder{}
}

func (o *dispatchOrder) append(platform string) {
	o.mu.Lock()
	o.seen = append(o.seen, platform)
	o.mu.Unlock()
}

func (o *dispatchOrder) sequence() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.seen...)
}

type fakeTokenSource struct {
	mu     sync.Mutex
	fail   map[string]error
	issued []string
}

func newFakeTokenSource() *fakeTokenSource {
	return &fakeTokenSource{fail: map[string]error{}}
}

func (s *fakeTokenSource) GetValidPlatformToken(_ context.Context, tenantID string, platform string) (core.ActiveToken, error) {
	s.mu.Lock()
	s.issued = append(s.issued, platform)
	s.mu.Unlock()
	if err := s.fail[platform]; err != nil {
		return core.ActiveToken{}, err
	}
	return core.ActiveToken{
		Token: core.TenantToken{TenantID: tenantID, Platform: platform, AccountID: "acct-" + platform},
		Pair:  core.TokenPair{AccessToken: "token-" + platform},
	}, nil
}

type testFailer interface {
	Fatalf(string, ...any)
	Helper()
}

func buildCampaign(t testFailer, platforms []string, strategy core.CoordinationStrategy) core.Campaign {
	t.Helper()
	adapted := make(map[string]core.AdaptedContent, len(platforms))
	for _, platform := range platforms {
		adapted[platform] = core.AdaptedContent{
			Platform: platform,
			Text:     "adapted for " + platform,
			Hashtags: []string{"launch"},
		}
	}
	if strategy.Kind == "" {
		strategy.Kind = core.StrategySimultaneous
	}
	campaign := core.Campaign{
		ID:              "camp-1",
		TenantID:        "tenant-1",
		Name:            "Launch",
		BaseContent:     "base content",
		TargetPlatforms: append([]string(nil), platforms...),
		AdaptedContent:  adapted,
		Strategy:        strategy,
		Status:          core.CampaignStatusDraft,
	}
	if err := campaign.Validate(); err != nil {
		t.Fatalf("campaign fixture invalid: %v", err)
	}
	return campaign
}

func newTestExecutor(t testFailer, clock Clock, providers ...core.AuthProvider) (*Executor, *fakeTokenSource, *core.MemoryCoordinationEventSink) {
	t.Helper()
	registry := core.NewPlatformRegistry()
	for _, provider := range providers {
		if err := registry.Register(provider); err != nil {
			t.Fatalf("register provider: %v", err)
		}
	}
	tokens := newFakeTokenSource()
	events := core.NewMemoryCoordinationEventSink()
	executor, err := NewExecutor(
		WithRegistry(registry),
		WithTokenSource(tokens),
		WithEventSink(events),
		WithClock(clock),
	)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	return executor, tokens, events
}

func errContains(err error, fragment string) bool {
	return err != nil && strings.Contains(err.Error(), fragment)
}
