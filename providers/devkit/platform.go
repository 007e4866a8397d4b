// Package devkit ships scriptable platform fakes for downstream consumers.
// A FakePlatform implements the full capability surface (auth, publishing,
// content analysis, post metrics) so application code can run end to end
// without real platform credentials.
package devkit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-broadcast/core"
)

// PublishScript controls one Publish call. Scripts are consumed in call
// order; once exhausted, the last script repeats.
type PublishScript struct {
	Result core.PublishResult
	Err    error
}

// AnalysisScript controls one AnalyzeContent call, same ordering rules as
// PublishScript.
type AnalysisScript struct {
	Analysis core.ContentAnalysis
	Err      error
}

// FakePlatform is a scriptable in-memory platform. The zero value is not
// usable; construct it with NewFakePlatform.
type FakePlatform struct {
	name     string
	proofKey bool

	mu              sync.Mutex
	profile         core.AccountProfile
	exchangeErr     error
	refreshErr      error
	revokeErr       error
	connectionErr   error
	publishScripts  []PublishScript
	analysisScripts []AnalysisScript
	metricsByPost   map[string]core.PostMetrics

	publishCalls  int
	analysisCalls int
	refreshCalls  int
	revokedTokens []string
	published     []core.PublishRequest
}

type Option func(*FakePlatform)

func WithProofKey() Option {
	return func(p *FakePlatform) { p.proofKey = true }
}

func WithProfile(profile core.AccountProfile) Option {
	return func(p *FakePlatform) { p.profile = profile }
}

func WithPublishScripts(scripts ...PublishScript) Option {
	return func(p *FakePlatform) { p.publishScripts = scripts }
}

func WithAnalysisScripts(scripts ...AnalysisScript) Option {
	return func(p *FakePlatform) { p.analysisScripts = scripts }
}

func WithPostMetrics(postID string, metrics core.PostMetrics) Option {
	return func(p *FakePlatform) { p.metricsByPost[postID] = metrics }
}

func WithExchangeError(err error) Option {
	return func(p *FakePlatform) { p.exchangeErr = err }
}

func WithRefreshError(err error) Option {
	return func(p *FakePlatform) { p.refreshErr = err }
}

func WithRevokeError(err error) Option {
	return func(p *FakePlatform) { p.revokeErr = err }
}

func WithConnectionError(err error) Option {
	return func(p *FakePlatform) { p.connectionErr = err }
}

func NewFakePlatform(name string, opts ...Option) *FakePlatform {
	platform := &FakePlatform{
		name:          strings.ToLower(strings.TrimSpace(name)),
		metricsByPost: map[string]core.PostMetrics{},
		profile: core.AccountProfile{
			AccountID:   "devkit-" + name,
			DisplayName: "Devkit " + name,
			Username:    "devkit_" + name,
		},
	}
	for _, opt := range opts {
		opt(platform)
	}
	return platform
}

func (p *FakePlatform) Platform() string { return p.name }

func (p *FakePlatform) RequiresProofKey() bool { return p.proofKey }

func (p *FakePlatform) BeginAuth(_ context.Context, req core.BeginAuthRequest) (core.BeginAuthResponse, error) {
	return core.BeginAuthResponse{
		URL:    "https://" + p.name + ".devkit.invalid/authorize?state=" + req.State,
		State:  req.State,
		Scopes: append([]string(nil), req.Scopes...),
	}, nil
}

func (p *FakePlatform) ExchangeCode(_ context.Context, req core.ExchangeCodeRequest) (core.TokenPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exchangeErr != nil {
		return core.TokenPair{}, p.exchangeErr
	}
	expires := time.Now().UTC().Add(time.Hour)
	return core.TokenPair{
		AccessToken:  "devkit-access-" + req.Code,
		RefreshToken: "devkit-refresh-" + req.Code,
		TokenType:    "Bearer",
		ExpiresAt:    &expires,
	}, nil
}

func (p *FakePlatform) FetchProfile(context.Context, string) (core.AccountProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profile, nil
}

func (p *FakePlatform) RefreshToken(_ context.Context, refreshToken string) (core.TokenPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.refreshErr != nil {
		return core.TokenPair{}, p.refreshErr
	}
	expires := time.Now().UTC().Add(time.Hour)
	return core.TokenPair{
		AccessToken:  fmt.Sprintf("devkit-access-refreshed-%d", p.refreshCalls),
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    &expires,
	}, nil
}

func (p *FakePlatform) RevokeToken(_ context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.revokeErr != nil {
		return p.revokeErr
	}
	p.revokedTokens = append(p.revokedTokens, accessToken)
	return nil
}

func (p *FakePlatform) TestConnection(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectionErr
}

func (p *FakePlatform) Publish(_ context.Context, req core.PublishRequest) (core.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, clonePublishRequest(req))
	index := p.publishCalls
	p.publishCalls++

	if len(p.publishScripts) == 0 {
		return core.PublishResult{
			PostID: fmt.Sprintf("devkit-%s-%d", p.name, index+1),
			URL:    fmt.Sprintf("https://%s.devkit.invalid/posts/%d", p.name, index+1),
		}, nil
	}
	if index >= len(p.publishScripts) {
		index = len(p.publishScripts) - 1
	}
	script := p.publishScripts[index]
	if script.Err != nil {
		return core.PublishResult{}, script.Err
	}
	return script.Result, nil
}

func (p *FakePlatform) AnalyzeContent(context.Context, string) (core.ContentAnalysis, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	index := p.analysisCalls
	p.analysisCalls++

	if len(p.analysisScripts) == 0 {
		return core.ContentAnalysis{
			EstimatedReach:       1000,
			EngagementPrediction: 0.05,
			Confidence:           0.9,
		}, nil
	}
	if index >= len(p.analysisScripts) {
		index = len(p.analysisScripts) - 1
	}
	script := p.analysisScripts[index]
	if script.Err != nil {
		return core.ContentAnalysis{}, script.Err
	}
	return script.Analysis, nil
}

func (p *FakePlatform) PostMetrics(_ context.Context, _ string, postID string) (core.PostMetrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	metrics, ok := p.metricsByPost[postID]
	if !ok {
		return core.PostMetrics{}, fmt.Errorf("devkit: no metrics scripted for post %q", postID)
	}
	return metrics, nil
}

// Published returns a copy of every publish request seen so far.
func (p *FakePlatform) Published() []core.PublishRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.PublishRequest, len(p.published))
	for i, req := range p.published {
		out[i] = clonePublishRequest(req)
	}
	return out
}

func (p *FakePlatform) RevokedTokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.revokedTokens...)
}

func (p *FakePlatform) RefreshCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshCalls
}

func clonePublishRequest(req core.PublishRequest) core.PublishRequest {
	cloned := req
	cloned.Hashtags = append([]string(nil), req.Hashtags...)
	cloned.Mentions = append([]string(nil), req.Mentions...)
	cloned.MediaRefs = append([]string(nil), req.MediaRefs...)
	return cloned
}

var (
	_ core.AuthProvider    = (*FakePlatform)(nil)
	_ core.Publisher       = (*FakePlatform)(nil)
	_ core.ContentAnalyzer = (*FakePlatform)(nil)
	_ core.MetricsReader   = (*FakePlatform)(nil)
)
