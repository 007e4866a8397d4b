package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-broadcast/core"
)

// stubGate holds back configured platforms and records observations.
type stubGate struct {
	mu       sync.Mutex
	held     map[string]error
	observed []string
}

func newStubGate() *stubGate {
	return &stubGate{held: map[string]error{}}
}

func (g *stubGate) hold(platform string, err error) {
	g.mu.Lock()
	g.held[platform] = err
	g.mu.Unlock()
}

func (g *stubGate) BeforeDispatch(_ context.Context, _ string, platform string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[platform]
}

func (g *stubGate) AfterDispatch(_ context.Context, _ string, platform string, _ core.PublishResult, _ error) {
	g.mu.Lock()
	g.observed = append(g.observed, platform)
	g.mu.Unlock()
}

func (g *stubGate) observations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.observed...)
}

func TestExecuteHeldPlatformFailsInIsolation(t *testing.T) {
	clock := newFakeClock()
	x := &fakePlatform{platform: "x"}
	linkedin := &fakePlatform{platform: "linkedin"}
	executor, _, _ := newTestExecutor(t, clock, x, linkedin)

	gate := newStubGate()
	gate.hold("x", goerrors.New("publish budget exhausted", goerrors.CategoryRateLimit).
		WithTextCode(core.BroadcastErrorRateLimited))
	WithPublishGate(gate)(executor)

	campaign := buildCampaign(t, []string{"x", "linkedin"},
		core.CoordinationStrategy{Kind: core.StrategySimultaneous})

	result, err := executor.Execute(context.Background(), campaign)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.Status != core.CampaignStatusCompleted {
		t.Fatalf("expected completed with surviving target, got %s", result.Status)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected one held target error, got %d", len(result.Errors))
	}

	heldOutcome := result.Outcomes["x"]
	if heldOutcome.Success || heldOutcome.Err == nil {
		t.Fatalf("expected held outcome to fail, got %#v", heldOutcome)
	}
	var rich *goerrors.Error
	if !errors.As(heldOutcome.Err, &rich) || rich.TextCode != core.BroadcastErrorRateLimited {
		t.Fatalf("expected rate limited envelope, got %v", heldOutcome.Err)
	}
	if !result.Outcomes["linkedin"].Success {
		t.Fatalf("expected other target unaffected, got %#v", result.Outcomes["linkedin"])
	}

	if x.publishCount() != 0 {
		t.Fatalf("expected held platform never published, got %d", x.publishCount())
	}
	if linkedin.publishCount() != 1 {
		t.Fatalf("expected one publish to surviving platform, got %d", linkedin.publishCount())
	}
}

func TestExecuteFeedsGateObservations(t *testing.T) {
	clock := newFakeClock()
	x := &fakePlatform{platform: "x"}
	linkedin := &fakePlatform{platform: "linkedin", publishErr: errors.New("boom")}
	executor, _, _ := newTestExecutor(t, clock, x, linkedin)

	gate := newStubGate()
	WithPublishGate(gate)(executor)

	campaign := buildCampaign(t, []string{"x", "linkedin"},
		core.CoordinationStrategy{Kind: core.StrategySimultaneous})

	if _, err := executor.Execute(context.Background(), campaign); err != nil {
		t.Fatalf("execute: %v", err)
	}

	observed := gate.observations()
	if len(observed) != 2 {
		t.Fatalf("expected gate to observe both calls, failed one included, got %v", observed)
	}
}
