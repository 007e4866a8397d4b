package devkit

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-broadcast/core"
)

func TestFakePlatformPublishScriptsFallBackToLast(t *testing.T) {
	platform := NewFakePlatform("x", WithPublishScripts(
		PublishScript{Result: core.PublishResult{PostID: "post-1"}},
		PublishScript{Err: errors.New("rate limited")},
	))

	first, err := platform.Publish(context.Background(), core.PublishRequest{Text: "one"})
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if first.PostID != "post-1" {
		t.Fatalf("unexpected post id: %q", first.PostID)
	}

	for i := 0; i < 2; i++ {
		if _, err := platform.Publish(context.Background(), core.PublishRequest{Text: "again"}); err == nil {
			t.Fatalf("exhausted scripts must repeat the last one")
		}
	}
	if got := len(platform.Published()); got != 3 {
		t.Fatalf("expected 3 recorded publishes, got %d", got)
	}
}

func TestFakePlatformDefaultPublishResults(t *testing.T) {
	platform := NewFakePlatform("linkedin")
	result, err := platform.Publish(context.Background(), core.PublishRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.PostID != "devkit-linkedin-1" {
		t.Fatalf("unexpected default post id: %q", result.PostID)
	}
}

func TestFakePlatformExchangeAndRefresh(t *testing.T) {
	platform := NewFakePlatform("x", WithProofKey())
	if !platform.RequiresProofKey() {
		t.Fatalf("proof key option must stick")
	}

	pair, err := platform.ExchangeCode(context.Background(), core.ExchangeCodeRequest{Code: "abc"})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if pair.AccessToken != "devkit-access-abc" {
		t.Fatalf("unexpected access token: %q", pair.AccessToken)
	}

	refreshed, err := platform.RefreshToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken != pair.RefreshToken {
		t.Fatalf("refresh token must carry forward")
	}
	if platform.RefreshCalls() != 1 {
		t.Fatalf("expected one refresh call")
	}
}

func TestFakePlatformPostMetricsRequireScript(t *testing.T) {
	platform := NewFakePlatform("x", WithPostMetrics("post-1", core.PostMetrics{Views: 100, Likes: 10}))

	metrics, err := platform.PostMetrics(context.Background(), "token", "post-1")
	if err != nil {
		t.Fatalf("post metrics: %v", err)
	}
	if metrics.Views != 100 {
		t.Fatalf("unexpected views: %d", metrics.Views)
	}
	if _, err := platform.PostMetrics(context.Background(), "token", "missing"); err == nil {
		t.Fatalf("unscripted post must error")
	}
}

func TestFakePlatformRevokeRecordsTokens(t *testing.T) {
	platform := NewFakePlatform("x")
	if err := platform.RevokeToken(context.Background(), "access-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked := platform.RevokedTokens()
	if len(revoked) != 1 || revoked[0] != "access-1" {
		t.Fatalf("unexpected revoked tokens: %v", revoked)
	}
}
