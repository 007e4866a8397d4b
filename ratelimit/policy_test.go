package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-broadcast/core"
)

func testPolicy(now time.Time) (*AdaptivePolicy, *MemoryStateStore) {
	store := NewMemoryStateStore()
	policy := NewAdaptivePolicy(store)
	policy.Now = func() time.Time { return now }
	return policy, store
}

func publishKey() Key {
	return Key{Platform: "x", TenantID: "tenant-1", Bucket: BucketPublish}
}

func TestAdaptivePolicyAllowsUnknownBucket(t *testing.T) {
	policy, _ := testPolicy(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	if err := policy.BeforeCall(context.Background(), publishKey()); err != nil {
		t.Fatalf("expected unknown bucket to pass, got %v", err)
	}
}

func TestAdaptivePolicyThrottlesOnTooManyRequests(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy, _ := testPolicy(now)

	err := policy.AfterCall(ctx, publishKey(), ResponseMeta{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]string{"Retry-After": "30"},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}

	err = policy.BeforeCall(ctx, publishKey())
	var throttled ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected throttled error, got %v", err)
	}
	if throttled.RetryAfter != 30*time.Second {
		t.Fatalf("expected 30s retry hint, got %s", throttled.RetryAfter)
	}
	if throttled.Platform != "x" || throttled.Bucket != BucketPublish {
		t.Fatalf("unexpected throttle identity: %#v", throttled)
	}
}

func TestAdaptivePolicyThrottlesOnExhaustedBudget(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy, _ := testPolicy(now)

	err := policy.AfterCall(ctx, publishKey(), ResponseMeta{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"x-ratelimit-limit":     "300",
			"x-ratelimit-remaining": "0",
			"x-ratelimit-reset":     strconv.FormatInt(now.Add(90*time.Second).Unix(), 10),
		},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}

	var throttled ThrottledError
	if err := policy.BeforeCall(ctx, publishKey()); !errors.As(err, &throttled) {
		t.Fatalf("expected exhausted budget to throttle, got %v", err)
	}
}

func TestAdaptivePolicyClearsAfterHealthyResponse(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy, store := testPolicy(now)

	if err := policy.AfterCall(ctx, publishKey(), ResponseMeta{
		StatusCode: http.StatusTooManyRequests,
	}); err != nil {
		t.Fatalf("throttle: %v", err)
	}
	if err := policy.AfterCall(ctx, publishKey(), ResponseMeta{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"x-ratelimit-remaining": "120"},
	}); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if err := policy.BeforeCall(ctx, publishKey()); err != nil {
		t.Fatalf("expected cleared bucket to pass, got %v", err)
	}
	state, err := store.Get(ctx, publishKey())
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if state.Attempts != 0 || state.ThrottledUntil != nil {
		t.Fatalf("expected throttle cleared, got %#v", state)
	}
	if state.Remaining != 120 {
		t.Fatalf("expected remaining budget learned, got %d", state.Remaining)
	}
}

func TestAdaptivePolicyBacksOffExponentiallyWithoutHint(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy, store := testPolicy(now)
	policy.InitialBackoff = time.Second
	policy.MaxBackoff = 4 * time.Second

	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for i, want := range expected {
		if err := policy.AfterCall(ctx, publishKey(), ResponseMeta{
			StatusCode: http.StatusTooManyRequests,
		}); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		state, err := store.Get(ctx, publishKey())
		if err != nil {
			t.Fatalf("read state: %v", err)
		}
		if state.ThrottledUntil == nil {
			t.Fatalf("attempt %d: expected hold", i+1)
		}
		if got := state.ThrottledUntil.Sub(now); got != want {
			t.Fatalf("attempt %d: expected %s hold, got %s", i+1, want, got)
		}
	}
}

func TestAdaptivePolicyParsesRetryAfterDate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy, store := testPolicy(now)

	retryAt := now.Add(2 * time.Minute)
	err := policy.AfterCall(ctx, publishKey(), ResponseMeta{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]string{"Retry-After": retryAt.Format(time.RFC1123)},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}

	state, err := store.Get(ctx, publishKey())
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if state.ThrottledUntil == nil || !state.ThrottledUntil.Equal(retryAt) {
		t.Fatalf("expected hold until %s, got %#v", retryAt, state.ThrottledUntil)
	}
}

func TestAdaptivePolicyIgnoresServerErrors(t *testing.T) {
	ctx := context.Background()
	policy, _ := testPolicy(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	if err := policy.AfterCall(ctx, publishKey(), ResponseMeta{
		StatusCode: http.StatusBadGateway,
	}); err != nil {
		t.Fatalf("after call: %v", err)
	}
	if err := policy.BeforeCall(ctx, publishKey()); err != nil {
		t.Fatalf("expected server error not to throttle, got %v", err)
	}
}

func TestThrottledErrorEnvelope(t *testing.T) {
	throttled := ThrottledError{
		Platform:   "x",
		TenantID:   "tenant-1",
		Bucket:     BucketPublish,
		RetryAfter: 15 * time.Second,
	}

	rich := throttled.ToBroadcastError()
	if rich.Category != goerrors.CategoryRateLimit {
		t.Fatalf("expected rate limit category, got %s", rich.Category)
	}
	if rich.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rich.Code)
	}
	if rich.TextCode != core.BroadcastErrorRateLimited {
		t.Fatalf("expected %s, got %s", core.BroadcastErrorRateLimited, rich.TextCode)
	}
	if rich.Metadata["retry_after_ms"] != int64(15000) {
		t.Fatalf("expected retry hint metadata, got %#v", rich.Metadata)
	}
}

func TestMemoryStateStoreNormalizesKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	err := store.Upsert(ctx, State{
		Key:       Key{Platform: " X ", TenantID: "tenant-1", Bucket: " Publish "},
		Remaining: 7,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	state, err := store.Get(ctx, publishKey())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state.Remaining != 7 {
		t.Fatalf("expected stored state, got %#v", state)
	}

	if _, err := store.Get(ctx, Key{Platform: "linkedin", TenantID: "tenant-1", Bucket: BucketPublish}); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
