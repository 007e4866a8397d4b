package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-broadcast/core"
)

// Metadata keys providers use to surface throttle signals on a publish
// result.
const (
	MetadataStatusCode = "status_code"
	MetadataHeaders    = "rate_limit_headers"
)

// PublishGate adapts the policy to the dispatch executor's gate contract:
// one check before each platform dispatch, one observation after.
type PublishGate struct {
	Policy *AdaptivePolicy
}

func NewPublishGate(policy *AdaptivePolicy) *PublishGate {
	return &PublishGate{Policy: policy}
}

func (g *PublishGate) BeforeDispatch(ctx context.Context, tenantID string, platform string) error {
	if g == nil || g.Policy == nil {
		return nil
	}
	err := g.Policy.BeforeCall(ctx, Key{Platform: platform, TenantID: tenantID, Bucket: BucketPublish})
	var throttled ThrottledError
	if errors.As(err, &throttled) {
		return throttled.ToBroadcastError()
	}
	return err
}

func (g *PublishGate) AfterDispatch(
	ctx context.Context,
	tenantID string,
	platform string,
	result core.PublishResult,
	callErr error,
) {
	if g == nil || g.Policy == nil {
		return
	}
	key := Key{Platform: platform, TenantID: tenantID, Bucket: BucketPublish}
	_ = g.Policy.AfterCall(ctx, key, publishResponseMeta(result, callErr))
}

// publishResponseMeta lifts throttle signals out of a publish result's
// metadata. A failed call with a rate limit envelope counts as a 429 even
// when the provider attached no headers.
func publishResponseMeta(result core.PublishResult, callErr error) ResponseMeta {
	meta := ResponseMeta{StatusCode: http.StatusOK}
	if callErr != nil {
		meta.StatusCode = http.StatusBadGateway
		var rich *goerrors.Error
		if errors.As(callErr, &rich) {
			if rich.Code != 0 {
				meta.StatusCode = rich.Code
			}
			if rich.Category == goerrors.CategoryRateLimit {
				meta.StatusCode = http.StatusTooManyRequests
			}
		}
	}

	if len(result.Metadata) == 0 {
		return meta
	}
	if raw, ok := result.Metadata[MetadataStatusCode]; ok {
		if status, ok := toInt(raw); ok {
			meta.StatusCode = status
		}
	}
	if raw, ok := result.Metadata[MetadataHeaders]; ok {
		meta.Headers = toHeaderMap(raw)
	}
	return meta
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func toHeaderMap(value any) map[string]string {
	switch v := value.(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, val := range v {
			out[key] = val
		}
		return out
	case map[string]any:
		out := make(map[string]string, len(v))
		for key, val := range v {
			out[key] = fmt.Sprint(val)
		}
		return out
	}
	return nil
}
