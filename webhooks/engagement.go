package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-broadcast/core"
	"github.com/goliatone/go-broadcast/inbound"
)

// EngagementPayload is the body platforms post when a published post picks
// up activity.
type EngagementPayload struct {
	PostID    string            `json:"post_id"`
	AccountID string            `json:"account_id"`
	Events    []EngagementDelta `json:"events"`
}

type EngagementDelta struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

const (
	EngagementKindLike    = "like"
	EngagementKindShare   = "share"
	EngagementKindComment = "comment"
	EngagementKindView    = "view"
)

// EngagementHandler resolves which campaign a delivery belongs to through the
// post id stamped on dispatch events, then appends an engagement event to
// that campaign's history.
type EngagementHandler struct {
	Events core.CoordinationEventSink
	Logger core.Logger
	Now    func() time.Time
}

func NewEngagementHandler(events core.CoordinationEventSink) (*EngagementHandler, error) {
	if events == nil {
		return nil, fmt.Errorf("webhooks: coordination event sink is required")
	}
	return &EngagementHandler{
		Events: events,
		Logger: glog.Ensure(nil),
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (h *EngagementHandler) Handle(ctx context.Context, req inbound.Request) (inbound.Result, error) {
	if h == nil || h.Events == nil {
		return inbound.Result{}, fmt.Errorf("webhooks: engagement handler is not configured")
	}

	var payload EngagementPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return inbound.Result{}, fmt.Errorf("webhooks: decode engagement payload: %w", err)
	}
	payload.PostID = strings.TrimSpace(payload.PostID)
	if payload.PostID == "" {
		return inbound.Result{}, fmt.Errorf("webhooks: engagement payload requires post_id")
	}
	if len(payload.Events) == 0 {
		return inbound.Result{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Metadata:   map[string]any{"post_id": payload.PostID, "empty": true},
		}, nil
	}

	campaignID, tenantID, found, err := h.resolveCampaign(ctx, req.Platform, payload.PostID)
	if err != nil {
		return inbound.Result{}, err
	}
	if !found {
		// Posts published outside a campaign still generate webhooks; accept
		// so the platform does not redeliver.
		h.logger().Debug("engagement delivery did not match a campaign",
			"platform", req.Platform, "post_id", payload.PostID)
		return inbound.Result{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Metadata:   map[string]any{"post_id": payload.PostID, "unmatched": true},
		}, nil
	}

	var likes, shares, comments, views int64
	for _, delta := range payload.Events {
		switch strings.TrimSpace(strings.ToLower(delta.Kind)) {
		case EngagementKindLike:
			likes += delta.Count
		case EngagementKindShare:
			shares += delta.Count
		case EngagementKindComment:
			comments += delta.Count
		case EngagementKindView:
			views += delta.Count
		}
	}

	event := core.CoordinationEvent{
		CampaignID: campaignID,
		TenantID:   tenantID,
		Platform:   req.Platform,
		EventType:  core.CoordinationEventEngagement,
		Status:     "received",
		Metadata: map[string]any{
			"post_id":  payload.PostID,
			"likes":    likes,
			"shares":   shares,
			"comments": comments,
			"views":    views,
		},
		OccurredAt: h.now(),
	}
	if err := h.Events.Record(ctx, event); err != nil {
		return inbound.Result{}, fmt.Errorf("webhooks: record engagement event: %w", err)
	}

	return inbound.Result{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata: map[string]any{
			"post_id":     payload.PostID,
			"campaign_id": campaignID,
		},
	}, nil
}

func (h *EngagementHandler) resolveCampaign(
	ctx context.Context,
	platform string,
	postID string,
) (campaignID string, tenantID string, found bool, err error) {
	events, err := h.Events.List(ctx, core.ListCoordinationEventsFilter{Platform: platform})
	if err != nil {
		return "", "", false, fmt.Errorf("webhooks: resolve campaign for post %q: %w", postID, err)
	}
	for _, event := range events {
		if event.EventType != core.CoordinationEventDispatchSucceeded {
			continue
		}
		if event.Metadata == nil {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(event.Metadata["post_id"])) == postID {
			return event.CampaignID, event.TenantID, true, nil
		}
	}
	return "", "", false, nil
}

func (h *EngagementHandler) logger() core.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return glog.Ensure(nil)
}

func (h *EngagementHandler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}
