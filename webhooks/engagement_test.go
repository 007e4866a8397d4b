package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-broadcast/core"
	"github.com/goliatone/go-broadcast/inbound"
)

func seedDispatchEvent(t *testing.T, sink core.CoordinationEventSink, platform string, postID string) {
	t.Helper()
	err := sink.Record(context.Background(), core.CoordinationEvent{
		CampaignID: "camp-1",
		TenantID:   "tenant-1",
		Platform:   platform,
		EventType:  core.CoordinationEventDispatchSucceeded,
		Status:     "succeeded",
		Metadata:   map[string]any{"post_id": postID},
	})
	if err != nil {
		t.Fatalf("seed dispatch event: %v", err)
	}
}

func engagementRequest(body string) inbound.Request {
	return inbound.Request{
		Platform: "x",
		Surface:  inbound.SurfaceWebhook,
		Headers:  map[string]string{"X-Delivery-Id": "delivery-1"},
		Body:     []byte(body),
	}
}

func TestEngagementHandlerRecordsCampaignEngagement(t *testing.T) {
	sink := core.NewMemoryCoordinationEventSink()
	seedDispatchEvent(t, sink, "x", "post-1")

	handler, err := NewEngagementHandler(sink)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	handler.Now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	result, err := handler.Handle(context.Background(), engagementRequest(
		`{"post_id":"post-1","events":[
			{"kind":"like","count":4},
			{"kind":"share","count":2},
			{"kind":"like","count":1},
			{"kind":"view","count":90}
		]}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Accepted || result.Metadata["campaign_id"] != "camp-1" {
		t.Fatalf("unexpected result: %#v", result)
	}

	events, err := sink.List(context.Background(), core.ListCoordinationEventsFilter{CampaignID: "camp-1"})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	var engagement *core.CoordinationEvent
	for i := range events {
		if events[i].EventType == core.CoordinationEventEngagement {
			engagement = &events[i]
		}
	}
	if engagement == nil {
		t.Fatal("expected engagement event recorded")
	}
	if engagement.TenantID != "tenant-1" || engagement.Platform != "x" {
		t.Fatalf("unexpected event identity: %#v", engagement)
	}
	if engagement.Metadata["likes"] != int64(5) || engagement.Metadata["shares"] != int64(2) {
		t.Fatalf("expected summed deltas, got %#v", engagement.Metadata)
	}
	if engagement.Metadata["views"] != int64(90) || engagement.Metadata["comments"] != int64(0) {
		t.Fatalf("expected per-kind totals, got %#v", engagement.Metadata)
	}
}

func TestEngagementHandlerAcceptsUnmatchedPost(t *testing.T) {
	sink := core.NewMemoryCoordinationEventSink()
	handler, err := NewEngagementHandler(sink)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	result, err := handler.Handle(context.Background(), engagementRequest(
		`{"post_id":"post-unknown","events":[{"kind":"like","count":1}]}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Accepted || result.Metadata["unmatched"] != true {
		t.Fatalf("expected accepted unmatched result, got %#v", result)
	}

	events, err := sink.List(context.Background(), core.ListCoordinationEventsFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events recorded, got %d", len(events))
	}
}

func TestEngagementHandlerAcceptsEmptyDeltaList(t *testing.T) {
	sink := core.NewMemoryCoordinationEventSink()
	seedDispatchEvent(t, sink, "x", "post-1")
	handler, err := NewEngagementHandler(sink)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	result, err := handler.Handle(context.Background(), engagementRequest(`{"post_id":"post-1","events":[]}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Accepted || result.Metadata["empty"] != true {
		t.Fatalf("expected empty payload accepted, got %#v", result)
	}
}

func TestEngagementHandlerRejectsMalformedPayload(t *testing.T) {
	handler, err := NewEngagementHandler(core.NewMemoryCoordinationEventSink())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	if _, err := handler.Handle(context.Background(), engagementRequest(`{not json`)); err == nil {
		t.Fatal("expected malformed payload rejected")
	}
	if _, err := handler.Handle(context.Background(), engagementRequest(`{"events":[{"kind":"like","count":1}]}`)); err == nil {
		t.Fatal("expected missing post_id rejected")
	}
}

func TestNewEngagementHandlerRequiresSink(t *testing.T) {
	if _, err := NewEngagementHandler(nil); err == nil {
		t.Fatal("expected nil sink rejected")
	}
}
