package query

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-broadcast/core"
)

type stubTokenReader struct {
	getFn  func(context.Context, core.GetValidTokenRequest) (core.ActiveToken, error)
	listFn func(context.Context, string) ([]core.TenantToken, error)
}

func (s stubTokenReader) GetValidToken(ctx context.Context, req core.GetValidTokenRequest) (core.ActiveToken, error) {
	return s.getFn(ctx, req)
}

func (s stubTokenReader) ListConnectedAccounts(ctx context.Context, tenantID string) ([]core.TenantToken, error) {
	return s.listFn(ctx, tenantID)
}

type stubCampaignReader struct {
	getFn  func(context.Context, string, string) (core.Campaign, error)
	listFn func(context.Context, string) ([]core.Campaign, error)
}

func (s stubCampaignReader) GetCampaign(ctx context.Context, tenantID string, campaignID string) (core.Campaign, error) {
	return s.getFn(ctx, tenantID, campaignID)
}

func (s stubCampaignReader) ListCampaigns(ctx context.Context, tenantID string) ([]core.Campaign, error) {
	return s.listFn(ctx, tenantID)
}

type stubEventReader struct {
	listFn func(context.Context, core.ListCoordinationEventsFilter) ([]core.CoordinationEvent, error)
}

func (s stubEventReader) ListCoordinationEvents(
	ctx context.Context,
	filter core.ListCoordinationEventsFilter,
) ([]core.CoordinationEvent, error) {
	return s.listFn(ctx, filter)
}

func TestGetValidTokenQuery_DelegatesToReader(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	reader := stubTokenReader{
		getFn: func(_ context.Context, req core.GetValidTokenRequest) (core.ActiveToken, error) {
			if req.TenantID != "tenant-1" || req.Platform != "x" || req.AccountID != "acct-1" {
				t.Fatalf("unexpected request: %#v", req)
			}
			return core.ActiveToken{
				Token: core.TenantToken{AccountID: "acct-1", ExpiresAt: &expires},
				Pair:  core.TokenPair{AccessToken: "access-1"},
			}, nil
		},
	}

	result, err := NewGetValidTokenQuery(reader).Query(context.Background(), GetValidTokenMessage{
		Request: core.GetValidTokenRequest{TenantID: "tenant-1", Platform: "x", AccountID: "acct-1"},
	})
	if err != nil {
		t.Fatalf("query valid token: %v", err)
	}
	if result.Pair.AccessToken != "access-1" {
		t.Fatalf("unexpected token result: %#v", result)
	}
}

func TestListConnectedAccountsQuery_DelegatesToReader(t *testing.T) {
	reader := stubTokenReader{
		listFn: func(_ context.Context, tenantID string) ([]core.TenantToken, error) {
			if tenantID != "tenant-1" {
				t.Fatalf("unexpected tenant: %q", tenantID)
			}
			return []core.TenantToken{{AccountID: "acct-1"}, {AccountID: "acct-2"}}, nil
		},
	}

	accounts, err := NewListConnectedAccountsQuery(reader).Query(context.Background(), ListConnectedAccountsMessage{
		TenantID: "tenant-1",
	})
	if err != nil {
		t.Fatalf("query connected accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
}

func TestCampaignQueries_DelegateToReader(t *testing.T) {
	reader := stubCampaignReader{
		getFn: func(_ context.Context, tenantID string, campaignID string) (core.Campaign, error) {
			if tenantID != "tenant-1" || campaignID != "camp-1" {
				t.Fatalf("unexpected get payload: %q %q", tenantID, campaignID)
			}
			return core.Campaign{ID: campaignID, Status: core.CampaignStatusDraft}, nil
		},
		listFn: func(_ context.Context, tenantID string) ([]core.Campaign, error) {
			return []core.Campaign{{ID: "camp-1"}}, nil
		},
	}

	campaign, err := NewGetCampaignQuery(reader).Query(context.Background(), GetCampaignMessage{
		TenantID:   "tenant-1",
		CampaignID: "camp-1",
	})
	if err != nil {
		t.Fatalf("query campaign: %v", err)
	}
	if campaign.ID != "camp-1" {
		t.Fatalf("unexpected campaign: %#v", campaign)
	}

	campaigns, err := NewListCampaignsQuery(reader).Query(context.Background(), ListCampaignsMessage{
		TenantID: "tenant-1",
	})
	if err != nil {
		t.Fatalf("list campaigns: %v", err)
	}
	if len(campaigns) != 1 {
		t.Fatalf("expected 1 campaign, got %d", len(campaigns))
	}
}

func TestListCoordinationEventsQuery_DelegatesToReader(t *testing.T) {
	reader := stubEventReader{
		listFn: func(_ context.Context, filter core.ListCoordinationEventsFilter) ([]core.CoordinationEvent, error) {
			if filter.CampaignID != "camp-1" || filter.Platform != "x" {
				t.Fatalf("unexpected filter: %#v", filter)
			}
			return []core.CoordinationEvent{{EventType: core.CoordinationEventDispatchSucceeded}}, nil
		},
	}

	events, err := NewListCoordinationEventsQuery(reader).Query(context.Background(), ListCoordinationEventsMessage{
		Filter: core.ListCoordinationEventsFilter{CampaignID: "camp-1", Platform: "x"},
	})
	if err != nil {
		t.Fatalf("list coordination events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

func TestQueries_NilReaderReturnsDependencyError(t *testing.T) {
	var tokenQuery *GetValidTokenQuery
	if _, err := tokenQuery.Query(context.Background(), GetValidTokenMessage{}); err == nil {
		t.Fatalf("expected dependency error for nil token query")
	}
	var campaignQuery *GetCampaignQuery
	if _, err := campaignQuery.Query(context.Background(), GetCampaignMessage{}); err == nil {
		t.Fatalf("expected dependency error for nil campaign query")
	}
}
