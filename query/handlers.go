package query

import (
	"context"

	"github.com/goliatone/go-broadcast/core"
)

// TokenReader is the credential read surface the queries delegate to.
// *core.Service satisfies it.
type TokenReader interface {
	GetValidToken(ctx context.Context, req core.GetValidTokenRequest) (core.ActiveToken, error)
	ListConnectedAccounts(ctx context.Context, tenantID string) ([]core.TenantToken, error)
}

// CampaignReader is the campaign read surface. *broadcast.Coordinator
// satisfies it.
type CampaignReader interface {
	GetCampaign(ctx context.Context, tenantID string, campaignID string) (core.Campaign, error)
	ListCampaigns(ctx context.Context, tenantID string) ([]core.Campaign, error)
}

type CoordinationEventReader interface {
	ListCoordinationEvents(ctx context.Context, filter core.ListCoordinationEventsFilter) ([]core.CoordinationEvent, error)
}

type GetValidTokenQuery struct {
	reader TokenReader
}

func NewGetValidTokenQuery(reader TokenReader) *GetValidTokenQuery {
	return &GetValidTokenQuery{reader: reader}
}

func (q *GetValidTokenQuery) Query(ctx context.Context, msg GetValidTokenMessage) (core.ActiveToken, error) {
	if q == nil || q.reader == nil {
		return core.ActiveToken{}, queryDependencyError("query: token reader is required")
	}
	return q.reader.GetValidToken(ctx, msg.Request)
}

type ListConnectedAccountsQuery struct {
	reader TokenReader
}

func NewListConnectedAccountsQuery(reader TokenReader) *ListConnectedAccountsQuery {
	return &ListConnectedAccountsQuery{reader: reader}
}

func (q *ListConnectedAccountsQuery) Query(
	ctx context.Context,
	msg ListConnectedAccountsMessage,
) ([]core.TenantToken, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: token reader is required")
	}
	return q.reader.ListConnectedAccounts(ctx, msg.TenantID)
}

type GetCampaignQuery struct {
	reader CampaignReader
}

func NewGetCampaignQuery(reader CampaignReader) *GetCampaignQuery {
	return &GetCampaignQuery{reader: reader}
}

func (q *GetCampaignQuery) Query(ctx context.Context, msg GetCampaignMessage) (core.Campaign, error) {
	if q == nil || q.reader == nil {
		return core.Campaign{}, queryDependencyError("query: campaign reader is required")
	}
	return q.reader.GetCampaign(ctx, msg.TenantID, msg.CampaignID)
}

type ListCampaignsQuery struct {
	reader CampaignReader
}

func NewListCampaignsQuery(reader CampaignReader) *ListCampaignsQuery {
	return &ListCampaignsQuery{reader: reader}
}

func (q *ListCampaignsQuery) Query(ctx context.Context, msg ListCampaignsMessage) ([]core.Campaign, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: campaign reader is required")
	}
	return q.reader.ListCampaigns(ctx, msg.TenantID)
}

type ListCoordinationEventsQuery struct {
	reader CoordinationEventReader
}

func NewListCoordinationEventsQuery(reader CoordinationEventReader) *ListCoordinationEventsQuery {
	return &ListCoordinationEventsQuery{reader: reader}
}

func (q *ListCoordinationEventsQuery) Query(
	ctx context.Context,
	msg ListCoordinationEventsMessage,
) ([]core.CoordinationEvent, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: coordination event reader is required")
	}
	return q.reader.ListCoordinationEvents(ctx, msg.Filter)
}
