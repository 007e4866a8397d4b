package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-broadcast/core"
)

var (
	_ gocmd.Querier[GetValidTokenMessage, core.ActiveToken]                  = (*GetValidTokenQuery)(nil)
	_ gocmd.Querier[ListConnectedAccountsMessage, []core.TenantToken]        = (*ListConnectedAccountsQuery)(nil)
	_ gocmd.Querier[GetCampaignMessage, core.Campaign]                       = (*GetCampaignQuery)(nil)
	_ gocmd.Querier[ListCampaignsMessage, []core.Campaign]                   = (*ListCampaignsQuery)(nil)
	_ gocmd.Querier[ListCoordinationEventsMessage, []core.CoordinationEvent] = (*ListCoordinationEventsQuery)(nil)
)
