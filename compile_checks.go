package broadcast

import (
	"github.com/goliatone/go-broadcast/core"
	broadcastquery "github.com/goliatone/go-broadcast/query"
)

var (
	_ CredentialCommandQueryService          = (*core.Service)(nil)
	_ CampaignCommandQueryService            = (*Coordinator)(nil)
	_ broadcastquery.CoordinationEventReader = (*Coordinator)(nil)
)
