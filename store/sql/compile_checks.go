package sqlstore

import "github.com/goliatone/go-broadcast/core"

var (
	_ core.TokenStore             = (*TokenStore)(nil)
	_ core.OAuthStateStore        = (*OAuthStateStore)(nil)
	_ core.CampaignStore          = (*CampaignStore)(nil)
	_ core.CoordinationEventSink  = (*CoordinationEventStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
