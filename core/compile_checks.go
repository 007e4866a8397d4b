package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Registry              = (*PlatformRegistry)(nil)
	_ OAuthStateStore       = (*MemoryOAuthStateStore)(nil)
	_ TokenStore            = (*MemoryTokenStore)(nil)
	_ CampaignStore         = (*MemoryCampaignStore)(nil)
	_ CoordinationEventSink = (*MemoryCoordinationEventSink)(nil)
	_ AccountLocker         = (*MemoryAccountLocker)(nil)
	_ TokenCodec            = JSONTokenCodec{}
	_ TokenCodec            = LegacyTokenCodec{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
