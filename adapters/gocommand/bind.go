package gocommand

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	broadcast "github.com/goliatone/go-broadcast"
	broadcastcommand "github.com/goliatone/go-broadcast/command"
	"github.com/goliatone/go-broadcast/core"
	broadcastquery "github.com/goliatone/go-broadcast/query"
)

// FacadeBinding holds the dispatcher subscriptions created by BindFacade so
// callers can tear the whole surface down at once.
type FacadeBinding struct {
	subscriptions []commanddispatcher.Subscription
}

func (b *FacadeBinding) Unsubscribe() {
	if b == nil {
		return
	}
	for _, subscription := range b.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	b.subscriptions = nil
}

// BindFacade registers and subscribes every broadcast command and query on
// the adapter. The caller still owns Initialize; binding stops at the first
// failure and unwinds everything already subscribed.
func BindFacade(
	adapter *RegistryAdapter,
	facade *broadcast.Facade,
	runnerOpts ...runner.Option,
) (*FacadeBinding, error) {
	if adapter == nil {
		return nil, fmt.Errorf("gocommand: registry adapter is required")
	}
	if facade == nil {
		return nil, fmt.Errorf("gocommand: facade is required")
	}

	binding := &FacadeBinding{}
	add := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			binding.Unsubscribe()
			return err
		}
		binding.subscriptions = append(binding.subscriptions, subscription)
		return nil
	}

	commands := facade.Commands()
	if err := add(RegisterAndSubscribe[broadcastcommand.InitiateOAuthMessage](adapter, commands.InitiateOAuth, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribe[broadcastcommand.CompleteCallbackMessage](adapter, commands.CompleteCallback, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribe[broadcastcommand.RefreshTokenMessage](adapter, commands.RefreshToken, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribe[broadcastcommand.RevokeTokenMessage](adapter, commands.RevokeToken, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribe[broadcastcommand.CreateCampaignMessage](adapter, commands.CreateCampaign, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribe[broadcastcommand.UpdateCampaignContentMessage](adapter, commands.UpdateCampaignContent, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribe[broadcastcommand.ScheduleCampaignMessage](adapter, commands.ScheduleCampaign, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribe[broadcastcommand.ExecuteCampaignMessage](adapter, commands.ExecuteCampaign, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribe[broadcastcommand.CancelCampaignMessage](adapter, commands.CancelCampaign, runnerOpts...)); err != nil {
		return nil, err
	}

	queries := facade.Queries()
	if err := add(RegisterAndSubscribeQuery[broadcastquery.GetValidTokenMessage, core.ActiveToken](adapter, queries.GetValidToken, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[broadcastquery.ListConnectedAccountsMessage, []core.TenantToken](adapter, queries.ListConnectedAccounts, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[broadcastquery.GetCampaignMessage, core.Campaign](adapter, queries.GetCampaign, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[broadcastquery.ListCampaignsMessage, []core.Campaign](adapter, queries.ListCampaigns, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[broadcastquery.ListCoordinationEventsMessage, []core.CoordinationEvent](adapter, queries.ListCoordinationEvents, runnerOpts...)); err != nil {
		return nil, err
	}

	return binding, nil
}
