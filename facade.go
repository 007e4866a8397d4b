package broadcast

import (
	"fmt"

	broadcastcommand "github.com/goliatone/go-broadcast/command"
	broadcastquery "github.com/goliatone/go-broadcast/query"
)

// CredentialCommandQueryService is the credential surface the facade binds
// commands and queries to. *core.Service satisfies it.
type CredentialCommandQueryService interface {
	broadcastcommand.CredentialMutatingService
	broadcastquery.TokenReader
}

// CampaignCommandQueryService is the campaign surface the facade binds
// commands and queries to. *Coordinator satisfies it.
type CampaignCommandQueryService interface {
	broadcastcommand.CampaignMutatingService
	broadcastquery.CampaignReader
}

type Commands struct {
	InitiateOAuth         *broadcastcommand.InitiateOAuthCommand
	CompleteCallback      *broadcastcommand.CompleteCallbackCommand
	RefreshToken          *broadcastcommand.RefreshTokenCommand
	RevokeToken           *broadcastcommand.RevokeTokenCommand
	CreateCampaign        *broadcastcommand.CreateCampaignCommand
	UpdateCampaignContent *broadcastcommand.UpdateCampaignContentCommand
	ScheduleCampaign      *broadcastcommand.ScheduleCampaignCommand
	ExecuteCampaign       *broadcastcommand.ExecuteCampaignCommand
	CancelCampaign        *broadcastcommand.CancelCampaignCommand
}

type Queries struct {
	GetValidToken          *broadcastquery.GetValidTokenQuery
	ListConnectedAccounts  *broadcastquery.ListConnectedAccountsQuery
	GetCampaign            *broadcastquery.GetCampaignQuery
	ListCampaigns          *broadcastquery.ListCampaignsQuery
	ListCoordinationEvents *broadcastquery.ListCoordinationEventsQuery
}

type Facade struct {
	credentials CredentialCommandQueryService
	campaigns   CampaignCommandQueryService
	commands    Commands
	queries     Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	eventReader broadcastquery.CoordinationEventReader
}

// WithCoordinationEventReader overrides where the event listing query reads
// from; by default the campaign service is used when it exposes the events.
func WithCoordinationEventReader(reader broadcastquery.CoordinationEventReader) FacadeOption {
	return func(options *facadeOptions) {
		options.eventReader = reader
	}
}

func NewFacade(
	credentials CredentialCommandQueryService,
	campaigns CampaignCommandQueryService,
	opts ...FacadeOption,
) (*Facade, error) {
	if credentials == nil {
		return nil, fmt.Errorf("broadcast: credential command/query service is required")
	}
	if campaigns == nil {
		return nil, fmt.Errorf("broadcast: campaign command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	eventReader := cfg.eventReader
	if eventReader == nil {
		if reader, ok := campaigns.(broadcastquery.CoordinationEventReader); ok {
			eventReader = reader
		}
	}

	facade := &Facade{credentials: credentials, campaigns: campaigns}
	facade.commands = Commands{
		InitiateOAuth:         broadcastcommand.NewInitiateOAuthCommand(credentials),
		CompleteCallback:      broadcastcommand.NewCompleteCallbackCommand(credentials),
		RefreshToken:          broadcastcommand.NewRefreshTokenCommand(credentials),
		RevokeToken:           broadcastcommand.NewRevokeTokenCommand(credentials),
		CreateCampaign:        broadcastcommand.NewCreateCampaignCommand(campaigns),
		UpdateCampaignContent: broadcastcommand.NewUpdateCampaignContentCommand(campaigns),
		ScheduleCampaign:      broadcastcommand.NewScheduleCampaignCommand(campaigns),
		ExecuteCampaign:       broadcastcommand.NewExecuteCampaignCommand(campaigns),
		CancelCampaign:        broadcastcommand.NewCancelCampaignCommand(campaigns),
	}
	facade.queries = Queries{
		GetValidToken:          broadcastquery.NewGetValidTokenQuery(credentials),
		ListConnectedAccounts:  broadcastquery.NewListConnectedAccountsQuery(credentials),
		GetCampaign:            broadcastquery.NewGetCampaignQuery(campaigns),
		ListCampaigns:          broadcastquery.NewListCampaignsQuery(campaigns),
		ListCoordinationEvents: broadcastquery.NewListCoordinationEventsQuery(eventReader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) CredentialService() CredentialCommandQueryService {
	if f == nil {
		return nil
	}
	return f.credentials
}

func (f *Facade) CampaignService() CampaignCommandQueryService {
	if f == nil {
		return nil
	}
	return f.campaigns
}
