package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[InitiateOAuthMessage]         = (*InitiateOAuthCommand)(nil)
	_ gocmd.Commander[CompleteCallbackMessage]      = (*CompleteCallbackCommand)(nil)
	_ gocmd.Commander[RefreshTokenMessage]          = (*RefreshTokenCommand)(nil)
	_ gocmd.Commander[RevokeTokenMessage]           = (*RevokeTokenCommand)(nil)
	_ gocmd.Commander[CreateCampaignMessage]        = (*CreateCampaignCommand)(nil)
	_ gocmd.Commander[UpdateCampaignContentMessage] = (*UpdateCampaignContentCommand)(nil)
	_ gocmd.Commander[ScheduleCampaignMessage]      = (*ScheduleCampaignCommand)(nil)
	_ gocmd.Commander[ExecuteCampaignMessage]       = (*ExecuteCampaignCommand)(nil)
	_ gocmd.Commander[CancelCampaignMessage]        = (*CancelCampaignCommand)(nil)
)
