package command

import (
	"context"
	"time"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-broadcast/adapt"
	"github.com/goliatone/go-broadcast/core"
	"github.com/goliatone/go-broadcast/dispatch"
)

// CredentialMutatingService is the credential lifecycle surface the commands
// delegate to. *core.Service satisfies it.
type CredentialMutatingService interface {
	InitiateOAuth(ctx context.Context, req core.InitiateOAuthRequest) (core.InitiateOAuthResponse, error)
	CompleteCallback(ctx context.Context, req core.CompleteCallbackRequest) (core.CallbackCompletion, error)
	RefreshToken(ctx context.Context, req core.RefreshTokenRequest) (core.ActiveToken, error)
	RevokeToken(ctx context.Context, req core.RevokeTokenRequest) error
}

// CampaignMutatingService is the campaign lifecycle surface the commands
// delegate to. *broadcast.Coordinator satisfies it.
type CampaignMutatingService interface {
	CreateCampaign(ctx context.Context, req adapt.BuildCampaignRequest) (core.Campaign, error)
	UpdateCampaignContent(ctx context.Context, tenantID string, campaignID string, content string) (core.Campaign, error)
	ScheduleCampaign(ctx context.Context, tenantID string, campaignID string, at time.Time) (core.Campaign, error)
	ExecuteCampaign(ctx context.Context, tenantID string, campaignID string) (dispatch.ExecutionResult, error)
	CancelCampaign(ctx context.Context, tenantID string, campaignID string, reason string) (core.Campaign, error)
}

type InitiateOAuthCommand struct {
	service CredentialMutatingService
}

func NewInitiateOAuthCommand(service CredentialMutatingService) *InitiateOAuthCommand {
	return &InitiateOAuthCommand{service: service}
}

func (c *InitiateOAuthCommand) Execute(ctx context.Context, msg InitiateOAuthMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credential service is required")
	}
	out, err := c.service.InitiateOAuth(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteCallbackCommand struct {
	service CredentialMutatingService
}

func NewCompleteCallbackCommand(service CredentialMutatingService) *CompleteCallbackCommand {
	return &CompleteCallbackCommand{service: service}
}

func (c *CompleteCallbackCommand) Execute(ctx context.Context, msg CompleteCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credential service is required")
	}
	out, err := c.service.CompleteCallback(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshTokenCommand struct {
	service CredentialMutatingService
}

func NewRefreshTokenCommand(service CredentialMutatingService) *RefreshTokenCommand {
	return &RefreshTokenCommand{service: service}
}

func (c *RefreshTokenCommand) Execute(ctx context.Context, msg RefreshTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credential service is required")
	}
	out, err := c.service.RefreshToken(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RevokeTokenCommand struct {
	service CredentialMutatingService
}

func NewRevokeTokenCommand(service CredentialMutatingService) *RevokeTokenCommand {
	return &RevokeTokenCommand{service: service}
}

func (c *RevokeTokenCommand) Execute(ctx context.Context, msg RevokeTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credential service is required")
	}
	return c.service.RevokeToken(ctx, msg.Request)
}

type CreateCampaignCommand struct {
	service CampaignMutatingService
}

func NewCreateCampaignCommand(service CampaignMutatingService) *CreateCampaignCommand {
	return &CreateCampaignCommand{service: service}
}

func (c *CreateCampaignCommand) Execute(ctx context.Context, msg CreateCampaignMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: campaign service is required")
	}
	out, err := c.service.CreateCampaign(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateCampaignContentCommand struct {
	service CampaignMutatingService
}

func NewUpdateCampaignContentCommand(service CampaignMutatingService) *UpdateCampaignContentCommand {
	return &UpdateCampaignContentCommand{service: service}
}

func (c *UpdateCampaignContentCommand) Execute(ctx context.Context, msg UpdateCampaignContentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: campaign service is required")
	}
	out, err := c.service.UpdateCampaignContent(ctx, msg.TenantID, msg.CampaignID, msg.Content)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ScheduleCampaignCommand struct {
	service CampaignMutatingService
}

func NewScheduleCampaignCommand(service CampaignMutatingService) *ScheduleCampaignCommand {
	return &ScheduleCampaignCommand{service: service}
}

func (c *ScheduleCampaignCommand) Execute(ctx context.Context, msg ScheduleCampaignMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: campaign service is required")
	}
	out, err := c.service.ScheduleCampaign(ctx, msg.TenantID, msg.CampaignID, msg.ScheduledAt)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ExecuteCampaignCommand struct {
	service CampaignMutatingService
}

func NewExecuteCampaignCommand(service CampaignMutatingService) *ExecuteCampaignCommand {
	return &ExecuteCampaignCommand{service: service}
}

func (c *ExecuteCampaignCommand) Execute(ctx context.Context, msg ExecuteCampaignMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: campaign service is required")
	}
	out, err := c.service.ExecuteCampaign(ctx, msg.TenantID, msg.CampaignID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CancelCampaignCommand struct {
	service CampaignMutatingService
}

func NewCancelCampaignCommand(service CampaignMutatingService) *CancelCampaignCommand {
	return &CancelCampaignCommand{service: service}
}

func (c *CancelCampaignCommand) Execute(ctx context.Context, msg CancelCampaignMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: campaign service is required")
	}
	out, err := c.service.CancelCampaign(ctx, msg.TenantID, msg.CampaignID, msg.Reason)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
