package command

import (
	"strings"
	"time"

	"github.com/goliatone/go-broadcast/adapt"
	"github.com/goliatone/go-broadcast/core"
)

const (
	TypeInitiateOAuth         = "broadcast.command.oauth.initiate"
	TypeCompleteCallback      = "broadcast.command.oauth.callback.complete"
	TypeRefreshToken          = "broadcast.command.token.refresh"
	TypeRevokeToken           = "broadcast.command.token.revoke"
	TypeCreateCampaign        = "broadcast.command.campaign.create"
	TypeUpdateCampaignContent = "broadcast.command.campaign.update_content"
	TypeScheduleCampaign      = "broadcast.command.campaign.schedule"
	TypeExecuteCampaign       = "broadcast.command.campaign.execute"
	TypeCancelCampaign        = "broadcast.command.campaign.cancel"
)

type InitiateOAuthMessage struct {
	Request core.InitiateOAuthRequest
}

func (InitiateOAuthMessage) Type() string { return TypeInitiateOAuth }

func (m InitiateOAuthMessage) Validate() error {
	if strings.TrimSpace(m.Request.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.Request.Platform) == "" {
		return commandValidationError("platform", "platform is required")
	}
	if strings.TrimSpace(m.Request.RedirectURI) == "" {
		return commandValidationError("redirect_uri", "redirect uri is required")
	}
	return nil
}

type CompleteCallbackMessage struct {
	Request core.CompleteCallbackRequest
}

func (CompleteCallbackMessage) Type() string { return TypeCompleteCallback }

func (m CompleteCallbackMessage) Validate() error {
	if strings.TrimSpace(m.Request.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.Request.Platform) == "" {
		return commandValidationError("platform", "platform is required")
	}
	if strings.TrimSpace(m.Request.Code) == "" {
		return commandValidationError("code", "authorization code is required")
	}
	if strings.TrimSpace(m.Request.State) == "" {
		return commandValidationError("state", "state is required")
	}
	return nil
}

type RefreshTokenMessage struct {
	Request core.RefreshTokenRequest
}

func (RefreshTokenMessage) Type() string { return TypeRefreshToken }

func (m RefreshTokenMessage) Validate() error {
	if strings.TrimSpace(m.Request.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.Request.Platform) == "" {
		return commandValidationError("platform", "platform is required")
	}
	if strings.TrimSpace(m.Request.AccountID) == "" {
		return commandValidationError("account_id", "account id is required")
	}
	return nil
}

type RevokeTokenMessage struct {
	Request core.RevokeTokenRequest
}

func (RevokeTokenMessage) Type() string { return TypeRevokeToken }

func (m RevokeTokenMessage) Validate() error {
	if strings.TrimSpace(m.Request.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.Request.Platform) == "" {
		return commandValidationError("platform", "platform is required")
	}
	if strings.TrimSpace(m.Request.AccountID) == "" {
		return commandValidationError("account_id", "account id is required")
	}
	return nil
}

type CreateCampaignMessage struct {
	Request adapt.BuildCampaignRequest
}

func (CreateCampaignMessage) Type() string { return TypeCreateCampaign }

func (m CreateCampaignMessage) Validate() error {
	if strings.TrimSpace(m.Request.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.Request.BaseContent) == "" {
		return commandValidationError("base_content", "base content is required")
	}
	if len(m.Request.TargetPlatforms) == 0 {
		return commandValidationError("target_platforms", "at least one target platform is required")
	}
	return nil
}

type UpdateCampaignContentMessage struct {
	TenantID   string
	CampaignID string
	Content    string
}

func (UpdateCampaignContentMessage) Type() string { return TypeUpdateCampaignContent }

func (m UpdateCampaignContentMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.CampaignID) == "" {
		return commandValidationError("campaign_id", "campaign id is required")
	}
	if strings.TrimSpace(m.Content) == "" {
		return commandValidationError("content", "content is required")
	}
	return nil
}

type ScheduleCampaignMessage struct {
	TenantID    string
	CampaignID  string
	ScheduledAt time.Time
}

func (ScheduleCampaignMessage) Type() string { return TypeScheduleCampaign }

func (m ScheduleCampaignMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.CampaignID) == "" {
		return commandValidationError("campaign_id", "campaign id is required")
	}
	if m.ScheduledAt.IsZero() {
		return commandValidationError("scheduled_at", "scheduled at is required")
	}
	return nil
}

type ExecuteCampaignMessage struct {
	TenantID   string
	CampaignID string
}

func (ExecuteCampaignMessage) Type() string { return TypeExecuteCampaign }

func (m ExecuteCampaignMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.CampaignID) == "" {
		return commandValidationError("campaign_id", "campaign id is required")
	}
	return nil
}

type CancelCampaignMessage struct {
	TenantID   string
	CampaignID string
	Reason     string
}

func (CancelCampaignMessage) Type() string { return TypeCancelCampaign }

func (m CancelCampaignMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.CampaignID) == "" {
		return commandValidationError("campaign_id", "campaign id is required")
	}
	return nil
}
