package query

import (
	"strings"

	"github.com/goliatone/go-broadcast/core"
)

const (
	TypeGetValidToken          = "broadcast.query.token.get_valid"
	TypeListConnectedAccounts  = "broadcast.query.accounts.list"
	TypeGetCampaign            = "broadcast.query.campaign.get"
	TypeListCampaigns          = "broadcast.query.campaign.list"
	TypeListCoordinationEvents = "broadcast.query.coordination_events.list"
)

type GetValidTokenMessage struct {
	Request core.GetValidTokenRequest
}

func (GetValidTokenMessage) Type() string { return TypeGetValidToken }

func (m GetValidTokenMessage) Validate() error {
	if strings.TrimSpace(m.Request.TenantID) == "" {
		return queryValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.Request.Platform) == "" {
		return queryValidationError("platform", "platform is required")
	}
	if strings.TrimSpace(m.Request.AccountID) == "" {
		return queryValidationError("account_id", "account id is required")
	}
	return nil
}

type ListConnectedAccountsMessage struct {
	TenantID string
}

func (ListConnectedAccountsMessage) Type() string { return TypeListConnectedAccounts }

func (m ListConnectedAccountsMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return queryValidationError("tenant_id", "tenant id is required")
	}
	return nil
}

type GetCampaignMessage struct {
	TenantID   string
	CampaignID string
}

func (GetCampaignMessage) Type() string { return TypeGetCampaign }

func (m GetCampaignMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return queryValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.CampaignID) == "" {
		return queryValidationError("campaign_id", "campaign id is required")
	}
	return nil
}

type ListCampaignsMessage struct {
	TenantID string
}

func (ListCampaignsMessage) Type() string { return TypeListCampaigns }

func (m ListCampaignsMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return queryValidationError("tenant_id", "tenant id is required")
	}
	return nil
}

type ListCoordinationEventsMessage struct {
	Filter core.ListCoordinationEventsFilter
}

func (ListCoordinationEventsMessage) Type() string { return TypeListCoordinationEvents }

func (m ListCoordinationEventsMessage) Validate() error {
	if strings.TrimSpace(m.Filter.CampaignID) == "" {
		return queryValidationError("campaign_id", "campaign id is required")
	}
	if m.Filter.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}
