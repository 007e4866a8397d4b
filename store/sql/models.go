package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

type tokenRecord struct {
	bun.BaseModel `bun:"table:broadcast_tokens,alias:bt"`

	ID               string     `bun:"id,pk"`
	TenantID         string     `bun:"tenant_id,notnull"`
	UserID           string     `bun:"user_id,notnull"`
	Platform         string     `bun:"platform,notnull"`
	AccountID        string     `bun:"account_id,notnull"`
	DisplayName      string     `bun:"display_name"`
	Username         string     `bun:"username"`
	AccountType      string     `bun:"account_type"`
	EncryptedPayload []byte     `bun:"encrypted_payload,notnull"`
	PayloadFormat    string     `bun:"payload_format,notnull"`
	PayloadVersion   int        `bun:"payload_version,notnull"`
	TokenType        string     `bun:"token_type,notnull"`
	Scopes           []string   `bun:"scopes,type:jsonb,notnull"`
	ExpiresAt        *time.Time `bun:"expires_at,nullzero"`
	Status           string     `bun:"status,notnull"`
	StatusReason     string     `bun:"status_reason"`
	Version          int        `bun:"version,notnull"`
	EncryptionKeyID  string     `bun:"encryption_key_id"`
	EncryptionVer    int        `bun:"encryption_version"`
	LastRefreshedAt  *time.Time `bun:"last_refreshed_at,nullzero"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type oauthStateRecord struct {
	bun.BaseModel `bun:"table:broadcast_oauth_states,alias:bos"`

	ID           string         `bun:"id,pk"`
	State        string         `bun:"state,notnull"`
	TenantID     string         `bun:"tenant_id,notnull"`
	UserID       string         `bun:"user_id"`
	Platform     string         `bun:"platform,notnull"`
	AccountType  string         `bun:"account_type"`
	RedirectURI  string         `bun:"redirect_uri"`
	ReturnURL    string         `bun:"return_url"`
	CodeVerifier string         `bun:"code_verifier"`
	Scopes       []string       `bun:"scopes,type:jsonb,notnull"`
	Metadata     map[string]any `bun:"metadata,type:jsonb,notnull"`
	ExpiresAt    time.Time      `bun:"expires_at,notnull"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type campaignRecord struct {
	bun.BaseModel `bun:"table:broadcast_campaigns,alias:bc"`

	ID                 string             `bun:"id,pk"`
	TenantID           string             `bun:"tenant_id,notnull"`
	Name               string             `bun:"name,notnull"`
	Description        string             `bun:"description"`
	BaseContent        string             `bun:"base_content,notnull"`
	TargetPlatforms    []string           `bun:"target_platforms,type:jsonb,notnull"`
	AdaptedContent     json.RawMessage    `bun:"adapted_content,type:jsonb,notnull"`
	Strategy           json.RawMessage    `bun:"strategy,type:jsonb,notnull"`
	PerformanceTargets map[string]float64 `bun:"performance_targets,type:jsonb,notnull"`
	ScheduledAt        *time.Time         `bun:"scheduled_at,nullzero"`
	Status             string             `bun:"status,notnull"`
	Version            int                `bun:"version,notnull"`
	CreatedAt          time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time          `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type coordinationEventRecord struct {
	bun.BaseModel `bun:"table:broadcast_coordination_events,alias:bce"`

	ID         string         `bun:"id,pk"`
	CampaignID string         `bun:"campaign_id,notnull"`
	TenantID   string         `bun:"tenant_id,notnull"`
	Platform   string         `bun:"platform"`
	EventType  string         `bun:"event_type,notnull"`
	Status     string         `bun:"status"`
	Detail     string         `bun:"detail"`
	Metadata   map[string]any `bun:"metadata,type:jsonb,notnull"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
