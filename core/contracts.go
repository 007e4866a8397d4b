package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type BeginAuthRequest struct {
	Platform      string
	TenantID      string
	State         string
	RedirectURI   string
	Scopes        []string
	CodeChallenge string
	Metadata      map[string]any
}

type BeginAuthResponse struct {
	URL      string
	State    string
	Scopes   []string
	Metadata map[string]any
}

type ExchangeCodeRequest struct {
	Platform     string
	Code         string
	RedirectURI  string
	CodeVerifier string
	Metadata     map[string]any
}

// TokenPair is the plaintext credential material returned by a platform.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scopes       []string
	ExpiresAt    *time.Time
	Metadata     map[string]any
}

type AccountProfile struct {
	AccountID   string
	DisplayName string
	Username    string
	AccountType string
	Metadata    map[string]any
}

// AuthProvider is the authorization surface every registered platform
// implements. Platforms expose further capabilities (publishing, content
// analysis, post metrics) through the optional interfaces below; callers
// discover them with type assertions against the registry entry.
type AuthProvider interface {
	Platform() string
	RequiresProofKey() bool

	BeginAuth(ctx context.Context, req BeginAuthRequest) (BeginAuthResponse, error)
	ExchangeCode(ctx context.Context, req ExchangeCodeRequest) (TokenPair, error)
	FetchProfile(ctx context.Context, accessToken string) (AccountProfile, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error)
	RevokeToken(ctx context.Context, accessToken string) error
	TestConnection(ctx context.Context, accessToken string) error
}

type PublishRequest struct {
	AccessToken string
	Text        string
	Hashtags    []string
	Mentions    []string
	MediaRefs   []string
	ScheduledAt *time.Time
	Metadata    map[string]any
}

type PublishResult struct {
	PostID   string
	URL      string
	Metadata map[string]any
}

type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
}

type ContentAnalysis struct {
	EstimatedReach       int64
	EngagementPrediction float64
	Confidence           float64
}

type ContentAnalyzer interface {
	AnalyzeContent(ctx context.Context, text string) (ContentAnalysis, error)
}

type PostMetrics struct {
	Views    int64
	Likes    int64
	Shares   int64
	Comments int64
}

type MetricsReader interface {
	PostMetrics(ctx context.Context, accessToken string, postID string) (PostMetrics, error)
}

type Registry interface {
	Register(provider AuthProvider) error
	Get(platform string) (AuthProvider, bool)
	List() []AuthProvider
}

type SaveTokenInput struct {
	TenantID          string
	UserID            string
	Platform          string
	AccountID         string
	DisplayName       string
	Username          string
	AccountType       string
	EncryptedPayload  []byte
	PayloadFormat     string
	PayloadVersion    int
	TokenType         string
	Scopes            []string
	ExpiresAt         *time.Time
	LastRefreshedAt   *time.Time
	EncryptionKeyID   string
	EncryptionVersion int
}

type TokenStore interface {
	SaveNewVersion(ctx context.Context, in SaveTokenInput) (TenantToken, error)
	GetActiveByAccount(ctx context.Context, platform string, accountID string) (TenantToken, error)
	GetActiveByTenantPlatform(ctx context.Context, tenantID string, platform string) (TenantToken, error)
	ListByTenant(ctx context.Context, tenantID string) ([]TenantToken, error)
	MarkInactive(ctx context.Context, platform string, accountID string, status TokenStatus, reason string) error
}

type CampaignStore interface {
	Create(ctx context.Context, campaign Campaign) (Campaign, error)
	Get(ctx context.Context, tenantID string, id string) (Campaign, error)
	Update(ctx context.Context, campaign Campaign) (Campaign, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Campaign, error)
}

type ListCoordinationEventsFilter struct {
	CampaignID string
	Platform   string
	Limit      int
}

type CoordinationEventSink interface {
	Record(ctx context.Context, event CoordinationEvent) error
	List(ctx context.Context, filter ListCoordinationEventsFilter) ([]CoordinationEvent, error)
}

type StoreProvider interface {
	TokenStore() TokenStore
	OAuthStateStore() OAuthStateStore
	CampaignStore() CampaignStore
	CoordinationEventSink() CoordinationEventSink
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
