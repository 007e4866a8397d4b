// Package broadcast coordinates multi-platform content campaigns: it adapts
// one piece of base content per target platform, manages the OAuth credential
// lifecycle for every connected account, and executes campaigns under
// simultaneous, staggered or sequential coordination strategies.
package broadcast

import "github.com/goliatone/go-broadcast/core"

type Config = core.Config

type OAuthConfig = core.OAuthConfig

type RefreshConfig = core.RefreshConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type AuthProvider = core.AuthProvider
type Registry = core.Registry
type SecretProvider = core.SecretProvider
type OAuthStateStore = core.OAuthStateStore
type TokenStore = core.TokenStore
type CampaignStore = core.CampaignStore
type CoordinationEventSink = core.CoordinationEventSink
type RefreshBackoffScheduler = core.RefreshBackoffScheduler

type Campaign = core.Campaign
type CampaignStatus = core.CampaignStatus
type CoordinationStrategy = core.CoordinationStrategy
type AdaptedContent = core.AdaptedContent
type TenantToken = core.TenantToken
type ActiveToken = core.ActiveToken

type InitiateOAuthRequest = core.InitiateOAuthRequest
type InitiateOAuthResponse = core.InitiateOAuthResponse

type CompleteCallbackRequest = core.CompleteCallbackRequest
type CallbackCompletion = core.CallbackCompletion

type GetValidTokenRequest = core.GetValidTokenRequest
type RefreshTokenRequest = core.RefreshTokenRequest
type RevokeTokenRequest = core.RevokeTokenRequest

var (
	WithLogger                  = core.WithLogger
	WithLoggerProvider          = core.WithLoggerProvider
	WithMetricsRecorder         = core.WithMetricsRecorder
	WithErrorFactory            = core.WithErrorFactory
	WithErrorMapper             = core.WithErrorMapper
	WithSecretProvider          = core.WithSecretProvider
	WithConfigProvider          = core.WithConfigProvider
	WithOptionsResolver         = core.WithOptionsResolver
	WithRegistry                = core.WithRegistry
	WithOAuthStateStore         = core.WithOAuthStateStore
	WithTokenStore              = core.WithTokenStore
	WithCampaignStore           = core.WithCampaignStore
	WithCoordinationEventSink   = core.WithCoordinationEventSink
	WithTokenCodec              = core.WithTokenCodec
	WithAccountLocker           = core.WithAccountLocker
	WithRefreshBackoffScheduler = core.WithRefreshBackoffScheduler
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
