package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

var ErrPlatformNotFound = errors.New("core: platform not found")

// Service is the credential lifecycle manager: OAuth initiation, callback
// completion, encrypted token storage, lazy refresh, and revocation.
type Service struct {
	config                  Config
	logger                  Logger
	loggerProvider          LoggerProvider
	metricsRecorder         MetricsRecorder
	errorFactory            ErrorFactory
	errorMapper             ErrorMapper
	secretProvider          SecretProvider
	configProvider          ConfigProvider
	optionsResolver         OptionsResolver
	registry                Registry
	oauthStateStore         OAuthStateStore
	tokenStore              TokenStore
	campaignStore           CampaignStore
	eventSink               CoordinationEventSink
	tokenCodec              TokenCodec
	accountLocker           AccountLocker
	refreshBackoffScheduler RefreshBackoffScheduler
}

type ServiceDependencies struct {
	Logger           Logger
	LoggerProvider   LoggerProvider
	MetricsRecorder  MetricsRecorder
	ErrorFactory     ErrorFactory
	ErrorMapper      ErrorMapper
	SecretProvider   SecretProvider
	ConfigProvider   ConfigProvider
	OptionsResolver  OptionsResolver
	Registry         Registry
	OAuthStateStore  OAuthStateStore
	TokenStore       TokenStore
	CampaignStore    CampaignStore
	EventSink        CoordinationEventSink
	TokenCodec       TokenCodec
	AccountLocker    AccountLocker
	RefreshScheduler RefreshBackoffScheduler
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("broadcast", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("broadcast"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewPlatformRegistry()
	}
	if builder.tokenCodec == nil {
		builder.tokenCodec = JSONTokenCodec{}
	}
	if builder.accountLocker == nil {
		builder.accountLocker = NewMemoryAccountLocker()
	}
	if builder.refreshScheduler == nil {
		builder.refreshScheduler = ExponentialBackoffScheduler{
			Initial: defaultRefreshInitialBackoff,
			Max:     defaultRefreshMaxBackoff,
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.oauthStateStore == nil {
		builder.oauthStateStore = NewMemoryOAuthStateStore(finalConfig.OAuth.StateTTL())
	}
	if builder.tokenStore == nil {
		builder.tokenStore = NewMemoryTokenStore()
	}

	return &Service{
		config:                  finalConfig,
		logger:                  logger,
		loggerProvider:          provider,
		metricsRecorder:         builder.metricsRecorder,
		errorFactory:            builder.errorFactory,
		errorMapper:             builder.errorMapper,
		secretProvider:          builder.secretProvider,
		configProvider:          builder.configProvider,
		optionsResolver:         builder.optionsResolver,
		registry:                builder.registry,
		oauthStateStore:         builder.oauthStateStore,
		tokenStore:              builder.tokenStore,
		campaignStore:           builder.campaignStore,
		eventSink:               builder.eventSink,
		tokenCodec:              builder.tokenCodec,
		accountLocker:           builder.accountLocker,
		refreshBackoffScheduler: builder.refreshScheduler,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:           s.logger,
		LoggerProvider:   s.loggerProvider,
		MetricsRecorder:  s.metricsRecorder,
		ErrorFactory:     s.errorFactory,
		ErrorMapper:      s.errorMapper,
		SecretProvider:   s.secretProvider,
		ConfigProvider:   s.configProvider,
		OptionsResolver:  s.optionsResolver,
		Registry:         s.registry,
		OAuthStateStore:  s.oauthStateStore,
		TokenStore:       s.tokenStore,
		CampaignStore:    s.campaignStore,
		EventSink:        s.eventSink,
		TokenCodec:       s.tokenCodec,
		AccountLocker:    s.accountLocker,
		RefreshScheduler: s.refreshBackoffScheduler,
	}
}

type InitiateOAuthRequest struct {
	TenantID    string
	UserID      string
	Platform    string
	AccountType string
	RedirectURI string
	ReturnURL   string
	Scopes      []string
	Metadata    map[string]any
}

type InitiateOAuthResponse struct {
	URL       string
	State     string
	ExpiresAt time.Time
}

// InitiateOAuth builds the authorization URL for a platform, minting the
// single-use state nonce and, for proof-key platforms, the PKCE verifier
// that is held server side until the callback returns.
func (s *Service) InitiateOAuth(ctx context.Context, req InitiateOAuthRequest) (response InitiateOAuthResponse, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"tenant_id": req.TenantID,
		"platform":  req.Platform,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "initiate_oauth", err, fields)
	}()

	if strings.TrimSpace(req.TenantID) == "" {
		err = s.mapError(fmt.Errorf("core: tenant id is required"))
		return InitiateOAuthResponse{}, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		err = s.mapError(fmt.Errorf("core: user id is required"))
		return InitiateOAuthResponse{}, err
	}

	provider, err := s.resolvePlatform(req.Platform)
	if err != nil {
		return InitiateOAuthResponse{}, err
	}

	state, err := generateOAuthState()
	if err != nil {
		err = s.mapError(err)
		return InitiateOAuthResponse{}, err
	}

	verifier := ""
	challenge := ""
	if provider.RequiresProofKey() {
		verifier, err = GenerateCodeVerifier()
		if err != nil {
			err = s.mapError(err)
			return InitiateOAuthResponse{}, err
		}
		challenge, err = CodeChallengeS256(verifier)
		if err != nil {
			err = s.mapError(err)
			return InitiateOAuthResponse{}, err
		}
	}

	begun, err := provider.BeginAuth(ctx, BeginAuthRequest{
		Platform:      req.Platform,
		TenantID:      req.TenantID,
		State:         state,
		RedirectURI:   req.RedirectURI,
		Scopes:        cloneStrings(req.Scopes),
		CodeChallenge: challenge,
		Metadata:      copyAnyMap(req.Metadata),
	})
	if err != nil {
		err = s.mapError(err)
		return InitiateOAuthResponse{}, err
	}
	if strings.TrimSpace(begun.State) == "" {
		begun.State = state
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.config.OAuth.StateTTL())
	if s.oauthStateStore != nil {
		saveErr := s.oauthStateStore.Save(ctx, OAuthStateRecord{
			State:        begun.State,
			TenantID:     req.TenantID,
			UserID:       req.UserID,
			Platform:     req.Platform,
			AccountType:  req.AccountType,
			RedirectURI:  req.RedirectURI,
			ReturnURL:    req.ReturnURL,
			CodeVerifier: verifier,
			Scopes:       cloneStrings(req.Scopes),
			Metadata:     copyAnyMap(req.Metadata),
			CreatedAt:    now,
			ExpiresAt:    expiresAt,
		})
		if saveErr != nil {
			err = s.mapError(saveErr)
			return InitiateOAuthResponse{}, err
		}
	}

	response = InitiateOAuthResponse{
		URL:       begun.URL,
		State:     begun.State,
		ExpiresAt: expiresAt,
	}
	return response, nil
}

type CompleteCallbackRequest struct {
	TenantID    string
	UserID      string
	Platform    string
	Code        string
	State       string
	RedirectURI string
	Metadata    map[string]any
}

type CallbackCompletion struct {
	Token     TenantToken
	Profile   AccountProfile
	ReturnURL string
}

// CompleteCallback consumes the state nonce, exchanges the authorization code
// and stores the resulting tokens encrypted at rest as a new credential
// version.
func (s *Service) CompleteCallback(ctx context.Context, req CompleteCallbackRequest) (completion CallbackCompletion, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"tenant_id": req.TenantID,
		"platform":  req.Platform,
	}
	defer func() {
		if completion.Token.AccountID != "" {
			fields["account_id"] = completion.Token.AccountID
		}
		s.observeOperation(ctx, startedAt, "complete_callback", err, fields)
	}()

	record, err := s.validateCallbackState(ctx, req)
	if err != nil {
		return CallbackCompletion{}, err
	}
	if strings.TrimSpace(req.Platform) == "" {
		req.Platform = record.Platform
	}

	provider, err := s.resolvePlatform(req.Platform)
	if err != nil {
		return CallbackCompletion{}, err
	}

	pair, err := provider.ExchangeCode(ctx, ExchangeCodeRequest{
		Platform:     req.Platform,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: record.CodeVerifier,
		Metadata:     copyAnyMap(req.Metadata),
	})
	if err != nil {
		err = s.mapError(err)
		return CallbackCompletion{}, err
	}

	profile, err := provider.FetchProfile(ctx, pair.AccessToken)
	if err != nil {
		err = s.mapError(err)
		return CallbackCompletion{}, err
	}
	accountType := strings.TrimSpace(profile.AccountType)
	if accountType == "" {
		accountType = record.AccountType
	}

	now := time.Now().UTC()
	token, err := s.persistTokenPair(ctx, persistTokenInput{
		TenantID:    record.TenantID,
		UserID:      record.UserID,
		Platform:    req.Platform,
		AccountID:   profile.AccountID,
		DisplayName: profile.DisplayName,
		Username:    profile.Username,
		AccountType: accountType,
		Pair:        pair,
		RefreshedAt: nil,
		Now:         now,
	})
	if err != nil {
		return CallbackCompletion{}, err
	}

	completion = CallbackCompletion{
		Token:     token,
		Profile:   profile,
		ReturnURL: record.ReturnURL,
	}
	return completion, nil
}

func (s *Service) validateCallbackState(ctx context.Context, req CompleteCallbackRequest) (OAuthStateRecord, error) {
	if s == nil || s.oauthStateStore == nil {
		return OAuthStateRecord{}, s.mapError(fmt.Errorf("core: oauth state store is not configured"))
	}
	state := strings.TrimSpace(req.State)
	if state == "" {
		return OAuthStateRecord{}, s.mapError(fmt.Errorf("core: oauth callback state is required"))
	}
	if strings.TrimSpace(req.Code) == "" {
		return OAuthStateRecord{}, s.mapError(fmt.Errorf("core: oauth callback code is required"))
	}

	record, err := s.oauthStateStore.Consume(ctx, state)
	if err != nil {
		return OAuthStateRecord{}, s.mapError(err)
	}

	if strings.TrimSpace(req.TenantID) != "" && strings.TrimSpace(record.TenantID) != strings.TrimSpace(req.TenantID) {
		wrapped := s.errorFactory(
			"authorization state belongs to a different tenant",
			goerrors.CategoryAuthz,
		).WithTextCode(BroadcastErrorAccessDenied)
		return OAuthStateRecord{}, wrapped.WithMetadata(map[string]any{"platform": record.Platform})
	}
	if strings.TrimSpace(req.Platform) != "" &&
		!strings.EqualFold(strings.TrimSpace(record.Platform), strings.TrimSpace(req.Platform)) {
		return OAuthStateRecord{}, s.mapError(fmt.Errorf("core: oauth state platform mismatch"))
	}

	savedRedirect := strings.TrimSpace(record.RedirectURI)
	requestRedirect := strings.TrimSpace(req.RedirectURI)
	if savedRedirect != "" && requestRedirect != "" && savedRedirect != requestRedirect {
		return OAuthStateRecord{}, s.mapError(fmt.Errorf("core: oauth state redirect mismatch"))
	}
	return record, nil
}

type GetValidTokenRequest struct {
	TenantID  string
	Platform  string
	AccountID string
}

// ActiveToken is a stored token with its payload materialized for use.
type ActiveToken struct {
	Token     TenantToken
	Pair      TokenPair
	State     TokenState
	Refreshed bool
}

// GetValidToken loads the active token for an account, verifies tenant
// ownership, and lazily refreshes it when expired. An expired token with no
// refresh token is a terminal BROADCAST_TOKEN_EXPIRED.
func (s *Service) GetValidToken(ctx context.Context, req GetValidTokenRequest) (result ActiveToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"tenant_id":  req.TenantID,
		"platform":   req.Platform,
		"account_id": req.AccountID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "get_valid_token", err, fields)
	}()

	token, err := s.loadOwnedToken(ctx, req.TenantID, req.Platform, req.AccountID)
	if err != nil {
		return ActiveToken{}, err
	}
	return s.materializeToken(ctx, token)
}

// GetValidPlatformToken resolves the active token for a tenant's platform
// connection; the coordination executor uses it ahead of every dispatch.
func (s *Service) GetValidPlatformToken(ctx context.Context, tenantID string, platform string) (result ActiveToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"tenant_id": tenantID,
		"platform":  platform,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "get_valid_platform_token", err, fields)
	}()

	if s == nil || s.tokenStore == nil {
		err = s.mapError(fmt.Errorf("core: token store is not configured"))
		return ActiveToken{}, err
	}
	if strings.TrimSpace(tenantID) == "" {
		err = s.mapError(fmt.Errorf("core: tenant id is required"))
		return ActiveToken{}, err
	}
	token, loadErr := s.tokenStore.GetActiveByTenantPlatform(ctx, tenantID, platform)
	if loadErr != nil {
		err = s.mapError(loadErr)
		return ActiveToken{}, err
	}
	return s.materializeToken(ctx, token)
}

func (s *Service) materializeToken(ctx context.Context, token TenantToken) (ActiveToken, error) {
	pair, err := s.decodeTokenPayload(ctx, token)
	if err != nil {
		return ActiveToken{}, s.mapError(err)
	}

	now := time.Now().UTC()
	state := ResolveTokenState(now, pair, 0)
	if ShouldRefreshToken(now, state, s.config.Refresh.LeadWindow()) {
		refreshed, refreshErr := s.refreshStoredToken(ctx, token, pair)
		if refreshErr != nil {
			return ActiveToken{}, refreshErr
		}
		refreshed.Refreshed = true
		return refreshed, nil
	}
	if state.IsExpired {
		wrapped := s.errorFactory(
			fmt.Sprintf("token for account %q on %q is expired and has no refresh token", token.AccountID, token.Platform),
			goerrors.CategoryAuth,
		).WithTextCode(BroadcastErrorTokenExpired)
		return ActiveToken{}, wrapped.WithMetadata(map[string]any{
			"platform":   token.Platform,
			"account_id": token.AccountID,
		})
	}

	return ActiveToken{Token: token, Pair: pair, State: state}, nil
}

type RefreshTokenRequest struct {
	TenantID  string
	Platform  string
	AccountID string
}

// RefreshToken forces a refresh regardless of expiry, writing a new
// credential version. Used by the background refresh runner.
func (s *Service) RefreshToken(ctx context.Context, req RefreshTokenRequest) (result ActiveToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"tenant_id":  req.TenantID,
		"platform":   req.Platform,
		"account_id": req.AccountID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh_token", err, fields)
	}()

	token, err := s.loadOwnedToken(ctx, req.TenantID, req.Platform, req.AccountID)
	if err != nil {
		return ActiveToken{}, err
	}
	pair, err := s.decodeTokenPayload(ctx, token)
	if err != nil {
		err = s.mapError(err)
		return ActiveToken{}, err
	}
	return s.refreshStoredToken(ctx, token, pair)
}

func (s *Service) refreshStoredToken(ctx context.Context, token TenantToken, pair TokenPair) (ActiveToken, error) {
	if strings.TrimSpace(pair.RefreshToken) == "" {
		wrapped := s.errorFactory(
			fmt.Sprintf("token for account %q on %q has no refresh token", token.AccountID, token.Platform),
			goerrors.CategoryAuth,
		).WithTextCode(BroadcastErrorTokenExpired)
		return ActiveToken{}, wrapped.WithMetadata(map[string]any{
			"platform":   token.Platform,
			"account_id": token.AccountID,
		})
	}

	unlock := func() {}
	if s.accountLocker != nil && !isRefreshLockHeld(ctx, accountLockKey(token.Platform, token.AccountID)) {
		handle, lockErr := s.accountLocker.Acquire(ctx, accountLockKey(token.Platform, token.AccountID), defaultRefreshLockTTL)
		if lockErr != nil {
			return ActiveToken{}, s.mapError(lockErr)
		}
		ctx = context.WithValue(ctx, refreshLockContextKey{}, accountLockKey(token.Platform, token.AccountID))
		unlock = func() {
			_ = handle.Unlock(ctx)
		}
	}
	defer unlock()

	provider, err := s.resolvePlatform(token.Platform)
	if err != nil {
		return ActiveToken{}, err
	}
	refreshed, err := provider.RefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		return ActiveToken{}, s.mapError(err)
	}
	// Platforms that do not rotate refresh tokens return only a new access
	// token; carry the old refresh token forward.
	if strings.TrimSpace(refreshed.RefreshToken) == "" {
		refreshed.RefreshToken = pair.RefreshToken
	}
	if len(refreshed.Scopes) == 0 {
		refreshed.Scopes = cloneStrings(pair.Scopes)
	}

	now := time.Now().UTC()
	saved, err := s.persistTokenPair(ctx, persistTokenInput{
		TenantID:    token.TenantID,
		UserID:      token.UserID,
		Platform:    token.Platform,
		AccountID:   token.AccountID,
		DisplayName: token.DisplayName,
		Username:    token.Username,
		AccountType: token.AccountType,
		Pair:        refreshed,
		RefreshedAt: &now,
		Now:         now,
	})
	if err != nil {
		return ActiveToken{}, err
	}

	return ActiveToken{
		Token: saved,
		Pair:  refreshed,
		State: ResolveTokenState(now, refreshed, 0),
	}, nil
}

type RevokeTokenRequest struct {
	TenantID  string
	Platform  string
	AccountID string
	Reason    string
}

// RevokeToken calls the platform revocation hook best effort and marks the
// stored credential inactive so it no longer resolves as valid.
func (s *Service) RevokeToken(ctx context.Context, req RevokeTokenRequest) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"tenant_id":  req.TenantID,
		"platform":   req.Platform,
		"account_id": req.AccountID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "revoke_token", err, fields)
	}()

	token, err := s.loadOwnedToken(ctx, req.TenantID, req.Platform, req.AccountID)
	if err != nil {
		return err
	}

	if provider, resolveErr := s.resolvePlatform(token.Platform); resolveErr == nil {
		if pair, decodeErr := s.decodeTokenPayload(ctx, token); decodeErr == nil {
			if revokeErr := provider.RevokeToken(ctx, pair.AccessToken); revokeErr != nil {
				s.logError(ctx, "platform token revocation failed", map[string]any{
					"platform":   token.Platform,
					"account_id": token.AccountID,
					"error":      revokeErr.Error(),
				})
			}
		}
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "revoked by tenant"
	}
	if err = s.tokenStore.MarkInactive(ctx, token.Platform, token.AccountID, TokenStatusRevoked, reason); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

// ListConnectedAccounts returns the tenant's stored tokens with payloads
// redacted.
func (s *Service) ListConnectedAccounts(ctx context.Context, tenantID string) ([]TenantToken, error) {
	if s == nil || s.tokenStore == nil {
		return nil, s.mapError(fmt.Errorf("core: token store is not configured"))
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, s.mapError(fmt.Errorf("core: tenant id is required"))
	}
	tokens, err := s.tokenStore.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, s.mapError(err)
	}
	redacted := make([]TenantToken, 0, len(tokens))
	for _, token := range tokens {
		redacted = append(redacted, RedactTenantToken(token))
	}
	return redacted, nil
}

type persistTokenInput struct {
	TenantID    string
	UserID      string
	Platform    string
	AccountID   string
	DisplayName string
	Username    string
	AccountType string
	Pair        TokenPair
	RefreshedAt *time.Time
	Now         time.Time
}

func (s *Service) persistTokenPair(ctx context.Context, in persistTokenInput) (TenantToken, error) {
	if s == nil || s.tokenStore == nil {
		return TenantToken{}, s.mapError(fmt.Errorf("core: token store is not configured"))
	}
	if strings.TrimSpace(in.AccountID) == "" {
		return TenantToken{}, s.mapError(fmt.Errorf("core: platform account id is required"))
	}

	codec := s.tokenCodec
	if codec == nil {
		codec = JSONTokenCodec{}
	}
	payload, err := codec.Encode(in.Pair)
	if err != nil {
		return TenantToken{}, s.mapError(err)
	}
	if s.secretProvider != nil {
		payload, err = s.secretProvider.Encrypt(ctx, payload)
		if err != nil {
			return TenantToken{}, s.mapError(fmt.Errorf("core: encrypt token payload: %w", err))
		}
	}

	saved, err := s.tokenStore.SaveNewVersion(ctx, SaveTokenInput{
		TenantID:         in.TenantID,
		UserID:           in.UserID,
		Platform:         in.Platform,
		AccountID:        in.AccountID,
		DisplayName:      in.DisplayName,
		Username:         in.Username,
		AccountType:      in.AccountType,
		EncryptedPayload: payload,
		PayloadFormat:    codec.Format(),
		PayloadVersion:   codec.Version(),
		TokenType:        in.Pair.TokenType,
		Scopes:           cloneStrings(in.Pair.Scopes),
		ExpiresAt:        cloneTimePointer(in.Pair.ExpiresAt),
		LastRefreshedAt:  cloneTimePointer(in.RefreshedAt),
	})
	if err != nil {
		return TenantToken{}, s.mapError(err)
	}
	return saved, nil
}

func (s *Service) decodeTokenPayload(ctx context.Context, token TenantToken) (TokenPair, error) {
	payload := token.EncryptedPayload
	if len(payload) == 0 {
		return TokenPair{}, fmt.Errorf("core: token payload is empty")
	}
	if s.secretProvider != nil {
		decrypted, err := s.secretProvider.Decrypt(ctx, payload)
		if err != nil {
			return TokenPair{}, fmt.Errorf("core: decrypt token payload: %w", err)
		}
		payload = decrypted
	}
	codec, err := ResolveTokenCodec(token.PayloadFormat, s.tokenCodec)
	if err != nil {
		return TokenPair{}, err
	}
	return codec.Decode(payload)
}

func (s *Service) loadOwnedToken(ctx context.Context, tenantID string, platform string, accountID string) (TenantToken, error) {
	if s == nil || s.tokenStore == nil {
		return TenantToken{}, s.mapError(fmt.Errorf("core: token store is not configured"))
	}
	if strings.TrimSpace(tenantID) == "" {
		return TenantToken{}, s.mapError(fmt.Errorf("core: tenant id is required"))
	}
	if strings.TrimSpace(accountID) == "" {
		return TenantToken{}, s.mapError(fmt.Errorf("core: account id is required"))
	}

	token, err := s.tokenStore.GetActiveByAccount(ctx, platform, accountID)
	if err != nil {
		return TenantToken{}, s.mapError(err)
	}
	if strings.TrimSpace(token.TenantID) != strings.TrimSpace(tenantID) {
		wrapped := s.errorFactory(
			fmt.Sprintf("account %q does not belong to tenant %q", accountID, tenantID),
			goerrors.CategoryAuthz,
		).WithTextCode(BroadcastErrorAccessDenied)
		return TenantToken{}, wrapped.WithMetadata(map[string]any{
			"platform":   platform,
			"account_id": accountID,
		})
	}
	return token, nil
}

func (s *Service) resolvePlatform(platform string) (AuthProvider, error) {
	if s == nil || s.registry == nil {
		return nil, s.mapError(fmt.Errorf("core: registry unavailable"))
	}
	platform = strings.TrimSpace(platform)
	provider, ok := s.registry.Get(platform)
	if ok {
		return provider, nil
	}
	wrapped := s.errorFactory(
		fmt.Sprintf("platform %q is not registered", platform),
		goerrors.CategoryNotFound,
	).WithTextCode(BroadcastErrorPlatformNotFound)
	return nil, wrapped.WithMetadata(map[string]any{"platform": platform})
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func accountLockKey(platform string, accountID string) string {
	return strings.TrimSpace(platform) + "::" + strings.TrimSpace(accountID)
}
