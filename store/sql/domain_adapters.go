package sqlstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-broadcast/core"
)

func newTokenRecord(in core.SaveTokenInput, version int, now time.Time) *tokenRecord {
	scopes := in.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	tokenType := strings.TrimSpace(in.TokenType)
	if tokenType == "" {
		tokenType = "Bearer"
	}
	payloadVersion := in.PayloadVersion
	if payloadVersion <= 0 {
		payloadVersion = 1
	}
	return &tokenRecord{
		TenantID:         strings.TrimSpace(in.TenantID),
		UserID:           strings.TrimSpace(in.UserID),
		Platform:         strings.TrimSpace(in.Platform),
		AccountID:        strings.TrimSpace(in.AccountID),
		DisplayName:      strings.TrimSpace(in.DisplayName),
		Username:         strings.TrimSpace(in.Username),
		AccountType:      strings.TrimSpace(in.AccountType),
		EncryptedPayload: append([]byte(nil), in.EncryptedPayload...),
		PayloadFormat:    strings.TrimSpace(in.PayloadFormat),
		PayloadVersion:   payloadVersion,
		TokenType:        tokenType,
		Scopes:           append([]string(nil), scopes...),
		ExpiresAt:        cloneTimePointer(in.ExpiresAt),
		Status:           string(core.TokenStatusActive),
		Version:          version,
		EncryptionKeyID:  strings.TrimSpace(in.EncryptionKeyID),
		EncryptionVer:    in.EncryptionVersion,
		LastRefreshedAt:  cloneTimePointer(in.LastRefreshedAt),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (r *tokenRecord) toDomain() core.TenantToken {
	if r == nil {
		return core.TenantToken{}
	}
	return core.TenantToken{
		ID:               r.ID,
		TenantID:         r.TenantID,
		UserID:           r.UserID,
		Platform:         r.Platform,
		AccountID:        r.AccountID,
		DisplayName:      r.DisplayName,
		Username:         r.Username,
		AccountType:      r.AccountType,
		EncryptedPayload: append([]byte(nil), r.EncryptedPayload...),
		PayloadFormat:    r.PayloadFormat,
		PayloadVersion:   r.PayloadVersion,
		TokenType:        r.TokenType,
		Scopes:           append([]string(nil), r.Scopes...),
		ExpiresAt:        cloneTimePointer(r.ExpiresAt),
		Status:           core.TokenStatus(r.Status),
		StatusReason:     r.StatusReason,
		Version:          r.Version,
		LastRefreshedAt:  cloneTimePointer(r.LastRefreshedAt),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func newOAuthStateRecord(in core.OAuthStateRecord) *oauthStateRecord {
	scopes := in.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return &oauthStateRecord{
		State:        strings.TrimSpace(in.State),
		TenantID:     strings.TrimSpace(in.TenantID),
		UserID:       strings.TrimSpace(in.UserID),
		Platform:     strings.TrimSpace(in.Platform),
		AccountType:  strings.TrimSpace(in.AccountType),
		RedirectURI:  strings.TrimSpace(in.RedirectURI),
		ReturnURL:    strings.TrimSpace(in.ReturnURL),
		CodeVerifier: in.CodeVerifier,
		Scopes:       append([]string(nil), scopes...),
		Metadata:     RedactMetadata(in.Metadata),
		ExpiresAt:    in.ExpiresAt.UTC(),
		CreatedAt:    in.CreatedAt.UTC(),
	}
}

func (r *oauthStateRecord) toDomain() core.OAuthStateRecord {
	if r == nil {
		return core.OAuthStateRecord{}
	}
	return core.OAuthStateRecord{
		State:        r.State,
		TenantID:     r.TenantID,
		UserID:       r.UserID,
		Platform:     r.Platform,
		AccountType:  r.AccountType,
		RedirectURI:  r.RedirectURI,
		ReturnURL:    r.ReturnURL,
		CodeVerifier: r.CodeVerifier,
		Scopes:       append([]string(nil), r.Scopes...),
		Metadata:     copyAnyMap(r.Metadata),
		CreatedAt:    r.CreatedAt,
		ExpiresAt:    r.ExpiresAt,
	}
}

// adaptedContentDoc and strategyDoc are the JSON projections of campaign
// sub-documents. Stagger waits serialize as milliseconds.
type adaptedContentDoc struct {
	Platform             string                 `json:"platform"`
	Text                 string                 `json:"text"`
	Hashtags             []string               `json:"hashtags,omitempty"`
	Mentions             []string               `json:"mentions,omitempty"`
	MediaRefs            []string               `json:"media_refs,omitempty"`
	AppliedOptimizations []string               `json:"applied_optimizations,omitempty"`
	Rationale            string                 `json:"rationale,omitempty"`
	OptimizationScore    float64                `json:"optimization_score"`
	Estimate             performanceEstimateDoc `json:"estimate"`
}

type performanceEstimateDoc struct {
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Shares         int64   `json:"shares"`
	Comments       int64   `json:"comments"`
	EngagementRate float64 `json:"engagement_rate"`
	Confidence     float64 `json:"confidence"`
}

type strategyDoc struct {
	Kind         string           `json:"kind"`
	WaitsMS      map[string]int64 `json:"waits_ms,omitempty"`
	Dependencies []dependencyDoc  `json:"dependencies,omitempty"`
	Triggers     []triggerDoc     `json:"triggers,omitempty"`
}

type dependencyDoc struct {
	Platform  string  `json:"platform"`
	DependsOn string  `json:"depends_on"`
	Condition string  `json:"condition,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

type triggerDoc struct {
	Kind     string         `json:"kind"`
	Value    float64        `json:"value,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func newCampaignRecord(campaign core.Campaign, now time.Time) (*campaignRecord, error) {
	adapted, err := encodeAdaptedContent(campaign.AdaptedContent)
	if err != nil {
		return nil, err
	}
	strategy, err := encodeStrategy(campaign.Strategy)
	if err != nil {
		return nil, err
	}
	targets := campaign.TargetPlatforms
	if targets == nil {
		targets = []string{}
	}
	performanceTargets := campaign.PerformanceTargets
	if performanceTargets == nil {
		performanceTargets = map[string]float64{}
	}
	return &campaignRecord{
		ID:                 strings.TrimSpace(campaign.ID),
		TenantID:           strings.TrimSpace(campaign.TenantID),
		Name:               strings.TrimSpace(campaign.Name),
		Description:        campaign.Description,
		BaseContent:        campaign.BaseContent,
		TargetPlatforms:    append([]string(nil), targets...),
		AdaptedContent:     adapted,
		Strategy:           strategy,
		PerformanceTargets: performanceTargets,
		ScheduledAt:        cloneTimePointer(campaign.ScheduledAt),
		Status:             string(campaign.Status),
		Version:            campaign.Version,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (r *campaignRecord) toDomain() (core.Campaign, error) {
	if r == nil {
		return core.Campaign{}, fmt.Errorf("sqlstore: campaign record is nil")
	}
	adapted, err := decodeAdaptedContent(r.AdaptedContent)
	if err != nil {
		return core.Campaign{}, err
	}
	strategy, err := decodeStrategy(r.Strategy)
	if err != nil {
		return core.Campaign{}, err
	}
	return core.Campaign{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		Name:               r.Name,
		Description:        r.Description,
		BaseContent:        r.BaseContent,
		TargetPlatforms:    append([]string(nil), r.TargetPlatforms...),
		AdaptedContent:     adapted,
		Strategy:           strategy,
		PerformanceTargets: r.PerformanceTargets,
		ScheduledAt:        cloneTimePointer(r.ScheduledAt),
		Status:             core.CampaignStatus(r.Status),
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

func encodeAdaptedContent(adapted map[string]core.AdaptedContent) (json.RawMessage, error) {
	docs := make(map[string]adaptedContentDoc, len(adapted))
	for platform, content := range adapted {
		docs[platform] = adaptedContentDoc{
			Platform:             content.Platform,
			Text:                 content.Text,
			Hashtags:             content.Hashtags,
			Mentions:             content.Mentions,
			MediaRefs:            content.MediaRefs,
			AppliedOptimizations: content.AppliedOptimizations,
			Rationale:            content.Rationale,
			OptimizationScore:    content.OptimizationScore,
			Estimate: performanceEstimateDoc{
				Views:          content.Estimate.Views,
				Likes:          content.Estimate.Likes,
				Shares:         content.Estimate.Shares,
				Comments:       content.Estimate.Comments,
				EngagementRate: content.Estimate.EngagementRate,
				Confidence:     content.Estimate.Confidence,
			},
		}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: encode adapted content: %w", err)
	}
	return data, nil
}

func decodeAdaptedContent(raw json.RawMessage) (map[string]core.AdaptedContent, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	docs := map[string]adaptedContentDoc{}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("sqlstore: decode adapted content: %w", err)
	}
	out := make(map[string]core.AdaptedContent, len(docs))
	for platform, doc := range docs {
		out[platform] = core.AdaptedContent{
			Platform:             doc.Platform,
			Text:                 doc.Text,
			Hashtags:             doc.Hashtags,
			Mentions:             doc.Mentions,
			MediaRefs:            doc.MediaRefs,
			AppliedOptimizations: doc.AppliedOptimizations,
			Rationale:            doc.Rationale,
			OptimizationScore:    doc.OptimizationScore,
			Estimate: core.PerformanceEstimate{
				Views:          doc.Estimate.Views,
				Likes:          doc.Estimate.Likes,
				Shares:         doc.Estimate.Shares,
				Comments:       doc.Estimate.Comments,
				EngagementRate: doc.Estimate.EngagementRate,
				Confidence:     doc.Estimate.Confidence,
			},
		}
	}
	return out, nil
}

func encodeStrategy(strategy core.CoordinationStrategy) (json.RawMessage, error) {
	doc := strategyDoc{Kind: string(strategy.Kind)}
	if len(strategy.Waits) > 0 {
		doc.WaitsMS = make(map[string]int64, len(strategy.Waits))
		for platform, wait := range strategy.Waits {
			doc.WaitsMS[platform] = wait.Milliseconds()
		}
	}
	for _, dep := range strategy.Dependencies {
		doc.Dependencies = append(doc.Dependencies, dependencyDoc{
			Platform:  dep.Platform,
			DependsOn: dep.DependsOn,
			Condition: string(dep.Condition),
			Threshold: dep.Threshold,
		})
	}
	for _, trigger := range strategy.Triggers {
		doc.Triggers = append(doc.Triggers, triggerDoc{
			Kind:     trigger.Kind,
			Value:    trigger.Value,
			Metadata: trigger.Metadata,
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: encode strategy: %w", err)
	}
	return data, nil
}

func decodeStrategy(raw json.RawMessage) (core.CoordinationStrategy, error) {
	if len(raw) == 0 {
		return core.CoordinationStrategy{}, nil
	}
	doc := strategyDoc{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.CoordinationStrategy{}, fmt.Errorf("sqlstore: decode strategy: %w", err)
	}
	strategy := core.CoordinationStrategy{Kind: core.StrategyKind(doc.Kind)}
	if len(doc.WaitsMS) > 0 {
		strategy.Waits = make(map[string]time.Duration, len(doc.WaitsMS))
		for platform, ms := range doc.WaitsMS {
			strategy.Waits[platform] = time.Duration(ms) * time.Millisecond
		}
	}
	for _, dep := range doc.Dependencies {
		strategy.Dependencies = append(strategy.Dependencies, core.PlatformDependency{
			Platform:  dep.Platform,
			DependsOn: dep.DependsOn,
			Condition: core.DependencyCondition(dep.Condition),
			Threshold: dep.Threshold,
		})
	}
	for _, trigger := range doc.Triggers {
		strategy.Triggers = append(strategy.Triggers, core.TriggerCondition{
			Kind:     trigger.Kind,
			Value:    trigger.Value,
			Metadata: trigger.Metadata,
		})
	}
	return strategy, nil
}

func newCoordinationEventRecord(event core.CoordinationEvent, now time.Time) *coordinationEventRecord {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return &coordinationEventRecord{
		ID:         strings.TrimSpace(event.ID),
		CampaignID: strings.TrimSpace(event.CampaignID),
		TenantID:   strings.TrimSpace(event.TenantID),
		Platform:   strings.TrimSpace(event.Platform),
		EventType:  strings.TrimSpace(event.EventType),
		Status:     strings.TrimSpace(event.Status),
		Detail:     event.Detail,
		Metadata:   RedactMetadata(event.Metadata),
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  now,
	}
}

func (r *coordinationEventRecord) toDomain() core.CoordinationEvent {
	if r == nil {
		return core.CoordinationEvent{}
	}
	return core.CoordinationEvent{
		ID:         r.ID,
		CampaignID: r.CampaignID,
		TenantID:   r.TenantID,
		Platform:   r.Platform,
		EventType:  r.EventType,
		Status:     r.Status,
		Detail:     r.Detail,
		Metadata:   copyAnyMap(r.Metadata),
		OccurredAt: r.OccurredAt,
	}
}

func cloneTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}

func copyAnyMap(source map[string]any) map[string]any {
	if source == nil {
		return nil
	}
	out := make(map[string]any, len(source))
	for key, value := range source {
		out[key] = value
	}
	return out
}
