package inbound

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-broadcast/core"
)

const (
	SurfaceOAuthCallback = "oauth_callback"
	SurfaceWebhook       = "webhook"
	SurfaceEventCallback = "event_callback"
)

// Request is one delivery from a platform: an OAuth redirect or a webhook
// POST. The embedding application fills Platform and TenantID from its own
// routing and session context before dispatching.
type Request struct {
	Platform   string
	Surface    string
	TenantID   string
	Headers    map[string]string
	Query      map[string]string
	Body       []byte
	Metadata   map[string]any
	ReceivedAt time.Time
}

// Result tells the HTTP edge how to answer the platform.
type Result struct {
	Accepted   bool
	StatusCode int
	Metadata   map[string]any
}

type Handler interface {
	Surface() string
	Handle(ctx context.Context, req Request) (Result, error)
}

type Verifier interface {
	Verify(ctx context.Context, req Request) error
}

// ClaimStore serializes redelivered callbacks. Claim returns a claim id and
// whether the caller owns the key; Complete retains the key for its TTL so
// later redeliveries dedupe, Fail releases it for retry at retryAt.
type ClaimStore interface {
	Claim(ctx context.Context, key string, lease time.Duration) (string, bool, error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error, retryAt time.Time) error
}

type IdempotencyKeyExtractor func(req Request) (string, error)

type Dispatcher struct {
	Verifier   Verifier
	Store      ClaimStore
	ExtractKey IdempotencyKeyExtractor
	KeyTTL     time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher(verifier Verifier, store ClaimStore) *Dispatcher {
	return &Dispatcher{
		Verifier:   verifier,
		Store:      store,
		ExtractKey: DefaultIdempotencyKeyExtractor,
		KeyTTL:     10 * time.Minute,
		handlers:   map[string]Handler{},
	}
}

func (d *Dispatcher) Register(handler Handler) error {
	if d == nil {
		return inboundInternal("inbound: dispatcher is nil", nil)
	}
	if handler == nil {
		return inboundBadInput("inbound: handler is nil", nil)
	}
	surface := normalizeSurface(handler.Surface())
	if !isSupportedSurface(surface) {
		return inboundBadInput(
			fmt.Sprintf("inbound: unsupported surface %q", surface),
			map[string]any{"surface": surface},
		)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[surface]; exists {
		return inboundError(
			fmt.Sprintf("inbound: handler already registered for surface %q", surface),
			goerrors.CategoryConflict,
			http.StatusConflict,
			core.BroadcastErrorBadInput,
			map[string]any{"surface": surface},
		)
	}
	d.handlers[surface] = handler
	return nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if d == nil {
		return Result{}, inboundInternal("inbound: dispatcher is nil", nil)
	}
	req.Platform = strings.TrimSpace(strings.ToLower(req.Platform))
	req.Surface = normalizeSurface(req.Surface)
	if req.Platform == "" {
		return Result{}, inboundBadInput("inbound: platform is required", map[string]any{
			"surface": req.Surface,
		})
	}
	if !isSupportedSurface(req.Surface) {
		return Result{}, inboundBadInput(
			fmt.Sprintf("inbound: unsupported surface %q", req.Surface),
			map[string]any{"platform": req.Platform, "surface": req.Surface},
		)
	}
	if d.Verifier != nil {
		if err := d.Verifier.Verify(ctx, req); err != nil {
			return Result{
					Accepted:   false,
					StatusCode: http.StatusUnauthorized,
					Metadata: map[string]any{
						"platform": req.Platform,
						"surface":  req.Surface,
						"rejected": true,
					},
				}, inboundWrapError(
					err,
					goerrors.CategoryAuth,
					"inbound: request verification failed",
					http.StatusUnauthorized,
					core.BroadcastErrorAccessDenied,
					map[string]any{"platform": req.Platform, "surface": req.Surface},
				)
		}
	}

	claimID := ""
	if d.Store != nil {
		extractor := d.ExtractKey
		if extractor == nil {
			extractor = DefaultIdempotencyKeyExtractor
		}
		key, err := extractor(req)
		if err != nil {
			return Result{}, inboundWrapError(
				err,
				goerrors.CategoryBadInput,
				"inbound: resolve idempotency key",
				http.StatusBadRequest,
				core.BroadcastErrorBadInput,
				map[string]any{"platform": req.Platform, "surface": req.Surface},
			)
		}
		var accepted bool
		claimID, accepted, err = d.Store.Claim(ctx, req.Platform+":"+req.Surface+":"+key, d.keyTTL())
		if err != nil {
			return Result{}, inboundWrapError(
				err,
				goerrors.CategoryOperation,
				"inbound: idempotency claim failed",
				http.StatusInternalServerError,
				core.BroadcastErrorInternal,
				map[string]any{
					"platform":    req.Platform,
					"surface":     req.Surface,
					"idempotency": key,
				},
			)
		}
		if !accepted {
			return Result{
				Accepted:   true,
				StatusCode: http.StatusOK,
				Metadata: map[string]any{
					"platform": req.Platform,
					"surface":  req.Surface,
					"deduped":  true,
				},
			}, nil
		}
	}

	handler := d.handlerFor(req.Surface)
	if handler == nil {
		return Result{}, inboundError(
			fmt.Sprintf("inbound: no handler registered for surface %q", req.Surface),
			goerrors.CategoryNotFound,
			http.StatusNotFound,
			core.BroadcastErrorPlatformNotFound,
			map[string]any{"platform": req.Platform, "surface": req.Surface},
		)
	}
	result, err := handler.Handle(ctx, req)
	if err != nil {
		handlerErr := inboundWrapError(
			err,
			goerrors.CategoryOperation,
			"inbound: handler execution failed",
			http.StatusBadGateway,
			core.BroadcastErrorPlatformExecutionFailed,
			map[string]any{"platform": req.Platform, "surface": req.Surface},
		)
		if d.Store != nil && claimID != "" {
			if failErr := d.Store.Fail(ctx, claimID, err, time.Time{}); failErr != nil {
				return Result{}, errors.Join(
					handlerErr,
					inboundWrapError(
						failErr,
						goerrors.CategoryOperation,
						"inbound: mark idempotency claim failed",
						http.StatusInternalServerError,
						core.BroadcastErrorInternal,
						map[string]any{"platform": req.Platform, "surface": req.Surface, "claim_id": claimID},
					),
				)
			}
		}
		return Result{}, handlerErr
	}
	retryableFailure := !result.Accepted || result.StatusCode >= http.StatusInternalServerError
	if retryableFailure {
		retryErr := inboundError(
			fmt.Sprintf("inbound: handler returned retryable status %d", result.StatusCode),
			goerrors.CategoryOperation,
			http.StatusBadGateway,
			core.BroadcastErrorPlatformExecutionFailed,
			map[string]any{
				"platform":    req.Platform,
				"surface":     req.Surface,
				"status_code": result.StatusCode,
			},
		)
		if d.Store != nil && claimID != "" {
			if failErr := d.Store.Fail(ctx, claimID, retryErr, time.Time{}); failErr != nil {
				return result, errors.Join(
					retryErr,
					inboundWrapError(
						failErr,
						goerrors.CategoryOperation,
						"inbound: mark idempotency claim failed",
						http.StatusInternalServerError,
						core.BroadcastErrorInternal,
						map[string]any{"platform": req.Platform, "surface": req.Surface, "claim_id": claimID},
					),
				)
			}
		}
		return result, retryErr
	}
	if d.Store != nil && claimID != "" {
		if err := d.Store.Complete(ctx, claimID); err != nil {
			return Result{}, inboundWrapError(
				err,
				goerrors.CategoryOperation,
				"inbound: complete idempotency claim",
				http.StatusInternalServerError,
				core.BroadcastErrorInternal,
				map[string]any{"platform": req.Platform, "surface": req.Surface, "claim_id": claimID},
			)
		}
	}
	result.Metadata = ensureMetadata(result.Metadata)
	result.Metadata["platform"] = req.Platform
	result.Metadata["surface"] = req.Surface
	return result, nil
}

// DefaultIdempotencyKeyExtractor prefers an explicit key, then the delivery
// id platforms stamp on webhook redeliveries, then the OAuth state nonce
// which is unique per authorization round trip.
func DefaultIdempotencyKeyExtractor(req Request) (string, error) {
	if req.Metadata != nil {
		if value := trimAny(req.Metadata["idempotency_key"]); value != "" {
			return value, nil
		}
		if value := trimAny(req.Metadata["delivery_id"]); value != "" {
			return value, nil
		}
	}
	if req.Headers != nil {
		if value := headerLookup(req.Headers, "idempotency-key"); value != "" {
			return value, nil
		}
		if value := headerLookup(req.Headers, "x-delivery-id"); value != "" {
			return value, nil
		}
		if value := headerLookup(req.Headers, "x-hub-delivery"); value != "" {
			return value, nil
		}
	}
	if req.Query != nil {
		if value := strings.TrimSpace(req.Query["state"]); value != "" {
			return value, nil
		}
	}
	return "", inboundBadInput("inbound: idempotency key is required", map[string]any{
		"platform": req.Platform,
		"surface":  req.Surface,
	})
}

type claimStatus string

const (
	claimStatusProcessing claimStatus = "processing"
	claimStatusRetryReady claimStatus = "retry_ready"
	claimStatusComplete   claimStatus = "complete"
)

type claimEntry struct {
	Key            string
	Status         claimStatus
	ClaimID        string
	Attempts       int
	KeyTTL         time.Duration
	LeaseExpiresAt time.Time
	RetryAt        time.Time
}

type InMemoryClaimStore struct {
	mu      sync.Mutex
	entries map[string]claimEntry
	claims  map[string]string
	nextID  int
	Now     func() time.Time
}

func NewInMemoryClaimStore() *InMemoryClaimStore {
	return &InMemoryClaimStore{
		entries: map[string]claimEntry{},
		claims:  map[string]string{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *InMemoryClaimStore) Claim(
	_ context.Context,
	key string,
	lease time.Duration,
) (string, bool, error) {
	if s == nil {
		return "", false, inboundInternal("inbound: claim store is nil", nil)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, inboundBadInput("inbound: idempotency key is required", nil)
	}
	now := s.now()
	if lease <= 0 {
		lease = 10 * time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(now)
	entry, exists := s.entries[key]
	if !exists {
		claimID := s.nextClaimID()
		s.entries[key] = claimEntry{
			Key:            key,
			Status:         claimStatusProcessing,
			ClaimID:        claimID,
			Attempts:       1,
			KeyTTL:         lease,
			LeaseExpiresAt: now.Add(lease),
		}
		s.claims[claimID] = key
		return claimID, true, nil
	}

	switch entry.Status {
	case claimStatusComplete:
		if !entry.LeaseExpiresAt.IsZero() && now.Before(entry.LeaseExpiresAt) {
			return "", false, nil
		}
	case claimStatusProcessing:
		if now.Before(entry.LeaseExpiresAt) {
			return "", false, nil
		}
	case claimStatusRetryReady:
		if !entry.RetryAt.IsZero() && now.Before(entry.RetryAt) {
			return "", false, nil
		}
	}

	if entry.ClaimID != "" {
		delete(s.claims, entry.ClaimID)
	}
	claimID := s.nextClaimID()
	entry.Status = claimStatusProcessing
	entry.ClaimID = claimID
	entry.Attempts++
	entry.KeyTTL = lease
	entry.LeaseExpiresAt = now.Add(lease)
	entry.RetryAt = time.Time{}
	s.entries[key] = entry
	s.claims[claimID] = key
	return claimID, true, nil
}

func (s *InMemoryClaimStore) Complete(_ context.Context, claimID string) error {
	if s == nil {
		return inboundInternal("inbound: claim store is nil", nil)
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return inboundBadInput("inbound: claim id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.claims[claimID]
	if !ok {
		return nil
	}
	entry, exists := s.entries[key]
	if !exists || entry.ClaimID != claimID || entry.Status != claimStatusProcessing {
		delete(s.claims, claimID)
		return nil
	}
	ttl := entry.KeyTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	now := s.now()
	entry.Status = claimStatusComplete
	entry.LeaseExpiresAt = now.Add(ttl)
	entry.RetryAt = time.Time{}
	s.entries[key] = entry
	delete(s.claims, claimID)
	return nil
}

func (s *InMemoryClaimStore) Fail(
	_ context.Context,
	claimID string,
	_ error,
	retryAt time.Time,
) error {
	if s == nil {
		return inboundInternal("inbound: claim store is nil", nil)
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return inboundBadInput("inbound: claim id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.claims[claimID]
	if !ok {
		return nil
	}
	entry, exists := s.entries[key]
	if !exists || entry.ClaimID != claimID || entry.Status != claimStatusProcessing {
		delete(s.claims, claimID)
		return nil
	}
	if retryAt.IsZero() {
		retryAt = s.now()
	}
	entry.Status = claimStatusRetryReady
	entry.RetryAt = retryAt.UTC()
	entry.LeaseExpiresAt = time.Time{}
	s.entries[key] = entry
	delete(s.claims, claimID)
	return nil
}

func (s *InMemoryClaimStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *InMemoryClaimStore) nextClaimID() string {
	s.nextID++
	return fmt.Sprintf("claim_%d", s.nextID)
}

func (s *InMemoryClaimStore) evictExpiredLocked(now time.Time) {
	for key, entry := range s.entries {
		if entry.Status != claimStatusComplete {
			continue
		}
		if entry.LeaseExpiresAt.IsZero() || !now.Before(entry.LeaseExpiresAt) {
			if entry.ClaimID != "" {
				delete(s.claims, entry.ClaimID)
			}
			delete(s.entries, key)
		}
	}
}

func (d *Dispatcher) keyTTL() time.Duration {
	if d != nil && d.KeyTTL > 0 {
		return d.KeyTTL
	}
	return 10 * time.Minute
}

func (d *Dispatcher) handlerFor(surface string) Handler {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[normalizeSurface(surface)]
}

func normalizeSurface(surface string) string {
	return strings.TrimSpace(strings.ToLower(surface))
}

func isSupportedSurface(surface string) bool {
	switch normalizeSurface(surface) {
	case SurfaceOAuthCallback, SurfaceWebhook, SurfaceEventCallback:
		return true
	default:
		return false
	}
}

func trimAny(value any) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return metadata
}

func headerLookup(headers map[string]string, key string) string {
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
