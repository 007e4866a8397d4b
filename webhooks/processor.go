package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-broadcast/inbound"
)

const (
	DeliveryStatusProcessing = "processing"
	DeliveryStatusProcessed  = "processed"
	DeliveryStatusRetryReady = "retry_ready"
	DeliveryStatusDead       = "dead"
)

type DeliveryRecord struct {
	ID            string
	ClaimID       string
	Platform      string
	DeliveryID    string
	Status        string
	Attempts      int
	NextAttemptAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeliveryLedger tracks every webhook delivery across attempts. Unlike the
// inbound claim store it keeps attempt counts and parks deliveries as dead
// once the retry budget runs out.
type DeliveryLedger interface {
	Claim(
		ctx context.Context,
		platform string,
		deliveryID string,
		payload []byte,
		lease time.Duration,
	) (DeliveryRecord, bool, error)
	Get(ctx context.Context, platform string, deliveryID string) (DeliveryRecord, error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error, nextAttemptAt time.Time, maxAttempts int) error
}

type Verifier interface {
	Verify(ctx context.Context, req inbound.Request) error
}

type DeliveryIDExtractor func(req inbound.Request) (string, error)

type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
}

type Handler interface {
	Handle(ctx context.Context, req inbound.Request) (inbound.Result, error)
}

type ExponentialRetryPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

func (p ExponentialRetryPolicy) NextDelay(attempt int) time.Duration {
	initial := p.Initial
	if initial <= 0 {
		initial = time.Second
	}
	maximum := p.Max
	if maximum <= 0 {
		maximum = 30 * time.Second
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}

type Processor struct {
	Verifier    Verifier
	Ledger      DeliveryLedger
	Handler     Handler
	ExtractID   DeliveryIDExtractor
	Burst       BurstController
	RetryPolicy RetryPolicy
	ClaimLease  time.Duration
	MaxAttempts int
	Now         func() time.Time
}

func NewProcessor(verifier Verifier, ledger DeliveryLedger, handler Handler) *Processor {
	return &Processor{
		Verifier:    verifier,
		Ledger:      ledger,
		Handler:     handler,
		ExtractID:   DefaultDeliveryIDExtractor,
		RetryPolicy: ExponentialRetryPolicy{},
		ClaimLease:  30 * time.Second,
		MaxAttempts: 8,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Surface lets the processor plug straight into the inbound dispatcher as the
// webhook handler.
func (p *Processor) Surface() string { return inbound.SurfaceWebhook }

func (p *Processor) Handle(ctx context.Context, req inbound.Request) (inbound.Result, error) {
	return p.Process(ctx, req)
}

func (p *Processor) Process(ctx context.Context, req inbound.Request) (inbound.Result, error) {
	if p == nil || p.Handler == nil || p.Ledger == nil {
		return inbound.Result{}, fmt.Errorf("webhooks: processor requires handler and ledger")
	}

	platform := strings.TrimSpace(strings.ToLower(req.Platform))
	if platform == "" {
		return inbound.Result{}, fmt.Errorf("webhooks: platform is required")
	}
	req.Platform = platform

	if p.Verifier != nil {
		if err := p.Verifier.Verify(ctx, req); err != nil {
			return inbound.Result{
				Accepted:   false,
				StatusCode: http.StatusUnauthorized,
				Metadata: map[string]any{
					"platform": platform,
					"rejected": true,
				},
			}, err
		}
	}

	extractor := p.ExtractID
	if extractor == nil {
		extractor = DefaultDeliveryIDExtractor
	}
	deliveryID, err := extractor(req)
	if err != nil {
		return inbound.Result{}, err
	}

	delivery, claimed, err := p.Ledger.Claim(ctx, platform, deliveryID, req.Body, p.claimLease())
	if err != nil {
		return inbound.Result{}, err
	}
	if !claimed {
		return inbound.Result{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Metadata: map[string]any{
				"platform":    platform,
				"delivery_id": delivery.DeliveryID,
				"status":      delivery.Status,
				"deduped":     true,
			},
		}, nil
	}

	if p.Burst != nil {
		decision, burstErr := p.Burst.Allow(ctx, req)
		if burstErr != nil {
			return inbound.Result{}, burstErr
		}
		if !decision.Allow {
			if markErr := p.Ledger.Complete(ctx, delivery.ClaimID); markErr != nil {
				return inbound.Result{}, markErr
			}
			metadata := decision.Metadata
			if metadata == nil {
				metadata = map[string]any{}
			}
			metadata["platform"] = platform
			metadata["delivery_id"] = deliveryID
			metadata["deduped"] = true
			return inbound.Result{
				Accepted:   true,
				StatusCode: http.StatusOK,
				Metadata:   metadata,
			}, nil
		}
	}

	result, err := p.Handler.Handle(ctx, req)
	if err != nil {
		nextAttemptAt := p.now().Add(p.retryPolicy().NextDelay(delivery.Attempts))
		_ = p.Ledger.Fail(ctx, delivery.ClaimID, err, nextAttemptAt, p.maxAttempts())
		return inbound.Result{}, err
	}

	if !result.Accepted || result.StatusCode >= http.StatusInternalServerError {
		retryErr := fmt.Errorf("webhooks: delivery handler returned retryable status %d", result.StatusCode)
		nextAttemptAt := p.now().Add(p.retryPolicy().NextDelay(delivery.Attempts))
		_ = p.Ledger.Fail(ctx, delivery.ClaimID, retryErr, nextAttemptAt, p.maxAttempts())
		return result, retryErr
	}

	if err := p.Ledger.Complete(ctx, delivery.ClaimID); err != nil {
		return inbound.Result{}, err
	}
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["platform"] = platform
	result.Metadata["delivery_id"] = deliveryID
	return result, nil
}

func DefaultDeliveryIDExtractor(req inbound.Request) (string, error) {
	if req.Metadata != nil {
		for _, key := range []string{"delivery_id", "event_id"} {
			value := strings.TrimSpace(fmt.Sprint(req.Metadata[key]))
			if value != "" && value != "<nil>" {
				return value, nil
			}
		}
	}
	if req.Headers != nil {
		for _, key := range []string{"x-delivery-id", "x-hub-delivery", "x-event-id"} {
			if value := headerValue(req.Headers, key); value != "" {
				return value, nil
			}
		}
	}
	return "", fmt.Errorf("webhooks: delivery id is required for dedupe")
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *Processor) retryPolicy() RetryPolicy {
	if p != nil && p.RetryPolicy != nil {
		return p.RetryPolicy
	}
	return ExponentialRetryPolicy{}
}

func (p *Processor) claimLease() time.Duration {
	if p != nil && p.ClaimLease > 0 {
		return p.ClaimLease
	}
	return 30 * time.Second
}

func (p *Processor) maxAttempts() int {
	if p != nil && p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return 8
}

type ledgerEntry struct {
	record  DeliveryRecord
	payload []byte
	lease   time.Duration
	leaseAt time.Time
}

// MemoryDeliveryLedger keeps delivery state in process. Suitable for tests
// and single-node deployments.
type MemoryDeliveryLedger struct {
	mu      sync.Mutex
	entries map[string]*ledgerEntry
	claims  map[string]string
	nextID  int
	Now     func() time.Time
}

func NewMemoryDeliveryLedger() *MemoryDeliveryLedger {
	return &MemoryDeliveryLedger{
		entries: map[string]*ledgerEntry{},
		claims:  map[string]string{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryDeliveryLedger) Claim(
	_ context.Context,
	platform string,
	deliveryID string,
	payload []byte,
	lease time.Duration,
) (DeliveryRecord, bool, error) {
	if l == nil {
		return DeliveryRecord{}, false, fmt.Errorf("webhooks: delivery ledger is nil")
	}
	platform = strings.TrimSpace(strings.ToLower(platform))
	deliveryID = strings.TrimSpace(deliveryID)
	if platform == "" || deliveryID == "" {
		return DeliveryRecord{}, false, fmt.Errorf("webhooks: platform and delivery id are required")
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	now := l.now()
	key := platform + ":" + deliveryID

	l.mu.Lock()
	defer l.mu.Unlock()
	entry, exists := l.entries[key]
	if !exists {
		l.nextID++
		claimID := fmt.Sprintf("delivery_claim_%d", l.nextID)
		record := DeliveryRecord{
			ID:         fmt.Sprintf("delivery_%d", l.nextID),
			ClaimID:    claimID,
			Platform:   platform,
			DeliveryID: deliveryID,
			Status:     DeliveryStatusProcessing,
			Attempts:   1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		l.entries[key] = &ledgerEntry{
			record:  record,
			payload: append([]byte(nil), payload...),
			lease:   lease,
			leaseAt: now,
		}
		l.claims[claimID] = key
		return record, true, nil
	}

	record := entry.record
	switch record.Status {
	case DeliveryStatusProcessed, DeliveryStatusDead:
		return record, false, nil
	case DeliveryStatusProcessing:
		if now.Before(entry.leaseAt.Add(entry.lease)) {
			return record, false, nil
		}
	case DeliveryStatusRetryReady:
		if record.NextAttemptAt != nil && now.Before(*record.NextAttemptAt) {
			return record, false, nil
		}
	}

	if record.ClaimID != "" {
		delete(l.claims, record.ClaimID)
	}
	l.nextID++
	claimID := fmt.Sprintf("delivery_claim_%d", l.nextID)
	record.ClaimID = claimID
	record.Status = DeliveryStatusProcessing
	record.Attempts++
	record.NextAttemptAt = nil
	record.UpdatedAt = now
	entry.record = record
	entry.lease = lease
	entry.leaseAt = now
	l.claims[claimID] = key
	return record, true, nil
}

func (l *MemoryDeliveryLedger) Get(_ context.Context, platform string, deliveryID string) (DeliveryRecord, error) {
	if l == nil {
		return DeliveryRecord{}, fmt.Errorf("webhooks: delivery ledger is nil")
	}
	key := strings.TrimSpace(strings.ToLower(platform)) + ":" + strings.TrimSpace(deliveryID)
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return DeliveryRecord{}, fmt.Errorf("webhooks: delivery %q not found", key)
	}
	return entry.record, nil
}

func (l *MemoryDeliveryLedger) Complete(_ context.Context, claimID string) error {
	if l == nil {
		return fmt.Errorf("webhooks: delivery ledger is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key, ok := l.claims[strings.TrimSpace(claimID)]
	if !ok {
		return nil
	}
	entry, exists := l.entries[key]
	if !exists || entry.record.Status != DeliveryStatusProcessing {
		delete(l.claims, claimID)
		return nil
	}
	entry.record.Status = DeliveryStatusProcessed
	entry.record.NextAttemptAt = nil
	entry.record.UpdatedAt = l.now()
	delete(l.claims, claimID)
	return nil
}

func (l *MemoryDeliveryLedger) Fail(
	_ context.Context,
	claimID string,
	_ error,
	nextAttemptAt time.Time,
	maxAttempts int,
) error {
	if l == nil {
		return fmt.Errorf("webhooks: delivery ledger is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key, ok := l.claims[strings.TrimSpace(claimID)]
	if !ok {
		return nil
	}
	entry, exists := l.entries[key]
	if !exists || entry.record.Status != DeliveryStatusProcessing {
		delete(l.claims, claimID)
		return nil
	}
	if maxAttempts > 0 && entry.record.Attempts >= maxAttempts {
		entry.record.Status = DeliveryStatusDead
		entry.record.NextAttemptAt = nil
	} else {
		entry.record.Status = DeliveryStatusRetryReady
		next := nextAttemptAt.UTC()
		entry.record.NextAttemptAt = &next
	}
	entry.record.UpdatedAt = l.now()
	delete(l.claims, claimID)
	return nil
}

func (l *MemoryDeliveryLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
