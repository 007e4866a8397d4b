package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRefreshMaxAttempts    = 3
	defaultRefreshInitialBackoff = 500 * time.Millisecond
	defaultRefreshMaxBackoff     = 10 * time.Second
	defaultRefreshLockTTL        = 30 * time.Second
)

type refreshLockContextKey struct{}

func isRefreshLockHeld(ctx context.Context, key string) bool {
	if ctx == nil {
		return false
	}
	held, _ := ctx.Value(refreshLockContextKey{}).(string)
	return held != "" && held == key
}

type LockHandle interface {
	Unlock(ctx context.Context) error
}

type AccountLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (LockHandle, error)
}

type RefreshBackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultRefreshInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultRefreshMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

type RefreshRunResult struct {
	Attempts    int
	Deactivated bool
}

type RefreshRunOptions struct {
	MaxAttempts int
	LockTTL     time.Duration
}

// RunRefreshWithRetry drives RefreshToken with exponential backoff. An
// unrecoverable error (revoked grant, invalid refresh token) deactivates the
// stored credential so the account shows up as needing reconnection instead
// of being retried forever.
func (s *Service) RunRefreshWithRetry(ctx context.Context, req RefreshTokenRequest, opts RefreshRunOptions) (RefreshRunResult, error) {
	if s == nil {
		return RefreshRunResult{}, fmt.Errorf("core: service is nil")
	}
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return RefreshRunResult{}, s.mapError(fmt.Errorf("core: account id is required"))
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = s.config.Refresh.MaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = defaultRefreshMaxAttempts
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultRefreshLockTTL
	}

	lockKey := accountLockKey(req.Platform, accountID)
	unlock := func() {}
	if s.accountLocker != nil {
		handle, lockErr := s.accountLocker.Acquire(ctx, lockKey, lockTTL)
		if lockErr != nil {
			return RefreshRunResult{}, s.mapError(lockErr)
		}
		ctx = context.WithValue(ctx, refreshLockContextKey{}, lockKey)
		unlock = func() {
			_ = handle.Unlock(ctx)
		}
	}
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err := s.RefreshToken(ctx, req)
		if err == nil {
			return RefreshRunResult{Attempts: attempt}, nil
		}
		lastErr = err

		if isUnrecoverableRefreshError(err) {
			_ = s.deactivateAfterFailedRefresh(ctx, req.Platform, accountID, err)
			return RefreshRunResult{Attempts: attempt, Deactivated: true}, s.mapError(err)
		}
		if attempt == maxAttempts {
			_ = s.deactivateAfterFailedRefresh(ctx, req.Platform, accountID, err)
			return RefreshRunResult{Attempts: attempt, Deactivated: true}, s.mapError(err)
		}

		delay := defaultRefreshInitialBackoff
		if s.refreshBackoffScheduler != nil {
			delay = s.refreshBackoffScheduler.NextDelay(attempt)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return RefreshRunResult{Attempts: attempt}, s.mapError(waitErr)
		}
	}

	return RefreshRunResult{Attempts: maxAttempts}, s.mapError(lastErr)
}

func (s *Service) deactivateAfterFailedRefresh(ctx context.Context, platform string, accountID string, source error) error {
	if s == nil || s.tokenStore == nil {
		return nil
	}
	reason := strings.TrimSpace(fmt.Sprint(source))
	if reason == "" {
		reason = "refresh failed"
	}
	return s.tokenStore.MarkInactive(ctx, platform, accountID, TokenStatusInactive, reason)
}

func isUnrecoverableRefreshError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryValidation, goerrors.CategoryNotFound:
			return true
		}
		switch strings.TrimSpace(strings.ToUpper(richErr.TextCode)) {
		case BroadcastErrorTokenExpired, BroadcastErrorAccessDenied:
			return true
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "invalid_grant") ||
		strings.Contains(msg, "invalid refresh token") ||
		strings.Contains(msg, "reauthorization required") ||
		strings.Contains(msg, "re-auth required")
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type MemoryAccountLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	nowFn func() time.Time
}

func NewMemoryAccountLocker() *MemoryAccountLocker {
	return &MemoryAccountLocker{
		locks: make(map[string]time.Time),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryAccountLocker) Acquire(_ context.Context, key string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: account locker is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("core: lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultRefreshLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.locks[key]; ok && now.Before(until) {
		return nil, fmt.Errorf("core: refresh lock already held for %q", key)
	}
	l.locks[key] = now.Add(ttl)
	return &memoryLockHandle{locker: l, key: key}, nil
}

type memoryLockHandle struct {
	locker *MemoryAccountLocker
	key    string
	once   sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.locks, h.key)
		h.locker.mu.Unlock()
	})
	return nil
}
