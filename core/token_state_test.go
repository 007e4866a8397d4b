package core

import (
	"testing"
	"time"
)

func TestResolveTokenState(t *testing.T) {
	now := time.Now().UTC()

	past := now.Add(-time.Minute)
	state := ResolveTokenState(now, TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: &past}, 0)
	if !state.IsExpired {
		t.Fatalf("expected expired state")
	}
	if !state.HasRefreshToken {
		t.Fatalf("expected refresh token flag")
	}

	soon := now.Add(2 * time.Minute)
	state = ResolveTokenState(now, TokenPair{AccessToken: "a", ExpiresAt: &soon}, 5*time.Minute)
	if state.IsExpired {
		t.Fatalf("token should not be expired")
	}
	if !state.IsExpiringSoon {
		t.Fatalf("token should be expiring soon")
	}

	state = ResolveTokenState(now, TokenPair{AccessToken: "a"}, 0)
	if state.IsExpired || state.IsExpiringSoon || state.ExpiresAt != nil {
		t.Fatalf("token without expiry should be stable: %+v", state)
	}
}

func TestShouldRefreshToken(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	expired := ResolveTokenState(now, TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: &past}, 0)
	if !ShouldRefreshToken(now, expired, 0) {
		t.Fatalf("expired token with refresh token should refresh")
	}

	noRefresh := ResolveTokenState(now, TokenPair{AccessToken: "a", ExpiresAt: &past}, 0)
	if ShouldRefreshToken(now, noRefresh, 0) {
		t.Fatalf("expired token without refresh token cannot refresh")
	}

	fresh := ResolveTokenState(now, TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: &future}, 0)
	if ShouldRefreshToken(now, fresh, 0) {
		t.Fatalf("fresh token must not refresh with zero lead window")
	}
	if !ShouldRefreshToken(now, fresh, 2*time.Hour) {
		t.Fatalf("fresh token inside lead window should refresh")
	}

	missingAccess := ResolveTokenState(now, TokenPair{RefreshToken: "r"}, 0)
	if !ShouldRefreshToken(now, missingAccess, 0) {
		t.Fatalf("missing access token should force refresh")
	}
}
