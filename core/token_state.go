package core

import (
	"strings"
	"time"
)

const DefaultTokenExpiringSoonWindow = 5 * time.Minute

// TokenState captures the lifecycle flags derived from a decoded token pair.
type TokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	IsExpired       bool
	IsExpiringSoon  bool
}

func ResolveTokenState(now time.Time, pair TokenPair, expiringSoonWindow time.Duration) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = DefaultTokenExpiringSoonWindow
	}

	state := TokenState{
		HasAccessToken:  strings.TrimSpace(pair.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(pair.RefreshToken) != "",
	}
	if pair.ExpiresAt == nil {
		return state
	}
	expiresAt := pair.ExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(expiringSoonWindow))
	return state
}

// ShouldRefreshToken reports whether a refresh should run before handing the
// token to a caller. With a zero lead window this is true only once the token
// has actually expired.
func ShouldRefreshToken(now time.Time, state TokenState, leadWindow time.Duration) bool {
	if !state.HasRefreshToken {
		return false
	}
	if !state.HasAccessToken {
		return true
	}
	if state.ExpiresAt == nil {
		return false
	}
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if leadWindow < 0 {
		leadWindow = 0
	}
	return !state.ExpiresAt.UTC().After(now.Add(leadWindow))
}
