package providers

import (
	"testing"

	"github.com/goliatone/go-broadcast/core"
)

func TestRegisterBuiltinsSkipsPlatformsWithoutCredentials(t *testing.T) {
	registry := core.NewPlatformRegistry()
	err := RegisterBuiltins(registry, map[string]ClientConfig{
		"x":        {ClientID: "x-client", ClientSecret: "x-secret"},
		"linkedin": {ClientID: "li-client", ClientSecret: "li-secret"},
	})
	if err != nil {
		t.Fatalf("register builtins: %v", err)
	}

	if _, ok := registry.Get("x"); !ok {
		t.Fatalf("x provider must register")
	}
	if _, ok := registry.Get("linkedin"); !ok {
		t.Fatalf("linkedin provider must register")
	}
	if _, ok := registry.Get("facebook"); ok {
		t.Fatalf("facebook has no credentials and must not register")
	}
}

func TestXProviderRequiresProofKey(t *testing.T) {
	provider, err := NewXProvider(ClientConfig{ClientID: "x-client"})
	if err != nil {
		t.Fatalf("new x provider: %v", err)
	}
	if !provider.RequiresProofKey() {
		t.Fatalf("x clients must use PKCE")
	}
}

func TestLinkedInProfileParser(t *testing.T) {
	profile, err := parseLinkedInProfile([]byte(`{"sub":"li-1","name":"Ada Lovelace","email":"ada@example.com"}`))
	if err != nil {
		t.Fatalf("parse profile: %v", err)
	}
	if profile.AccountID != "li-1" {
		t.Fatalf("unexpected account id: %q", profile.AccountID)
	}
	if profile.DisplayName != "Ada Lovelace" {
		t.Fatalf("unexpected display name: %q", profile.DisplayName)
	}
}
