package broadcast_test

import (
	"context"
	"strings"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"

	broadcast "github.com/goliatone/go-broadcast"
	"github.com/goliatone/go-broadcast/adapt"
	broadcastcommand "github.com/goliatone/go-broadcast/command"
	"github.com/goliatone/go-broadcast/core"
	"github.com/goliatone/go-broadcast/dispatch"
	"github.com/goliatone/go-broadcast/providers/devkit"
	broadcastquery "github.com/goliatone/go-broadcast/query"
	"github.com/goliatone/go-broadcast/security"
)

// TestDownstreamComposition walks the path an embedding application takes:
// register platforms through extension hooks, build the credential service,
// the coordinator and the facade, then run connect -> campaign -> execute ->
// revoke entirely through commands and queries.
func TestDownstreamComposition(t *testing.T) {
	ctx := context.Background()

	hooks := broadcast.NewExtensionHooks()
	if err := hooks.RegisterProviderPack(broadcast.ProviderPack{
		Name: "devkit",
		Providers: []core.AuthProvider{
			devkit.NewFakePlatform("x", devkit.WithProofKey()),
			devkit.NewFakePlatform("linkedin"),
		},
	}); err != nil {
		t.Fatalf("register provider pack: %v", err)
	}
	if err := hooks.RegisterOptimizationPack(broadcast.OptimizationPack{
		Name: "composition",
		Optimizations: map[string]adapt.Optimization{
			"tighten": strings.TrimSpace,
		},
	}); err != nil {
		t.Fatalf("register optimization pack: %v", err)
	}

	registry := core.NewPlatformRegistry()
	if err := hooks.ApplyProviderPacks(registry); err != nil {
		t.Fatalf("apply provider packs: %v", err)
	}

	secrets, err := security.NewAppKeySecretProviderFromString("downstream-composition-key")
	if err != nil {
		t.Fatalf("build secret provider: %v", err)
	}

	service, err := broadcast.NewService(broadcast.Config{},
		broadcast.WithRegistry(registry),
		broadcast.WithSecretProvider(secrets),
		broadcast.WithOAuthStateStore(core.NewMemoryOAuthStateStore(10*time.Minute)),
		broadcast.WithTokenStore(core.NewMemoryTokenStore()),
		broadcast.WithCampaignStore(core.NewMemoryCampaignStore()),
		broadcast.WithCoordinationEventSink(core.NewMemoryCoordinationEventSink()),
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	engine := adapt.NewEngine(
		adapt.WithRegistry(registry),
		adapt.WithOptimizations(hooks.Optimizations()),
	)
	coordinator, err := broadcast.NewCoordinator(service,
		broadcast.WithCoordinatorEngine(engine))
	if err != nil {
		t.Fatalf("build coordinator: %v", err)
	}

	facade, err := broadcast.NewFacade(service, coordinator)
	if err != nil {
		t.Fatalf("build facade: %v", err)
	}
	commands := facade.Commands()
	queries := facade.Queries()

	// Connect an account per target platform.
	accountIDs := map[string]string{}
	for _, platform := range []string{"x", "linkedin"} {
		initiate := gocmd.NewResult[core.InitiateOAuthResponse]()
		err := commands.InitiateOAuth.Execute(
			gocmd.ContextWithResult(ctx, initiate),
			broadcastcommand.InitiateOAuthMessage{Request: core.InitiateOAuthRequest{
				TenantID:    "tenant-1",
				UserID:      "user-1",
				Platform:    platform,
				RedirectURI: "https://app.example.com/callback",
			}})
		if err != nil {
			t.Fatalf("initiate oauth for %s: %v", platform, err)
		}
		initiated, ok := initiate.Load()
		if !ok || initiated.State == "" {
			t.Fatalf("expected initiate result for %s, got %#v", platform, initiated)
		}

		callback := gocmd.NewResult[core.CallbackCompletion]()
		err = commands.CompleteCallback.Execute(
			gocmd.ContextWithResult(ctx, callback),
			broadcastcommand.CompleteCallbackMessage{Request: core.CompleteCallbackRequest{
				TenantID:    "tenant-1",
				UserID:      "user-1",
				Platform:    platform,
				Code:        "grant-" + platform,
				State:       initiated.State,
				RedirectURI: "https://app.example.com/callback",
			}})
		if err != nil {
			t.Fatalf("complete callback for %s: %v", platform, err)
		}
		completion, ok := callback.Load()
		if !ok || !completion.Token.Active() {
			t.Fatalf("expected active token for %s, got %#v", platform, completion.Token)
		}
		accountIDs[platform] = completion.Token.AccountID
	}

	accounts, err := queries.ListConnectedAccounts.Query(ctx,
		broadcastquery.ListConnectedAccountsMessage{TenantID: "tenant-1"})
	if err != nil {
		t.Fatalf("list connected accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 connected accounts, got %d", len(accounts))
	}

	// Build, schedule and execute a campaign.
	create := gocmd.NewResult[core.Campaign]()
	err = commands.CreateCampaign.Execute(
		gocmd.ContextWithResult(ctx, create),
		broadcastcommand.CreateCampaignMessage{Request: adapt.BuildCampaignRequest{
			TenantID:        "tenant-1",
			Name:            "Composition launch",
			BaseContent:     "Shipping the new coordination layer today #launch",
			TargetPlatforms: []string{"x", "linkedin"},
			Strategy:        core.CoordinationStrategy{Kind: core.StrategySimultaneous},
		}})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	campaign, ok := create.Load()
	if !ok || campaign.Status != core.CampaignStatusDraft {
		t.Fatalf("expected draft campaign, got %#v", campaign)
	}

	schedule := gocmd.NewResult[core.Campaign]()
	err = commands.ScheduleCampaign.Execute(
		gocmd.ContextWithResult(ctx, schedule),
		broadcastcommand.ScheduleCampaignMessage{
			TenantID:    "tenant-1",
			CampaignID:  campaign.ID,
			ScheduledAt: time.Now().Add(time.Hour),
		})
	if err != nil {
		t.Fatalf("schedule campaign: %v", err)
	}
	scheduled, ok := schedule.Load()
	if !ok || scheduled.Status != core.CampaignStatusScheduled {
		t.Fatalf("expected scheduled campaign, got %#v", scheduled)
	}

	execute := gocmd.NewResult[dispatch.ExecutionResult]()
	err = commands.ExecuteCampaign.Execute(
		gocmd.ContextWithResult(ctx, execute),
		broadcastcommand.ExecuteCampaignMessage{TenantID: "tenant-1", CampaignID: campaign.ID})
	if err != nil {
		t.Fatalf("execute campaign: %v", err)
	}
	result, ok := execute.Load()
	if !ok {
		t.Fatal("expected execution result")
	}
	if result.Status != core.CampaignStatusCompleted || !result.Success {
		t.Fatalf("expected completed execution, got %#v", result)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(result.Outcomes))
	}

	final, err := queries.GetCampaign.Query(ctx, broadcastquery.GetCampaignMessage{
		TenantID:   "tenant-1",
		CampaignID: campaign.ID,
	})
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if final.Status != core.CampaignStatusCompleted {
		t.Fatalf("expected stored campaign completed, got %s", final.Status)
	}

	events, err := queries.ListCoordinationEvents.Query(ctx,
		broadcastquery.ListCoordinationEventsMessage{
			Filter: core.ListCoordinationEventsFilter{CampaignID: campaign.ID},
		})
	if err != nil {
		t.Fatalf("list coordination events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected coordination events recorded")
	}

	// Revoke one credential and confirm it no longer resolves.
	err = commands.RevokeToken.Execute(ctx, broadcastcommand.RevokeTokenMessage{
		Request: core.RevokeTokenRequest{
			TenantID:  "tenant-1",
			Platform:  "x",
			AccountID: accountIDs["x"],
			Reason:    "user disconnected",
		}})
	if err != nil {
		t.Fatalf("revoke token: %v", err)
	}
	_, err = queries.GetValidToken.Query(ctx, broadcastquery.GetValidTokenMessage{
		Request: core.GetValidTokenRequest{
			TenantID:  "tenant-1",
			Platform:  "x",
			AccountID: accountIDs["x"],
		},
	})
	if err == nil {
		t.Fatal("expected revoked credential to stop resolving")
	}
}
