package adapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"

	broadcast "github.com/goliatone/go-broadcast"
	"github.com/goliatone/go-broadcast/adapt"
	"github.com/goliatone/go-broadcast/adapters/gocommand"
	"github.com/goliatone/go-broadcast/adapters/gojob"
	"github.com/goliatone/go-broadcast/adapters/gologger"
	broadcastcommand "github.com/goliatone/go-broadcast/command"
	"github.com/goliatone/go-broadcast/core"
	"github.com/goliatone/go-broadcast/dispatch"
	"github.com/goliatone/go-broadcast/inbound"
)

// Exercises the full background path: logger bridges into go-job, a due
// scheduled campaign becomes a queue message, and the runner routes the
// delivery into the campaign executor.
func TestRuntimeCompatibility_SchedulerQueueRunner(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, logger, jobProvider, jobLogger := gologger.ResolveForJob("", nil, glog.Nop())
	if jobProvider == nil || jobLogger == nil {
		t.Fatal("expected go-job logger bridges")
	}

	store := core.NewMemoryCampaignStore()
	campaign := seedScheduledCampaign(t, store, now.Add(-time.Minute))

	memoryQueue := &memoryQueue{}
	scheduler := &gojob.Scheduler{
		Queue:     memoryQueue,
		Campaigns: store,
		Logger:    logger,
		Now:       func() time.Time { return now },
	}
	enqueued, err := scheduler.EnqueueDueCampaigns(ctx, campaign.TenantID)
	if err != nil {
		t.Fatalf("enqueue due campaigns: %v", err)
	}
	if enqueued != 1 {
		t.Fatalf("expected one due campaign enqueued, got %d", enqueued)
	}

	executor := &recordingExecutor{}
	runner := &gojob.Runner{
		Campaigns: executor,
		Policy:    gojob.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second},
		Logger:    logger,
	}
	delivery := memoryQueue.pop(t)
	if err := runner.Handle(ctx, delivery); err != nil {
		t.Fatalf("handle delivery: %v", err)
	}
	if !delivery.acked {
		t.Fatal("expected delivery acked after execution")
	}
	if executor.campaignID != campaign.ID || executor.tenantID != campaign.TenantID {
		t.Fatalf("expected campaign routed to executor, got %q/%q", executor.tenantID, executor.campaignID)
	}
}

// Commands registered through the gocommand adapter are mirrored into the
// go-job queue registry so queued deliveries resolve back to handlers.
func TestRuntimeCompatibility_QueueResolverMirror(t *testing.T) {
	queueRegistry := jobqueuecommand.NewRegistry()
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(command.CommandFunc[mirrorMessage](func(context.Context, mirrorMessage) error {
		return nil
	})); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("broadcast.compat.mirror"); !ok {
		t.Fatal("expected command mirrored into queue registry")
	}
}

// An event callback arriving through the inbound dispatcher fans out into a
// facade command over the go-command dispatcher.
func TestRuntimeCompatibility_InboundDispatchThroughFacade(t *testing.T) {
	credentials := &compatCredentialService{}
	campaigns := &compatCampaignService{}

	facade, err := broadcast.NewFacade(credentials, campaigns)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	binding, err := gocommand.BindFacade(adapter, facade)
	if err != nil {
		t.Fatalf("bind facade: %v", err)
	}
	defer binding.Unsubscribe()
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	dispatcher := inbound.NewDispatcher(nil, inbound.NewInMemoryClaimStore())
	if err := dispatcher.Register(&revokeEventHandler{}); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	result, err := dispatcher.Dispatch(context.Background(), inbound.Request{
		Platform: "x",
		Surface:  inbound.SurfaceEventCallback,
		TenantID: "tenant-1",
		Metadata: map[string]any{
			"idempotency_key": "evt-1",
			"account_id":      "acct-1",
			"reason":          "account deauthorized",
		},
	})
	if err != nil {
		t.Fatalf("dispatch inbound request: %v", err)
	}
	if !result.Accepted {
		t.Fatal("expected inbound request accepted")
	}
	if len(credentials.revoked) != 1 {
		t.Fatalf("expected revoke routed through facade command, got %d calls", len(credentials.revoked))
	}
	revoked := credentials.revoked[0]
	if revoked.TenantID != "tenant-1" || revoked.Platform != "x" || revoked.AccountID != "acct-1" {
		t.Fatalf("unexpected revoke request: %#v", revoked)
	}
}

type mirrorMessage struct{}

func (mirrorMessage) Type() string { return "broadcast.compat.mirror" }

// revokeEventHandler treats a platform deauthorize event as a token revoke.
type revokeEventHandler struct{}

func (h *revokeEventHandler) Surface() string { return inbound.SurfaceEventCallback }

func (h *revokeEventHandler) Handle(ctx context.Context, req inbound.Request) (inbound.Result, error) {
	err := gocommand.Dispatch(ctx, broadcastcommand.RevokeTokenMessage{
		Request: core.RevokeTokenRequest{
			TenantID:  req.TenantID,
			Platform:  req.Platform,
			AccountID: metadataString(req.Metadata, "account_id"),
			Reason:    metadataString(req.Metadata, "reason"),
		},
	})
	if err != nil {
		return inbound.Result{Accepted: false, StatusCode: 500}, err
	}
	return inbound.Result{Accepted: true, StatusCode: 202}, nil
}

func metadataString(metadata map[string]any, key string) string {
	if len(metadata) == 0 {
		return ""
	}
	value, _ := metadata[key].(string)
	return value
}

type memoryQueue struct {
	deliveries []*memoryDelivery
}

func (q *memoryQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	q.deliveries = append(q.deliveries, &memoryDelivery{msg: msg})
	return nil
}

func (q *memoryQueue) pop(t *testing.T) *memoryDelivery {
	t.Helper()
	if len(q.deliveries) == 0 {
		t.Fatal("queue is empty")
	}
	delivery := q.deliveries[0]
	q.deliveries = q.deliveries[1:]
	return delivery
}

type memoryDelivery struct {
	msg    *job.ExecutionMessage
	acked  bool
	nacked queue.NackOptions
}

func (d *memoryDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *memoryDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *memoryDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	d.nacked = opts
	return nil
}

type recordingExecutor struct {
	tenantID   string
	campaignID string
}

func (e *recordingExecutor) ExecuteCampaign(_ context.Context, tenantID string, campaignID string) (dispatch.ExecutionResult, error) {
	e.tenantID = tenantID
	e.campaignID = campaignID
	return dispatch.ExecutionResult{CampaignID: campaignID, Success: true}, nil
}

func seedScheduledCampaign(t *testing.T, store core.CampaignStore, at time.Time) core.Campaign {
	t.Helper()
	campaign, err := store.Create(context.Background(), core.Campaign{
		TenantID:        "tenant-1",
		Name:            "Launch",
		BaseContent:     "base content",
		TargetPlatforms: []string{"x"},
		AdaptedContent: map[string]core.AdaptedContent{
			"x": {Platform: "x", Text: "adapted"},
		},
		Strategy: core.CoordinationStrategy{Kind: core.StrategySimultaneous},
		Status:   core.CampaignStatusDraft,
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	if err := campaign.TransitionTo(core.CampaignStatusScheduled, time.Now().UTC()); err != nil {
		t.Fatalf("schedule campaign: %v", err)
	}
	scheduledAt := at
	campaign.ScheduledAt = &scheduledAt
	campaign, err = store.Update(context.Background(), campaign)
	if err != nil {
		t.Fatalf("persist scheduled campaign: %v", err)
	}
	return campaign
}

type compatCredentialService struct {
	revoked []core.RevokeTokenRequest
}

func (s *compatCredentialService) InitiateOAuth(context.Context, core.InitiateOAuthRequest) (core.InitiateOAuthResponse, error) {
	return core.InitiateOAuthResponse{}, nil
}

func (s *compatCredentialService) CompleteCallback(context.Context, core.CompleteCallbackRequest) (core.CallbackCompletion, error) {
	return core.CallbackCompletion{}, nil
}

func (s *compatCredentialService) RefreshToken(context.Context, core.RefreshTokenRequest) (core.ActiveToken, error) {
	return core.ActiveToken{}, nil
}

func (s *compatCredentialService) RevokeToken(_ context.Context, req core.RevokeTokenRequest) error {
	s.revoked = append(s.revoked, req)
	return nil
}

func (s *compatCredentialService) GetValidToken(context.Context, core.GetValidTokenRequest) (core.ActiveToken, error) {
	return core.ActiveToken{}, nil
}

func (s *compatCredentialService) ListConnectedAccounts(context.Context, string) ([]core.TenantToken, error) {
	return nil, nil
}

type compatCampaignService struct{}

func (s *compatCampaignService) CreateCampaign(context.Context, adapt.BuildCampaignRequest) (core.Campaign, error) {
	return core.Campaign{}, nil
}

func (s *compatCampaignService) UpdateCampaignContent(context.Context, string, string, string) (core.Campaign, error) {
	return core.Campaign{}, nil
}

func (s *compatCampaignService) ScheduleCampaign(context.Context, string, string, time.Time) (core.Campaign, error) {
	return core.Campaign{}, nil
}

func (s *compatCampaignService) ExecuteCampaign(context.Context, string, string) (dispatch.ExecutionResult, error) {
	return dispatch.ExecutionResult{}, nil
}

func (s *compatCampaignService) CancelCampaign(context.Context, string, string, string) (core.Campaign, error) {
	return core.Campaign{}, nil
}

func (s *compatCampaignService) GetCampaign(context.Context, string, string) (core.Campaign, error) {
	return core.Campaign{}, nil
}

func (s *compatCampaignService) ListCampaigns(context.Context, string) ([]core.Campaign, error) {
	return nil, nil
}
