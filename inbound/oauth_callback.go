package inbound

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-broadcast/core"
)

// CallbackCompleter is the slice of the credential service the callback
// handler needs. *core.Service satisfies it.
type CallbackCompleter interface {
	CompleteCallback(ctx context.Context, req core.CompleteCallbackRequest) (core.CallbackCompletion, error)
}

// OAuthCallbackHandler turns the platform's redirect into a callback
// completion. The embedding application resolves the tenant and user from its
// session and passes them through request metadata.
type OAuthCallbackHandler struct {
	service     CallbackCompleter
	redirectURI string
}

func NewOAuthCallbackHandler(service CallbackCompleter, redirectURI string) (*OAuthCallbackHandler, error) {
	if service == nil {
		return nil, inboundInternal("inbound: callback completer is required", nil)
	}
	return &OAuthCallbackHandler{
		service:     service,
		redirectURI: strings.TrimSpace(redirectURI),
	}, nil
}

func (h *OAuthCallbackHandler) Surface() string { return SurfaceOAuthCallback }

func (h *OAuthCallbackHandler) Handle(ctx context.Context, req Request) (Result, error) {
	if h == nil || h.service == nil {
		return Result{}, inboundInternal("inbound: callback handler is not configured", nil)
	}

	// Platforms report a denied consent screen through the error query param
	// rather than an HTTP failure.
	if denial := strings.TrimSpace(req.Query["error"]); denial != "" {
		return Result{
			Accepted:   false,
			StatusCode: http.StatusBadRequest,
			Metadata: map[string]any{
				"oauth_error":             denial,
				"oauth_error_description": strings.TrimSpace(req.Query["error_description"]),
			},
		}, nil
	}

	code := strings.TrimSpace(req.Query["code"])
	state := strings.TrimSpace(req.Query["state"])
	if code == "" || state == "" {
		return Result{}, inboundBadInput("inbound: oauth callback requires code and state", map[string]any{
			"platform": req.Platform,
		})
	}

	tenantID := strings.TrimSpace(req.TenantID)
	if tenantID == "" {
		tenantID = trimAny(req.Metadata["tenant_id"])
	}
	userID := trimAny(req.Metadata["user_id"])

	completion, err := h.service.CompleteCallback(ctx, core.CompleteCallbackRequest{
		TenantID:    tenantID,
		UserID:      userID,
		Platform:    req.Platform,
		Code:        code,
		State:       state,
		RedirectURI: h.redirectURI,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return Result{}, fmt.Errorf("inbound: complete oauth callback: %w", err)
	}

	metadata := map[string]any{
		"account_id":   completion.Token.AccountID,
		"display_name": completion.Profile.DisplayName,
	}
	if completion.ReturnURL != "" {
		metadata["return_url"] = completion.ReturnURL
	}
	return Result{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata:   metadata,
	}, nil
}
