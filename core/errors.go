package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	BroadcastErrorBadInput                = "BROADCAST_BAD_INPUT"
	BroadcastErrorStrategyNotFound        = "BROADCAST_STRATEGY_NOT_FOUND"
	BroadcastErrorStrategyNotImplemented  = "BROADCAST_STRATEGY_NOT_IMPLEMENTED"
	BroadcastErrorInvalidCampaignStatus   = "BROADCAST_INVALID_CAMPAIGN_STATUS"
	BroadcastErrorContentNotAdapted       = "BROADCAST_CONTENT_NOT_ADAPTED"
	BroadcastErrorPlatformExecutionFailed = "BROADCAST_PLATFORM_EXECUTION_FAILED"
	BroadcastErrorExecutionDeadlock       = "BROADCAST_EXECUTION_DEADLOCK"
	BroadcastErrorOAuthStateInvalid       = "BROADCAST_OAUTH_STATE_INVALID"
	BroadcastErrorAccessDenied            = "BROADCAST_ACCESS_DENIED"
	BroadcastErrorTokenExpired            = "BROADCAST_TOKEN_EXPIRED"
	BroadcastErrorRefreshLocked           = "BROADCAST_REFRESH_LOCKED"
	BroadcastErrorPlatformNotFound        = "BROADCAST_PLATFORM_NOT_FOUND"
	BroadcastErrorRateLimited             = "BROADCAST_RATE_LIMITED"
	BroadcastErrorInternal                = "BROADCAST_INTERNAL_ERROR"
)

func broadcastErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureBroadcastErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "platform") && strings.Contains(msg, "not registered"):
		return newBroadcastError(err.Error(), goerrors.CategoryNotFound, BroadcastErrorPlatformNotFound)
	case strings.Contains(msg, "no adaptation constraints"):
		return newBroadcastError(err.Error(), goerrors.CategoryNotFound, BroadcastErrorStrategyNotFound)
	case strings.Contains(msg, "oauth state"):
		return newBroadcastError(err.Error(), goerrors.CategoryAuth, BroadcastErrorOAuthStateInvalid)
	case strings.Contains(msg, "token expired"), strings.Contains(msg, "token is expired"):
		return newBroadcastError(err.Error(), goerrors.CategoryAuth, BroadcastErrorTokenExpired)
	case strings.Contains(msg, "lock already held"), strings.Contains(msg, "refresh lock"):
		return newBroadcastError(err.Error(), goerrors.CategoryConflict, BroadcastErrorRefreshLocked)
	case strings.Contains(msg, "status transition"), strings.Contains(msg, "campaign status"):
		return newBroadcastError(err.Error(), goerrors.CategoryConflict, BroadcastErrorInvalidCampaignStatus)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newBroadcastError(err.Error(), goerrors.CategoryBadInput, BroadcastErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureBroadcastErrorEnvelope(mapped)
}

func newBroadcastError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureBroadcastErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureBroadcastErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = broadcastHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultBroadcastTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultBroadcastTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return BroadcastErrorBadInput
	case goerrors.CategoryNotFound:
		return BroadcastErrorPlatformNotFound
	case goerrors.CategoryAuth:
		return BroadcastErrorTokenExpired
	case goerrors.CategoryAuthz:
		return BroadcastErrorAccessDenied
	case goerrors.CategoryConflict:
		return BroadcastErrorInvalidCampaignStatus
	case goerrors.CategoryRateLimit:
		return BroadcastErrorRateLimited
	case goerrors.CategoryOperation:
		return BroadcastErrorPlatformExecutionFailed
	default:
		return BroadcastErrorInternal
	}
}

func broadcastHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
