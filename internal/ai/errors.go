package ai

import (
	"context"
	"errors"
	"net"

	"texforge/backend/internal/errinfo"
	"texforge/backend/internal/llm"
)

// MapError converts a failure from any AI operation into the structured
// payload the frontend renders. Unknown errors are treated as a retryable
// provider problem rather than leaking internals.
func MapError(phase, modelID string, err error) *errinfo.ErrorInfo {
	info := classify(phase, err)
	info.ModelID = modelID
	return info
}

func classify(phase string, err error) *errinfo.ErrorInfo {
	switch {
	case errors.Is(err, llm.ErrUnauthorized):
		return errinfo.ProviderAuthFailed(phase)
	case errors.Is(err, llm.ErrEgressBlocked):
		return errinfo.EgressBlocked(phase, err.Error())
	case errors.Is(err, llm.ErrRateLimited),
		errors.Is(err, llm.ErrUnavailable),
		errors.Is(err, llm.ErrEmptyResponse):
		return errinfo.ProviderUnavailable(phase, err.Error())
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return errinfo.NetworkUnavailable(phase, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return errinfo.NetworkUnavailable(phase, err.Error())
	}
	return errinfo.ProviderUnavailable(phase, err.Error())
}

// userMessage renders an error as a sentence safe to show in the UI.
func userMessage(err error) string {
	switch {
	case errors.Is(err, llm.ErrUnauthorized):
		return "the API key was rejected; check it in settings"
	case errors.Is(err, llm.ErrRateLimited):
		return "the model endpoint is rate limiting requests; try again shortly"
	case errors.Is(err, llm.ErrUnavailable):
		return "the model endpoint is unavailable; try again shortly"
	case errors.Is(err, llm.ErrEgressBlocked):
		return "the request was blocked by the network egress policy"
	case errors.Is(err, llm.ErrEmptyResponse):
		return "the model returned an empty response"
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out"
	case errors.Is(err, context.Canceled):
		return "the request was canceled"
	default:
		return "the request failed; try again"
	}
}
