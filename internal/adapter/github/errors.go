package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vibecheck/issuesync/internal/adapter/httpx"
)

const serviceName = "github"

// mapHTTPError maps a GitHub API error response to a typed httpx.Error so
// the shared retry logic can classify it. The response body must already be
// read; headers are consulted for secondary rate limit detection, because
// GitHub reports exhausted quotas as 403 rather than 429.
func mapHTTPError(resp *http.Response, body []byte) *httpx.Error {
	message := parseErrorMessage(resp.StatusCode, body)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &httpx.Error{
			Type:       httpx.ErrTypeRateLimit,
			Message:    message,
			StatusCode: resp.StatusCode,
			Retryable:  true,
			Service:    serviceName,
		}

	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" ||
			strings.Contains(strings.ToLower(string(body)), "rate limit") {
			return &httpx.Error{
				Type:       httpx.ErrTypeRateLimit,
				Message:    message,
				StatusCode: resp.StatusCode,
				Retryable:  true,
				Service:    serviceName,
			}
		}
		return &httpx.Error{
			Type:       httpx.ErrTypeAuthentication,
			Message:    message,
			StatusCode: resp.StatusCode,
			Retryable:  false,
			Service:    serviceName,
		}

	case http.StatusUnauthorized:
		return &httpx.Error{
			Type:       httpx.ErrTypeAuthentication,
			Message:    message,
			StatusCode: resp.StatusCode,
			Retryable:  false,
			Service:    serviceName,
		}

	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return &httpx.Error{
			Type:       httpx.ErrTypeInvalidRequest,
			Message:    message,
			StatusCode: resp.StatusCode,
			Retryable:  false,
			Service:    serviceName,
		}

	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return &httpx.Error{
			Type:       httpx.ErrTypeServiceUnavailable,
			Message:    message,
			StatusCode: resp.StatusCode,
			Retryable:  true,
			Service:    serviceName,
		}

	default:
		return &httpx.Error{
			Type:       httpx.ErrTypeUnknown,
			Message:    message,
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode >= 500,
			Service:    serviceName,
		}
	}
}

// parseErrorMessage extracts a readable message from GitHub's error envelope.
func parseErrorMessage(statusCode int, body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		preview := string(body)
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		if preview == "" {
			return fmt.Sprintf("HTTP %d", statusCode)
		}
		return fmt.Sprintf("HTTP %d: %s", statusCode, preview)
	}

	if len(errResp.Errors) > 0 {
		var details []string
		for _, e := range errResp.Errors {
			if e.Message != "" {
				details = append(details, e.Message)
			} else if e.Field != "" {
				details = append(details, fmt.Sprintf("%s: %s", e.Field, e.Code))
			}
		}
		if len(details) > 0 {
			return fmt.Sprintf("%s: %s", errResp.Message, strings.Join(details, "; "))
		}
	}

	return errResp.Message
}
