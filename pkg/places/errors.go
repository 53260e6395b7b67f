package places

import (
	"errors"
	"fmt"
)

// ErrorCode classifies provider-level failures so callers can decide whether
// to retry, skip a record, abort a strategy, or abort the run.
type ErrorCode string

const (
	// CodeQuota means the daily or per-minute quota is exhausted; callers
	// should abort the run.
	CodeQuota ErrorCode = "quota_exceeded"
	// CodeDenied means the request was rejected for credential or permission
	// reasons; callers should abort the strategy.
	CodeDenied ErrorCode = "access_denied"
	// CodeInvalid means the request itself was malformed; callers should
	// abort the strategy.
	CodeInvalid ErrorCode = "invalid_request"
	// CodeNotFound means the referenced place does not exist.
	CodeNotFound ErrorCode = "not_found"
	// CodeUnknown covers any other non-OK provider status.
	CodeUnknown ErrorCode = "unknown"
)

// ProviderError is a non-transport failure reported by the provider through
// its status field.
type ProviderError struct {
	Code    ErrorCode
	Status  string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("places: %s (%s): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("places: %s (%s)", e.Code, e.Status)
}

// AsProviderError unwraps a *ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// codeForStatus maps a provider status string onto the error taxonomy.
// OK and ZERO_RESULTS are success cases and never reach this table.
func codeForStatus(status string) ErrorCode {
	switch status {
	case "OVER_QUERY_LIMIT", "RESOURCE_EXHAUSTED":
		return CodeQuota
	case "REQUEST_DENIED", "PERMISSION_DENIED":
		return CodeDenied
	case "INVALID_REQUEST":
		return CodeInvalid
	case "NOT_FOUND":
		return CodeNotFound
	default:
		return CodeUnknown
	}
}
