package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
)

var (
	// ErrInvalidInput indicates bad caller-supplied data.
	// Never retried, surfaced immediately.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidModel indicates an unknown model identifier.
	ErrInvalidModel = errors.New("invalid model")

	// ErrServiceUnavailable indicates a transient failure of the OpenAI
	// service (network error, timeout, 5xx). Retry policy is the caller's
	// responsibility; the client never retries.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrQuotaExceeded indicates the API quota or rate limit was exhausted.
	// Permanent for the current call, surfaced without retry.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// classify maps transport and API errors onto the package's sentinel errors
// so callers can branch with errors.Is without knowing the SDK's error types.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		case apiErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrInvalidModel, err)
		case apiErr.StatusCode == http.StatusBadRequest,
			apiErr.StatusCode == http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		default:
			// Auth and other client errors surface unchanged; they are
			// configuration problems, not pipeline conditions.
			return err
		}
	}

	// No HTTP response at all: network-level failure.
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}
