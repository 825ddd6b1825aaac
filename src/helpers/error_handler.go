package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stream-operators/src/logger"
)

// -----------------------------------------------------------------------------
// Sentinel errors
// -----------------------------------------------------------------------------

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrSyncTimeout        = errors.New("timed out waiting for initial sync")
	ErrUnknownFunction    = errors.New("unknown function")
	ErrOperatorStopped    = errors.New("operator stopped")
	ErrUnsupportedCommand = errors.New("command not supported here")
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type StreamOperatorError struct {
	Message string
	Cause   error
}

func (e *StreamOperatorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StreamOperatorError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigParseError struct{ StreamOperatorError }
type ReasoningServiceError struct{ StreamOperatorError }
type SynthesisError struct{ StreamOperatorError }
type InvalidCommandIntentError struct{ StreamOperatorError }
type NumericTypeError struct{ StreamOperatorError }
type RoutingFailedError struct{ StreamOperatorError }
type SubscriptionError struct{ StreamOperatorError }
type ConfigurationError struct{ StreamOperatorError }
type DatabaseError struct{ StreamOperatorError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewConfigParseError(msg string, cause error) error {
	return &ConfigParseError{StreamOperatorError{Message: msg, Cause: cause}}
}

func NewReasoningServiceError(msg string, cause error) error {
	return &ReasoningServiceError{StreamOperatorError{Message: msg, Cause: cause}}
}

func NewSynthesisError(msg string, cause error) error {
	return &SynthesisError{StreamOperatorError{Message: msg, Cause: cause}}
}

func NewInvalidCommandIntentError(msg string, cause error) error {
	return &InvalidCommandIntentError{StreamOperatorError{Message: msg, Cause: cause}}
}

func NewNumericTypeError(value interface{}) error {
	return &NumericTypeError{StreamOperatorError{Message: fmt.Sprintf("value %v (%T) is not numeric", value, value)}}
}

func NewRoutingFailedError(msg string, cause error) error {
	return &RoutingFailedError{StreamOperatorError{Message: msg, Cause: cause}}
}

func NewSubscriptionError(msg string, cause error) error {
	return &SubscriptionError{StreamOperatorError{Message: msg, Cause: cause}}
}

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{StreamOperatorError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{StreamOperatorError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

func IsConfigParseError(err error) bool {
	var target *ConfigParseError
	return errors.As(err, &target)
}

func IsReasoningServiceError(err error) bool {
	var target *ReasoningServiceError
	return errors.As(err, &target)
}

func IsSynthesisError(err error) bool {
	var target *SynthesisError
	return errors.As(err, &target)
}

func IsInvalidCommandIntentError(err error) bool {
	var target *InvalidCommandIntentError
	return errors.As(err, &target)
}

func IsNumericTypeError(err error) bool {
	var target *NumericTypeError
	return errors.As(err, &target)
}

func IsRoutingFailedError(err error) bool {
	var target *RoutingFailedError
	return errors.As(err, &target)
}

func IsSubscriptionError(err error) bool {
	var target *SubscriptionError
	return errors.As(err, &target)
}

func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsCancellation reports whether err stems from context cancellation or deadline.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
// It stops early when ctx is cancelled.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if IsCancellation(err) {
			return err
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}
		if err := Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s: %w: %v", operation, ErrMaxRetriesExceeded, lastErr)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
