package providers

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
)

// classifyFetchErr maps an SDK error to the provider error taxonomy. Each
// SDK surfaces auth and throttling failures under its own codes; matching on
// the message keeps this in one place instead of importing three error
// hierarchies.
func classifyFetchErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(provider, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "throttl"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "quota exceeded"),
		strings.Contains(msg, "429"):
		return apperrors.RateLimited(provider, err)
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "unauthenticated"),
		strings.Contains(msg, "access denied"),
		strings.Contains(msg, "accessdenied"),
		strings.Contains(msg, "invalid_client"),
		strings.Contains(msg, "expired token"),
		strings.Contains(msg, "expiredtoken"),
		strings.Contains(msg, "unrecognizedclient"),
		strings.Contains(msg, "could not find default credentials"),
		strings.Contains(msg, "401"), strings.Contains(msg, "403"):
		return apperrors.AuthFailed(provider, err)
	case strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "timeout"):
		return apperrors.Timeout(provider, err)
	}
	return err
}
