package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxAttempts is the retry cap shared by planner bootstrap, executor
// turn parsing, and analyzer summarization unless a caller overrides it.
const DefaultMaxAttempts = 3

// temperatureStep is the amount added to the request temperature on each
// retry attempt after the first.
const temperatureStep float32 = 0.2

// RetryBackoff is the pause before each retry attempt after the first.
const RetryBackoff = time.Second

// IsRetryable reports whether parseErr should trigger another CallWithRetry
// attempt rather than an immediate failure. Rate-limit errors are excluded:
// the AdaptiveRateLimiter in front of Client already slows the caller down,
// so retrying it here would just compound the backoff.
func IsRetryable(parseErr error) bool {
	return parseErr != nil && !errors.Is(parseErr, ErrRateLimited)
}

// CallWithRetry issues req against client, retrying up to maxAttempts times
// when parse rejects the response and waiting RetryBackoff before each
// retry (a canceled ctx ends the wait with ctx's error). It is a pure function of
// (messages, temperature, attempt#): each attempt only raises req.Temperature
// by a fixed step and carries no state between calls beyond that, so callers
// can reconstruct exactly what was sent on any given attempt from the
// returned attempt count alone.
//
// parse is supplied by the caller (JSON-mode decoding, tool-call validation,
// ...) so CallWithRetry stays agnostic to what "a good response" means for
// the planner, executor, or analyzer.
func CallWithRetry[T any](ctx context.Context, client Client, req Request, maxAttempts int, parse func(Response) (T, error)) (T, int, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	baseTemp := req.Temperature

	var zero T
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, attempt, ctx.Err()
			case <-time.After(RetryBackoff):
			}
		}
		attemptReq := req
		attemptReq.Temperature = baseTemp + temperatureStep*float32(attempt)

		resp, err := client.Complete(ctx, attemptReq)
		if err != nil {
			lastErr = err
			if !IsRetryable(err) {
				return zero, attempt + 1, err
			}
			continue
		}

		out, err := parse(resp)
		if err == nil {
			return out, attempt + 1, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return zero, attempt + 1, err
		}
	}
	return zero, maxAttempts, fmt.Errorf("model: exhausted %d attempts: %w", maxAttempts, lastErr)
}
