package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveRateLimiterBacksOffOnRateLimit(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(1000, 2000)
	before := limiter.currentTPM

	wrapped := limiter.Wrap(&fakeClient{errs: []error{ErrRateLimited}})
	_, err := wrapped.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)

	assert.Less(t, limiter.currentTPM, before, "a rate-limit observation must shrink the budget")
	assert.GreaterOrEqual(t, limiter.currentTPM, limiter.minTPM)
}

func TestAdaptiveRateLimiterProbesUpOnSuccess(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(1000, 2000)
	limiter.currentTPM = 500 // simulate a prior backoff

	wrapped := limiter.Wrap(&fakeClient{responses: []Response{{Content: "ok"}}})
	_, err := wrapped.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)

	assert.Greater(t, limiter.currentTPM, 500.0, "a successful call must recover some budget")
}

func TestEstimateTokensHasMinimumFloor(t *testing.T) {
	assert.Equal(t, 500, estimateTokens(Request{}))
	assert.Greater(t, estimateTokens(Request{System: "x", Messages: []Message{{Content: string(make([]byte, 3000))}}}), 500)
}
