package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crit308/tutorcore/internal/tutor"
)

func newTestContext() *tutor.Context {
	return tutor.NewContext("sess-1", "user-1", "")
}

func TestRegistryInvokeValidatesArgsAgainstSchema(t *testing.T) {
	reg, err := NewRegistry([]Descriptor{
		{
			Name:      "echo",
			Cost:      CostLow,
			SchemaDoc: schemaRequiring("text"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				return Result{Payload: string(raw)}, nil
			},
		},
	})
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "echo", newTestContext(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, tutor.ErrToolInput)

	res, err := reg.Invoke(context.Background(), "echo", newTestContext(), json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hi"}`, res.Payload)
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)
	_, err = reg.Invoke(context.Background(), "nope", newTestContext(), nil)
	assert.ErrorIs(t, err, tutor.ErrUnknownTool)
}

func TestHighCostBudgetEnforcedAndDegraded(t *testing.T) {
	reg, err := NewRegistry([]Descriptor{
		{Name: "expensive", Cost: CostHigh, Fn: func(_ context.Context, _ *tutor.Context, _ json.RawMessage) (Result, error) {
			return Result{}, nil
		}},
		{Name: "cheap", Cost: CostLow, Fn: func(_ context.Context, _ *tutor.Context, _ json.RawMessage) (Result, error) {
			return Result{}, nil
		}},
	})
	require.NoError(t, err)

	tc := newTestContext()
	tc.HighCostCap = 1

	_, err = reg.Invoke(context.Background(), "expensive", tc, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tc.HighCostCalls)

	_, err = reg.Invoke(context.Background(), "expensive", tc, nil)
	require.Error(t, err, "second high-cost call must be rejected once the cap is reached")
	assert.ErrorIs(t, err, tutor.ErrToolInput)

	degraded := reg.DegradeIfOverBudget(tc, []Name{"expensive", "cheap"})
	assert.Equal(t, []Name{"cheap"}, degraded)
}
