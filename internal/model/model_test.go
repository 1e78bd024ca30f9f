package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls     []Request
	responses []Response
	errs      []error
	callIndex int
}

func (f *fakeClient) Complete(_ context.Context, req Request) (Response, error) {
	f.calls = append(f.calls, req)
	i := f.callIndex
	f.callIndex++
	if i < len(f.errs) && f.errs[i] != nil {
		return Response{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return Response{}, errors.New("fake: no more canned responses")
}

var errBadJSON = errors.New("bad json")

func TestCallWithRetrySucceedsOnFirstAttempt(t *testing.T) {
	client := &fakeClient{responses: []Response{{Content: `{"ok":true}`}}}
	out, attempts, err := CallWithRetry(context.Background(), client, Request{Temperature: 0.2}, 3, func(r Response) (string, error) {
		return r.Content, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, `{"ok":true}`, out)
	assert.InDelta(t, 0.2, float64(client.calls[0].Temperature), 1e-9)
}

func TestCallWithRetryEscalatesTemperatureOnParseFailure(t *testing.T) {
	client := &fakeClient{responses: []Response{
		{Content: "not json"},
		{Content: "still not json"},
		{Content: `{"ok":true}`},
	}}
	parse := func(r Response) (string, error) {
		if r.Content != `{"ok":true}` {
			return "", errBadJSON
		}
		return r.Content, nil
	}
	out, attempts, err := CallWithRetry(context.Background(), client, Request{Temperature: 0.0}, 3, parse)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, `{"ok":true}`, out)
	require.Len(t, client.calls, 3)
	assert.InDelta(t, 0.0, float64(client.calls[0].Temperature), 1e-9)
	assert.InDelta(t, float64(temperatureStep), float64(client.calls[1].Temperature), 1e-9)
	assert.InDelta(t, float64(2*temperatureStep), float64(client.calls[2].Temperature), 1e-9)
}

func TestCallWithRetryExhaustsAttempts(t *testing.T) {
	client := &fakeClient{responses: []Response{
		{Content: "x"}, {Content: "x"}, {Content: "x"},
	}}
	parse := func(Response) (string, error) { return "", errBadJSON }
	_, attempts, err := CallWithRetry(context.Background(), client, Request{}, 3, parse)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestCallWithRetryStopsImmediatelyOnRateLimit(t *testing.T) {
	client := &fakeClient{errs: []error{ErrRateLimited}}
	_, attempts, err := CallWithRetry(context.Background(), client, Request{}, 3, func(r Response) (string, error) {
		return r.Content, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, attempts, "rate limit errors must not be retried by CallWithRetry")
}

func TestCallWithRetryDefaultsMaxAttempts(t *testing.T) {
	client := &fakeClient{responses: []Response{{}, {}, {}}}
	parse := func(Response) (string, error) { return "", errBadJSON }
	_, attempts, err := CallWithRetry(context.Background(), client, Request{}, 0, parse)
	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, attempts)
}
