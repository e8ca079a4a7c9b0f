package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-insights-go/internal/types"
)

// mockRunner fails for URLs listed in failures.
type mockRunner struct {
	failures map[string]error
	calls    []string
	cancel   context.CancelFunc
}

func (m *mockRunner) Run(ctx context.Context, req types.PipelineRequest) (types.PipelineResponse, error) {
	m.calls = append(m.calls, req.SourceURL)
	if m.cancel != nil {
		m.cancel()
	}
	if err := m.failures[req.SourceURL]; err != nil {
		return types.PipelineResponse{Title: req.DisplayTitle}, err
	}
	return types.PipelineResponse{Success: true, Title: req.DisplayTitle}, nil
}

func TestProcessAllContinuesPastFailures(t *testing.T) {
	upErr := &types.UpstreamError{Status: 500, Message: "down"}
	r := &mockRunner{failures: map[string]error{"b": upErr}}
	reqs := []types.PipelineRequest{{SourceURL: "a"}, {SourceURL: "b"}, {SourceURL: "c"}}

	res, err := ProcessAll(context.Background(), r, reqs, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, r.calls)
	require.Len(t, res.Items, 3)
	require.Len(t, res.Errors, 3)

	assert.True(t, res.Items[0].Response.Success)
	assert.False(t, res.Items[1].Response.Success)
	assert.Equal(t, upErr.Error(), res.Items[1].Error)
	assert.Same(t, upErr, res.Errors[1])
	assert.NoError(t, res.Errors[2])
}

func TestProcessAllStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &mockRunner{cancel: cancel}

	res, err := ProcessAll(ctx, r, []types.PipelineRequest{{SourceURL: "a"}, {SourceURL: "b"}}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, res.Items, 1)
	assert.Equal(t, []string{"a"}, r.calls)
}
