package ai

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRuntime struct {
	failures int
	calls    int
}

func (s *scriptedRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, &ServerError{APIError: &APIError{StatusCode: 503, Message: "attempt failed"}}
	}
	return &GenerateResponse{Text: "ok"}, nil
}

func recordingSleep(waits *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func sum(ds []time.Duration) time.Duration {
	var t time.Duration
	for _, d := range ds {
		t += d
	}
	return t
}

func TestRetryingSucceedsOnSixthAttempt(t *testing.T) {
	rt := &scriptedRuntime{failures: 5}
	var waits []time.Duration
	r := NewRetrying(rt, nil, nil)
	r.Sleep = recordingSleep(&waits)

	resp, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 6, rt.calls)
	assert.Equal(t, DefaultBackoff, waits)
	assert.Equal(t, 31*time.Second, sum(waits))
}

func TestRetryingGivesUpAfterSixAttempts(t *testing.T) {
	rt := &scriptedRuntime{failures: 100}
	var waits []time.Duration
	r := NewRetrying(rt, nil, nil)
	r.Sleep = recordingSleep(&waits)

	_, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 6, rt.calls, "never a seventh attempt")
	assert.Len(t, waits, 5)
}

func TestRetryingFirstTrySuccessDoesNotSleep(t *testing.T) {
	rt := &scriptedRuntime{}
	var waits []time.Duration
	r := NewRetrying(rt, nil, nil)
	r.Sleep = recordingSleep(&waits)

	_, err := r.Generate(context.Background(), GenerateRequest{})
	require.NoError(t, err)
	assert.Empty(t, waits)
}

type keylessRuntime struct{ calls int }

func (k *keylessRuntime) Generate(context.Context, GenerateRequest) (*GenerateResponse, error) {
	k.calls++
	return nil, ErrMissingAPIKey
}

func TestRetryingDoesNotRetryMissingKey(t *testing.T) {
	rt := &keylessRuntime{}
	r := NewRetrying(rt, nil, nil)
	r.Sleep = func(context.Context, time.Duration) error { t.Fatal("unexpected sleep"); return nil }
	_, err := r.Generate(context.Background(), GenerateRequest{})
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
	assert.Equal(t, 1, rt.calls)
}

func TestRetryingStopsWhenContextEnds(t *testing.T) {
	rt := &scriptedRuntime{failures: 100}
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetrying(rt, []time.Duration{time.Hour}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.Generate(ctx, GenerateRequest{})
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Generate did not return after cancel")
	}
	assert.Equal(t, 1, rt.calls)
}

func TestRetryingDoesNotRepeatBlockedPrompt(t *testing.T) {
	var calls atomic.Int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	var waits []time.Duration
	r := NewRetrying(NewClientWithBaseURL("k", time.Second, srv.URL), nil, nil)
	r.Sleep = recordingSleep(&waits)

	_, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.ErrorIs(t, err, ErrEmptyResponse)
	var empty *EmptyResponseError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "SAFETY", empty.BlockReason)
	assert.Contains(t, err.Error(), "SAFETY")
	assert.NotEmpty(t, Hint(err))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, waits)
}

func TestBackoffFromMillis(t *testing.T) {
	assert.Equal(t,
		[]time.Duration{time.Second, 250 * time.Millisecond, 0},
		BackoffFromMillis([]int{1000, 250, -5}))
}
