package judge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prepcode-api/internal/models"
	"github.com/noah-isme/prepcode-api/pkg/judge0"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func strPtr(value string) *string { return &value }
func intPtr(value int) *int       { return &value }

func pollResult(token string, status int) judge0.Result {
	return judge0.Result{Token: token, Status: judge0.Status{ID: status}}
}

func TestPollerReturnsWhenAllTerminal(t *testing.T) {
	exec := &stubExecutor{rounds: [][]judge0.Result{
		{pollResult("a", judge0.StatusInQueue), pollResult("b", judge0.StatusProcessing)},
		{pollResult("a", judge0.StatusAccepted), pollResult("b", judge0.StatusProcessing)},
		{
			{Token: "a", Status: judge0.Status{ID: judge0.StatusAccepted}, Stdout: strPtr("3\n"), Time: strPtr("0.012"), Memory: intPtr(900)},
			{Token: "b", Status: judge0.Status{ID: judge0.StatusCompilationError}, CompileOutput: strPtr("syntax error")},
		},
	}}
	clock := newFakeClock()
	poller := NewPoller(exec, PollerConfig{InitialInterval: 100 * time.Millisecond, MaxInterval: 300 * time.Millisecond}, zerolog.Nop()).WithClock(clock)

	results, err := poller.AwaitResults(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 3, exec.calls)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, clock.sleeps)

	require.Equal(t, models.SubmissionStatusAccepted, results[0].Status)
	require.Equal(t, "3\n", results[0].Stdout)
	require.Equal(t, int64(12), results[0].RuntimeMs)
	require.Equal(t, int64(900), results[0].MemoryKB)
	require.Equal(t, models.SubmissionStatusCompilationError, results[1].Status)
	require.Equal(t, "syntax error", results[1].ErrorText())
}

func TestPollerFailsWhenAttemptsExhausted(t *testing.T) {
	exec := &stubExecutor{rounds: [][]judge0.Result{
		{pollResult("a", judge0.StatusAccepted), pollResult("b", judge0.StatusProcessing)},
	}}
	clock := newFakeClock()
	poller := NewPoller(exec, PollerConfig{InitialInterval: time.Second, MaxInterval: time.Second, MaxAttempts: 5, MaxWait: time.Hour}, zerolog.Nop()).WithClock(clock)

	results, err := poller.AwaitResults(context.Background(), []string{"a", "b"})
	require.Nil(t, results)
	require.ErrorIs(t, err, ErrResultsNotReady)
	require.Equal(t, 5, exec.calls)
	require.Len(t, clock.sleeps, 4)
}

func TestPollerFailsWhenWallClockExhausted(t *testing.T) {
	exec := &stubExecutor{rounds: [][]judge0.Result{{pollResult("a", judge0.StatusInQueue)}}}
	clock := newFakeClock()
	poller := NewPoller(exec, PollerConfig{InitialInterval: 2 * time.Second, MaxInterval: 2 * time.Second, MaxAttempts: 100, MaxWait: 5 * time.Second}, zerolog.Nop()).WithClock(clock)

	_, err := poller.AwaitResults(context.Background(), []string{"a"})
	require.ErrorIs(t, err, ErrResultsNotReady)
	require.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, time.Second}, clock.sleeps)
	require.Equal(t, 4, exec.calls)
}

func TestPollerRetriesTransientErrors(t *testing.T) {
	exec := &stubExecutor{
		roundErr: []error{errors.New("502 bad gateway"), nil},
		rounds: [][]judge0.Result{
			nil,
			{pollResult("a", judge0.StatusWrongAnswer)},
		},
	}
	poller := NewPoller(exec, PollerConfig{}, zerolog.Nop()).WithClock(newFakeClock())

	results, err := poller.AwaitResults(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusWrongAnswer, results[0].Status)
}

func TestPollerReportsLastErrorWhenBudgetEnds(t *testing.T) {
	failure := errors.New("connection reset")
	exec := &stubExecutor{roundErr: []error{failure, failure, failure}, rounds: [][]judge0.Result{nil}}
	poller := NewPoller(exec, PollerConfig{MaxAttempts: 3}, zerolog.Nop()).WithClock(newFakeClock())

	_, err := poller.AwaitResults(context.Background(), []string{"a"})
	require.ErrorIs(t, err, ErrResultsNotReady)
	require.Contains(t, err.Error(), "connection reset")
}

func TestPollerStopsOnCancelledContext(t *testing.T) {
	exec := &stubExecutor{rounds: [][]judge0.Result{{pollResult("a", judge0.StatusInQueue)}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poller := NewPoller(exec, PollerConfig{}, zerolog.Nop()).WithClock(newFakeClock())
	_, err := poller.AwaitResults(ctx, []string{"a"})
	require.ErrorIs(t, err, ErrResultsNotReady)
	require.Equal(t, 0, exec.calls)
}

func TestPollerRequiresTokens(t *testing.T) {
	poller := NewPoller(&stubExecutor{}, PollerConfig{}, zerolog.Nop())
	_, err := poller.AwaitResults(context.Background(), nil)
	require.ErrorIs(t, err, ErrResultsNotReady)
}

func TestStatusFromExecutor(t *testing.T) {
	require.Equal(t, models.SubmissionStatusAccepted, StatusFromExecutor(judge0.StatusAccepted))
	require.Equal(t, models.SubmissionStatusWrongAnswer, StatusFromExecutor(judge0.StatusWrongAnswer))
	require.Equal(t, models.SubmissionStatusTimeLimitExceeded, StatusFromExecutor(judge0.StatusTimeLimitExceeded))
	require.Equal(t, models.SubmissionStatusCompilationError, StatusFromExecutor(judge0.StatusCompilationError))
	require.Equal(t, models.SubmissionStatusRuntimeError, StatusFromExecutor(judge0.StatusRuntimeNZEC))
	require.Equal(t, models.SubmissionStatusInternalError, StatusFromExecutor(judge0.StatusInternalError))
}
