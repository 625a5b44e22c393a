package judge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prepcode-api/internal/models"
)

func raw(status models.SubmissionStatus) RawResult {
	return RawResult{Status: status}
}

func TestReduceHardErrorOverridesEarlierWrongAnswer(t *testing.T) {
	results := []RawResult{
		raw(models.SubmissionStatusAccepted),
		raw(models.SubmissionStatusWrongAnswer),
		{Status: models.SubmissionStatusCompilationError, CompileOutput: "main.cpp:1: error", Stderr: "ignored"},
		raw(models.SubmissionStatusAccepted),
	}

	verdict := Reduce(results, 2)
	require.Equal(t, models.SubmissionStatusCompilationError, verdict.Status)
	require.Equal(t, "main.cpp:1: error", verdict.ErrorMessage)
	require.Equal(t, 2, verdict.PassedCount)
	require.Equal(t, 4, verdict.TotalCount)
}

func TestReduceFirstWrongAnswerWithoutHardError(t *testing.T) {
	results := []RawResult{
		raw(models.SubmissionStatusAccepted),
		raw(models.SubmissionStatusWrongAnswer),
		raw(models.SubmissionStatusWrongAnswer),
	}

	verdict := Reduce(results, 3)
	require.Equal(t, models.SubmissionStatusWrongAnswer, verdict.Status)
	require.Equal(t, 1, verdict.PassedCount)
	require.Equal(t, 3, verdict.TotalCount)
	require.Empty(t, verdict.ErrorMessage)
	require.Equal(t, models.TestCaseOutcomePassed, verdict.Results[0].Outcome)
	require.Equal(t, models.TestCaseOutcomeFailed, verdict.Results[1].Outcome)
}

func TestReduceAllAccepted(t *testing.T) {
	results := []RawResult{
		raw(models.SubmissionStatusAccepted),
		raw(models.SubmissionStatusAccepted),
		raw(models.SubmissionStatusAccepted),
	}

	verdict := Reduce(results, 3)
	require.Equal(t, models.SubmissionStatusAccepted, verdict.Status)
	require.Equal(t, 3, verdict.PassedCount)
	require.Equal(t, verdict.TotalCount, verdict.PassedCount)
}

func TestReduceFirstHardErrorIsSticky(t *testing.T) {
	results := []RawResult{
		{Status: models.SubmissionStatusRuntimeError, Stderr: "segfault"},
		raw(models.SubmissionStatusWrongAnswer),
		{Status: models.SubmissionStatusTimeLimitExceeded, Message: "Time limit exceeded"},
		raw(models.SubmissionStatusAccepted),
	}

	verdict := Reduce(results, 0)
	require.Equal(t, models.SubmissionStatusRuntimeError, verdict.Status)
	require.Equal(t, "segfault", verdict.ErrorMessage)
	require.Equal(t, 1, verdict.PassedCount)
}

func TestReduceErrorMessageFallsBackToMessage(t *testing.T) {
	verdict := Reduce([]RawResult{{Status: models.SubmissionStatusTimeLimitExceeded, Message: "Time limit exceeded"}}, 1)
	require.Equal(t, "Time limit exceeded", verdict.ErrorMessage)
	require.Equal(t, models.TestCaseOutcomeError, verdict.Results[0].Outcome)
}

func TestReduceHidesHiddenTestCaseData(t *testing.T) {
	results := []RawResult{
		{Status: models.SubmissionStatusAccepted, Input: "1 2", ExpectedOutput: "3", Stdout: "3\n"},
		{Status: models.SubmissionStatusWrongAnswer, Input: "secret", ExpectedOutput: "42", Stdout: "41\n"},
	}

	verdict := Reduce(results, 1)
	require.Len(t, verdict.Results, 2)

	visible := verdict.Results[0]
	require.False(t, visible.Hidden)
	require.NotNil(t, visible.Input)
	require.Equal(t, "1 2", *visible.Input)
	require.Equal(t, "3", *visible.ExpectedOutput)
	require.Equal(t, "3\n", *visible.ActualOutput)

	hidden := verdict.Results[1]
	require.Equal(t, 1, hidden.Index)
	require.True(t, hidden.Hidden)
	require.Nil(t, hidden.Input)
	require.Nil(t, hidden.ExpectedOutput)
	require.Nil(t, hidden.ActualOutput)
}

func TestReduceAggregatesRuntimeSumAndPeakMemory(t *testing.T) {
	results := []RawResult{
		{Status: models.SubmissionStatusAccepted, RuntimeMs: 10, MemoryKB: 100},
		{Status: models.SubmissionStatusAccepted, RuntimeMs: 20, MemoryKB: 250},
		{Status: models.SubmissionStatusAccepted, RuntimeMs: 5, MemoryKB: 50},
	}

	verdict := Reduce(results, 3)
	require.Equal(t, int64(35), verdict.RuntimeMs)
	require.Equal(t, int64(250), verdict.MemoryKB)
}

func TestReduceIsDeterministic(t *testing.T) {
	results := []RawResult{
		{Status: models.SubmissionStatusAccepted, RuntimeMs: 3, MemoryKB: 10, Input: "a", Stdout: "a"},
		{Status: models.SubmissionStatusWrongAnswer, RuntimeMs: 4, MemoryKB: 12, Input: "b", Stdout: "c"},
		{Status: models.SubmissionStatusRuntimeError, Stderr: "boom"},
	}

	require.Equal(t, Reduce(results, 2), Reduce(results, 2))
}

func TestReduceTreatsNonTerminalAsInternalError(t *testing.T) {
	verdict := Reduce([]RawResult{raw(models.SubmissionStatusAccepted), {Status: models.SubmissionStatusPending, Message: "lost"}}, 2)
	require.Equal(t, models.SubmissionStatusInternalError, verdict.Status)
	require.Equal(t, "lost", verdict.ErrorMessage)
}

func TestApplyMemoryLimitReclassifiesRuntimeErrors(t *testing.T) {
	results := []RawResult{
		{Status: models.SubmissionStatusRuntimeError, MemoryKB: 262144},
		{Status: models.SubmissionStatusRuntimeError, MemoryKB: 1024},
		{Status: models.SubmissionStatusAccepted, MemoryKB: 300000},
	}

	adjusted := ApplyMemoryLimit(results, 262144)
	require.Equal(t, models.SubmissionStatusMemoryLimitExceeded, adjusted[0].Status)
	require.Equal(t, models.SubmissionStatusRuntimeError, adjusted[1].Status)
	require.Equal(t, models.SubmissionStatusAccepted, adjusted[2].Status)
	require.Equal(t, models.SubmissionStatusRuntimeError, results[0].Status, "input must not be mutated")
}
