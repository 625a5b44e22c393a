package judge

import "github.com/noah-isme/prepcode-api/internal/models"

// Reduce folds per-test-case results into a single verdict.
//
// The first wrong answer replaces Accepted. A hard error (time, memory, runtime, compilation or
// executor failure) replaces Accepted or WrongAnswer and records its diagnostic; once a hard
// error is set no later result changes the status. Results at index >= visibleCount have their
// input and outputs stripped.
func Reduce(results []RawResult, visibleCount int) Verdict {
	verdict := Verdict{
		Status:     models.SubmissionStatusAccepted,
		TotalCount: len(results),
		Results:    make([]models.TestCaseResult, 0, len(results)),
	}

	for i, result := range results {
		status := result.Status
		if !status.IsTerminal() {
			status = models.SubmissionStatusInternalError
		}

		switch {
		case status == models.SubmissionStatusAccepted:
			verdict.PassedCount++
		case status == models.SubmissionStatusWrongAnswer:
			if verdict.Status == models.SubmissionStatusAccepted {
				verdict.Status = models.SubmissionStatusWrongAnswer
			}
		case status.IsHardError():
			if verdict.Status == models.SubmissionStatusAccepted || verdict.Status == models.SubmissionStatusWrongAnswer {
				verdict.Status = status
				verdict.ErrorMessage = result.ErrorText()
			}
		}

		verdict.RuntimeMs += result.RuntimeMs
		if result.MemoryKB > verdict.MemoryKB {
			verdict.MemoryKB = result.MemoryKB
		}

		caseResult := models.TestCaseResult{
			Index:     i,
			Outcome:   outcomeFor(status),
			Status:    status,
			RuntimeMs: result.RuntimeMs,
			MemoryKB:  result.MemoryKB,
		}
		if i < visibleCount {
			input, expected, actual := result.Input, result.ExpectedOutput, result.Stdout
			caseResult.Input = &input
			caseResult.ExpectedOutput = &expected
			caseResult.ActualOutput = &actual
		} else {
			caseResult.Hidden = true
		}
		verdict.Results = append(verdict.Results, caseResult)
	}

	return verdict
}

// ApplyMemoryLimit reclassifies runtime errors that reached the memory limit. The execution
// service reports memory kills as generic runtime errors.
func ApplyMemoryLimit(results []RawResult, limitKB int) []RawResult {
	out := make([]RawResult, len(results))
	copy(out, results)
	if limitKB <= 0 {
		return out
	}
	for i := range out {
		if out[i].Status == models.SubmissionStatusRuntimeError && out[i].MemoryKB >= int64(limitKB) {
			out[i].Status = models.SubmissionStatusMemoryLimitExceeded
		}
	}
	return out
}

func outcomeFor(status models.SubmissionStatus) string {
	switch status {
	case models.SubmissionStatusAccepted:
		return models.TestCaseOutcomePassed
	case models.SubmissionStatusWrongAnswer:
		return models.TestCaseOutcomeFailed
	default:
		return models.TestCaseOutcomeError
	}
}
