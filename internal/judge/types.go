// Package judge contains the client-side grading pipeline: resolving languages, submitting
// batches to the execution service, waiting for results and reducing them to a verdict.
package judge

import (
	"errors"

	"github.com/noah-isme/prepcode-api/internal/models"
)

var (
	// ErrUnsupportedLanguage indicates the language has no executor mapping.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrExecutorUnavailable indicates the batch could not be handed to the execution service.
	ErrExecutorUnavailable = errors.New("executor unavailable")
	// ErrResultsNotReady indicates results did not become terminal within the polling budget.
	ErrResultsNotReady = errors.New("results not ready")
)

// Request describes the execution of one test case.
type Request struct {
	SourceCode          string
	LanguageID          int
	Stdin               string
	ExpectedOutput      *string
	CPUTimeLimitSeconds float64
	MemoryLimitKB       int
}

// RawResult is the terminal executor result for one test case.
type RawResult struct {
	Token          string
	Status         models.SubmissionStatus
	Stdout         string
	Stderr         string
	CompileOutput  string
	Message        string
	RuntimeMs      int64
	MemoryKB       int64
	Input          string
	ExpectedOutput string
}

// ErrorText returns the most specific diagnostic the executor produced.
func (r RawResult) ErrorText() string {
	switch {
	case r.CompileOutput != "":
		return r.CompileOutput
	case r.Stderr != "":
		return r.Stderr
	default:
		return r.Message
	}
}

// Verdict is the reduced outcome of a set of results.
type Verdict struct {
	Status       models.SubmissionStatus
	PassedCount  int
	TotalCount   int
	RuntimeMs    int64
	MemoryKB     int64
	ErrorMessage string
	Results      []models.TestCaseResult
}
