package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionStatus is the lifecycle state of a submission and the outcome of a single test run.
type SubmissionStatus string

const (
	SubmissionStatusPending             SubmissionStatus = "Pending"
	SubmissionStatusAccepted            SubmissionStatus = "Accepted"
	SubmissionStatusWrongAnswer         SubmissionStatus = "WrongAnswer"
	SubmissionStatusTimeLimitExceeded   SubmissionStatus = "TimeLimitExceeded"
	SubmissionStatusMemoryLimitExceeded SubmissionStatus = "MemoryLimitExceeded"
	SubmissionStatusRuntimeError        SubmissionStatus = "RuntimeError"
	SubmissionStatusCompilationError    SubmissionStatus = "CompilationError"
	SubmissionStatusInternalError       SubmissionStatus = "InternalError"
)

// IsTerminal reports whether the status is final.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionStatusAccepted, SubmissionStatusWrongAnswer, SubmissionStatusTimeLimitExceeded,
		SubmissionStatusMemoryLimitExceeded, SubmissionStatusRuntimeError, SubmissionStatusCompilationError,
		SubmissionStatusInternalError:
		return true
	default:
		return false
	}
}

// IsHardError reports whether the status is an execution failure rather than a wrong answer.
func (s SubmissionStatus) IsHardError() bool {
	switch s {
	case SubmissionStatusTimeLimitExceeded, SubmissionStatusMemoryLimitExceeded, SubmissionStatusRuntimeError,
		SubmissionStatusCompilationError, SubmissionStatusInternalError:
		return true
	default:
		return false
	}
}

// Per-test-case outcomes.
const (
	TestCaseOutcomePassed = "Passed"
	TestCaseOutcomeFailed = "Failed"
	TestCaseOutcomeError  = "Error"
)

// TestCaseResult is the graded outcome of one test case. Input and outputs are only set
// for visible test cases.
type TestCaseResult struct {
	Index          int              `json:"index"`
	Outcome        string           `json:"outcome"`
	Status         SubmissionStatus `json:"status"`
	RuntimeMs      int64            `json:"runtime_ms"`
	MemoryKB       int64            `json:"memory_kb"`
	Hidden         bool             `json:"hidden"`
	Input          *string          `json:"input,omitempty"`
	ExpectedOutput *string          `json:"expected_output,omitempty"`
	ActualOutput   *string          `json:"actual_output,omitempty"`
}

// Submission is one graded attempt of a user at a problem.
type Submission struct {
	ID              uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uint                                `gorm:"not null;index:idx_submissions_user_problem" json:"user_id"`
	ProblemID       uuid.UUID                           `gorm:"type:uuid;not null;index:idx_submissions_user_problem" json:"problem_id"`
	MockSessionID   *uuid.UUID                          `gorm:"type:uuid;index" json:"mock_session_id,omitempty"`
	SourceCode      string                              `gorm:"type:text;not null" json:"source_code"`
	Language        string                              `gorm:"size:32;not null" json:"language"`
	AttemptNumber   int                                 `gorm:"not null" json:"attempt_number"`
	Status          SubmissionStatus                    `gorm:"size:32;not null;index" json:"status"`
	RuntimeMs       int64                               `gorm:"default:0" json:"runtime_ms"`
	MemoryKB        int64                               `gorm:"default:0" json:"memory_kb"`
	TestCasesPassed int                                 `gorm:"default:0" json:"test_cases_passed"`
	TestCasesTotal  int                                 `gorm:"default:0" json:"test_cases_total"`
	Results         datatypes.JSONSlice[TestCaseResult] `json:"results"`
	ErrorMessage    string                              `gorm:"type:text" json:"error_message,omitempty"`
	EvaluatedAt     *time.Time                          `json:"evaluated_at,omitempty"`
	CreatedAt       time.Time                           `json:"created_at"`
	UpdatedAt       time.Time                           `json:"updated_at"`
}

// BeforeCreate assigns an identifier when none was provided.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsPending reports whether grading has not completed yet.
func (s Submission) IsPending() bool {
	return s.Status == SubmissionStatusPending
}
