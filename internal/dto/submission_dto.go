package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/prepcode-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta computes the page count for a result set.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: pages}
}

// SubmitRequest is the payload for a scored submission.
type SubmitRequest struct {
	ProblemID     string  `json:"problem_id" validate:"required,uuid"`
	MockSessionID *string `json:"mock_session_id" validate:"omitempty,uuid"`
	SourceCode    string  `json:"source_code" validate:"required"`
	Language      string  `json:"language" validate:"required,max=32"`
}

// RunRequest is the payload for a dry run against one test case.
type RunRequest struct {
	ProblemID   string  `json:"problem_id" validate:"required,uuid"`
	SourceCode  string  `json:"source_code" validate:"required"`
	Language    string  `json:"language" validate:"required,max=32"`
	CustomInput *string `json:"custom_input" validate:"omitempty,max=65536"`
}

// SubmissionListRequest carries the pagination for a problem's attempt history.
type SubmissionListRequest struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

// SubmissionResponse is returned to API clients when viewing a graded submission.
type SubmissionResponse struct {
	ID              uuid.UUID               `json:"id"`
	UserID          uint                    `json:"user_id"`
	ProblemID       uuid.UUID               `json:"problem_id"`
	MockSessionID   *uuid.UUID              `json:"mock_session_id,omitempty"`
	Language        string                  `json:"language"`
	SourceCode      string                  `json:"source_code,omitempty"`
	AttemptNumber   int                     `json:"attempt_number"`
	Status          models.SubmissionStatus `json:"status"`
	RuntimeMs       int64                   `json:"runtime_ms"`
	MemoryKB        int64                   `json:"memory_kb"`
	TestCasesPassed int                     `json:"test_cases_passed"`
	TestCasesTotal  int                     `json:"test_cases_total"`
	Results         []models.TestCaseResult `json:"results"`
	ErrorMessage    string                  `json:"error_message,omitempty"`
	EvaluatedAt     *time.Time              `json:"evaluated_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// NewSubmissionResponse builds a response DTO from a model. Hidden test case results are dropped.
func NewSubmissionResponse(submission models.Submission, includeSource bool) SubmissionResponse {
	response := SubmissionResponse{
		ID:              submission.ID,
		UserID:          submission.UserID,
		ProblemID:       submission.ProblemID,
		MockSessionID:   submission.MockSessionID,
		Language:        submission.Language,
		AttemptNumber:   submission.AttemptNumber,
		Status:          submission.Status,
		RuntimeMs:       submission.RuntimeMs,
		MemoryKB:        submission.MemoryKB,
		TestCasesPassed: submission.TestCasesPassed,
		TestCasesTotal:  submission.TestCasesTotal,
		Results:         make([]models.TestCaseResult, 0, len(submission.Results)),
		ErrorMessage:    submission.ErrorMessage,
		EvaluatedAt:     submission.EvaluatedAt,
		CreatedAt:       submission.CreatedAt,
	}

	if includeSource {
		response.SourceCode = submission.SourceCode
	}

	for _, result := range submission.Results {
		if result.Hidden {
			continue
		}
		response.Results = append(response.Results, result)
	}

	return response
}

// SubmissionListResponse is a page of a user's attempts at a problem.
type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// RunResponse is returned by the dry run endpoint.
type RunResponse struct {
	Status         models.SubmissionStatus `json:"status"`
	Output         string                  `json:"output"`
	ExpectedOutput *string                 `json:"expected_output,omitempty"`
	Input          string                  `json:"input"`
	RuntimeMs      int64                   `json:"runtime_ms"`
	MemoryKB       int64                   `json:"memory_kb"`
	ErrorMessage   string                  `json:"error_message,omitempty"`
}

// LanguageResponse describes one supported language.
type LanguageResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}
