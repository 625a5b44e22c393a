package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/prepcode-api/internal/models"
)

// TestCaseResponse exposes a visible example.
type TestCaseResponse struct {
	Position       int    `json:"position"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Explanation    string `json:"explanation,omitempty"`
}

// ProblemResponse is the problem detail shown to candidates.
type ProblemResponse struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Slug            string             `json:"slug"`
	Description     string             `json:"description"`
	Difficulty      string             `json:"difficulty"`
	TimeLimitMs     int                `json:"time_limit_ms"`
	MemoryLimitKB   int                `json:"memory_limit_kb"`
	SubmissionCount int64              `json:"submission_count"`
	AcceptedCount   int64              `json:"accepted_count"`
	AcceptanceRate  float64            `json:"acceptance_rate"`
	Examples        []TestCaseResponse `json:"examples"`
	HiddenTestCount int                `json:"hidden_test_count"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// NewProblemResponse converts a problem model. Only visible test cases are included. Unset limits
// are reported as the configured grading defaults.
func NewProblemResponse(problem models.Problem, defaultTimeLimitMs, defaultMemoryLimitKB int) ProblemResponse {
	visible := problem.VisibleTestCases()
	examples := make([]TestCaseResponse, 0, len(visible))
	for _, tc := range visible {
		examples = append(examples, TestCaseResponse{
			Position:       tc.Position,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			Explanation:    tc.Explanation,
		})
	}

	return ProblemResponse{
		ID:              problem.ID,
		Title:           problem.Title,
		Slug:            problem.Slug,
		Description:     problem.Description,
		Difficulty:      problem.Difficulty,
		TimeLimitMs:     problem.EffectiveTimeLimitMs(defaultTimeLimitMs),
		MemoryLimitKB:   problem.EffectiveMemoryLimitKB(defaultMemoryLimitKB),
		SubmissionCount: problem.SubmissionCount,
		AcceptedCount:   problem.AcceptedCount,
		AcceptanceRate:  problem.AcceptanceRate(),
		Examples:        examples,
		HiddenTestCount: len(problem.TestCases) - len(visible),
		UpdatedAt:       problem.UpdatedAt,
	}
}
