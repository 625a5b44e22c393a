package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Default execution limits applied when a problem leaves them unset.
const (
	DefaultTimeLimitMs   = 2000
	DefaultMemoryLimitKB = 256 * 1024
)

// Problem is an interview problem graded against its test cases.
type Problem struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Slug            string     `gorm:"size:160;uniqueIndex" json:"slug"`
	Description     string     `gorm:"type:text" json:"description"`
	Difficulty      string     `gorm:"size:32;not null" json:"difficulty"`
	TimeLimitMs     int        `gorm:"default:0" json:"time_limit_ms"`
	MemoryLimitKB   int        `gorm:"default:0" json:"memory_limit_kb"`
	SubmissionCount int64      `gorm:"default:0" json:"submission_count"`
	AcceptedCount   int64      `gorm:"default:0" json:"accepted_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	TestCases       []TestCase `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// TestCase is a single input/expected-output pair attached to a problem.
type TestCase struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProblemID      uuid.UUID `gorm:"type:uuid;index;not null" json:"problem_id"`
	Position       int       `gorm:"not null;default:0" json:"position"`
	Input          string    `gorm:"type:text" json:"input"`
	ExpectedOutput string    `gorm:"type:text" json:"expected_output"`
	Explanation    string    `gorm:"type:text" json:"explanation,omitempty"`
	Visible        bool      `gorm:"not null;default:false" json:"visible"`
}

// BeforeCreate assigns an identifier when none was provided.
func (p *Problem) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EffectiveTimeLimitMs returns the per-test CPU limit in milliseconds. Problems without their own
// limit use fallback, or DefaultTimeLimitMs when fallback is not positive.
func (p Problem) EffectiveTimeLimitMs(fallback int) int {
	if p.TimeLimitMs > 0 {
		return p.TimeLimitMs
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeLimitMs
}

// EffectiveMemoryLimitKB returns the per-test memory limit in kilobytes, resolved like
// EffectiveTimeLimitMs.
func (p Problem) EffectiveMemoryLimitKB(fallback int) int {
	if p.MemoryLimitKB > 0 {
		return p.MemoryLimitKB
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMemoryLimitKB
}

// VisibleTestCases returns the visible test cases ordered by position.
func (p Problem) VisibleTestCases() []TestCase {
	return p.filterTestCases(true)
}

// CombinedTestCases returns visible test cases followed by hidden ones. Index position in the
// returned slice is the identity used to correlate executor results.
func (p Problem) CombinedTestCases() []TestCase {
	visible := p.filterTestCases(true)
	hidden := p.filterTestCases(false)
	return append(visible, hidden...)
}

func (p Problem) filterTestCases(visible bool) []TestCase {
	out := make([]TestCase, 0, len(p.TestCases))
	for _, tc := range p.TestCases {
		if tc.Visible == visible {
			out = append(out, tc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].ID < out[j].ID
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// AcceptanceRate returns accepted/submitted as a percentage.
func (p Problem) AcceptanceRate() float64 {
	if p.SubmissionCount == 0 {
		return 0
	}
	return float64(p.AcceptedCount) * 100 / float64(p.SubmissionCount)
}
