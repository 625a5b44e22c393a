package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Mock session states.
const (
	MockSessionStatusActive    = "active"
	MockSessionStatusCompleted = "completed"
	MockSessionStatusExpired   = "expired"
)

// MockSession is a timed practice interview made of several problems.
type MockSession struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uint                 `gorm:"not null;index" json:"user_id"`
	Status      string               `gorm:"size:32;not null" json:"status"`
	SolvedCount int                  `gorm:"default:0" json:"solved_count"`
	StartedAt   time.Time            `json:"started_at"`
	EndsAt      *time.Time           `json:"ends_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Problems    []MockSessionProblem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"problems"`
}

// MockSessionProblem tracks progress on one problem inside a mock session.
type MockSessionProblem struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	MockSessionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"mock_session_id"`
	ProblemID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"problem_id"`
	Solved        bool       `gorm:"not null;default:false" json:"solved"`
	SubmissionID  *uuid.UUID `gorm:"type:uuid" json:"submission_id,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// BeforeCreate assigns an identifier when none was provided.
func (m *MockSession) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = MockSessionStatusActive
	}
	return nil
}
