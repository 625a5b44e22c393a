package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/prepcode-api/internal/models"
)

// MockSessionRepository defines data operations for mock interview sessions.
type MockSessionRepository interface {
	Create(ctx context.Context, session *models.MockSession) error
	GetByID(ctx context.Context, id uuid.UUID) (models.MockSession, error)
	MarkProblemSolved(ctx context.Context, sessionID uuid.UUID, userID uint, problemID, submissionID uuid.UUID, at time.Time) (bool, error)
}

type mockSessionRepository struct {
	db *gorm.DB
}

// NewMockSessionRepository instantiates the repository.
func NewMockSessionRepository(db *gorm.DB) MockSessionRepository {
	return &mockSessionRepository{db: db}
}

func (r *mockSessionRepository) Create(ctx context.Context, session *models.MockSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *mockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (models.MockSession, error) {
	var session models.MockSession
	if err := r.db.WithContext(ctx).
		Preload("Problems", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("id = ?", id).
		First(&session).Error; err != nil {
		return models.MockSession{}, err
	}

	return session, nil
}

// MarkProblemSolved flags the session entry for problemID as solved and bumps the session's
// solved count. It reports false without error when the session is not active, belongs to
// another user, does not contain the problem, or the entry was already solved.
func (r *mockSessionRepository) MarkProblemSolved(ctx context.Context, sessionID uuid.UUID, userID uint, problemID, submissionID uuid.UUID, at time.Time) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.MockSession
		if err := tx.Where("id = ? AND user_id = ? AND status = ?", sessionID, userID, models.MockSessionStatusActive).
			First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		entry := tx.Model(&models.MockSessionProblem{}).
			Where("mock_session_id = ? AND problem_id = ? AND solved = ?", sessionID, problemID, false).
			Updates(map[string]interface{}{
				"solved":        true,
				"submission_id": submissionID,
				"completed_at":  at,
			})
		if entry.Error != nil {
			return entry.Error
		}
		if entry.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&models.MockSession{}).
			Where("id = ?", sessionID).
			Update("solved_count", gorm.Expr("solved_count + ?", 1)).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}
