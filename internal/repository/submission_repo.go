package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/prepcode-api/internal/models"
)

// ErrSubmissionAlreadyFinal is returned when a finalize targets a submission that already left Pending.
var ErrSubmissionAlreadyFinal = errors.New("submission already finalized")

// ErrVerdictNotTerminal is returned when a finalize carries a Pending status.
var ErrVerdictNotTerminal = errors.New("finalize requires a terminal status")

// SubmissionFilter narrows attempt history queries.
type SubmissionFilter struct {
	UserID    uint
	ProblemID uuid.UUID
	Page      int
	PageSize  int
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Submission, error)
	CountByUserAndProblem(ctx context.Context, userID uint, problemID uuid.UUID) (int64, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	Finalize(ctx context.Context, submission *models.Submission) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) CountByUserAndProblem(ctx context.Context, userID uint, problemID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("user_id = ? AND problem_id = ?", userID, problemID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("user_id = ? AND problem_id = ?", filter.UserID, filter.ProblemID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var submissions []models.Submission
	if err := query.
		Order("attempt_number DESC").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

// Finalize writes the verdict onto a pending submission. Exactly one finalize can succeed per row.
func (r *submissionRepository) Finalize(ctx context.Context, submission *models.Submission) error {
	if submission.IsPending() {
		return ErrVerdictNotTerminal
	}

	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", submission.ID, models.SubmissionStatusPending).
		Updates(map[string]interface{}{
			"status":            submission.Status,
			"runtime_ms":        submission.RuntimeMs,
			"memory_kb":         submission.MemoryKB,
			"test_cases_passed": submission.TestCasesPassed,
			"test_cases_total":  submission.TestCasesTotal,
			"results":           submission.Results,
			"error_message":     submission.ErrorMessage,
			"evaluated_at":      submission.EvaluatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubmissionAlreadyFinal
	}

	return nil
}
