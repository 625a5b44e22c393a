package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/prepcode-api/internal/models"
)

// ProblemRepository defines data operations for problems and their test cases.
type ProblemRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Problem, error)
	Create(ctx context.Context, problem *models.Problem) error
	IncrementCounters(ctx context.Context, id uuid.UUID, accepted bool) error
}

type problemRepository struct {
	db *gorm.DB
}

// NewProblemRepository instantiates the repository.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

func (r *problemRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Problem, error) {
	var problem models.Problem
	if err := r.db.WithContext(ctx).
		Preload("TestCases", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("id = ?", id).
		First(&problem).Error; err != nil {
		return models.Problem{}, err
	}

	return problem, nil
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Create(problem).Error
}

// IncrementCounters bumps submission_count, and accepted_count when accepted, in a single statement.
func (r *problemRepository) IncrementCounters(ctx context.Context, id uuid.UUID, accepted bool) error {
	updates := map[string]interface{}{
		"submission_count": gorm.Expr("submission_count + ?", 1),
	}
	if accepted {
		updates["accepted_count"] = gorm.Expr("accepted_count + ?", 1)
	}

	result := r.db.WithContext(ctx).Model(&models.Problem{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
