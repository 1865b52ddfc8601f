package repositories

import (
	"context"
	"errors"

	"selectra/interview/internal/models"

	"gorm.io/gorm"
)

var ErrResultNotFound = errors.New("interview result not found")

type ResultRepository struct {
	DB *gorm.DB
}

// SaveResult stores the evaluation for token. A token that already has a
// result is left untouched.
func (r *ResultRepository) SaveResult(ctx context.Context, token, candidateID string, eval *models.FinalEvaluation) error {
	var existing models.InterviewResult

	err := r.DB.WithContext(ctx).
		Where("token = ?", token).
		First(&existing).Error

	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return r.DB.WithContext(ctx).Create(models.NewInterviewResult(token, candidateID, eval)).Error
}

func (r *ResultRepository) GetByToken(ctx context.Context, token string) (*models.InterviewResult, error) {
	var result models.InterviewResult
	err := r.DB.WithContext(ctx).
		Where("token = ?", token).
		First(&result).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
