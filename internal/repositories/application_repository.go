package repositories

import (
	"context"

	"selectra/interview/internal/models"

	"gorm.io/gorm"
)

type ApplicationRepository struct {
	DB *gorm.DB
}

// GetApplicationsForCandidate lists a candidate's applications with job post and organization loaded.
func (r *ApplicationRepository) GetApplicationsForCandidate(ctx context.Context, candidateID string) ([]models.Application, error) {
	applications := []models.Application{}
	err := r.DB.WithContext(ctx).
		Preload("JobPost.Organization").
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&applications).Error
	return applications, err
}
