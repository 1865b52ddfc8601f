package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"selectra/interview/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	}
	migrateSchema = func(db *gorm.DB) error {
		return db.AutoMigrate(&models.Organization{}, &models.JobPost{}, &models.Application{}, &models.InterviewResult{})
	}
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedApplication stores an organization, job post and application for candidateID
// whose interview link ends in token.
func SeedApplication(t *testing.T, db *gorm.DB, candidateID, token string, resume *models.ParsedResume) *models.Application {
	t.Helper()

	org := &models.Organization{OrganizationName: "Acme", CompanyDescription: "Builds rockets"}
	if err := db.Create(org).Error; err != nil {
		panic(fmt.Sprintf("failed to seed organization: %v", err))
	}

	job := &models.JobPost{
		OrganizationID:     org.ID,
		JobTitle:           "Backend Engineer",
		JobDescription:     "Own the order pipeline.",
		RequiredSkills:     []string{"Go", "PostgreSQL"},
		ExperienceRequired: "3+ years",
	}
	if err := db.Create(job).Error; err != nil {
		panic(fmt.Sprintf("failed to seed job post: %v", err))
	}

	app := &models.Application{
		JobPostID:         job.ID,
		CandidateID:       candidateID,
		CandidateName:     "Dana Candidate",
		CandidateSkills:   []string{"Go", "Redis"},
		YearsOfExperience: "4",
		ParsedResume:      resume,
		InterviewLink:     "https://jobs.example.com/interview/" + token,
	}
	if err := db.Create(app).Error; err != nil {
		panic(fmt.Sprintf("failed to seed application: %v", err))
	}
	return app
}
