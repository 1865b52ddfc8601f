package models

import "gorm.io/gorm"

// Organization, JobPost and Application mirror the records owned by the job
// board. This service only reads them.

type Organization struct {
	gorm.Model
	OrganizationName   string `json:"organization_name"`
	CompanyDescription string `gorm:"type:text" json:"company_description"`
}

type JobPost struct {
	gorm.Model
	OrganizationID     uint          `gorm:"index" json:"organization_id"`
	Organization       *Organization `json:"organization,omitempty"`
	JobTitle           string        `json:"job_title"`
	JobDescription     string        `gorm:"type:text" json:"job_description"`
	RequiredSkills     []string      `gorm:"serializer:json" json:"required_skills"`
	ExperienceRequired string        `json:"experience_required"`
	Qualification      string        `json:"qualification"`
	Responsibilities   string        `gorm:"type:text" json:"responsibilities"`
}

type Application struct {
	gorm.Model
	JobPostID          uint          `gorm:"index" json:"job_post_id"`
	JobPost            *JobPost      `json:"job_post,omitempty"`
	CandidateID        string        `gorm:"index" json:"candidate_id"`
	CandidateName      string        `json:"candidate_name"`
	CandidateSkills    []string      `gorm:"serializer:json" json:"candidate_skills"`
	CandidateEducation []Education   `gorm:"serializer:json" json:"candidate_education"`
	YearsOfExperience  string        `json:"years_of_experience"`
	ParsedResume       *ParsedResume `gorm:"serializer:json" json:"parsed_resume"`
	InterviewLink      string        `json:"interview_link"`
}

// ParsedResume is the structured CV produced by the CV extraction pipeline.
type ParsedResume struct {
	Name           string           `json:"name"`
	Summary        string           `json:"summary"`
	Skills         []string         `json:"skills"`
	WorkExperience []WorkExperience `json:"work_experience"`
	Projects       []Project        `json:"projects"`
	Education      []Education      `json:"education"`
	Certifications []string         `json:"certifications"`
}

type WorkExperience struct {
	Role         string   `json:"role"`
	Company      string   `json:"company"`
	Duration     string   `json:"duration"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
	Technologies []string `json:"technologies"`
}

type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}
