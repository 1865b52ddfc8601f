// Package resolver builds the job and resume text that grounds an interview.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"selectra/interview/internal/models"
)

var ErrNotFound = errors.New("no application matches the interview token")

// ApplicationSource lists the applications belonging to a candidate.
type ApplicationSource interface {
	GetApplicationsForCandidate(ctx context.Context, candidateID string) ([]models.Application, error)
}

// Resolver resolves interview tokens for a single candidate.
type Resolver struct {
	source      ApplicationSource
	candidateID string
}

func New(source ApplicationSource, candidateID string) *Resolver {
	return &Resolver{source: source, candidateID: candidateID}
}

func (r *Resolver) Resolve(ctx context.Context, token string) (*models.InterviewContext, error) {
	applications, err := r.source.GetApplicationsForCandidate(ctx, r.candidateID)
	if err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}

	for i := range applications {
		app := &applications[i]
		if InterviewToken(app.InterviewLink) != token {
			continue
		}
		return &models.InterviewContext{
			ApplicationID:  app.ID,
			JobDescription: JobText(app.JobPost),
			ResumeSummary:  ResumeText(app),
		}, nil
	}

	return nil, ErrNotFound
}

// InterviewToken returns the last path segment of an interview link.
func InterviewToken(link string) string {
	link = strings.TrimSpace(link)
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	link = strings.TrimRight(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}

// JobText flattens a job post into prompt-ready text. Empty fields are skipped.
func JobText(job *models.JobPost) string {
	if job == nil {
		return ""
	}

	var sections []string
	if job.JobTitle != "" {
		sections = append(sections, "Job Title: "+job.JobTitle)
	}
	if job.Organization != nil && job.Organization.OrganizationName != "" {
		sections = append(sections, "Company: "+job.Organization.OrganizationName)
	}

	var reqs []string
	if len(job.RequiredSkills) > 0 {
		reqs = append(reqs, "Required Skills: "+strings.Join(job.RequiredSkills, ", "))
	}
	if job.ExperienceRequired != "" {
		reqs = append(reqs, "Experience: "+job.ExperienceRequired)
	}
	if job.Qualification != "" {
		reqs = append(reqs, "Qualification: "+job.Qualification)
	}
	if job.Responsibilities != "" {
		reqs = append(reqs, "Responsibilities: "+job.Responsibilities)
	}
	if len(reqs) > 0 {
		sections = append(sections, "Requirements:\n"+strings.Join(reqs, "\n"))
	}

	if job.JobDescription != "" {
		sections = append(sections, "Description:\n"+job.JobDescription)
	}
	return strings.Join(sections, "\n\n")
}

// ResumeText flattens the parsed resume, or the plain application fields
// when no parsed resume exists.
func ResumeText(app *models.Application) string {
	if app.ParsedResume == nil {
		return applicationFallbackText(app)
	}
	cv := app.ParsedResume

	var sections []string
	if cv.Name != "" {
		sections = append(sections, "Name: "+cv.Name)
	}
	if cv.Summary != "" {
		sections = append(sections, "Summary: "+cv.Summary)
	}
	if len(cv.Skills) > 0 {
		sections = append(sections, "Skills: "+strings.Join(cv.Skills, ", "))
	}

	if len(cv.WorkExperience) > 0 {
		lines := []string{"Work Experience:"}
		for _, w := range cv.WorkExperience {
			header := "- " + w.Role
			if w.Company != "" {
				header += " at " + w.Company
			}
			if w.Duration != "" {
				header += " (" + w.Duration + ")"
			}
			lines = append(lines, header)
			if w.Description != "" {
				lines = append(lines, "  "+w.Description)
			}
			for _, a := range w.Achievements {
				lines = append(lines, "  * "+a)
			}
			if len(w.Technologies) > 0 {
				lines = append(lines, "  Technologies: "+strings.Join(w.Technologies, ", "))
			}
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(cv.Projects) > 0 {
		lines := []string{"Projects:"}
		for _, p := range cv.Projects {
			line := "- " + p.Name
			if p.Description != "" {
				line += ": " + p.Description
			}
			if len(p.Technologies) > 0 {
				line += " [" + strings.Join(p.Technologies, ", ") + "]"
			}
			lines = append(lines, line)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if edu := educationText(cv.Education); edu != "" {
		sections = append(sections, edu)
	}
	if len(cv.Certifications) > 0 {
		sections = append(sections, "Certifications: "+strings.Join(cv.Certifications, ", "))
	}

	if len(sections) == 0 {
		return applicationFallbackText(app)
	}
	return strings.Join(sections, "\n\n")
}

func applicationFallbackText(app *models.Application) string {
	var sections []string
	if app.CandidateName != "" {
		sections = append(sections, "Name: "+app.CandidateName)
	}
	if len(app.CandidateSkills) > 0 {
		sections = append(sections, "Skills: "+strings.Join(app.CandidateSkills, ", "))
	}
	if app.YearsOfExperience != "" {
		sections = append(sections, "Years of Experience: "+app.YearsOfExperience)
	}
	if edu := educationText(app.CandidateEducation); edu != "" {
		sections = append(sections, edu)
	}
	return strings.Join(sections, "\n\n")
}

func educationText(education []models.Education) string {
	if len(education) == 0 {
		return ""
	}
	lines := []string{"Education:"}
	for _, e := range education {
		line := "- " + e.Degree
		if e.Institution != "" {
			line += ", " + e.Institution
		}
		if e.Year != "" {
			line += " (" + e.Year + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
