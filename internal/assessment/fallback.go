package assessment

import (
	"regexp"
	"strings"
)

var techSkillPattern = regexp.MustCompile(`(?i)\b(Python|Java|JavaScript|TypeScript|React|Angular|Vue|Node\.?js|Django|Flask|FastAPI|Spring|AWS|Azure|GCP|Docker|Kubernetes|SQL|PostgreSQL|MySQL|MongoDB|Redis|GraphQL|REST|microservices|CI/CD|Git|Linux|TensorFlow|PyTorch|Machine Learning|Agile|Scrum|Golang)\b`)

// extractSkills returns distinct technology keywords in order of first appearance.
func extractSkills(resume string) []string {
	seen := make(map[string]bool)
	var skills []string
	for _, match := range techSkillPattern.FindAllString(resume, -1) {
		key := strings.ToLower(match)
		if seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, match)
	}
	return skills
}

func openingFallbackQuestion(resume string) string {
	skills := extractSkills(resume)
	if len(skills) == 0 {
		return "Looking at your experience, can you walk me through the most technically challenging project you've worked on and explain your approach?"
	}
	skill := skills[0]
	return "I see you have experience with " + skill + ". Can you describe a challenging project where you used " + skill + " and explain the technical decisions you made?"
}

func followupFallbackQuestion(resume string, questionNumber int) string {
	skills := extractSkills(resume)
	n := len(skills)

	switch {
	case questionNumber <= 2 && n > 0:
		return "Can you explain a specific technical challenge you faced while working with " + skills[0] + " and how you solved it?"
	case questionNumber <= 3 && n > 1:
		return "Your resume mentions " + skills[1] + ". What's the most complex feature or system you've built using it?"
	case questionNumber <= 4 && n > 0:
		return "How would you approach debugging a critical performance issue in a " + skills[min(2, n-1)] + " application?"
	case questionNumber <= 5 && n > 0:
		return "Given your experience with " + strings.Join(skills[:min(3, n)], ", ") + ", how do you ensure code quality and maintainability in your projects?"
	default:
		return "Based on your technical background, what architectural decisions would you make for a new project and why?"
	}
}
