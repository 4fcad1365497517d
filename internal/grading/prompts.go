package grading

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
)

const (
	// Truncation limits exist to respect the grading model's context budget.
	maxAssignmentChars = 2000
	maxSubmissionChars = 3000
	maxSolutionChars   = 1000
)

const systemPrompt = "You are an expert educator providing fair, detailed, and constructive feedback on student work."

type gradingPromptFields struct {
	Subject        string
	AssessmentType string
	AssignmentText string
	RubricLines    []string
	SubmissionText string
	SolutionText   string
	RubricNotes    string
}

const gradingPrompt = `You are an expert {{ .Subject }} educator grading a {{ .AssessmentType }}. Please provide detailed, constructive feedback and scoring.

ASSIGNMENT INSTRUCTIONS:
{{ .AssignmentText }}

GRADING RUBRIC:
{{ range .RubricLines }}{{ . }}
{{ end }}{{ if .RubricNotes }}
INSTRUCTOR RUBRIC NOTES:
{{ .RubricNotes }}
{{ end }}
STUDENT SUBMISSION:
{{ .SubmissionText }}
{{ if .SolutionText }}
SOLUTION/ANSWER KEY:
{{ .SolutionText }}
{{ end }}
Please provide:
1. A score (0-100) for each rubric criterion
2. Overall constructive feedback
3. Specific strengths identified
4. Areas for improvement
5. Detailed comments on the work

Format your response as JSON with the following structure:
{
    "scores": {
        "criterion_name": score_number,
        ...
    },
    "feedback": "Overall feedback summary",
    "detailed_feedback": "Detailed analysis of the work",
    "strengths": ["strength 1", "strength 2", ...],
    "improvements": ["improvement 1", "improvement 2", ...],
    "confidence": 0.0-1.0
}

Be fair, constructive, and specific in your feedback. Focus on helping the student learn and improve.`

var gradingPromptTmpl = template.Must(template.New("gradingPrompt").Parse(gradingPrompt))

func buildGradingPrompt(input ScoringInput) (string, error) {
	rubricLines := make([]string, 0, len(input.Rubric))
	names := make([]string, 0, len(input.Rubric))
	for name := range input.Rubric {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		criterion := input.Rubric[name]
		rubricLines = append(rubricLines, fmt.Sprintf("- %s (%.0f%%): %s", name, criterion.Weight*100, criterion.Description))
	}

	prompt := new(strings.Builder)
	err := gradingPromptTmpl.Execute(prompt, gradingPromptFields{
		Subject:        input.Subject,
		AssessmentType: input.AssessmentType,
		AssignmentText: truncate(input.AssignmentText, maxAssignmentChars),
		RubricLines:    rubricLines,
		SubmissionText: truncate(input.SubmissionText, maxSubmissionChars),
		SolutionText:   truncate(input.SolutionText, maxSolutionChars),
		RubricNotes:    truncate(input.RubricNotes, maxSolutionChars),
	})
	if err != nil {
		return "", fmt.Errorf("error rendering grading prompt: %w", err)
	}
	return prompt.String(), nil
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
