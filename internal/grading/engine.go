package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"

	"scorewise-backend/pkg/api"
)

const (
	// An absent criterion score must not be read as "zero understanding",
	// so the default is deliberately above average.
	defaultCriterionScore = 75

	fallbackConfidence = 0.5
	unparsedConfidence = 0.7

	// Confidence assumed when a structurally-valid reply omits the field.
	defaultConfidence = 0.8

	// Upstream error strings can carry response bodies; only a short prefix
	// belongs in student-visible feedback.
	maxCauseChars = 160
)

type ScoringInput struct {
	AssignmentText string
	SubmissionText string
	SolutionText   string
	RubricNotes    string

	Rubric         Rubric
	Subject        string
	AssessmentType string
}

// Engine turns a grading-model reply into a GradingResult. Every failure
// mode degrades to a well-formed fallback result; Score never returns an
// error so a batch of N submissions always yields N results.
type Engine struct {
	llm LLM
}

func NewEngine(llm LLM) *Engine {
	return &Engine{llm: llm}
}

func (e *Engine) Score(ctx context.Context, input ScoringInput) api.GradingResult {
	prompt, err := buildGradingPrompt(input)
	if err != nil {
		slog.Error("error building grading prompt", "error", err)
		return FallbackResult(input.Rubric, err)
	}

	reply, err := e.llm.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		slog.Error("grading model call failed, using fallback scoring", "error", err)
		return FallbackResult(input.Rubric, err)
	}

	feedback := parseModelReply(reply)

	rubricScores := make(map[string]int, len(input.Rubric))
	var totalWeighted float64

	for name, criterion := range input.Rubric {
		score, ok := feedback.Scores[name]
		if !ok {
			score = defaultCriterionScore
		}
		score = clampScore(score)
		rubricScores[name] = int(math.Round(score))
		totalWeighted += score * criterion.Weight
	}

	return api.GradingResult{
		OverallScore:        int(math.Round(totalWeighted)),
		RubricScores:        rubricScores,
		Feedback:            orDefault(feedback.Feedback, "Good work overall."),
		DetailedFeedback:    feedback.DetailedFeedback,
		Strengths:           feedback.Strengths,
		AreasForImprovement: feedback.Improvements,
		AiConfidence:        *feedback.Confidence,
	}
}

// FallbackResult is the fixed safe result used when grading fails entirely:
// every criterion at 75, confidence 0.5, and a note that manual review is
// recommended.
func FallbackResult(rubric Rubric, cause error) api.GradingResult {
	scores := make(map[string]int, len(rubric))
	for name := range rubric {
		scores[name] = defaultCriterionScore
	}

	return api.GradingResult{
		OverallScore:        defaultCriterionScore,
		RubricScores:        scores,
		Feedback:            fmt.Sprintf("Automated grading completed. Manual review recommended. (Error: %s)", truncate(cause.Error(), maxCauseChars)),
		DetailedFeedback:    "The submission has been processed with basic scoring.",
		Strengths:           []string{"Submission received and processed"},
		AreasForImprovement: []string{"Manual review recommended"},
		AiConfidence:        fallbackConfidence,
	}
}

type modelFeedback struct {
	Scores           map[string]float64 `json:"scores"`
	Feedback         string             `json:"feedback"`
	DetailedFeedback string             `json:"detailed_feedback"`
	Strengths        []string           `json:"strengths"`
	Improvements     []string           `json:"improvements"`

	// Pointer so an omitted field is distinguishable from an explicit 0.
	Confidence *float64 `json:"confidence"`
}

var jsonSpanRe = regexp.MustCompile(`(?s)\{.*\}`)

// parseModelReply extracts the structured feedback JSON embedded in the
// model's free-text reply. A reply without parseable JSON degrades to
// unstructured feedback with no scores rather than an error. The returned
// feedback is normalized: confidence in [0,1] (defaulting when omitted) and
// never-nil strength/improvement lists.
func parseModelReply(reply string) modelFeedback {
	if span := jsonSpanRe.FindString(reply); span != "" {
		var feedback modelFeedback
		if err := json.Unmarshal([]byte(span), &feedback); err == nil {
			return normalizeFeedback(feedback)
		}
		slog.Warn("grading model reply contained unparseable JSON, using raw feedback")
	}

	return normalizeFeedback(modelFeedback{
		Scores:           map[string]float64{},
		Feedback:         truncate(reply, 500),
		DetailedFeedback: reply,
		Confidence:       pointerTo(unparsedConfidence),
	})
}

func normalizeFeedback(feedback modelFeedback) modelFeedback {
	if feedback.Confidence == nil {
		feedback.Confidence = pointerTo(defaultConfidence)
	} else {
		feedback.Confidence = pointerTo(math.Min(1, math.Max(0, *feedback.Confidence)))
	}
	if feedback.Strengths == nil {
		feedback.Strengths = []string{}
	}
	if feedback.Improvements == nil {
		feedback.Improvements = []string{}
	}
	return feedback
}

func pointerTo[T any](value T) *T {
	return &value
}

func clampScore(score float64) float64 {
	return math.Min(100, math.Max(0, score))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
