package grading

import (
	"fmt"
	"math"

	"scorewise-backend/pkg/api"
)

type Criterion struct {
	Weight      float64
	Description string
}

// Rubric maps a criterion name to its weight and description. Weights for a
// rubric must sum to 1.0 within rounding tolerance.
type Rubric map[string]Criterion

const weightTolerance = 1e-6

func (r Rubric) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("rubric has no criteria")
	}

	var total float64
	for name, criterion := range r {
		if criterion.Weight <= 0 || criterion.Weight > 1 {
			return fmt.Errorf("criterion '%s' has invalid weight %v", name, criterion.Weight)
		}
		total += criterion.Weight
	}

	if math.Abs(total-1.0) > weightTolerance {
		return fmt.Errorf("rubric weights sum to %v, expected 1.0", total)
	}
	return nil
}

func (r Rubric) ToApi() map[string]api.RubricCriterion {
	out := make(map[string]api.RubricCriterion, len(r))
	for name, criterion := range r {
		out[name] = api.RubricCriterion{Weight: criterion.Weight, Description: criterion.Description}
	}
	return out
}

// Library is an immutable set of rubrics selected by (subject, assessment
// type). It is built once at startup and injected into the components that
// need it, never read from a global.
type Library struct {
	rubrics  map[string]Rubric
	fallback Rubric
}

func NewLibrary(rubrics map[string]Rubric, fallback Rubric) (*Library, error) {
	for key, rubric := range rubrics {
		if err := rubric.Validate(); err != nil {
			return nil, fmt.Errorf("invalid rubric for '%s': %w", key, err)
		}
	}
	if err := fallback.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fallback rubric: %w", err)
	}
	return &Library{rubrics: rubrics, fallback: fallback}, nil
}

// Select returns the rubric for the given (subject, assessmentType) pair,
// falling back to the subject-wide rubric and then the fixed default.
func (l *Library) Select(subject, assessmentType string) Rubric {
	if rubric, ok := l.rubrics[subject+"/"+assessmentType]; ok {
		return rubric
	}
	if rubric, ok := l.rubrics[subject]; ok {
		return rubric
	}
	return l.fallback
}

func DefaultLibrary() *Library {
	library, err := NewLibrary(defaultRubrics, generalRubric)
	if err != nil {
		// The built-in tables are fixed at compile time, a validation failure
		// here is a programming error.
		panic(err)
	}
	return library
}

var defaultRubrics = map[string]Rubric{
	"Mathematics": {
		"Problem Understanding":  {Weight: 0.25, Description: "Demonstrates understanding of the problem"},
		"Mathematical Reasoning": {Weight: 0.30, Description: "Uses appropriate mathematical concepts and methods"},
		"Calculation Accuracy":   {Weight: 0.25, Description: "Performs calculations correctly"},
		"Solution Presentation":  {Weight: 0.20, Description: "Clearly presents solution with proper notation"},
	},
	"English": {
		"Content & Ideas": {Weight: 0.30, Description: "Quality and development of ideas"},
		"Organization":    {Weight: 0.25, Description: "Logical structure and flow"},
		"Language Use":    {Weight: 0.25, Description: "Grammar, vocabulary, and style"},
		"Mechanics":       {Weight: 0.20, Description: "Spelling, punctuation, and formatting"},
	},
	"Science": {
		"Scientific Knowledge": {Weight: 0.30, Description: "Understanding of scientific concepts"},
		"Data Analysis":        {Weight: 0.25, Description: "Interpretation and analysis of data"},
		"Scientific Method":    {Weight: 0.25, Description: "Application of scientific inquiry methods"},
		"Communication":        {Weight: 0.20, Description: "Clear explanation of findings"},
	},
	"History": {
		"Historical Knowledge":      {Weight: 0.30, Description: "Understanding of historical facts and context"},
		"Analysis & Interpretation": {Weight: 0.30, Description: "Analysis of historical sources and events"},
		"Argumentation":             {Weight: 0.25, Description: "Development of historical arguments"},
		"Writing Quality":           {Weight: 0.15, Description: "Clarity and organization of writing"},
	},
	"Computer Science": {
		"Code Functionality": {Weight: 0.35, Description: "Code works correctly and meets requirements"},
		"Code Quality":       {Weight: 0.25, Description: "Clean, readable, and well-structured code"},
		"Algorithm Design":   {Weight: 0.25, Description: "Efficient and appropriate algorithm choices"},
		"Documentation":      {Weight: 0.15, Description: "Comments and code documentation"},
	},
}

var generalRubric = Rubric{
	"Content":      {Weight: 0.40, Description: "Quality and accuracy of content"},
	"Organization": {Weight: 0.30, Description: "Structure and logical flow"},
	"Presentation": {Weight: 0.30, Description: "Clarity and professional presentation"},
}
