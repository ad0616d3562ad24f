// Package model defines the value types passed between the grading
// components. All of them are created per request and discarded after the
// response is produced.
package model

// TestCase is one stdin/expected-output pair of a problem.
type TestCase struct {
	Name           string `json:"name"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// Problem is a canonical bug-finding exercise: buggy code plus the cases it
// is graded against.
type Problem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Language      string     `json:"language"`
	Code          string     `json:"code"`
	ValidatorName string     `json:"validator"`
	PublicCases   []TestCase `json:"public_cases"`
	HintLevels    []string   `json:"hint_levels,omitempty"`
}

// CaseOutcome is the graded result of one test case. Error set with OK false
// means the execution itself failed rather than a wrong answer.
type CaseOutcome struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Actual string `json:"actual,omitempty"`
	Error  string `json:"error,omitempty"`
}

// GradeReport aggregates all case outcomes of one submission.
// Pass holds exactly when FailedCount is zero.
type GradeReport struct {
	Pass          bool          `json:"pass"`
	ValidatorName string        `json:"validator"`
	Total         int           `json:"total"`
	FailedCount   int           `json:"failed"`
	Outcomes      []CaseOutcome `json:"results"`
}

// NewGradeReport derives the aggregate fields from the outcomes.
func NewGradeReport(validatorName string, outcomes []CaseOutcome) GradeReport {
	failed := 0
	for _, o := range outcomes {
		if !o.OK {
			failed++
		}
	}
	return GradeReport{
		Pass:          failed == 0,
		ValidatorName: validatorName,
		Total:         len(outcomes),
		FailedCount:   failed,
		Outcomes:      outcomes,
	}
}
