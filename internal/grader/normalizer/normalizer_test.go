package normalizer_test

import (
	"testing"

	"bugdojo/internal/grader/normalizer"
	errs "bugdojo/pkg/errors"
)

func TestNormalizeFlatShape(t *testing.T) {
	raw := `{
		"title": "off by one",
		"buggy_code": "print(sorted(input().split())[:-1])",
		"test_case": {"name": "case_1", "input": "3 1 2", "expected_output": "1 2 3"},
		"hint_levels": ["look at the slice", "the last element is dropped"]
	}`
	p, err := normalizer.Normalize(raw, "python")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Title != "off by one" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Language != "python" {
		t.Errorf("language = %q", p.Language)
	}
	if len(p.PublicCases) != 1 || p.PublicCases[0].Input != "3 1 2" {
		t.Fatalf("cases = %+v", p.PublicCases)
	}
	if len(p.HintLevels) != 2 {
		t.Errorf("hints = %v", p.HintLevels)
	}
}

func TestNormalizeSchemaWrapper(t *testing.T) {
	raw := `{
		"type": "object",
		"title": "schema dressed problem",
		"example": {
			"buggy_code": "print(1)",
			"input": "5 5",
			"expected_output": "5 5"
		}
	}`
	p, err := normalizer.Normalize(raw, "python")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Code != "print(1)" {
		t.Errorf("code = %q", p.Code)
	}
	if p.PublicCases[0].ExpectedOutput != "5 5" {
		t.Errorf("expected output = %q", p.PublicCases[0].ExpectedOutput)
	}
}

func TestNormalizeSchemaExamplesArray(t *testing.T) {
	raw := `{
		"type": "object",
		"properties": {"code": {"examples": ["print(2)"]}}
	}`
	p, err := normalizer.Normalize(raw, "python")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Code != "print(2)" {
		t.Errorf("code = %q", p.Code)
	}
	// Missing case falls back to the stock sort example.
	if p.PublicCases[0].Input != "3 2 1" {
		t.Errorf("input = %q", p.PublicCases[0].Input)
	}
}

func TestNormalizeProblemWrapperAndAliases(t *testing.T) {
	raw := `{
		"problem": {
			"code": "print(3)",
			"test_cases": [
				{"input": 7, "output": "bad"},
				{"input": "1 2", "output": "2 1"}
			]
		}
	}`
	p, err := normalizer.Normalize(raw, "c")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.PublicCases[0].Input != "1 2" || p.PublicCases[0].ExpectedOutput != "2 1" {
		t.Fatalf("case = %+v", p.PublicCases[0])
	}
}

func TestNormalizeStringTestCaseWithSiblingOutput(t *testing.T) {
	raw := `{"buggy_code": "x", "test_case": "4 5 6", "output": "6 5 4"}`
	p, err := normalizer.Normalize(raw, "python")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.PublicCases[0].Input != "4 5 6" || p.PublicCases[0].ExpectedOutput != "6 5 4" {
		t.Fatalf("case = %+v", p.PublicCases[0])
	}
}

func TestNormalizeMissingCodeFails(t *testing.T) {
	_, err := normalizer.Normalize(`{"title": "no code here"}`, "python")
	if errs.GetCode(err) != errs.InvalidAISchema {
		t.Fatalf("err = %v, want invalid_ai_schema", err)
	}
}

func TestNormalizeNonJSONFails(t *testing.T) {
	_, err := normalizer.Normalize("I could not produce the problem, sorry!", "python")
	if errs.GetCode(err) != errs.InvalidAIJSON {
		t.Fatalf("err = %v, want invalid_ai_json", err)
	}
}

func TestNormalizeFencedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"code\": \"print(9)\", \"input\": \"1\", \"expected_output\": \"1\"}\n```\nEnjoy."
	p, err := normalizer.Normalize(raw, "python")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Code != "print(9)" {
		t.Errorf("code = %q", p.Code)
	}
	if p.PublicCases[0].Input != "1" {
		t.Errorf("input = %q", p.PublicCases[0].Input)
	}
}

func TestNormalizeCurlyQuotesRecovered(t *testing.T) {
	raw := "{“code”: “print(0)”}"
	p, err := normalizer.Normalize(raw, "python")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Code != "print(0)" {
		t.Errorf("code = %q", p.Code)
	}
}

func TestNormalizeDropsNonStringHints(t *testing.T) {
	raw := `{"code": "x", "hint_levels": ["ok", 42]}`
	p, err := normalizer.Normalize(raw, "python")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.HintLevels != nil {
		t.Fatalf("hints = %v, want dropped", p.HintLevels)
	}
}
