// Package normalizer turns loosely structured generator output into a
// canonical Problem. The external language model is asked for a fixed JSON
// shape but routinely wraps it in fences, schema documents or renamed keys,
// so recovery runs as an ordered sequence of explicit shape matchers
// instead of trusting the payload.
package normalizer

import (
	"encoding/json"
	"strings"

	"bugdojo/internal/grader/model"
	errs "bugdojo/pkg/errors"
)

const (
	defaultTitle    = "buggy bubble sort"
	defaultCaseName = "case_1"
	defaultInput    = "3 2 1"
	defaultExpected = "1 2 3"
)

// Normalize parses raw generator text and extracts a canonical Problem.
// A payload that is not JSON at all fails with InvalidAIJSON; JSON that
// holds no usable code fails with InvalidAISchema. It never invents code.
func Normalize(rawText, language string) (model.Problem, error) {
	parsed, err := ParseLooseJSON(rawText)
	if err != nil {
		return model.Problem{}, errs.Wrap(err, errs.InvalidAIJSON)
	}
	for _, match := range []func(map[string]any, string) (model.Problem, bool){
		matchSchemaWrapper,
		matchLooseKeys,
	} {
		if p, ok := match(parsed, language); ok {
			if !validProblem(p) {
				break
			}
			return p, nil
		}
	}
	return model.Problem{}, errs.New(errs.InvalidAISchema)
}

// ParseLooseJSON parses text that should be a JSON object but may be
// wrapped in markdown fences, prefixed with prose, or quoted with curly
// quotes. Strict parsing is tried first; recovery slices out the first
// balanced object.
func ParseLooseJSON(text string) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed, nil
	}
	cleaned, err := sliceFirstJSON(stripFences(text))
	if err != nil {
		return nil, err
	}
	cleaned = strings.NewReplacer("“", `"`, "”", `"`).Replace(cleaned)
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func stripFences(s string) string {
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		for _, lang := range []string{"jsonc", "json", "JSON"} {
			if strings.HasPrefix(s, lang) {
				s = s[len(lang):]
				break
			}
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}

// sliceFirstJSON extracts the first balanced top-level JSON object,
// skipping braces inside string literals.
func sliceFirstJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errs.New(errs.InvalidAIJSON).WithMessage("no JSON object in text")
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '"':
			for i++; i < len(s); i++ {
				if s[i] == '"' && s[i-1] != '\\' {
					break
				}
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errs.New(errs.InvalidAIJSON).WithMessage("unbalanced JSON object")
}

// matchSchemaWrapper handles the "schema document" failure mode: the model
// returns {type:"object", example:{...}} or buries the code under
// properties.code.examples[0] instead of producing an instance.
func matchSchemaWrapper(parsed map[string]any, language string) (model.Problem, bool) {
	if str(parsed["type"]) != "object" {
		return model.Problem{}, false
	}
	example := obj(parsed["example"])
	schemaExamples, _ := dig(parsed, "properties", "code", "examples").([]any)
	hasExample := pickStr(example["buggy_code"], example["code"]) != "" || len(schemaExamples) > 0
	if !hasExample {
		return model.Problem{}, false
	}

	problemObj := obj(parsed["problem"])
	var firstSchemaExample any
	if len(schemaExamples) > 0 {
		firstSchemaExample = schemaExamples[0]
	}
	code := pickStr(
		example["buggy_code"],
		example["code"],
		firstSchemaExample,
		problemObj["buggy_code"],
		problemObj["code"],
	)
	if code == "" {
		return model.Problem{}, false
	}

	input := pickStr(example["input"], example["test_case"])
	if input == "" {
		input = defaultInput
	}
	expected := pickStr(example["expected_output"], example["output"])
	if expected == "" {
		expected = defaultExpected
	}

	return model.Problem{
		Title:    pickStrDefault(defaultTitle, parsed["title"]),
		Language: language,
		Code:     code,
		PublicCases: []model.TestCase{
			{Name: defaultCaseName, Input: input, ExpectedOutput: expected},
		},
		HintLevels: stringSlice(parsed["hint_levels"]),
	}, true
}

// matchLooseKeys handles flat instances: an optional problem wrapper, coded
// under aliased keys, with the single case in one of several shapes.
func matchLooseKeys(parsed map[string]any, language string) (model.Problem, bool) {
	p := parsed
	if wrapped := obj(parsed["problem"]); len(wrapped) > 0 {
		p = wrapped
	}
	code := pickStr(p["buggy_code"], p["code"], parsed["buggy_code"], parsed["code"])
	if code == "" {
		return model.Problem{}, false
	}

	tc, ok := extractCase(p)
	if !ok {
		tc = model.TestCase{Name: defaultCaseName, Input: defaultInput, ExpectedOutput: defaultExpected}
	}

	return model.Problem{
		Title:    pickStrDefault(defaultTitle, p["title"]),
		Language: language,
		Code:     code,
		PublicCases: []model.TestCase{
			tc,
		},
		HintLevels: stringSlice(p["hint_levels"]),
	}, true
}

// extractCase tries the case shapes in order: object case, string case plus
// a sibling expected key, first well-formed element of a case list, and a
// flat input/output pair.
func extractCase(p map[string]any) (model.TestCase, bool) {
	if caseObj := obj(p["test_case"]); len(caseObj) > 0 {
		return asCase(caseObj)
	}
	if input := str(p["test_case"]); input != "" {
		if expected := pickStr(p["expected_output"], p["output"]); expected != "" {
			return model.TestCase{Name: defaultCaseName, Input: input, ExpectedOutput: expected}, true
		}
	}
	if list, ok := p["test_cases"].([]any); ok {
		for _, item := range list {
			caseObj := obj(item)
			if _, isStr := caseObj["input"].(string); !isStr {
				continue
			}
			if tc, ok := asCase(caseObj); ok {
				return tc, true
			}
		}
	}
	if _, isStr := p["input"].(string); isStr {
		if expected := pickStr(p["expected_output"], p["output"]); expected != "" {
			return model.TestCase{Name: defaultCaseName, Input: str(p["input"]), ExpectedOutput: expected}, true
		}
	}
	return model.TestCase{}, false
}

func asCase(caseObj map[string]any) (model.TestCase, bool) {
	input, ok := caseObj["input"].(string)
	if !ok {
		return model.TestCase{}, false
	}
	expected, hasExpected := caseObj["expected_output"].(string)
	if !hasExpected {
		expected, hasExpected = caseObj["output"].(string)
	}
	if !hasExpected {
		return model.TestCase{}, false
	}
	name := str(caseObj["name"])
	if name == "" {
		name = defaultCaseName
	}
	return model.TestCase{Name: name, Input: input, ExpectedOutput: expected}, true
}

func validProblem(p model.Problem) bool {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Code) == "" {
		return false
	}
	if len(p.PublicCases) != 1 {
		return false
	}
	return p.PublicCases[0].Name != ""
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// pickStr returns the first candidate that is a non-blank string.
func pickStr(cands ...any) string {
	for _, c := range cands {
		if s, ok := c.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func pickStrDefault(def string, cands ...any) string {
	if s := pickStr(cands...); s != "" {
		return s
	}
	return def
}

// stringSlice keeps hint levels only when every element is a string.
func stringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}

func dig(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		curMap, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = curMap[k]
	}
	return cur
}
