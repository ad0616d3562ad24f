// Package validator holds the closed set of output validators. The set is
// fixed at compile time; new validators are added here, not registered at
// runtime, so the whole surface stays auditable and testable.
package validator

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Validator decides whether a program's output is correct for an input.
// Implementations are pure and safe for concurrent use.
type Validator interface {
	Name() string
	Validate(inputText, outputText string) bool
}

// DefaultName is the fallback used when a problem names an unknown
// validator.
const DefaultName = "sort_asc"

var registry = map[string]Validator{
	"sort_asc": sortAsc{},
	"reverse":  reverse{},
	"sum":      sum{},
}

// Resolve returns the named validator, falling back to sort_asc for unknown
// names. The second return reports whether the name was known.
func Resolve(name string) (Validator, bool) {
	if v, ok := registry[name]; ok {
		return v, true
	}
	return registry[DefaultName], false
}

// ParseNumbers parses a loosely delimited numeric sequence. It accepts a
// JSON array or text separated by whitespace, commas, semicolons or
// brackets. An empty or whitespace-only string is an empty sequence, not an
// error.
func ParseNumbers(text string) ([]float64, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []float64{}, true
	}

	if strings.HasPrefix(trimmed, "[") {
		if nums, ok := parseJSONNumbers(trimmed); ok {
			return nums, true
		}
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ',', ';':
			return ' '
		}
		return r
	}, trimmed)

	fields := strings.Fields(cleaned)
	nums := make([]float64, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, true
}

// parseJSONNumbers accepts a JSON array whose elements are numbers or
// numeric strings, e.g. [1, 2] and ["1", "2"].
func parseJSONNumbers(text string) ([]float64, bool) {
	var items []any
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, false
	}
	nums := make([]float64, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case float64:
			nums = append(nums, v)
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, false
			}
			nums = append(nums, n)
		default:
			return nil, false
		}
	}
	return nums, true
}

type sortAsc struct{}

func (sortAsc) Name() string { return "sort_asc" }

// Validate is true iff output is a non-decreasing permutation of input.
func (sortAsc) Validate(inputText, outputText string) bool {
	in, ok := ParseNumbers(inputText)
	if !ok {
		return false
	}
	out, ok := ParseNumbers(outputText)
	if !ok {
		return false
	}
	if len(in) != len(out) {
		return false
	}
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			return false
		}
	}
	sortedIn := append([]float64(nil), in...)
	sort.Float64s(sortedIn)
	for i := range sortedIn {
		if sortedIn[i] != out[i] {
			return false
		}
	}
	return true
}

type reverse struct{}

func (reverse) Name() string { return "reverse" }

func (reverse) Validate(inputText, outputText string) bool {
	in, ok := ParseNumbers(inputText)
	if !ok {
		return false
	}
	out, ok := ParseNumbers(outputText)
	if !ok {
		return false
	}
	if len(in) != len(out) {
		return false
	}
	n := len(in)
	for i := range out {
		if out[i] != in[n-1-i] {
			return false
		}
	}
	return true
}

type sum struct{}

func (sum) Name() string { return "sum" }

func (sum) Validate(inputText, outputText string) bool {
	in, ok := ParseNumbers(inputText)
	if !ok {
		return false
	}
	out, ok := ParseNumbers(outputText)
	if !ok {
		return false
	}
	if len(out) != 1 {
		return false
	}
	total := 0.0
	for _, n := range in {
		total += n
	}
	return out[0] == total
}
