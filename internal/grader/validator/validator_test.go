package validator_test

import (
	"testing"

	"bugdojo/internal/grader/validator"
)

func TestParseNumbers(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []float64
		ok   bool
	}{
		{"whitespace separated", "3 1 2", []float64{3, 1, 2}, true},
		{"commas", "3,1,2", []float64{3, 1, 2}, true},
		{"json array", "[3, 1, 2]", []float64{3, 1, 2}, true},
		{"json array of strings", `["3", "1", "2"]`, []float64{3, 1, 2}, true},
		{"json array mixed", `["3", 1]`, []float64{3, 1}, true},
		{"json array non-numeric string", `["3", "one"]`, nil, false},
		{"brackets and semicolons", "[3; 1; 2]", []float64{3, 1, 2}, true},
		{"negatives and floats", "-1.5 2", []float64{-1.5, 2}, true},
		{"empty", "", []float64{}, true},
		{"whitespace only", "   \n\t ", []float64{}, true},
		{"garbage token", "1 two 3", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := validator.ParseNumbers(tc.in)
			if ok != tc.ok {
				t.Fatalf("ParseNumbers(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			}
			if !ok {
				return
			}
			if len(got) != len(tc.want) {
				t.Fatalf("ParseNumbers(%q) = %v, want %v", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("ParseNumbers(%q)[%d] = %v, want %v", tc.in, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestSortAsc(t *testing.T) {
	v, known := validator.Resolve("sort_asc")
	if !known {
		t.Fatal("sort_asc must be registered")
	}
	cases := []struct {
		input, output string
		want          bool
	}{
		{"3 1 2", "1 2 3", true},
		{"3 1 2", "1 1 2", false},
		{"", "", true},
		{"1 2", "1 2 3", false},
		{"2 2 1", "1 2 2", true},
		{"3 1 2", "3 2 1", false},
		{"1", "not a number", false},
	}
	for _, tc := range cases {
		if got := v.Validate(tc.input, tc.output); got != tc.want {
			t.Errorf("sort_asc(%q, %q) = %v, want %v", tc.input, tc.output, got, tc.want)
		}
	}
}

func TestReverse(t *testing.T) {
	v, _ := validator.Resolve("reverse")
	cases := []struct {
		input, output string
		want          bool
	}{
		{"1 2 3", "3 2 1", true},
		{"1 2", "2 1 3", false},
		{"1 2", "1 2", false},
		{"5", "5", true},
		{"", "", true},
	}
	for _, tc := range cases {
		if got := v.Validate(tc.input, tc.output); got != tc.want {
			t.Errorf("reverse(%q, %q) = %v, want %v", tc.input, tc.output, got, tc.want)
		}
	}
}

func TestSum(t *testing.T) {
	v, _ := validator.Resolve("sum")
	cases := []struct {
		input, output string
		want          bool
	}{
		{"1 2 3", "6", true},
		{"1 2 3", "6 0", false},
		{"1 2 3", "7", false},
		{"", "0", true},
		{"-2 2", "0", true},
		{"1 2", "", false},
	}
	for _, tc := range cases {
		if got := v.Validate(tc.input, tc.output); got != tc.want {
			t.Errorf("sum(%q, %q) = %v, want %v", tc.input, tc.output, got, tc.want)
		}
	}
}

func TestResolveUnknownFallsBack(t *testing.T) {
	v, known := validator.Resolve("no_such_validator")
	if known {
		t.Fatal("unknown validator reported as known")
	}
	if v.Name() != validator.DefaultName {
		t.Fatalf("fallback validator = %q, want %q", v.Name(), validator.DefaultName)
	}
}
